package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCalculateDefaultLadder(t *testing.T) {
	b := Calculate(34999, DefaultRules())

	require.Equal(t, Money(34999), b.BaseAmount)
	require.Len(t, b.Tiers, 2)
	require.Equal(t, Money(27999), b.Tiers[0].Amount)
	require.Equal(t, Money(25199), b.Tiers[1].Amount)
	require.Equal(t, "discount-20-tier", b.Tiers[0].ID)
	require.Equal(t, "discount-20", b.Tiers[0].RuleRef)
	require.Equal(t, "discount-20-10-tier", b.Tiers[1].ID)
	require.Equal(t, Money(25199), EffectivePrice(b))
}

func TestCalculateMarkup(t *testing.T) {
	rules := []DiscountRule{{ID: "m", Label: "Markup", Percentage: 0.15, Mode: ModeMarkup}}
	b := Calculate(1000, rules)
	require.Len(t, b.Tiers, 1)
	require.Equal(t, Money(1150), b.Tiers[0].Amount)
}

func TestCalculateWithoutRules(t *testing.T) {
	b := Calculate(5000, nil)
	require.NotNil(t, b.Tiers)
	require.Empty(t, b.Tiers)
	require.Equal(t, Money(5000), EffectivePrice(b))
}

func TestCalculateApplyOnBaseIgnoresRunning(t *testing.T) {
	rules := []DiscountRule{
		{ID: "a", Percentage: 0.5, ApplyOn: ApplyOnRunning},
		{ID: "b", Percentage: 0.1, ApplyOn: ApplyOnBase},
	}
	b := Calculate(1000, rules)
	require.Equal(t, Money(500), b.Tiers[0].Amount)
	require.Equal(t, Money(900), b.Tiers[1].Amount)
}

func TestCalculateUnknownApplyOnReadsRunning(t *testing.T) {
	rules := []DiscountRule{
		{ID: "a", Percentage: 0.5},
		{ID: "b", Percentage: 0.5, ApplyOn: "whatever"},
	}
	b := Calculate(1000, rules)
	require.Equal(t, Money(250), b.Tiers[1].Amount)
}

func TestCalculateRoundsHalfUp(t *testing.T) {
	cases := []struct {
		base Money
		pct  float64
		want Money
	}{
		{base: 5, pct: 0.5, want: 3},
		{base: 15, pct: 0.1, want: 14},
		{base: 999, pct: 0.15, want: 849},
		{base: 3, pct: 1.5, want: -1},
	}
	for _, tc := range cases {
		b := Calculate(tc.base, []DiscountRule{{ID: "r", Percentage: tc.pct}})
		require.Equal(t, tc.want, b.Tiers[0].Amount, "base=%d pct=%v", tc.base, tc.pct)
	}
}

func TestCalculateIsDeterministic(t *testing.T) {
	rules := DefaultRules()
	first := Calculate(12345, rules)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, Calculate(12345, rules))
	}
}

func TestCalculateDoesNotReorderRules(t *testing.T) {
	rules := []DiscountRule{
		{ID: "late", Percentage: 0.1, Priority: 9},
		{ID: "early", Percentage: 0.2, Priority: 1},
	}
	b := Calculate(1000, rules)
	require.Equal(t, "late", b.Tiers[0].RuleRef)
	require.Equal(t, "early", b.Tiers[1].RuleRef)
}

func TestCalculateNonFinitePercentageIsNeutral(t *testing.T) {
	rules := []DiscountRule{
		{ID: "nan", Percentage: math.NaN()},
		{ID: "inf", Percentage: math.Inf(1), Mode: ModeMarkup},
	}
	b := Calculate(700, rules)
	require.Equal(t, Money(700), b.Tiers[0].Amount)
	require.Equal(t, Money(700), b.Tiers[1].Amount)
}

func TestSortByPriorityIsStableCopy(t *testing.T) {
	rules := []DiscountRule{
		{ID: "c", Priority: 2},
		{ID: "a", Priority: 1},
		{ID: "b", Priority: 1},
	}
	sorted := SortByPriority(rules)
	require.Equal(t, []string{"a", "b", "c"}, []string{sorted[0].ID, sorted[1].ID, sorted[2].ID})
	require.Equal(t, "c", rules[0].ID)
}

func TestNormalize(t *testing.T) {
	r := Normalize(DiscountRule{ID: "x", Mode: "", ApplyOn: "nope"})
	require.Equal(t, ModeDiscount, r.Mode)
	require.Equal(t, ApplyOnRunning, r.ApplyOn)

	r = Normalize(DiscountRule{Mode: ModeMarkup, ApplyOn: ApplyOnBase})
	require.Equal(t, ModeMarkup, r.Mode)
	require.Equal(t, ApplyOnBase, r.ApplyOn)
}

func TestFormatCurrency(t *testing.T) {
	require.Equal(t, "$34,999", FormatCurrency(34999))
	require.Equal(t, "-$25,199", FormatCurrency(-25199))
}
