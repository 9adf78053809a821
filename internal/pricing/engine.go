package pricing

import (
	"math"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value in whole currency units (MXN pesos).
type Money = int64

// Mode selects whether a rule lowers or raises the value it reads.
type Mode string

const (
	ModeDiscount Mode = "discount"
	ModeMarkup   Mode = "markup"
)

// ApplyOn selects which value a rule reads: the original base price or the
// output of the previous tier.
type ApplyOn string

const (
	ApplyOnBase    ApplyOn = "base"
	ApplyOnRunning ApplyOn = "running"
)

// DiscountRule is one step of a pricing ladder. Percentage is a fraction
// (0.2 means 20%). Priority is only used to order rules before calculation.
type DiscountRule struct {
	ID          string  `json:"id"`
	Label       string  `json:"label"`
	Description string  `json:"description,omitempty"`
	Percentage  float64 `json:"percentage"`
	Mode        Mode    `json:"mode,omitempty"`
	ApplyOn     ApplyOn `json:"applyOn,omitempty"`
	Priority    int     `json:"priority"`
}

// PriceTier is the result of applying a single rule.
type PriceTier struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Amount      Money  `json:"amount"`
	Description string `json:"description,omitempty"`
	RuleRef     string `json:"ruleRef"`
}

// Breakdown lists every tier produced for a base price, in rule order.
type Breakdown struct {
	BaseAmount Money       `json:"baseAmount"`
	Tiers      []PriceTier `json:"tiers"`
}

var (
	one  = decimal.NewFromInt(1)
	half = decimal.NewFromFloat(0.5)
)

// Calculate applies rules in the order given and returns one tier per rule.
// Each tier is rounded half-up to a whole unit before the next rule reads it.
func Calculate(base Money, rules []DiscountRule) Breakdown {
	tiers := make([]PriceTier, 0, len(rules))
	baseValue := decimal.NewFromInt(base)
	running := baseValue

	for _, rule := range rules {
		source := running
		if rule.ApplyOn == ApplyOnBase {
			source = baseValue
		}
		amount := source.Mul(factor(rule)).Add(half).Floor()
		running = amount

		tiers = append(tiers, PriceTier{
			ID:          rule.ID + "-tier",
			Label:       rule.Label,
			Amount:      amount.IntPart(),
			Description: rule.Description,
			RuleRef:     rule.ID,
		})
	}

	return Breakdown{BaseAmount: base, Tiers: tiers}
}

// EffectivePrice returns the last tier amount, or the base when no rule applied.
func EffectivePrice(b Breakdown) Money {
	if len(b.Tiers) == 0 {
		return b.BaseAmount
	}
	return b.Tiers[len(b.Tiers)-1].Amount
}

// Effective is shorthand for EffectivePrice(Calculate(base, rules)).
func Effective(base Money, rules []DiscountRule) Money {
	return EffectivePrice(Calculate(base, rules))
}

func factor(rule DiscountRule) decimal.Decimal {
	p := rule.Percentage
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return one
	}
	pct := decimal.NewFromFloat(p)
	if rule.Mode == ModeMarkup {
		return one.Add(pct)
	}
	return one.Sub(pct)
}
