package pricing

import "sort"

// DefaultRules is the ladder used when no active rules are configured:
// 20% off the list price, then a further 10% off the discounted price.
func DefaultRules() []DiscountRule {
	return []DiscountRule{
		{
			ID:          "discount-20",
			Label:       "Con 20% de descuento",
			Description: "Descuento comercial habitual del 20% sobre lista.",
			Percentage:  0.2,
			Mode:        ModeDiscount,
			ApplyOn:     ApplyOnBase,
			Priority:    1,
		},
		{
			ID:          "discount-20-10",
			Label:       "20% + 10% adicional",
			Description: "Aplicado sobre el precio ya descontado al 20%.",
			Percentage:  0.1,
			Mode:        ModeDiscount,
			ApplyOn:     ApplyOnRunning,
			Priority:    2,
		},
	}
}

// SortByPriority returns a copy of rules ordered by ascending priority.
// Rules sharing a priority keep their relative order.
func SortByPriority(rules []DiscountRule) []DiscountRule {
	out := make([]DiscountRule, len(rules))
	copy(out, rules)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

// Normalize fills in the default mode and apply target for loosely typed input.
func Normalize(rule DiscountRule) DiscountRule {
	if rule.Mode != ModeMarkup {
		rule.Mode = ModeDiscount
	}
	if rule.ApplyOn != ApplyOnBase {
		rule.ApplyOn = ApplyOnRunning
	}
	return rule
}
