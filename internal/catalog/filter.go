package catalog

import (
	"math"
	"sort"
	"strings"

	"github.com/noah-isme/catalogo-muebles/internal/pricing"
)

// Filters narrows a product listing. Zero values leave a dimension unconstrained.
type Filters struct {
	Query          string   `json:"query,omitempty"`
	Category       string   `json:"category,omitempty"`
	Subtype        string   `json:"subtype,omitempty"`
	ProviderID     string   `json:"providerId,omitempty"`
	OnlyExhibition bool     `json:"onlyExhibition,omitempty"`
	MinPrice       *float64 `json:"minPrice,omitempty"`
	MaxPrice       *float64 `json:"maxPrice,omitempty"`
}

// PriceRange is the span of effective prices a client may filter within.
type PriceRange struct {
	Min pricing.Money `json:"min"`
	Max pricing.Money `json:"max"`
}

// Result is one page of a filtered listing together with the unpaged total.
type Result struct {
	Items []Product
	Total int
}

// Filter returns the products matching every constraint in f, in input order.
// Price bounds are compared against the effective price under rules.
func Filter(products []Product, f Filters, rules []pricing.DiscountRule) []Product {
	query := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if !matchesAttributes(p, f, query) {
			continue
		}
		if f.MinPrice != nil || f.MaxPrice != nil {
			price := float64(pricing.Effective(p.PriceList, rules))
			if bound, ok := usable(f.MinPrice); ok && price < bound {
				continue
			}
			if bound, ok := usable(f.MaxPrice); ok && price > bound {
				continue
			}
		}
		out = append(out, p)
	}
	return out
}

// Query filters products and slices out the requested page. Total counts the
// filtered set before slicing; pages past the end come back empty.
func Query(products []Product, f Filters, page, pageSize int, rules []pricing.DiscountRule) Result {
	filtered := Filter(products, f, rules)
	return Result{Items: Paginate(filtered, page, pageSize), Total: len(filtered)}
}

// Paginate returns the 1-based page of items.
func Paginate(items []Product, page, pageSize int) []Product {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		return []Product{}
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []Product{}
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// DiscoverPriceRange reports the effective price span of the products matching
// every filter except the price bounds, so moving a slider never shrinks its
// own track. An empty match yields {0, fallbackMax}.
func DiscoverPriceRange(products []Product, f Filters, rules []pricing.DiscountRule, fallbackMax pricing.Money) PriceRange {
	unbounded := f
	unbounded.MinPrice = nil
	unbounded.MaxPrice = nil

	matched := Filter(products, unbounded, rules)
	if len(matched) == 0 {
		return PriceRange{Min: 0, Max: fallbackMax}
	}
	first := pricing.Effective(matched[0].PriceList, rules)
	out := PriceRange{Min: first, Max: first}
	for _, p := range matched[1:] {
		price := pricing.Effective(p.PriceList, rules)
		if price < out.Min {
			out.Min = price
		}
		if price > out.Max {
			out.Max = price
		}
	}
	return out
}

// Categories lists the distinct non-empty categories, sorted.
func Categories(products []Product) []string {
	return distinct(products, func(p Product) string { return p.Category })
}

// Subtypes lists the distinct non-empty subtypes, sorted.
func Subtypes(products []Product) []string {
	return distinct(products, func(p Product) string { return p.Subtype })
}

func distinct(products []Product, field func(Product) string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, p := range products {
		v := field(p)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func matchesAttributes(p Product, f Filters, query string) bool {
	if query != "" {
		var providerName string
		if p.Provider != nil {
			providerName = p.Provider.Name
		}
		haystack := strings.ToLower(strings.Join([]string{p.Name, p.Category, p.Subtype, p.Description, providerName}, " "))
		if !strings.Contains(haystack, query) {
			return false
		}
	}
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.Subtype != "" && p.Subtype != f.Subtype {
		return false
	}
	if f.ProviderID != "" && p.ProviderID != f.ProviderID {
		return false
	}
	if f.OnlyExhibition && !p.IsExhibition {
		return false
	}
	return true
}

func usable(bound *float64) (float64, bool) {
	if bound == nil || math.IsNaN(*bound) {
		return 0, false
	}
	return *bound, true
}
