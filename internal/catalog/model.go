package catalog

import (
	"github.com/noah-isme/catalogo-muebles/internal/pricing"
)

// Product is a furniture item as listed in the catalog.
type Product struct {
	ID           string        `json:"id"`
	Slug         string        `json:"slug"`
	Name         string        `json:"name"`
	Category     string        `json:"category"`
	Subtype      string        `json:"subtype"`
	Description  string        `json:"description"`
	PriceList    pricing.Money `json:"priceList"`
	IsExhibition bool          `json:"isExhibition"`
	ImageURL     string        `json:"imageUrl,omitempty"`
	Fabrics      []string      `json:"fabrics"`
	Tags         []string      `json:"tags"`
	Inventory    *Inventory    `json:"inventory,omitempty"`
	ProviderID   string        `json:"providerId,omitempty"`
	Provider     *Provider     `json:"provider,omitempty"`
}

// Inventory is the stock position of a product.
type Inventory struct {
	OnHand        int    `json:"onHand"`
	Incoming      *int   `json:"incoming,omitempty"`
	LeadTimeWeeks *int   `json:"leadTimeWeeks,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

// Fabric is an upholstery swatch that products can be ordered in.
type Fabric struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ColorHex    string `json:"colorHex,omitempty"`
	Description string `json:"description,omitempty"`
}

// Provider is a manufacturer or supplier record.
type Provider struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	ContactName   string   `json:"contactName,omitempty"`
	Email         string   `json:"email,omitempty"`
	Phone         string   `json:"phone,omitempty"`
	LeadTimeWeeks *int     `json:"leadTimeWeeks,omitempty"`
	Notes         string   `json:"notes,omitempty"`
	Rating        *float64 `json:"rating,omitempty"`
}

// Snapshot is everything the catalog needs to answer a request, loaded in one go
// from a single data source.
type Snapshot struct {
	Products  []Product              `json:"products"`
	Fabrics   []Fabric               `json:"fabrics"`
	Providers []Provider             `json:"providers"`
	Rules     []pricing.DiscountRule `json:"rules"`
	Source    string                 `json:"source"`
}

// LinkProviders returns a copy of s whose products carry the full provider
// record named by ProviderID. Products whose provider is unknown keep
// whatever Provider they already had.
func (s Snapshot) LinkProviders() Snapshot {
	if len(s.Products) == 0 {
		return s
	}
	byID := make(map[string]Provider, len(s.Providers))
	for _, p := range s.Providers {
		byID[p.ID] = p
	}
	products := make([]Product, len(s.Products))
	copy(products, s.Products)
	for i := range products {
		if provider, ok := byID[products[i].ProviderID]; ok && products[i].ProviderID != "" {
			products[i].Provider = &provider
		}
	}
	s.Products = products
	return s
}

// FindProduct looks a product up by id first, then by slug.
func (s Snapshot) FindProduct(identifier string) (Product, bool) {
	for _, p := range s.Products {
		if p.ID == identifier {
			return p, true
		}
	}
	for _, p := range s.Products {
		if p.Slug != "" && p.Slug == identifier {
			return p, true
		}
	}
	return Product{}, false
}

// FabricsFor resolves a product's fabric ids in product order, skipping unknown ids.
func (s Snapshot) FabricsFor(p Product) []Fabric {
	byID := make(map[string]Fabric, len(s.Fabrics))
	for _, f := range s.Fabrics {
		byID[f.ID] = f
	}
	out := make([]Fabric, 0, len(p.Fabrics))
	for _, id := range p.Fabrics {
		if f, ok := byID[id]; ok {
			out = append(out, f)
		}
	}
	return out
}

// ProviderFor returns the provider assigned to p, if any.
func (s Snapshot) ProviderFor(p Product) *Provider {
	if p.ProviderID == "" {
		return nil
	}
	for i := range s.Providers {
		if s.Providers[i].ID == p.ProviderID {
			provider := s.Providers[i]
			return &provider
		}
	}
	return nil
}
