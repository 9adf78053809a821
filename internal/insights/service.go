package insights

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/noah-isme/catalogo-muebles/internal/catalog"
)

// SnapshotSource supplies the catalog data the summaries are computed from.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (catalog.Snapshot, error)
}

// Service derives back-office summaries for providers and fabrics.
type Service struct {
	Catalog SnapshotSource
	Now     func() time.Time
}

// ProviderUsage is the number of products assigned to a provider.
type ProviderUsage struct {
	ProviderID    string `json:"providerId"`
	Name          string `json:"name"`
	LeadTimeWeeks *int   `json:"leadTimeWeeks,omitempty"`
	Products      int    `json:"products"`
}

// ProviderSummary aggregates provider coverage across the catalog.
type ProviderSummary struct {
	TotalProviders       int             `json:"totalProviders"`
	AverageLeadTimeWeeks *float64        `json:"averageLeadTimeWeeks"`
	Fastest              *ProviderUsage  `json:"fastest,omitempty"`
	UnassignedProducts   int             `json:"unassignedProducts"`
	Usage                []ProviderUsage `json:"usage"`
	Source               string          `json:"source"`
	GeneratedAt          time.Time       `json:"generatedAt"`
}

// FabricUsage is the number of products offered in a fabric.
type FabricUsage struct {
	FabricID string `json:"fabricId"`
	Name     string `json:"name"`
	ColorHex string `json:"colorHex,omitempty"`
	Products int    `json:"products"`
}

// FabricSummary aggregates fabric usage across the catalog.
type FabricSummary struct {
	TotalFabrics    int           `json:"totalFabrics"`
	MostUsed        *FabricUsage  `json:"mostUsed,omitempty"`
	CoveragePercent int           `json:"coveragePercent"`
	Usage           []FabricUsage `json:"usage"`
	Source          string        `json:"source"`
	GeneratedAt     time.Time     `json:"generatedAt"`
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Providers summarises provider assignments.
func (s *Service) Providers(ctx context.Context) (ProviderSummary, error) {
	if s == nil || s.Catalog == nil {
		return ProviderSummary{}, fmt.Errorf("insights service not configured")
	}
	snap, err := s.Catalog.Snapshot(ctx)
	if err != nil {
		return ProviderSummary{}, fmt.Errorf("provider insights: %w", err)
	}
	summary := SummarizeProviders(snap.Providers, snap.Products)
	summary.Source = snap.Source
	summary.GeneratedAt = s.now().UTC()
	return summary, nil
}

// Fabrics summarises fabric usage.
func (s *Service) Fabrics(ctx context.Context) (FabricSummary, error) {
	if s == nil || s.Catalog == nil {
		return FabricSummary{}, fmt.Errorf("insights service not configured")
	}
	snap, err := s.Catalog.Snapshot(ctx)
	if err != nil {
		return FabricSummary{}, fmt.Errorf("fabric insights: %w", err)
	}
	summary := SummarizeFabrics(snap.Fabrics, snap.Products)
	summary.Source = snap.Source
	summary.GeneratedAt = s.now().UTC()
	return summary, nil
}

// SummarizeProviders counts products per provider, averages lead times to one
// decimal and picks the provider with the shortest lead time. Providers
// without a lead time are left out of both.
func SummarizeProviders(providers []catalog.Provider, products []catalog.Product) ProviderSummary {
	assigned := make(map[string]int, len(providers))
	unassigned := 0
	for _, p := range products {
		if p.ProviderID == "" {
			unassigned++
			continue
		}
		assigned[p.ProviderID]++
	}

	usage := make([]ProviderUsage, 0, len(providers))
	var (
		leadSum   int
		leadCount int
	)
	for _, pr := range providers {
		usage = append(usage, ProviderUsage{
			ProviderID:    pr.ID,
			Name:          pr.Name,
			LeadTimeWeeks: pr.LeadTimeWeeks,
			Products:      assigned[pr.ID],
		})
		if pr.LeadTimeWeeks != nil {
			leadSum += *pr.LeadTimeWeeks
			leadCount++
		}
	}

	summary := ProviderSummary{
		TotalProviders:     len(providers),
		UnassignedProducts: unassigned,
		Usage:              usage,
	}
	if leadCount > 0 {
		avg := math.Round(float64(leadSum)/float64(leadCount)*10) / 10
		summary.AverageLeadTimeWeeks = &avg
	}

	timed := make([]ProviderUsage, 0, len(usage))
	for _, u := range usage {
		if u.LeadTimeWeeks != nil {
			timed = append(timed, u)
		}
	}
	sort.SliceStable(timed, func(i, j int) bool { return *timed[i].LeadTimeWeeks < *timed[j].LeadTimeWeeks })
	if len(timed) > 0 {
		fastest := timed[0]
		summary.Fastest = &fastest
	}
	return summary
}

// SummarizeFabrics counts products per fabric, picks the most used one (first
// listed wins ties) and reports the rounded share of products with at least
// one fabric.
func SummarizeFabrics(fabrics []catalog.Fabric, products []catalog.Product) FabricSummary {
	counts := make(map[string]int, len(fabrics))
	withFabric := 0
	for _, p := range products {
		if len(p.Fabrics) > 0 {
			withFabric++
		}
		seen := make(map[string]struct{}, len(p.Fabrics))
		for _, id := range p.Fabrics {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			counts[id]++
		}
	}

	usage := make([]FabricUsage, 0, len(fabrics))
	for _, f := range fabrics {
		usage = append(usage, FabricUsage{FabricID: f.ID, Name: f.Name, ColorHex: f.ColorHex, Products: counts[f.ID]})
	}

	summary := FabricSummary{TotalFabrics: len(fabrics), Usage: usage}
	if len(products) > 0 {
		summary.CoveragePercent = int(math.Floor(float64(withFabric)*100/float64(len(products)) + 0.5))
	}
	ranked := append([]FabricUsage(nil), usage...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Products > ranked[j].Products })
	if len(ranked) > 0 {
		most := ranked[0]
		summary.MostUsed = &most
	}
	return summary
}
