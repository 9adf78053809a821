package catalog

import (
	"context"
	"errors"

	"github.com/noah-isme/catalogo-muebles/internal/pricing"
)

// ErrSourceUnavailable is returned by data sources that are not configured.
var ErrSourceUnavailable = errors.New("catalog: data source unavailable")

// Source names reported in payloads and metrics.
const (
	SourcePostgres = "postgres"
	SourceStatic   = "static"
)

// DataSource loads a full catalog snapshot. Implementations return rules as
// stored; ordering and defaulting happen in the Service.
type DataSource interface {
	Name() string
	Snapshot(ctx context.Context) (Snapshot, error)
}

// StaticSource serves a fixed in-memory dataset. It never fails.
type StaticSource struct {
	data Snapshot
}

// StaticDataset returns a fresh copy of the built-in showroom dataset.
func StaticDataset() Snapshot {
	snap := Snapshot{
		Products:  fallbackProducts(),
		Fabrics:   fallbackFabrics(),
		Providers: fallbackProviders(),
		Rules:     pricing.DefaultRules(),
		Source:    SourceStatic,
	}
	return snap.LinkProviders()
}

// NewStaticSource returns the built-in showroom dataset.
func NewStaticSource() *StaticSource {
	return NewStaticSourceFrom(StaticDataset())
}

// NewStaticSourceFrom serves the given snapshot.
func NewStaticSourceFrom(s Snapshot) *StaticSource {
	s.Source = SourceStatic
	return &StaticSource{data: s}
}

// Name implements DataSource.
func (s *StaticSource) Name() string { return SourceStatic }

// Snapshot implements DataSource. Callers get their own slices.
func (s *StaticSource) Snapshot(context.Context) (Snapshot, error) {
	out := Snapshot{
		Products:  append([]Product(nil), s.data.Products...),
		Fabrics:   append([]Fabric(nil), s.data.Fabrics...),
		Providers: append([]Provider(nil), s.data.Providers...),
		Rules:     append([]pricing.DiscountRule(nil), s.data.Rules...),
		Source:    SourceStatic,
	}
	return out, nil
}

// SourceFunc adapts a function to the DataSource interface.
type SourceFunc struct {
	SourceName string
	Load       func(ctx context.Context) (Snapshot, error)
}

// Name implements DataSource.
func (f SourceFunc) Name() string { return f.SourceName }

// Snapshot implements DataSource.
func (f SourceFunc) Snapshot(ctx context.Context) (Snapshot, error) {
	if f.Load == nil {
		return Snapshot{}, ErrSourceUnavailable
	}
	return f.Load(ctx)
}
