package catalog

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/catalogo-muebles/internal/common"
	"github.com/noah-isme/catalogo-muebles/internal/pricing"
	"github.com/noah-isme/catalogo-muebles/internal/resilience"
)

type countingSource struct {
	name  string
	snap  Snapshot
	err   error
	calls int
}

func (c *countingSource) Name() string { return c.name }

func (c *countingSource) Snapshot(context.Context) (Snapshot, error) {
	c.calls++
	if c.err != nil {
		return Snapshot{}, c.err
	}
	return c.snap, nil
}

func primaryFixture() *countingSource {
	return &countingSource{
		name: SourcePostgres,
		snap: Snapshot{
			Products: fixtureProducts(),
			Fabrics:  []Fabric{{ID: "f1", Name: "Lino"}},
			Rules: []pricing.DiscountRule{
				{ID: "second", Label: "10%", Percentage: 0.1, ApplyOn: pricing.ApplyOnRunning, Priority: 2},
				{ID: "first", Label: "20%", Percentage: 0.2, ApplyOn: pricing.ApplyOnBase, Priority: 1},
			},
		},
	}
}

func newTestService(t *testing.T, cfg ServiceConfig) *Service {
	t.Helper()
	svc, err := NewService(cfg)
	require.NoError(t, err)
	return svc
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestNewServiceRejectsInconsistentPageSizes(t *testing.T) {
	_, err := NewService(ServiceConfig{DefaultPageSize: 50, MaxPageSize: 10})
	require.Error(t, err)
}

func TestServiceSortsRulesByPriority(t *testing.T) {
	svc := newTestService(t, ServiceConfig{Source: primaryFixture()})

	rules, err := svc.Rules(context.Background())
	require.NoError(t, err)
	require.Equal(t, "first", rules[0].ID)
	require.Equal(t, "second", rules[1].ID)
	require.Equal(t, pricing.ModeDiscount, rules[0].Mode)
}

func TestServiceDefaultsRulesWhenNoneActive(t *testing.T) {
	src := primaryFixture()
	src.snap.Rules = nil
	svc := newTestService(t, ServiceConfig{Source: src})

	rules, err := svc.Rules(context.Background())
	require.NoError(t, err)
	require.Equal(t, pricing.DefaultRules(), rules)
}

func TestServiceCatalogPayload(t *testing.T) {
	svc := newTestService(t, ServiceConfig{Source: primaryFixture(), DefaultPageSize: 2, MaxPageSize: 10, MaxPriceDefault: 90000})

	payload, err := svc.Catalog(context.Background(), Request{Filters: Filters{Category: "Comedores"}, Page: 1, PageSize: 1})
	require.NoError(t, err)
	require.Equal(t, SourcePostgres, payload.Source)
	require.Equal(t, 2, payload.Total)
	require.Equal(t, 1, payload.Page)
	require.Equal(t, 1, payload.PageSize)
	require.Len(t, payload.Products, 1)
	require.Equal(t, "b", payload.Products[0].ID)
	require.Len(t, payload.Products[0].Breakdown.Tiers, 2)
	require.Equal(t, pricing.Money(12000), payload.Products[0].Breakdown.BaseAmount)
	require.Equal(t, pricing.Effective(12000, payload.DiscountRules), payload.Products[0].EffectivePrice)
	require.Equal(t, []string{"Comedores", "Recámaras", "Salas"}, payload.Categories)
	require.Equal(t, PriceRange{Min: pricing.Effective(2000, payload.DiscountRules), Max: pricing.Effective(12000, payload.DiscountRules)}, payload.PriceRange)
	require.NotNil(t, payload.Providers)

	empty, err := svc.Catalog(context.Background(), Request{Filters: Filters{Category: "Jardín"}})
	require.NoError(t, err)
	require.Equal(t, PriceRange{Min: 0, Max: 90000}, empty.PriceRange)
	require.Equal(t, 2, empty.PageSize)
	require.Empty(t, empty.Products)
}

func TestServiceFallsBackOnSourceError(t *testing.T) {
	var logs bytes.Buffer
	src := &countingSource{name: SourcePostgres, err: errors.New("connection refused")}
	svc := newTestService(t, ServiceConfig{Source: src, Logger: zerolog.New(&logs)})

	payload, err := svc.Catalog(context.Background(), Request{Page: 1, PageSize: 9})
	require.NoError(t, err)
	require.Equal(t, SourceStatic, payload.Source)
	require.Equal(t, len(fallbackProducts()), payload.Total)
	require.Equal(t, pricing.DefaultRules(), payload.DiscountRules)
	require.Contains(t, logs.String(), "catalog_fallback")
	require.Contains(t, logs.String(), `"level":"warn"`)
	require.Contains(t, logs.String(), "connection refused")
}

func TestServiceFallbackStaticDataset(t *testing.T) {
	svc := newTestService(t, ServiceConfig{})

	payload, err := svc.Catalog(context.Background(), Request{Filters: Filters{Category: "Salas"}, Page: 1, PageSize: 9})
	require.NoError(t, err)
	require.Equal(t, SourceStatic, payload.Source)
	require.Equal(t, 5, payload.Total)

	var sofa PricedProduct
	for _, p := range payload.Products {
		if p.ID == "prod-sofa-milan" {
			sofa = p
		}
	}
	require.Equal(t, pricing.Money(25199), sofa.EffectivePrice)
	require.Equal(t, "$25,199", sofa.DisplayPrice)
}

func TestServiceBreakerOpensAndSkipsSource(t *testing.T) {
	src := &countingSource{name: SourcePostgres, err: errors.New("timeout")}
	breaker := resilience.NewBreaker(2, 0.5, time.Hour).WithTarget("catalog_test")
	svc := newTestService(t, ServiceConfig{Source: src, Breaker: breaker})

	for i := 0; i < 5; i++ {
		snap, err := svc.Snapshot(context.Background())
		require.NoError(t, err)
		require.Equal(t, SourceStatic, snap.Source)
	}
	require.Equal(t, 2, src.calls)
}

func TestServiceProductLookup(t *testing.T) {
	svc := newTestService(t, ServiceConfig{})
	ctx := context.Background()

	byID, err := svc.Product(ctx, "prod-sofa-milan")
	require.NoError(t, err)
	bySlug, err := svc.Product(ctx, "sofa-milan-3-plazas")
	require.NoError(t, err)
	require.Equal(t, byID, bySlug)
	require.Equal(t, []string{"lino-arena", "terciopelo-esmeralda"}, []string{byID.FabricDetails[0].ID, byID.FabricDetails[1].ID})
	require.NotNil(t, byID.Provider)
	require.Equal(t, "prov-norte", byID.Provider.ID)
	require.Equal(t, []pricing.Money{27999, 25199}, []pricing.Money{byID.Breakdown.Tiers[0].Amount, byID.Breakdown.Tiers[1].Amount})

	_, err = svc.Product(ctx, "missing")
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "NOT_FOUND", appErr.Code)
	require.ErrorIs(t, err, ErrProductNotFound)

	_, err = svc.Product(ctx, "   ")
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestServiceProductLookupFallsBack(t *testing.T) {
	src := &countingSource{name: SourcePostgres, err: errors.New("db down")}
	svc := newTestService(t, ServiceConfig{Source: src})

	detail, err := svc.Product(context.Background(), "banca-tulum")
	require.NoError(t, err)
	require.Equal(t, SourceStatic, detail.Source)
	require.Nil(t, detail.Provider)
}

func TestServiceQuote(t *testing.T) {
	svc := newTestService(t, ServiceConfig{})
	ctx := context.Background()

	b, err := svc.Quote(ctx, 34999, nil)
	require.NoError(t, err)
	require.Equal(t, pricing.Money(25199), pricing.EffectivePrice(b))

	b, err = svc.Quote(ctx, 1000, []pricing.DiscountRule{{ID: "m", Percentage: 0.15, Mode: pricing.ModeMarkup}})
	require.NoError(t, err)
	require.Equal(t, pricing.Money(1150), pricing.EffectivePrice(b))

	b, err = svc.Quote(ctx, 1000, []pricing.DiscountRule{})
	require.NoError(t, err)
	require.Empty(t, b.Tiers)
}

func TestServiceCachesPrimarySnapshot(t *testing.T) {
	_, client := newRedis(t)
	src := primaryFixture()
	svc := newTestService(t, ServiceConfig{Source: src, Cache: NewCache(client, time.Minute)})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		snap, err := svc.Snapshot(ctx)
		require.NoError(t, err)
		require.Equal(t, SourcePostgres, snap.Source)
		require.Len(t, snap.Products, len(fixtureProducts()))
	}
	require.Equal(t, 1, src.calls)

	require.NoError(t, svc.Invalidate(ctx))
	_, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, src.calls)
}

func TestServiceDoesNotCacheFallback(t *testing.T) {
	_, client := newRedis(t)
	src := &countingSource{name: SourcePostgres, err: errors.New("down")}
	svc := newTestService(t, ServiceConfig{Source: src, Cache: NewCache(client, time.Minute)})
	ctx := context.Background()

	_, err := svc.Snapshot(ctx)
	require.NoError(t, err)

	src.err = nil
	src.snap = primaryFixture().snap
	snap, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, SourcePostgres, snap.Source)
}

func invalidatingSource(svc **Service) (*SourceFunc, *int) {
	calls := 0
	src := &SourceFunc{SourceName: SourcePostgres}
	src.Load = func(ctx context.Context) (Snapshot, error) {
		calls++
		id := "new"
		if calls == 1 {
			id = "old"
			if err := (*svc).Invalidate(ctx); err != nil {
				return Snapshot{}, err
			}
		}
		return Snapshot{Products: []Product{{ID: id, Name: id, PriceList: 1000}}}, nil
	}
	return src, &calls
}

func TestServiceInvalidateDuringLoadDiscardsStaleWrite(t *testing.T) {
	_, client := newRedis(t)
	var svc *Service
	src, calls := invalidatingSource(&svc)
	svc = newTestService(t, ServiceConfig{Source: src, Cache: NewCache(client, time.Minute)})
	ctx := context.Background()

	first, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, "old", first.Products[0].ID)

	second, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, "new", second.Products[0].ID)
	require.Equal(t, 2, *calls)

	third, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, "new", third.Products[0].ID)
	require.Equal(t, 2, *calls)
}

func TestServiceRefreshSkipsWriteAfterInvalidate(t *testing.T) {
	_, client := newRedis(t)
	var svc *Service
	src, _ := invalidatingSource(&svc)
	svc = newTestService(t, ServiceConfig{Source: src, Cache: NewCache(client, time.Minute)})
	ctx := context.Background()

	snap, err := svc.Refresh(ctx)
	require.NoError(t, err)
	require.Equal(t, "old", snap.Products[0].ID)

	_, ok, err := svc.cache.GetSnapshot(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestServiceRefreshReportsPrimaryErrors(t *testing.T) {
	_, client := newRedis(t)
	src := &countingSource{name: SourcePostgres, err: errors.New("down")}
	svc := newTestService(t, ServiceConfig{Source: src, Cache: NewCache(client, time.Minute)})

	_, err := svc.Refresh(context.Background())
	require.Error(t, err)

	src.err = nil
	src.snap = primaryFixture().snap
	snap, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, SourcePostgres, snap.Source)

	cached, ok, err := svc.cache.GetSnapshot(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, snap.Products, cached.Products)
}

func TestServiceLinkRoundTrip(t *testing.T) {
	svc := newTestService(t, ServiceConfig{DefaultPageSize: 9, MaxPageSize: 48})
	req := svc.ParseRequest(map[string][]string{"category": {"Salas"}, "page": {"2"}, "pageSize": {"9"}})
	require.Equal(t, "category=Salas&page=2", svc.Link(req).Encode())
	require.Equal(t, req, svc.ParseRequest(svc.Link(req)))
}

func TestSourceFuncWithoutLoader(t *testing.T) {
	_, err := SourceFunc{SourceName: "x"}.Snapshot(context.Background())
	require.ErrorIs(t, err, ErrSourceUnavailable)
}
