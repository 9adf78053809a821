package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/catalogo-muebles/internal/common"
	"github.com/noah-isme/catalogo-muebles/internal/obs"
	"github.com/noah-isme/catalogo-muebles/internal/pricing"
	"github.com/noah-isme/catalogo-muebles/internal/resilience"
)

// ErrProductNotFound is wrapped by the 404 returned from Product.
var ErrProductNotFound = errors.New("catalog: product not found")

// Service answers catalog reads from a primary data source, falling back to
// a static dataset whenever the primary cannot be used.
type Service struct {
	source          DataSource
	fallback        DataSource
	cache           *Cache
	breaker         *resilience.Breaker
	logger          zerolog.Logger
	timeout         time.Duration
	defaultPageSize int
	maxPageSize     int
	maxPriceDefault pricing.Money
}

// ServiceConfig groups Service dependencies. A nil Source serves the fallback
// dataset directly.
type ServiceConfig struct {
	Source          DataSource
	Fallback        DataSource
	Cache           *Cache
	Breaker         *resilience.Breaker
	Logger          zerolog.Logger
	Timeout         time.Duration
	DefaultPageSize int
	MaxPageSize     int
	MaxPriceDefault pricing.Money
}

// Request is a parsed catalog query.
type Request struct {
	Filters  Filters
	Page     int
	PageSize int
}

// PricedProduct is a product together with its derived pricing.
type PricedProduct struct {
	Product
	Breakdown      pricing.Breakdown `json:"breakdown"`
	EffectivePrice pricing.Money     `json:"effectivePrice"`
	DisplayPrice   string            `json:"displayPrice"`
	DisplayList    string            `json:"displayPriceList"`
}

// Payload is the full catalog page consumed by the storefront.
type Payload struct {
	Products      []PricedProduct        `json:"products"`
	Total         int                    `json:"total"`
	Page          int                    `json:"page"`
	PageSize      int                    `json:"pageSize"`
	PriceRange    PriceRange             `json:"priceRange"`
	Categories    []string               `json:"categories"`
	Subtypes      []string               `json:"subtypes"`
	Fabrics       []Fabric               `json:"fabrics"`
	Providers     []Provider             `json:"providers"`
	DiscountRules []pricing.DiscountRule `json:"discountRules"`
	Source        string                 `json:"source"`
}

// ListResult is the lean listing used by the products endpoint.
type ListResult struct {
	Items      []PricedProduct
	Total      int
	Page       int
	PageSize   int
	PriceRange PriceRange
}

// ProductDetail is a single product with its fabrics and provider resolved.
type ProductDetail struct {
	PricedProduct
	FabricDetails []Fabric               `json:"fabricDetails"`
	Provider      *Provider              `json:"provider,omitempty"`
	DiscountRules []pricing.DiscountRule `json:"discountRules"`
	Source        string                 `json:"source"`
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	fallback := cfg.Fallback
	if fallback == nil {
		fallback = NewStaticSource()
	}
	defaultSize := cfg.DefaultPageSize
	if defaultSize < 1 {
		defaultSize = 9
	}
	maxSize := cfg.MaxPageSize
	if maxSize < 1 {
		maxSize = 48
	}
	if defaultSize > maxSize {
		return nil, fmt.Errorf("catalog: default page size %d exceeds max %d", defaultSize, maxSize)
	}
	maxPrice := cfg.MaxPriceDefault
	if maxPrice <= 0 {
		maxPrice = 100000
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Service{
		source:          cfg.Source,
		fallback:        fallback,
		cache:           cfg.Cache,
		breaker:         cfg.Breaker,
		logger:          cfg.Logger,
		timeout:         timeout,
		defaultPageSize: defaultSize,
		maxPageSize:     maxSize,
		maxPriceDefault: maxPrice,
	}, nil
}

// DefaultPageSize is the page size applied when a request names none.
func (s *Service) DefaultPageSize() int { return s.defaultPageSize }

// ParseRequest normalises raw query values into a Request.
func (s *Service) ParseRequest(values url.Values) Request {
	page, size := ParsePagination(values, s.defaultPageSize, s.maxPageSize)
	return Request{Filters: ParseFilters(values), Page: page, PageSize: size}
}

// Link renders req back into canonical query values.
func (s *Service) Link(req Request) url.Values {
	return BuildParams(req.Filters, req.Page, req.PageSize, s.defaultPageSize)
}

// Snapshot returns the current catalog data. It only fails when the fallback
// source itself fails.
func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	ctx, span := obs.StartSpan(ctx, "catalog", "catalog.snapshot")
	defer span.End()

	if s.source == nil {
		return s.loadFallback(ctx)
	}

	key, snap, ok := s.cached(ctx)
	if ok {
		return snap, nil
	}

	snap, err := s.guardedLoad(ctx)
	if errors.Is(err, resilience.ErrOpenCircuit) {
		return s.fallbackFor(ctx, "circuit_open", err)
	}
	if err != nil {
		return s.fallbackFor(ctx, "source_error", err)
	}
	s.store(ctx, key, snap)
	return snap, nil
}

// Refresh reloads the primary source, bypassing the cache, and stores the
// result. Unlike Snapshot it reports primary failures instead of falling back.
func (s *Service) Refresh(ctx context.Context) (Snapshot, error) {
	if s.source == nil {
		return s.loadFallback(ctx)
	}
	key, err := s.cache.SnapshotKey(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("resolve catalog cache key: %w", err)
	}
	snap, err := s.guardedLoad(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("refresh catalog: %w", err)
	}
	stored, err := s.cache.PutSnapshotAt(ctx, key, snap)
	if err != nil {
		return snap, fmt.Errorf("store catalog snapshot: %w", err)
	}
	if !stored && s.cache.Enabled() {
		s.logger.Info().Msg("catalog_cache_write_skipped")
	}
	return snap, nil
}

// Invalidate drops cached snapshots so the next read hits the primary source.
func (s *Service) Invalidate(ctx context.Context) error {
	if !s.cache.Enabled() {
		return nil
	}
	gen, err := s.cache.Invalidate(ctx)
	if err != nil {
		return fmt.Errorf("invalidate catalog cache: %w", err)
	}
	s.logger.Info().Str("generation", gen).Msg("catalog_cache_invalidated")
	return nil
}

// Catalog builds the full catalog payload for req.
func (s *Service) Catalog(ctx context.Context, req Request) (Payload, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return Payload{}, fmt.Errorf("catalog payload: %w", err)
	}
	req = s.normalize(req)
	result := Query(snap.Products, req.Filters, req.Page, req.PageSize, snap.Rules)
	return Payload{
		Products:      priceAll(result.Items, snap.Rules),
		Total:         result.Total,
		Page:          req.Page,
		PageSize:      req.PageSize,
		PriceRange:    DiscoverPriceRange(snap.Products, req.Filters, snap.Rules, s.maxPriceDefault),
		Categories:    Categories(snap.Products),
		Subtypes:      Subtypes(snap.Products),
		Fabrics:       nonNilFabrics(snap.Fabrics),
		Providers:     nonNilProviders(snap.Providers),
		DiscountRules: snap.Rules,
		Source:        snap.Source,
	}, nil
}

// List returns one page of priced products without the catalog side data.
func (s *Service) List(ctx context.Context, req Request) (ListResult, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return ListResult{}, fmt.Errorf("list products: %w", err)
	}
	req = s.normalize(req)
	result := Query(snap.Products, req.Filters, req.Page, req.PageSize, snap.Rules)
	return ListResult{
		Items:      priceAll(result.Items, snap.Rules),
		Total:      result.Total,
		Page:       req.Page,
		PageSize:   req.PageSize,
		PriceRange: DiscoverPriceRange(snap.Products, req.Filters, snap.Rules, s.maxPriceDefault),
	}, nil
}

// Product looks a product up by id or slug.
func (s *Service) Product(ctx context.Context, identifier string) (ProductDetail, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return ProductDetail{}, common.Invalid("identifier", "identifier is required", nil)
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return ProductDetail{}, fmt.Errorf("get product: %w", err)
	}
	product, ok := snap.FindProduct(identifier)
	if !ok {
		return ProductDetail{}, common.NotFound("product not found", fmt.Errorf("%w: %s", ErrProductNotFound, identifier))
	}
	return ProductDetail{
		PricedProduct: price(product, snap.Rules),
		FabricDetails: snap.FabricsFor(product),
		Provider:      snap.ProviderFor(product),
		DiscountRules: snap.Rules,
		Source:        snap.Source,
	}, nil
}

// Fabrics lists every fabric.
func (s *Service) Fabrics(ctx context.Context) ([]Fabric, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("list fabrics: %w", err)
	}
	return nonNilFabrics(snap.Fabrics), nil
}

// Providers lists every provider.
func (s *Service) Providers(ctx context.Context) ([]Provider, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	return nonNilProviders(snap.Providers), nil
}

// Rules returns the active rules in application order.
func (s *Service) Rules(ctx context.Context) ([]pricing.DiscountRule, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("list discount rules: %w", err)
	}
	return snap.Rules, nil
}

// Quote prices base under rules, or under the active rules when rules is nil.
func (s *Service) Quote(ctx context.Context, base pricing.Money, rules []pricing.DiscountRule) (pricing.Breakdown, error) {
	if rules == nil {
		active, err := s.Rules(ctx)
		if err != nil {
			return pricing.Breakdown{}, err
		}
		rules = active
	}
	return pricing.Calculate(base, rules), nil
}

func (s *Service) normalize(req Request) Request {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 {
		req.PageSize = s.defaultPageSize
	}
	if req.PageSize > s.maxPageSize {
		req.PageSize = s.maxPageSize
	}
	return req
}

// cached looks up the current generation. The returned key is where a fresh
// load should be written back; it is empty when the cache is unusable.
func (s *Service) cached(ctx context.Context) (string, Snapshot, bool) {
	if !s.cache.Enabled() {
		return "", Snapshot{}, false
	}
	key, err := s.cache.SnapshotKey(ctx)
	if err != nil {
		obs.IncCounter(obs.CatalogCacheTotal, "error")
		s.logger.Warn().Err(err).Msg("catalog_cache_read_failed")
		return "", Snapshot{}, false
	}
	var snap Snapshot
	ok, err := s.cache.GetJSON(ctx, key, &snap)
	switch {
	case err != nil:
		obs.IncCounter(obs.CatalogCacheTotal, "error")
		s.logger.Warn().Err(err).Msg("catalog_cache_read_failed")
		return key, Snapshot{}, false
	case !ok:
		obs.IncCounter(obs.CatalogCacheTotal, "miss")
		return key, Snapshot{}, false
	}
	obs.IncCounter(obs.CatalogCacheTotal, "hit")
	return key, snap, true
}

func (s *Service) store(ctx context.Context, key string, snap Snapshot) {
	stored, err := s.cache.PutSnapshotAt(ctx, key, snap)
	if err != nil {
		s.logger.Warn().Err(err).Msg("catalog_cache_write_failed")
		return
	}
	if !stored && key != "" {
		obs.IncCounter(obs.CatalogCacheTotal, "stale")
		s.logger.Info().Msg("catalog_cache_write_skipped")
	}
}

func (s *Service) guardedLoad(ctx context.Context) (Snapshot, error) {
	if s.breaker == nil {
		return s.loadPrimary(ctx)
	}
	var snap Snapshot
	err := s.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		snap, err = s.loadPrimary(ctx)
		return err
	})
	return snap, err
}

func (s *Service) loadPrimary(ctx context.Context) (Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	name := s.source.Name()
	start := time.Now()
	snap, err := s.source.Snapshot(ctx)
	obs.ObserveMillis(obs.CatalogLoadLatency, time.Since(start), name)
	if err != nil {
		obs.IncCounter(obs.CatalogSourceLoads, name, "error")
		return Snapshot{}, err
	}
	obs.IncCounter(obs.CatalogSourceLoads, name, "ok")
	return prepare(snap, name), nil
}

func (s *Service) loadFallback(ctx context.Context) (Snapshot, error) {
	name := s.fallback.Name()
	snap, err := s.fallback.Snapshot(ctx)
	if err != nil {
		obs.IncCounter(obs.CatalogSourceLoads, name, "error")
		return Snapshot{}, fmt.Errorf("load %s catalog: %w", name, err)
	}
	obs.IncCounter(obs.CatalogSourceLoads, name, "ok")
	return prepare(snap, name), nil
}

func (s *Service) fallbackFor(ctx context.Context, reason string, cause error) (Snapshot, error) {
	obs.IncCounter(obs.CatalogFallbackTotal, reason)
	s.logger.Warn().
		Err(cause).
		Str("source", s.source.Name()).
		Str("fallback", s.fallback.Name()).
		Str("reason", reason).
		Msg("catalog_fallback")
	return s.loadFallback(ctx)
}

// prepare orders rules by priority, substitutes the default ladder when none
// are active, links providers and stamps the source name.
func prepare(snap Snapshot, source string) Snapshot {
	snap = snap.LinkProviders()
	rules := pricing.SortByPriority(snap.Rules)
	if len(rules) == 0 {
		rules = pricing.DefaultRules()
	}
	for i := range rules {
		rules[i] = pricing.Normalize(rules[i])
	}
	snap.Rules = rules
	snap.Source = source
	if snap.Products == nil {
		snap.Products = []Product{}
	}
	for i := range snap.Products {
		if snap.Products[i].Fabrics == nil {
			snap.Products[i].Fabrics = []string{}
		}
		if snap.Products[i].Tags == nil {
			snap.Products[i].Tags = []string{}
		}
	}
	return snap
}

func price(p Product, rules []pricing.DiscountRule) PricedProduct {
	b := pricing.Calculate(p.PriceList, rules)
	effective := pricing.EffectivePrice(b)
	return PricedProduct{
		Product:        p,
		Breakdown:      b,
		EffectivePrice: effective,
		DisplayPrice:   pricing.FormatCurrency(effective),
		DisplayList:    pricing.FormatCurrency(p.PriceList),
	}
}

func priceAll(products []Product, rules []pricing.DiscountRule) []PricedProduct {
	out := make([]PricedProduct, 0, len(products))
	for _, p := range products {
		out = append(out, price(p, rules))
	}
	return out
}

func nonNilFabrics(in []Fabric) []Fabric {
	if in == nil {
		return []Fabric{}
	}
	return in
}

func nonNilProviders(in []Provider) []Provider {
	if in == nil {
		return []Provider{}
	}
	return in
}

// Taxonomy returns the distinct categories and subtypes across the whole catalog.
func (s *Service) Taxonomy(ctx context.Context) (categories, subtypes []string, err error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list taxonomy: %w", err)
	}
	return Categories(snap.Products), Subtypes(snap.Products), nil
}
