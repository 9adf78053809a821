package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/catalogo-muebles/internal/catalog"
	"github.com/noah-isme/catalogo-muebles/internal/pricing"
)

// ErrStoreUnavailable indicates the store has no database handle.
var ErrStoreUnavailable = errors.New("repo: catalog store unavailable")

// Querier is the subset of pgxpool.Pool used by CatalogStore.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// CatalogStore reads catalog snapshots from PostgreSQL.
type CatalogStore struct {
	db Querier
}

// NewCatalogStore constructs a CatalogStore backed by db.
func NewCatalogStore(db Querier) *CatalogStore {
	return &CatalogStore{db: db}
}

// Name implements catalog.DataSource.
func (s *CatalogStore) Name() string { return catalog.SourcePostgres }

// Snapshot implements catalog.DataSource. The four reads run concurrently;
// the first failure cancels the rest.
func (s *CatalogStore) Snapshot(ctx context.Context) (catalog.Snapshot, error) {
	if s == nil || s.db == nil {
		return catalog.Snapshot{}, ErrStoreUnavailable
	}
	var snap catalog.Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		products, err := s.Products(gctx)
		snap.Products = products
		return err
	})
	g.Go(func() error {
		fabrics, err := s.Fabrics(gctx)
		snap.Fabrics = fabrics
		return err
	})
	g.Go(func() error {
		providers, err := s.Providers(gctx)
		snap.Providers = providers
		return err
	})
	g.Go(func() error {
		rules, err := s.ActiveRules(gctx)
		snap.Rules = rules
		return err
	})
	if err := g.Wait(); err != nil {
		return catalog.Snapshot{}, err
	}
	snap.Source = catalog.SourcePostgres
	return snap.LinkProviders(), nil
}

const productsSQL = `SELECT p.id, p.slug, p.name, p.category, p.subtype, p.description,
       p.price_list, p.is_exhibition, p.image_url, p.provider_id, pr.name,
       inv.on_hand, inv.incoming, inv.lead_time_weeks, inv.notes,
       ARRAY(SELECT pf.fabric_id FROM product_fabrics pf WHERE pf.product_id = p.id ORDER BY pf.is_primary DESC, pf.position, pf.fabric_id),
       ARRAY(SELECT t.value FROM product_tags t WHERE t.product_id = p.id ORDER BY t.value)
FROM products p
LEFT JOIN providers pr ON pr.id = p.provider_id
LEFT JOIN inventory_snapshots inv ON inv.product_id = p.id
ORDER BY p.name ASC, p.id ASC`

// Products lists every product ordered by name.
func (s *CatalogStore) Products(ctx context.Context) ([]catalog.Product, error) {
	rows, err := s.db.Query(ctx, productsSQL)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	out := make([]catalog.Product, 0)
	for rows.Next() {
		var r productRow
		if err := rows.Scan(
			&r.ID, &r.Slug, &r.Name, &r.Category, &r.Subtype, &r.Description,
			&r.PriceList, &r.IsExhibition, &r.ImageURL, &r.ProviderID, &r.ProviderName,
			&r.OnHand, &r.Incoming, &r.LeadTimeWeeks, &r.InventoryNotes,
			&r.FabricIDs, &r.Tags,
		); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, r.toProduct())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return out, nil
}

// Fabrics lists every fabric ordered by name.
func (s *CatalogStore) Fabrics(ctx context.Context) ([]catalog.Fabric, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name, color_hex, description FROM fabrics ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query fabrics: %w", err)
	}
	defer rows.Close()

	out := make([]catalog.Fabric, 0)
	for rows.Next() {
		var (
			f    catalog.Fabric
			desc *string
		)
		if err := rows.Scan(&f.ID, &f.Name, &f.ColorHex, &desc); err != nil {
			return nil, fmt.Errorf("scan fabric: %w", err)
		}
		f.Description = deref(desc)
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fabrics: %w", err)
	}
	return out, nil
}

// Providers lists every provider ordered by name.
func (s *CatalogStore) Providers(ctx context.Context) ([]catalog.Provider, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name, contact_name, email, phone, lead_time_weeks, notes, rating
FROM providers ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query providers: %w", err)
	}
	defer rows.Close()

	out := make([]catalog.Provider, 0)
	for rows.Next() {
		var r providerRow
		if err := rows.Scan(&r.ID, &r.Name, &r.ContactName, &r.Email, &r.Phone, &r.LeadTimeWeeks, &r.Notes, &r.Rating); err != nil {
			return nil, fmt.Errorf("scan provider: %w", err)
		}
		out = append(out, r.toProvider())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate providers: %w", err)
	}
	return out, nil
}

// ActiveRules lists active catalog-wide rules. Product-scoped rules are excluded.
func (s *CatalogStore) ActiveRules(ctx context.Context) ([]pricing.DiscountRule, error) {
	rows, err := s.db.Query(ctx, `SELECT id, label, description, percentage, mode, apply_on, priority
FROM discount_rules
WHERE is_active AND product_id IS NULL
ORDER BY priority ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query discount rules: %w", err)
	}
	defer rows.Close()

	out := make([]pricing.DiscountRule, 0)
	for rows.Next() {
		var r ruleRow
		if err := rows.Scan(&r.ID, &r.Label, &r.Description, &r.Percentage, &r.Mode, &r.ApplyOn, &r.Priority); err != nil {
			return nil, fmt.Errorf("scan discount rule: %w", err)
		}
		out = append(out, r.toRule())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate discount rules: %w", err)
	}
	return out, nil
}

type productRow struct {
	ID             string
	Slug           *string
	Name           string
	Category       string
	Subtype        string
	Description    string
	PriceList      int64
	IsExhibition   bool
	ImageURL       *string
	ProviderID     *string
	ProviderName   *string
	OnHand         *int32
	Incoming       *int32
	LeadTimeWeeks  *int32
	InventoryNotes *string
	FabricIDs      []string
	Tags           []string
}

func (r productRow) toProduct() catalog.Product {
	p := catalog.Product{
		ID:           r.ID,
		Slug:         deref(r.Slug),
		Name:         r.Name,
		Category:     r.Category,
		Subtype:      r.Subtype,
		Description:  r.Description,
		PriceList:    r.PriceList,
		IsExhibition: r.IsExhibition,
		ImageURL:     deref(r.ImageURL),
		Fabrics:      nonNil(r.FabricIDs),
		Tags:         nonNil(r.Tags),
		ProviderID:   deref(r.ProviderID),
	}
	if r.ProviderID != nil && r.ProviderName != nil {
		p.Provider = &catalog.Provider{ID: *r.ProviderID, Name: *r.ProviderName}
	}
	if r.OnHand != nil {
		p.Inventory = &catalog.Inventory{
			OnHand:        int(*r.OnHand),
			Incoming:      intPtr(r.Incoming),
			LeadTimeWeeks: intPtr(r.LeadTimeWeeks),
			Notes:         deref(r.InventoryNotes),
		}
	}
	return p
}

type providerRow struct {
	ID            string
	Name          string
	ContactName   *string
	Email         *string
	Phone         *string
	LeadTimeWeeks *int32
	Notes         *string
	Rating        *float64
}

func (r providerRow) toProvider() catalog.Provider {
	return catalog.Provider{
		ID:            r.ID,
		Name:          r.Name,
		ContactName:   deref(r.ContactName),
		Email:         deref(r.Email),
		Phone:         deref(r.Phone),
		LeadTimeWeeks: intPtr(r.LeadTimeWeeks),
		Notes:         deref(r.Notes),
		Rating:        r.Rating,
	}
}

type ruleRow struct {
	ID          string
	Label       string
	Description *string
	Percentage  float64
	Mode        string
	ApplyOn     string
	Priority    int32
}

// toRule maps the upper-case enum values stored in the database.
func (r ruleRow) toRule() pricing.DiscountRule {
	return pricing.DiscountRule{
		ID:          r.ID,
		Label:       r.Label,
		Description: deref(r.Description),
		Percentage:  r.Percentage,
		Mode:        pricing.Mode(strings.ToLower(strings.TrimSpace(r.Mode))),
		ApplyOn:     pricing.ApplyOn(strings.ToLower(strings.TrimSpace(r.ApplyOn))),
		Priority:    int(r.Priority),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intPtr(v *int32) *int {
	if v == nil {
		return nil
	}
	n := int(*v)
	return &n
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
