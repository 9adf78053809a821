package repo

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/catalogo-muebles/internal/catalog"
	"github.com/noah-isme/catalogo-muebles/internal/pricing"
)

type fakeRows struct {
	data [][]any
	pos  int
	err  error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Values() ([]any, error) { return r.data[r.pos-1], nil }

func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.pos-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: %d destinations for %d columns", len(dest), len(row))
	}
	for i, d := range dest {
		target := reflect.ValueOf(d).Elem()
		if row[i] == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		target.Set(reflect.ValueOf(row[i]))
	}
	return nil
}

type fakeDB struct {
	mu      sync.Mutex
	results map[string][][]any
	fail    string
}

func (f *fakeDB) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for table, rows := range f.results {
		if strings.Contains(sql, "FROM "+table+" ") || strings.Contains(sql, "FROM "+table+"\n") {
			if table == f.fail {
				return nil, errors.New("relation does not exist")
			}
			return &fakeRows{data: rows}, nil
		}
	}
	return &fakeRows{}, nil
}

func str(s string) *string { return &s }

func i32(v int32) *int32 { return &v }

func TestCatalogStoreSnapshot(t *testing.T) {
	db := &fakeDB{results: map[string][][]any{
		"products p": {
			{"p1", str("sofa-roma"), "Sofá Roma", "Salas", "Sofá", "Tres plazas", int64(34999), true, str("/img.jpg"), str("prov-1"), str("Norte"),
				i32(2), nil, i32(4), nil, []string{"f2", "f1"}, []string{"nuevo"}},
			{"p2", nil, "Banca", "Recibidor", "Banca", "Parota", int64(6499), false, nil, nil, nil,
				nil, nil, nil, nil, []string(nil), []string(nil)},
		},
		"fabrics": {
			{"f1", "Lino", "#D8C7A6", nil},
			{"f2", "Bouclé", "#EFE8DC", str("Rizo cerrado")},
		},
		"providers": {
			{"prov-1", "Norte", str("Andrés"), nil, nil, i32(5), nil, nil},
		},
		"discount_rules": {
			{"d20", "20%", nil, 0.2, "DISCOUNT", "BASE", int32(1)},
			{"m10", "Markup", str("Flete"), 0.1, "MARKUP", "RUNNING", int32(2)},
		},
	}}

	snap, err := NewCatalogStore(db).Snapshot(context.Background())
	require.NoError(t, err)
	require.Equal(t, catalog.SourcePostgres, snap.Source)

	require.Len(t, snap.Products, 2)
	sofa := snap.Products[0]
	require.Equal(t, "sofa-roma", sofa.Slug)
	require.Equal(t, []string{"f2", "f1"}, sofa.Fabrics)
	require.NotNil(t, sofa.Provider)
	require.Equal(t, "Norte", sofa.Provider.Name)
	require.Equal(t, "Andrés", sofa.Provider.ContactName)
	require.NotNil(t, sofa.Inventory)
	require.Equal(t, 2, sofa.Inventory.OnHand)
	require.Nil(t, sofa.Inventory.Incoming)
	require.Equal(t, 4, *sofa.Inventory.LeadTimeWeeks)

	banca := snap.Products[1]
	require.Empty(t, banca.Slug)
	require.NotNil(t, banca.Fabrics)
	require.NotNil(t, banca.Tags)
	require.Nil(t, banca.Inventory)
	require.Empty(t, banca.ProviderID)
	require.Nil(t, banca.Provider)

	require.Equal(t, "Rizo cerrado", snap.Fabrics[1].Description)
	require.Equal(t, 5, *snap.Providers[0].LeadTimeWeeks)

	require.Equal(t, []pricing.DiscountRule{
		{ID: "d20", Label: "20%", Percentage: 0.2, Mode: pricing.ModeDiscount, ApplyOn: pricing.ApplyOnBase, Priority: 1},
		{ID: "m10", Label: "Markup", Description: "Flete", Percentage: 0.1, Mode: pricing.ModeMarkup, ApplyOn: pricing.ApplyOnRunning, Priority: 2},
	}, snap.Rules)
}

func TestCatalogStoreSnapshotPropagatesErrors(t *testing.T) {
	db := &fakeDB{results: map[string][][]any{"fabrics": {}, "providers": {}, "discount_rules": {}, "products p": {}}, fail: "fabrics"}
	_, err := NewCatalogStore(db).Snapshot(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "query fabrics")
}

func TestCatalogStoreWithoutDB(t *testing.T) {
	_, err := NewCatalogStore(nil).Snapshot(context.Background())
	require.ErrorIs(t, err, ErrStoreUnavailable)
}
