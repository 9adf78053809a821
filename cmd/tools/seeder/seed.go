package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/noah-isme/catalogo-muebles/internal/catalog"
	"github.com/noah-isme/catalogo-muebles/internal/pricing"
)

const maxSlugLen = 60

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Slugify lowercases value, strips accents and joins alphanumeric runs with
// dashes. The result is at most 60 bytes and may be empty.
func Slugify(value string) string {
	stripped, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), strings.ToLower(value))
	if err != nil {
		stripped = strings.ToLower(value)
	}
	var b strings.Builder
	pendingDash := false
	for _, r := range stripped {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	slug := b.String()
	if len(slug) > maxSlugLen {
		slug = strings.TrimRight(slug[:maxSlugLen], "-")
	}
	return slug
}

func productSlug(p catalog.Product) string {
	if p.Slug != "" {
		return p.Slug
	}
	if s := Slugify(p.Name); s != "" {
		return s
	}
	return p.ID
}

var clearStatements = []string{
	"DELETE FROM product_fabrics",
	"DELETE FROM inventory_snapshots",
	"DELETE FROM product_tags",
	"DELETE FROM discount_rules",
	"DELETE FROM products",
	"DELETE FROM providers",
	"DELETE FROM fabrics",
}

// seedCatalog replaces the catalog tables with snap.
func seedCatalog(ctx context.Context, db execer, snap catalog.Snapshot) error {
	for _, stmt := range clearStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clear catalog: %w", err)
		}
	}

	for _, f := range snap.Fabrics {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO fabrics (id, name, color_hex, description) VALUES ($1, $2, $3, $4)`,
			f.ID, f.Name, f.ColorHex, nullString(f.Description)); err != nil {
			return fmt.Errorf("seed fabric %s: %w", f.ID, err)
		}
	}

	for _, p := range snap.Providers {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO providers (id, name, contact_name, email, phone, lead_time_weeks, notes, rating)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			p.ID, p.Name, nullString(p.ContactName), nullString(p.Email), nullString(p.Phone),
			nullInt(p.LeadTimeWeeks), nullString(p.Notes), nullFloat(p.Rating)); err != nil {
			return fmt.Errorf("seed provider %s: %w", p.ID, err)
		}
	}

	for _, p := range snap.Products {
		if err := seedProduct(ctx, db, p); err != nil {
			return err
		}
	}

	for _, r := range snap.Rules {
		r = pricing.Normalize(r)
		if _, err := db.ExecContext(ctx,
			`INSERT INTO discount_rules (id, label, description, percentage, mode, apply_on, priority, is_active)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)`,
			r.ID, r.Label, nullString(r.Description), r.Percentage,
			strings.ToUpper(string(r.Mode)), strings.ToUpper(string(r.ApplyOn)), r.Priority); err != nil {
			return fmt.Errorf("seed discount rule %s: %w", r.ID, err)
		}
	}
	return nil
}

func seedProduct(ctx context.Context, db execer, p catalog.Product) error {
	if _, err := db.ExecContext(ctx,
		`INSERT INTO products (id, slug, name, category, subtype, description, price_list, is_exhibition, image_url, provider_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, productSlug(p), p.Name, p.Category, p.Subtype, p.Description, p.PriceList,
		p.IsExhibition, nullString(p.ImageURL), nullString(p.ProviderID)); err != nil {
		return fmt.Errorf("seed product %s: %w", p.ID, err)
	}

	if inv := p.Inventory; inv != nil {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO inventory_snapshots (product_id, on_hand, incoming, lead_time_weeks, notes)
			 VALUES ($1, $2, $3, $4, $5)`,
			p.ID, inv.OnHand, nullInt(inv.Incoming), nullInt(inv.LeadTimeWeeks), nullString(inv.Notes)); err != nil {
			return fmt.Errorf("seed inventory %s: %w", p.ID, err)
		}
	}

	for _, tag := range p.Tags {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO product_tags (product_id, value) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			p.ID, tag); err != nil {
			return fmt.Errorf("seed tag %s/%s: %w", p.ID, tag, err)
		}
	}

	for i, fabricID := range p.Fabrics {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO product_fabrics (product_id, fabric_id, is_primary, position) VALUES ($1, $2, $3, $4)`,
			p.ID, fabricID, i == 0, i); err != nil {
			return fmt.Errorf("seed fabric link %s/%s: %w", p.ID, fabricID, err)
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
