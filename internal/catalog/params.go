package catalog

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/noah-isme/catalogo-muebles/internal/common"
)

// Query parameter names shared by the parser and BuildParams.
const (
	ParamQuery          = "query"
	ParamCategory       = "category"
	ParamSubtype        = "subtype"
	ParamProviderID     = "providerId"
	ParamOnlyExhibition = "onlyExhibition"
	ParamMinPrice       = "minPrice"
	ParamMaxPrice       = "maxPrice"
	ParamPage           = "page"
	ParamPageSize       = "pageSize"
)

// ParseFilters reads catalog filters from query values. Only the first value of
// a repeated key counts; malformed numbers are dropped rather than rejected.
// Category, subtype and provider are kept verbatim since they match exactly.
func ParseFilters(values url.Values) Filters {
	var f Filters
	f.Query = strings.TrimSpace(first(values, ParamQuery))
	f.Category = first(values, ParamCategory)
	f.Subtype = first(values, ParamSubtype)
	f.ProviderID = first(values, ParamProviderID)
	f.OnlyExhibition = first(values, ParamOnlyExhibition) == "true"
	if v, ok := common.ParseFinite(first(values, ParamMinPrice)); ok {
		f.MinPrice = &v
	}
	if v, ok := common.ParseFinite(first(values, ParamMaxPrice)); ok {
		f.MaxPrice = &v
	}
	return f
}

// ParsePagination reads page and pageSize. Missing, zero or non-numeric values
// fall back to page 1 and defaultSize; page is at least 1 and pageSize is
// clamped to [1, maxSize].
func ParsePagination(values url.Values, defaultSize, maxSize int) (page, pageSize int) {
	page = numberOr(first(values, ParamPage), 1)
	if page < 1 {
		page = 1
	}
	pageSize = numberOr(first(values, ParamPageSize), defaultSize)
	if pageSize > maxSize {
		pageSize = maxSize
	}
	if pageSize < 1 {
		pageSize = 1
	}
	return page, pageSize
}

// BuildParams is the inverse of ParseFilters and ParsePagination. Page 1 and
// the default page size are omitted to keep shared links short.
func BuildParams(f Filters, page, pageSize, defaultSize int) url.Values {
	values := url.Values{}
	setIf(values, ParamQuery, f.Query)
	setIf(values, ParamCategory, f.Category)
	setIf(values, ParamSubtype, f.Subtype)
	setIf(values, ParamProviderID, f.ProviderID)
	if f.OnlyExhibition {
		values.Set(ParamOnlyExhibition, "true")
	}
	if f.MinPrice != nil && !math.IsNaN(*f.MinPrice) {
		values.Set(ParamMinPrice, strconv.FormatFloat(*f.MinPrice, 'f', -1, 64))
	}
	if f.MaxPrice != nil && !math.IsNaN(*f.MaxPrice) {
		values.Set(ParamMaxPrice, strconv.FormatFloat(*f.MaxPrice, 'f', -1, 64))
	}
	if page > 1 {
		values.Set(ParamPage, strconv.Itoa(page))
	}
	if pageSize != defaultSize {
		values.Set(ParamPageSize, strconv.Itoa(pageSize))
	}
	return values
}

func first(values url.Values, key string) string {
	v, ok := values[key]
	if !ok || len(v) == 0 {
		return ""
	}
	return v[0]
}

// numberOr truncates a numeric string toward zero; unparseable input and zero
// both yield def.
func numberOr(raw string, def int) int {
	v, ok := common.ParseFinite(raw)
	if !ok {
		return def
	}
	if v > math.MaxInt32 {
		v = math.MaxInt32
	}
	if v < math.MinInt32 {
		v = math.MinInt32
	}
	n := int(v)
	if n == 0 {
		return def
	}
	return n
}

func setIf(values url.Values, key, value string) {
	if value != "" {
		values.Set(key, value)
	}
}
