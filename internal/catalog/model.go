package catalog

import (
	"math"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type ProductStatus string

const (
	StatusDraft     ProductStatus = "DRAFT"
	StatusPublished ProductStatus = "PUBLISHED"
)

const (
	DefaultLimit  = 20
	MaxLimit      = 50
	FeaturedLimit = 12

	// MaxPage keeps (page-1)*limit within int for any accepted limit.
	MaxPage = math.MaxInt / MaxLimit
)

// sortColumns содержит разрешённые колонки сортировки.
var sortColumns = map[string]string{
	"created_at": "p.created_at",
	"price":      "p.price",
	"title":      "p.title",
}

type Category struct {
	ID          uuid.UUID  `json:"id"`
	ParentID    *uuid.UUID `json:"parent_id"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	Description *string    `json:"description"`
	IconURL     *string    `json:"icon_url"`
	SortOrder   int        `json:"sort_order"`
}

// ProductSummary is a catalog listing row with its primary image.
type ProductSummary struct {
	ID            uuid.UUID           `json:"id"`
	Title         string              `json:"title"`
	Slug          string              `json:"slug"`
	ShortDesc     *string             `json:"short_desc"`
	Price         decimal.Decimal     `json:"price"`
	ComparePrice  decimal.NullDecimal `json:"compare_price"`
	StockQuantity int                 `json:"stock_quantity"`
	IsFeatured    bool                `json:"is_featured"`
	IsExclusive   bool                `json:"is_exclusive"`
	Attributes    map[string]any      `json:"attributes"`
	CategoryName  *string             `json:"category_name"`
	CategorySlug  *string             `json:"category_slug"`
	ImageURL      *string             `json:"image_url"`
	ImageAlt      *string             `json:"image_alt"`
	CreatedAt     time.Time           `json:"created_at"`
}

type Image struct {
	ID        uuid.UUID `json:"id"`
	URL       string    `json:"url"`
	AltText   *string   `json:"alt_text"`
	Position  int       `json:"position"`
	IsPrimary bool      `json:"is_primary"`
}

// Product is the full product page: summary fields, description and gallery.
type Product struct {
	ProductSummary
	CategoryID  *uuid.UUID    `json:"category_id"`
	Description *string       `json:"description"`
	Status      ProductStatus `json:"status"`
	UpdatedAt   time.Time     `json:"updated_at"`
	Images      []Image       `json:"images"`
}

// ListFilter описывает параметры выборки каталога.
type ListFilter struct {
	Category  string
	Search    string
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
	Featured  bool
	Exclusive bool
	Sort      string
	Order     string
	Page      int
	Limit     int
}

// Normalize clamps paging and replaces unknown sort keys with defaults.
func (f ListFilter) Normalize() ListFilter {
	if _, ok := sortColumns[f.Sort]; !ok {
		f.Sort = "created_at"
	}
	if f.Order != "asc" {
		f.Order = "desc"
	}
	switch {
	case f.Page < 1:
		f.Page = 1
	case f.Page > MaxPage:
		f.Page = MaxPage
	}
	switch {
	case f.Limit < 1:
		f.Limit = 1
	case f.Limit > MaxLimit:
		f.Limit = MaxLimit
	}
	return f
}

func (f ListFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

type ProductPage struct {
	Products   []ProductSummary `json:"products"`
	Pagination Pagination       `json:"pagination"`
}

func newPagination(f ListFilter, total int) Pagination {
	pages := 0
	if total > 0 {
		pages = (total + f.Limit - 1) / f.Limit
	}
	return Pagination{Page: f.Page, Limit: f.Limit, Total: total, TotalPages: pages}
}
