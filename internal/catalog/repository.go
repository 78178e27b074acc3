package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrProductNotFound = errors.New("product not found")

type Repository interface {
	ListProducts(ctx context.Context, f ListFilter) ([]ProductSummary, int, error)
	ListFeatured(ctx context.Context, limit int) ([]ProductSummary, error)
	GetProductBySlug(ctx context.Context, slug string) (*Product, error)
	ListCategories(ctx context.Context) ([]Category, error)
}

type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type postgresRepository struct {
	db DB
}

func NewRepository(db DB) Repository {
	return &postgresRepository{db: db}
}

const selectSummary = `
	SELECT p.id, p.title, p.slug, p.short_desc, p.price, p.compare_price,
	       p.stock_quantity, p.is_featured, p.is_exclusive, p.attributes, p.created_at,
	       c.name, c.slug, pi.url, pi.alt_text
	FROM products p
	LEFT JOIN categories c ON c.id = p.category_id
	LEFT JOIN product_images pi ON pi.product_id = p.id AND pi.is_primary = TRUE
`

func scanSummary(row pgx.Row) (ProductSummary, error) {
	var p ProductSummary
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Slug,
		&p.ShortDesc,
		&p.Price,
		&p.ComparePrice,
		&p.StockQuantity,
		&p.IsFeatured,
		&p.IsExclusive,
		&p.Attributes,
		&p.CreatedAt,
		&p.CategoryName,
		&p.CategorySlug,
		&p.ImageURL,
		&p.ImageAlt,
	)
	return p, err
}

// buildWhere собирает условия фильтра с позиционными параметрами.
func buildWhere(f ListFilter) (string, []any) {
	conditions := []string{"p.status = 'PUBLISHED'"}
	args := make([]any, 0, 4)

	add := func(cond string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if f.Category != "" {
		add("c.slug = $%d", f.Category)
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(p.title ILIKE $%d OR p.description ILIKE $%d)", n, n))
	}
	if f.MinPrice != nil {
		add("p.price >= $%d", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		add("p.price <= $%d", *f.MaxPrice)
	}
	if f.Featured {
		conditions = append(conditions, "p.is_featured = TRUE")
	}
	if f.Exclusive {
		conditions = append(conditions, "p.is_exclusive = TRUE")
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}

// ListProducts returns one page of published products and the total match count.
// f must already be normalized.
func (r *postgresRepository) ListProducts(ctx context.Context, f ListFilter) ([]ProductSummary, int, error) {
	where, args := buildWhere(f)

	countQuery := `
		SELECT COUNT(*) FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
	` + where

	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repository: failed to count products: %w", err)
	}

	orderBy := fmt.Sprintf(" ORDER BY %s %s", sortColumns[f.Sort], strings.ToUpper(f.Order))
	paging := fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, f.Limit, f.Offset())

	rows, err := r.db.Query(ctx, selectSummary+where+orderBy+paging, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("repository: failed to query products: %w", err)
	}
	defer rows.Close()

	products, err := collectSummaries(rows)
	if err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

func (r *postgresRepository) ListFeatured(ctx context.Context, limit int) ([]ProductSummary, error) {
	query := selectSummary + `
		WHERE p.status = 'PUBLISHED' AND p.is_featured = TRUE
		ORDER BY p.created_at DESC
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query featured products: %w", err)
	}
	defer rows.Close()

	return collectSummaries(rows)
}

func collectSummaries(rows pgx.Rows) ([]ProductSummary, error) {
	products := make([]ProductSummary, 0)
	for rows.Next() {
		p, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating products: %w", err)
	}
	return products, nil
}

func (r *postgresRepository) GetProductBySlug(ctx context.Context, slug string) (*Product, error) {
	query := `
		SELECT p.id, p.title, p.slug, p.short_desc, p.price, p.compare_price,
		       p.stock_quantity, p.is_featured, p.is_exclusive, p.attributes, p.created_at,
		       c.name, c.slug, p.category_id, p.description, p.status, p.updated_at
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.slug = $1 AND p.status = 'PUBLISHED'
	`

	var p Product
	err := r.db.QueryRow(ctx, query, slug).Scan(
		&p.ID,
		&p.Title,
		&p.Slug,
		&p.ShortDesc,
		&p.Price,
		&p.ComparePrice,
		&p.StockQuantity,
		&p.IsFeatured,
		&p.IsExclusive,
		&p.Attributes,
		&p.CreatedAt,
		&p.CategoryName,
		&p.CategorySlug,
		&p.CategoryID,
		&p.Description,
		&p.Status,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("repository: failed to select product by slug %q: %w", slug, err)
	}

	images, err := r.listImages(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.Images = images
	for _, img := range images {
		if img.IsPrimary {
			url, alt := img.URL, img.AltText
			p.ImageURL, p.ImageAlt = &url, alt
			break
		}
	}

	return &p, nil
}

func (r *postgresRepository) listImages(ctx context.Context, productID uuid.UUID) ([]Image, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, url, alt_text, position, is_primary
		FROM product_images
		WHERE product_id = $1
		ORDER BY position
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query images for product %s: %w", productID, err)
	}
	defer rows.Close()

	images := make([]Image, 0)
	for rows.Next() {
		var img Image
		if err := rows.Scan(&img.ID, &img.URL, &img.AltText, &img.Position, &img.IsPrimary); err != nil {
			return nil, fmt.Errorf("repository: failed to scan image for product %s: %w", productID, err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating images for product %s: %w", productID, err)
	}
	return images, nil
}

func (r *postgresRepository) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, parent_id, name, slug, description, icon_url, sort_order
		FROM categories
		WHERE is_active = TRUE
		ORDER BY sort_order, name
	`)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]Category, 0)
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.ParentID, &c.Name, &c.Slug, &c.Description, &c.IconURL, &c.SortOrder); err != nil {
			return nil, fmt.Errorf("repository: failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating categories: %w", err)
	}
	return categories, nil
}
