package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrItemNotFound      = errors.New("cart item not found")
	ErrInvalidQuantity   = errors.New("quantity must be at least 1")
)

type Repository interface {
	List(ctx context.Context, userID uuid.UUID) ([]Item, error)
	GetAvailability(ctx context.Context, productID uuid.UUID) (*Availability, error)
	// Upsert adds quantity to the (user, product) line, creating it if absent.
	Upsert(ctx context.Context, userID, productID uuid.UUID, quantity int) (*Line, error)
	UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*Line, error)
	Remove(ctx context.Context, userID, itemID uuid.UUID) error
}

type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type postgresRepository struct {
	db DB
}

func NewRepository(db DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) List(ctx context.Context, userID uuid.UUID) ([]Item, error) {
	query := `
		SELECT ci.id, ci.quantity, ci.added_at,
		       p.id, p.title, p.slug, p.price, p.stock_quantity,
		       pi.url
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		LEFT JOIN product_images pi ON pi.product_id = p.id AND pi.is_primary = TRUE
		WHERE ci.user_id = $1
		ORDER BY ci.added_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query cart for user %s: %w", userID, err)
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		var it Item
		err := rows.Scan(
			&it.ID,
			&it.Quantity,
			&it.AddedAt,
			&it.ProductID,
			&it.Title,
			&it.Slug,
			&it.Price,
			&it.StockQuantity,
			&it.ImageURL,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan cart item for user %s: %w", userID, err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating cart for user %s: %w", userID, err)
	}

	return items, nil
}

func (r *postgresRepository) GetAvailability(ctx context.Context, productID uuid.UUID) (*Availability, error) {
	var (
		status string
		a      Availability
	)
	err := r.db.QueryRow(ctx,
		`SELECT status, stock_quantity FROM products WHERE id = $1`, productID,
	).Scan(&status, &a.StockQuantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("repository: failed to select product %s: %w", productID, err)
	}
	a.Published = status == "PUBLISHED"
	return &a, nil
}

func (r *postgresRepository) Upsert(ctx context.Context, userID, productID uuid.UUID, quantity int) (*Line, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("repository: failed to generate cart item ID: %w", err)
	}

	query := `
		INSERT INTO cart_items (id, user_id, product_id, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, added_at = NOW()
		RETURNING id, product_id, quantity
	`
	var line Line
	if err := r.db.QueryRow(ctx, query, id, userID, productID, quantity).Scan(&line.ID, &line.ProductID, &line.Quantity); err != nil {
		return nil, fmt.Errorf("repository: failed to upsert cart item: %w", err)
	}
	return &line, nil
}

func (r *postgresRepository) UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*Line, error) {
	query := `
		UPDATE cart_items SET quantity = $1
		WHERE id = $2 AND user_id = $3
		RETURNING id, product_id, quantity
	`
	var line Line
	err := r.db.QueryRow(ctx, query, quantity, itemID, userID).Scan(&line.ID, &line.ProductID, &line.Quantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("repository: failed to update cart item %s: %w", itemID, err)
	}
	return &line, nil
}

func (r *postgresRepository) Remove(ctx context.Context, userID, itemID uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE id = $1 AND user_id = $2`, itemID, userID)
	if err != nil {
		return fmt.Errorf("repository: failed to delete cart item %s: %w", itemID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}
