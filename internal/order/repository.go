package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// StockError names the product that could not be covered by current stock.
type StockError struct {
	ProductID uuid.UUID
	Title     string
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q", e.Title)
}

func (e *StockError) Unwrap() error {
	return ErrInsufficientStock
}

type Repository interface {
	// Checkout converts the user's cart into an order in one transaction.
	Checkout(ctx context.Context, userID uuid.UUID, addr ShippingAddress, policy Policy) (*Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Order, error)
	GetByIDForUser(ctx context.Context, userID, orderID uuid.UUID) (*Order, error)
}

type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type postgresRepository struct {
	db DB
}

func NewRepository(db DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Checkout(ctx context.Context, userID uuid.UUID, addr ShippingAddress, policy Policy) (result *Order, err error) {
	orderID, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("repository: failed to generate order ID: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic_value", p).Stringer("user_id", userID).Msg("Panic recovered during Checkout, rolling back")
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("user_id", userID).Msg("Failed to rollback transaction after panic")
			}
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				log.Error().Err(rbErr).Stringer("user_id", userID).Msg("Failed to rollback checkout transaction")
			}
		} else if commitErr := tx.Commit(ctx); commitErr != nil {
			log.Error().Err(commitErr).Stringer("order_id", orderID).Msg("Failed to commit checkout transaction")
			result = nil
			err = fmt.Errorf("repository: failed to commit checkout: %w", commitErr)
		}
	}()

	// 1. Снимок корзины. Строки товаров блокируются в порядке id,
	// чтобы параллельные оформления не взаимоблокировались.
	lines, err := snapshotCart(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	// 2-3. Пустая корзина и нехватка остатков отклоняют весь заказ.
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	for _, l := range lines {
		if l.StockQuantity < l.Quantity {
			return nil, &StockError{ProductID: l.ProductID, Title: l.Title}
		}
	}

	// 4-5. Итоги по ценам из снимка.
	total := Subtotal(lines)
	shipping := policy.ShippingCost(total)

	// 6. Заказ.
	now := time.Now().UTC()
	o := &Order{
		ID:              orderID,
		UserID:          userID,
		Status:          StatusPending,
		TotalAmount:     total,
		ShippingCost:    shipping,
		ShippingAddress: addr,
		ItemsCount:      len(lines),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, user_id, status, total_amount, shipping_cost,
		                    shipping_name, shipping_address, shipping_city, shipping_zip, shipping_country,
		                    created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
	`,
		o.ID, o.UserID, string(o.Status), o.TotalAmount, o.ShippingCost,
		addr.Name, addr.Address, addr.City, addr.Zip, addr.Country,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to insert order: %w", err)
	}

	// 7. Позиции заказа и списание остатков.
	for _, l := range lines {
		itemID, genErr := uuid.NewV4()
		if genErr != nil {
			err = fmt.Errorf("repository: failed to generate order item ID: %w", genErr)
			return nil, err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_id, title, price, quantity)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, itemID, o.ID, l.ProductID, l.Title, l.Price, l.Quantity)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to insert order item for product %s: %w", l.ProductID, err)
		}

		cmdTag, execErr := tx.Exec(ctx, `
			UPDATE products
			SET stock_quantity = stock_quantity - $1, updated_at = NOW()
			WHERE id = $2 AND stock_quantity >= $1
		`, l.Quantity, l.ProductID)
		if execErr != nil {
			err = fmt.Errorf("repository: failed to decrement stock for product %s: %w", l.ProductID, execErr)
			return nil, err
		}
		if cmdTag.RowsAffected() == 0 {
			err = &StockError{ProductID: l.ProductID, Title: l.Title}
			return nil, err
		}
	}

	// 8. Очистка корзины.
	if _, err = tx.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return nil, fmt.Errorf("repository: failed to clear cart for user %s: %w", userID, err)
	}

	// 9. Commit выполняется в defer.
	return o, nil
}

func snapshotCart(ctx context.Context, tx pgx.Tx, userID uuid.UUID) ([]CartLine, error) {
	rows, err := tx.Query(ctx, `
		SELECT ci.product_id, p.title, p.price, ci.quantity, p.stock_quantity
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.user_id = $1
		ORDER BY p.id
		FOR UPDATE
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to snapshot cart for user %s: %w", userID, err)
	}
	defer rows.Close()

	lines := make([]CartLine, 0)
	for rows.Next() {
		var l CartLine
		if err := rows.Scan(&l.ProductID, &l.Title, &l.Price, &l.Quantity, &l.StockQuantity); err != nil {
			return nil, fmt.Errorf("repository: failed to scan cart line for user %s: %w", userID, err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating cart for user %s: %w", userID, err)
	}
	return lines, nil
}

func (r *postgresRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	query := `
		SELECT o.id, o.user_id, o.status, o.total_amount, o.shipping_cost,
		       o.shipping_name, o.shipping_address, o.shipping_city, o.shipping_zip, o.shipping_country,
		       o.created_at, o.updated_at,
		       COUNT(oi.id)::int AS items_count
		FROM orders o
		LEFT JOIN order_items oi ON oi.order_id = o.id
		WHERE o.user_id = $1
		GROUP BY o.id
		ORDER BY o.created_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders for user id %s: %w", userID, err)
	}
	defer rows.Close()

	orders := make([]Order, 0)
	for rows.Next() {
		var o Order
		err := rows.Scan(
			&o.ID,
			&o.UserID,
			&o.Status,
			&o.TotalAmount,
			&o.ShippingCost,
			&o.Name,
			&o.Address,
			&o.City,
			&o.Zip,
			&o.Country,
			&o.CreatedAt,
			&o.UpdatedAt,
			&o.ItemsCount,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed scan order for user id %s: %w", userID, err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating orders for user id %s: %w", userID, err)
	}

	return orders, nil
}

func (r *postgresRepository) GetByIDForUser(ctx context.Context, userID, orderID uuid.UUID) (*Order, error) {
	query := `
		SELECT id, user_id, status, total_amount, shipping_cost,
		       shipping_name, shipping_address, shipping_city, shipping_zip, shipping_country,
		       created_at, updated_at
		FROM orders
		WHERE id = $1 AND user_id = $2
	`
	var o Order
	err := r.db.QueryRow(ctx, query, orderID, userID).Scan(
		&o.ID,
		&o.UserID,
		&o.Status,
		&o.TotalAmount,
		&o.ShippingCost,
		&o.Name,
		&o.Address,
		&o.City,
		&o.Zip,
		&o.Country,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order by id %s: %w", orderID, err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, oi.title, oi.price, oi.quantity, pi.url
		FROM order_items oi
		LEFT JOIN product_images pi ON pi.product_id = oi.product_id AND pi.is_primary = TRUE
		WHERE oi.order_id = $1
		ORDER BY oi.title, oi.id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order items for order id %s: %w", orderID, err)
	}
	defer rows.Close()

	o.Items = make([]Item, 0)
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Title, &it.Price, &it.Quantity, &it.ImageURL); err != nil {
			return nil, fmt.Errorf("repository: failed to scan order item for order id %s: %w", orderID, err)
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating order items for order id %s: %w", orderID, err)
	}
	o.ItemsCount = len(o.Items)

	return &o, nil
}
