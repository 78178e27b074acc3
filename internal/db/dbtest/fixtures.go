package dbtest

import (
	"context"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// AllTables lists every application table in dependency-safe truncate order.
var AllTables = []string{
	"audit_logs",
	"user_fanzine_access",
	"subscriptions",
	"fanzine_issues",
	"order_items",
	"orders",
	"cart_items",
	"product_images",
	"products",
	"categories",
	"user_roles",
	"users",
}

func InsertUser(t *testing.T, pool *pgxpool.Pool, email string) uuid.UUID {
	t.Helper()
	id := uuid.Must(uuid.NewV4())
	_, err := pool.Exec(context.Background(),
		`INSERT INTO users (id, email, password_hash) VALUES ($1, $2, 'x')`, id, email)
	if err != nil {
		t.Fatalf("Failed to insert user: %v", err)
	}
	_, err = pool.Exec(context.Background(),
		`INSERT INTO user_roles (user_id, role) VALUES ($1, 'BUYER')`, id)
	if err != nil {
		t.Fatalf("Failed to insert user role: %v", err)
	}
	return id
}

// InsertProduct adds a PUBLISHED product. slug must be unique per test.
func InsertProduct(t *testing.T, pool *pgxpool.Pool, slug, price string, stock int) uuid.UUID {
	t.Helper()
	id := uuid.Must(uuid.NewV4())
	_, err := pool.Exec(context.Background(), `
		INSERT INTO products (id, title, slug, price, stock_quantity, status)
		VALUES ($1, $2, $3, $4, $5, 'PUBLISHED')
	`, id, "Product "+slug, slug, decimal.RequireFromString(price), stock)
	if err != nil {
		t.Fatalf("Failed to insert product: %v", err)
	}
	return id
}

func InsertCartItem(t *testing.T, pool *pgxpool.Pool, userID, productID uuid.UUID, quantity int) {
	t.Helper()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO cart_items (id, user_id, product_id, quantity) VALUES ($1, $2, $3, $4)`,
		uuid.Must(uuid.NewV4()), userID, productID, quantity)
	if err != nil {
		t.Fatalf("Failed to insert cart item: %v", err)
	}
}

func InsertIssue(t *testing.T, pool *pgxpool.Pool, number int, freePreview bool) uuid.UUID {
	t.Helper()
	id := uuid.Must(uuid.NewV4())
	_, err := pool.Exec(context.Background(), `
		INSERT INTO fanzine_issues (id, issue_number, title, pdf_url, is_free_preview, published_at)
		VALUES ($1, $2, $3, $4, $5, CURRENT_DATE)
	`, id, number, "Issue", "issues/issue.pdf", freePreview)
	if err != nil {
		t.Fatalf("Failed to insert fanzine issue: %v", err)
	}
	return id
}

func StockOf(t *testing.T, pool *pgxpool.Pool, productID uuid.UUID) int {
	t.Helper()
	var stock int
	if err := pool.QueryRow(context.Background(),
		`SELECT stock_quantity FROM products WHERE id = $1`, productID).Scan(&stock); err != nil {
		t.Fatalf("Failed to read stock: %v", err)
	}
	return stock
}

func CountRows(t *testing.T, pool *pgxpool.Pool, query string, args ...any) int {
	t.Helper()
	var n int
	if err := pool.QueryRow(context.Background(), query, args...).Scan(&n); err != nil {
		t.Fatalf("Failed to count rows: %v", err)
	}
	return n
}
