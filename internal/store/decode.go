package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const productSelect = `
	SELECT id, name, COALESCE(description, '') AS description, price,
		COALESCE(image_path, '') AS image_path, stock, default_quantity, category, created_at
	FROM products`

const userSelect = `
	SELECT id, username, password_hash, COALESCE(salt, '') AS salt, role,
		COALESCE(email, '') AS email, registered_at
	FROM users`

const cartItemSelect = `
	SELECT p.id AS product_id, p.name, COALESCE(p.description, '') AS description, p.price,
		COALESCE(p.image_path, '') AS image_path, p.stock, c.quantity, c.added_at
	FROM cart_items c
	INNER JOIN products p ON c.product_id = p.id`

var (
	productColumns  = []string{"id", "name", "description", "price", "image_path", "stock", "default_quantity", "category", "created_at"}
	userColumns     = []string{"id", "username", "password_hash", "salt", "role", "email", "registered_at"}
	cartItemColumns = []string{"product_id", "name", "description", "price", "image_path", "stock", "quantity", "added_at"}
)

// requireColumns fails fast when a result set lacks a column the entity needs
func requireColumns(rows *sqlx.Rows, required []string) error {
	cols, err := rows.Columns()
	if err != nil {
		return err
	}

	present := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		present[c] = struct{}{}
	}
	for _, c := range required {
		if _, ok := present[c]; !ok {
			return fmt.Errorf("%w: column %q missing from result", ErrSchemaMismatch, c)
		}
	}
	return nil
}

// selectAll runs query and decodes every row into T
func selectAll[T any](ctx context.Context, q sqlx.QueryerContext, required []string, query string, args ...interface{}) ([]T, error) {
	rows, err := q.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, queryErr(err)
	}
	defer rows.Close()

	if err := requireColumns(rows, required); err != nil {
		return nil, err
	}

	out := make([]T, 0)
	for rows.Next() {
		var v T
		if err := rows.StructScan(&v); err != nil {
			return nil, fmt.Errorf("failed to decode row: %w", err)
		}
		out = append(out, v)
	}

	return out, rows.Err()
}

// selectOne decodes the first row into T, returning sql.ErrNoRows when there is none
func selectOne[T any](ctx context.Context, q sqlx.QueryerContext, required []string, query string, args ...interface{}) (*T, error) {
	items, err := selectAll[T](ctx, q, required, query, args...)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, sql.ErrNoRows
	}
	return &items[0], nil
}
