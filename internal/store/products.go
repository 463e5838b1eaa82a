package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"storefront-service/internal/models"
)

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func insertProduct(ctx context.Context, q sqlx.ExtContext, p *models.Product) error {
	if p.Stock < 0 {
		return ErrNegativeStock
	}
	if p.Category == "" {
		p.Category = models.DefaultCategory
	}
	if p.DefaultQuantity <= 0 {
		p.DefaultQuantity = models.DefaultOrderQuantity
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	query := q.Rebind(`
		INSERT INTO products (name, description, price, image_path, stock, default_quantity, category, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)

	err := sqlx.GetContext(ctx, q, &p.ID, query,
		p.Name, nullString(p.Description), p.Price, nullString(p.ImagePath),
		p.Stock, p.DefaultQuantity, p.Category, p.CreatedAt)
	return queryErr(err)
}

// CreateProduct inserts a product and sets its ID
func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	return insertProduct(ctx, s.db, p)
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	p, err := selectOne[models.Product](ctx, s.db, productColumns, s.db.Rebind(productSelect+" WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetProducts retrieves all products ordered by name
func (s *Store) GetProducts(ctx context.Context) ([]models.Product, error) {
	return selectAll[models.Product](ctx, s.db, productColumns, productSelect+" ORDER BY name ASC, id ASC")
}

// GetProductsByCategory retrieves the products of one category ordered by name
func (s *Store) GetProductsByCategory(ctx context.Context, category string) ([]models.Product, error) {
	return selectAll[models.Product](ctx, s.db, productColumns,
		s.db.Rebind(productSelect+" WHERE category = ? ORDER BY name ASC, id ASC"), category)
}

// SearchProducts matches term as a case-insensitive substring of name or description
func (s *Store) SearchProducts(ctx context.Context, term string) ([]models.Product, error) {
	pattern := "%" + strings.ToLower(term) + "%"
	query := s.db.Rebind(productSelect + `
		WHERE LOWER(name) LIKE ? OR LOWER(COALESCE(description, '')) LIKE ?
		ORDER BY name ASC, id ASC`)
	return selectAll[models.Product](ctx, s.db, productColumns, query, pattern, pattern)
}

// GetCategories returns the distinct product categories
func (s *Store) GetCategories(ctx context.Context) ([]string, error) {
	var categories []string
	err := s.db.SelectContext(ctx, &categories, "SELECT DISTINCT category FROM products ORDER BY category ASC")
	return categories, queryErr(err)
}

// UpdateProduct replaces every editable field of a product.
// It returns nil when no product has the given ID.
func (s *Store) UpdateProduct(ctx context.Context, p *models.Product) (*models.StockChange, error) {
	if p.Stock < 0 {
		return nil, ErrNegativeStock
	}
	if p.Category == "" {
		p.Category = models.DefaultCategory
	}
	if p.DefaultQuantity <= 0 {
		p.DefaultQuantity = models.DefaultOrderQuantity
	}

	var change *models.StockChange
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		previous, err := s.lockStock(ctx, tx, p.ID)
		if errors.Is(err, ErrProductNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, tx.Rebind(`
			UPDATE products
			SET name = ?, description = ?, price = ?, image_path = ?, stock = ?, default_quantity = ?, category = ?
			WHERE id = ?`),
			p.Name, nullString(p.Description), p.Price, nullString(p.ImagePath),
			p.Stock, p.DefaultQuantity, p.Category, p.ID)
		if err != nil {
			return queryErr(err)
		}

		change = &models.StockChange{ProductID: p.ID, Delta: p.Stock - previous, Stock: p.Stock}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

// DeleteProduct removes a product and any cart line referencing it.
// The reserved quantity is not returned anywhere since the product is gone.
func (s *Store) DeleteProduct(ctx context.Context, id int64) (int64, error) {
	var affected int64
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM cart_items WHERE product_id = ?"), id); err != nil {
			return fmt.Errorf("failed to delete cart lines: %w", err)
		}

		res, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM products WHERE id = ?"), id)
		if err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}
		affected, err = res.RowsAffected()
		return err
	})
	return affected, err
}

// GetStock returns the stock of a product
func (s *Store) GetStock(ctx context.Context, id int64) (int, error) {
	var stock int
	err := s.db.GetContext(ctx, &stock, s.db.Rebind("SELECT stock FROM products WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrProductNotFound
	}
	return stock, queryErr(err)
}

// SetStock overwrites the stock of a product. Negative values are rejected.
func (s *Store) SetStock(ctx context.Context, id int64, stock int) (models.StockChange, error) {
	if stock < 0 {
		return models.StockChange{}, ErrNegativeStock
	}

	var change models.StockChange
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		previous, err := s.lockStock(ctx, tx, id)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind("UPDATE products SET stock = ? WHERE id = ?"), stock, id); err != nil {
			return err
		}

		change = models.StockChange{ProductID: id, Delta: stock - previous, Stock: stock}
		return nil
	})
	return change, err
}

// GetProductStocks returns the stock of every product keyed by ID
func (s *Store) GetProductStocks(ctx context.Context) (map[int64]int, error) {
	var rows []struct {
		ID    int64 `db:"id"`
		Stock int   `db:"stock"`
	}
	if err := s.db.SelectContext(ctx, &rows, "SELECT id, stock FROM products"); err != nil {
		return nil, queryErr(err)
	}

	stocks := make(map[int64]int, len(rows))
	for _, r := range rows {
		stocks[r.ID] = r.Stock
	}
	return stocks, nil
}

// lockStock reads a product's stock inside tx, holding a row lock where the driver supports it
func (s *Store) lockStock(ctx context.Context, tx *sqlx.Tx, productID int64) (int, error) {
	var stock int
	err := tx.GetContext(ctx, &stock,
		tx.Rebind("SELECT stock FROM products WHERE id = ?"+s.dialect.lockRow), productID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrProductNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to lock stock: %w", queryErr(err))
	}
	return stock, nil
}
