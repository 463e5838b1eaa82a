package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"storefront-service/internal/models"
)

// getLine reads the cart line of a product inside tx, nil when there is none
func getLine(ctx context.Context, tx *sqlx.Tx, productID int64) (*models.CartLine, error) {
	var line models.CartLine
	err := tx.GetContext(ctx, &line,
		tx.Rebind("SELECT id, product_id, quantity, added_at FROM cart_items WHERE product_id = ?"), productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, queryErr(err)
	}
	return &line, nil
}

func adjustStock(ctx context.Context, tx *sqlx.Tx, productID int64, delta int) (int, error) {
	var stock int
	err := tx.GetContext(ctx, &stock,
		tx.Rebind("UPDATE products SET stock = stock + ? WHERE id = ? RETURNING stock"), delta, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrProductNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to adjust stock: %w", err)
	}
	return stock, nil
}

// AddToCart reserves quantity units of a product. A new line is created on the
// first add; later adds increment it. Nothing changes when stock is short.
func (s *Store) AddToCart(ctx context.Context, productID int64, quantity int) (models.StockChange, error) {
	if quantity <= 0 {
		return models.StockChange{}, ErrInvalidQuantity
	}

	var change models.StockChange
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		available, err := s.lockStock(ctx, tx, productID)
		if err != nil {
			return err
		}
		if available < quantity {
			return fmt.Errorf("%w: available=%d, requested=%d", ErrInsufficientStock, available, quantity)
		}

		line, err := getLine(ctx, tx, productID)
		if err != nil {
			return err
		}

		lineQty := quantity
		if line == nil {
			_, err = tx.ExecContext(ctx,
				tx.Rebind("INSERT INTO cart_items (product_id, quantity, added_at) VALUES (?, ?, ?)"),
				productID, quantity, time.Now().UTC())
		} else {
			lineQty = line.Quantity + quantity
			_, err = tx.ExecContext(ctx,
				tx.Rebind("UPDATE cart_items SET quantity = ? WHERE id = ?"), lineQty, line.ID)
		}
		if err != nil {
			return fmt.Errorf("failed to write cart line: %w", err)
		}

		stock, err := adjustStock(ctx, tx, productID, -quantity)
		if err != nil {
			return err
		}

		change = models.StockChange{ProductID: productID, Delta: -quantity, Stock: stock, Quantity: lineQty}
		return nil
	})
	return change, err
}

// SetCartQuantity changes the reserved quantity of an existing line, moving the
// difference between the line and the product stock.
func (s *Store) SetCartQuantity(ctx context.Context, productID int64, quantity int) (models.StockChange, error) {
	if quantity <= 0 {
		return models.StockChange{}, ErrInvalidQuantity
	}

	var change models.StockChange
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		available, err := s.lockStock(ctx, tx, productID)
		if err != nil {
			return err
		}

		line, err := getLine(ctx, tx, productID)
		if err != nil {
			return err
		}
		if line == nil {
			return ErrCartLineNotFound
		}

		delta := quantity - line.Quantity
		if delta > available {
			return fmt.Errorf("%w: available=%d, requested=%d", ErrInsufficientStock, available, delta)
		}

		if _, err := tx.ExecContext(ctx,
			tx.Rebind("UPDATE cart_items SET quantity = ? WHERE id = ?"), quantity, line.ID); err != nil {
			return fmt.Errorf("failed to update cart line: %w", err)
		}

		stock := available
		if delta != 0 {
			if stock, err = adjustStock(ctx, tx, productID, -delta); err != nil {
				return err
			}
		}

		change = models.StockChange{ProductID: productID, Delta: -delta, Stock: stock, Quantity: quantity}
		return nil
	})
	return change, err
}

// RemoveFromCart deletes the line of a product and returns its quantity to stock.
// The int64 result is the number of lines removed, zero when there was none.
func (s *Store) RemoveFromCart(ctx context.Context, productID int64) (models.StockChange, int64, error) {
	var (
		change   models.StockChange
		affected int64
	)
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.lockStock(ctx, tx, productID); err != nil {
			if errors.Is(err, ErrProductNotFound) {
				return nil
			}
			return err
		}

		line, err := getLine(ctx, tx, productID)
		if err != nil || line == nil {
			return err
		}

		res, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM cart_items WHERE id = ?"), line.ID)
		if err != nil {
			return fmt.Errorf("failed to delete cart line: %w", err)
		}
		if affected, err = res.RowsAffected(); err != nil {
			return err
		}

		stock, err := adjustStock(ctx, tx, productID, line.Quantity)
		if err != nil {
			return err
		}

		change = models.StockChange{ProductID: productID, Delta: line.Quantity, Stock: stock}
		return nil
	})
	if err != nil {
		return models.StockChange{}, 0, err
	}
	return change, affected, nil
}

// ClearCart returns every line's quantity to its product, one line at a time,
// then deletes all lines. It returns one change per released line.
func (s *Store) ClearCart(ctx context.Context) ([]models.StockChange, error) {
	var changes []models.StockChange
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		var lines []models.CartLine
		if err := tx.SelectContext(ctx, &lines,
			"SELECT id, product_id, quantity, added_at FROM cart_items ORDER BY id ASC"); err != nil {
			return queryErr(err)
		}

		changes = make([]models.StockChange, 0, len(lines))
		for _, line := range lines {
			if _, err := s.lockStock(ctx, tx, line.ProductID); err != nil {
				return err
			}
			stock, err := adjustStock(ctx, tx, line.ProductID, line.Quantity)
			if err != nil {
				return err
			}
			changes = append(changes, models.StockChange{ProductID: line.ProductID, Delta: line.Quantity, Stock: stock})
		}

		_, err := tx.ExecContext(ctx, "DELETE FROM cart_items")
		return err
	})
	if err != nil {
		return nil, err
	}
	return changes, nil
}

// GetCartLine returns the line of a product
func (s *Store) GetCartLine(ctx context.Context, productID int64) (*models.CartLine, error) {
	var line models.CartLine
	err := s.db.GetContext(ctx, &line,
		s.db.Rebind("SELECT id, product_id, quantity, added_at FROM cart_items WHERE product_id = ?"), productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCartLineNotFound
	}
	if err != nil {
		return nil, queryErr(err)
	}
	return &line, nil
}

// GetCartItems lists the cart joined with products, most recently added first
func (s *Store) GetCartItems(ctx context.Context) ([]models.CartItem, error) {
	return selectAll[models.CartItem](ctx, s.db, cartItemColumns,
		cartItemSelect+" ORDER BY c.added_at DESC, c.id DESC")
}

// GetCartTotal sums price times quantity over the cart
func (s *Store) GetCartTotal(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.db.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(p.price * c.quantity), 0)
		FROM cart_items c
		INNER JOIN products p ON c.product_id = p.id`)
	if err != nil {
		return decimal.Zero, queryErr(err)
	}
	return total.Round(2), nil
}
