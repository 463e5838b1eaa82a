package store

import (
	"context"

	"storefront-service/internal/models"
)

// GetOverview returns store-wide totals
func (s *Store) GetOverview(ctx context.Context) (*models.Overview, error) {
	var overview models.Overview
	err := s.db.GetContext(ctx, &overview, `
		SELECT
			(SELECT COUNT(*) FROM users) AS total_users,
			(SELECT COUNT(*) FROM products) AS total_products,
			(SELECT COALESCE(SUM(quantity), 0) FROM cart_items) AS cart_units,
			(SELECT COALESCE(SUM(p.price * c.quantity), 0)
				FROM cart_items c INNER JOIN products p ON c.product_id = p.id) AS cart_value`)
	if err != nil {
		return nil, queryErr(err)
	}
	overview.CartValue = overview.CartValue.Round(2)
	return &overview, nil
}

// GetTopReserved ranks products by the quantity held in the cart
func (s *Store) GetTopReserved(ctx context.Context, limit int) ([]models.ReservedProduct, error) {
	var products []models.ReservedProduct
	err := s.db.SelectContext(ctx, &products, s.db.Rebind(`
		SELECT p.id AS product_id, p.name, p.price, SUM(c.quantity) AS reserved
		FROM cart_items c
		INNER JOIN products p ON c.product_id = p.id
		GROUP BY p.id, p.name, p.price
		ORDER BY reserved DESC, p.name ASC
		LIMIT ?`), limit)
	return products, queryErr(err)
}
