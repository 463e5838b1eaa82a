package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"storefront-service/internal/util"
)

// LatestVersion is the schema version this build expects
const LatestVersion = 8

const cartBackupTable = "cart_items_backup"

type migrationStep struct {
	Version     int
	Description string
	// Destructive steps rebuild a table and must preserve its rows themselves.
	Destructive bool
	Apply       func(ctx context.Context, tx *sqlx.Tx, d dialect) error
}

func productsTable(d dialect) string {
	return fmt.Sprintf(`CREATE TABLE products (
		id %s,
		name TEXT NOT NULL,
		description TEXT,
		price %s NOT NULL CHECK (price >= 0),
		image_path TEXT,
		stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
		default_quantity INTEGER NOT NULL DEFAULT 1,
		category TEXT NOT NULL DEFAULT 'General',
		created_at %s DEFAULT CURRENT_TIMESTAMP
	)`, d.autoID, d.money, d.timestamp)
}

func usersTable(d dialect) string {
	return fmt.Sprintf(`CREATE TABLE users (
		id %s,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		salt TEXT,
		role TEXT NOT NULL,
		email TEXT,
		registered_at %s DEFAULT CURRENT_TIMESTAMP
	)`, d.autoID, d.timestamp)
}

// cartTable is the cart definition from version 8 on: one line per product.
func cartTable(d dialect) string {
	return fmt.Sprintf(`CREATE TABLE cart_items (
		id %s,
		product_id %s NOT NULL UNIQUE REFERENCES products(id) ON DELETE CASCADE,
		quantity INTEGER NOT NULL DEFAULT 1 CHECK (quantity > 0),
		added_at %s DEFAULT CURRENT_TIMESTAMP
	)`, d.autoID, d.bigint, d.timestamp)
}

// legacyCartTable is the cart definition introduced in version 3
func legacyCartTable(d dialect) string {
	return fmt.Sprintf(`CREATE TABLE cart_items (
		id %s,
		product_id %s NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		quantity INTEGER NOT NULL DEFAULT 1
	)`, d.autoID, d.bigint)
}

var indexStatements = []string{
	"CREATE INDEX idx_products_name ON products(name)",
	"CREATE INDEX idx_products_category ON products(category)",
	"CREATE INDEX idx_users_username ON users(username)",
}

// latestSchema creates every table directly at LatestVersion
func latestSchema(d dialect) []string {
	stmts := []string{productsTable(d), usersTable(d), cartTable(d)}
	return append(stmts, indexStatements...)
}

// addTimestampColumn adds a timestamp column that existing rows see as "now".
// SQLite rejects non-constant defaults in ALTER TABLE, so it backfills instead.
func addTimestampColumn(d dialect, table, column string) []string {
	if d.name == DriverSQLite {
		return []string{
			fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, d.timestamp),
			fmt.Sprintf("UPDATE %s SET %s = CURRENT_TIMESTAMP WHERE %s IS NULL", table, column, column),
		}
	}
	return []string{
		fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s DEFAULT CURRENT_TIMESTAMP", table, column, d.timestamp),
	}
}

func execAll(stmts func(d dialect) []string) func(context.Context, *sqlx.Tx, dialect) error {
	return func(ctx context.Context, tx *sqlx.Tx, d dialect) error {
		for _, stmt := range stmts(d) {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("%s: %w", stmt, err)
			}
		}
		return nil
	}
}

// migrationSteps lists every additive step in ascending version order
func migrationSteps() []migrationStep {
	return []migrationStep{
		{
			Version:     2,
			Description: "add products.image_path",
			Apply: execAll(func(d dialect) []string {
				return []string{"ALTER TABLE products ADD COLUMN image_path TEXT"}
			}),
		},
		{
			Version:     3,
			Description: "add products.stock, create cart_items",
			Apply: execAll(func(d dialect) []string {
				return []string{
					"ALTER TABLE products ADD COLUMN stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0)",
					legacyCartTable(d),
				}
			}),
		},
		{
			Version:     4,
			Description: "add products.default_quantity",
			Apply: execAll(func(d dialect) []string {
				return []string{"ALTER TABLE products ADD COLUMN default_quantity INTEGER NOT NULL DEFAULT 1"}
			}),
		},
		{
			Version:     5,
			Description: "add users.salt",
			Apply: execAll(func(d dialect) []string {
				return []string{"ALTER TABLE users ADD COLUMN salt TEXT"}
			}),
		},
		{
			Version:     6,
			Description: "add category and timestamps, add users.email",
			Apply: execAll(func(d dialect) []string {
				stmts := []string{"ALTER TABLE products ADD COLUMN category TEXT NOT NULL DEFAULT 'General'"}
				stmts = append(stmts, addTimestampColumn(d, "products", "created_at")...)
				stmts = append(stmts, "ALTER TABLE users ADD COLUMN email TEXT")
				stmts = append(stmts, addTimestampColumn(d, "users", "registered_at")...)
				stmts = append(stmts, addTimestampColumn(d, "cart_items", "added_at")...)
				return stmts
			}),
		},
		{
			Version:     7,
			Description: "create lookup indexes",
			Apply: execAll(func(d dialect) []string {
				return indexStatements
			}),
		},
		{
			Version:     8,
			Description: "rebuild cart_items with one line per product",
			Destructive: true,
			Apply:       rebuildCart,
		},
	}
}

// rebuildCart recreates cart_items. Lines are copied to a backup table first and
// restored merged per product; lines whose product no longer exists stay in the backup.
func rebuildCart(ctx context.Context, tx *sqlx.Tx, d dialect) error {
	logger := util.GetLogger()

	stmts := []string{
		"DROP TABLE IF EXISTS " + cartBackupTable,
		"CREATE TABLE " + cartBackupTable + " AS SELECT product_id, quantity, added_at FROM cart_items",
		"DROP TABLE cart_items",
		cartTable(d),
		`INSERT INTO cart_items (product_id, quantity, added_at)
			SELECT b.product_id, SUM(b.quantity), COALESCE(MIN(b.added_at), CURRENT_TIMESTAMP)
			FROM ` + cartBackupTable + ` b
			WHERE b.product_id IN (SELECT id FROM products) AND b.quantity > 0
			GROUP BY b.product_id`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
	}

	var backedUp, restored int
	if err := tx.GetContext(ctx, &backedUp, "SELECT COUNT(*) FROM "+cartBackupTable); err != nil {
		return err
	}
	if err := tx.GetContext(ctx, &restored, "SELECT COUNT(*) FROM cart_items"); err != nil {
		return err
	}

	if backedUp > 0 {
		logger.Warn("Cart table rebuilt; previous lines kept in backup table",
			zap.String("backup_table", cartBackupTable),
			zap.Int("backed_up_lines", backedUp),
			zap.Int("restored_lines", restored))
	}
	return nil
}
