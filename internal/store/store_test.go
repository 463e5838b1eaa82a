package store

import (
	"context"
	"os"
	"testing"

	"storefront-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var schemaV1 = []string{
	`CREATE TABLE products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		description TEXT,
		price REAL NOT NULL
	)`,
	`CREATE TABLE users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL
	)`,
}

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newMigratedStore(t *testing.T) *Store {
	t.Helper()

	s := newTestStore(t)
	_, err := NewMigrator(s).Migrate(context.Background(), nil)
	require.NoError(t, err)
	return s
}

// newV1Store builds the first released schema with a few rows in it
func newV1Store(t *testing.T) *Store {
	t.Helper()

	s := newTestStore(t)
	ctx := context.Background()
	db := s.GetDB()

	for _, stmt := range schemaV1 {
		_, err := db.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}
	_, err := db.ExecContext(ctx, "CREATE TABLE schema_version (version INTEGER NOT NULL)")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (1)")
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, "INSERT INTO products (name, description, price) VALUES ('Mouse', 'Wireless mouse', 10.5)")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "INSERT INTO users (username, password_hash, role) VALUES ('legacy', 'plain', 'cliente')")
	require.NoError(t, err)

	return s
}

func TestVersion_ReadOnlyOnEmptyDatabase(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	version, err := NewMigrator(s).Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, version)

	var tables int
	require.NoError(t, s.GetDB().GetContext(ctx, &tables,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_version'"))
	assert.Zero(t, tables)
}

func TestMigrate_FreshDatabase(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m := NewMigrator(s)

	seed := &Seed{
		Admin: &models.User{Username: " Admin ", PasswordHash: "hash", Salt: "salt", Role: models.RoleAdmin},
		Products: []models.Product{
			{Name: "Laptop Gaming", Price: decimal.RequireFromString("1299.99"), Stock: 10, Category: "Electrónicos"},
		},
	}

	result, err := m.Migrate(ctx, seed)
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.Equal(t, 0, result.From)
	assert.Equal(t, LatestVersion, result.To)
	assert.Empty(t, result.Applied)

	version, err := m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, LatestVersion, version)

	admin, err := s.GetUserByUsername(ctx, "ADMIN")
	require.NoError(t, err)
	assert.Equal(t, "admin", admin.Username)
	assert.Equal(t, models.RoleAdmin, admin.Role)

	products, err := s.GetProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 10, products[0].Stock)

	// a second run is a no-op
	result, err = m.Migrate(ctx, seed)
	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.Empty(t, result.Applied)
}

func TestMigrate_FromVersion1(t *testing.T) {
	ctx := context.Background()

	s := newV1Store(t)
	m := NewMigrator(s)

	result, err := m.Migrate(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.From)
	assert.Equal(t, LatestVersion, result.To)
	assert.Equal(t, []int{2, 3, 4, 5, 6, 7, 8}, result.Applied)

	fresh := newMigratedStore(t)
	freshMigrator := NewMigrator(fresh)
	for _, table := range []string{"products", "users", "cart_items"} {
		want, err := freshMigrator.Columns(ctx, table)
		require.NoError(t, err)
		got, err := m.Columns(ctx, table)
		require.NoError(t, err)
		assert.ElementsMatch(t, want, got, "columns of %s", table)
	}

	products, err := s.GetProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	p := products[0]
	assert.Equal(t, "Mouse", p.Name)
	assert.Equal(t, "Wireless mouse", p.Description)
	assert.True(t, decimal.RequireFromString("10.5").Equal(p.Price))
	assert.Equal(t, 0, p.Stock)
	assert.Equal(t, 1, p.DefaultQuantity)
	assert.Equal(t, models.DefaultCategory, p.Category)
	assert.False(t, p.CreatedAt.IsZero())

	u, err := s.GetUserByUsername(ctx, "legacy")
	require.NoError(t, err)
	assert.Empty(t, u.Salt)
	assert.Equal(t, "cliente", u.Role)
	assert.False(t, u.RegisteredAt.IsZero())

	// the migrated schema is fully usable
	_, err = s.SetStock(ctx, p.ID, 4)
	require.NoError(t, err)
	_, err = s.AddToCart(ctx, p.ID, 2)
	require.NoError(t, err)
}

func TestMigrate_StepByStep(t *testing.T) {
	ctx := context.Background()

	s := newV1Store(t)
	m := NewMigrator(s)

	result, err := m.MigrateTo(ctx, 4, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4}, result.Applied)

	version, err := m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, version)

	result, err = m.Migrate(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 6, 7, 8}, result.Applied)
}

func TestMigrate_CartRebuildKeepsLines(t *testing.T) {
	ctx := context.Background()

	s := newV1Store(t)
	m := NewMigrator(s)
	_, err := m.MigrateTo(ctx, 7, nil)
	require.NoError(t, err)

	db := s.GetDB()
	// duplicate lines for product 1 and a line for a product that no longer exists
	for _, stmt := range []string{
		"INSERT INTO cart_items (product_id, quantity) VALUES (1, 2)",
		"INSERT INTO cart_items (product_id, quantity) VALUES (1, 3)",
		"INSERT INTO cart_items (product_id, quantity) VALUES (999, 1)",
	} {
		_, err := db.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}

	_, err = m.Migrate(ctx, nil)
	require.NoError(t, err)

	line, err := s.GetCartLine(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, line.Quantity)

	_, err = s.GetCartLine(ctx, 999)
	assert.ErrorIs(t, err, ErrCartLineNotFound)

	var backedUp int
	require.NoError(t, db.GetContext(ctx, &backedUp, "SELECT COUNT(*) FROM "+cartBackupTable))
	assert.Equal(t, 3, backedUp)
}

func TestMigrate_FailedStepKeepsVersion(t *testing.T) {
	ctx := context.Background()

	s := newV1Store(t)
	// the column step 2 adds is already there, so its DDL fails
	_, err := s.GetDB().ExecContext(ctx, "ALTER TABLE products ADD COLUMN image_path TEXT")
	require.NoError(t, err)

	m := NewMigrator(s)
	_, err = m.Migrate(ctx, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMigrationFailed)

	version, err := m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, version)

	cols, err := m.Columns(ctx, "products")
	require.NoError(t, err)
	assert.NotContains(t, cols, "stock")
}

func TestMigrate_RejectsNewerSchema(t *testing.T) {
	ctx := context.Background()

	s := newMigratedStore(t)
	_, err := s.GetDB().ExecContext(ctx, "UPDATE schema_version SET version = 99")
	require.NoError(t, err)

	_, err = NewMigrator(s).Migrate(ctx, nil)
	assert.ErrorIs(t, err, ErrMigrationFailed)
}

func TestMigrate_RejectsPartialFreshCreate(t *testing.T) {
	s := newTestStore(t)
	_, err := NewMigrator(s).MigrateTo(context.Background(), 3, nil)
	assert.ErrorIs(t, err, ErrMigrationFailed)
}

func TestDecode_SchemaMismatch(t *testing.T) {
	ctx := context.Background()
	s := newV1Store(t)

	_, err := s.GetProducts(ctx)
	assert.ErrorIs(t, err, ErrSchemaMismatch)

	_, err = s.GetUserByUsername(ctx, "legacy")
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestColumns_UnknownTable(t *testing.T) {
	s := newMigratedStore(t)
	_, err := NewMigrator(s).Columns(context.Background(), "products; DROP TABLE users")
	assert.Error(t, err)
}

func TestPostgresMigrate(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Integration test - requires TEST_DATABASE_URL")
	}

	s, err := NewStore(DriverPostgres, url)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	m := NewMigrator(s)
	_, err = m.Migrate(ctx, nil)
	require.NoError(t, err)

	version, err := m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, LatestVersion, version)

	p := &models.Product{Name: "pg-test", Price: decimal.RequireFromString("3.25"), Stock: 2}
	require.NoError(t, s.CreateProduct(ctx, p))
	defer s.DeleteProduct(ctx, p.ID)

	_, err = s.AddToCart(ctx, p.ID, 3)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	change, err := s.AddToCart(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, change.Stock)
}
