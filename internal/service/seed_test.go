package service

import (
	"context"
	"testing"

	"storefront-service/internal/models"
	"storefront-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSeed(t *testing.T) {
	hasher := fastHasher()

	seed, err := BuildSeed(hasher, "admin123", "admin@example.com")
	require.NoError(t, err)
	require.NotNil(t, seed.Admin)
	assert.Equal(t, SeedAdminUsername, seed.Admin.Username)
	assert.Equal(t, models.RoleAdmin, seed.Admin.Role)
	assert.True(t, hasher.Verify("admin123", seed.Admin.Salt, seed.Admin.PasswordHash))
	assert.Len(t, seed.Products, 3)

	_, err = BuildSeed(hasher, "", "")
	assert.ErrorIs(t, err, ErrInvalidUser)
}

func TestSeededDatabaseAcceptsAdminLogin(t *testing.T) {
	ctx := context.Background()
	hasher := fastHasher()

	s, err := store.NewStore(store.DriverSQLite, ":memory:")
	require.NoError(t, err)
	defer s.Close()

	seed, err := BuildSeed(hasher, "admin123", "")
	require.NoError(t, err)
	result, err := store.NewMigrator(s).Migrate(ctx, seed)
	require.NoError(t, err)
	assert.True(t, result.Created)

	users := NewUserService(s, hasher, nil)
	admin, err := users.Authenticate(ctx, "admin", "admin123")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)

	catalog := NewCatalogService(s, nil, nil)
	electronics, err := catalog.ListByCategory(ctx, "Electrónicos")
	require.NoError(t, err)
	assert.Len(t, electronics, 3)
}
