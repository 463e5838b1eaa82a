package service

import (
	"context"
	"fmt"
	"testing"

	"storefront-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReports(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	catalog := NewCatalogService(s, nil, nil)
	cart := NewCartService(s, nil, nil)
	users := NewUserService(s, fastHasher(), nil)
	reports := NewReportService(s)

	_, err := users.Register(ctx, &RegisterRequest{Username: "admin", Password: "pw", Role: models.RoleAdmin})
	require.NoError(t, err)
	_, err = users.Register(ctx, &RegisterRequest{Username: "maria", Password: "pw"})
	require.NoError(t, err)
	_, err = users.Register(ctx, &RegisterRequest{Username: "pedro", Password: "pw"})
	require.NoError(t, err)

	var ids []int64
	for i := 1; i <= 7; i++ {
		p, err := catalog.CreateProduct(ctx, &ProductRequest{
			Name: fmt.Sprintf("P%d", i), Price: decimal.NewFromInt(int64(i)), Stock: 20,
		})
		require.NoError(t, err)
		ids = append(ids, p.ID)
		_, err = cart.AddItem(ctx, p.ID, i)
		require.NoError(t, err)
	}

	overview, err := reports.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, overview.TotalUsers)
	assert.Equal(t, 7, overview.TotalProducts)
	assert.Equal(t, 28, overview.CartUnits)
	// sum of i*i for i in 1..7
	assert.Equal(t, "140.00", overview.CartValue.StringFixed(2))

	top, err := reports.TopReserved(ctx, 0)
	require.NoError(t, err)
	require.Len(t, top, DefaultTopReservedLimit)
	assert.Equal(t, ids[6], top[0].ProductID)
	assert.Equal(t, 7, top[0].Reserved)

	top, err = reports.TopReserved(ctx, 1000)
	require.NoError(t, err)
	assert.Len(t, top, 7)

	stats, err := reports.RoleStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.RoleStat{
		{Role: models.RoleCustomer, Count: 2},
		{Role: models.RoleAdmin, Count: 1},
	}, stats)
}
