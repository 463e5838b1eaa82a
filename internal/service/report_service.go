package service

import (
	"context"

	"storefront-service/internal/models"
	"storefront-service/internal/store"
)

const (
	DefaultTopReservedLimit = 5
	maxTopReservedLimit     = 100
)

// ReportService serves read-only store statistics
type ReportService struct {
	store *store.Store
}

func NewReportService(store *store.Store) *ReportService {
	return &ReportService{store: store}
}

// Overview returns user, product and cart totals
func (s *ReportService) Overview(ctx context.Context) (*models.Overview, error) {
	return s.store.GetOverview(ctx)
}

// TopReserved returns the products with the most units held in the cart
func (s *ReportService) TopReserved(ctx context.Context, limit int) ([]models.ReservedProduct, error) {
	if limit <= 0 {
		limit = DefaultTopReservedLimit
	}
	if limit > maxTopReservedLimit {
		limit = maxTopReservedLimit
	}
	return s.store.GetTopReserved(ctx, limit)
}

// RoleStats counts users per role
func (s *ReportService) RoleStats(ctx context.Context) ([]models.RoleStat, error) {
	return s.store.GetRoleStats(ctx)
}
