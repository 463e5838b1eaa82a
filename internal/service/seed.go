package service

import (
	"storefront-service/internal/models"
	"storefront-service/internal/store"

	"github.com/shopspring/decimal"
)

const (
	SeedAdminUsername = "admin"
	seedCategory      = "Electrónicos"
)

// BuildSeed returns the admin account and sample catalog written to a new database
func BuildSeed(hasher *PasswordHasher, adminPassword, adminEmail string) (*store.Seed, error) {
	users := &UserService{hasher: hasher}
	admin, err := users.NewUser(SeedAdminUsername, adminPassword, models.RoleAdmin, adminEmail)
	if err != nil {
		return nil, err
	}

	return &store.Seed{
		Admin: admin,
		Products: []models.Product{
			{
				Name:        "Laptop Gaming",
				Description: "Laptop para gaming de alta performance",
				Price:       decimal.RequireFromString("1299.99"),
				Stock:       10,
				Category:    seedCategory,
			},
			{
				Name:        "Smartphone Android",
				Description: "Teléfono inteligente con Android 13",
				Price:       decimal.RequireFromString("499.99"),
				Stock:       25,
				Category:    seedCategory,
			},
			{
				Name:        "Tablet 10 pulgadas",
				Description: "Tablet perfecta para trabajo y entretenimiento",
				Price:       decimal.RequireFromString("299.99"),
				Stock:       15,
				Category:    seedCategory,
			},
		},
	}, nil
}
