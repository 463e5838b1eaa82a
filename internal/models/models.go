package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Catalog defaults
const (
	DefaultCategory      = "General"
	DefaultOrderQuantity = 1
	RoleAdmin            = "admin"
	RoleCustomer         = "cliente"
)

// Product represents a product in the catalog
type Product struct {
	ID              int64           `db:"id" json:"id"`
	Name            string          `db:"name" json:"name"`
	Description     string          `db:"description" json:"description"`
	Price           decimal.Decimal `db:"price" json:"price"`
	ImagePath       string          `db:"image_path" json:"image_path,omitempty"`
	Stock           int             `db:"stock" json:"stock"`
	DefaultQuantity int             `db:"default_quantity" json:"default_quantity"`
	Category        string          `db:"category" json:"category"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

// User represents a registered account. PasswordHash and Salt never leave the service layer.
type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Salt         string    `db:"salt" json:"-"`
	Role         string    `db:"role" json:"role"`
	Email        string    `db:"email" json:"email,omitempty"`
	RegisteredAt time.Time `db:"registered_at" json:"registered_at"`
}

// CartLine is a stock reservation for one product
type CartLine struct {
	ID        int64     `db:"id" json:"id"`
	ProductID int64     `db:"product_id" json:"product_id"`
	Quantity  int       `db:"quantity" json:"quantity"`
	AddedAt   time.Time `db:"added_at" json:"added_at"`
}

// CartItem is a cart line joined with its product
type CartItem struct {
	ProductID   int64           `db:"product_id" json:"product_id"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description"`
	Price       decimal.Decimal `db:"price" json:"price"`
	ImagePath   string          `db:"image_path" json:"image_path,omitempty"`
	Stock       int             `db:"stock" json:"stock"`
	Quantity    int             `db:"quantity" json:"quantity"`
	AddedAt     time.Time       `db:"added_at" json:"added_at"`
}

// Subtotal returns price times quantity
func (ci CartItem) Subtotal() decimal.Decimal {
	return ci.Price.Mul(decimal.NewFromInt(int64(ci.Quantity)))
}

// StockChange describes the outcome of a stock mutation. Quantity is the cart line
// quantity after the change, zero when no line remains.
type StockChange struct {
	ProductID int64 `json:"product_id"`
	Delta     int   `json:"delta"`
	Stock     int   `json:"stock"`
	Quantity  int   `json:"quantity"`
}

// RoleStat counts users per role
type RoleStat struct {
	Role  string `db:"role" json:"role"`
	Count int    `db:"count" json:"count"`
}

// Overview holds store-wide totals
type Overview struct {
	TotalUsers    int             `db:"total_users" json:"total_users"`
	TotalProducts int             `db:"total_products" json:"total_products"`
	CartUnits     int             `db:"cart_units" json:"cart_units"`
	CartValue     decimal.Decimal `db:"cart_value" json:"cart_value"`
}

// ReservedProduct is a product ranked by quantity held in the cart
type ReservedProduct struct {
	ProductID int64           `db:"product_id" json:"product_id"`
	Name      string          `db:"name" json:"name"`
	Price     decimal.Decimal `db:"price" json:"price"`
	Reserved  int             `db:"reserved" json:"reserved"`
}

// Session is an authenticated login held in the session store
type Session struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsAdmin reports whether the session carries the admin role, ignoring case
func (s *Session) IsAdmin() bool {
	return strings.EqualFold(strings.TrimSpace(s.Role), RoleAdmin)
}

// NormalizeUsername lower-cases and trims a username. Every insert and lookup goes through it.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
