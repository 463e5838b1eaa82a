package models

import "time"

// Event types
const (
	EventTypeStockChanged   = "STOCK_CHANGED"
	EventTypeProductDeleted = "PRODUCT_DELETED"
	EventTypeUserRegistered = "USER_REGISTERED"
)

// Stock change reasons
const (
	ReasonProductCreated = "product_created"
	ReasonProductUpdated = "product_updated"
	ReasonStockSet       = "stock_set"
	ReasonCartAdd        = "cart_add"
	ReasonCartQuantity   = "cart_quantity"
	ReasonCartRemove     = "cart_remove"
	ReasonCartClear      = "cart_clear"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// StockChangedEvent published after a committed stock mutation
type StockChangedEvent struct {
	BaseEvent
	ProductID int64  `json:"product_id"`
	Delta     int    `json:"delta"`
	Stock     int    `json:"stock"`
	Reason    string `json:"reason"`
}

// ProductDeletedEvent published when a product and its cart line are removed
type ProductDeletedEvent struct {
	BaseEvent
	ProductID int64 `json:"product_id"`
}

// UserRegisteredEvent published on successful registration
type UserRegisteredEvent struct {
	BaseEvent
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}
