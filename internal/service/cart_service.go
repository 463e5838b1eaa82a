package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// CartService handles stock reservations held in the cart
type CartService struct {
	store    *store.Store
	notifier notifier
	logger   *zap.Logger
}

// NewCartService creates a new cart service. mirror and publisher may be nil.
func NewCartService(store *store.Store, mirror StockMirror, publisher EventPublisher) *CartService {
	logger := util.GetLogger()
	return &CartService{
		store:    store,
		notifier: notifier{mirror: mirror, publisher: publisher, logger: logger},
		logger:   logger,
	}
}

// CartItemRequest represents a request to reserve a product
type CartItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}

// Cart is the cart contents with its total
type Cart struct {
	Items []models.CartItem `json:"items"`
	Total decimal.Decimal   `json:"total"`
}

// AddItem reserves quantity units of a product
func (s *CartService) AddItem(ctx context.Context, productID int64, quantity int) (*models.StockChange, error) {
	ctx, span := util.StartSpan(ctx, "CartService.AddItem",
		attribute.Int64("product_id", productID),
		attribute.Int("quantity", quantity))
	defer span.End()

	start := time.Now()
	defer func() {
		util.CartReserveLatency.Observe(time.Since(start).Seconds())
	}()

	change, err := s.store.AddToCart(ctx, productID, quantity)
	if err != nil {
		s.recordReservationFailure(productID, quantity, err)
		return nil, err
	}

	util.CartReservationsTotal.WithLabelValues("reserved").Inc()
	s.logger.Info("Stock reserved",
		zap.Int64("product_id", productID),
		zap.Int("quantity", quantity),
		zap.Int("stock", change.Stock))
	s.notifier.stockChanged(ctx, change, models.ReasonCartAdd)
	return &change, nil
}

// SetQuantity changes the reserved quantity of a cart line, re-checking available stock
func (s *CartService) SetQuantity(ctx context.Context, productID int64, quantity int) (*models.StockChange, error) {
	ctx, span := util.StartSpan(ctx, "CartService.SetQuantity",
		attribute.Int64("product_id", productID),
		attribute.Int("quantity", quantity))
	defer span.End()

	change, err := s.store.SetCartQuantity(ctx, productID, quantity)
	if err != nil {
		s.recordReservationFailure(productID, quantity, err)
		return nil, err
	}

	if change.Delta > 0 {
		util.StockReleasedTotal.Add(float64(change.Delta))
	}
	util.CartReservationsTotal.WithLabelValues("updated").Inc()
	s.logger.Info("Cart quantity updated",
		zap.Int64("product_id", productID),
		zap.Int("quantity", quantity),
		zap.Int("stock", change.Stock))
	if change.Delta != 0 {
		s.notifier.stockChanged(ctx, change, models.ReasonCartQuantity)
	}
	return &change, nil
}

func (s *CartService) recordReservationFailure(productID int64, quantity int, err error) {
	switch {
	case errors.Is(err, store.ErrInsufficientStock):
		util.CartReservationsTotal.WithLabelValues("insufficient_stock").Inc()
		s.logger.Info("Insufficient stock for reservation",
			zap.Int64("product_id", productID),
			zap.Int("quantity", quantity))
	case errors.Is(err, store.ErrProductNotFound), errors.Is(err, store.ErrCartLineNotFound),
		errors.Is(err, store.ErrInvalidQuantity):
		util.CartReservationsTotal.WithLabelValues("rejected").Inc()
	default:
		util.CartReservationsTotal.WithLabelValues("error").Inc()
		s.logger.Error("Cart reservation failed", zap.Int64("product_id", productID), zap.Error(err))
	}
}

// RemoveItem deletes the line of a product and releases its stock. Zero means there was no line.
func (s *CartService) RemoveItem(ctx context.Context, productID int64) (int64, error) {
	ctx, span := util.StartSpan(ctx, "CartService.RemoveItem", attribute.Int64("product_id", productID))
	defer span.End()

	change, affected, err := s.store.RemoveFromCart(ctx, productID)
	if err != nil {
		s.logger.Error("Failed to remove cart line", zap.Int64("product_id", productID), zap.Error(err))
		return 0, fmt.Errorf("failed to remove cart line: %w", err)
	}
	if affected == 0 {
		return 0, nil
	}

	util.StockReleasedTotal.Add(float64(change.Delta))
	s.logger.Info("Cart line removed", zap.Int64("product_id", productID), zap.Int("released", change.Delta))
	s.notifier.stockChanged(ctx, change, models.ReasonCartRemove)
	return affected, nil
}

// Clear releases every cart line and empties the cart, returning the number of lines released
func (s *CartService) Clear(ctx context.Context) (int, error) {
	ctx, span := util.StartSpan(ctx, "CartService.Clear")
	defer span.End()

	changes, err := s.store.ClearCart(ctx)
	if err != nil {
		s.logger.Error("Failed to clear cart", zap.Error(err))
		return 0, fmt.Errorf("failed to clear cart: %w", err)
	}

	for _, change := range changes {
		util.StockReleasedTotal.Add(float64(change.Delta))
		s.notifier.stockChanged(ctx, change, models.ReasonCartClear)
	}
	s.logger.Info("Cart cleared", zap.Int("lines", len(changes)))
	return len(changes), nil
}

// Items lists the cart, most recently added first
func (s *CartService) Items(ctx context.Context) ([]models.CartItem, error) {
	return s.store.GetCartItems(ctx)
}

// Total sums price times quantity over the cart
func (s *CartService) Total(ctx context.Context) (decimal.Decimal, error) {
	return s.store.GetCartTotal(ctx)
}

// GetCart returns the cart items together with the total
func (s *CartService) GetCart(ctx context.Context) (*Cart, error) {
	items, err := s.store.GetCartItems(ctx)
	if err != nil {
		return nil, err
	}
	total, err := s.store.GetCartTotal(ctx)
	if err != nil {
		return nil, err
	}
	return &Cart{Items: items, Total: total}, nil
}
