package service

import (
	"context"
	"errors"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidProduct     = errors.New("invalid product")
	ErrInvalidUser        = errors.New("invalid user")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrSessionNotFound    = errors.New("session not found")
	ErrForbidden          = errors.New("forbidden")
)

// EventPublisher publishes inventory and account events
type EventPublisher interface {
	PublishStockChanged(ctx context.Context, event *models.StockChangedEvent) error
	PublishProductDeleted(ctx context.Context, event *models.ProductDeletedEvent) error
	PublishUserRegistered(ctx context.Context, event *models.UserRegisteredEvent) error
}

// StockMirror is a read cache of product stock. The database stays authoritative.
type StockMirror interface {
	GetStock(ctx context.Context, productID int64) (stock int, found bool, err error)
	SetStock(ctx context.Context, productID int64, stock int) error
	DeleteStock(ctx context.Context, productID int64) error
	SyncStock(ctx context.Context, stocks map[int64]int) error
}

// SessionStore keeps login sessions with an expiry
type SessionStore interface {
	SaveSession(ctx context.Context, session *models.Session, ttl time.Duration) error
	GetSession(ctx context.Context, token string) (*models.Session, error)
	DeleteSession(ctx context.Context, token string) error
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

// notifier runs after a committed change: it writes the stock mirror, then publishes
// the event. Failures are logged only.
type notifier struct {
	mirror    StockMirror
	publisher EventPublisher
	logger    *zap.Logger
}

// mirrorStock writes the new stock to the mirror. When that fails the entry is dropped
// so reads fall back to the database instead of serving a stale value.
func (n notifier) mirrorStock(ctx context.Context, productID int64, stock int) {
	if n.mirror == nil {
		return
	}

	err := n.mirror.SetStock(ctx, productID, stock)
	if err == nil {
		util.StockMirrorUpdatesTotal.WithLabelValues(models.EventTypeStockChanged).Inc()
		return
	}
	n.logger.Warn("Failed to write stock mirror", zap.Int64("product_id", productID), zap.Error(err))

	if err := n.mirror.DeleteStock(ctx, productID); err != nil {
		n.logger.Error("Failed to evict stale stock mirror entry", zap.Int64("product_id", productID), zap.Error(err))
	}
}

func (n notifier) stockChanged(ctx context.Context, change models.StockChange, reason string) {
	if change.ProductID == 0 {
		return
	}
	n.mirrorStock(ctx, change.ProductID, change.Stock)

	if n.publisher == nil {
		return
	}

	event := &models.StockChangedEvent{
		BaseEvent: newBaseEvent(models.EventTypeStockChanged),
		ProductID: change.ProductID,
		Delta:     change.Delta,
		Stock:     change.Stock,
		Reason:    reason,
	}
	if err := n.publisher.PublishStockChanged(ctx, event); err != nil {
		util.EventsPublishFailedTotal.WithLabelValues(models.EventTypeStockChanged).Inc()
		n.logger.Error("Failed to publish StockChanged event",
			zap.Int64("product_id", change.ProductID),
			zap.String("reason", reason),
			zap.Error(err))
		return
	}
	util.EventsPublishedTotal.WithLabelValues(models.EventTypeStockChanged).Inc()
}

func (n notifier) productDeleted(ctx context.Context, productID int64) {
	if n.mirror != nil {
		if err := n.mirror.DeleteStock(ctx, productID); err != nil {
			n.logger.Error("Failed to remove product from stock mirror", zap.Int64("product_id", productID), zap.Error(err))
		} else {
			util.StockMirrorUpdatesTotal.WithLabelValues(models.EventTypeProductDeleted).Inc()
		}
	}

	if n.publisher == nil {
		return
	}

	event := &models.ProductDeletedEvent{
		BaseEvent: newBaseEvent(models.EventTypeProductDeleted),
		ProductID: productID,
	}
	if err := n.publisher.PublishProductDeleted(ctx, event); err != nil {
		util.EventsPublishFailedTotal.WithLabelValues(models.EventTypeProductDeleted).Inc()
		n.logger.Error("Failed to publish ProductDeleted event", zap.Int64("product_id", productID), zap.Error(err))
		return
	}
	util.EventsPublishedTotal.WithLabelValues(models.EventTypeProductDeleted).Inc()
}

func (n notifier) userRegistered(ctx context.Context, u *models.User) {
	if n.publisher == nil {
		return
	}

	event := &models.UserRegisteredEvent{
		BaseEvent: newBaseEvent(models.EventTypeUserRegistered),
		UserID:    u.ID,
		Username:  u.Username,
		Role:      u.Role,
	}
	if err := n.publisher.PublishUserRegistered(ctx, event); err != nil {
		util.EventsPublishFailedTotal.WithLabelValues(models.EventTypeUserRegistered).Inc()
		n.logger.Error("Failed to publish UserRegistered event", zap.String("username", u.Username), zap.Error(err))
		return
	}
	util.EventsPublishedTotal.WithLabelValues(models.EventTypeUserRegistered).Inc()
}
