package worker

import (
	"context"

	"storefront-service/internal/broker"
	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// MirrorWriter updates the stock mirror
type MirrorWriter interface {
	SetStock(ctx context.Context, productID int64, stock int) error
	DeleteStock(ctx context.Context, productID int64) error
}

// StockMirrorWorker keeps the stock mirror in step with inventory events
type StockMirrorWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	mirror       MirrorWriter
	logger       *zap.Logger
}

// NewStockMirrorWorker creates a new stock mirror worker
func NewStockMirrorWorker(consumer *broker.Consumer, mirror MirrorWriter) *StockMirrorWorker {
	w := &StockMirrorWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		mirror:       mirror,
		logger:       util.GetLogger(),
	}

	w.eventHandler.OnStockChanged(w.HandleStockChanged)
	w.eventHandler.OnProductDeleted(w.HandleProductDeleted)
	return w
}

// Start starts the worker
func (w *StockMirrorWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting stock mirror worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *StockMirrorWorker) Stop() error {
	w.logger.Info("Stopping stock mirror worker")
	return w.consumer.Close()
}

// HandleStockChanged writes the new stock of a product to the mirror
func (w *StockMirrorWorker) HandleStockChanged(ctx context.Context, event *models.StockChangedEvent) error {
	if err := w.mirror.SetStock(ctx, event.ProductID, event.Stock); err != nil {
		w.logger.Error("Failed to update stock mirror",
			zap.Int64("product_id", event.ProductID),
			zap.Error(err))
		return err
	}

	util.StockMirrorUpdatesTotal.WithLabelValues(models.EventTypeStockChanged).Inc()
	return nil
}

// HandleProductDeleted drops a deleted product from the mirror
func (w *StockMirrorWorker) HandleProductDeleted(ctx context.Context, event *models.ProductDeletedEvent) error {
	if err := w.mirror.DeleteStock(ctx, event.ProductID); err != nil {
		w.logger.Error("Failed to remove product from stock mirror",
			zap.Int64("product_id", event.ProductID),
			zap.Error(err))
		return err
	}

	util.StockMirrorUpdatesTotal.WithLabelValues(models.EventTypeProductDeleted).Inc()
	return nil
}
