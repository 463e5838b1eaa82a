package service

import (
	"context"
	"fmt"
	"strings"

	"storefront-service/internal/models"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// CatalogService handles product business logic
type CatalogService struct {
	store    *store.Store
	mirror   StockMirror
	notifier notifier
	logger   *zap.Logger
}

// NewCatalogService creates a new catalog service. mirror and publisher may be nil.
func NewCatalogService(store *store.Store, mirror StockMirror, publisher EventPublisher) *CatalogService {
	logger := util.GetLogger()
	return &CatalogService{
		store:    store,
		mirror:   mirror,
		notifier: notifier{mirror: mirror, publisher: publisher, logger: logger},
		logger:   logger,
	}
}

// ProductRequest carries the editable fields of a product
type ProductRequest struct {
	Name            string          `json:"name" binding:"required"`
	Description     string          `json:"description"`
	Price           decimal.Decimal `json:"price"`
	ImagePath       string          `json:"image_path"`
	Stock           int             `json:"stock"`
	DefaultQuantity int             `json:"default_quantity"`
	Category        string          `json:"category"`
}

func (r *ProductRequest) validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if r.Price.IsNegative() {
		return fmt.Errorf("%w: price cannot be negative", ErrInvalidProduct)
	}
	if r.Stock < 0 {
		return store.ErrNegativeStock
	}
	if r.DefaultQuantity < 0 {
		return fmt.Errorf("%w: default quantity must be positive", ErrInvalidProduct)
	}
	return nil
}

func (r *ProductRequest) toProduct() *models.Product {
	return &models.Product{
		Name:            strings.TrimSpace(r.Name),
		Description:     r.Description,
		Price:           r.Price,
		ImagePath:       r.ImagePath,
		Stock:           r.Stock,
		DefaultQuantity: r.DefaultQuantity,
		Category:        strings.TrimSpace(r.Category),
	}
}

// CreateProduct validates and stores a new product
func (s *CatalogService) CreateProduct(ctx context.Context, req *ProductRequest) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.CreateProduct")
	defer span.End()

	if err := req.validate(); err != nil {
		return nil, err
	}

	product := req.toProduct()
	if err := s.store.CreateProduct(ctx, product); err != nil {
		s.logger.Error("Failed to create product", zap.String("name", product.Name), zap.Error(err))
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	util.ProductsCreatedTotal.Inc()
	s.logger.Info("Product created", zap.Int64("product_id", product.ID), zap.String("name", product.Name))

	s.notifier.stockChanged(ctx, models.StockChange{
		ProductID: product.ID,
		Delta:     product.Stock,
		Stock:     product.Stock,
	}, models.ReasonProductCreated)

	return product, nil
}

// GetProduct retrieves a product by ID
func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	return s.store.GetProductByID(ctx, id)
}

// ListProducts returns the catalog ordered by name
func (s *CatalogService) ListProducts(ctx context.Context) ([]models.Product, error) {
	return s.store.GetProducts(ctx)
}

// ListByCategory returns the products of one category
func (s *CatalogService) ListByCategory(ctx context.Context, category string) ([]models.Product, error) {
	return s.store.GetProductsByCategory(ctx, category)
}

// Search matches a term against product name and description
func (s *CatalogService) Search(ctx context.Context, term string) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.Search", attribute.String("term", term))
	defer span.End()

	return s.store.SearchProducts(ctx, strings.TrimSpace(term))
}

// Categories returns the distinct product categories
func (s *CatalogService) Categories(ctx context.Context) ([]string, error) {
	return s.store.GetCategories(ctx)
}

// UpdateProduct replaces the fields of a product. A zero count means the product does not exist.
func (s *CatalogService) UpdateProduct(ctx context.Context, id int64, req *ProductRequest) (int64, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.UpdateProduct", attribute.Int64("product_id", id))
	defer span.End()

	if err := req.validate(); err != nil {
		return 0, err
	}

	product := req.toProduct()
	product.ID = id

	change, err := s.store.UpdateProduct(ctx, product)
	if err != nil {
		s.logger.Error("Failed to update product", zap.Int64("product_id", id), zap.Error(err))
		return 0, fmt.Errorf("failed to update product: %w", err)
	}
	if change == nil {
		return 0, nil
	}

	s.logger.Info("Product updated", zap.Int64("product_id", id))
	if change.Delta != 0 {
		s.notifier.stockChanged(ctx, *change, models.ReasonProductUpdated)
	}
	return 1, nil
}

// DeleteProduct removes a product together with its cart line
func (s *CatalogService) DeleteProduct(ctx context.Context, id int64) (int64, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.DeleteProduct", attribute.Int64("product_id", id))
	defer span.End()

	affected, err := s.store.DeleteProduct(ctx, id)
	if err != nil {
		s.logger.Error("Failed to delete product", zap.Int64("product_id", id), zap.Error(err))
		return 0, fmt.Errorf("failed to delete product: %w", err)
	}

	if affected > 0 {
		util.ProductsDeletedTotal.Inc()
		s.logger.Info("Product deleted", zap.Int64("product_id", id))
		s.notifier.productDeleted(ctx, id)
	}
	return affected, nil
}

// GetStock reads stock from the mirror when it has the product, otherwise from the store
func (s *CatalogService) GetStock(ctx context.Context, id int64) (int, error) {
	if s.mirror != nil {
		stock, found, err := s.mirror.GetStock(ctx, id)
		if err != nil {
			s.logger.Warn("Stock mirror read failed, using database", zap.Int64("product_id", id), zap.Error(err))
		} else if found {
			return stock, nil
		}
	}
	return s.store.GetStock(ctx, id)
}

// SetStock overwrites the stock of a product
func (s *CatalogService) SetStock(ctx context.Context, id int64, stock int) (*models.StockChange, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.SetStock", attribute.Int64("product_id", id))
	defer span.End()

	change, err := s.store.SetStock(ctx, id, stock)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Stock set", zap.Int64("product_id", id), zap.Int("stock", stock), zap.Int("delta", change.Delta))
	s.notifier.stockChanged(ctx, change, models.ReasonStockSet)
	return &change, nil
}

// SyncStockMirror copies the stock of every product into the mirror
func (s *CatalogService) SyncStockMirror(ctx context.Context) error {
	if s.mirror == nil {
		return nil
	}

	stocks, err := s.store.GetProductStocks(ctx)
	if err != nil {
		return fmt.Errorf("failed to read stock: %w", err)
	}
	if err := s.mirror.SyncStock(ctx, stocks); err != nil {
		return fmt.Errorf("failed to sync stock mirror: %w", err)
	}

	s.logger.Info("Stock mirror synced", zap.Int("products", len(stocks)))
	return nil
}
