package services

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"catalog/internal/models"
	"catalog/internal/repositories"
	"catalog/internal/validation"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Default values for listing operations.
const (
	defaultPage         = 1
	defaultPageSize     = 20
	defaultLowStock     = 10
	defaultPopularLimit = 10
)

// EventPublisher publishes catalog events. *rabbitmq.Client satisfies it.
type EventPublisher interface {
	Publish(routingKey string, body []byte) error
}

// ProductService orchestrates validation, uniqueness checks and store
// access for products. It holds no product state between calls; every
// read goes to the repository.
type ProductService struct {
	repo      repositories.ProductRepository
	validator *validation.ProductValidator
	events    EventPublisher
	logger    *zap.Logger
}

// NewProductService creates a ProductService. events may be nil, in which
// case no events are published.
func NewProductService(repo repositories.ProductRepository, validator *validation.ProductValidator, events EventPublisher, logger *zap.Logger) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{
		repo:      repo,
		validator: validator,
		events:    events,
		logger:    logger,
	}
}

// ListQuery selects, filters and paginates a product listing.
type ListQuery struct {
	Page     int
	Limit    int
	Category string
	Status   models.ProductStatus
	Search   string
	OrderBy  string
	Order    string
}

// Pagination describes the page served and the filtered total.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// ProductPage is one page of a product listing.
type ProductPage struct {
	Products   []models.ProductSummary `json:"products"`
	Pagination Pagination              `json:"pagination"`
}

// List returns one page of products. The total honors the same filters as
// the page itself. When a search keyword is given it replaces the
// category/status filters, matching the keyword against name, description
// and brand.
func (s *ProductService) List(ctx context.Context, q ListQuery) (*ProductPage, error) {
	page := q.Page
	if page < 1 {
		page = defaultPage
	}
	limit := q.Limit
	if limit < 1 {
		limit = defaultPageSize
	}
	offset := (page - 1) * limit

	var (
		products []models.Product
		total    int64
		err      error
	)
	if q.Search != "" {
		var matches []models.Product
		matches, err = s.repo.Search(ctx, q.Search)
		if err != nil {
			return nil, storeError("list products", err)
		}
		total = int64(len(matches))
		products = pageOf(matches, offset, limit)
	} else {
		opts := repositories.ListOptions{
			Category: q.Category,
			Status:   q.Status,
			OrderBy:  q.OrderBy,
			Order:    q.Order,
			Limit:    limit,
			Offset:   offset,
		}
		products, err = s.repo.FindAll(ctx, opts)
		if err != nil {
			return nil, storeError("list products", err)
		}
		total, err = s.repo.Count(ctx, opts)
		if err != nil {
			return nil, storeError("count products", err)
		}
	}

	summaries := make([]models.ProductSummary, 0, len(products))
	for i := range products {
		summaries = append(summaries, products[i].ToSummary())
	}

	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	return &ProductPage{
		Products: summaries,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    int64(page*limit) < total,
			HasPrev:    page > 1,
		},
	}, nil
}

// GetByID returns a product or ErrNotFound.
func (s *ProductService) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError("get product", err)
	}
	if product == nil {
		return nil, ErrNotFound
	}
	return product, nil
}

// GetBySKU returns a product or ErrNotFound.
func (s *ProductService) GetBySKU(ctx context.Context, sku string) (*models.Product, error) {
	if sku == "" {
		return nil, &ValidationError{Errors: []string{"sku cannot be empty"}}
	}
	product, err := s.repo.FindBySKU(ctx, sku)
	if err != nil {
		return nil, storeError("get product by sku", err)
	}
	if product == nil {
		return nil, ErrNotFound
	}
	return product, nil
}

// GetByCategory returns the products of one category, newest first.
func (s *ProductService) GetByCategory(ctx context.Context, category string) ([]models.ProductSummary, error) {
	if category == "" {
		return nil, &ValidationError{Errors: []string{"category cannot be empty"}}
	}
	products, err := s.repo.FindByCategory(ctx, category)
	if err != nil {
		return nil, storeError("list category", err)
	}
	return summarize(products), nil
}

// Search returns the products matching a keyword.
func (s *ProductService) Search(ctx context.Context, keyword string) ([]models.ProductSummary, error) {
	if keyword == "" {
		return nil, &ValidationError{Errors: []string{"search keyword cannot be empty"}}
	}
	products, err := s.repo.Search(ctx, keyword)
	if err != nil {
		return nil, storeError("search products", err)
	}
	return summarize(products), nil
}

// Create validates the product, pre-checks SKU uniqueness and persists it.
// The pre-check gives a friendlier error; the store's unique constraint is
// the authoritative backstop and surfaces as ErrDuplicateSKU as well.
func (s *ProductService) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if product.Status == "" {
		product.Status = models.StatusActive
	}

	if result := s.validator.Validate(product); !result.Valid {
		return nil, &ValidationError{Errors: result.Errors}
	}

	if product.SKU != "" {
		existing, err := s.repo.FindBySKU(ctx, product.SKU)
		if err != nil {
			return nil, storeError("check sku", err)
		}
		if existing != nil {
			return nil, ErrDuplicateSKU
		}
	}

	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return nil, storeError("create product", err)
	}

	s.logger.Info("product created",
		zap.Uint("id", created.ID),
		zap.String("sku", created.SKU),
		zap.String("name", created.Name))
	s.publishEvent("catalog.product.created", map[string]interface{}{
		"product_id": created.ID,
		"sku":        created.SKU,
		"name":       created.Name,
		"status":     created.Status,
	})
	return created, nil
}

// ProductUpdate is a partial field replacement. Nil pointers (and nil
// slices) leave the field untouched.
type ProductUpdate struct {
	Name        *string               `json:"name"`
	Description *string               `json:"description"`
	Price       *float64              `json:"price"`
	Category    *string               `json:"category"`
	Brand       *string               `json:"brand"`
	SKU         *string               `json:"sku"`
	Stock       *int                  `json:"stock"`
	Images      []string              `json:"images"`
	Status      *models.ProductStatus `json:"status"`
	Weight      *float64              `json:"weight"`
	Dimensions  *models.Dimensions    `json:"dimensions"`
	Tags        []string              `json:"tags"`
}

// fields returns the column map for the store adapter's dynamic update.
func (u *ProductUpdate) fields() map[string]interface{} {
	fields := make(map[string]interface{})
	if u.Name != nil {
		fields["name"] = *u.Name
	}
	if u.Description != nil {
		fields["description"] = *u.Description
	}
	if u.Price != nil {
		fields["price"] = *u.Price
	}
	if u.Category != nil {
		fields["category"] = *u.Category
	}
	if u.Brand != nil {
		fields["brand"] = *u.Brand
	}
	if u.SKU != nil {
		fields["sku"] = *u.SKU
	}
	if u.Stock != nil {
		fields["stock"] = *u.Stock
	}
	if u.Images != nil {
		fields["images"] = models.StringList(u.Images)
	}
	if u.Status != nil {
		fields["status"] = *u.Status
	}
	if u.Weight != nil {
		fields["weight"] = *u.Weight
	}
	if u.Dimensions != nil {
		fields["dimensions"] = *u.Dimensions
	}
	if u.Tags != nil {
		fields["tags"] = models.StringList(u.Tags)
	}
	return fields
}

// applyTo merges the update into a copy of the existing entity, so the
// merged record can be validated before anything is written.
func (u *ProductUpdate) applyTo(p *models.Product) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.Category != nil {
		p.Category = *u.Category
	}
	if u.Brand != nil {
		p.Brand = *u.Brand
	}
	if u.SKU != nil {
		p.SKU = *u.SKU
	}
	if u.Stock != nil {
		p.Stock = *u.Stock
	}
	if u.Images != nil {
		p.Images = models.StringList(u.Images)
	}
	if u.Status != nil {
		p.Status = *u.Status
	}
	if u.Weight != nil {
		p.Weight = u.Weight
	}
	if u.Dimensions != nil {
		p.Dimensions = *u.Dimensions
	}
	if u.Tags != nil {
		p.Tags = models.StringList(u.Tags)
	}
}

// Update loads the existing record, pre-checks a changed SKU, re-validates
// the merged entity and then writes only the supplied fields. A partial
// update can therefore never leave the record violating an invariant.
func (s *ProductService) Update(ctx context.Context, id uint, update ProductUpdate) (*models.Product, error) {
	fields := update.fields()
	if len(fields) == 0 {
		return nil, repositories.ErrNoFieldsToUpdate
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError("get product", err)
	}
	if existing == nil {
		return nil, ErrNotFound
	}

	if update.SKU != nil && *update.SKU != "" && *update.SKU != existing.SKU {
		conflict, err := s.repo.FindBySKU(ctx, *update.SKU)
		if err != nil {
			return nil, storeError("check sku", err)
		}
		if conflict != nil && conflict.ID != id {
			return nil, ErrDuplicateSKU
		}
	}

	merged := *existing
	update.applyTo(&merged)
	if result := s.validator.Validate(&merged); !result.Valid {
		return nil, &ValidationError{Errors: result.Errors}
	}

	updated, err := s.repo.Update(ctx, id, fields)
	if err != nil {
		return nil, storeError("update product", err)
	}
	if updated == nil {
		// Deleted between the existence check and the write.
		return nil, ErrNotFound
	}

	s.logger.Info("product updated", zap.Uint("id", id), zap.Int("fields", len(fields)))
	return updated, nil
}

// Delete checks existence first so an absent id reports ErrNotFound
// instead of a silent no-op.
func (s *ProductService) Delete(ctx context.Context, id uint) error {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return storeError("get product", err)
	}
	if existing == nil {
		return ErrNotFound
	}

	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		return storeError("delete product", err)
	}
	if !removed {
		return ErrNotFound
	}

	s.logger.Info("product deleted", zap.Uint("id", id), zap.String("sku", existing.SKU))
	s.publishEvent("catalog.product.deleted", map[string]interface{}{
		"product_id": id,
		"sku":        existing.SKU,
	})
	return nil
}

// StockOperation selects how AdjustStock interprets the quantity.
type StockOperation string

const (
	StockSet      StockOperation = "set"
	StockAdd      StockOperation = "add"
	StockSubtract StockOperation = "subtract"
)

// AdjustStock sets or shifts a product's stock. add and subtract go
// through the store's atomic conditional update and fail with
// ErrInsufficientStock rather than clamping; set writes the absolute
// value and rejects negative targets up front.
func (s *ProductService) AdjustStock(ctx context.Context, id uint, quantity int, op StockOperation) (*models.Product, error) {
	var (
		updated *models.Product
		err     error
	)
	switch op {
	case StockSet:
		if quantity < 0 {
			return nil, &ValidationError{Errors: []string{"stock cannot be negative"}}
		}
		updated, err = s.repo.SetStock(ctx, id, quantity)
	case StockAdd:
		updated, err = s.repo.AdjustStock(ctx, id, quantity)
	case StockSubtract:
		updated, err = s.repo.AdjustStock(ctx, id, -quantity)
	default:
		return nil, &ValidationError{Errors: []string{"operation must be one of set, add or subtract"}}
	}
	if err != nil {
		return nil, storeError("adjust stock", err)
	}
	if updated == nil {
		return nil, ErrNotFound
	}

	s.logger.Info("stock adjusted",
		zap.Uint("id", id),
		zap.String("operation", string(op)),
		zap.Int("quantity", quantity),
		zap.Int("stock", updated.Stock))
	s.publishEvent("catalog.stock.adjusted", map[string]interface{}{
		"product_id": id,
		"operation":  op,
		"quantity":   quantity,
		"stock":      updated.Stock,
	})
	return updated, nil
}

// BatchUpdateStatus sets the status on a non-empty id list.
func (s *ProductService) BatchUpdateStatus(ctx context.Context, ids []uint, status models.ProductStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, &ValidationError{Errors: []string{"product id list cannot be empty"}}
	}
	if !status.Valid() {
		return 0, &ValidationError{Errors: []string{"status must be one of active, inactive or discontinued"}}
	}

	affected, err := s.repo.BatchUpdateStatus(ctx, ids, status)
	if err != nil {
		return 0, storeError("batch update status", err)
	}
	s.logger.Info("batch status update",
		zap.Int("requested", len(ids)),
		zap.Int64("affected", affected),
		zap.String("status", string(status)))
	return affected, nil
}

// Stats returns the aggregate catalog summary.
func (s *ProductService) Stats(ctx context.Context) (*repositories.ProductStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, storeError("get stats", err)
	}
	return stats, nil
}

// LowStock lists products with stock below the threshold (default 10).
func (s *ProductService) LowStock(ctx context.Context, threshold int) ([]models.ProductSummary, error) {
	if threshold <= 0 {
		threshold = defaultLowStock
	}
	products, err := s.repo.FindLowStock(ctx, threshold)
	if err != nil {
		return nil, storeError("list low stock", err)
	}
	return summarize(products), nil
}

// Popular lists the newest active products, up to limit (default 10).
func (s *ProductService) Popular(ctx context.Context, limit int) ([]models.ProductSummary, error) {
	if limit <= 0 {
		limit = defaultPopularLimit
	}
	products, err := s.repo.FindAll(ctx, repositories.ListOptions{
		Status:  models.StatusActive,
		OrderBy: "created_at",
		Order:   "DESC",
		Limit:   limit,
	})
	if err != nil {
		return nil, storeError("list popular", err)
	}
	return summarize(products), nil
}

// publishEvent sends a catalog event, best effort: a publish failure is
// logged and never fails the operation that triggered it.
func (s *ProductService) publishEvent(routingKey string, payload map[string]interface{}) {
	if s.events == nil {
		return
	}
	payload["event_id"] = uuid.New().String()
	payload["event_type"] = routingKey
	payload["occurred_at"] = time.Now().Format(time.RFC3339)

	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("failed to marshal catalog event", zap.String("event", routingKey), zap.Error(err))
		return
	}
	if err := s.events.Publish(routingKey, body); err != nil {
		s.logger.Warn("failed to publish catalog event", zap.String("event", routingKey), zap.Error(err))
	}
}

func summarize(products []models.Product) []models.ProductSummary {
	summaries := make([]models.ProductSummary, 0, len(products))
	for i := range products {
		summaries = append(summaries, products[i].ToSummary())
	}
	return summaries
}

func pageOf(products []models.Product, offset, limit int) []models.Product {
	if offset >= len(products) {
		return []models.Product{}
	}
	products = products[offset:]
	if limit < len(products) {
		products = products[:limit]
	}
	return products
}
