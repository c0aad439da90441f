package repositories

import (
	"context"
	"errors"

	"catalog/internal/models"
)

// Store-level error kinds the service layer maps into its own taxonomy.
var (
	// ErrDuplicateKey is returned when the store rejects the unique SKU
	// constraint. The service pre-checks SKUs for a friendlier message,
	// but this is the authoritative backstop.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrNoFieldsToUpdate is returned when Update is called with an
	// empty field set.
	ErrNoFieldsToUpdate = errors.New("no fields to update")

	// ErrInsufficientStock is returned when a stock adjustment would
	// leave the stock negative. The stored value is left untouched.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// ListOptions filters, sorts and paginates a product listing. Zero values
// mean "no constraint". OrderBy is checked against the sortable-column
// allow-list before it reaches clause text; see query.go.
type ListOptions struct {
	Category string
	Status   models.ProductStatus
	OrderBy  string
	Order    string
	Limit    int
	Offset   int
}

// CategoryCount is one row of the per-category product count.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// ProductStats is the aggregate catalog summary. The counts come from
// independent queries, so under concurrent writes they may be mutually
// inconsistent at the instant of composition; that approximation is
// accepted. Inactive counts everything that is not active, discontinued
// included.
type ProductStats struct {
	Total      int64           `json:"total"`
	Active     int64           `json:"active"`
	Inactive   int64           `json:"inactive"`
	LowStock   int64           `json:"low_stock"`
	Categories []CategoryCount `json:"categories"`
}

// ProductRepository is the only component that touches the persistent
// store. Find methods return (nil, nil) when no record matches.
type ProductRepository interface {
	FindAll(ctx context.Context, opts ListOptions) ([]models.Product, error)

	// Count returns the number of products matching the category/status
	// filters in opts, ignoring ordering and pagination.
	Count(ctx context.Context, opts ListOptions) (int64, error)

	FindByID(ctx context.Context, id uint) (*models.Product, error)
	FindBySKU(ctx context.Context, sku string) (*models.Product, error)
	FindByCategory(ctx context.Context, category string) ([]models.Product, error)

	// Search matches the keyword against name, description and brand.
	// Wildcard characters in the keyword match literally.
	Search(ctx context.Context, keyword string) ([]models.Product, error)

	// Create inserts the product and re-reads it by the store-assigned
	// id, so the returned entity reflects exactly what is durable.
	Create(ctx context.Context, product *models.Product) (*models.Product, error)

	// Update writes only the supplied columns plus updated_at. Field
	// names are checked against the updatable-column allow-list. Returns
	// (nil, nil) when no record matched the id.
	Update(ctx context.Context, id uint, fields map[string]interface{}) (*models.Product, error)

	// Delete reports whether exactly one row was removed.
	Delete(ctx context.Context, id uint) (bool, error)

	// AdjustStock applies a signed delta to the stock as one atomic
	// conditional update, so concurrent adjustments on the same id
	// cannot lose each other's effect. Returns ErrInsufficientStock when
	// the result would be negative and (nil, nil) when the id is absent.
	AdjustStock(ctx context.Context, id uint, delta int) (*models.Product, error)

	// SetStock writes an absolute non-negative stock value.
	SetStock(ctx context.Context, id uint, value int) (*models.Product, error)

	// BatchUpdateStatus sets the status on every listed id in a single
	// statement and returns the affected count. An empty id list returns
	// 0 without touching the store.
	BatchUpdateStatus(ctx context.Context, ids []uint, status models.ProductStatus) (int64, error)

	FindLowStock(ctx context.Context, threshold int) ([]models.Product, error)

	Stats(ctx context.Context) (*ProductStats, error)
}
