package repositories

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"catalog/internal/models"
)

// InMemoryProductRepository is a mutex-guarded in-memory implementation of
// ProductRepository. It backs demo mode and tests; the mutex gives
// AdjustStock the same lost-update protection the SQL adapter gets from
// its conditional UPDATE.
type InMemoryProductRepository struct {
	mu       sync.RWMutex
	products map[uint]models.Product
	nextID   uint
}

// NewInMemoryProductRepository creates an empty InMemoryProductRepository.
func NewInMemoryProductRepository() *InMemoryProductRepository {
	return &InMemoryProductRepository{
		products: make(map[uint]models.Product),
		nextID:   1,
	}
}

// FindAll returns products matching the options.
func (r *InMemoryProductRepository) FindAll(ctx context.Context, opts ListOptions) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := r.filter(opts)
	sortProducts(matched, opts.OrderBy, opts.Order)

	if opts.Offset > 0 {
		if opts.Offset >= len(matched) {
			return []models.Product{}, nil
		}
		matched = matched[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(matched) {
		matched = matched[:opts.Limit]
	}
	return matched, nil
}

// Count returns the number of products matching the filters.
func (r *InMemoryProductRepository) Count(ctx context.Context, opts ListOptions) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.filter(opts))), nil
}

// FindByID returns a product by id, or (nil, nil) if absent.
func (r *InMemoryProductRepository) FindByID(ctx context.Context, id uint) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.products[id]
	if !ok {
		return nil, nil
	}
	return &product, nil
}

// FindBySKU returns a product by SKU, or (nil, nil) if absent.
func (r *InMemoryProductRepository) FindBySKU(ctx context.Context, sku string) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.products {
		if p.SKU == sku {
			product := p
			return &product, nil
		}
	}
	return nil, nil
}

// FindByCategory returns the products of one category, newest first.
func (r *InMemoryProductRepository) FindByCategory(ctx context.Context, category string) ([]models.Product, error) {
	return r.FindAll(ctx, ListOptions{Category: category})
}

// Search matches the keyword against name, description and brand.
func (r *InMemoryProductRepository) Search(ctx context.Context, keyword string) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.ToLower(keyword)
	var matched []models.Product
	for _, p := range r.products {
		if strings.Contains(strings.ToLower(p.Name), needle) ||
			strings.Contains(strings.ToLower(p.Description), needle) ||
			strings.Contains(strings.ToLower(p.Brand), needle) {
			matched = append(matched, p)
		}
	}
	sortProducts(matched, defaultOrderBy, defaultOrder)
	return matched, nil
}

// Create assigns an id and timestamps and stores the product.
func (r *InMemoryProductRepository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if product.SKU != "" {
		for _, p := range r.products {
			if p.SKU == product.SKU {
				return nil, fmt.Errorf("sku %q: %w", product.SKU, ErrDuplicateKey)
			}
		}
	}

	stored := *product
	stored.ID = r.nextID
	r.nextID++
	now := time.Now()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	if stored.Status == "" {
		stored.Status = models.StatusActive
	}
	r.products[stored.ID] = stored

	created := stored
	return &created, nil
}

// Update applies the supplied columns to the stored product.
func (r *InMemoryProductRepository) Update(ctx context.Context, id uint, fields map[string]interface{}) (*models.Product, error) {
	if err := checkUpdateFields(fields); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[id]
	if !ok {
		return nil, nil
	}

	if sku, ok := fields["sku"].(string); ok && sku != "" {
		for otherID, p := range r.products {
			if otherID != id && p.SKU == sku {
				return nil, fmt.Errorf("sku %q: %w", sku, ErrDuplicateKey)
			}
		}
	}

	if err := applyFields(&product, fields); err != nil {
		return nil, err
	}
	product.UpdatedAt = time.Now()
	r.products[id] = product

	updated := product
	return &updated, nil
}

// Delete removes a product, reporting whether one was stored.
func (r *InMemoryProductRepository) Delete(ctx context.Context, id uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return false, nil
	}
	delete(r.products, id)
	return true, nil
}

// AdjustStock applies a signed delta under the write lock.
func (r *InMemoryProductRepository) AdjustStock(ctx context.Context, id uint, delta int) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[id]
	if !ok {
		return nil, nil
	}
	newStock := product.Stock + delta
	if newStock < 0 {
		return nil, fmt.Errorf("product %d has stock %d, cannot apply %+d: %w",
			id, product.Stock, delta, ErrInsufficientStock)
	}
	product.Stock = newStock
	product.UpdatedAt = time.Now()
	r.products[id] = product

	updated := product
	return &updated, nil
}

// SetStock writes an absolute stock value.
func (r *InMemoryProductRepository) SetStock(ctx context.Context, id uint, value int) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[id]
	if !ok {
		return nil, nil
	}
	product.Stock = value
	product.UpdatedAt = time.Now()
	r.products[id] = product

	updated := product
	return &updated, nil
}

// BatchUpdateStatus sets the status on every stored id in the list.
func (r *InMemoryProductRepository) BatchUpdateStatus(ctx context.Context, ids []uint, status models.ProductStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var affected int64
	now := time.Now()
	for _, id := range ids {
		product, ok := r.products[id]
		if !ok {
			continue
		}
		product.Status = status
		product.UpdatedAt = now
		r.products[id] = product
		affected++
	}
	return affected, nil
}

// FindLowStock lists products with stock below the threshold.
func (r *InMemoryProductRepository) FindLowStock(ctx context.Context, threshold int) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []models.Product
	for _, p := range r.products {
		if p.Stock < threshold {
			matched = append(matched, p)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Stock < matched[j].Stock })
	return matched, nil
}

// Stats composes the aggregate summary.
func (r *InMemoryProductRepository) Stats(ctx context.Context) (*ProductStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &ProductStats{}
	perCategory := make(map[string]int64)
	for _, p := range r.products {
		stats.Total++
		if p.Status == models.StatusActive {
			stats.Active++
		}
		if p.Stock < lowStockThreshold {
			stats.LowStock++
		}
		perCategory[p.Category]++
	}
	stats.Inactive = stats.Total - stats.Active

	categories := make([]string, 0, len(perCategory))
	for category := range perCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	for _, category := range categories {
		stats.Categories = append(stats.Categories, CategoryCount{Category: category, Count: perCategory[category]})
	}
	return stats, nil
}

// filter returns the products matching the equality filters of opts.
// Callers hold at least the read lock.
func (r *InMemoryProductRepository) filter(opts ListOptions) []models.Product {
	matched := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		if opts.Category != "" && p.Category != opts.Category {
			continue
		}
		if opts.Status != "" && p.Status != opts.Status {
			continue
		}
		matched = append(matched, p)
	}
	return matched
}

// sortProducts orders products the way the SQL adapter would.
func sortProducts(products []models.Product, orderBy, order string) {
	if !sortableColumns[orderBy] {
		orderBy = defaultOrderBy
	}
	desc := !strings.EqualFold(order, "ASC")

	sort.Slice(products, func(i, j int) bool {
		a, b := products[i], products[j]
		if desc {
			a, b = b, a
		}
		switch orderBy {
		case "id":
			return a.ID < b.ID
		case "name":
			return a.Name < b.Name
		case "price":
			return a.Price < b.Price
		case "category":
			return a.Category < b.Category
		case "brand":
			return a.Brand < b.Brand
		case "sku":
			return a.SKU < b.SKU
		case "stock":
			return a.Stock < b.Stock
		case "status":
			return a.Status < b.Status
		case "updated_at":
			return a.UpdatedAt.Before(b.UpdatedAt)
		default:
			if a.CreatedAt.Equal(b.CreatedAt) {
				return a.ID < b.ID
			}
			return a.CreatedAt.Before(b.CreatedAt)
		}
	})
}

// applyFields mutates product with the allow-listed column values.
func applyFields(product *models.Product, fields map[string]interface{}) error {
	for name, value := range fields {
		switch name {
		case "name":
			product.Name = value.(string)
		case "description":
			product.Description = value.(string)
		case "price":
			product.Price = value.(float64)
		case "category":
			product.Category = value.(string)
		case "brand":
			product.Brand = value.(string)
		case "sku":
			product.SKU = value.(string)
		case "stock":
			product.Stock = value.(int)
		case "images":
			product.Images = value.(models.StringList)
		case "status":
			product.Status = value.(models.ProductStatus)
		case "weight":
			if value == nil {
				product.Weight = nil
			} else {
				w := value.(float64)
				product.Weight = &w
			}
		case "dimensions":
			product.Dimensions = value.(models.Dimensions)
		case "tags":
			product.Tags = value.(models.StringList)
		default:
			return fmt.Errorf("column %q is not updatable", name)
		}
	}
	return nil
}
