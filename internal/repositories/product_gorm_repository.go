package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"catalog/internal/models"

	"gorm.io/gorm"
)

// GORMProductRepository is the GORM implementation of ProductRepository.
//
// The *gorm.DB must be opened with TranslateError enabled so unique
// constraint violations surface as gorm.ErrDuplicatedKey.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{db: db}
}

// FindAll retrieves products matching the given options.
func (r *GORMProductRepository) FindAll(ctx context.Context, opts ListOptions) ([]models.Product, error) {
	var products []models.Product
	if err := opts.listScope(r.db.WithContext(ctx)).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// Count returns the number of products matching the filters in opts.
func (r *GORMProductRepository) Count(ctx context.Context, opts ListOptions) (int64, error) {
	var total int64
	tx := opts.filterScope(r.db.WithContext(ctx).Model(&models.Product{}))
	if err := tx.Count(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return total, nil
}

// FindByID retrieves a single product, or (nil, nil) if absent.
func (r *GORMProductRepository) FindByID(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get product by ID %d: %w", id, err)
	}
	return &product, nil
}

// FindBySKU retrieves a single product by SKU, or (nil, nil) if absent.
func (r *GORMProductRepository) FindBySKU(ctx context.Context, sku string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).First(&product, "sku = ?", sku).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get product by SKU %s: %w", sku, err)
	}
	return &product, nil
}

// FindByCategory retrieves the products of one category, newest first.
func (r *GORMProductRepository) FindByCategory(ctx context.Context, category string) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("category = ?", category).
		Order("created_at DESC").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list products in category %s: %w", category, err)
	}
	return products, nil
}

// Search matches the keyword against name, description and brand, newest
// first. The keyword is bound as a parameter; its wildcards are escaped.
func (r *GORMProductRepository) Search(ctx context.Context, keyword string) ([]models.Product, error) {
	term := likePattern(keyword)
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where(`name LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\' OR brand LIKE ? ESCAPE '\'`,
			term, term, term).
		Order("created_at DESC").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	return products, nil
}

// Create inserts the product, then re-reads it by the assigned id so the
// returned entity reflects exactly what is durable, store defaults
// included. A unique SKU violation surfaces as ErrDuplicateKey.
func (r *GORMProductRepository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("sku %q: %w", product.SKU, ErrDuplicateKey)
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return r.FindByID(ctx, product.ID)
}

// Update writes only the supplied columns plus updated_at. Returns
// (nil, nil) when no record matched the id.
func (r *GORMProductRepository) Update(ctx context.Context, id uint, fields map[string]interface{}) (*models.Product, error) {
	if err := checkUpdateFields(fields); err != nil {
		return nil, err
	}

	updates := make(map[string]interface{}, len(fields)+1)
	for name, value := range fields {
		updates[name] = value
	}
	updates["updated_at"] = time.Now()

	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("sku: %w", ErrDuplicateKey)
		}
		return nil, fmt.Errorf("failed to update product %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return r.FindByID(ctx, id)
}

// Delete removes a product, reporting whether a row was removed.
func (r *GORMProductRepository) Delete(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete product %d: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// AdjustStock applies a signed delta in one conditional UPDATE evaluated
// by the store, so two concurrent adjustments on the same id can never
// lose each other's effect. The WHERE guard refuses to take stock below
// zero instead of clamping.
func (r *GORMProductRepository) AdjustStock(ctx context.Context, id uint, delta int) (*models.Product, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock + ? >= 0", id, delta).
		Updates(map[string]interface{}{
			"stock":      gorm.Expr("stock + ?", delta),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to adjust stock for product %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		// Either the product is gone or the guard refused the delta.
		existing, err := r.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("product %d has stock %d, cannot apply %+d: %w",
			id, existing.Stock, delta, ErrInsufficientStock)
	}
	return r.FindByID(ctx, id)
}

// SetStock writes an absolute stock value. The caller is responsible for
// rejecting negative values before the store is touched.
func (r *GORMProductRepository) SetStock(ctx context.Context, id uint, value int) (*models.Product, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"stock":      value,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to set stock for product %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return r.FindByID(ctx, id)
}

// BatchUpdateStatus sets the status on every listed id in one statement.
// An empty id list returns 0 without issuing a statement.
func (r *GORMProductRepository) BatchUpdateStatus(ctx context.Context, ids []uint, status models.ProductStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to batch update status: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// FindLowStock lists products whose stock is below the threshold,
// emptiest first.
func (r *GORMProductRepository) FindLowStock(ctx context.Context, threshold int) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("stock < ?", threshold).
		Order("stock ASC").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list low stock products: %w", err)
	}
	return products, nil
}

// Stats composes the aggregate catalog summary from independent count
// queries. The sub-counts are not taken in one transaction.
func (r *GORMProductRepository) Stats(ctx context.Context) (*ProductStats, error) {
	db := r.db.WithContext(ctx)
	stats := &ProductStats{}

	if err := db.Model(&models.Product{}).Count(&stats.Total).Error; err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}
	if err := db.Model(&models.Product{}).
		Where("status = ?", models.StatusActive).
		Count(&stats.Active).Error; err != nil {
		return nil, fmt.Errorf("failed to count active products: %w", err)
	}
	stats.Inactive = stats.Total - stats.Active

	if err := db.Model(&models.Product{}).
		Where("stock < ?", lowStockThreshold).
		Count(&stats.LowStock).Error; err != nil {
		return nil, fmt.Errorf("failed to count low stock products: %w", err)
	}

	err := db.Model(&models.Product{}).
		Select("category, COUNT(*) AS count").
		Group("category").
		Order("category").
		Scan(&stats.Categories).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count products per category: %w", err)
	}

	return stats, nil
}

// lowStockThreshold is the default stock level under which a product
// counts as low stock.
const lowStockThreshold = 10
