package models

import "time"

// ProductStatus is the lifecycle state of a product. Only active products
// show up in popular/default listings.
type ProductStatus string

const (
	StatusActive       ProductStatus = "active"
	StatusInactive     ProductStatus = "inactive"
	StatusDiscontinued ProductStatus = "discontinued"
)

// Valid reports whether s is one of the defined statuses.
func (s ProductStatus) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusDiscontinued:
		return true
	}
	return false
}

// Product represents a product in the catalog.
//
// Images, Dimensions and Tags are stored as JSON text in a single column
// each; their types handle the encoding (see fields.go).
type Product struct {
	ID          uint          `json:"id" gorm:"primaryKey"`
	Name        string        `json:"name" gorm:"size:200;not null" validate:"required,max=200"`
	Description string        `json:"description" gorm:"type:text"`
	Price       float64       `json:"price" gorm:"not null" validate:"gte=0,lte=999999.99"`
	Category    string        `json:"category" gorm:"size:100;index" validate:"required"`
	Brand       string        `json:"brand" gorm:"size:100"`
	SKU         string        `json:"sku" gorm:"column:sku;size:50;uniqueIndex" validate:"omitempty,max=50"`
	Stock       int           `json:"stock" gorm:"not null;default:0" validate:"gte=0"`
	Images      StringList    `json:"images" gorm:"type:text"`
	Status      ProductStatus `json:"status" gorm:"size:20;default:active" validate:"oneof=active inactive discontinued"`
	Weight      *float64      `json:"weight" validate:"omitempty,gte=0"`
	Dimensions  Dimensions    `json:"dimensions" gorm:"type:text"`
	Tags        StringList    `json:"tags" gorm:"type:text"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// TableName keeps the table name stable regardless of naming strategy.
func (Product) TableName() string { return "products" }

// IsInStock reports whether the product has any stock left.
func (p *Product) IsInStock() bool { return p.Stock > 0 }

// IsActive reports whether the product is visible in default listings.
func (p *Product) IsActive() bool { return p.Status == StatusActive }

// AddTag appends a tag unless it is empty or already present.
func (p *Product) AddTag(tag string) {
	if tag == "" || p.Tags.Contains(tag) {
		return
	}
	p.Tags = append(p.Tags, tag)
}

// RemoveTag removes a tag if present.
func (p *Product) RemoveTag(tag string) {
	p.Tags = p.Tags.Without(tag)
}

// AddImage appends an image URL unless it is empty or already present.
// Insertion order is preserved.
func (p *Product) AddImage(url string) {
	if url == "" || p.Images.Contains(url) {
		return
	}
	p.Images = append(p.Images, url)
}

// RemoveImage removes an image URL if present.
func (p *Product) RemoveImage(url string) {
	p.Images = p.Images.Without(url)
}

// ProductSummary is the trimmed view used in list responses.
type ProductSummary struct {
	ID        uint          `json:"id"`
	Name      string        `json:"name"`
	Price     float64       `json:"price"`
	Category  string        `json:"category"`
	Brand     string        `json:"brand"`
	SKU       string        `json:"sku"`
	Stock     int           `json:"stock"`
	Status    ProductStatus `json:"status"`
	InStock   bool          `json:"in_stock"`
	CreatedAt time.Time     `json:"created_at"`
}

// ToSummary returns the list view of the product.
func (p *Product) ToSummary() ProductSummary {
	return ProductSummary{
		ID:        p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Category:  p.Category,
		Brand:     p.Brand,
		SKU:       p.SKU,
		Stock:     p.Stock,
		Status:    p.Status,
		InStock:   p.IsInStock(),
		CreatedAt: p.CreatedAt,
	}
}
