// Package validation checks product invariants before anything is written
// to the store. It accumulates every violation instead of stopping at the
// first one, so a caller gets the complete diagnostic in a single pass.
//
// SKU uniqueness is deliberately not checked here: it needs a store round
// trip and belongs to the service layer.
package validation

import (
	"errors"

	"catalog/internal/models"

	"github.com/go-playground/validator/v10"
)

// Result is the outcome of validating a product.
type Result struct {
	Valid  bool     `json:"is_valid"`
	Errors []string `json:"errors"`
}

// ProductValidator validates products against the entity invariants.
// Safe for concurrent use.
type ProductValidator struct {
	validate *validator.Validate
}

// NewProductValidator creates a ProductValidator.
func NewProductValidator() *ProductValidator {
	return &ProductValidator{validate: validator.New()}
}

// Validate checks every field-level invariant on p and returns all
// violations as human-readable messages.
func (v *ProductValidator) Validate(p *models.Product) Result {
	err := v.validate.Struct(p)
	if err == nil {
		return Result{Valid: true}
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		// validator.Struct only returns this for non-struct input, which
		// cannot happen with *models.Product.
		return Result{Errors: []string{err.Error()}}
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, message(fe))
	}
	return Result{Errors: msgs}
}

// message maps a field error to the diagnostic the API reports.
func message(fe validator.FieldError) string {
	switch fe.Field() {
	case "Name":
		if fe.Tag() == "required" {
			return "name is required"
		}
		return "name must be at most 200 characters"
	case "Price":
		if fe.Tag() == "gte" {
			return "price must be greater than or equal to 0"
		}
		return "price must not exceed 999999.99"
	case "Category":
		return "category is required"
	case "SKU":
		return "sku must be at most 50 characters"
	case "Stock":
		return "stock cannot be negative"
	case "Weight":
		return "weight cannot be negative"
	case "Status":
		return "status must be one of active, inactive or discontinued"
	}
	return fe.Error()
}
