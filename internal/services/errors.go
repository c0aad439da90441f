package services

import (
	"errors"
	"fmt"
	"strings"

	"catalog/internal/repositories"
)

// The service maps store-level failures into this taxonomy and never leaks
// raw store error text except wrapped as context. Nothing here is fatal to
// the process; every failure is scoped to one operation.
var (
	// ErrNotFound means the id or SKU has no matching record.
	ErrNotFound = errors.New("product not found")

	// ErrDuplicateSKU means another live product already carries the SKU.
	ErrDuplicateSKU = errors.New("sku already exists")

	// ErrInsufficientStock aliases the store-level error so callers only
	// need the services package. Never retried silently.
	ErrInsufficientStock = repositories.ErrInsufficientStock

	// ErrStoreUnavailable wraps infrastructure failures from the backing
	// store. Unlike the rest of the taxonomy, the caller may retry.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ValidationError carries the complete list of invariant violations so a
// caller can report them in one round trip.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Errors, ", ")
}

// storeError classifies an error coming back from the repository: known
// kinds pass through, anything else is an infrastructure failure.
func storeError(op string, err error) error {
	switch {
	case errors.Is(err, repositories.ErrDuplicateKey):
		return fmt.Errorf("%s: %w", op, ErrDuplicateSKU)
	case errors.Is(err, repositories.ErrInsufficientStock),
		errors.Is(err, repositories.ErrNoFieldsToUpdate):
		return err
	default:
		return fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
	}
}
