package repositories

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Identifiers cannot be bound as parameters, so any column name that ends
// up in clause text must come from one of these fixed sets. Filter and
// search values are always bound.

// sortableColumns are the columns a caller may order a listing by.
var sortableColumns = map[string]bool{
	"id":         true,
	"name":       true,
	"price":      true,
	"category":   true,
	"brand":      true,
	"sku":        true,
	"stock":      true,
	"status":     true,
	"created_at": true,
	"updated_at": true,
}

// updatableColumns are the columns a partial update may touch. id and the
// timestamps are excluded: id is immutable, created_at is set once and
// updated_at is set by the adapter on every write.
var updatableColumns = map[string]bool{
	"name":        true,
	"description": true,
	"price":       true,
	"category":    true,
	"brand":       true,
	"sku":         true,
	"stock":       true,
	"images":      true,
	"status":      true,
	"weight":      true,
	"dimensions":  true,
	"tags":        true,
}

const (
	defaultOrderBy = "created_at"
	defaultOrder   = "DESC"
)

// likeEscaper makes LIKE wildcards in a raw keyword match literally. The
// queries using it carry an explicit ESCAPE '\' clause so the behavior is
// the same on sqlite and postgres.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern wraps a keyword for a contains-match.
func likePattern(keyword string) string {
	return "%" + likeEscaper.Replace(keyword) + "%"
}

// orderClause resolves the caller-supplied sort target against the
// allow-list, falling back to newest-first.
func orderClause(orderBy, order string) string {
	if !sortableColumns[orderBy] {
		orderBy = defaultOrderBy
	}
	if !strings.EqualFold(order, "ASC") && !strings.EqualFold(order, "DESC") {
		order = defaultOrder
	}
	return fmt.Sprintf("%s %s", orderBy, strings.ToUpper(order))
}

// checkUpdateFields verifies every key against the updatable-column
// allow-list before any statement is built.
func checkUpdateFields(fields map[string]interface{}) error {
	if len(fields) == 0 {
		return ErrNoFieldsToUpdate
	}
	for name := range fields {
		if !updatableColumns[name] {
			return fmt.Errorf("column %q is not updatable", name)
		}
	}
	return nil
}

// filterScope applies the equality filters of opts with bound parameters.
func (o ListOptions) filterScope(tx *gorm.DB) *gorm.DB {
	if o.Category != "" {
		tx = tx.Where("category = ?", o.Category)
	}
	if o.Status != "" {
		tx = tx.Where("status = ?", o.Status)
	}
	return tx
}

// listScope applies filters, ordering and pagination.
func (o ListOptions) listScope(tx *gorm.DB) *gorm.DB {
	tx = o.filterScope(tx).Order(orderClause(o.OrderBy, o.Order))
	if o.Limit > 0 {
		tx = tx.Limit(o.Limit)
	}
	if o.Offset > 0 {
		tx = tx.Offset(o.Offset)
	}
	return tx
}
