package repositories_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"catalog/internal/models"
	"catalog/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedInMemory(t *testing.T, repo *repositories.InMemoryProductRepository, sku string, stock int) *models.Product {
	t.Helper()
	created, err := repo.Create(context.Background(), &models.Product{
		Name:     "Widget " + sku,
		Price:    9.99,
		Category: "tools",
		SKU:      sku,
		Stock:    stock,
		Status:   models.StatusActive,
	})
	require.NoError(t, err)
	return created
}

func TestInMemoryCRUD(t *testing.T) {
	repo := repositories.NewInMemoryProductRepository()
	ctx := context.Background()

	created := seedInMemory(t, repo, "IM-1", 5)
	assert.NotZero(t, created.ID)

	loaded, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "IM-1", loaded.SKU)

	bySKU, err := repo.FindBySKU(ctx, "IM-1")
	require.NoError(t, err)
	require.NotNil(t, bySKU)
	assert.Equal(t, created.ID, bySKU.ID)

	updated, err := repo.Update(ctx, created.ID, map[string]interface{}{"name": "Renamed"})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "Renamed", updated.Name)

	removed, err := repo.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	gone, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestInMemoryDuplicateSKU(t *testing.T) {
	repo := repositories.NewInMemoryProductRepository()
	ctx := context.Background()

	seedInMemory(t, repo, "DUP", 1)
	_, err := repo.Create(ctx, &models.Product{Name: "Other", Price: 1, Category: "tools", SKU: "DUP"})
	assert.ErrorIs(t, err, repositories.ErrDuplicateKey)

	other := seedInMemory(t, repo, "FREE", 1)
	_, err = repo.Update(ctx, other.ID, map[string]interface{}{"sku": "DUP"})
	assert.ErrorIs(t, err, repositories.ErrDuplicateKey)
}

// N concurrent decrements starting from stock=N must drain the stock to
// exactly zero with no failures: no lost updates, no negative stock.
func TestConcurrentAdjustStockDrainsExactly(t *testing.T) {
	const n = 100
	repo := repositories.NewInMemoryProductRepository()
	ctx := context.Background()
	created := seedInMemory(t, repo, "CONC-1", n)

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.AdjustStock(ctx, created.ID, -1); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("unexpected adjustment failure: %v", err)
	}

	final, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, final.Stock)
}

// With one decrement more than the available stock, exactly one call must
// fail with ErrInsufficientStock and the stock must still end at zero.
func TestConcurrentAdjustStockOversubscribed(t *testing.T) {
	const n = 50
	repo := repositories.NewInMemoryProductRepository()
	ctx := context.Background()
	created := seedInMemory(t, repo, "CONC-2", n)

	var wg sync.WaitGroup
	errs := make(chan error, n+1)
	for i := 0; i < n+1; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.AdjustStock(ctx, created.ID, -1); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	var failures int
	for err := range errs {
		assert.True(t, errors.Is(err, repositories.ErrInsufficientStock), "unexpected error: %v", err)
		failures++
	}
	assert.Equal(t, 1, failures)

	final, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, final.Stock)
}

func TestInMemoryListSortAndPaginate(t *testing.T) {
	repo := repositories.NewInMemoryProductRepository()
	ctx := context.Background()

	for i, sku := range []string{"P1", "P2", "P3"} {
		p := seedInMemory(t, repo, sku, i)
		_, err := repo.Update(ctx, p.ID, map[string]interface{}{"price": float64(10 - i)})
		require.NoError(t, err)
	}

	byPrice, err := repo.FindAll(ctx, repositories.ListOptions{OrderBy: "price", Order: "ASC"})
	require.NoError(t, err)
	require.Len(t, byPrice, 3)
	assert.Equal(t, "P3", byPrice[0].SKU)

	page, err := repo.FindAll(ctx, repositories.ListOptions{OrderBy: "id", Order: "ASC", Limit: 1, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "P3", page[0].SKU)

	past, err := repo.FindAll(ctx, repositories.ListOptions{Limit: 10, Offset: 50})
	require.NoError(t, err)
	assert.Empty(t, past)
}

func TestInMemorySearchAndStats(t *testing.T) {
	repo := repositories.NewInMemoryProductRepository()
	ctx := context.Background()

	laptop := seedInMemory(t, repo, "SRCH-1", 2)
	_, err := repo.Update(ctx, laptop.ID, map[string]interface{}{"name": "Laptop", "category": "electronics"})
	require.NoError(t, err)
	seedInMemory(t, repo, "SRCH-2", 50)

	found, err := repo.Search(ctx, "laptop")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "SRCH-1", found[0].SKU)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(2), stats.Active)
	assert.Equal(t, int64(1), stats.LowStock)

	low, err := repo.FindLowStock(ctx, 10)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "SRCH-1", low[0].SKU)
}
