package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"catalog/internal/handlers"
	"catalog/internal/models"
	"catalog/internal/repositories"
	"catalog/internal/services"
	"catalog/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupApp builds a Fiber app over an in-memory SQLite database.
func setupApp(t *testing.T) *fiber.App {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Product{}))

	repo := repositories.NewGORMProductRepository(db)
	service := services.NewProductService(repo, validation.NewProductValidator(), nil, nil)
	handler := handlers.NewProductHandler(service, nil)

	app := fiber.New()
	apiV1 := app.Group("/api/v1")
	handler.RegisterRoutes(apiV1)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	payload := map[string]interface{}{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &payload))
	}
	return resp, payload
}

func createWidget(t *testing.T, app *fiber.App, sku string) uint {
	t.Helper()
	resp, payload := doJSON(t, app, http.MethodPost, "/api/v1/products", fiber.Map{
		"name":     "Widget",
		"price":    9.99,
		"category": "tools",
		"sku":      sku,
		"stock":    5,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := payload["data"].(map[string]interface{})
	return uint(data["id"].(float64))
}

func TestCreateAndGetProduct(t *testing.T) {
	app := setupApp(t)

	id := createWidget(t, app, "A1")

	resp, payload := doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/v1/products/%d", id), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data := payload["data"].(map[string]interface{})
	assert.Equal(t, "Widget", data["name"])
	assert.Equal(t, "A1", data["sku"])
	assert.Equal(t, 5.0, data["stock"])
}

func TestCreateValidationErrors(t *testing.T) {
	app := setupApp(t)

	resp, payload := doJSON(t, app, http.MethodPost, "/api/v1/products", fiber.Map{
		"name":  "",
		"price": -5,
	})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, payload["success"])
	errs := payload["errors"].([]interface{})
	assert.Contains(t, errs, "name is required")
	assert.Contains(t, errs, "price must be greater than or equal to 0")
	assert.Contains(t, errs, "category is required")
}

func TestCreateDuplicateSKUConflict(t *testing.T) {
	app := setupApp(t)

	createWidget(t, app, "DUP")
	resp, payload := doJSON(t, app, http.MethodPost, "/api/v1/products", fiber.Map{
		"name":     "Other",
		"price":    1,
		"category": "tools",
		"sku":      "DUP",
	})

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "sku already exists", payload["message"])
}

func TestGetProductNotFound(t *testing.T) {
	app := setupApp(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/api/v1/products/9999", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/v1/products/sku/NOPE", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateProduct(t *testing.T) {
	app := setupApp(t)
	id := createWidget(t, app, "U1")

	resp, payload := doJSON(t, app, http.MethodPut, fmt.Sprintf("/api/v1/products/%d", id), fiber.Map{
		"price": 19.99,
	})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data := payload["data"].(map[string]interface{})
	assert.Equal(t, 19.99, data["price"])
	assert.Equal(t, "Widget", data["name"], "untouched fields survive")
}

func TestUpdateRejectsInvariantViolation(t *testing.T) {
	app := setupApp(t)
	id := createWidget(t, app, "U2")

	resp, _ := doJSON(t, app, http.MethodPut, fmt.Sprintf("/api/v1/products/%d", id), fiber.Map{
		"price": -1,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Stored record is unchanged.
	_, payload := doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/v1/products/%d", id), nil)
	data := payload["data"].(map[string]interface{})
	assert.Equal(t, 9.99, data["price"])
}

func TestStockLifecycle(t *testing.T) {
	app := setupApp(t)
	id := createWidget(t, app, "S1")

	resp, payload := doJSON(t, app, http.MethodPatch, fmt.Sprintf("/api/v1/products/%d/stock", id), fiber.Map{
		"stock":     3,
		"operation": "subtract",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data := payload["data"].(map[string]interface{})
	assert.Equal(t, 2.0, data["stock"])

	resp, payload = doJSON(t, app, http.MethodPatch, fmt.Sprintf("/api/v1/products/%d/stock", id), fiber.Map{
		"stock":     10,
		"operation": "subtract",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "insufficient stock", payload["message"])

	_, payload = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/v1/products/%d", id), nil)
	data = payload["data"].(map[string]interface{})
	assert.Equal(t, 2.0, data["stock"], "failed adjustment leaves stock untouched")
}

func TestStockRequiresQuantity(t *testing.T) {
	app := setupApp(t)
	id := createWidget(t, app, "S2")

	resp, _ := doJSON(t, app, http.MethodPatch, fmt.Sprintf("/api/v1/products/%d/stock", id), fiber.Map{
		"operation": "add",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBatchStatusUpdate(t *testing.T) {
	app := setupApp(t)
	first := createWidget(t, app, "B1")
	second := createWidget(t, app, "B2")

	resp, payload := doJSON(t, app, http.MethodPatch, "/api/v1/products/batch/status", fiber.Map{
		"product_ids": []uint{first, second},
		"status":      "discontinued",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data := payload["data"].(map[string]interface{})
	assert.Equal(t, 2.0, data["affected"])

	resp, _ = doJSON(t, app, http.MethodPatch, "/api/v1/products/batch/status", fiber.Map{
		"product_ids": []uint{},
		"status":      "active",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListPagination(t *testing.T) {
	app := setupApp(t)
	for i := 0; i < 5; i++ {
		createWidget(t, app, fmt.Sprintf("L%d", i))
	}

	resp, payload := doJSON(t, app, http.MethodGet, "/api/v1/products/?page=2&limit=2", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data := payload["data"].(map[string]interface{})
	pagination := data["pagination"].(map[string]interface{})
	assert.Equal(t, 5.0, pagination["total"])
	assert.Equal(t, 3.0, pagination["total_pages"])
	assert.Equal(t, true, pagination["has_next"])
	assert.Equal(t, true, pagination["has_prev"])
	assert.Len(t, data["products"], 2)
}

func TestDeleteProduct(t *testing.T) {
	app := setupApp(t)
	id := createWidget(t, app, "D1")

	resp, _ := doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/v1/products/%d", id), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/v1/products/%d", id), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/v1/products/%d", id), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatsAndPopularAndLowStock(t *testing.T) {
	app := setupApp(t)
	createWidget(t, app, "X1")

	resp, payload := doJSON(t, app, http.MethodGet, "/api/v1/products/stats", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data := payload["data"].(map[string]interface{})
	assert.Equal(t, 1.0, data["total"])
	assert.Equal(t, 1.0, data["active"])

	resp, payload = doJSON(t, app, http.MethodGet, "/api/v1/products/popular", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, payload["data"], 1)

	resp, payload = doJSON(t, app, http.MethodGet, "/api/v1/products/low-stock?threshold=10", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, payload["data"], 1)
}

func TestSearchEndpoint(t *testing.T) {
	app := setupApp(t)
	createWidget(t, app, "Q1")

	resp, payload := doJSON(t, app, http.MethodGet, "/api/v1/products/search?q=widget", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, payload["data"], 1)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/v1/products/search", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "empty keyword is rejected")
}
