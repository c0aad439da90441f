package handlers

import (
	"errors"

	"catalog/internal/models"
	"catalog/internal/repositories"
	"catalog/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ProductHandler handles HTTP requests for the catalog.
type ProductHandler struct {
	service *services.ProductService
	logger  *zap.Logger
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService, logger *zap.Logger) *ProductHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the product routes with the Fiber app.
// Fixed paths are registered before the :id wildcard.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	products := router.Group("/products")
	products.Get("/", h.HandleListProducts)
	products.Get("/search", h.HandleSearchProducts)
	products.Get("/stats", h.HandleGetStats)
	products.Get("/popular", h.HandleGetPopular)
	products.Get("/low-stock", h.HandleGetLowStock)
	products.Get("/category/:category", h.HandleGetByCategory)
	products.Get("/sku/:sku", h.HandleGetBySKU)
	products.Get("/:id", h.HandleGetProductByID)
	products.Post("/", h.HandleCreateProduct)
	products.Put("/:id", h.HandleUpdateProduct)
	products.Delete("/:id", h.HandleDeleteProduct)
	products.Patch("/:id/stock", h.HandleUpdateStock)
	products.Patch("/batch/status", h.HandleBatchUpdateStatus)
}

// HandleListProducts serves one page of the catalog.
func (h *ProductHandler) HandleListProducts(c *fiber.Ctx) error {
	query := services.ListQuery{
		Page:     c.QueryInt("page", 1),
		Limit:    c.QueryInt("limit", 20),
		Category: c.Query("category"),
		Status:   models.ProductStatus(c.Query("status")),
		Search:   c.Query("search"),
		OrderBy:  c.Query("order_by"),
		Order:    c.Query("order"),
	}

	page, err := h.service.List(c.Context(), query)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": page})
}

// HandleGetProductByID serves a single product.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "invalid product id",
		})
	}

	product, err := h.service.GetByID(c.Context(), uint(id))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": product})
}

// HandleGetBySKU serves a single product looked up by SKU.
func (h *ProductHandler) HandleGetBySKU(c *fiber.Ctx) error {
	product, err := h.service.GetBySKU(c.Context(), c.Params("sku"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": product})
}

// HandleGetByCategory serves the products of one category.
func (h *ProductHandler) HandleGetByCategory(c *fiber.Ctx) error {
	products, err := h.service.GetByCategory(c.Context(), c.Params("category"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": products})
}

// HandleSearchProducts serves a keyword search.
func (h *ProductHandler) HandleSearchProducts(c *fiber.Ctx) error {
	products, err := h.service.Search(c.Context(), c.Query("q"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": products})
}

// HandleCreateProduct creates a new product.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var product models.Product
	if err := c.BodyParser(&product); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "invalid request body",
			"error":   err.Error(),
		})
	}

	created, err := h.service.Create(c.Context(), &product)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": created})
}

// HandleUpdateProduct applies a partial update.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "invalid product id",
		})
	}

	var update services.ProductUpdate
	if err := c.BodyParser(&update); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "invalid request body",
			"error":   err.Error(),
		})
	}

	updated, err := h.service.Update(c.Context(), uint(id), update)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": updated})
}

// HandleDeleteProduct removes a product.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "invalid product id",
		})
	}

	if err := h.service.Delete(c.Context(), uint(id)); err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "product deleted"})
}

// HandleUpdateStock sets or shifts a product's stock.
func (h *ProductHandler) HandleUpdateStock(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "invalid product id",
		})
	}

	var body struct {
		Stock     *int   `json:"stock"`
		Operation string `json:"operation"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "invalid request body",
			"error":   err.Error(),
		})
	}
	if body.Stock == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "stock is required",
		})
	}
	if body.Operation == "" {
		body.Operation = string(services.StockSet)
	}

	product, err := h.service.AdjustStock(c.Context(), uint(id), *body.Stock, services.StockOperation(body.Operation))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": product})
}

// HandleBatchUpdateStatus sets the status on a list of products.
func (h *ProductHandler) HandleBatchUpdateStatus(c *fiber.Ctx) error {
	var body struct {
		ProductIDs []uint               `json:"product_ids"`
		Status     models.ProductStatus `json:"status"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "invalid request body",
			"error":   err.Error(),
		})
	}

	affected, err := h.service.BatchUpdateStatus(c.Context(), body.ProductIDs, body.Status)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"affected": affected, "status": body.Status},
	})
}

// HandleGetStats serves the aggregate catalog summary.
func (h *ProductHandler) HandleGetStats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.Context())
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": stats})
}

// HandleGetLowStock serves products running out of stock.
func (h *ProductHandler) HandleGetLowStock(c *fiber.Ctx) error {
	products, err := h.service.LowStock(c.Context(), c.QueryInt("threshold", 0))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": products})
}

// HandleGetPopular serves the newest active products.
func (h *ProductHandler) HandleGetPopular(c *fiber.Ctx) error {
	products, err := h.service.Popular(c.Context(), c.QueryInt("limit", 0))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": products})
}

// respondError maps the service error taxonomy to HTTP status codes.
func (h *ProductHandler) respondError(c *fiber.Ctx, err error) error {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "validation failed",
			"errors":  verr.Errors,
		})
	case errors.Is(err, repositories.ErrNoFieldsToUpdate):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "no fields to update",
		})
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "product not found",
		})
	case errors.Is(err, services.ErrDuplicateSKU):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"message": "sku already exists",
		})
	case errors.Is(err, services.ErrInsufficientStock):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"message": "insufficient stock",
		})
	case errors.Is(err, services.ErrStoreUnavailable):
		h.logger.Error("store unavailable", zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"success": false,
			"message": "store unavailable, try again later",
		})
	default:
		h.logger.Error("unhandled error", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "internal error",
		})
	}
}
