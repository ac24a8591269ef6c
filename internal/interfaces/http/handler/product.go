package handler

import (
	catalogapp "github.com/erp/bomengine/internal/application/catalog"
	"github.com/erp/bomengine/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
)

// ProductHandler handles product and stock endpoints
type ProductHandler struct {
	BaseHandler
	productService *catalogapp.ProductService
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService *catalogapp.ProductService) *ProductHandler {
	return &ProductHandler{
		productService: productService,
	}
}

// Routes returns the product route group
func (h *ProductHandler) Routes() *router.DomainGroup {
	g := router.NewDomainGroup("catalog", "/products")
	g.POST("", h.Create).
		GET("/below-minimum", h.ListBelowMinimum).
		GET("/adjustments", h.ListAdjustmentsByReference).
		GET("/sku/:sku", h.GetBySKU).
		GET("/:id", h.GetByID).
		PUT("/:id", h.Update).
		GET("/:id/stock", h.GetStock).
		POST("/:id/stock/adjust", h.AdjustStock).
		GET("/:id/adjustments", h.ListAdjustments)
	return g
}

// Create godoc
// @Summary      Create a product
// @Description  Registers a raw material or finished good. initial_stock is booked as a MANUAL adjustment.
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        request body catalogapp.CreateProductRequest true "Product"
// @Success      201 {object} dto.Response{data=catalogapp.ProductResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /products [post]
func (h *ProductHandler) Create(c *gin.Context) {
	var req catalogapp.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	product, err := h.productService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, product)
}

// GetByID godoc
// @Summary      Get product by ID
// @Tags         products
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Success      200 {object} dto.Response{data=catalogapp.ProductResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /products/{id} [get]
func (h *ProductHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	product, err := h.productService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// GetBySKU godoc
// @Summary      Get product by SKU
// @Tags         products
// @Produce      json
// @Param        sku path string true "SKU"
// @Success      200 {object} dto.Response{data=catalogapp.ProductResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /products/sku/{sku} [get]
func (h *ProductHandler) GetBySKU(c *gin.Context) {
	product, err := h.productService.GetBySKU(c.Request.Context(), c.Param("sku"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// Update godoc
// @Summary      Update product master data
// @Description  Stock is never changed here; use the adjust endpoint.
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        request body catalogapp.UpdateProductRequest true "Changes"
// @Success      200 {object} dto.Response{data=catalogapp.ProductResponse}
// @Router       /products/{id} [put]
func (h *ProductHandler) Update(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	var req catalogapp.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	product, err := h.productService.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// ListBelowMinimum lists products whose stock is under their minimum
// @Router /products/below-minimum [get]
func (h *ProductHandler) ListBelowMinimum(c *gin.Context) {
	filter, ok := h.listFilter(c)
	if !ok {
		return
	}

	products, total, err := h.productService.ListBelowMinimum(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, products, total, filter.Page, filter.PageSize)
}

// GetStock returns the current stock level of a product
// @Router /products/{id}/stock [get]
func (h *ProductHandler) GetStock(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	stock, err := h.productService.GetStock(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stock)
}

// AdjustStock godoc
// @Summary      Adjust product stock
// @Description  Applies a signed delta. Negative results are rejected and a reason is required.
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        request body catalogapp.AdjustStockRequest true "Adjustment"
// @Success      200 {object} dto.Response{data=catalogapp.StockAdjustmentResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /products/{id}/stock/adjust [post]
func (h *ProductHandler) AdjustStock(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	var req catalogapp.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	adjustment, err := h.productService.AdjustStock(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, adjustment)
}

// ListAdjustments pages through the stock audit trail of one product
// @Router /products/{id}/adjustments [get]
func (h *ProductHandler) ListAdjustments(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	filter, ok := h.listFilter(c)
	if !ok {
		return
	}

	adjustments, total, err := h.productService.ListAdjustments(c.Request.Context(), id, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, adjustments, total, filter.Page, filter.PageSize)
}

// ListAdjustmentsByReference returns every adjustment booked under ?reference=
// @Router /products/adjustments [get]
func (h *ProductHandler) ListAdjustmentsByReference(c *gin.Context) {
	reference := c.Query("reference")
	if reference == "" {
		h.BadRequest(c, "reference is required")
		return
	}

	adjustments, err := h.productService.ListAdjustmentsByReference(c.Request.Context(), reference)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, adjustments)
}
