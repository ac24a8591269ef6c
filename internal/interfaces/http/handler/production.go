package handler

import (
	productionapp "github.com/erp/bomengine/internal/application/production"
	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/erp/bomengine/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// IdempotencyKeyHeader lets shop-floor clients retry a production record
// without booking it twice
const IdempotencyKeyHeader = "Idempotency-Key"

// ProductionHandler handles production order endpoints
type ProductionHandler struct {
	BaseHandler
	productionService *productionapp.Service
}

// NewProductionHandler creates a new ProductionHandler
func NewProductionHandler(productionService *productionapp.Service) *ProductionHandler {
	return &ProductionHandler{
		productionService: productionService,
	}
}

// Routes returns the production order route group
func (h *ProductionHandler) Routes() *router.DomainGroup {
	g := router.NewDomainGroup("production", "/production-orders")
	g.POST("", h.CreateOrder).
		GET("", h.ListOrders).
		PATCH("/records/:record_id/quality", h.UpdateQuality).
		GET("/:id", h.GetOrder).
		POST("/:id/transition", h.TransitionOrder).
		POST("/:id/records", h.RecordProduction).
		GET("/:id/records", h.ListRecords)
	return g
}

// CreateOrder godoc
// @Summary      Plan a production order
// @Description  Creates a PLANNED order against the active revision of a BOM.
// @Tags         production
// @Accept       json
// @Produce      json
// @Param        request body productionapp.CreateOrderRequest true "Order"
// @Success      201 {object} dto.Response{data=productionapp.OrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /production-orders [post]
func (h *ProductionHandler) CreateOrder(c *gin.Context) {
	var req productionapp.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	order, err := h.productionService.CreateOrder(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, order)
}

// ListOrders godoc
// @Summary      List production orders
// @Tags         production
// @Produce      json
// @Param        status query string false "Order status" Enums(PLANNED, IN_PROGRESS, COMPLETED, CANCELLED, ON_HOLD)
// @Param        bom_id query string false "BOM ID" format(uuid)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]productionapp.OrderResponse,meta=dto.Meta}
// @Router       /production-orders [get]
func (h *ProductionHandler) ListOrders(c *gin.Context) {
	var req productionapp.ListOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	if raw := c.Query("bom_id"); raw != "" {
		bomID, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid bom_id format")
			return
		}
		req.BOMID = &bomID
	}

	orders, total, err := h.productionService.ListOrders(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	paging := shared.Filter{Page: req.Page, PageSize: req.PageSize}
	h.SuccessWithMeta(c, orders, total, max(paging.Page, 1), paging.Limit())
}

// GetOrder returns an order with its running totals
// @Router /production-orders/{id} [get]
func (h *ProductionHandler) GetOrder(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	order, err := h.productionService.GetOrder(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// TransitionOrder godoc
// @Summary      Change order status
// @Description  Completing below target requires force=true. COMPLETED and CANCELLED are final.
// @Tags         production
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body productionapp.TransitionOrderRequest true "Target status"
// @Success      200 {object} dto.Response{data=productionapp.OrderResponse}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /production-orders/{id}/transition [post]
func (h *ProductionHandler) TransitionOrder(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	var req productionapp.TransitionOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	order, err := h.productionService.TransitionOrder(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// RecordProduction godoc
// @Summary      Record produced output
// @Description  Consumes materials for quantity+wastage and credits the output product, atomically.
// @Description  A repeated Idempotency-Key returns the order without booking again (replayed=true).
// @Tags         production
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        Idempotency-Key header string false "Client retry key"
// @Param        request body productionapp.RecordProductionRequest true "Output"
// @Success      201 {object} dto.Response{data=productionapp.RecordProductionResponse}
// @Success      200 {object} dto.Response{data=productionapp.RecordProductionResponse} "Replayed"
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /production-orders/{id}/records [post]
func (h *ProductionHandler) RecordProduction(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	var req productionapp.RecordProductionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	req.IdempotencyKey = c.GetHeader(IdempotencyKeyHeader)

	result, err := h.productionService.RecordProduction(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if result.Replayed {
		h.Success(c, result)
		return
	}
	h.Created(c, result)
}

// ListRecords returns the production records of an order
// @Router /production-orders/{id}/records [get]
func (h *ProductionHandler) ListRecords(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	records, err := h.productionService.ListRecords(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, records)
}

// UpdateQuality sets the quality outcome of a record. Allowed once.
// @Router /production-orders/records/{record_id}/quality [patch]
func (h *ProductionHandler) UpdateQuality(c *gin.Context) {
	id, ok := h.parseID(c, "record_id")
	if !ok {
		return
	}

	var req productionapp.UpdateQualityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	record, err := h.productionService.UpdateQuality(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, record)
}
