package handler

import (
	"strconv"

	inventoryapp "github.com/erp/bomengine/internal/application/inventory"
	"github.com/erp/bomengine/internal/domain/catalog"
	"github.com/erp/bomengine/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BatchHandler handles batch receipt, consumption and ledger endpoints
type BatchHandler struct {
	BaseHandler
	batchService *inventoryapp.BatchService
}

// NewBatchHandler creates a new BatchHandler
func NewBatchHandler(batchService *inventoryapp.BatchService) *BatchHandler {
	return &BatchHandler{
		batchService: batchService,
	}
}

// ConsumeBatchRequest draws material outside of a production order,
// e.g. for samples or scrap
type ConsumeBatchRequest struct {
	ProductID uuid.UUID       `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
	Wastage   decimal.Decimal `json:"wastage"`
	Reference string          `json:"reference" binding:"max=100"`
}

// Routes returns the batch route group
func (h *BatchHandler) Routes() *router.DomainGroup {
	g := router.NewDomainGroup("inventory", "/batches")
	g.POST("", h.Receive).
		GET("", h.List).
		POST("/consume", h.Consume).
		POST("/allocation-preview", h.PreviewAllocation).
		GET("/movements", h.ListMovementsByReference).
		GET("/:id", h.Get).
		POST("/:id/return", h.Return).
		POST("/:id/adjust", h.Adjust).
		POST("/:id/retire", h.Retire).
		GET("/:id/movements", h.ListMovements).
		GET("/:id/ledger", h.VerifyLedger)
	return g
}

// Receive godoc
// @Summary      Receive a batch
// @Description  Books an IN movement and raises catalog stock by the received quantity.
// @Tags         batches
// @Accept       json
// @Produce      json
// @Param        request body inventoryapp.ReceiveBatchRequest true "Batch"
// @Success      201 {object} dto.Response{data=inventoryapp.BatchResponse}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /batches [post]
func (h *BatchHandler) Receive(c *gin.Context) {
	var req inventoryapp.ReceiveBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	batch, err := h.batchService.ReceiveBatch(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, batch)
}

// List returns the batches of ?product_id=, optionally only ?active=true ones
// @Router /batches [get]
func (h *BatchHandler) List(c *gin.Context) {
	productID, err := uuid.Parse(c.Query("product_id"))
	if err != nil {
		h.BadRequest(c, "product_id is required and must be a UUID")
		return
	}
	filter, ok := h.listFilter(c)
	if !ok {
		return
	}
	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			h.BadRequest(c, "active must be true or false")
			return
		}
		filter.Filters = map[string]any{"active": active}
	}

	batches, total, err := h.batchService.ListBatches(c.Request.Context(), productID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, batches, total, filter.Page, filter.PageSize)
}

// Consume godoc
// @Summary      Consume from batches
// @Description  Allocates across batches by the configured strategy. A shortage changes nothing.
// @Tags         batches
// @Accept       json
// @Produce      json
// @Param        request body ConsumeBatchRequest true "Consumption"
// @Success      200 {object} dto.Response{data=inventoryapp.ConsumptionResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /batches/consume [post]
func (h *BatchHandler) Consume(c *gin.Context) {
	var req ConsumeBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	result, err := h.batchService.Consume(c.Request.Context(), inventoryapp.ConsumeRequest{
		ProductID:   req.ProductID,
		Quantity:    req.Quantity,
		Wastage:     req.Wastage,
		Reference:   req.Reference,
		OutSource:   catalog.AdjustmentSourceManual,
		WasteSource: catalog.AdjustmentSourceManual,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// PreviewAllocation returns the allocation plan without changing anything
// @Router /batches/allocation-preview [post]
func (h *BatchHandler) PreviewAllocation(c *gin.Context) {
	var req inventoryapp.AllocationPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	plan, err := h.batchService.PlanAllocation(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, plan)
}

// Get returns one batch
// @Router /batches/{id} [get]
func (h *BatchHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	batch, err := h.batchService.GetBatch(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, batch)
}

// Return puts material back into the batch it was drawn from
// @Router /batches/{id}/return [post]
func (h *BatchHandler) Return(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	var req inventoryapp.ReturnToBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	result, err := h.batchService.ReturnToBatch(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Adjust corrects a batch quantity by a signed delta; a reason is required
// @Router /batches/{id}/adjust [post]
func (h *BatchHandler) Adjust(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	var req inventoryapp.AdjustBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	result, err := h.batchService.AdjustBatch(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Retire takes a batch out of allocation
// @Router /batches/{id}/retire [post]
func (h *BatchHandler) Retire(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	var req inventoryapp.RetireBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	batch, err := h.batchService.RetireBatch(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, batch)
}

// ListMovements returns the ledger of one batch
// @Router /batches/{id}/movements [get]
func (h *BatchHandler) ListMovements(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	movements, err := h.batchService.ListMovements(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, movements)
}

// ListMovementsByReference returns every movement booked under ?reference=
// @Router /batches/movements [get]
func (h *BatchHandler) ListMovementsByReference(c *gin.Context) {
	reference := c.Query("reference")
	if reference == "" {
		h.BadRequest(c, "reference is required")
		return
	}

	movements, err := h.batchService.ListMovementsByReference(c.Request.Context(), reference)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, movements)
}

// VerifyLedger checks that the movements of a batch add up to its balance
// @Router /batches/{id}/ledger [get]
func (h *BatchHandler) VerifyLedger(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	check, err := h.batchService.VerifyLedger(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, check)
}
