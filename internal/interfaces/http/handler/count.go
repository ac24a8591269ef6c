package handler

import (
	inventoryapp "github.com/erp/bomengine/internal/application/inventory"
	"github.com/erp/bomengine/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
)

// CountHandler handles physical inventory count endpoints
type CountHandler struct {
	BaseHandler
	countService *inventoryapp.CountService
}

// NewCountHandler creates a new CountHandler
func NewCountHandler(countService *inventoryapp.CountService) *CountHandler {
	return &CountHandler{
		countService: countService,
	}
}

// Routes returns the inventory count route group
func (h *CountHandler) Routes() *router.DomainGroup {
	g := router.NewDomainGroup("inventory", "/inventory-counts")
	g.POST("", h.Create).
		GET("", h.List).
		GET("/:id", h.Get).
		POST("/:id/start", h.Start).
		POST("/:id/actuals", h.RecordActual).
		POST("/:id/complete", h.Complete).
		POST("/:id/reconcile", h.Reconcile)
	return g
}

// Create godoc
// @Summary      Open an inventory count
// @Description  Snapshots the expected stock of each listed product.
// @Tags         counts
// @Accept       json
// @Produce      json
// @Param        request body inventoryapp.CreateCountRequest true "Count"
// @Success      201 {object} dto.Response{data=inventoryapp.CountResponse}
// @Router       /inventory-counts [post]
func (h *CountHandler) Create(c *gin.Context) {
	var req inventoryapp.CreateCountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	count, err := h.countService.CreateCount(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, count)
}

// List pages through counts, optionally filtered by ?status=
// @Router /inventory-counts [get]
func (h *CountHandler) List(c *gin.Context) {
	filter, ok := h.listFilter(c)
	if !ok {
		return
	}

	counts, total, err := h.countService.ListCounts(c.Request.Context(), filter, c.Query("status"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, counts, total, filter.Page, filter.PageSize)
}

// Get returns a count with its lines and decisions
// @Router /inventory-counts/{id} [get]
func (h *CountHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	count, err := h.countService.GetCount(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, count)
}

// Start moves a count from PENDING to IN_PROGRESS
// @Router /inventory-counts/{id}/start [post]
func (h *CountHandler) Start(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	count, err := h.countService.StartCount(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, count)
}

// RecordActual stores the counted quantity for one product
// @Router /inventory-counts/{id}/actuals [post]
func (h *CountHandler) RecordActual(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	var req inventoryapp.RecordActualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	count, err := h.countService.RecordActual(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, count)
}

// Complete closes counting once every line has an actual
// @Router /inventory-counts/{id}/complete [post]
func (h *CountHandler) Complete(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	count, err := h.countService.CompleteCount(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, count)
}

// Reconcile godoc
// @Summary      Reconcile a completed count
// @Description  Applies approved variances to catalog stock as COUNT adjustments. Rejected lines
// @Description  leave stock unchanged. Every decision needs a reason code.
// @Tags         counts
// @Accept       json
// @Produce      json
// @Param        id path string true "Count ID" format(uuid)
// @Param        request body inventoryapp.ReconcileCountRequest true "Decisions"
// @Success      200 {object} dto.Response{data=inventoryapp.CountResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /inventory-counts/{id}/reconcile [post]
func (h *CountHandler) Reconcile(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	var req inventoryapp.ReconcileCountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	count, err := h.countService.ReconcileCount(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, count)
}
