package handler

import (
	bomapp "github.com/erp/bomengine/internal/application/bom"
	"github.com/erp/bomengine/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
)

// BOMHandler handles bill of materials endpoints and the planning
// calculations derived from them
type BOMHandler struct {
	BaseHandler
	bomService *bomapp.Service
}

// NewBOMHandler creates a new BOMHandler
func NewBOMHandler(bomService *bomapp.Service) *BOMHandler {
	return &BOMHandler{
		bomService: bomService,
	}
}

// Routes returns the BOM route group
func (h *BOMHandler) Routes() *router.DomainGroup {
	g := router.NewDomainGroup("bom", "/boms")
	g.POST("", h.Create).
		GET("/code/:code", h.GetActiveByCode).
		GET("/code/:code/revisions", h.Revisions).
		GET("/:id", h.Get).
		PUT("/:id", h.Update).
		GET("/:id/requirements", h.Requirements).
		GET("/:id/availability", h.Availability).
		GET("/:id/cost", h.Cost)
	return g
}

// Create godoc
// @Summary      Create a BOM
// @Description  Creates revision 1 of a recipe. Components must exist and differ from the output product.
// @Tags         boms
// @Accept       json
// @Produce      json
// @Param        request body bomapp.CreateBOMRequest true "BOM"
// @Success      201 {object} dto.Response{data=bomapp.BOMResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /boms [post]
func (h *BOMHandler) Create(c *gin.Context) {
	var req bomapp.CreateBOMRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	b, err := h.bomService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, b)
}

// Get returns one BOM revision by ID
// @Router /boms/{id} [get]
func (h *BOMHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	b, err := h.bomService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, b)
}

// Update godoc
// @Summary      Change a BOM
// @Description  Creates a new revision unless in_place is set. In-place edits fail with ERR_BOM_LOCKED
// @Description  while open orders reference the BOM.
// @Tags         boms
// @Accept       json
// @Produce      json
// @Param        id path string true "BOM ID" format(uuid)
// @Param        request body bomapp.UpdateBOMRequest true "New content"
// @Success      200 {object} dto.Response{data=bomapp.UpdateBOMResponse}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /boms/{id} [put]
func (h *BOMHandler) Update(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	var req bomapp.UpdateBOMRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	b, err := h.bomService.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, b)
}

// GetActiveByCode returns the active revision for a BOM code
// @Router /boms/code/{code} [get]
func (h *BOMHandler) GetActiveByCode(c *gin.Context) {
	b, err := h.bomService.GetActiveByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, b)
}

// Revisions lists every revision of a BOM code, oldest first
// @Router /boms/code/{code}/revisions [get]
func (h *BOMHandler) Revisions(c *gin.Context) {
	revisions, err := h.bomService.Revisions(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, revisions)
}

// Requirements godoc
// @Summary      Explode a BOM
// @Description  Flattened material requirements for producing quantity units of output.
// @Tags         planning
// @Produce      json
// @Param        id path string true "BOM ID" format(uuid)
// @Param        quantity query string true "Output quantity" example(12.5)
// @Success      200 {object} dto.Response{data=bomapp.RequirementsResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /boms/{id}/requirements [get]
func (h *BOMHandler) Requirements(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	quantity, ok := h.quantityQuery(c, "quantity")
	if !ok {
		return
	}

	result, err := h.bomService.ComputeRequirements(c.Request.Context(), id, quantity)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Availability compares requirements with current stock. The answer is
// advisory; stock may change before production is recorded.
// @Router /boms/{id}/availability [get]
func (h *BOMHandler) Availability(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	quantity, ok := h.quantityQuery(c, "quantity")
	if !ok {
		return
	}

	result, err := h.bomService.CheckAvailability(c.Request.Context(), id, quantity)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Cost rolls up material and overhead cost for a quantity
// @Router /boms/{id}/cost [get]
func (h *BOMHandler) Cost(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	quantity, ok := h.quantityQuery(c, "quantity")
	if !ok {
		return
	}

	result, err := h.bomService.EstimateCost(c.Request.Context(), id, quantity)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
