package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thryve/studio-scheduler-api/internal/service"
	appErrors "github.com/thryve/studio-scheduler-api/pkg/errors"
	"github.com/thryve/studio-scheduler-api/pkg/response"
)

// SwapHandler exposes instructor shift swap endpoints.
type SwapHandler struct {
	swaps *service.SwapService
}

// NewSwapHandler constructs SwapHandler.
func NewSwapHandler(swaps *service.SwapService) *SwapHandler {
	return &SwapHandler{swaps: swaps}
}

// Create godoc
// @Summary Request a shift swap
// @Tags Swaps
// @Accept json
// @Produce json
// @Param payload body service.RequestSwapRequest true "Swap payload"
// @Success 201 {object} response.Envelope
// @Router /swaps [post]
func (h *SwapHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.RequestSwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	swap, err := h.swaps.RequestSwap(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, swap)
}

// Accept godoc
// @Summary Accept a shift swap
// @Tags Swaps
// @Produce json
// @Param id path string true "Swap request ID"
// @Success 200 {object} response.Envelope
// @Router /swaps/{id}/accept [post]
func (h *SwapHandler) Accept(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	swap, err := h.swaps.AcceptSwap(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, swap, nil)
}

type swapDecisionPayload struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason"`
}

// Decide godoc
// @Summary Approve or reject an accepted swap
// @Tags Swaps
// @Accept json
// @Produce json
// @Param id path string true "Swap request ID"
// @Param payload body swapDecisionPayload true "Decision payload"
// @Success 200 {object} response.Envelope
// @Router /swaps/{id}/decision [post]
func (h *SwapHandler) Decide(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var payload swapDecisionPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	swap, err := h.swaps.ApproveSwap(c.Request.Context(), c.Param("id"), claims.UserID, payload.Approved, payload.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, swap, nil)
}
