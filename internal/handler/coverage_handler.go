package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thryve/studio-scheduler-api/internal/service"
	appErrors "github.com/thryve/studio-scheduler-api/pkg/errors"
	"github.com/thryve/studio-scheduler-api/pkg/response"
)

// CoverageHandler exposes the substitute coverage pool endpoints.
type CoverageHandler struct {
	coverage *service.CoverageService
}

// NewCoverageHandler constructs CoverageHandler.
func NewCoverageHandler(coverage *service.CoverageService) *CoverageHandler {
	return &CoverageHandler{coverage: coverage}
}

// Create godoc
// @Summary Post a class to the coverage pool
// @Tags Coverage
// @Accept json
// @Produce json
// @Param payload body service.RequestCoverageRequest true "Coverage payload"
// @Success 201 {object} response.Envelope
// @Router /coverage [post]
func (h *CoverageHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.RequestCoverageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	request, err := h.coverage.RequestCoverage(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// Apply godoc
// @Summary Apply to cover a posted class
// @Tags Coverage
// @Produce json
// @Param id path string true "Coverage request ID"
// @Success 201 {object} response.Envelope
// @Router /coverage/{id}/apply [post]
func (h *CoverageHandler) Apply(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	applicant, err := h.coverage.ApplyForCoverage(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, applicant)
}

type selectApplicantPayload struct {
	InstructorID string `json:"instructor_id"`
}

// Select godoc
// @Summary Select an applicant to fill a coverage request
// @Tags Coverage
// @Accept json
// @Produce json
// @Param id path string true "Coverage request ID"
// @Param payload body selectApplicantPayload true "Selection payload"
// @Success 200 {object} response.Envelope
// @Router /coverage/{id}/select [post]
func (h *CoverageHandler) Select(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var payload selectApplicantPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	request, err := h.coverage.SelectCoverageApplicant(c.Request.Context(), c.Param("id"), claims.UserID, payload.InstructorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Get godoc
// @Summary Get a coverage request with its applicants
// @Tags Coverage
// @Produce json
// @Param id path string true "Coverage request ID"
// @Success 200 {object} response.Envelope
// @Router /coverage/{id} [get]
func (h *CoverageHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	request, err := h.coverage.GetCoverageRequest(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Pool godoc
// @Summary List a studio's open coverage requests
// @Tags Coverage
// @Produce json
// @Param id path string true "Studio ID"
// @Success 200 {object} response.Envelope
// @Router /studios/{id}/coverage-pool [get]
func (h *CoverageHandler) Pool(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	items, err := h.coverage.GetCoveragePool(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}
