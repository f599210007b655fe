package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thryve/studio-scheduler-api/internal/service"
	appErrors "github.com/thryve/studio-scheduler-api/pkg/errors"
	"github.com/thryve/studio-scheduler-api/pkg/response"
)

// BookingHandler exposes booking, waitlist and availability endpoints.
type BookingHandler struct {
	admissions *service.AdmissionService
}

// NewBookingHandler constructs BookingHandler.
func NewBookingHandler(admissions *service.AdmissionService) *BookingHandler {
	return &BookingHandler{admissions: admissions}
}

type bookingPayload struct {
	ClassID       string  `json:"class_id"`
	PaymentMethod string  `json:"payment_method"`
	Price         float64 `json:"price"`
}

// Create godoc
// @Summary Book a class
// @Description Confirms a seat when capacity allows, otherwise joins the waitlist.
// @Tags Bookings
// @Accept json
// @Produce json
// @Param payload body bookingPayload true "Booking payload"
// @Success 201 {object} response.Envelope
// @Router /bookings [post]
func (h *BookingHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var payload bookingPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	outcome, err := h.admissions.RequestBooking(c.Request.Context(), service.RequestBookingRequest{
		ClassID:       payload.ClassID,
		UserID:        claims.UserID,
		PaymentMethod: payload.PaymentMethod,
		Price:         payload.Price,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, outcome)
}

// Cancel godoc
// @Summary Cancel a booking
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 204
// @Router /bookings/{id} [delete]
func (h *BookingHandler) Cancel(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.admissions.CancelBooking(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// MarkNoShow godoc
// @Summary Mark a booking as a no-show
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 204
// @Router /bookings/{id}/no-show [post]
func (h *BookingHandler) MarkNoShow(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.admissions.MarkNoShow(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Availability godoc
// @Summary Get class availability
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/availability [get]
func (h *BookingHandler) Availability(c *gin.Context) {
	callerID := ""
	if claims := claimsFromContext(c); claims != nil {
		callerID = claims.UserID
	}
	availability, err := h.admissions.GetAvailability(c.Request.Context(), c.Param("id"), callerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, availability, nil)
}

// Promote godoc
// @Summary Promote the waitlist head into a free seat
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/waitlist/promote [post]
func (h *BookingHandler) Promote(c *gin.Context) {
	booking, err := h.admissions.PromoteFromWaitlist(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if booking == nil {
		response.NoContent(c)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}

// LeaveWaitlist godoc
// @Summary Leave a class waitlist
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 204
// @Router /classes/{id}/waitlist [delete]
func (h *BookingHandler) LeaveWaitlist(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.admissions.LeaveWaitlist(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
