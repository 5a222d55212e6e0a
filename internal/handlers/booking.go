package handlers

import (
	"net/http"
	"strings"

	"rental-portal/internal/auth"
	"rental-portal/internal/booking"
	"rental-portal/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BookingHandler serves booking submission and decisions
type BookingHandler struct {
	bookings *booking.Service
	log      *zap.Logger
}

// NewBookingHandler creates a booking handler
func NewBookingHandler(svc *booking.Service, log *zap.Logger) *BookingHandler {
	return &BookingHandler{bookings: svc, log: log}
}

type submitRequest struct {
	ApartmentID uint    `json:"apartment_id" binding:"required"`
	StartDate   string  `json:"start_date"`
	EndDate     *string `json:"end_date"`
	Message     *string `json:"message"`
}

func (h *BookingHandler) Submit(c *gin.Context) {
	var req submitRequest
	if !bindJSON(c, &req) {
		return
	}

	in := booking.SubmitInput{ApartmentID: req.ApartmentID, Message: req.Message}
	if req.StartDate != "" {
		start, err := parseDate(req.StartDate)
		if err != nil {
			badRequest(c, "invalid start_date "+req.StartDate)
			return
		}
		in.StartDate = start
	}
	if req.EndDate != nil && *req.EndDate != "" {
		end, err := parseDate(*req.EndDate)
		if err != nil {
			badRequest(c, "invalid end_date "+*req.EndDate)
			return
		}
		in.EndDate = &end
	}

	b, err := h.bookings.Submit(c.Request.Context(), auth.ActorFrom(c), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

type decisionRequest struct {
	Decision string `json:"decision" binding:"required"`
}

// Decide applies approve, reject or cancel to a Pending booking
func (h *BookingHandler) Decide(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req decisionRequest
	if !bindJSON(c, &req) {
		return
	}
	d, valid := models.ParseDecision(req.Decision)
	if !valid {
		badRequest(c, "invalid decision "+req.Decision)
		return
	}

	b, err := h.bookings.Decide(c.Request.Context(), auth.ActorFrom(c), id, d)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// List returns the caller's visible bookings, optionally ?status=
func (h *BookingHandler) List(c *gin.Context) {
	var f booking.ListFilter
	if s := strings.TrimSpace(c.Query("status")); s != "" {
		status := models.BookingStatus(strings.ToUpper(s[:1]) + strings.ToLower(s[1:]))
		f.Status = &status
	}
	bookings, err := h.bookings.List(c.Request.Context(), auth.ActorFrom(c), f)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings, "count": len(bookings)})
}

// Get returns a booking confirmation to a party of the booking
func (h *BookingHandler) Get(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	b, err := h.bookings.Get(c.Request.Context(), auth.ActorFrom(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// PendingForUnit counts the Pending bookings on a unit
func (h *BookingHandler) PendingForUnit(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	n, err := h.bookings.PendingFor(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unit_id": id, "pending": n})
}
