package handler

import (
	"strconv"
	"time"

	"github.com/Kilat-Ride/service-ride-booking/internal/application"
	"github.com/Kilat-Ride/service-ride-booking/internal/domain/ride"
	"github.com/Kilat-Ride/service-ride-booking/internal/platform/auth"
	"github.com/Kilat-Ride/service-ride-booking/internal/platform/middleware"
	"github.com/Kilat-Ride/service-ride-booking/internal/platform/response"
	"github.com/gin-gonic/gin"
)

// LocationRequest is a resolved place picked by the rider.
type LocationRequest struct {
	Address string   `json:"address" binding:"required"`
	Lat     *float64 `json:"lat" binding:"required"`
	Lng     *float64 `json:"lng" binding:"required"`
	PlaceID string   `json:"place_id"`
}

func (r LocationRequest) location() ride.Location {
	return ride.Location{Address: r.Address, Lat: *r.Lat, Lng: *r.Lng, PlaceID: r.PlaceID}
}

// MoveStopRequest moves a stop to a new position.
type MoveStopRequest struct {
	Position *int `json:"position" binding:"required"`
}

// ScheduleRequest sets or clears the scheduled and return times.
type ScheduleRequest struct {
	ScheduledAt    *time.Time `json:"scheduled_at"`
	ReturnAt       *time.Time `json:"return_at"`
	TimezoneOffset int        `json:"timezone_offset"`
}

// ServiceRequest selects a service line.
type ServiceRequest struct {
	ServiceID int `json:"service_id" binding:"required"`
}

// OptionsRequest replaces the selected extras.
type OptionsRequest struct {
	SelectedServices []ride.ServiceOption `json:"selected_services"`
}

// CouponRequest applies a coupon code. An empty code removes the coupon.
type CouponRequest struct {
	Code string `json:"code"`
}

// RegionRequest selects a vehicle region. A null region clears it.
type RegionRequest struct {
	RegionID *int `json:"region_id"`
}

// FormRequest shows or hides the mobile location form.
type FormRequest struct {
	Active bool `json:"active"`
}

// BackRequest goes back one step.
type BackRequest struct {
	Mobile bool `json:"mobile"`
}

// StepResponse is returned by every navigation action.
type StepResponse struct {
	Outcome application.StepOutcome `json:"outcome"`
	Booking application.BookingView `json:"booking"`
}

// BookingHandler handles HTTP requests for the booking wizard.
type BookingHandler struct {
	registry *application.Registry
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(registry *application.Registry) *BookingHandler {
	return &BookingHandler{registry: registry}
}

// RegisterRoutes registers all booking routes on the given router group.
func (h *BookingHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	booking := r.Group("/api/v1/booking")
	booking.Use(middleware.DeviceAuthMiddleware(jwtManager), WorkspaceMiddleware(h.registry))
	{
		booking.GET("", h.GetBooking)
		booking.PUT("/pickup", h.SetPickup)
		booking.PUT("/dropoff", h.SetDropoff)
		booking.POST("/stops", h.AddStop)
		booking.PUT("/stops/:id", h.UpdateStop)
		booking.DELETE("/stops/:id", h.RemoveStop)
		booking.POST("/stops/:id/move", h.MoveStop)
		booking.PUT("/schedule", h.SetSchedule)
		booking.PUT("/service", h.SetService)
		booking.PUT("/options", h.SetOptions)
		booking.PUT("/coupon", h.SetCoupon)
		booking.PUT("/region", h.SelectRegion)
		booking.PUT("/passenger", h.SetPassenger)
		booking.PUT("/payment", h.SetPayment)
		booking.PUT("/form", h.SetForm)
		booking.POST("/quote", h.Quote)
		booking.POST("/next", h.Next)
		booking.POST("/back", h.Back)
		booking.POST("/step/:index", h.GoTo)
		booking.POST("/submit", h.Submit)
		booking.POST("/result/refresh", h.RefreshResult)
		booking.POST("/reset", h.Reset)
	}
}

// GetBooking handles GET /api/v1/booking.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	response.Success(c, workspace(c).View())
}

// SetPickup handles PUT /api/v1/booking/pickup.
func (h *BookingHandler) SetPickup(c *gin.Context) {
	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ws := workspace(c)
	if err := ws.Pipeline.SetPickup(c.Request.Context(), req.location()); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, ws.View())
}

// SetDropoff handles PUT /api/v1/booking/dropoff.
func (h *BookingHandler) SetDropoff(c *gin.Context) {
	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ws := workspace(c)
	if err := ws.Pipeline.SetDropoff(c.Request.Context(), req.location()); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, ws.View())
}

// AddStop handles POST /api/v1/booking/stops.
func (h *BookingHandler) AddStop(c *gin.Context) {
	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	stop, err := workspace(c).Pipeline.AddStop(c.Request.Context(), req.location())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, stop)
}

// UpdateStop handles PUT /api/v1/booking/stops/:id.
func (h *BookingHandler) UpdateStop(c *gin.Context) {
	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ws := workspace(c)
	if err := ws.Pipeline.UpdateStop(c.Request.Context(), c.Param("id"), req.location()); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, ws.View())
}

// RemoveStop handles DELETE /api/v1/booking/stops/:id.
func (h *BookingHandler) RemoveStop(c *gin.Context) {
	ws := workspace(c)
	if err := ws.Booking.RemoveStop(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, ws.View())
}

// MoveStop handles POST /api/v1/booking/stops/:id/move.
func (h *BookingHandler) MoveStop(c *gin.Context) {
	var req MoveStopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ws := workspace(c)
	if err := ws.Booking.MoveStop(c.Request.Context(), c.Param("id"), *req.Position); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, ws.View())
}

// SetSchedule handles PUT /api/v1/booking/schedule.
func (h *BookingHandler) SetSchedule(c *gin.Context) {
	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ws := workspace(c)
	if err := ws.SetSchedule(c.Request.Context(), req.ScheduledAt, req.ReturnAt, req.TimezoneOffset); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, ws.View())
}

// SetService handles PUT /api/v1/booking/service.
func (h *BookingHandler) SetService(c *gin.Context) {
	var req ServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ws := workspace(c)
	if _, err := ws.SelectService(c.Request.Context(), req.ServiceID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, ws.View())
}

// SetOptions handles PUT /api/v1/booking/options.
func (h *BookingHandler) SetOptions(c *gin.Context) {
	var req OptionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ws := workspace(c)
	ws.Booking.SetServiceOptions(c.Request.Context(), req.SelectedServices)
	response.Success(c, ws.View())
}

// SetCoupon handles PUT /api/v1/booking/coupon.
func (h *BookingHandler) SetCoupon(c *gin.Context) {
	var req CouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ws := workspace(c)
	if _, err := ws.ApplyCoupon(c.Request.Context(), req.Code); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, ws.View())
}

// SelectRegion handles PUT /api/v1/booking/region.
func (h *BookingHandler) SelectRegion(c *gin.Context) {
	var req RegionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ws := workspace(c)
	if err := ws.Booking.SelectRegion(c.Request.Context(), req.RegionID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, ws.View())
}

// SetPassenger handles PUT /api/v1/booking/passenger.
func (h *BookingHandler) SetPassenger(c *gin.Context) {
	var req ride.Passenger
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ws := workspace(c)
	ws.Booking.SetPassenger(c.Request.Context(), req)
	response.Success(c, ws.View())
}

// SetPayment handles PUT /api/v1/booking/payment.
func (h *BookingHandler) SetPayment(c *gin.Context) {
	var req ride.Payment
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ws := workspace(c)
	if err := ws.Booking.SetPayment(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, ws.View())
}

// SetForm handles PUT /api/v1/booking/form.
func (h *BookingHandler) SetForm(c *gin.Context) {
	var req FormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ws := workspace(c)
	h.stepResponse(c, ws, ws.Steps.SetFormActive(req.Active))
}

// Quote handles POST /api/v1/booking/quote.
func (h *BookingHandler) Quote(c *gin.Context) {
	ws := workspace(c)
	if _, err := ws.Pipeline.Quote(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, ws.View())
}

// Next handles POST /api/v1/booking/next.
func (h *BookingHandler) Next(c *gin.Context) {
	ws := workspace(c)
	out, err := ws.Steps.Next(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	h.stepResponse(c, ws, out)
}

// Back handles POST /api/v1/booking/back.
func (h *BookingHandler) Back(c *gin.Context) {
	var req BackRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}

	ws := workspace(c)
	out, err := ws.Steps.Back(c.Request.Context(), req.Mobile)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.stepResponse(c, ws, out)
}

// GoTo handles POST /api/v1/booking/step/:index.
func (h *BookingHandler) GoTo(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		response.BadRequest(c, "invalid step index")
		return
	}

	ws := workspace(c)
	out, err := ws.Steps.GoTo(c.Request.Context(), index)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.stepResponse(c, ws, out)
}

// Submit handles POST /api/v1/booking/submit. A failed ride request is still
// a 200 carrying the unsuccessful result.
func (h *BookingHandler) Submit(c *gin.Context) {
	ws := workspace(c)
	if _, err := ws.Submission.Submit(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, ws.View())
}

// RefreshResult handles POST /api/v1/booking/result/refresh.
func (h *BookingHandler) RefreshResult(c *gin.Context) {
	ws := workspace(c)
	if _, err := ws.RefreshResult(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, ws.View())
}

// Reset handles POST /api/v1/booking/reset.
func (h *BookingHandler) Reset(c *gin.Context) {
	ws := workspace(c)
	if err := ws.ResetBooking(c.Request.Context(), "rider reset"); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, ws.View())
}

func (h *BookingHandler) stepResponse(c *gin.Context, ws *application.Workspace, out application.StepOutcome) {
	body := StepResponse{Outcome: out, Booking: ws.View()}
	if out.Deferred {
		response.Accepted(c, body)
		return
	}
	response.Success(c, body)
}
