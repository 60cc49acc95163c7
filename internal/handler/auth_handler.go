package handler

import (
	"github.com/Kilat-Ride/service-ride-booking/internal/application"
	"github.com/Kilat-Ride/service-ride-booking/internal/domain/ride"
	"github.com/Kilat-Ride/service-ride-booking/internal/platform/auth"
	"github.com/Kilat-Ride/service-ride-booking/internal/platform/middleware"
	"github.com/Kilat-Ride/service-ride-booking/internal/platform/response"
	"github.com/gin-gonic/gin"
)

// OTPRequest asks for a one-time code.
type OTPRequest struct {
	Phone       string `json:"phone" binding:"required"`
	CountryCode string `json:"country_code" binding:"required"`
}

// VerifyRequest signs the rider in with the code they received.
type VerifyRequest struct {
	OTPRequest
	Code string `json:"otp" binding:"required"`
}

// SignInResponse is returned after a successful sign-in.
type SignInResponse struct {
	Customer ride.Customer           `json:"customer"`
	Booking  application.BookingView `json:"booking"`
}

// AuthHandler handles rider sign-in and sign-out.
type AuthHandler struct {
	registry *application.Registry
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(registry *application.Registry) *AuthHandler {
	return &AuthHandler{registry: registry}
}

// RegisterRoutes registers the auth and profile routes.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	mw := []gin.HandlerFunc{middleware.DeviceAuthMiddleware(jwtManager), WorkspaceMiddleware(h.registry)}

	authGroup := r.Group("/api/v1/auth", mw...)
	{
		authGroup.POST("/otp", h.RequestOTP)
		authGroup.POST("/verify", h.Verify)
		authGroup.POST("/logout", h.Logout)
	}
	r.GET("/api/v1/profile", append(mw, h.Profile)...)
	r.GET("/api/v1/operator/config", append(mw, h.OperatorConfig)...)
}

// RequestOTP handles POST /api/v1/auth/otp.
func (h *AuthHandler) RequestOTP(c *gin.Context) {
	var req OTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := workspace(c).Auth.RequestOTP(c.Request.Context(), req.Phone, req.CountryCode); err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, gin.H{"sent": true})
}

// Verify handles POST /api/v1/auth/verify. A move to payment that was
// waiting for sign-in completes here.
func (h *AuthHandler) Verify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ws := workspace(c)
	cust, err := ws.Auth.VerifyOTP(c.Request.Context(), req.Phone, req.CountryCode, req.Code)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, SignInResponse{Customer: cust, Booking: ws.View()})
}

// Logout handles POST /api/v1/auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	ws := workspace(c)
	if err := ws.Auth.Logout(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, ws.View())
}

// Profile handles GET /api/v1/profile.
func (h *AuthHandler) Profile(c *gin.Context) {
	cust, err := workspace(c).Auth.Profile(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, cust)
}

// OperatorConfig handles GET /api/v1/operator/config.
func (h *AuthHandler) OperatorConfig(c *gin.Context) {
	settings, err := workspace(c).Auth.OperatorSettings(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, settings)
}
