package handler

import (
	"time"

	"github.com/Kilat-Ride/service-ride-booking/internal/application"
	"github.com/Kilat-Ride/service-ride-booking/internal/platform/auth"
	"github.com/Kilat-Ride/service-ride-booking/internal/platform/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DeviceResponse carries a freshly issued device token.
type DeviceResponse struct {
	DeviceID  string                  `json:"device_id"`
	Token     string                  `json:"token"`
	ExpiresAt time.Time               `json:"expires_at"`
	Booking   application.BookingView `json:"booking"`
}

// DeviceHandler registers rider devices.
type DeviceHandler struct {
	registry   *application.Registry
	jwtManager *auth.JWTManager
	logger     *zap.Logger
}

// NewDeviceHandler creates a new DeviceHandler.
func NewDeviceHandler(registry *application.Registry, jwtManager *auth.JWTManager, logger *zap.Logger) *DeviceHandler {
	return &DeviceHandler{registry: registry, jwtManager: jwtManager, logger: logger}
}

// RegisterRoutes registers the device routes on the given router group.
func (h *DeviceHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/api/v1/devices", h.RegisterDevice)
}

// RegisterDevice handles POST /api/v1/devices. The device's operator
// authorization runs before the token is returned.
func (h *DeviceHandler) RegisterDevice(c *gin.Context) {
	deviceID := uuid.NewString()
	ws, err := h.registry.Get(c.Request.Context(), deviceID)
	if err != nil {
		response.Error(c, err)
		return
	}

	token, exp, err := h.jwtManager.Generate(deviceID)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.logger.Info("device registered", zap.String("device_id", deviceID))
	response.Created(c, DeviceResponse{
		DeviceID:  deviceID,
		Token:     token,
		ExpiresAt: exp,
		Booking:   ws.View(),
	})
}
