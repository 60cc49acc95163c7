package handler

import (
	"github.com/Kilat-Ride/service-ride-booking/internal/application"
	"github.com/Kilat-Ride/service-ride-booking/internal/platform/middleware"
	"github.com/Kilat-Ride/service-ride-booking/internal/platform/response"
	"github.com/gin-gonic/gin"
)

const workspaceKey = "workspace"

// WorkspaceMiddleware loads the calling device's workspace. It must run after
// DeviceAuthMiddleware.
func WorkspaceMiddleware(registry *application.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		deviceID, ok := middleware.GetDeviceID(c)
		if !ok {
			response.Unauthorized(c, "unauthorized")
			return
		}
		ws, err := registry.Get(c.Request.Context(), deviceID)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Set(workspaceKey, ws)
		c.Next()
	}
}

func workspace(c *gin.Context) *application.Workspace {
	return c.MustGet(workspaceKey).(*application.Workspace)
}
