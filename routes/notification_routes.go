package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/punguzo/mlm_backend/middleware"
	"github.com/punguzo/mlm_backend/models"
	"github.com/punguzo/mlm_backend/websocket"
)

// RegisterNotificationRoutes mounts the inbox and the realtime socket.
func RegisterNotificationRoutes(api *echo.Group, h Handlers) {
	notifications := api.Group("/notifications")
	notifications.GET("", h.Notifications.List)
	notifications.POST("/read-all", h.Notifications.MarkAllRead)
	notifications.POST("/:id/read", h.Notifications.MarkRead)

	api.GET("/ws", func(c echo.Context) error {
		memberID, err := middleware.MemberIDFromContext(c)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, models.Response{
				Status:  http.StatusUnauthorized,
				Message: "Unauthorized",
			})
		}
		return websocket.HandleWebSocket(c, h.Hub, memberID)
	})
}
