package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/punguzo/mlm_backend/controllers"
	"github.com/punguzo/mlm_backend/middleware"
	"github.com/punguzo/mlm_backend/websocket"
)

// Handlers bundles the controllers the router mounts.
type Handlers struct {
	Auth          *controllers.AuthController
	Members       *controllers.MemberController
	Commissions   *controllers.CommissionController
	Orders        *controllers.OrderController
	Products      *controllers.ProductController
	CatalogSync   *controllers.CatalogSyncController
	Notifications *controllers.NotificationController
	Payments      *controllers.PaymentController
	Hub           *websocket.Hub
}

// SetupRoutes configures all API routes by calling individual route registration functions
func SetupRoutes(e *echo.Echo, h Handlers, jwtSecret string, blacklist middleware.TokenBlacklist, members middleware.MemberLookup) {
	RegisterAuthRoutes(e, h.Auth)
	RegisterPaymentCallbackRoutes(e, h.Payments)

	api := e.Group("/api")
	api.Use(middleware.JWTMiddleware(jwtSecret, blacklist))
	api.Use(middleware.RequireAccessToken())
	api.Use(middleware.RequireActiveMember(members))

	RegisterSessionRoutes(api, h.Auth)
	RegisterMemberRoutes(api, h)
	RegisterProductRoutes(api, h)
	RegisterNotificationRoutes(api, h)
	RegisterPaymentRoutes(api, h.Payments)
}
