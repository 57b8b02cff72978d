package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/punguzo/mlm_backend/controllers"
)

// RegisterAuthRoutes sets up the public authentication routes
func RegisterAuthRoutes(e *echo.Echo, authController *controllers.AuthController) {
	e.POST("/api/auth/register", authController.Register)
	e.GET("/api/auth/check-phone", authController.CheckPhone)
	e.POST("/api/auth/verify-sponsor", authController.VerifySponsor)
	e.POST("/api/auth/login", authController.Login)
	e.POST("/api/auth/refresh-token", authController.Refresh)
}

// RegisterSessionRoutes sets up the auth routes that need a valid access token
func RegisterSessionRoutes(api *echo.Group, authController *controllers.AuthController) {
	api.POST("/auth/logout", authController.Logout)
}
