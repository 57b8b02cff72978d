package middleware

import (
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
)

// defaultOrigins are the mobile web shell and local dev servers.
var defaultOrigins = []string{
	"http://localhost:3000",
	"http://localhost:8080",
	"https://punguzo.com",
	"https://www.punguzo.com",
}

// GlobalCORS creates a global CORS middleware allowing the default origins plus extra.
func GlobalCORS(extra []string) echo.MiddlewareFunc {
	origins := append(append([]string{}, defaultOrigins...), extra...)

	return echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "HEAD", "PUT", "PATCH", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", requestIDHeader},
		AllowCredentials: true,
		ExposeHeaders:    []string{"Content-Length", "Content-Type", requestIDHeader},
		MaxAge:           86400, // 24 hours
	})
}
