package routes

import (
	"github.com/labstack/echo/v4"
)

// RegisterProductRoutes mounts catalog, popularity, recommendation and sync routes.
func RegisterProductRoutes(api *echo.Group, h Handlers) {
	products := api.Group("/products")
	products.GET("", h.Products.List)
	products.GET("/by-category", h.Products.ByCategory)
	products.GET("/recommended", h.Products.Recommended)
	products.GET("/trending", h.Products.Trending)
	products.GET("/popular", h.Products.Popular)
	products.GET("/popular/:category", h.Products.PopularByCategory)
	products.GET("/:id", h.Products.Get)
	products.POST("/:id/view", h.Products.TrackView)
	products.GET("/:id/view-stats", h.Products.ViewStats)
	products.GET("/:id/similar", h.Products.Similar)
	products.GET("/:id/order-stats", h.Orders.Stats)

	api.POST("/punguzo/products/sync", h.CatalogSync.Sync)
}
