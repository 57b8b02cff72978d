package routes

import (
	"github.com/labstack/echo/v4"
)

// RegisterMemberRoutes mounts the member, commission and order routes on the authenticated group.
func RegisterMemberRoutes(api *echo.Group, h Handlers) {
	members := api.Group("/members")
	members.GET("/me", h.Members.Profile)
	members.POST("/fcm-token", h.Members.UpdateFCMToken)
	members.PUT("/profile-image", h.Members.UpdateProfileImage)
	members.GET("/team-structure", h.Members.TeamStructure)
	members.GET("/qrcode", h.Members.QRCode)
	members.GET("/wallet", h.Members.Wallet)
	members.GET("/team-members", h.Members.TeamMembers)
	members.GET("/team-performance", h.Members.TeamPerformance)

	commissions := api.Group("/commissions")
	commissions.POST("/calculate", h.Commissions.Calculate)
	commissions.GET("/history", h.Commissions.History)
	commissions.GET("/eligibility", h.Commissions.Eligibility)

	orders := api.Group("/orders")
	orders.POST("", h.Orders.Create)
	orders.POST("/:id/complete", h.Orders.Complete)
}
