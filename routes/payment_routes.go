package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/punguzo/mlm_backend/controllers"
)

// RegisterPaymentCallbackRoutes mounts the public webhook the payment partner calls.
func RegisterPaymentCallbackRoutes(e *echo.Echo, payments *controllers.PaymentController) {
	e.POST("/api/payments/callback", payments.Callback)
}

// RegisterPaymentRoutes mounts the member payment routes on the authenticated group.
func RegisterPaymentRoutes(api *echo.Group, payments *controllers.PaymentController) {
	api.POST("/payments/debit-request", payments.DebitRequest)
}
