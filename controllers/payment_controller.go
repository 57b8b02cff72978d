package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/punguzo/mlm_backend/apperrors"
	"github.com/punguzo/mlm_backend/models"
	"github.com/punguzo/mlm_backend/services"
)

type PaymentController struct {
	payments *services.PaymentService
}

func NewPaymentController(payments *services.PaymentService) *PaymentController {
	return &PaymentController{payments: payments}
}

// DebitRequest asks the payment partner to debit the customer for one of the caller's orders.
func (pc *PaymentController) DebitRequest(c echo.Context) error {
	memberID, err := currentMember(c)
	if err != nil {
		return respondError(c, err)
	}
	var req models.PaymentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}
	orderID, err := primitive.ObjectIDFromHex(req.OrderID)
	if err != nil {
		return respondError(c, apperrors.Validation("Validation failed", map[string]string{"orderId": "invalid id"}))
	}

	reply, err := pc.payments.RequestDebit(c.Request().Context(), memberID, orderID, &req.DebitRequest)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Debit request sent", reply)
}

// Callback receives the partner's payment outcome.
func (pc *PaymentController) Callback(c echo.Context) error {
	var cb models.PaymentCallback
	if err := bindAndValidate(c, &cb); err != nil {
		return respondError(c, err)
	}
	if _, err := pc.payments.HandleCallback(c.Request().Context(), &cb); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "success"})
}
