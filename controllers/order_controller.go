package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/punguzo/mlm_backend/apperrors"
	"github.com/punguzo/mlm_backend/models"
	"github.com/punguzo/mlm_backend/services"
)

type OrderController struct {
	orders *services.OrderService
}

func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{orders: orders}
}

func (oc *OrderController) Create(c echo.Context) error {
	memberID, err := currentMember(c)
	if err != nil {
		return respondError(c, err)
	}
	var req models.CreateOrderRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}
	productID, err := primitive.ObjectIDFromHex(req.ProductID)
	if err != nil {
		return respondError(c, apperrors.Validation("Validation failed", map[string]string{"productId": "invalid id"}))
	}

	order, err := oc.orders.CreateOrder(c.Request().Context(), memberID, productID, req.TotalAmount, req.WholesaleAmount)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusCreated, "Order created successfully", order)
}

// Complete settles one of the caller's orders.
func (oc *OrderController) Complete(c echo.Context) error {
	memberID, err := currentMember(c)
	if err != nil {
		return respondError(c, err)
	}
	orderID, err := pathObjectID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	ctx := c.Request().Context()
	order, err := oc.orders.Get(ctx, orderID)
	if err != nil {
		return respondError(c, err)
	}
	if order.MemberID != memberID {
		return respondError(c, apperrors.Forbidden("Order does not belong to you"))
	}

	completion, err := oc.orders.CompleteOrder(ctx, orderID)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Order completed successfully", completion)
}

func (oc *OrderController) Stats(c echo.Context) error {
	productID, err := pathObjectID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	stats, err := oc.orders.GetOrderStats(c.Request().Context(), productID)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Order statistics retrieved successfully", stats)
}
