package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/punguzo/mlm_backend/apperrors"
	"github.com/punguzo/mlm_backend/models"
	"github.com/punguzo/mlm_backend/services"
)

type CommissionController struct {
	commissions *services.CommissionService
	points      *services.PointService
}

func NewCommissionController(commissions *services.CommissionService, points *services.PointService) *CommissionController {
	return &CommissionController{commissions: commissions, points: points}
}

// Calculate distributes commissions for one of the caller's orders.
func (cc *CommissionController) Calculate(c echo.Context) error {
	callerID, err := currentMember(c)
	if err != nil {
		return respondError(c, err)
	}
	var req models.DistributeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}

	orderID, err := primitive.ObjectIDFromHex(req.OrderID)
	if err != nil {
		return respondError(c, apperrors.Validation("Validation failed", map[string]string{"orderId": "invalid id"}))
	}
	memberID, err := primitive.ObjectIDFromHex(req.MemberID)
	if err != nil {
		return respondError(c, apperrors.Validation("Validation failed", map[string]string{"memberId": "invalid id"}))
	}
	if memberID != callerID {
		return respondError(c, apperrors.Forbidden("Commissions can only be calculated for your own orders"))
	}

	result, err := cc.commissions.Distribute(c.Request().Context(), orderID, memberID, req.Amount)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Commission calculated successfully", result)
}

// History lists the caller's commission ledger rows, newest first.
func (cc *CommissionController) History(c echo.Context) error {
	id, err := currentMember(c)
	if err != nil {
		return respondError(c, err)
	}
	rows, err := cc.commissions.History(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Commission history retrieved successfully", rows)
}

// Eligibility reports whether the caller has unlocked personal and team commissions.
func (cc *CommissionController) Eligibility(c echo.Context) error {
	id, err := currentMember(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx := c.Request().Context()
	personal, err := cc.points.IsEligibleForPersonalCommission(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	team, err := cc.points.IsEligibleForTeamCommission(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Eligibility retrieved successfully", map[string]bool{
		"personalCommission": personal,
		"teamCommission":     team,
	})
}
