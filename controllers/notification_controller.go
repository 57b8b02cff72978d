package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/punguzo/mlm_backend/services"
)

type NotificationController struct {
	notifications *services.NotificationService
}

func NewNotificationController(notifications *services.NotificationService) *NotificationController {
	return &NotificationController{notifications: notifications}
}

func (nc *NotificationController) List(c echo.Context) error {
	memberID, err := currentMember(c)
	if err != nil {
		return respondError(c, err)
	}
	inbox, err := nc.notifications.ListInbox(c.Request().Context(), memberID,
		int64(queryInt(c, "page", 1)), int64(queryInt(c, "limit", 20)))
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Notifications retrieved successfully", inbox)
}

func (nc *NotificationController) MarkRead(c echo.Context) error {
	memberID, err := currentMember(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathObjectID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	if err := nc.notifications.MarkRead(c.Request().Context(), memberID, id); err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Notification marked as read", nil)
}

func (nc *NotificationController) MarkAllRead(c echo.Context) error {
	memberID, err := currentMember(c)
	if err != nil {
		return respondError(c, err)
	}
	count, err := nc.notifications.MarkAllRead(c.Request().Context(), memberID)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Notifications marked as read", map[string]int64{"updated": count})
}
