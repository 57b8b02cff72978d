package controllers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/punguzo/mlm_backend/apperrors"
	"github.com/punguzo/mlm_backend/logging"
	"github.com/punguzo/mlm_backend/middleware"
	"github.com/punguzo/mlm_backend/models"
	"github.com/punguzo/mlm_backend/utils"
)

// respondError converts err into the response envelope. Internal causes are logged, never returned.
func respondError(c echo.Context, err error) error {
	status := apperrors.HTTPStatus(err)
	resp := models.Response{
		Status:  status,
		Message: apperrors.PublicMessage(err),
	}

	if appErr, ok := apperrors.As(err); ok {
		switch {
		case len(appErr.Fields) > 0:
			resp.Errors = appErr.Fields
		case appErr.UpstreamDetails != nil:
			resp.Errors = appErr.UpstreamDetails
		}
	}

	if status >= http.StatusInternalServerError {
		logging.Logger.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err))
	}
	return c.JSON(status, resp)
}

func respond(c echo.Context, status int, message string, data interface{}) error {
	return c.JSON(status, models.Response{
		Status:  status,
		Message: message,
		Data:    data,
	})
}

// bindAndValidate binds the request into req and runs the struct validator.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return apperrors.InvalidArgument("Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		if fields := utils.FieldErrors(err); fields != nil {
			return apperrors.Validation("Validation failed", fields)
		}
		return apperrors.InvalidArgument("Invalid request body")
	}
	return nil
}

func currentMember(c echo.Context) (primitive.ObjectID, error) {
	id, err := middleware.MemberIDFromContext(c)
	if err != nil {
		return primitive.NilObjectID, apperrors.Unauthorized("Authentication failed")
	}
	return id, nil
}

func pathObjectID(c echo.Context, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		return primitive.NilObjectID, apperrors.InvalidArgument("Invalid %s", name)
	}
	return id, nil
}

func queryInt(c echo.Context, name string, def int) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return def
	}
	return v
}

// storeProfileImage saves an uploaded profile image, reporting bad files as validation errors.
func storeProfileImage(uploadsDir string, file *multipart.FileHeader) (string, error) {
	path, err := utils.SaveProfileImage(uploadsDir, file)
	if err != nil {
		if errors.Is(err, utils.ErrImageTooLarge) || errors.Is(err, utils.ErrImageType) {
			return "", apperrors.Validation("Invalid profile image", map[string]string{
				"profileImage": err.Error(),
			})
		}
		return "", apperrors.Internal(err, "failed to store profile image")
	}
	return path, nil
}
