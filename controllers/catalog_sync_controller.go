package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/punguzo/mlm_backend/apperrors"
	"github.com/punguzo/mlm_backend/services"
)

type CatalogSyncController struct {
	sync *services.CatalogSyncService
}

func NewCatalogSyncController(sync *services.CatalogSyncService) *CatalogSyncController {
	return &CatalogSyncController{sync: sync}
}

// Sync pulls one feed page. Paging comes from the query string or a JSON body.
func (sc *CatalogSyncController) Sync(c echo.Context) error {
	var q services.FeedQuery
	binder := &echo.DefaultBinder{}
	if err := binder.BindQueryParams(c, &q); err != nil {
		return respondError(c, apperrors.InvalidArgument("Invalid query parameters"))
	}
	if c.Request().ContentLength > 0 {
		if err := binder.BindBody(c, &q); err != nil {
			return respondError(c, apperrors.InvalidArgument("Invalid request body"))
		}
	}

	result, err := sc.sync.SyncProducts(c.Request().Context(), q)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Products synced successfully", result)
}
