package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/punguzo/mlm_backend/logging"
	"github.com/punguzo/mlm_backend/models"
	"github.com/punguzo/mlm_backend/services"
	"github.com/punguzo/mlm_backend/utils"
)

const defaultRecommendationLimit = 10

// ProductController serves catalog reads, view tracking and recommendations.
type ProductController struct {
	catalog         *services.CatalogService
	views           *services.ProductViewService
	recommendations *services.RecommendationService
	logger          *zap.Logger
}

func NewProductController(catalog *services.CatalogService, views *services.ProductViewService, recommendations *services.RecommendationService) *ProductController {
	return &ProductController{
		catalog:         catalog,
		views:           views,
		recommendations: recommendations,
		logger:          logging.Named("products"),
	}
}

// List supports ?category=, ?search=, ?page= and ?limit=.
func (pc *ProductController) List(c echo.Context) error {
	filter := models.ProductFilter{
		Category: utils.SanitizeInput(c.QueryParam("category")),
		Search:   utils.SanitizeInput(c.QueryParam("search")),
	}
	page, err := pc.catalog.List(c.Request().Context(), filter, int64(queryInt(c, "page", 1)), int64(queryInt(c, "limit", 20)))
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Products retrieved successfully", page)
}

func (pc *ProductController) ByCategory(c echo.Context) error {
	groups, err := pc.catalog.GroupedByCategory(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Products retrieved successfully", groups)
}

// Get returns a product and records the view. A failed view record does not fail the read.
func (pc *ProductController) Get(c echo.Context) error {
	productID, err := pathObjectID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx := c.Request().Context()
	product, err := pc.catalog.Get(ctx, productID)
	if err != nil {
		return respondError(c, err)
	}

	if memberID, err := currentMember(c); err == nil {
		if err := pc.views.TrackView(ctx, productID, &memberID, c.RealIP(), c.Request().UserAgent()); err != nil {
			pc.logger.Warn("failed to track product view", zap.String("product_id", productID.Hex()), zap.Error(err))
		}
	}
	return respond(c, http.StatusOK, "Product retrieved successfully", product)
}

func (pc *ProductController) TrackView(c echo.Context) error {
	productID, err := pathObjectID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	memberID, err := currentMember(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := pc.views.TrackView(c.Request().Context(), productID, &memberID, c.RealIP(), c.Request().UserAgent()); err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "View recorded", nil)
}

func (pc *ProductController) ViewStats(c echo.Context) error {
	productID, err := pathObjectID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	stats, err := pc.views.GetProductViewStats(c.Request().Context(), productID)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Product view stats retrieved successfully", stats)
}

func (pc *ProductController) Recommended(c echo.Context) error {
	memberID, err := currentMember(c)
	if err != nil {
		return respondError(c, err)
	}
	items, err := pc.recommendations.GetPersonalized(c.Request().Context(), memberID, queryInt(c, "limit", defaultRecommendationLimit))
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Recommendations retrieved successfully", items)
}

func (pc *ProductController) Trending(c echo.Context) error {
	items, err := pc.recommendations.GetTrending(c.Request().Context(), queryInt(c, "limit", defaultRecommendationLimit))
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Trending products retrieved successfully", items)
}

// Popular lists the most popular products across the catalog.
func (pc *ProductController) Popular(c echo.Context) error {
	items, err := pc.views.GetPopularProducts(c.Request().Context(), queryInt(c, "limit", defaultRecommendationLimit))
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Popular products retrieved successfully", items)
}

func (pc *ProductController) PopularByCategory(c echo.Context) error {
	category := utils.SanitizeInput(c.Param("category"))
	items, err := pc.recommendations.GetPopularByCategory(c.Request().Context(), category, queryInt(c, "limit", defaultRecommendationLimit))
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Popular products retrieved successfully", items)
}

func (pc *ProductController) Similar(c echo.Context) error {
	productID, err := pathObjectID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	items, err := pc.recommendations.GetSimilar(c.Request().Context(), productID, queryInt(c, "limit", defaultRecommendationLimit))
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Similar products retrieved successfully", items)
}
