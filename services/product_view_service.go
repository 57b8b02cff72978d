package services

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/punguzo/mlm_backend/logging"
	"github.com/punguzo/mlm_backend/models"
	"github.com/punguzo/mlm_backend/monitoring"
	"github.com/punguzo/mlm_backend/repositories"
)

const defaultPopularLimit = 10

var (
	trendingPopularityWeight = decimal.RequireFromString("0.4")
	trendingSalesWeight      = decimal.RequireFromString("0.4")
	trendingRevenueWeight    = decimal.RequireFromString("0.2")
)

// PopularityScore is floor(views*0.4 + sales*0.6), computed in integers so the
// truncation is exact.
func PopularityScore(monthlyViews, monthlySales int64) int64 {
	return (monthlyViews*4 + monthlySales*6) / 10
}

// TrendingScore is popularity*0.4 + sales*0.4 + revenue*0.2.
func TrendingScore(p *models.Product) decimal.Decimal {
	return decimal.NewFromInt(p.PopularityScore).Mul(trendingPopularityWeight).
		Add(decimal.NewFromInt(p.MonthlySales).Mul(trendingSalesWeight)).
		Add(p.MonthlyRevenue.Mul(trendingRevenueWeight))
}

// MonthWindow returns [start of month, start of next month) for t.
func MonthWindow(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 1, 0)
}

// RankTrending orders products by trending score, highest first, ties by id.
func RankTrending(products []models.Product, limit int) []models.ScoredProduct {
	type ranked struct {
		product models.Product
		score   decimal.Decimal
	}
	rows := make([]ranked, len(products))
	for i := range products {
		rows[i] = ranked{product: products[i], score: TrendingScore(&products[i])}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if c := rows[i].score.Cmp(rows[j].score); c != 0 {
			return c > 0
		}
		return rows[i].product.ID.Hex() < rows[j].product.ID.Hex()
	})

	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]models.ScoredProduct, len(rows))
	for i, r := range rows {
		out[i] = models.ScoredProduct{Product: r.product, Score: r.score.InexactFloat64()}
	}
	return out
}

type ProductViewService struct {
	products repositories.ProductRepository
	views    repositories.ProductViewRepository
	orders   repositories.OrderRepository
	tx       repositories.Transactor
	now      func() time.Time
	logger   *zap.Logger
}

func NewProductViewService(
	products repositories.ProductRepository,
	views repositories.ProductViewRepository,
	orders repositories.OrderRepository,
	tx repositories.Transactor,
) *ProductViewService {
	return &ProductViewService{
		products: products,
		views:    views,
		orders:   orders,
		tx:       tx,
		now:      time.Now,
		logger:   logging.Named("popularity"),
	}
}

// TrackView records a view and refreshes the product's monthly metrics atomically.
func (s *ProductViewService) TrackView(ctx context.Context, productID primitive.ObjectID, viewerID *primitive.ObjectID, ip, userAgent string) error {
	err := runInTx(ctx, s.tx, func(ctx context.Context) error {
		if _, err := s.products.FindByID(ctx, productID); err != nil {
			return lookupErr(err, "product %s not found", productID.Hex())
		}

		if err := s.views.Insert(ctx, &models.ProductView{
			ProductID: productID,
			UserID:    viewerID,
			IPAddress: ip,
			UserAgent: userAgent,
			ViewedAt:  s.now(),
		}); err != nil {
			return err
		}

		_, err := s.UpdateMonthlyMetrics(ctx, productID)
		return err
	})
	if err != nil {
		s.logger.Error("failed to track product view", zap.String("product_id", productID.Hex()), zap.Error(err))
		return abortErr(err, "product view was not recorded")
	}

	monitoring.ProductViewsTracked.Inc()
	s.logger.Debug("product view tracked", zap.String("product_id", productID.Hex()))
	return nil
}

// UpdateMonthlyMetrics recomputes the current calendar month's views, completed sales
// and revenue, then overwrites the stored snapshot and popularity score.
func (s *ProductViewService) UpdateMonthlyMetrics(ctx context.Context, productID primitive.ObjectID) (*models.ProductMetrics, error) {
	now := s.now()
	from, to := MonthWindow(now)

	views, err := s.views.CountBetween(ctx, productID, from, to)
	if err != nil {
		return nil, err
	}
	sales, revenue, err := s.orders.CompletedBetween(ctx, productID, from, to)
	if err != nil {
		return nil, err
	}

	metrics := models.ProductMetrics{
		MonthlyViews:    views,
		MonthlySales:    sales,
		MonthlyRevenue:  revenue,
		PopularityScore: PopularityScore(views, sales),
		LastViewedAt:    now,
	}
	if err := s.products.UpdateMetrics(ctx, productID, metrics); err != nil {
		return nil, lookupErr(err, "product %s not found", productID.Hex())
	}
	return &metrics, nil
}

// RecomputeAll refreshes the monthly metrics of every product. Used by the operator CLI
// at month boundaries, when stored snapshots go stale without new events.
func (s *ProductViewService) RecomputeAll(ctx context.Context) (int, error) {
	products, _, err := s.products.List(ctx, models.ProductFilter{}, 0, 0)
	if err != nil {
		return 0, err
	}
	for _, p := range products {
		if _, err := s.UpdateMonthlyMetrics(ctx, p.ID); err != nil {
			return 0, err
		}
	}
	return len(products), nil
}

// GetPopularProducts returns the most popular products, ties going to higher monthly
// revenue. A non-positive limit means 10.
func (s *ProductViewService) GetPopularProducts(ctx context.Context, limit int) ([]models.Product, error) {
	if limit <= 0 {
		limit = defaultPopularLimit
	}
	products, _, err := s.products.List(ctx, models.ProductFilter{Sort: models.SortPopularRevenue}, 0, int64(clampLimit(limit)))
	return products, err
}

// GetProductViewStats returns the stored snapshot plus this month's daily view counts.
func (s *ProductViewService) GetProductViewStats(ctx context.Context, productID primitive.ObjectID) (*models.ProductViewStats, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, lookupErr(err, "product %s not found", productID.Hex())
	}

	from, to := MonthWindow(s.now())
	daily, err := s.views.DailyCounts(ctx, productID, from, to)
	if err != nil {
		return nil, err
	}

	return &models.ProductViewStats{
		MonthlyViews:    product.MonthlyViews,
		MonthlySales:    product.MonthlySales,
		MonthlyRevenue:  product.MonthlyRevenue,
		PopularityScore: product.PopularityScore,
		LastViewed:      product.LastViewedAt,
		LastSold:        product.LastSoldAt,
		DailyViews:      daily,
	}, nil
}
