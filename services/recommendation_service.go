package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/punguzo/mlm_backend/models"
	"github.com/punguzo/mlm_backend/repositories"
)

const (
	viewedCategoryWeight    = 0.3
	purchasedCategoryWeight = 0.7
	preferredCategoryBoost  = 1.2
	historyWindow           = 30 * 24 * time.Hour
	// recommendationDepth is how many entries are cached per key; requests are capped to it.
	recommendationDepth = 50
)

type RecommendationService struct {
	products repositories.ProductRepository
	views    repositories.ProductViewRepository
	orders   repositories.OrderRepository
	cache    Cache
	ttl      time.Duration
	now      func() time.Time
}

func NewRecommendationService(
	products repositories.ProductRepository,
	views repositories.ProductViewRepository,
	orders repositories.OrderRepository,
	cache Cache,
	ttl time.Duration,
) *RecommendationService {
	if cache == nil {
		cache = NopCache{}
	}
	return &RecommendationService{
		products: products,
		views:    views,
		orders:   orders,
		cache:    cache,
		ttl:      ttl,
		now:      time.Now,
	}
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > recommendationDepth {
		return recommendationDepth
	}
	return limit
}

func head[T any](items []T, limit int) []T {
	if len(items) > limit {
		return items[:limit]
	}
	return items
}

// PreferredCategories weighs the categories the member viewed (0.3) and bought (0.7)
// in the last 30 days. Purchases win over views for the same category.
func (s *RecommendationService) PreferredCategories(ctx context.Context, memberID primitive.ObjectID) (map[string]float64, error) {
	since := s.now().Add(-historyWindow)

	viewedIDs, err := s.views.ProductIDsViewedBy(ctx, memberID, since)
	if err != nil {
		return nil, err
	}
	viewed, err := s.products.CategoriesOf(ctx, viewedIDs)
	if err != nil {
		return nil, err
	}

	purchasedIDs, err := s.orders.ProductIDsPurchasedBy(ctx, memberID, since)
	if err != nil {
		return nil, err
	}
	purchased, err := s.products.CategoriesOf(ctx, purchasedIDs)
	if err != nil {
		return nil, err
	}

	weights := make(map[string]float64, len(viewed)+len(purchased))
	for _, c := range viewed {
		weights[c] = viewedCategoryWeight
	}
	for _, c := range purchased {
		weights[c] = purchasedCategoryWeight
	}
	return weights, nil
}

// RankPersonalized boosts products in preferred categories by 1.2x. Ties fall back to
// category weight, monthly sales, monthly revenue and id.
func RankPersonalized(products []models.Product, preferred map[string]float64, limit int) []models.ScoredProduct {
	scored := make([]models.ScoredProduct, len(products))
	for i, p := range products {
		score := float64(p.PopularityScore)
		if _, ok := preferred[p.Category]; ok {
			score *= preferredCategoryBoost
		}
		scored[i] = models.ScoredProduct{Product: p, Score: score}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if wa, wb := preferred[a.Category], preferred[b.Category]; wa != wb {
			return wa > wb
		}
		if a.MonthlySales != b.MonthlySales {
			return a.MonthlySales > b.MonthlySales
		}
		if c := a.MonthlyRevenue.Cmp(b.MonthlyRevenue); c != 0 {
			return c > 0
		}
		return a.ID.Hex() < b.ID.Hex()
	})

	return head(scored, limit)
}

// personalizedCandidates reads the most popular products of each category weight
// class. Products in one class share a boost, so the overall top entries are among them.
func (s *RecommendationService) personalizedCandidates(ctx context.Context, preferred map[string]float64) ([]models.Product, error) {
	byWeight := make(map[float64][]string)
	categories := make([]string, 0, len(preferred))
	for category, weight := range preferred {
		byWeight[weight] = append(byWeight[weight], category)
		categories = append(categories, category)
	}

	filters := []models.ProductFilter{{ExcludeCategories: categories}}
	for _, group := range byWeight {
		filters = append(filters, models.ProductFilter{Categories: group})
	}

	var candidates []models.Product
	for _, filter := range filters {
		products, _, err := s.products.List(ctx, filter, 0, recommendationDepth)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, products...)
	}
	return candidates, nil
}

func (s *RecommendationService) GetPersonalized(ctx context.Context, memberID primitive.ObjectID, limit int) ([]models.ScoredProduct, error) {
	key := fmt.Sprintf("user_recommendations_%s", memberID.Hex())
	items, err := remember(ctx, s.cache, key, s.ttl, func() ([]models.ScoredProduct, error) {
		preferred, err := s.PreferredCategories(ctx, memberID)
		if err != nil {
			return nil, err
		}
		products, err := s.personalizedCandidates(ctx, preferred)
		if err != nil {
			return nil, err
		}
		return RankPersonalized(products, preferred, recommendationDepth), nil
	})
	if err != nil {
		return nil, err
	}
	return head(items, clampLimit(limit)), nil
}

func (s *RecommendationService) GetTrending(ctx context.Context, limit int) ([]models.ScoredProduct, error) {
	items, err := remember(ctx, s.cache, "trending_products", s.ttl, func() ([]models.ScoredProduct, error) {
		products, _, err := s.products.List(ctx, models.ProductFilter{Sort: models.SortTrending}, 0, recommendationDepth)
		if err != nil {
			return nil, err
		}
		return RankTrending(products, recommendationDepth), nil
	})
	if err != nil {
		return nil, err
	}
	return head(items, clampLimit(limit)), nil
}

func (s *RecommendationService) GetPopularByCategory(ctx context.Context, category string, limit int) ([]models.Product, error) {
	key := fmt.Sprintf("popular_products_category_%s", category)
	items, err := remember(ctx, s.cache, key, s.ttl, func() ([]models.Product, error) {
		products, _, err := s.products.List(ctx, models.ProductFilter{Category: category}, 0, recommendationDepth)
		return products, err
	})
	if err != nil {
		return nil, err
	}
	return head(items, clampLimit(limit)), nil
}

func (s *RecommendationService) GetSimilar(ctx context.Context, productID primitive.ObjectID, limit int) ([]models.Product, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, lookupErr(err, "product %s not found", productID.Hex())
	}

	key := fmt.Sprintf("similar_products_%s", productID.Hex())
	items, err := remember(ctx, s.cache, key, s.ttl, func() ([]models.Product, error) {
		if product.Category == "" {
			return []models.Product{}, nil
		}
		products, _, err := s.products.List(ctx, models.ProductFilter{Category: product.Category, ExcludeID: productID}, 0, recommendationDepth)
		return products, err
	})
	if err != nil {
		return nil, err
	}
	return head(items, clampLimit(limit)), nil
}
