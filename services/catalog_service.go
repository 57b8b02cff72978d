package services

import (
	"context"
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/punguzo/mlm_backend/models"
	"github.com/punguzo/mlm_backend/repositories"
)

const uncategorized = "Uncategorized"

// CatalogService serves the read side of the synced catalog.
type CatalogService struct {
	products repositories.ProductRepository
}

func NewCatalogService(products repositories.ProductRepository) *CatalogService {
	return &CatalogService{products: products}
}

// ProductPage is one page of a catalog listing.
type ProductPage struct {
	Products []models.Product `json:"products"`
	Total    int64            `json:"total"`
	Page     int64            `json:"page"`
	Limit    int64            `json:"limit"`
}

func (s *CatalogService) List(ctx context.Context, filter models.ProductFilter, page, limit int64) (*ProductPage, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	products, total, err := s.products.List(ctx, filter, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}
	return &ProductPage{Products: products, Total: total, Page: page, Limit: limit}, nil
}

func (s *CatalogService) Get(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "product %s not found", id.Hex())
	}
	return product, nil
}

// GroupByCategory buckets products by category, categories sorted by name with
// uncategorized products last.
func GroupByCategory(products []models.Product) []models.CategoryGroup {
	buckets := map[string][]models.Product{}
	for _, p := range products {
		category := p.Category
		if category == "" {
			category = uncategorized
		}
		buckets[category] = append(buckets[category], p)
	}

	names := make([]string, 0, len(buckets))
	for name := range buckets {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if (names[i] == uncategorized) != (names[j] == uncategorized) {
			return names[j] == uncategorized
		}
		return names[i] < names[j]
	})

	groups := make([]models.CategoryGroup, len(names))
	for i, name := range names {
		groups[i] = models.CategoryGroup{Category: name, Products: buckets[name]}
	}
	return groups
}

func (s *CatalogService) GroupedByCategory(ctx context.Context) ([]models.CategoryGroup, error) {
	products, _, err := s.products.List(ctx, models.ProductFilter{}, 0, 0)
	if err != nil {
		return nil, err
	}
	return GroupByCategory(products), nil
}
