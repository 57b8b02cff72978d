package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product is a catalog entry synced from the partner feed plus its derived popularity state.
type Product struct {
	ID                       primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	ExternalID               string             `json:"externalId" bson:"externalId"`
	Name                     string             `json:"name" bson:"name"`
	Description              string             `json:"description,omitempty" bson:"description,omitempty"`
	Category                 string             `json:"category,omitempty" bson:"category,omitempty"`
	MerchantName             string             `json:"merchantName,omitempty" bson:"merchantName,omitempty"`
	PickupLocations          string             `json:"pickupLocations,omitempty" bson:"pickupLocations,omitempty"`
	ShopRegion               string             `json:"shopRegion,omitempty" bson:"shopRegion,omitempty"`
	Region                   string             `json:"region,omitempty" bson:"region,omitempty"`
	SellingPrice             *float64           `json:"sellingPrice,omitempty" bson:"sellingPrice,omitempty"`
	OriginalPrice            *float64           `json:"originalPrice,omitempty" bson:"originalPrice,omitempty"`
	DiscountPrice            *float64           `json:"discountPrice,omitempty" bson:"discountPrice,omitempty"`
	TotalItemAvailable       *int64             `json:"totalItemAvailable,omitempty" bson:"totalItemAvailable,omitempty"`
	WithinRegionDeliveryFee  float64            `json:"withinRegionDeliveryFee" bson:"withinRegionDeliveryFee"`
	OutsideRegionDeliveryFee float64            `json:"outsideRegionDeliveryFee" bson:"outsideRegionDeliveryFee"`
	IsDeliveryAllowed        bool               `json:"isDeliveryAllowed" bson:"isDeliveryAllowed"`
	MediaJSON                string             `json:"mediaJson,omitempty" bson:"mediaJson,omitempty"`
	RawJSON                  string             `json:"-" bson:"rawJson,omitempty"`

	MonthlyViews    int64           `json:"monthlyViews" bson:"monthlyViews"`
	MonthlySales    int64           `json:"monthlySales" bson:"monthlySales"`
	MonthlyRevenue  decimal.Decimal `json:"monthlyRevenue" bson:"monthlyRevenue"`
	PopularityScore int64           `json:"popularityScore" bson:"popularityScore"`
	LastViewedAt    *time.Time      `json:"lastViewedAt,omitempty" bson:"lastViewedAt,omitempty"`
	LastSoldAt      *time.Time      `json:"lastSoldAt,omitempty" bson:"lastSoldAt,omitempty"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// ProductMetrics is the monthly snapshot written by the popularity engine.
type ProductMetrics struct {
	MonthlyViews    int64
	MonthlySales    int64
	MonthlyRevenue  decimal.Decimal
	PopularityScore int64
	LastViewedAt    time.Time
}

// Product list orders. Every order ends with the id so pages are stable.
const (
	// SortPopularity orders by popularity score, monthly sales, then monthly revenue.
	SortPopularity = ""
	// SortPopularRevenue orders by popularity score, then monthly revenue.
	SortPopularRevenue = "popular_revenue"
	// SortTrending orders by popularity*0.4 + sales*0.4 + revenue*0.2.
	SortTrending = "trending"
)

// ProductFilter narrows catalog reads. Zero values mean no filter.
type ProductFilter struct {
	Category          string
	Categories        []string
	ExcludeCategories []string
	Search            string
	ExcludeID         primitive.ObjectID
	IDs               []primitive.ObjectID
	Sort              string
}

// ScoredProduct is a product with the score it was ranked by.
type ScoredProduct struct {
	Product
	Score float64 `json:"score"`
}

// ProductViewStats is the monthly snapshot plus daily view counts keyed by YYYY-MM-DD.
type ProductViewStats struct {
	MonthlyViews    int64            `json:"monthlyViews"`
	MonthlySales    int64            `json:"monthlySales"`
	MonthlyRevenue  decimal.Decimal  `json:"monthlyRevenue"`
	PopularityScore int64            `json:"popularityScore"`
	LastViewed      *time.Time       `json:"lastViewed,omitempty"`
	LastSold        *time.Time       `json:"lastSold,omitempty"`
	DailyViews      map[string]int64 `json:"dailyViews"`
}

// CategoryGroup is one bucket of the grouped catalog listing.
type CategoryGroup struct {
	Category string    `json:"category"`
	Products []Product `json:"products"`
}

// FeedProduct is one entry of the partner get_products response.
type FeedProduct struct {
	ID                       json.RawMessage `json:"id"`
	Name                     string          `json:"name"`
	Description              *string         `json:"description"`
	Category                 *string         `json:"category"`
	MerchantName             *string         `json:"merchant_name"`
	ShopRegion               *string         `json:"shop_region"`
	Merchant                 *FeedMerchant   `json:"merchant"`
	SellingPrice             *float64        `json:"selling_price"`
	OriginalPrice            *float64        `json:"original_price"`
	DiscountPrice            *float64        `json:"discount_price"`
	TotalItemAvailable       *int64          `json:"total_item_available"`
	WithinRegionDeliveryFee  *float64        `json:"within_region_delivery_fee"`
	OutsideRegionDeliveryFee *float64        `json:"outside_region_delivery_fee"`
	IsDeliveryAllowed        bool            `json:"is_delivery_allowed"`
	Media                    json.RawMessage `json:"media"`
}

type FeedMerchant struct {
	PickupLocations json.RawMessage `json:"pickup_locations"`
	Region          *string         `json:"region"`
}

// FeedPage is the partner get_products response envelope.
type FeedPage struct {
	Results []json.RawMessage `json:"results"`
}

// FeedToken is the partner generate_token response.
type FeedToken struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// SyncResult reports the outcome of one catalog sync page.
type SyncResult struct {
	InsertedCount int `json:"insertedCount"`
	UpdatedCount  int `json:"updatedCount"`
}
