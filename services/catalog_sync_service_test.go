package services

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/punguzo/mlm_backend/apperrors"
	"github.com/punguzo/mlm_backend/models"
)

type staticFeed struct {
	rows    []json.RawMessage
	err     error
	queries []FeedQuery
}

func (f *staticFeed) GetProducts(_ context.Context, q FeedQuery) ([]json.RawMessage, error) {
	f.queries = append(f.queries, q)
	return f.rows, f.err
}

func feedRows(t *testing.T, docs ...string) []json.RawMessage {
	t.Helper()
	rows := make([]json.RawMessage, len(docs))
	for i, d := range docs {
		rows[i] = json.RawMessage(d)
	}
	return rows
}

const (
	riceRow = `{"id": 101, "name": "Rice 5kg", "category": "Food", "selling_price": 12000,
		"merchant": {"pickup_locations": ["Kariakoo"], "region": "Dar es Salaam"},
		"within_region_delivery_fee": 2000, "is_delivery_allowed": true, "media": [{"url": "a.jpg"}]}`
	soapRow = `{"id": "S-7", "name": "Soap", "description": null, "total_item_available": 40}`
)

func TestSyncProducts_InsertThenIdempotent(t *testing.T) {
	f := newFixture("", false)
	feed := &staticFeed{rows: feedRows(t, riceRow, soapRow)}
	svc := NewCatalogSyncService(feed, f.products, f.tx)
	ctx := context.Background()

	result, err := svc.SyncProducts(ctx, FeedQuery{})
	if err != nil {
		t.Fatalf("SyncProducts: %v", err)
	}
	if result.InsertedCount != 2 || result.UpdatedCount != 0 {
		t.Fatalf("first run = %+v, want 2 inserted", result)
	}
	if q := feed.queries[0]; q.Limit != 20 || q.FilterType != "recently_sold" {
		t.Errorf("defaults not applied: %+v", q)
	}

	existing, _ := f.products.FindByExternalIDs(ctx, []string{"101", "S-7"})
	rice := existing["101"]
	if rice.Category != "Food" || rice.Region != "Dar es Salaam" || rice.PickupLocations != `["Kariakoo"]` {
		t.Errorf("rice = %+v", rice)
	}
	if rice.SellingPrice == nil || *rice.SellingPrice != 12000 || rice.WithinRegionDeliveryFee != 2000 {
		t.Errorf("rice prices = %v, %v", rice.SellingPrice, rice.WithinRegionDeliveryFee)
	}
	if rice.MediaJSON != `[{"url":"a.jpg"}]` {
		t.Errorf("media = %s", rice.MediaJSON)
	}
	if soap := existing["S-7"]; soap.MediaJSON != "[]" || soap.TotalItemAvailable == nil || *soap.TotalItemAvailable != 40 {
		t.Errorf("soap = %+v", soap)
	}

	again, err := svc.SyncProducts(ctx, FeedQuery{})
	if err != nil {
		t.Fatalf("second SyncProducts: %v", err)
	}
	if again.InsertedCount != 0 || again.UpdatedCount != 0 {
		t.Errorf("second run = %+v, want no writes", again)
	}
}

func TestSyncProducts_DetectsChanges(t *testing.T) {
	f := newFixture("", false)
	feed := &staticFeed{rows: feedRows(t, riceRow, soapRow)}
	svc := NewCatalogSyncService(feed, f.products, f.tx)
	ctx := context.Background()

	if _, err := svc.SyncProducts(ctx, FeedQuery{}); err != nil {
		t.Fatalf("SyncProducts: %v", err)
	}

	feed.rows = feedRows(t,
		`{"id": 101, "name": "Rice 5kg", "category": "Food", "selling_price": 11500,
		"merchant": {"pickup_locations": ["Kariakoo"], "region": "Dar es Salaam"},
		"within_region_delivery_fee": 2000, "is_delivery_allowed": true, "media": [{"url": "a.jpg"}]}`,
		soapRow,
		`{"id": 303, "name": "Sugar"}`,
	)
	result, err := svc.SyncProducts(ctx, FeedQuery{})
	if err != nil {
		t.Fatalf("SyncProducts: %v", err)
	}
	if result.InsertedCount != 1 || result.UpdatedCount != 1 {
		t.Fatalf("result = %+v, want 1 inserted and 1 updated", result)
	}

	existing, _ := f.products.FindByExternalIDs(ctx, []string{"101"})
	if p := existing["101"]; p.SellingPrice == nil || *p.SellingPrice != 11500 {
		t.Errorf("price not updated: %v", p.SellingPrice)
	}
}

func TestSyncProducts_KeepsPopularityState(t *testing.T) {
	f := newFixture("", false)
	f.store.addProduct(models.Product{ExternalID: "101", Name: "Old name", PopularityScore: 42, MonthlyViews: 60})
	feed := &staticFeed{rows: feedRows(t, riceRow)}
	svc := NewCatalogSyncService(feed, f.products, f.tx)

	result, err := svc.SyncProducts(context.Background(), FeedQuery{})
	if err != nil {
		t.Fatalf("SyncProducts: %v", err)
	}
	if result.UpdatedCount != 1 {
		t.Fatalf("result = %+v, want 1 update", result)
	}

	existing, _ := f.products.FindByExternalIDs(context.Background(), []string{"101"})
	p := existing["101"]
	if p.Name != "Rice 5kg" || p.PopularityScore != 42 || p.MonthlyViews != 60 {
		t.Errorf("product = %+v, want feed fields updated and metrics kept", p)
	}
}

func TestSyncProducts_SkipsMalformedAndDeduplicates(t *testing.T) {
	f := newFixture("", false)
	feed := &staticFeed{rows: feedRows(t,
		`{"name": "no id"}`,
		`not json`,
		`{"id": 9, "name": "first"}`,
		`{"id": 9, "name": "second"}`,
	)}
	svc := NewCatalogSyncService(feed, f.products, f.tx)

	result, err := svc.SyncProducts(context.Background(), FeedQuery{})
	if err != nil {
		t.Fatalf("SyncProducts: %v", err)
	}
	if result.InsertedCount != 1 {
		t.Fatalf("inserted = %d, want 1", result.InsertedCount)
	}
	existing, _ := f.products.FindByExternalIDs(context.Background(), []string{"9"})
	if existing["9"].Name != "second" {
		t.Errorf("name = %s, want last occurrence", existing["9"].Name)
	}
}

func TestSyncProducts_Batches(t *testing.T) {
	f := newFixture("", false)
	docs := make([]string, SyncBatchSize+20)
	for i := range docs {
		docs[i] = fmt.Sprintf(`{"id": %d, "name": "item %d"}`, i, i)
	}
	feed := &staticFeed{rows: feedRows(t, docs...)}
	svc := NewCatalogSyncService(feed, f.products, f.tx)

	result, err := svc.SyncProducts(context.Background(), FeedQuery{})
	if err != nil {
		t.Fatalf("SyncProducts: %v", err)
	}
	if result.InsertedCount != len(docs) {
		t.Errorf("inserted = %d, want %d", result.InsertedCount, len(docs))
	}
	if f.tx.calls != 2 {
		t.Errorf("transactions = %d, want one per batch", f.tx.calls)
	}
}

func TestSyncProducts_InvalidQuery(t *testing.T) {
	f := newFixture("", false)
	feed := &staticFeed{}
	svc := NewCatalogSyncService(feed, f.products, f.tx)

	_, err := svc.SyncProducts(context.Background(), FeedQuery{Limit: 15})
	if !apperrors.Is(err, apperrors.KindValidation) {
		t.Fatalf("error = %v, want validation", err)
	}
	if len(feed.queries) != 0 {
		t.Error("feed called with an invalid query")
	}
}

func TestSyncProducts_FeedError(t *testing.T) {
	f := newFixture("", false)
	upstream := apperrors.ExternalService(503, map[string]string{"message": "down"}, nil, "API request failed")
	svc := NewCatalogSyncService(&staticFeed{err: upstream}, f.products, f.tx)

	_, err := svc.SyncProducts(context.Background(), FeedQuery{})
	if apperrors.HTTPStatus(err) != 503 {
		t.Fatalf("status = %d, want upstream 503", apperrors.HTTPStatus(err))
	}
}

func TestFeedQueryNormalize(t *testing.T) {
	tests := []struct {
		name      string
		query     FeedQuery
		badFields []string
	}{
		{"defaults", FeedQuery{}, nil},
		{"page two", FeedQuery{Limit: 50, Offset: 100, FilterType: "wholesale"}, nil},
		{"limit too small", FeedQuery{Limit: 5}, []string{"limit"}},
		{"limit not multiple of ten", FeedQuery{Limit: 25}, []string{"limit"}},
		{"offset not multiple of limit", FeedQuery{Limit: 20, Offset: 30}, []string{"offset"}},
		{"negative offset", FeedQuery{Limit: 20, Offset: -20}, []string{"offset"}},
		{"unknown filter", FeedQuery{FilterType: "cheap"}, []string{"filter_type"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.query
			err := q.Normalize()
			if len(tt.badFields) == 0 {
				if err != nil {
					t.Fatalf("Normalize: %v", err)
				}
				return
			}
			e, ok := apperrors.As(err)
			if !ok || e.Kind != apperrors.KindValidation {
				t.Fatalf("error = %v, want validation", err)
			}
			for _, field := range tt.badFields {
				if _, ok := e.Fields[field]; !ok {
					t.Errorf("fields = %v, want %s", e.Fields, field)
				}
			}
		})
	}
}
