package services

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/punguzo/mlm_backend/logging"
	"github.com/punguzo/mlm_backend/models"
	"github.com/punguzo/mlm_backend/monitoring"
	"github.com/punguzo/mlm_backend/repositories"
)

// SyncBatchSize bounds how many feed rows are reconciled per statement.
const SyncBatchSize = 500

// ProductFeed is the source of catalog pages.
type ProductFeed interface {
	GetProducts(ctx context.Context, q FeedQuery) ([]json.RawMessage, error)
}

type CatalogSyncService struct {
	feed     ProductFeed
	products repositories.ProductRepository
	tx       repositories.Transactor
	now      func() time.Time
	logger   *zap.Logger
}

func NewCatalogSyncService(feed ProductFeed, products repositories.ProductRepository, tx repositories.Transactor) *CatalogSyncService {
	return &CatalogSyncService{
		feed:     feed,
		products: products,
		tx:       tx,
		now:      time.Now,
		logger:   logging.Named("catalog_sync"),
	}
}

// SyncProducts pulls one feed page and merges it into the catalog: unknown external ids
// are inserted, known ones are updated only when a synced field changed. Re-running an
// unchanged page writes nothing.
func (s *CatalogSyncService) SyncProducts(ctx context.Context, q FeedQuery) (*models.SyncResult, error) {
	if err := q.Normalize(); err != nil {
		return nil, err
	}

	rows, err := s.feed.GetProducts(ctx, q)
	if err != nil {
		return nil, err
	}

	result := &models.SyncResult{}
	for start := 0; start < len(rows); start += SyncBatchSize {
		end := start + SyncBatchSize
		if end > len(rows) {
			end = len(rows)
		}

		inserted, updated, err := s.syncBatch(ctx, rows[start:end])
		if err != nil {
			s.logger.Error("catalog batch failed", zap.Int("offset", start), zap.Error(err))
			return nil, abortErr(err, "catalog sync batch rolled back")
		}
		result.InsertedCount += inserted
		result.UpdatedCount += updated
	}

	monitoring.CatalogRowsSynced.WithLabelValues("insert").Add(float64(result.InsertedCount))
	monitoring.CatalogRowsSynced.WithLabelValues("update").Add(float64(result.UpdatedCount))
	s.logger.Info("sync complete",
		zap.String("filter_type", q.FilterType),
		zap.Int("offset", q.Offset),
		zap.Int("inserted", result.InsertedCount),
		zap.Int("updated", result.UpdatedCount))
	return result, nil
}

func (s *CatalogSyncService) syncBatch(ctx context.Context, rows []json.RawMessage) (int, int, error) {
	incoming := make([]models.Product, 0, len(rows))
	position := map[string]int{}
	for _, raw := range rows {
		product, err := productFromFeed(raw)
		if err != nil {
			s.logger.Warn("skipping malformed feed entry", zap.Error(err))
			continue
		}
		// A repeated external id in one page keeps its last occurrence.
		if i, seen := position[product.ExternalID]; seen {
			incoming[i] = product
			continue
		}
		position[product.ExternalID] = len(incoming)
		incoming = append(incoming, product)
	}
	if len(incoming) == 0 {
		return 0, 0, nil
	}

	externalIDs := make([]string, len(incoming))
	for i, p := range incoming {
		externalIDs[i] = p.ExternalID
	}

	var inserted, updated int
	err := runInTx(ctx, s.tx, func(ctx context.Context) error {
		existing, err := s.products.FindByExternalIDs(ctx, externalIDs)
		if err != nil {
			return err
		}

		now := s.now()
		var inserts []models.Product
		var updates []repositories.RowUpdate
		for _, p := range incoming {
			current, found := existing[p.ExternalID]
			if !found {
				p.CreatedAt = now
				p.UpdatedAt = now
				inserts = append(inserts, p)
				continue
			}
			if !syncedFieldsDiffer(&current, &p) {
				continue
			}
			fields := bson.M{"updatedAt": now}
			for _, col := range syncedColumns(&p) {
				fields[col.name] = col.value
			}
			updates = append(updates, repositories.RowUpdate{ID: current.ID, Fields: fields})
		}

		if inserted, err = s.products.InsertMany(ctx, inserts); err != nil {
			return err
		}
		if _, err = s.products.BulkUpdate(ctx, updates); err != nil {
			return err
		}
		updated = len(updates)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return inserted, updated, nil
}

type column struct {
	name  string
	value interface{}
}

// syncedColumns lists the fields owned by the feed, with pointers flattened so values compare with ==.
func syncedColumns(p *models.Product) []column {
	return []column{
		{"name", p.Name},
		{"description", p.Description},
		{"category", p.Category},
		{"merchantName", p.MerchantName},
		{"pickupLocations", p.PickupLocations},
		{"shopRegion", p.ShopRegion},
		{"region", p.Region},
		{"sellingPrice", floatOrNil(p.SellingPrice)},
		{"originalPrice", floatOrNil(p.OriginalPrice)},
		{"discountPrice", floatOrNil(p.DiscountPrice)},
		{"totalItemAvailable", intOrNil(p.TotalItemAvailable)},
		{"withinRegionDeliveryFee", p.WithinRegionDeliveryFee},
		{"outsideRegionDeliveryFee", p.OutsideRegionDeliveryFee},
		{"isDeliveryAllowed", p.IsDeliveryAllowed},
		{"mediaJson", p.MediaJSON},
		{"rawJson", p.RawJSON},
	}
}

func syncedFieldsDiffer(current, incoming *models.Product) bool {
	a, b := syncedColumns(current), syncedColumns(incoming)
	for i := range a {
		if a[i].value != b[i].value {
			return true
		}
	}
	return false
}

func floatOrNil(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func intOrNil(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// productFromFeed maps one feed entry onto the catalog fields it owns.
func productFromFeed(raw json.RawMessage) (models.Product, error) {
	var fp models.FeedProduct
	if err := json.Unmarshal(raw, &fp); err != nil {
		return models.Product{}, err
	}
	externalID := rawScalar(fp.ID)
	if externalID == "" {
		return models.Product{}, errMissingExternalID
	}

	p := models.Product{
		ExternalID:         externalID,
		Name:               fp.Name,
		Description:        deref(fp.Description),
		Category:           deref(fp.Category),
		MerchantName:       deref(fp.MerchantName),
		ShopRegion:         deref(fp.ShopRegion),
		SellingPrice:       fp.SellingPrice,
		OriginalPrice:      fp.OriginalPrice,
		DiscountPrice:      fp.DiscountPrice,
		TotalItemAvailable: fp.TotalItemAvailable,
		IsDeliveryAllowed:  fp.IsDeliveryAllowed,
		MediaJSON:          "[]",
		RawJSON:            compactJSON(raw),
	}
	if fp.WithinRegionDeliveryFee != nil {
		p.WithinRegionDeliveryFee = *fp.WithinRegionDeliveryFee
	}
	if fp.OutsideRegionDeliveryFee != nil {
		p.OutsideRegionDeliveryFee = *fp.OutsideRegionDeliveryFee
	}
	if fp.Merchant != nil {
		p.PickupLocations = rawScalar(fp.Merchant.PickupLocations)
		p.Region = deref(fp.Merchant.Region)
	}
	if len(fp.Media) > 0 && string(fp.Media) != "null" {
		p.MediaJSON = compactJSON(fp.Media)
	}
	return p, nil
}

type feedError string

func (e feedError) Error() string { return string(e) }

const errMissingExternalID = feedError("feed entry has no id")

// rawScalar renders a JSON value as text: strings unquoted, null empty, anything else compacted.
func rawScalar(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return ""
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return strings.TrimSpace(s)
		}
	}
	return compactJSON(trimmed)
}

func compactJSON(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
