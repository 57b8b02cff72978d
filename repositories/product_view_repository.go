package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/punguzo/mlm_backend/models"
)

// MongoProductViewRepository is append-only; views are never updated or deleted.
type MongoProductViewRepository struct {
	collection *mongo.Collection
}

func NewProductViewRepository(db *mongo.Database) *MongoProductViewRepository {
	return &MongoProductViewRepository{
		collection: db.Collection("product_views"),
	}
}

func (r *MongoProductViewRepository) Insert(ctx context.Context, view *models.ProductView) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if view.ID.IsZero() {
		view.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, view)
	return err
}

func (r *MongoProductViewRepository) CountBetween(ctx context.Context, productID primitive.ObjectID, from, to time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return r.collection.CountDocuments(ctx, bson.M{
		"productId": productID,
		"viewedAt":  bson.M{"$gte": from, "$lt": to},
	})
}

// DailyCounts groups views in [from, to) by UTC calendar day (YYYY-MM-DD).
func (r *MongoProductViewRepository) DailyCounts(ctx context.Context, productID primitive.ObjectID, from, to time.Time) (map[string]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"productId": productID,
			"viewedAt":  bson.M{"$gte": from, "$lt": to},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$viewedAt"}},
			"count": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Date  string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Date] = row.Count
	}
	return counts, nil
}

func (r *MongoProductViewRepository) ProductIDsViewedBy(ctx context.Context, userID primitive.ObjectID, since time.Time) ([]primitive.ObjectID, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	values, err := r.collection.Distinct(ctx, "productId", bson.M{
		"userId":   userID,
		"viewedAt": bson.M{"$gte": since},
	})
	if err != nil {
		return nil, err
	}
	return objectIDs(values), nil
}
