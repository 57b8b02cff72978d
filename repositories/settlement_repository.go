package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/punguzo/mlm_backend/models"
)

// MongoSettlementRepository relies on the unique (orderId, kind) index.
type MongoSettlementRepository struct {
	collection *mongo.Collection
}

func NewSettlementRepository(db *mongo.Database) *MongoSettlementRepository {
	return &MongoSettlementRepository{
		collection: db.Collection("order_settlements"),
	}
}

func (r *MongoSettlementRepository) Record(ctx context.Context, orderID primitive.ObjectID, kind string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.collection.InsertOne(ctx, models.OrderSettlement{
		ID:        primitive.NewObjectID(),
		OrderID:   orderID,
		Kind:      kind,
		CreatedAt: at,
	})
	return translate(err)
}
