package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/punguzo/mlm_backend/models"
)

// MongoPointTransactionRepository is the append-only points ledger.
type MongoPointTransactionRepository struct {
	collection *mongo.Collection
}

func NewPointTransactionRepository(db *mongo.Database) *MongoPointTransactionRepository {
	return &MongoPointTransactionRepository{
		collection: db.Collection("point_transactions"),
	}
}

func (r *MongoPointTransactionRepository) Insert(ctx context.Context, tx *models.PointTransaction) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if tx.ID.IsZero() {
		tx.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, tx)
	return err
}

func (r *MongoPointTransactionRepository) ListByUser(ctx context.Context, userID primitive.ObjectID, txType string) ([]models.PointTransaction, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	filter := bson.M{"userId": userID}
	if txType != "" {
		filter["type"] = txType
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	history := []models.PointTransaction{}
	if err := cursor.All(ctx, &history); err != nil {
		return nil, err
	}
	return history, nil
}
