package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/punguzo/mlm_backend/models"
)

// MongoAccessRepository is a small key/value store for partner credentials.
type MongoAccessRepository struct {
	collection *mongo.Collection
}

func NewAccessRepository(db *mongo.Database) *MongoAccessRepository {
	return &MongoAccessRepository{
		collection: db.Collection("access"),
	}
}

func (r *MongoAccessRepository) Get(ctx context.Context, key string) (*models.AccessToken, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var token models.AccessToken
	if err := r.collection.FindOne(ctx, bson.M{"key": key}).Decode(&token); err != nil {
		return nil, translate(err)
	}
	return &token, nil
}

func (r *MongoAccessRepository) Put(ctx context.Context, token *models.AccessToken) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.collection.UpdateOne(ctx,
		bson.M{"key": token.Key},
		bson.M{"$set": bson.M{
			"value":     token.Value,
			"expiresAt": token.ExpiresAt,
			"updatedAt": token.UpdatedAt,
		}},
		options.Update().SetUpsert(true),
	)
	return err
}
