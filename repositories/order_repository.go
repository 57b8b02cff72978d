package repositories

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/punguzo/mlm_backend/models"
)

type MongoOrderRepository struct {
	collection *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) *MongoOrderRepository {
	return &MongoOrderRepository{
		collection: db.Collection("orders"),
	}
}

func (r *MongoOrderRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var order models.Order
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&order); err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (r *MongoOrderRepository) Create(ctx context.Context, order *models.Order) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, order)
	return translate(err)
}

func (r *MongoOrderRepository) MarkCompleted(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"status":        models.OrderCompleted,
			"paymentStatus": models.PaymentPaid,
			"updatedAt":     at,
		},
	})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoOrderRepository) CompletedBetween(ctx context.Context, productID primitive.ObjectID, from, to time.Time) (int64, decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"productId": productID,
			"status":    models.OrderCompleted,
			"createdAt": bson.M{"$gte": from, "$lt": to},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":     nil,
			"count":   bson.M{"$sum": 1},
			"revenue": bson.M{"$sum": "$totalAmount"},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, decimal.Zero, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Count   int64           `bson:"count"`
		Revenue decimal.Decimal `bson:"revenue"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, decimal.Zero, err
	}
	if len(rows) == 0 {
		return 0, decimal.Zero, nil
	}
	return rows[0].Count, rows[0].Revenue, nil
}

func (r *MongoOrderRepository) ProductIDsPurchasedBy(ctx context.Context, memberID primitive.ObjectID, since time.Time) ([]primitive.ObjectID, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	values, err := r.collection.Distinct(ctx, "productId", bson.M{
		"memberId":  memberID,
		"createdAt": bson.M{"$gte": since},
	})
	if err != nil {
		return nil, err
	}
	return objectIDs(values), nil
}

func (r *MongoOrderRepository) AttachPayment(ctx context.Context, id primitive.ObjectID, reference string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"paymentReference": reference,
			"paymentStatus":    models.PaymentPending,
			"updatedAt":        at,
		},
	})
	if err != nil {
		return translate(err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoOrderRepository) SetPaymentStatus(ctx context.Context, reference, status string, at time.Time) (*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var order models.Order
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"paymentReference": reference}, bson.M{
		"$set": bson.M{"paymentStatus": status, "updatedAt": at},
	}, opts).Decode(&order)
	if err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func objectIDs(values []interface{}) []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(values))
	for _, v := range values {
		if id, ok := v.(primitive.ObjectID); ok {
			ids = append(ids, id)
		}
	}
	return ids
}
