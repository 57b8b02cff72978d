package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/punguzo/mlm_backend/models"
)

type MongoMemberRepository struct {
	collection *mongo.Collection
}

func NewMemberRepository(db *mongo.Database) *MongoMemberRepository {
	return &MongoMemberRepository{
		collection: db.Collection("members"),
	}
}

func (r *MongoMemberRepository) findOne(ctx context.Context, filter bson.M) (*models.Member, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var member models.Member
	if err := r.collection.FindOne(ctx, filter).Decode(&member); err != nil {
		return nil, translate(err)
	}
	return &member, nil
}

func (r *MongoMemberRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Member, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoMemberRepository) FindBySellerID(ctx context.Context, sellerID string) (*models.Member, error) {
	return r.findOne(ctx, bson.M{"sellerId": sellerID})
}

func (r *MongoMemberRepository) FindByPhone(ctx context.Context, phone string) (*models.Member, error) {
	return r.findOne(ctx, bson.M{"phoneNumber": phone})
}

func (r *MongoMemberRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"email": email}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *MongoMemberRepository) UplineOf(ctx context.Context, member *models.Member) (*models.Member, error) {
	if member == nil || member.UplineID == nil {
		return nil, nil
	}
	upline, err := r.FindByID(ctx, *member.UplineID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return upline, err
}

func (r *MongoMemberRepository) DownlinesOf(ctx context.Context, uplineID primitive.ObjectID) ([]models.Member, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{"uplineId": uplineID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	members := []models.Member{}
	if err := cursor.All(ctx, &members); err != nil {
		return nil, err
	}
	return members, nil
}

func (r *MongoMemberRepository) CountDownlines(ctx context.Context, uplineID primitive.ObjectID) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return r.collection.CountDocuments(ctx, bson.M{"uplineId": uplineID})
}

func (r *MongoMemberRepository) Create(ctx context.Context, member *models.Member) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if member.ID.IsZero() {
		member.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, member)
	return translate(err)
}

func (r *MongoMemberRepository) update(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoMemberRepository) IncrementDownlines(ctx context.Context, id primitive.ObjectID) error {
	return r.update(ctx, id, bson.M{
		"$inc": bson.M{"totalDownlines": 1},
		"$set": bson.M{"updatedAt": time.Now()},
	})
}

func (r *MongoMemberRepository) CreditPoints(ctx context.Context, id primitive.ObjectID, points int64, amount decimal.Decimal) (*models.Member, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	update := bson.M{
		"$inc": bson.M{"points": points, "commissionBalance": amount},
		"$set": bson.M{"updatedAt": time.Now()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var member models.Member
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&member); err != nil {
		return nil, translate(err)
	}
	return &member, nil
}

func (r *MongoMemberRepository) AddTeamPoints(ctx context.Context, id primitive.ObjectID, points int64) error {
	return r.update(ctx, id, bson.M{
		"$inc": bson.M{"teamPoints": points},
		"$set": bson.M{"updatedAt": time.Now()},
	})
}

func (r *MongoMemberRepository) AddSalesVolume(ctx context.Context, id primitive.ObjectID, amount decimal.Decimal) error {
	return r.update(ctx, id, bson.M{
		"$inc": bson.M{"totalSalesVolume": amount},
		"$set": bson.M{"updatedAt": time.Now()},
	})
}

func (r *MongoMemberRepository) UpdateFCMToken(ctx context.Context, id primitive.ObjectID, token string) error {
	return r.update(ctx, id, bson.M{"$set": bson.M{"fcmToken": token, "updatedAt": time.Now()}})
}

func (r *MongoMemberRepository) UpdateProfileImage(ctx context.Context, id primitive.ObjectID, path string) error {
	return r.update(ctx, id, bson.M{"$set": bson.M{"profileImage": path, "updatedAt": time.Now()}})
}
