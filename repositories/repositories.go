// Package repositories holds the MongoDB persistence layer.
package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/punguzo/mlm_backend/models"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate key")
)

const queryTimeout = 10 * time.Second

// MemberRepository is the member/upline directory plus the balance writes the engines need.
type MemberRepository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Member, error)
	FindBySellerID(ctx context.Context, sellerID string) (*models.Member, error)
	FindByPhone(ctx context.Context, phone string) (*models.Member, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// UplineOf returns nil, nil when the member has no upline.
	UplineOf(ctx context.Context, member *models.Member) (*models.Member, error)
	DownlinesOf(ctx context.Context, uplineID primitive.ObjectID) ([]models.Member, error)
	CountDownlines(ctx context.Context, uplineID primitive.ObjectID) (int64, error)
	Create(ctx context.Context, member *models.Member) error
	IncrementDownlines(ctx context.Context, id primitive.ObjectID) error
	// CreditPoints adds points and amount to the member and returns the updated document.
	CreditPoints(ctx context.Context, id primitive.ObjectID, points int64, amount decimal.Decimal) (*models.Member, error)
	AddTeamPoints(ctx context.Context, id primitive.ObjectID, points int64) error
	AddSalesVolume(ctx context.Context, id primitive.ObjectID, amount decimal.Decimal) error
	UpdateFCMToken(ctx context.Context, id primitive.ObjectID, token string) error
	UpdateProfileImage(ctx context.Context, id primitive.ObjectID, path string) error
}

type OrderRepository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	Create(ctx context.Context, order *models.Order) error
	MarkCompleted(ctx context.Context, id primitive.ObjectID, at time.Time) error
	// CompletedBetween returns the count and total amount of completed orders for a product in [from, to).
	CompletedBetween(ctx context.Context, productID primitive.ObjectID, from, to time.Time) (int64, decimal.Decimal, error)
	ProductIDsPurchasedBy(ctx context.Context, memberID primitive.ObjectID, since time.Time) ([]primitive.ObjectID, error)
	// AttachPayment stores the debit reference on the order and resets its payment status to pending.
	AttachPayment(ctx context.Context, id primitive.ObjectID, reference string, at time.Time) error
	// SetPaymentStatus updates the order carrying reference and returns it.
	SetPaymentStatus(ctx context.Context, reference, status string, at time.Time) (*models.Order, error)
}

type ProductRepository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	FindByExternalIDs(ctx context.Context, externalIDs []string) (map[string]models.Product, error)
	List(ctx context.Context, filter models.ProductFilter, skip, limit int64) ([]models.Product, int64, error)
	CategoriesOf(ctx context.Context, ids []primitive.ObjectID) ([]string, error)
	InsertMany(ctx context.Context, products []models.Product) (int, error)
	BulkUpdate(ctx context.Context, rows []RowUpdate) (int, error)
	UpdateMetrics(ctx context.Context, id primitive.ObjectID, metrics models.ProductMetrics) error
	SetLastSoldAt(ctx context.Context, id primitive.ObjectID, at time.Time) error
}

type ProductViewRepository interface {
	Insert(ctx context.Context, view *models.ProductView) error
	CountBetween(ctx context.Context, productID primitive.ObjectID, from, to time.Time) (int64, error)
	DailyCounts(ctx context.Context, productID primitive.ObjectID, from, to time.Time) (map[string]int64, error)
	ProductIDsViewedBy(ctx context.Context, userID primitive.ObjectID, since time.Time) ([]primitive.ObjectID, error)
}

type PointTransactionRepository interface {
	Insert(ctx context.Context, tx *models.PointTransaction) error
	ListByUser(ctx context.Context, userID primitive.ObjectID, txType string) ([]models.PointTransaction, error)
}

type SettlementRepository interface {
	// Record returns ErrDuplicate when the order was already settled for kind.
	Record(ctx context.Context, orderID primitive.ObjectID, kind string, at time.Time) error
}

type AccessRepository interface {
	Get(ctx context.Context, key string) (*models.AccessToken, error)
	Put(ctx context.Context, token *models.AccessToken) error
}

type NotificationRepository interface {
	Insert(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID primitive.ObjectID, skip, limit int64) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error)
	MarkRead(ctx context.Context, userID, id primitive.ObjectID, at time.Time) error
	MarkAllRead(ctx context.Context, userID primitive.ObjectID, at time.Time) (int64, error)
}

type CounterRepository interface {
	Next(ctx context.Context, name string) (int64, error)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	}
	return err
}
