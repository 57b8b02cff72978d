package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Ledger entry types
const (
	PointTypeCommission = "commission"
	PointTypeOrder      = "order"
)

// PointTransaction is an immutable ledger row written on every credit.
type PointTransaction struct {
	ID        primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	UserID    primitive.ObjectID  `json:"userId" bson:"userId"`
	Points    int64               `json:"points" bson:"points"`
	Amount    decimal.Decimal     `json:"amount" bson:"amount"`
	Type      string              `json:"type" bson:"type"`
	OrderID   *primitive.ObjectID `json:"orderId,omitempty" bson:"orderId,omitempty"`
	Level     *int                `json:"level,omitempty" bson:"level,omitempty"`
	CreatedAt time.Time           `json:"createdAt" bson:"createdAt"`
}
