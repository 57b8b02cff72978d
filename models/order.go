package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Order statuses
const (
	OrderPending   = "pending"
	OrderCompleted = "completed"
	OrderFailed    = "failed"
)

// Payment statuses
const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentFailed  = "failed"
)

type Order struct {
	ID               primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	MemberID         primitive.ObjectID `json:"memberId" bson:"memberId"`
	ProductID        primitive.ObjectID `json:"productId" bson:"productId"`
	TotalAmount      decimal.Decimal    `json:"totalAmount" bson:"totalAmount"`
	WholesaleAmount  decimal.Decimal    `json:"wholesaleAmount" bson:"wholesaleAmount"`
	Status           string             `json:"status" bson:"status"`
	PaymentStatus    string             `json:"paymentStatus,omitempty" bson:"paymentStatus,omitempty"`
	// PaymentReference is the referenceID sent with the partner debit request.
	PaymentReference string             `json:"paymentReference,omitempty" bson:"paymentReference,omitempty"`
	CreatedAt        time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// Profit is the margin the member earned on the order.
func (o *Order) Profit() decimal.Decimal {
	return o.TotalAmount.Sub(o.WholesaleAmount)
}

// OrderStats summarizes sales of a single product.
type OrderStats struct {
	TotalOrders     int64           `json:"totalOrders"`
	TotalRevenue    decimal.Decimal `json:"totalRevenue"`
	MonthlySales    int64           `json:"monthlySales"`
	MonthlyRevenue  decimal.Decimal `json:"monthlyRevenue"`
	PopularityScore int64           `json:"popularityScore"`
	LastSoldAt      *time.Time      `json:"lastSoldAt,omitempty"`
}

// Settlement kinds
const (
	SettlementCommission = "commission"
	SettlementPoints     = "points"
)

// OrderSettlement marks that an order's commissions or points were already applied.
type OrderSettlement struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	OrderID   primitive.ObjectID `json:"orderId" bson:"orderId"`
	Kind      string             `json:"kind" bson:"kind"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

// CreateOrderRequest is the order placement payload.
type CreateOrderRequest struct {
	ProductID       string          `json:"productId" validate:"required"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	WholesaleAmount decimal.Decimal `json:"wholesaleAmount"`
}
