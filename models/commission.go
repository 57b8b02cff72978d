package models

import (
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CommissionEvent is one credit produced by a distribution. Level 0 is the personal commission.
type CommissionEvent struct {
	BeneficiaryID primitive.ObjectID `json:"beneficiaryId"`
	Level         int                `json:"level"`
	Rate          decimal.Decimal    `json:"rate"`
	Amount        decimal.Decimal    `json:"amount"`
}

// DistributionResult is returned by a successful commission distribution.
type DistributionResult struct {
	OrderID            primitive.ObjectID `json:"orderId"`
	PersonalCommission CommissionEvent    `json:"personalCommission"`
	TeamCommissions    []CommissionEvent  `json:"teamCommissions"`
}

// DistributeRequest is the commission calculation payload.
type DistributeRequest struct {
	OrderID  string          `json:"orderId" validate:"required"`
	MemberID string          `json:"memberId" validate:"required"`
	Amount   decimal.Decimal `json:"amount"`
}

// CompleteOrderRequest is the order completion payload.
type CompleteOrderRequest struct {
	OrderID string `json:"orderId" validate:"required"`
}
