package services

import (
	"context"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notifier dispatches member alerts. Delivery failures are logged by the
// implementation and never returned.
type Notifier interface {
	SendCommissionAlert(ctx context.Context, recipientID primitive.ObjectID, amount decimal.Decimal, orderID *primitive.ObjectID, level *int)
	SendDownlineRegistrationAlert(ctx context.Context, downlineID primitive.ObjectID, downlineName string)
	SendTeamMilestoneAlert(ctx context.Context, memberID primitive.ObjectID, milestone string, points int64)
	SendSalesTargetAlert(ctx context.Context, memberID primitive.ObjectID, target, current int64)
}
