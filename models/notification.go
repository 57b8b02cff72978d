package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification types
const (
	NotificationCommission  = "commission"
	NotificationDownline    = "downline"
	NotificationMilestone   = "milestone"
	NotificationSalesTarget = "sales_target"
)

// Notification is the stored copy of an alert shown in the member's inbox.
type Notification struct {
	ID        primitive.ObjectID     `json:"id,omitempty" bson:"_id,omitempty"`
	UserID    primitive.ObjectID     `json:"userId" bson:"userId"`
	Title     string                 `json:"title" bson:"title"`
	Body      string                 `json:"body" bson:"body"`
	Type      string                 `json:"type" bson:"type"`
	Data      map[string]interface{} `json:"data,omitempty" bson:"data,omitempty"`
	IsRead    bool                   `json:"isRead" bson:"isRead"`
	ReadAt    *time.Time             `json:"readAt,omitempty" bson:"readAt,omitempty"`
	CreatedAt time.Time              `json:"createdAt" bson:"createdAt"`
}

// AccessToken is the durable copy of a partner API token.
type AccessToken struct {
	Key       string    `json:"key" bson:"key"`
	Value     string    `json:"-" bson:"value"`
	ExpiresAt time.Time `json:"expiresAt" bson:"expiresAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}
