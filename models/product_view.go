package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProductView is an append-only view event.
type ProductView struct {
	ID        primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	ProductID primitive.ObjectID  `json:"productId" bson:"productId"`
	UserID    *primitive.ObjectID `json:"userId,omitempty" bson:"userId,omitempty"`
	IPAddress string              `json:"ipAddress,omitempty" bson:"ipAddress,omitempty"`
	UserAgent string              `json:"userAgent,omitempty" bson:"userAgent,omitempty"`
	ViewedAt  time.Time           `json:"viewedAt" bson:"viewedAt"`
}
