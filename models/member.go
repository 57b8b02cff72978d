// models/member.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Account statuses
const (
	AccountActive   = "active"
	AccountInactive = "inactive"
	AccountBlocked  = "blocked"
)

// DefaultMaxDownlines applies to seller levels missing from MaxDownlinesByLevel.
const DefaultMaxDownlines = 5

// MaxDownlinesByLevel bounds how many direct downlines a sponsor may have.
var MaxDownlinesByLevel = map[int]int{
	1: 5,
	2: 10,
	3: 20,
	4: 50,
	5: 100,
}

// MaxDownlinesForLevel returns the downline cap for a seller level.
func MaxDownlinesForLevel(level int) int {
	if max, ok := MaxDownlinesByLevel[level]; ok {
		return max
	}
	return DefaultMaxDownlines
}

// Member is a node in the sponsor forest. UplineID points at the sponsor; nil for roots.
type Member struct {
	ID                primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	SellerID          string              `json:"sellerId" bson:"sellerId"`
	UplineID          *primitive.ObjectID `json:"uplineId,omitempty" bson:"uplineId,omitempty"`
	FirstName         string              `json:"firstName" bson:"firstName"`
	LastName          string              `json:"lastName" bson:"lastName"`
	PhoneNumber       string              `json:"phoneNumber" bson:"phoneNumber"`
	Email             string              `json:"email,omitempty" bson:"email,omitempty"`
	PIN               string              `json:"-" bson:"pin"`
	ShopName          string              `json:"shopName,omitempty" bson:"shopName,omitempty"`
	ShopLocation      string              `json:"shopLocation,omitempty" bson:"shopLocation,omitempty"`
	ProfileImage      string              `json:"profileImage,omitempty" bson:"profileImage,omitempty"`
	SellerLevel       int                 `json:"sellerLevel" bson:"sellerLevel"`
	CommissionRate    float64             `json:"commissionRate" bson:"commissionRate"`
	Points            int64               `json:"points" bson:"points"`
	TeamPoints        int64               `json:"teamPoints" bson:"teamPoints"`
	CommissionBalance decimal.Decimal     `json:"commissionBalance" bson:"commissionBalance"`
	TotalSalesVolume  decimal.Decimal     `json:"totalSalesVolume" bson:"totalSalesVolume"`
	TotalDownlines    int                 `json:"totalDownlines" bson:"totalDownlines"`
	AccountStatus     string              `json:"accountStatus" bson:"accountStatus"`
	FCMToken          string              `json:"-" bson:"fcmToken,omitempty"`
	RegistrationIP    string              `json:"-" bson:"registrationIp,omitempty"`
	CreatedAt         time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time           `json:"updatedAt" bson:"updatedAt"`
}

// FullName joins first and last name.
func (m *Member) FullName() string {
	if m.LastName == "" {
		return m.FirstName
	}
	return m.FirstName + " " + m.LastName
}

// IsActive reports whether the account may sponsor and earn.
func (m *Member) IsActive() bool {
	return m.AccountStatus == AccountActive
}

// TeamStructure is the member's position in the forest: upline, downlines and their downlines.
type TeamStructure struct {
	Member          *Member          `json:"member"`
	Upline          *Member          `json:"upline,omitempty"`
	DirectDownlines []DownlineBranch `json:"directDownlines"`
}

type DownlineBranch struct {
	Member    Member   `json:"member"`
	Downlines []Member `json:"downlines"`
}

// TeamPerformance aggregates the direct downlines of a member.
type TeamPerformance struct {
	TotalMembers        int64           `json:"totalMembers"`
	TotalSales          decimal.Decimal `json:"totalSales"`
	TotalCommission     decimal.Decimal `json:"totalCommission"`
	ActiveMembers       int64           `json:"activeMembers"`
	NewMembersThisMonth int64           `json:"newMembersThisMonth"`
}

// Response model
type Response struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}

// Wallet is the member's balance view.
type Wallet struct {
	Points                     int64           `json:"points"`
	TeamPoints                 int64           `json:"teamPoints"`
	CommissionBalance          decimal.Decimal `json:"commissionBalance"`
	Currency                   string          `json:"currency"`
	PersonalCommissionEligible bool            `json:"personalCommissionEligible"`
	TeamCommissionEligible     bool            `json:"teamCommissionEligible"`
}
