// models/auth.go
package models

// RegisterRequest is the registration payload; the profile image arrives as a multipart file.
type RegisterRequest struct {
	FirstName    string `json:"firstName" form:"firstName" validate:"required,max=255"`
	LastName     string `json:"lastName" form:"lastName" validate:"required,max=255"`
	PhoneNumber  string `json:"phoneNumber" form:"phoneNumber" validate:"required"`
	PIN          string `json:"pin" form:"pin" validate:"required,len=4,numeric"`
	Email        string `json:"email,omitempty" form:"email" validate:"omitempty,email"`
	ShopName     string `json:"shopName" form:"shopName" validate:"required,max=255"`
	ShopLocation string `json:"shopLocation" form:"shopLocation" validate:"required,max=255"`
	SponsorID    string `json:"sponsorId" form:"sponsorId" validate:"required"`
}

type LoginRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required"`
	PIN         string `json:"pin" validate:"required"`
}

type CheckPhoneRequest struct {
	PhoneNumber string `json:"phoneNumber" query:"phoneNumber" validate:"required"`
}

type VerifySponsorRequest struct {
	SponsorID string `json:"sponsorId" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// LogoutRequest optionally names the refresh token to invalidate with the access token.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type FCMTokenRequest struct {
	FCMToken string `json:"fcmToken" validate:"required"`
}

// AuthTokens is returned by login, registration and refresh.
type AuthTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// SponsorSummary describes a verified sponsor.
type SponsorSummary struct {
	FirstName      string  `json:"firstName"`
	LastName       string  `json:"lastName"`
	SellerID       string  `json:"sellerId"`
	Level          int     `json:"level"`
	CommissionRate float64 `json:"commissionRate"`
	DownlinesCount int64   `json:"downlinesCount"`
	MaxDownlines   int     `json:"maxDownlines"`
}
