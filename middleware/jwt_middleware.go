// middleware/jwt_middleware.go
package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/punguzo/mlm_backend/logging"
	"github.com/punguzo/mlm_backend/models"
)

// Token types carried in the claims.
const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
)

const memberIDKey = "memberId"

// JwtCustomClaims for JWT token
type JwtCustomClaims struct {
	MemberID  string `json:"memberId"`
	SellerID  string `json:"sellerId"`
	TokenType string `json:"tokenType"`
	jwt.StandardClaims
}

// JWTMiddleware accepts tokens signed with secret that are not on the blacklist and stores
// the member id in the context. A nil blacklist skips the logout check.
func JWTMiddleware(secret string, blacklist TokenBlacklist) echo.MiddlewareFunc {
	if secret == "" {
		logging.Logger.Warn("JWT_SECRET is not set, authenticated routes are disabled")
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				return c.JSON(http.StatusUnauthorized, models.Response{
					Status:  http.StatusUnauthorized,
					Message: "JWT configuration error",
				})
			}
		}
	}

	verify := middleware.JWTWithConfig(middleware.JWTConfig{
		SigningKey: []byte(secret),
		Claims:     &JwtCustomClaims{},
		SuccessHandler: func(c echo.Context) {
			claims := c.Get("user").(*jwt.Token).Claims.(*JwtCustomClaims)
			c.Set(memberIDKey, claims.MemberID)
		},
		ErrorHandler: func(err error) error {
			logging.Logger.Debug("jwt rejected", zap.Error(err))
			return echo.NewHTTPError(http.StatusUnauthorized, "Please provide valid credentials")
		},
	})
	if blacklist == nil {
		return verify
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return verify(rejectBlacklisted(blacklist, next))
	}
}

func rejectBlacklisted(blacklist TokenBlacklist, next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := c.Get("user").(*jwt.Token)
		revoked, err := blacklist.IsTokenBlacklisted(c.Request().Context(), token.Raw)
		if err != nil {
			logging.Logger.Error("token blacklist lookup failed", zap.Error(err))
			return echo.NewHTTPError(http.StatusServiceUnavailable, "Unable to verify credentials")
		}
		if revoked {
			return c.JSON(http.StatusUnauthorized, models.Response{
				Status:  http.StatusUnauthorized,
				Message: "Token has been invalidated",
			})
		}
		return next(c)
	}
}

// TokenExpiry returns the raw bearer token in the context and when it expires.
func TokenExpiry(c echo.Context) (string, time.Time, bool) {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return "", time.Time{}, false
	}
	claims, ok := token.Claims.(*JwtCustomClaims)
	if !ok {
		return "", time.Time{}, false
	}
	return token.Raw, time.Unix(claims.ExpiresAt, 0), true
}

// RequireAccessToken rejects refresh tokens presented as bearer credentials.
func RequireAccessToken() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := GetClaims(c)
			if claims == nil || claims.TokenType != TokenAccess {
				return c.JSON(http.StatusUnauthorized, models.Response{
					Status:  http.StatusUnauthorized,
					Message: "Access token required",
				})
			}
			return next(c)
		}
	}
}

// GenerateJWT issues an access and a refresh token for the member.
func GenerateJWT(secret string, member *models.Member, accessTTL, refreshTTL time.Duration) (*models.AuthTokens, error) {
	if secret == "" {
		return nil, errors.New("JWT_SECRET environment variable is required")
	}

	now := time.Now()
	sign := func(tokenType string, ttl time.Duration) (string, error) {
		claims := &JwtCustomClaims{
			MemberID:  member.ID.Hex(),
			SellerID:  member.SellerID,
			TokenType: tokenType,
			StandardClaims: jwt.StandardClaims{
				IssuedAt:  now.Unix(),
				ExpiresAt: now.Add(ttl).Unix(),
				Subject:   member.ID.Hex(),
			},
		}
		return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	}

	access, err := sign(TokenAccess, accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := sign(TokenRefresh, refreshTTL)
	if err != nil {
		return nil, err
	}

	return &models.AuthTokens{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(accessTTL.Seconds()),
	}, nil
}

// ParseRefreshToken validates a refresh token and returns its claims.
func ParseRefreshToken(secret, raw string) (*JwtCustomClaims, error) {
	claims := &JwtCustomClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.TokenType != TokenRefresh {
		return nil, errors.New("not a refresh token")
	}
	return claims, nil
}

// GetClaims extracts the member claims from the context.
func GetClaims(c echo.Context) *JwtCustomClaims {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return nil
	}
	claims, ok := token.Claims.(*JwtCustomClaims)
	if !ok {
		return nil
	}
	return claims
}

// MemberIDFromContext returns the authenticated member's id.
func MemberIDFromContext(c echo.Context) (primitive.ObjectID, error) {
	id, _ := c.Get(memberIDKey).(string)
	if id == "" {
		if claims := GetClaims(c); claims != nil {
			id = claims.MemberID
		}
	}
	if id == "" {
		return primitive.NilObjectID, errors.New("invalid token")
	}
	return primitive.ObjectIDFromHex(id)
}
