package controllers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/punguzo/mlm_backend/apperrors"
	"github.com/punguzo/mlm_backend/logging"
	"github.com/punguzo/mlm_backend/middleware"
	"github.com/punguzo/mlm_backend/models"
	"github.com/punguzo/mlm_backend/services"
	"github.com/punguzo/mlm_backend/utils"
)

// AuthTokenConfig carries the JWT signing settings.
type AuthTokenConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Blacklist receives tokens invalidated by logout.
	Blacklist middleware.TokenBlacklist
}

// AuthController handles registration, login and token refresh.
type AuthController struct {
	registration *services.RegistrationService
	members      *services.MemberService
	tokens       AuthTokenConfig
	uploadsDir   string
	logger       *zap.Logger
}

func NewAuthController(registration *services.RegistrationService, members *services.MemberService, tokens AuthTokenConfig, uploadsDir string) *AuthController {
	return &AuthController{
		registration: registration,
		members:      members,
		tokens:       tokens,
		uploadsDir:   uploadsDir,
		logger:       logging.Named("auth"),
	}
}

type authPayload struct {
	Member *models.Member     `json:"member"`
	Tokens *models.AuthTokens `json:"tokens"`
}

func (ac *AuthController) issue(c echo.Context, status int, message string, member *models.Member) error {
	tokens, err := middleware.GenerateJWT(ac.tokens.Secret, member, ac.tokens.AccessTTL, ac.tokens.RefreshTTL)
	if err != nil {
		return respondError(c, apperrors.Internal(err, "failed to issue tokens"))
	}
	return respond(c, status, message, authPayload{Member: member, Tokens: tokens})
}

// Register accepts multipart or JSON registration with an optional profileImage file.
func (ac *AuthController) Register(c echo.Context) error {
	var req models.RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}
	req.FirstName = utils.SanitizeInput(req.FirstName)
	req.LastName = utils.SanitizeInput(req.LastName)
	req.ShopName = utils.SanitizeInput(req.ShopName)
	req.ShopLocation = utils.SanitizeInput(req.ShopLocation)

	var profileImage string
	if file, err := c.FormFile("profileImage"); err == nil {
		profileImage, err = storeProfileImage(ac.uploadsDir, file)
		if err != nil {
			return respondError(c, err)
		}
	}

	member, err := ac.registration.Register(c.Request().Context(), req, c.RealIP(), profileImage)
	if err != nil {
		if profileImage != "" {
			if rmErr := utils.RemoveUpload(ac.uploadsDir, profileImage); rmErr != nil {
				ac.logger.Warn("failed to remove orphaned profile image", zap.Error(rmErr))
			}
		}
		return respondError(c, err)
	}

	return ac.issue(c, http.StatusCreated, "Registration successful", member)
}

func (ac *AuthController) CheckPhone(c echo.Context) error {
	var req models.CheckPhoneRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}

	exists, err := ac.registration.CheckPhone(c.Request().Context(), req.PhoneNumber)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Phone number checked", map[string]bool{
		"exists":    exists,
		"available": !exists,
	})
}

func (ac *AuthController) VerifySponsor(c echo.Context) error {
	var req models.VerifySponsorRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}

	sponsor, err := ac.registration.VerifySponsor(c.Request().Context(), req.SponsorID)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Sponsor verified", sponsor)
}

func (ac *AuthController) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}

	member, err := ac.registration.Login(c.Request().Context(), req.PhoneNumber, req.PIN)
	if err != nil {
		return respondError(c, err)
	}
	return ac.issue(c, http.StatusOK, "Login successful", member)
}

// Refresh exchanges a valid refresh token for a new token pair.
func (ac *AuthController) Refresh(c echo.Context) error {
	var req models.RefreshRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}

	claims, err := middleware.ParseRefreshToken(ac.tokens.Secret, req.RefreshToken)
	if err != nil {
		return respondError(c, apperrors.Unauthorized("Invalid or expired refresh token"))
	}
	if ac.tokens.Blacklist != nil {
		revoked, err := ac.tokens.Blacklist.IsTokenBlacklisted(c.Request().Context(), req.RefreshToken)
		if err != nil {
			return respondError(c, apperrors.Internal(err, "check refresh token"))
		}
		if revoked {
			return respondError(c, apperrors.Unauthorized("Invalid or expired refresh token"))
		}
	}

	memberID, err := primitive.ObjectIDFromHex(claims.MemberID)
	if err != nil {
		return respondError(c, apperrors.Unauthorized("Invalid or expired refresh token"))
	}
	member, err := ac.members.Get(c.Request().Context(), memberID)
	if err != nil {
		return respondError(c, apperrors.Unauthorized("Invalid or expired refresh token"))
	}
	if member.AccountStatus == models.AccountBlocked {
		return respondError(c, apperrors.Forbidden("This account has been blocked"))
	}
	return ac.issue(c, http.StatusOK, "Token refreshed", member)
}

// Logout invalidates the bearer access token and, when supplied, the member's refresh token.
func (ac *AuthController) Logout(c echo.Context) error {
	raw, expiresAt, ok := middleware.TokenExpiry(c)
	if !ok {
		return respondError(c, apperrors.Unauthorized("Invalid token"))
	}
	memberID, err := middleware.MemberIDFromContext(c)
	if err != nil {
		return respondError(c, apperrors.Unauthorized("Invalid token"))
	}

	var req models.LogoutRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, apperrors.InvalidArgument("Invalid request body"))
	}

	revoke := map[string]time.Time{raw: expiresAt}
	if req.RefreshToken != "" {
		claims, err := middleware.ParseRefreshToken(ac.tokens.Secret, req.RefreshToken)
		if err != nil || claims.MemberID != memberID.Hex() {
			return respondError(c, apperrors.Validation("Validation failed", map[string]string{
				"refreshToken": "refresh token is invalid or belongs to another member",
			}))
		}
		revoke[req.RefreshToken] = time.Unix(claims.ExpiresAt, 0)
	}

	for token, expiry := range revoke {
		if err := ac.tokens.Blacklist.BlacklistToken(c.Request().Context(), token, expiry); err != nil {
			return respondError(c, apperrors.Internal(err, "blacklist token"))
		}
	}

	ac.logger.Info("member logged out", zap.String("memberId", memberID.Hex()))
	return respond(c, http.StatusOK, "Logged out successfully", nil)
}
