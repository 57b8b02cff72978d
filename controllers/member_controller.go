package controllers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/punguzo/mlm_backend/apperrors"
	"github.com/punguzo/mlm_backend/logging"
	"github.com/punguzo/mlm_backend/models"
	"github.com/punguzo/mlm_backend/services"
	"github.com/punguzo/mlm_backend/utils"
)

const qrCodeSize = 300

// MemberController serves the authenticated member's own resources.
type MemberController struct {
	members    *services.MemberService
	uploadsDir string
	logger     *zap.Logger
}

func NewMemberController(members *services.MemberService, uploadsDir string) *MemberController {
	return &MemberController{
		members:    members,
		uploadsDir: uploadsDir,
		logger:     logging.Named("members"),
	}
}

func (mc *MemberController) Profile(c echo.Context) error {
	id, err := currentMember(c)
	if err != nil {
		return respondError(c, err)
	}
	member, err := mc.members.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Profile retrieved successfully", member)
}

func (mc *MemberController) UpdateFCMToken(c echo.Context) error {
	id, err := currentMember(c)
	if err != nil {
		return respondError(c, err)
	}
	var req models.FCMTokenRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}
	if err := mc.members.UpdateFCMToken(c.Request().Context(), id, req.FCMToken); err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "FCM token updated successfully", nil)
}

// UpdateProfileImage replaces the member's profile image with the uploaded profileImage file.
func (mc *MemberController) UpdateProfileImage(c echo.Context) error {
	id, err := currentMember(c)
	if err != nil {
		return respondError(c, err)
	}
	file, err := c.FormFile("profileImage")
	if err != nil {
		return respondError(c, apperrors.Validation("Validation failed", map[string]string{"profileImage": "required"}))
	}

	ctx := c.Request().Context()
	member, err := mc.members.Get(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	path, err := storeProfileImage(mc.uploadsDir, file)
	if err != nil {
		return respondError(c, err)
	}
	if err := mc.members.UpdateProfileImage(ctx, id, path); err != nil {
		mc.removeUpload(path)
		return respondError(c, err)
	}
	if strings.HasPrefix(member.ProfileImage, "/uploads/") {
		mc.removeUpload(member.ProfileImage)
	}
	return respond(c, http.StatusOK, "Profile image updated successfully", map[string]string{"profileImage": path})
}

func (mc *MemberController) removeUpload(path string) {
	if err := utils.RemoveUpload(mc.uploadsDir, path); err != nil {
		mc.logger.Warn("failed to remove profile image", zap.String("path", path), zap.Error(err))
	}
}

func (mc *MemberController) TeamStructure(c echo.Context) error {
	id, err := currentMember(c)
	if err != nil {
		return respondError(c, err)
	}
	team, err := mc.members.TeamStructure(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Team structure retrieved successfully", team)
}

// QRCode returns the member's seller id as a PNG QR code.
func (mc *MemberController) QRCode(c echo.Context) error {
	id, err := currentMember(c)
	if err != nil {
		return respondError(c, err)
	}
	member, err := mc.members.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	png, err := utils.SellerQRCode(member.SellerID, qrCodeSize)
	if err != nil {
		return respondError(c, apperrors.Internal(err, "failed to render QR code"))
	}
	return c.Blob(http.StatusOK, "image/png", png)
}

func (mc *MemberController) Wallet(c echo.Context) error {
	id, err := currentMember(c)
	if err != nil {
		return respondError(c, err)
	}
	wallet, err := mc.members.Wallet(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Wallet retrieved successfully", wallet)
}

func (mc *MemberController) TeamMembers(c echo.Context) error {
	id, err := currentMember(c)
	if err != nil {
		return respondError(c, err)
	}
	team, err := mc.members.TeamMembers(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Team members retrieved successfully", team)
}

func (mc *MemberController) TeamPerformance(c echo.Context) error {
	id, err := currentMember(c)
	if err != nil {
		return respondError(c, err)
	}
	perf, err := mc.members.TeamPerformance(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Team performance retrieved successfully", perf)
}
