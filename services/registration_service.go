package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/punguzo/mlm_backend/apperrors"
	"github.com/punguzo/mlm_backend/logging"
	"github.com/punguzo/mlm_backend/models"
	"github.com/punguzo/mlm_backend/repositories"
)

const supportContact = "Please contact support at 0754 244 888."

var (
	phonePattern   = regexp.MustCompile(`^(?:255|0)[67]\d{8}$`)
	sponsorPattern = regexp.MustCompile(`^SLR\d{6}$`)
)

const (
	newMemberLevel          = 1
	newMemberCommissionRate = 5.0
	sellerIDSequence        = "sellerId"
)

type RegistrationService struct {
	members         repositories.MemberRepository
	counters        repositories.CounterRepository
	tx              repositories.Transactor
	notifier        Notifier
	blockedPhones   map[string]bool
	blockedSponsors map[string]bool
	now             func() time.Time
	logger          *zap.Logger
}

func NewRegistrationService(
	members repositories.MemberRepository,
	counters repositories.CounterRepository,
	tx repositories.Transactor,
	notifier Notifier,
	blockedPhones, blockedSponsors []string,
) *RegistrationService {
	return &RegistrationService{
		members:         members,
		counters:        counters,
		tx:              tx,
		notifier:        notifier,
		blockedPhones:   toSet(blockedPhones),
		blockedSponsors: toSet(blockedSponsors),
		now:             time.Now,
		logger:          logging.Named("registration"),
	}
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[strings.TrimSpace(v)] = true
	}
	return set
}

func (s *RegistrationService) checkPhone(phone string) error {
	if !phonePattern.MatchString(phone) {
		return apperrors.Validation("invalid phone number", map[string]string{
			"phoneNumber": "phone number must look like 2557XXXXXXXX or 07XXXXXXXX",
		})
	}
	if s.blockedPhones[phone] {
		s.logger.Warn("blocked phone number attempt", zap.String("phone_number", phone))
		return apperrors.Forbidden("This phone number has been blocked. %s", supportContact)
	}
	return nil
}

func (s *RegistrationService) checkSponsorID(sponsorID string) error {
	if !sponsorPattern.MatchString(sponsorID) {
		return apperrors.Validation("invalid sponsor ID", map[string]string{
			"sponsorId": "sponsor ID must look like SLR000000",
		})
	}
	if s.blockedSponsors[sponsorID] {
		s.logger.Warn("blocked sponsor ID attempt", zap.String("sponsor_id", sponsorID))
		return apperrors.Forbidden("This sponsor ID has been blocked. %s", supportContact)
	}
	return nil
}

// CheckPhone reports whether the phone number already belongs to a member.
func (s *RegistrationService) CheckPhone(ctx context.Context, phone string) (bool, error) {
	if err := s.checkPhone(phone); err != nil {
		return false, err
	}
	_, err := s.members.FindByPhone(ctx, phone)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, repositories.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// checkDownlineCap fails once the sponsor has as many direct downlines as its level allows.
func (s *RegistrationService) checkDownlineCap(ctx context.Context, sponsor *models.Member) (int64, int, error) {
	count, err := s.members.CountDownlines(ctx, sponsor.ID)
	if err != nil {
		return 0, 0, err
	}
	max := models.MaxDownlinesForLevel(sponsor.SellerLevel)
	if count >= int64(max) {
		s.logger.Warn("sponsor has reached maximum downlines",
			zap.String("sponsor_id", sponsor.SellerID), zap.Int64("current", count), zap.Int("max", max))
		return count, max, apperrors.BusinessRule("This sponsor has reached their maximum number of downlines. %s", supportContact)
	}
	return count, max, nil
}

// VerifySponsor checks that a sponsor exists, is active and can take another downline.
func (s *RegistrationService) VerifySponsor(ctx context.Context, sponsorID string) (*models.SponsorSummary, error) {
	if err := s.checkSponsorID(sponsorID); err != nil {
		return nil, err
	}

	sponsor, err := s.members.FindBySellerID(ctx, sponsorID)
	if err != nil || !sponsor.IsActive() {
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return nil, err
		}
		return nil, apperrors.NotFound("Invalid sponsor ID. %s", supportContact)
	}

	count, max, err := s.checkDownlineCap(ctx, sponsor)
	if err != nil {
		return nil, err
	}

	return &models.SponsorSummary{
		FirstName:      sponsor.FirstName,
		LastName:       sponsor.LastName,
		SellerID:       sponsor.SellerID,
		Level:          sponsor.SellerLevel,
		CommissionRate: sponsor.CommissionRate,
		DownlinesCount: count,
		MaxDownlines:   max,
	}, nil
}

// Register creates a member under an active sponsor. The sponsor's downline counter is
// updated in the same transaction and the sponsor is alerted after commit.
func (s *RegistrationService) Register(ctx context.Context, req models.RegisterRequest, ip, profileImage string) (*models.Member, error) {
	if err := s.checkPhone(req.PhoneNumber); err != nil {
		return nil, err
	}
	if err := s.checkSponsorID(req.SponsorID); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.PIN), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to hash PIN")
	}

	var member *models.Member
	err = runInTx(ctx, s.tx, func(ctx context.Context) error {
		if _, err := s.members.FindByPhone(ctx, req.PhoneNumber); err == nil {
			return apperrors.BusinessRule("The phone number has already been taken.")
		} else if !errors.Is(err, repositories.ErrNotFound) {
			return err
		}

		if req.Email != "" {
			taken, err := s.members.ExistsByEmail(ctx, req.Email)
			if err != nil {
				return err
			}
			if taken {
				return apperrors.BusinessRule("The email has already been taken.")
			}
		}

		sponsor, err := s.members.FindBySellerID(ctx, req.SponsorID)
		if err != nil || !sponsor.IsActive() {
			if err != nil && !errors.Is(err, repositories.ErrNotFound) {
				return err
			}
			return apperrors.BusinessRule("Invalid sponsor ID. %s", supportContact)
		}
		if _, _, err := s.checkDownlineCap(ctx, sponsor); err != nil {
			return err
		}

		seq, err := s.counters.Next(ctx, sellerIDSequence)
		if err != nil {
			return err
		}

		now := s.now()
		member = &models.Member{
			ID:             primitive.NewObjectID(),
			SellerID:       fmt.Sprintf("SLR%06d", seq),
			UplineID:       &sponsor.ID,
			FirstName:      req.FirstName,
			LastName:       req.LastName,
			PhoneNumber:    req.PhoneNumber,
			Email:          req.Email,
			PIN:            string(hash),
			ShopName:       req.ShopName,
			ShopLocation:   req.ShopLocation,
			ProfileImage:   profileImage,
			SellerLevel:    newMemberLevel,
			CommissionRate: newMemberCommissionRate,
			AccountStatus:  models.AccountActive,
			RegistrationIP: ip,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.members.Create(ctx, member); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				return apperrors.BusinessRule("A member with these details already exists.")
			}
			return err
		}
		if err := s.members.IncrementDownlines(ctx, sponsor.ID); err != nil {
			return err
		}

		newMember := member
		afterCommit(ctx, func(ctx context.Context) {
			s.notifier.SendDownlineRegistrationAlert(ctx, newMember.ID, newMember.FullName())
		})
		return nil
	})
	if err != nil {
		s.logger.Warn("registration failed",
			zap.String("phone_number", req.PhoneNumber), zap.String("sponsor_id", req.SponsorID), zap.Error(err))
		return nil, abortErr(err, "registration rolled back")
	}

	s.logger.Info("member registered",
		zap.String("member_id", member.ID.Hex()), zap.String("seller_id", member.SellerID), zap.String("sponsor_id", req.SponsorID))
	return member, nil
}

// Login checks a phone number and PIN.
func (s *RegistrationService) Login(ctx context.Context, phone, pin string) (*models.Member, error) {
	invalid := apperrors.Validation("The provided credentials are incorrect.", map[string]string{
		"phoneNumber": "The provided credentials are incorrect.",
	})

	member, err := s.members.FindByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			s.logger.Warn("login failed: member not found", zap.String("phone_number", phone))
			return nil, invalid
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(member.PIN), []byte(pin)); err != nil {
		s.logger.Warn("login failed: invalid PIN", zap.String("member_id", member.ID.Hex()))
		return nil, invalid
	}
	if member.AccountStatus == models.AccountBlocked {
		return nil, apperrors.Forbidden("This account has been blocked. %s", supportContact)
	}
	return member, nil
}
