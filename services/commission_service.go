package services

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/punguzo/mlm_backend/apperrors"
	"github.com/punguzo/mlm_backend/logging"
	"github.com/punguzo/mlm_backend/models"
	"github.com/punguzo/mlm_backend/monitoring"
	"github.com/punguzo/mlm_backend/repositories"
)

var (
	PersonalCommissionRate = decimal.RequireFromString("0.05")
	// TeamCommissionRates holds the rate for upline levels 1 to 4.
	TeamCommissionRates = []decimal.Decimal{
		decimal.RequireFromString("0.03"),
		decimal.RequireFromString("0.02"),
		decimal.RequireFromString("0.01"),
		decimal.RequireFromString("0.005"),
	}
)

// PointCreditor is the part of PointService the commission engine needs.
type PointCreditor interface {
	AddPoints(ctx context.Context, credit PointCredit) (*models.Member, error)
}

type CommissionService struct {
	members     repositories.MemberRepository
	orders      repositories.OrderRepository
	settlements repositories.SettlementRepository
	ledger      repositories.PointTransactionRepository
	points      PointCreditor
	tx          repositories.Transactor
	notifier    Notifier
	now         func() time.Time
	logger      *zap.Logger
}

func NewCommissionService(
	members repositories.MemberRepository,
	orders repositories.OrderRepository,
	settlements repositories.SettlementRepository,
	ledger repositories.PointTransactionRepository,
	points PointCreditor,
	tx repositories.Transactor,
	notifier Notifier,
) *CommissionService {
	return &CommissionService{
		members:     members,
		orders:      orders,
		settlements: settlements,
		ledger:      ledger,
		points:      points,
		tx:          tx,
		notifier:    notifier,
		now:         time.Now,
		logger:      logging.Named("commission"),
	}
}

// checkDistributable allows commissions only on the beneficiary's own completed order,
// for no more than the order total.
func checkDistributable(order *models.Order, beneficiaryID primitive.ObjectID, amount decimal.Decimal) error {
	if order.MemberID != beneficiaryID {
		return apperrors.Forbidden("order %s does not belong to member %s", order.ID.Hex(), beneficiaryID.Hex())
	}
	if order.Status != models.OrderCompleted {
		return apperrors.BusinessRule("order %s is not completed", order.ID.Hex())
	}
	if amount.GreaterThan(order.TotalAmount) {
		return apperrors.Validation("Validation failed", map[string]string{
			"amount": "amount must not exceed the order total of " + order.TotalAmount.StringFixed(2),
		})
	}
	return nil
}

// Distribute credits the personal commission to the beneficiary and team commissions
// to at most four uplines, all or nothing. Alerts go out after commit.
func (s *CommissionService) Distribute(ctx context.Context, orderID, beneficiaryID primitive.ObjectID, amount decimal.Decimal) (*models.DistributionResult, error) {
	if amount.IsNegative() {
		return nil, apperrors.InvalidArgument("amount must not be negative")
	}

	var result *models.DistributionResult
	err := runInTx(ctx, s.tx, func(ctx context.Context) error {
		order, err := s.orders.FindByID(ctx, orderID)
		if err != nil {
			return lookupErr(err, "order %s not found", orderID.Hex())
		}
		member, err := s.members.FindByID(ctx, beneficiaryID)
		if err != nil {
			return lookupErr(err, "member %s not found", beneficiaryID.Hex())
		}
		if err := checkDistributable(order, member.ID, amount); err != nil {
			return err
		}

		if err := s.settlements.Record(ctx, orderID, models.SettlementCommission, s.now()); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				return apperrors.BusinessRule("commissions for order %s were already distributed", orderID.Hex())
			}
			return err
		}

		result = &models.DistributionResult{OrderID: orderID, TeamCommissions: []models.CommissionEvent{}}

		personal, err := s.credit(ctx, orderID, member.ID, 0, PersonalCommissionRate, amount)
		if err != nil {
			return err
		}
		result.PersonalCommission = personal

		current := member
		for level := 1; level <= MaxUplineDepth; level++ {
			upline, err := s.members.UplineOf(ctx, current)
			if err != nil {
				return err
			}
			if upline == nil {
				break
			}
			event, err := s.credit(ctx, orderID, upline.ID, level, TeamCommissionRates[level-1], amount)
			if err != nil {
				return err
			}
			result.TeamCommissions = append(result.TeamCommissions, event)
			current = upline
		}
		return nil
	})
	if err != nil {
		s.logger.Error("commission distribution failed",
			zap.String("order_id", orderID.Hex()), zap.String("member_id", beneficiaryID.Hex()), zap.Error(err))
		return nil, abortErr(err, "commission distribution rolled back")
	}

	s.logger.Info("commissions distributed",
		zap.String("order_id", orderID.Hex()),
		zap.String("member_id", beneficiaryID.Hex()),
		zap.String("personal", result.PersonalCommission.Amount.String()),
		zap.Int("team_levels", len(result.TeamCommissions)))
	return result, nil
}

// credit pays one level. Level 0 is the personal commission.
func (s *CommissionService) credit(ctx context.Context, orderID, beneficiaryID primitive.ObjectID, level int, rate, amount decimal.Decimal) (models.CommissionEvent, error) {
	commission := amount.Mul(rate)

	var levelRef *int
	if level > 0 {
		l := level
		levelRef = &l
	}

	if _, err := s.points.AddPoints(ctx, PointCredit{
		MemberID: beneficiaryID,
		Amount:   commission,
		Type:     models.PointTypeCommission,
		OrderID:  &orderID,
		Level:    levelRef,
	}); err != nil {
		return models.CommissionEvent{}, err
	}

	afterCommit(ctx, func(ctx context.Context) {
		monitoring.CommissionsCredited.WithLabelValues(strconv.Itoa(level)).Inc()
		s.notifier.SendCommissionAlert(ctx, beneficiaryID, commission, &orderID, levelRef)
	})

	return models.CommissionEvent{
		BeneficiaryID: beneficiaryID,
		Level:         level,
		Rate:          rate,
		Amount:        commission,
	}, nil
}

// History returns the member's commission ledger, newest first.
func (s *CommissionService) History(ctx context.Context, memberID primitive.ObjectID) ([]models.PointTransaction, error) {
	return s.ledger.ListByUser(ctx, memberID, models.PointTypeCommission)
}
