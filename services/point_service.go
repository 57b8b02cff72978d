package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/punguzo/mlm_backend/apperrors"
	"github.com/punguzo/mlm_backend/config"
	"github.com/punguzo/mlm_backend/logging"
	"github.com/punguzo/mlm_backend/models"
	"github.com/punguzo/mlm_backend/monitoring"
	"github.com/punguzo/mlm_backend/repositories"
)

const (
	PersonalPointsThreshold = 20
	TeamPointsThreshold     = 50
	// PointValue is the profit, in currency units, worth one point.
	PointValue = 1000
	// MaxUplineDepth bounds every upline walk.
	MaxUplineDepth = 4
)

const (
	MilestonePersonal = "Personal Sales Qualification"
	MilestoneTeam     = "Team Sales Qualification"
)

// PointCredit is a single addPoints call.
type PointCredit struct {
	MemberID primitive.ObjectID
	Amount   decimal.Decimal
	Type     string
	OrderID  *primitive.ObjectID
	Level    *int
}

type PointService struct {
	members        repositories.MemberRepository
	orders         repositories.OrderRepository
	ledger         repositories.PointTransactionRepository
	settlements    repositories.SettlementRepository
	tx             repositories.Transactor
	notifier       Notifier
	teamPointsMode string
	now            func() time.Time
	logger         *zap.Logger
}

func NewPointService(
	members repositories.MemberRepository,
	orders repositories.OrderRepository,
	ledger repositories.PointTransactionRepository,
	settlements repositories.SettlementRepository,
	tx repositories.Transactor,
	notifier Notifier,
	teamPointsMode string,
) *PointService {
	if teamPointsMode != config.TeamPointsDelta {
		teamPointsMode = config.TeamPointsCumulative
	}
	return &PointService{
		members:        members,
		orders:         orders,
		ledger:         ledger,
		settlements:    settlements,
		tx:             tx,
		notifier:       notifier,
		teamPointsMode: teamPointsMode,
		now:            time.Now,
		logger:         logging.Named("points"),
	}
}

// CalculatePointsFromProfit returns floor(profit / PointValue). Losses earn nothing.
func CalculatePointsFromProfit(profit decimal.Decimal) int64 {
	if !profit.IsPositive() {
		return 0
	}
	return profit.Div(decimal.NewFromInt(PointValue)).Floor().IntPart()
}

// UpdateMemberPoints credits the points earned by an order's profit, fires milestone
// alerts on threshold crossings and propagates team points up the upline chain.
// An order is credited at most once.
func (s *PointService) UpdateMemberPoints(ctx context.Context, memberID, orderID primitive.ObjectID) error {
	var credited int64

	err := runInTx(ctx, s.tx, func(ctx context.Context) error {
		if _, err := s.members.FindByID(ctx, memberID); err != nil {
			return lookupErr(err, "member %s not found", memberID.Hex())
		}
		order, err := s.orders.FindByID(ctx, orderID)
		if err != nil {
			return lookupErr(err, "order %s not found", orderID.Hex())
		}

		if err := s.settlements.Record(ctx, orderID, models.SettlementPoints, s.now()); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				return apperrors.BusinessRule("points for order %s were already credited", orderID.Hex())
			}
			return err
		}

		points := CalculatePointsFromProfit(order.Profit())
		member, err := s.members.CreditPoints(ctx, memberID, points, decimal.Zero)
		if err != nil {
			return lookupErr(err, "member %s not found", memberID.Hex())
		}

		if err := s.ledger.Insert(ctx, &models.PointTransaction{
			UserID:    memberID,
			Points:    points,
			Amount:    order.Profit(),
			Type:      models.PointTypeOrder,
			OrderID:   &orderID,
			CreatedAt: s.now(),
		}); err != nil {
			return err
		}

		oldPoints := member.Points - points
		s.checkMilestones(ctx, member.ID, oldPoints, member.Points)
		if points > 0 && member.Points < PersonalPointsThreshold {
			current := member.Points
			afterCommit(ctx, func(ctx context.Context) {
				s.notifier.SendSalesTargetAlert(ctx, memberID, PersonalPointsThreshold, current)
			})
		}

		credited = points
		afterCommit(ctx, func(context.Context) {
			monitoring.PointsCredited.Add(float64(points))
		})
		return s.propagateTeamPoints(ctx, member, points)
	})
	if err != nil {
		s.logger.Error("failed to update member points",
			zap.String("member_id", memberID.Hex()), zap.String("order_id", orderID.Hex()), zap.Error(err))
		return abortErr(err, "points update rolled back")
	}

	s.logger.Info("points updated",
		zap.String("member_id", memberID.Hex()), zap.String("order_id", orderID.Hex()), zap.Int64("points", credited))
	return nil
}

// AddPoints credits a commission amount: the exact amount to the commission balance
// and its whole part to points, with a ledger row, milestone checks and team propagation.
func (s *PointService) AddPoints(ctx context.Context, credit PointCredit) (*models.Member, error) {
	if credit.Amount.IsNegative() {
		return nil, apperrors.InvalidArgument("points amount must not be negative")
	}
	if credit.Type == "" {
		credit.Type = models.PointTypeCommission
	}

	points := credit.Amount.Floor().IntPart()
	var member *models.Member

	err := runInTx(ctx, s.tx, func(ctx context.Context) error {
		var err error
		member, err = s.members.CreditPoints(ctx, credit.MemberID, points, credit.Amount)
		if err != nil {
			return lookupErr(err, "member %s not found", credit.MemberID.Hex())
		}

		if err := s.ledger.Insert(ctx, &models.PointTransaction{
			UserID:    credit.MemberID,
			Points:    points,
			Amount:    credit.Amount,
			Type:      credit.Type,
			OrderID:   credit.OrderID,
			Level:     credit.Level,
			CreatedAt: s.now(),
		}); err != nil {
			return err
		}

		s.checkMilestones(ctx, member.ID, member.Points-points, member.Points)
		afterCommit(ctx, func(context.Context) {
			monitoring.PointsCredited.Add(float64(points))
		})
		return s.propagateTeamPoints(ctx, member, points)
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// checkMilestones fires an alert for each threshold crossed from below.
func (s *PointService) checkMilestones(ctx context.Context, memberID primitive.ObjectID, oldPoints, newPoints int64) {
	milestones := []struct {
		name      string
		threshold int64
	}{
		{MilestonePersonal, PersonalPointsThreshold},
		{MilestoneTeam, TeamPointsThreshold},
	}

	for _, m := range milestones {
		if oldPoints < m.threshold && newPoints >= m.threshold {
			name := m.name
			afterCommit(ctx, func(ctx context.Context) {
				monitoring.MilestonesReached.WithLabelValues(name).Inc()
				s.notifier.SendTeamMilestoneAlert(ctx, memberID, name, newPoints)
			})
		}
	}
}

// propagateTeamPoints adds to the team points of up to MaxUplineDepth uplines. In
// cumulative mode each upline receives the member's running total; in delta mode only
// the points just credited.
func (s *PointService) propagateTeamPoints(ctx context.Context, member *models.Member, delta int64) error {
	amount := member.Points
	if s.teamPointsMode == config.TeamPointsDelta {
		amount = delta
	}
	if amount <= 0 {
		return nil
	}

	current := member
	for level := 1; level <= MaxUplineDepth; level++ {
		upline, err := s.members.UplineOf(ctx, current)
		if err != nil {
			return err
		}
		if upline == nil {
			break
		}
		if err := s.members.AddTeamPoints(ctx, upline.ID, amount); err != nil {
			return err
		}
		current = upline
	}
	return nil
}

func (s *PointService) IsEligibleForPersonalCommission(ctx context.Context, memberID primitive.ObjectID) (bool, error) {
	member, err := s.members.FindByID(ctx, memberID)
	if err != nil {
		return false, lookupErr(err, "member %s not found", memberID.Hex())
	}
	return member.Points >= PersonalPointsThreshold, nil
}

func (s *PointService) IsEligibleForTeamCommission(ctx context.Context, memberID primitive.ObjectID) (bool, error) {
	member, err := s.members.FindByID(ctx, memberID)
	if err != nil {
		return false, lookupErr(err, "member %s not found", memberID.Hex())
	}
	return member.TeamPoints >= TeamPointsThreshold, nil
}
