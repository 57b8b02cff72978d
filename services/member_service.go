package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/punguzo/mlm_backend/models"
	"github.com/punguzo/mlm_backend/repositories"
)

// MemberService serves the member's own profile, wallet and team views.
type MemberService struct {
	members repositories.MemberRepository
	now     func() time.Time
}

func NewMemberService(members repositories.MemberRepository) *MemberService {
	return &MemberService{members: members, now: time.Now}
}

func (s *MemberService) Get(ctx context.Context, id primitive.ObjectID) (*models.Member, error) {
	member, err := s.members.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "member %s not found", id.Hex())
	}
	return member, nil
}

func (s *MemberService) UpdateFCMToken(ctx context.Context, id primitive.ObjectID, token string) error {
	return lookupErr(s.members.UpdateFCMToken(ctx, id, token), "member %s not found", id.Hex())
}

func (s *MemberService) UpdateProfileImage(ctx context.Context, id primitive.ObjectID, path string) error {
	return lookupErr(s.members.UpdateProfileImage(ctx, id, path), "member %s not found", id.Hex())
}

func (s *MemberService) Wallet(ctx context.Context, id primitive.ObjectID) (*models.Wallet, error) {
	member, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.Wallet{
		Points:                     member.Points,
		TeamPoints:                 member.TeamPoints,
		CommissionBalance:          member.CommissionBalance,
		Currency:                   "TZS",
		PersonalCommissionEligible: member.Points >= PersonalPointsThreshold,
		TeamCommissionEligible:     member.TeamPoints >= TeamPointsThreshold,
	}, nil
}

// TeamStructure returns the member, its upline and two levels of downlines.
func (s *MemberService) TeamStructure(ctx context.Context, id primitive.ObjectID) (*models.TeamStructure, error) {
	member, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	upline, err := s.members.UplineOf(ctx, member)
	if err != nil {
		return nil, err
	}
	direct, err := s.members.DownlinesOf(ctx, member.ID)
	if err != nil {
		return nil, err
	}

	branches := make([]models.DownlineBranch, 0, len(direct))
	for _, d := range direct {
		children, err := s.members.DownlinesOf(ctx, d.ID)
		if err != nil {
			return nil, err
		}
		branches = append(branches, models.DownlineBranch{Member: d, Downlines: children})
	}

	return &models.TeamStructure{
		Member:          member,
		Upline:          upline,
		DirectDownlines: branches,
	}, nil
}

func (s *MemberService) TeamMembers(ctx context.Context, id primitive.ObjectID) ([]models.Member, error) {
	return s.members.DownlinesOf(ctx, id)
}

// TeamPerformance aggregates the member's direct downlines.
func (s *MemberService) TeamPerformance(ctx context.Context, id primitive.ObjectID) (*models.TeamPerformance, error) {
	downlines, err := s.members.DownlinesOf(ctx, id)
	if err != nil {
		return nil, err
	}

	monthStart, _ := MonthWindow(s.now())
	perf := &models.TeamPerformance{
		TotalSales:      decimal.Zero,
		TotalCommission: decimal.Zero,
	}
	for _, d := range downlines {
		perf.TotalMembers++
		perf.TotalSales = perf.TotalSales.Add(d.TotalSalesVolume)
		perf.TotalCommission = perf.TotalCommission.Add(d.CommissionBalance)
		if d.IsActive() {
			perf.ActiveMembers++
		}
		if !d.CreatedAt.Before(monthStart) {
			perf.NewMembersThisMonth++
		}
	}
	return perf, nil
}
