package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/punguzo/mlm_backend/apperrors"
	"github.com/punguzo/mlm_backend/logging"
	"github.com/punguzo/mlm_backend/models"
	"github.com/punguzo/mlm_backend/repositories"
)

// OrderCompletion is the outcome of completing an order.
type OrderCompletion struct {
	Order        *models.Order              `json:"order"`
	Metrics      *models.ProductMetrics     `json:"-"`
	Distribution *models.DistributionResult `json:"distribution,omitempty"`
}

type OrderService struct {
	orders               repositories.OrderRepository
	products             repositories.ProductRepository
	members              repositories.MemberRepository
	popularity           *ProductViewService
	points               *PointService
	commissions          *CommissionService
	tx                   repositories.Transactor
	commissionOnComplete bool
	now                  func() time.Time
	logger               *zap.Logger
}

func NewOrderService(
	orders repositories.OrderRepository,
	products repositories.ProductRepository,
	members repositories.MemberRepository,
	popularity *ProductViewService,
	points *PointService,
	commissions *CommissionService,
	tx repositories.Transactor,
	commissionOnComplete bool,
) *OrderService {
	return &OrderService{
		orders:               orders,
		products:             products,
		members:              members,
		popularity:           popularity,
		points:               points,
		commissions:          commissions,
		tx:                   tx,
		commissionOnComplete: commissionOnComplete,
		now:                  time.Now,
		logger:               logging.Named("orders"),
	}
}

func (s *OrderService) Get(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "order %s not found", id.Hex())
	}
	return order, nil
}

// CreateOrder records a pending order for the member.
func (s *OrderService) CreateOrder(ctx context.Context, memberID, productID primitive.ObjectID, total, wholesale decimal.Decimal) (*models.Order, error) {
	if total.IsNegative() || wholesale.IsNegative() {
		return nil, apperrors.InvalidArgument("amounts must not be negative")
	}
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		return nil, lookupErr(err, "product %s not found", productID.Hex())
	}

	now := s.now()
	order := &models.Order{
		MemberID:        memberID,
		ProductID:       productID,
		TotalAmount:     total,
		WholesaleAmount: wholesale,
		Status:          models.OrderPending,
		PaymentStatus:   models.PaymentPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// CompleteOrder marks the order paid, refreshes the product's metrics and credits the
// member's points, optionally distributing commissions, in one transaction.
func (s *OrderService) CompleteOrder(ctx context.Context, orderID primitive.ObjectID) (*OrderCompletion, error) {
	completion := &OrderCompletion{}

	err := runInTx(ctx, s.tx, func(ctx context.Context) error {
		order, err := s.orders.FindByID(ctx, orderID)
		if err != nil {
			return lookupErr(err, "order %s not found", orderID.Hex())
		}
		if order.Status == models.OrderCompleted {
			return apperrors.BusinessRule("order %s is already completed", orderID.Hex())
		}

		now := s.now()
		if err := s.orders.MarkCompleted(ctx, orderID, now); err != nil {
			return lookupErr(err, "order %s not found", orderID.Hex())
		}
		order.Status = models.OrderCompleted
		order.PaymentStatus = models.PaymentPaid
		order.UpdatedAt = now

		if err := s.products.SetLastSoldAt(ctx, order.ProductID, now); err != nil {
			return err
		}
		if err := s.members.AddSalesVolume(ctx, order.MemberID, order.TotalAmount); err != nil {
			return lookupErr(err, "member %s not found", order.MemberID.Hex())
		}

		metrics, err := s.popularity.UpdateMonthlyMetrics(ctx, order.ProductID)
		if err != nil {
			return err
		}
		if err := s.points.UpdateMemberPoints(ctx, order.MemberID, order.ID); err != nil {
			return err
		}

		if s.commissionOnComplete {
			distribution, err := s.commissions.Distribute(ctx, order.ID, order.MemberID, order.TotalAmount)
			if err != nil {
				return err
			}
			completion.Distribution = distribution
		}

		completion.Order = order
		completion.Metrics = metrics
		return nil
	})
	if err != nil {
		s.logger.Error("failed to complete order", zap.String("order_id", orderID.Hex()), zap.Error(err))
		return nil, abortErr(err, "order completion rolled back")
	}

	s.logger.Info("order completed", zap.String("order_id", orderID.Hex()))
	return completion, nil
}

// GetOrderStats summarizes a product's completed sales.
func (s *OrderService) GetOrderStats(ctx context.Context, productID primitive.ObjectID) (*models.OrderStats, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, lookupErr(err, "product %s not found", productID.Hex())
	}

	total, revenue, err := s.orders.CompletedBetween(ctx, productID, time.Time{}, s.now().Add(time.Second))
	if err != nil {
		return nil, err
	}

	return &models.OrderStats{
		TotalOrders:     total,
		TotalRevenue:    revenue,
		MonthlySales:    product.MonthlySales,
		MonthlyRevenue:  product.MonthlyRevenue,
		PopularityScore: product.PopularityScore,
		LastSoldAt:      product.LastSoldAt,
	}, nil
}
