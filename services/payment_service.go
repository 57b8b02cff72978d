package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/punguzo/mlm_backend/apperrors"
	"github.com/punguzo/mlm_backend/logging"
	"github.com/punguzo/mlm_backend/models"
	"github.com/punguzo/mlm_backend/repositories"
)

// Debiter is satisfied by *PunguzoClient.
type Debiter interface {
	DebitRequest(ctx context.Context, req *models.DebitRequest) (json.RawMessage, error)
}

// PaymentService starts partner debits for orders and records the partner's callbacks.
type PaymentService struct {
	orders  repositories.OrderRepository
	debiter Debiter
	now     func() time.Time
	logger  *zap.Logger
}

func NewPaymentService(orders repositories.OrderRepository, debiter Debiter) *PaymentService {
	return &PaymentService{
		orders:  orders,
		debiter: debiter,
		now:     time.Now,
		logger:  logging.Named("payments"),
	}
}

// RequestDebit sends the debit for one of the member's pending orders and tags the order
// with the reference the callback will carry.
func (s *PaymentService) RequestDebit(ctx context.Context, memberID, orderID primitive.ObjectID, req *models.DebitRequest) (json.RawMessage, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, lookupErr(err, "order %s not found", orderID.Hex())
	}
	if order.MemberID != memberID {
		return nil, apperrors.Forbidden("order %s does not belong to member %s", orderID.Hex(), memberID.Hex())
	}
	if order.Status != models.OrderPending || order.PaymentStatus == models.PaymentPaid {
		return nil, apperrors.BusinessRule("order %s is not awaiting payment", orderID.Hex())
	}
	if err := CheckBillAmount(req); err != nil {
		return nil, err
	}

	if err := s.orders.AttachPayment(ctx, orderID, req.ReferenceID, s.now()); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, apperrors.Validation("Validation failed", map[string]string{
				"referenceID": "referenceID is already used by another order",
			})
		}
		return nil, lookupErr(err, "order %s not found", orderID.Hex())
	}

	reply, err := s.debiter.DebitRequest(ctx, req)
	if err != nil {
		s.logger.Warn("debit request failed",
			zap.String("order_id", orderID.Hex()), zap.String("reference_id", req.ReferenceID), zap.Error(err))
		return nil, err
	}
	return reply, nil
}

// HandleCallback applies the partner's payment outcome to the order carrying the reference.
func (s *PaymentService) HandleCallback(ctx context.Context, cb *models.PaymentCallback) (*models.Order, error) {
	status := cb.PaymentStatus()
	order, err := s.orders.SetPaymentStatus(ctx, cb.ReferenceID, status, s.now())
	if err != nil {
		return nil, lookupErr(err, "no order for payment reference %s", cb.ReferenceID)
	}
	s.logger.Info("payment callback processed",
		zap.String("reference_id", cb.ReferenceID),
		zap.String("order_id", order.ID.Hex()),
		zap.String("status", status),
		zap.String("mno_transaction_id", cb.MNOTransactionID))
	return order, nil
}
