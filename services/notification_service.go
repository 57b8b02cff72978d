package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/punguzo/mlm_backend/logging"
	"github.com/punguzo/mlm_backend/models"
	"github.com/punguzo/mlm_backend/monitoring"
	"github.com/punguzo/mlm_backend/repositories"
	"github.com/punguzo/mlm_backend/websocket"
)

// PushSender is satisfied by *messaging.Client.
type PushSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// MailSender is satisfied by *utils.Mailer.
type MailSender interface {
	Send(to, subject, body string) error
}

// RealtimePublisher is satisfied by *websocket.Hub.
type RealtimePublisher interface {
	SendToUser(memberID primitive.ObjectID, notification websocket.Notification) error
}

// NotificationService stores every alert in the member's inbox, then pushes it over
// FCM and the websocket hub when those are available. Failures are logged only.
type NotificationService struct {
	members  repositories.MemberRepository
	store    repositories.NotificationRepository
	push     PushSender
	mail     MailSender
	realtime RealtimePublisher
	now      func() time.Time
	logger   *zap.Logger
}

// NewNotificationService accepts nil push, mail and realtime senders.
func NewNotificationService(
	members repositories.MemberRepository,
	store repositories.NotificationRepository,
	push PushSender,
	mail MailSender,
	realtime RealtimePublisher,
) *NotificationService {
	return &NotificationService{
		members:  members,
		store:    store,
		push:     push,
		mail:     mail,
		realtime: realtime,
		now:      time.Now,
		logger:   logging.Named("notifications"),
	}
}

type alert struct {
	title string
	body  string
	kind  string
	data  map[string]string
}

func (s *NotificationService) deliver(ctx context.Context, member *models.Member, a alert) {
	stored := make(map[string]interface{}, len(a.data))
	for k, v := range a.data {
		stored[k] = v
	}

	if err := s.store.Insert(ctx, &models.Notification{
		UserID:    member.ID,
		Title:     a.title,
		Body:      a.body,
		Type:      a.kind,
		Data:      stored,
		CreatedAt: s.now(),
	}); err != nil {
		monitoring.NotificationsFailed.WithLabelValues("inbox").Inc()
		s.logger.Error("failed to store notification", zap.String("member_id", member.ID.Hex()), zap.Error(err))
	}

	if s.push != nil && member.FCMToken != "" {
		data := map[string]string{"type": a.kind}
		for k, v := range a.data {
			data[k] = v
		}
		message := &messaging.Message{
			Token: member.FCMToken,
			Notification: &messaging.Notification{
				Title: a.title,
				Body:  a.body,
			},
			Data: data,
			Android: &messaging.AndroidConfig{
				Priority: "high",
				Notification: &messaging.AndroidNotification{
					Sound:     "default",
					ChannelID: "punguzo_mlm_channel",
				},
			},
			APNS: &messaging.APNSConfig{
				Payload: &messaging.APNSPayload{
					Aps: &messaging.Aps{
						Alert: &messaging.ApsAlert{Title: a.title, Body: a.body},
						Sound: "default",
					},
				},
			},
		}
		if _, err := s.push.Send(ctx, message); err != nil {
			monitoring.NotificationsFailed.WithLabelValues("fcm").Inc()
			s.logger.Error("failed to send FCM notification", zap.String("member_id", member.ID.Hex()), zap.Error(err))
		}
	}

	if s.realtime != nil {
		err := s.realtime.SendToUser(member.ID, websocket.Notification{
			Type:    a.kind,
			Title:   a.title,
			Message: a.body,
			Data:    a.data,
		})
		if err != nil && !errors.Is(err, websocket.ErrNotConnected) {
			monitoring.NotificationsFailed.WithLabelValues("websocket").Inc()
			s.logger.Warn("failed to push websocket notification", zap.String("member_id", member.ID.Hex()), zap.Error(err))
		}
	}
}

func (s *NotificationService) member(ctx context.Context, id primitive.ObjectID, event string) (*models.Member, bool) {
	member, err := s.members.FindByID(ctx, id)
	if err != nil {
		monitoring.NotificationsFailed.WithLabelValues("lookup").Inc()
		s.logger.Error("failed to load alert recipient",
			zap.String("event", event), zap.String("member_id", id.Hex()), zap.Error(err))
		return nil, false
	}
	return member, true
}

func (s *NotificationService) SendCommissionAlert(ctx context.Context, recipientID primitive.ObjectID, amount decimal.Decimal, orderID *primitive.ObjectID, level *int) {
	member, ok := s.member(ctx, recipientID, models.NotificationCommission)
	if !ok {
		return
	}

	a := alert{
		title: "Commission Earned",
		body:  fmt.Sprintf("You earned TZS %s from your personal commission", amount.StringFixed(2)),
		kind:  models.NotificationCommission,
		data:  map[string]string{"amount": amount.String(), "order_id": "", "level": ""},
	}
	if level != nil {
		a.title = "Team Commission Earned"
		a.body = fmt.Sprintf("You earned TZS %s from level %d team commission", amount.StringFixed(2), *level)
		a.data["level"] = strconv.Itoa(*level)
	}
	if orderID != nil {
		a.data["order_id"] = orderID.Hex()
	}
	s.deliver(ctx, member, a)
}

// SendDownlineRegistrationAlert tells the downline's sponsor about the new member.
func (s *NotificationService) SendDownlineRegistrationAlert(ctx context.Context, downlineID primitive.ObjectID, downlineName string) {
	downline, ok := s.member(ctx, downlineID, models.NotificationDownline)
	if !ok {
		return
	}
	upline, err := s.members.UplineOf(ctx, downline)
	if err != nil || upline == nil {
		if err != nil {
			s.logger.Error("failed to load sponsor for downline alert", zap.String("downline_id", downlineID.Hex()), zap.Error(err))
		}
		return
	}

	s.deliver(ctx, upline, alert{
		title: "New Team Member",
		body:  fmt.Sprintf("%s has joined your team!", downlineName),
		kind:  models.NotificationDownline,
		data:  map[string]string{"downline_id": downlineID.Hex(), "downline_name": downlineName},
	})
}

func (s *NotificationService) SendTeamMilestoneAlert(ctx context.Context, memberID primitive.ObjectID, milestone string, points int64) {
	member, ok := s.member(ctx, memberID, models.NotificationMilestone)
	if !ok {
		return
	}

	body := fmt.Sprintf("Your team has reached %s with %d points!", milestone, points)
	s.deliver(ctx, member, alert{
		title: "Team Milestone Achieved",
		body:  body,
		kind:  models.NotificationMilestone,
		data:  map[string]string{"milestone": milestone, "points": strconv.FormatInt(points, 10)},
	})

	if s.mail != nil && member.Email != "" {
		text := fmt.Sprintf("Dear %s,\n\n%s\n\nKeep selling!\nPunguzo", member.FullName(), body)
		if err := s.mail.Send(member.Email, "Team Milestone Achieved", text); err != nil {
			monitoring.NotificationsFailed.WithLabelValues("email").Inc()
			s.logger.Error("failed to email milestone", zap.String("member_id", memberID.Hex()), zap.Error(err))
		}
	}
}

func (s *NotificationService) SendSalesTargetAlert(ctx context.Context, memberID primitive.ObjectID, target, current int64) {
	member, ok := s.member(ctx, memberID, models.NotificationSalesTarget)
	if !ok {
		return
	}

	s.deliver(ctx, member, alert{
		title: "Sales Target Update",
		body:  fmt.Sprintf("You've reached %d points out of %d target points!", current, target),
		kind:  models.NotificationSalesTarget,
		data: map[string]string{
			"target":  strconv.FormatInt(target, 10),
			"current": strconv.FormatInt(current, 10),
		},
	})
}

// Inbox is one page of a member's notifications.
type Inbox struct {
	Notifications []models.Notification `json:"notifications"`
	UnreadCount   int64                 `json:"unreadCount"`
}

func (s *NotificationService) ListInbox(ctx context.Context, memberID primitive.ObjectID, page, limit int64) (*Inbox, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	items, err := s.store.ListByUser(ctx, memberID, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}
	unread, err := s.store.CountUnread(ctx, memberID)
	if err != nil {
		return nil, err
	}
	return &Inbox{Notifications: items, UnreadCount: unread}, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, memberID, notificationID primitive.ObjectID) error {
	err := s.store.MarkRead(ctx, memberID, notificationID, s.now())
	return lookupErr(err, "notification %s not found", notificationID.Hex())
}

func (s *NotificationService) MarkAllRead(ctx context.Context, memberID primitive.ObjectID) (int64, error) {
	return s.store.MarkAllRead(ctx, memberID, s.now())
}
