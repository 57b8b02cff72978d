package services

import (
	"context"
	"errors"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/punguzo/mlm_backend/apperrors"
	"github.com/punguzo/mlm_backend/models"
	"github.com/punguzo/mlm_backend/websocket"
)

type fakePush struct {
	sent []*messaging.Message
	err  error
}

func (p *fakePush) Send(_ context.Context, m *messaging.Message) (string, error) {
	p.sent = append(p.sent, m)
	return "msg-id", p.err
}

type fakeMail struct {
	to []string
}

func (m *fakeMail) Send(to, _, _ string) error {
	m.to = append(m.to, to)
	return nil
}

type fakeRealtime struct {
	sent []websocket.Notification
}

func (r *fakeRealtime) SendToUser(_ primitive.ObjectID, n websocket.Notification) error {
	r.sent = append(r.sent, n)
	return websocket.ErrNotConnected
}

func TestSendCommissionAlert_StoresAndPushes(t *testing.T) {
	f := newFixture("", false)
	m := f.store.addMember(models.Member{FCMToken: "device-1"})
	push, realtime := &fakePush{}, &fakeRealtime{}
	svc := NewNotificationService(f.members, f.notifications, push, nil, realtime)
	orderID := primitive.NewObjectID()
	level := 2

	svc.SendCommissionAlert(context.Background(), m.ID, decimal.NewFromInt(200), &orderID, &level)

	if len(f.store.notifications) != 1 {
		t.Fatalf("stored = %d, want 1", len(f.store.notifications))
	}
	stored := f.store.notifications[0]
	if stored.Type != models.NotificationCommission || stored.Title != "Team Commission Earned" {
		t.Errorf("stored = %+v", stored)
	}
	if stored.Data["order_id"] != orderID.Hex() || stored.Data["level"] != "2" {
		t.Errorf("data = %v", stored.Data)
	}

	if len(push.sent) != 1 || push.sent[0].Token != "device-1" || push.sent[0].Data["type"] != models.NotificationCommission {
		t.Errorf("push = %+v", push.sent)
	}
	if len(realtime.sent) != 1 || realtime.sent[0].Message != stored.Body {
		t.Errorf("realtime = %+v", realtime.sent)
	}
}

func TestSendCommissionAlert_PersonalWording(t *testing.T) {
	f := newFixture("", false)
	m := f.store.addMember(models.Member{})
	svc := NewNotificationService(f.members, f.notifications, nil, nil, nil)

	svc.SendCommissionAlert(context.Background(), m.ID, decimal.RequireFromString("12.5"), nil, nil)

	stored := f.store.notifications[0]
	if stored.Title != "Commission Earned" || stored.Body != "You earned TZS 12.50 from your personal commission" {
		t.Errorf("stored = %+v", stored)
	}
}

func TestDeliveryFailuresAreSwallowed(t *testing.T) {
	f := newFixture("", false)
	m := f.store.addMember(models.Member{FCMToken: "device-1"})
	push := &fakePush{err: errors.New("fcm unavailable")}
	svc := NewNotificationService(f.members, f.notifications, push, nil, nil)

	svc.SendSalesTargetAlert(context.Background(), m.ID, 20, 4)
	svc.SendSalesTargetAlert(context.Background(), primitive.NewObjectID(), 20, 4)

	if len(f.store.notifications) != 1 {
		t.Errorf("stored = %d, want inbox row despite push failure", len(f.store.notifications))
	}
}

func TestSendDownlineRegistrationAlert_GoesToSponsor(t *testing.T) {
	f := newFixture("", false)
	line := f.chain(2)
	svc := NewNotificationService(f.members, f.notifications, nil, nil, nil)

	svc.SendDownlineRegistrationAlert(context.Background(), line[1].ID, "Asha Mussa")

	if len(f.store.notifications) != 1 || f.store.notifications[0].UserID != line[0].ID {
		t.Fatalf("notifications = %+v, want one for the sponsor", f.store.notifications)
	}
	if body := f.store.notifications[0].Body; body != "Asha Mussa has joined your team!" {
		t.Errorf("body = %q", body)
	}

	svc.SendDownlineRegistrationAlert(context.Background(), line[0].ID, "Root")
	if len(f.store.notifications) != 1 {
		t.Error("alert stored for a member without sponsor")
	}
}

func TestSendTeamMilestoneAlert_EmailsWhenAddressKnown(t *testing.T) {
	f := newFixture("", false)
	m := f.store.addMember(models.Member{FirstName: "Juma", Email: "juma@example.com"})
	mail := &fakeMail{}
	svc := NewNotificationService(f.members, f.notifications, nil, mail, nil)

	svc.SendTeamMilestoneAlert(context.Background(), m.ID, MilestoneTeam, 52)

	if len(mail.to) != 1 || mail.to[0] != "juma@example.com" {
		t.Errorf("mail = %v", mail.to)
	}
	if data := f.store.notifications[0].Data; data["points"] != "52" || data["milestone"] != MilestoneTeam {
		t.Errorf("data = %v", data)
	}
}

func TestInbox(t *testing.T) {
	f := newFixture("", false)
	m := f.store.addMember(models.Member{})
	other := f.store.addMember(models.Member{})
	svc := NewNotificationService(f.members, f.notifications, nil, nil, nil)
	ctx := context.Background()

	for i := int64(0); i < 3; i++ {
		svc.SendSalesTargetAlert(ctx, m.ID, 20, i)
	}
	svc.SendSalesTargetAlert(ctx, other.ID, 20, 1)

	inbox, err := svc.ListInbox(ctx, m.ID, 1, 2)
	if err != nil {
		t.Fatalf("ListInbox: %v", err)
	}
	if len(inbox.Notifications) != 2 || inbox.UnreadCount != 3 {
		t.Fatalf("inbox = %d items, %d unread", len(inbox.Notifications), inbox.UnreadCount)
	}

	if err := svc.MarkRead(ctx, m.ID, inbox.Notifications[0].ID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if err := svc.MarkRead(ctx, other.ID, inbox.Notifications[1].ID); !apperrors.Is(err, apperrors.KindNotFound) {
		t.Errorf("MarkRead of another member's row error = %v, want not found", err)
	}

	n, err := svc.MarkAllRead(ctx, m.ID)
	if err != nil || n != 2 {
		t.Errorf("MarkAllRead = %d, %v; want 2", n, err)
	}
}
