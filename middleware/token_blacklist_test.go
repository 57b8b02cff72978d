package middleware

import (
	"context"
	"net/http"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/punguzo/mlm_backend/models"
)

func TestMemoryBlacklist_ExpiresWithToken(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	b := NewMemoryBlacklist()
	b.now = func() time.Time { return now }
	ctx := context.Background()

	if err := b.BlacklistToken(ctx, "tok-1", now.Add(time.Hour)); err != nil {
		t.Fatalf("BlacklistToken: %v", err)
	}
	if err := b.BlacklistToken(ctx, "stale", now.Add(-time.Minute)); err != nil {
		t.Fatalf("BlacklistToken: %v", err)
	}

	if revoked, _ := b.IsTokenBlacklisted(ctx, "tok-1"); !revoked {
		t.Error("tok-1 not blacklisted")
	}
	if revoked, _ := b.IsTokenBlacklisted(ctx, "tok-2"); revoked {
		t.Error("unknown token blacklisted")
	}
	if len(b.tokens) != 1 {
		t.Errorf("entries = %d, want expired token skipped", len(b.tokens))
	}

	now = now.Add(time.Hour)
	if revoked, _ := b.IsTokenBlacklisted(ctx, "tok-1"); revoked {
		t.Error("tok-1 still blacklisted after it expired")
	}
	if err := b.BlacklistToken(ctx, "tok-3", now.Add(time.Hour)); err != nil {
		t.Fatalf("BlacklistToken: %v", err)
	}
	if len(b.tokens) != 1 {
		t.Errorf("entries = %d, want tok-1 swept", len(b.tokens))
	}
}

func TestJWTMiddleware_RejectsBlacklistedTokens(t *testing.T) {
	first := &models.Member{ID: primitive.NewObjectID(), AccountStatus: models.AccountActive}
	second := &models.Member{ID: primitive.NewObjectID(), AccountStatus: models.AccountActive}
	blacklist := NewMemoryBlacklist()
	e := newProtectedServerWith(blacklist, memberTable{first.ID: first, second.ID: second})

	revoked, err := GenerateJWT(testSecret, first, time.Hour, time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	kept, err := GenerateJWT(testSecret, second, time.Hour, time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	if rec := get(e, "/api/me", revoked.AccessToken); rec.Code != http.StatusOK {
		t.Fatalf("before logout status = %d, want 200", rec.Code)
	}
	if err := blacklist.BlacklistToken(context.Background(), revoked.AccessToken, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("BlacklistToken: %v", err)
	}

	if rec := get(e, "/api/me", revoked.AccessToken); rec.Code != http.StatusUnauthorized {
		t.Errorf("blacklisted status = %d, want 401", rec.Code)
	}
	if rec := get(e, "/api/me", kept.AccessToken); rec.Code != http.StatusOK {
		t.Errorf("other member status = %d, want 200", rec.Code)
	}
}
