package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/punguzo/mlm_backend/models"
)

const testSecret = "test-secret"

type memberTable map[primitive.ObjectID]*models.Member

func (m memberTable) FindByID(_ context.Context, id primitive.ObjectID) (*models.Member, error) {
	member, ok := m[id]
	if !ok {
		return nil, echo.ErrNotFound
	}
	return member, nil
}

func newProtectedServer(members MemberLookup) *echo.Echo {
	return newProtectedServerWith(nil, members)
}

func newProtectedServerWith(blacklist TokenBlacklist, members MemberLookup) *echo.Echo {
	e := echo.New()
	g := e.Group("/api", JWTMiddleware(testSecret, blacklist), RequireAccessToken(), RequireActiveMember(members))
	g.GET("/me", func(c echo.Context) error {
		id, err := MemberIDFromContext(c)
		if err != nil {
			return err
		}
		return c.String(http.StatusOK, id.Hex())
	})
	return e
}

func get(e *echo.Echo, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestGenerateJWT_RoundTrip(t *testing.T) {
	member := &models.Member{ID: primitive.NewObjectID(), SellerID: "SLR000001"}

	tokens, err := GenerateJWT(testSecret, member, time.Hour, 24*time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	if tokens.TokenType != "Bearer" || tokens.ExpiresIn != 3600 {
		t.Errorf("tokens = %+v", tokens)
	}

	claims, err := ParseRefreshToken(testSecret, tokens.RefreshToken)
	if err != nil {
		t.Fatalf("ParseRefreshToken: %v", err)
	}
	if claims.MemberID != member.ID.Hex() || claims.SellerID != "SLR000001" {
		t.Errorf("claims = %+v", claims)
	}

	if _, err := ParseRefreshToken(testSecret, tokens.AccessToken); err == nil {
		t.Error("access token accepted as refresh token")
	}
	if _, err := ParseRefreshToken("other-secret", tokens.RefreshToken); err == nil {
		t.Error("token accepted with the wrong secret")
	}
	if _, err := GenerateJWT("", member, time.Hour, time.Hour); err == nil {
		t.Error("empty secret accepted")
	}
}

func TestProtectedRoutes(t *testing.T) {
	active := &models.Member{ID: primitive.NewObjectID(), AccountStatus: models.AccountActive}
	blocked := &models.Member{ID: primitive.NewObjectID(), AccountStatus: models.AccountBlocked}
	ghost := &models.Member{ID: primitive.NewObjectID()}
	e := newProtectedServer(memberTable{active.ID: active, blocked.ID: blocked})

	issue := func(m *models.Member) *models.AuthTokens {
		tokens, err := GenerateJWT(testSecret, m, time.Hour, time.Hour)
		if err != nil {
			t.Fatalf("GenerateJWT: %v", err)
		}
		return tokens
	}
	activeTokens := issue(active)

	tests := []struct {
		name   string
		bearer string
		want   int
	}{
		{"access token", activeTokens.AccessToken, http.StatusOK},
		{"refresh token", activeTokens.RefreshToken, http.StatusUnauthorized},
		{"missing token", "", http.StatusUnauthorized},
		{"garbage token", "not-a-jwt", http.StatusUnauthorized},
		{"blocked member", issue(blocked).AccessToken, http.StatusForbidden},
		{"deleted member", issue(ghost).AccessToken, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(e, "/api/me", tt.bearer)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
			if tt.want == http.StatusOK && rec.Body.String() != active.ID.Hex() {
				t.Errorf("body = %s, want member id", rec.Body.String())
			}
		})
	}
}

func TestJWTMiddleware_WithoutSecret(t *testing.T) {
	e := echo.New()
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, JWTMiddleware("", nil))

	if rec := get(e, "/", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
