package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/punguzo/mlm_backend/apperrors"
	"github.com/punguzo/mlm_backend/services"
	"github.com/punguzo/mlm_backend/utils"
)

type envelope struct {
	Status  int               `json:"status"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return env
}

func newTestServer() *echo.Echo {
	e := echo.New()
	e.Validator = utils.NewValidator()
	return e
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
		wantErrors  map[string]string
	}{
		{
			name:        "validation fields",
			err:         apperrors.Validation("Validation failed", map[string]string{"pin": "required"}),
			wantStatus:  http.StatusUnprocessableEntity,
			wantMessage: "Validation failed",
			wantErrors:  map[string]string{"pin": "required"},
		},
		{
			name:        "internal cause hidden",
			err:         apperrors.Internal(errors.New("mongo: connection reset"), "save order"),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Something went wrong. Please try again or contact support",
		},
		{
			name:        "plain error",
			err:         errors.New("boom"),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Something went wrong. Please try again or contact support",
		},
		{
			name:        "upstream details",
			err:         apperrors.ExternalService(http.StatusServiceUnavailable, map[string]string{"detail": "maintenance"}, nil, "Catalog feed unavailable"),
			wantStatus:  http.StatusServiceUnavailable,
			wantMessage: "Catalog feed unavailable",
			wantErrors:  map[string]string{"detail": "maintenance"},
		},
		{
			name:        "not found",
			err:         apperrors.NotFound("Order not found"),
			wantStatus:  http.StatusNotFound,
			wantMessage: "Order not found",
		},
	}

	e := newTestServer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			if err := respondError(c, tt.err); err != nil {
				t.Fatalf("respondError: %v", err)
			}
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			env := decodeEnvelope(t, rec)
			if env.Status != tt.wantStatus || env.Message != tt.wantMessage {
				t.Errorf("envelope = %+v", env)
			}
			if len(env.Errors) != len(tt.wantErrors) {
				t.Fatalf("errors = %v, want %v", env.Errors, tt.wantErrors)
			}
			for k, v := range tt.wantErrors {
				if env.Errors[k] != v {
					t.Errorf("errors[%s] = %q, want %q", k, env.Errors[k], v)
				}
			}
		})
	}
}

func TestCheckPhone_RejectsBeforeLookup(t *testing.T) {
	registration := services.NewRegistrationService(nil, nil, nil, nil, nil, nil)
	ac := NewAuthController(registration, nil, AuthTokenConfig{}, t.TempDir())
	e := newTestServer()
	e.GET("/api/auth/check-phone", ac.CheckPhone)

	tests := []struct {
		name      string
		query     string
		wantField string
	}{
		{"missing", "", "required"},
		{"malformed", "?phoneNumber=12345", "phone number must look like 2557XXXXXXXX or 07XXXXXXXX"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/check-phone"+tt.query, nil))

			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422 (%s)", rec.Code, rec.Body.String())
			}
			if env := decodeEnvelope(t, rec); env.Errors["phoneNumber"] != tt.wantField {
				t.Errorf("errors = %v", env.Errors)
			}
		})
	}
}

type countingFeed struct {
	calls int
}

func (f *countingFeed) GetProducts(context.Context, services.FeedQuery) ([]json.RawMessage, error) {
	f.calls++
	return nil, nil
}

func TestSync_RejectsBadPaging(t *testing.T) {
	feed := &countingFeed{}
	sc := NewCatalogSyncController(services.NewCatalogSyncService(feed, nil, nil))
	e := newTestServer()
	e.POST("/api/products/sync", sc.Sync)

	tests := []struct {
		name      string
		query     string
		body      string
		wantField string
	}{
		{"limit not a multiple of ten", "?limit=15", "", "limit"},
		{"offset off the page grid", "?limit=20&offset=30", "", "offset"},
		{"unknown filter in body", "", `{"filter_type":"clearance"}`, "filter_type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/products/sync"+tt.query, strings.NewReader(tt.body))
			if tt.body != "" {
				req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422 (%s)", rec.Code, rec.Body.String())
			}
			if env := decodeEnvelope(t, rec); env.Errors[tt.wantField] == "" {
				t.Errorf("errors = %v, want %s", env.Errors, tt.wantField)
			}
		})
	}
	if feed.calls != 0 {
		t.Errorf("feed called %d times for invalid queries", feed.calls)
	}
}

func TestSync_BadBody(t *testing.T) {
	sc := NewCatalogSyncController(services.NewCatalogSyncService(&countingFeed{}, nil, nil))
	e := newTestServer()
	e.POST("/api/products/sync", sc.Sync)

	req := httptest.NewRequest(http.MethodPost, "/api/products/sync", strings.NewReader("{not json"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
