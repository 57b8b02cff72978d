package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/punguzo/mlm_backend/apperrors"
	"github.com/punguzo/mlm_backend/logging"
	"github.com/punguzo/mlm_backend/models"
)

const punguzoProvider = "punguzo"

// defaultTokenTTL applies when the token response omits expires_in.
const defaultTokenTTL = time.Hour

// FeedQuery selects one page of the partner product feed.
type FeedQuery struct {
	Limit      int    `query:"limit" json:"limit"`
	Offset     int    `query:"offset" json:"offset"`
	FilterType string `query:"filter_type" json:"filter_type"`
}

var feedFilterTypes = map[string]bool{
	"recently_sold":      true,
	"wholesale":          true,
	"big_discount":       true,
	"recently_purchased": true,
	"punguzo_special":    true,
}

// Normalize applies defaults and checks the paging rules of the feed.
func (q *FeedQuery) Normalize() error {
	if q.Limit == 0 {
		q.Limit = 20
	}
	if q.FilterType == "" {
		q.FilterType = "recently_sold"
	}

	fields := map[string]string{}
	if q.Limit < 10 || q.Limit%10 != 0 {
		fields["limit"] = "limit must be at least 10 and a multiple of 10"
	}
	if q.Offset < 0 {
		fields["offset"] = "offset must not be negative"
	} else if q.Limit > 0 && q.Offset%q.Limit != 0 {
		fields["offset"] = "Offset must be a multiple of limit."
	}
	if !feedFilterTypes[q.FilterType] {
		fields["filter_type"] = "unsupported filter type"
	}
	if len(fields) > 0 {
		return apperrors.Validation("invalid product feed query", fields)
	}
	return nil
}

// PunguzoClient talks to the partner catalog and payment APIs.
type PunguzoClient struct {
	baseURL        string
	paymentBaseURL string
	apiKey         string
	httpClient     *http.Client
	tokens         *TokenCache
	logger         *zap.Logger
}

func NewPunguzoClient(baseURL, paymentBaseURL, apiKey string, timeout time.Duration, tokens *TokenCache) *PunguzoClient {
	if apiKey == "" {
		logging.Logger.Warn("PUNGUZO_API_KEY is not set; catalog sync will fail")
	}
	return &PunguzoClient{
		baseURL:        strings.TrimRight(baseURL, "/"),
		paymentBaseURL: strings.TrimRight(paymentBaseURL, "/"),
		apiKey:         apiKey,
		httpClient:     &http.Client{Timeout: timeout},
		tokens:         tokens,
		logger:         logging.Named("punguzo"),
	}
}

// GenerateToken exchanges the API key for an access token.
func (c *PunguzoClient) GenerateToken(ctx context.Context) (string, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate_token", nil)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	status, body, err := c.do(req)
	if err != nil {
		return "", 0, err
	}
	if status < 200 || status >= 300 {
		return "", 0, c.upstreamError(status, body, "Failed to generate token")
	}

	var token models.FeedToken
	if err := json.Unmarshal(body, &token); err != nil || token.AccessToken == "" {
		return "", 0, apperrors.ExternalService(status, nil, err, "invalid token response from partner API")
	}
	ttl := time.Duration(token.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return token.AccessToken, ttl, nil
}

func (c *PunguzoClient) accessToken(ctx context.Context) (string, error) {
	return c.tokens.Get(ctx, punguzoProvider, c.GenerateToken)
}

// authorized runs call with the cached token. A 401 invalidates it and retries once with a fresh one.
func (c *PunguzoClient) authorized(ctx context.Context, call func(token string) (int, []byte, error)) (int, []byte, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return 0, nil, err
	}

	status, body, err := call(token)
	if err != nil || status != http.StatusUnauthorized {
		return status, body, err
	}
	c.logger.Info("partner token rejected, refreshing")
	c.tokens.Invalidate(punguzoProvider, token)
	if token, err = c.accessToken(ctx); err != nil {
		return 0, nil, err
	}
	return call(token)
}

// GetProducts fetches one feed page. A 401 refreshes the token once and retries once.
func (c *PunguzoClient) GetProducts(ctx context.Context, q FeedQuery) ([]json.RawMessage, error) {
	status, body, err := c.authorized(ctx, func(token string) (int, []byte, error) {
		return c.getProducts(ctx, token, q)
	})
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, c.upstreamError(status, body, "API request failed")
	}

	var page models.FeedPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, apperrors.ExternalService(status, nil, err, "invalid products response from partner API")
	}
	return page.Results, nil
}

func (c *PunguzoClient) getProducts(ctx context.Context, token string, q FeedQuery) (int, []byte, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(q.Limit))
	params.Set("offset", strconv.Itoa(q.Offset))
	params.Set("filter_type", q.FilterType)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/get_products?"+params.Encode(), nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Cache-Control", "public, max-age=300")
	req.Header.Set("Accept", "application/json")

	return c.do(req)
}

// CheckBillAmount requires billAmount to equal the sum of selling_price*quantity + delivery_fee.
func CheckBillAmount(req *models.DebitRequest) error {
	fields := map[string]string{}
	total := decimal.Zero
	for i, item := range req.Items {
		if item.SellingPrice.IsNegative() || item.DeliveryFee.IsNegative() {
			fields[fmt.Sprintf("items[%d]", i)] = "selling_price and delivery_fee must not be negative"
			continue
		}
		total = total.Add(item.SellingPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))).Add(item.DeliveryFee)
	}
	switch {
	case req.BillAmount.IsNegative():
		fields["billAmount"] = "billAmount must not be negative"
	case len(fields) == 0 && !req.BillAmount.Equal(total):
		fields["billAmount"] = fmt.Sprintf("billAmount (%s) does not match the item total (%s)", req.BillAmount.String(), total.String())
	}
	if len(fields) > 0 {
		return apperrors.Validation("Validation failed", fields)
	}
	return nil
}

type debitItemWire struct {
	ID           int64       `json:"id"`
	SellingPrice json.Number `json:"selling_price"`
	DeliveryFee  json.Number `json:"delivery_fee"`
	Quantity     int         `json:"quantity"`
}

type debitWire struct {
	BillAmount      json.Number            `json:"billAmount"`
	ReferenceID     string                 `json:"referenceID"`
	CustomerDetails models.CustomerDetails `json:"customerDetails"`
	Items           []debitItemWire        `json:"items"`
}

// DebitRequest asks the partner to debit the customer and returns the partner's reply.
// The bill is checked before anything is sent. A 401 refreshes the token once and retries once.
func (c *PunguzoClient) DebitRequest(ctx context.Context, req *models.DebitRequest) (json.RawMessage, error) {
	if err := CheckBillAmount(req); err != nil {
		return nil, err
	}

	wire := debitWire{
		BillAmount:      json.Number(req.BillAmount.String()),
		ReferenceID:     req.ReferenceID,
		CustomerDetails: req.CustomerDetails,
		Items:           make([]debitItemWire, len(req.Items)),
	}
	for i, item := range req.Items {
		wire.Items[i] = debitItemWire{
			ID:           item.ID,
			SellingPrice: json.Number(item.SellingPrice.String()),
			DeliveryFee:  json.Number(item.DeliveryFee.String()),
			Quantity:     item.Quantity,
		}
	}
	payload, err := json.Marshal(wire)
	if err != nil {
		return nil, apperrors.Internal(err, "encode debit request")
	}

	status, body, err := c.authorized(ctx, func(token string) (int, []byte, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.paymentBaseURL+"/debit_request", bytes.NewReader(payload))
		if err != nil {
			return 0, nil, fmt.Errorf("failed to create request: %w", err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Accept", "application/json")
		return c.do(httpReq)
	})
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, c.upstreamError(status, body, "Debit request failed")
	}

	c.logger.Info("debit request accepted", zap.String("referenceId", req.ReferenceID))
	if !json.Valid(body) {
		return nil, apperrors.ExternalService(status, nil, nil, "invalid debit response from partner API")
	}
	return json.RawMessage(body), nil
}

func (c *PunguzoClient) do(req *http.Request) (int, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, apperrors.ExternalService(0, nil, err, "partner API unreachable")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, apperrors.ExternalService(resp.StatusCode, nil, err, "failed to read partner API response")
	}
	return resp.StatusCode, body, nil
}

func (c *PunguzoClient) upstreamError(status int, body []byte, message string) error {
	var details interface{}
	if err := json.Unmarshal(body, &details); err != nil {
		details = map[string]string{"message": string(body)}
	}
	c.logger.Warn("partner API error", zap.Int("status", status), zap.Any("error", details))
	return apperrors.ExternalService(status, details, nil, "%s", message)
}
