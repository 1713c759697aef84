// Package clob provides a REST client for the CLOB's price and market-order
// endpoints, implementing the exchange.Exchange capability.
package clob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Research-Beta-Team/polymarket-wallet-connected-sub000/pkg/exchange"
)

// ProdBaseURL is the production CLOB base URL.
const ProdBaseURL = "https://clob.polymarket.com"

// Credentials are the API credentials for authenticated order submission.
// A nil Credentials puts the client in quote-only mode: price fetches work,
// order submission fails with exchange.ErrNoCredentials.
type Credentials struct {
	APIKey     string
	APISecret  string
	Passphrase string
}

// Client is a REST client for the CLOB.
type Client struct {
	baseURL    string
	creds      *Credentials
	httpClient *http.Client
	log        *logrus.Entry
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithLogger sets the logger.
func WithLogger(log *logrus.Entry) Option {
	return func(c *Client) {
		c.log = log
	}
}

// New creates a new CLOB client. creds may be nil for quote-only use.
func New(creds *Credentials, opts ...Option) *Client {
	c := &Client{
		baseURL:    ProdBaseURL,
		creds:      creds,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        logrus.WithField("component", "clob"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// HasCredentials reports whether the client can submit live orders.
func (c *Client) HasCredentials() bool {
	return c.creds != nil && c.creds.APIKey != ""
}

type priceResponse struct {
	Price string `json:"price"`
}

// GetPrice fetches the current quote for tokenID on the given side as a
// decimal in (0,1).
func (c *Client) GetPrice(ctx context.Context, tokenID string, side exchange.Side) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("token_id", tokenID)
	q.Set("side", string(side))

	data, err := c.do(ctx, http.MethodGet, "/price?"+q.Encode(), nil)
	if err != nil {
		return decimal.Zero, &exchange.PriceFetchError{TokenID: tokenID, Err: err}
	}

	var resp priceResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return decimal.Zero, &exchange.PriceFetchError{TokenID: tokenID, Err: fmt.Errorf("unmarshal response: %w", err)}
	}

	price, err := decimal.NewFromString(resp.Price)
	if err != nil {
		return decimal.Zero, &exchange.PriceFetchError{TokenID: tokenID, Err: fmt.Errorf("parse price %q: %w", resp.Price, err)}
	}

	return price, nil
}

type orderRequest struct {
	TokenID    string  `json:"token_id"`
	Side       string  `json:"side"`
	Amount     float64 `json:"amount"`
	FeeRateBps int     `json:"fee_rate_bps"`
	OrderType  string  `json:"order_type"`
}

type orderResponse struct {
	Success         bool   `json:"success"`
	OrderID         string `json:"orderID"`
	TransactionHash string `json:"transactionHash,omitempty"`
	ErrorMsg        string `json:"errorMsg,omitempty"`
}

// SubmitMarketOrder submits a FAK market order. Amount is USD for BUY
// orders and shares for SELL orders.
func (c *Client) SubmitMarketOrder(ctx context.Context, req exchange.MarketOrderRequest) (*exchange.OrderResponse, error) {
	if !c.HasCredentials() {
		return nil, exchange.ErrNoCredentials
	}

	body := orderRequest{
		TokenID:    req.TokenID,
		Side:       string(req.Side),
		Amount:     req.Amount,
		FeeRateBps: req.FeeRateBps,
		OrderType:  "FAK",
	}

	data, err := c.do(ctx, http.MethodPost, "/order", body)
	if err != nil {
		return nil, err
	}

	var resp orderResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal order response: %w", err)
	}
	if !resp.Success {
		return nil, &exchange.OrderError{Message: resp.ErrorMsg}
	}

	c.log.WithFields(logrus.Fields{
		"order_id": resp.OrderID,
		"side":     req.Side,
		"amount":   req.Amount,
	}).Debug("order placed")

	return &exchange.OrderResponse{
		OrderID:         resp.OrderID,
		TransactionHash: resp.TransactionHash,
	}, nil
}

// do makes an API request and returns the response body.
func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.HasCredentials() {
		req.Header.Set("POLY-API-KEY", c.creds.APIKey)
		req.Header.Set("POLY-PASSPHRASE", c.creds.Passphrase)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(resp.StatusCode, respBody)
	}

	return respBody, nil
}

func newAPIError(status int, body []byte) *exchange.OrderError {
	oerr := &exchange.OrderError{
		StatusCode: status,
		Message:    string(body),
		Retryable:  status >= 500 || status == http.StatusTooManyRequests || status == http.StatusRequestTimeout,
	}

	var errResp struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		oerr.Message = errResp.Error
		oerr.Code = errResp.Code
	}

	return oerr
}
