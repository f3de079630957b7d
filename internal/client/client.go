// Package client talks to the storefront's coupon and cart-sync endpoints.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"storefront-cart/internal/domain"

	"github.com/sony/gobreaker/v2"
)

var (
	// ErrUnavailable wraps transport failures, 5xx answers and an open breaker.
	ErrUnavailable = errors.New("remote service unavailable")
	// ErrRejected is returned when the server answers success=false.
	ErrRejected = errors.New("rejected by server")
)

// CustomerHeader carries the authenticated customer id on sync calls.
const CustomerHeader = "X-Customer-ID"

// RejectedError carries the server supplied message of a success=false answer.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return ErrRejected.Error()
	}
	return e.Message
}

func (e *RejectedError) Unwrap() error { return ErrRejected }

type Options struct {
	BaseURL string
	// Timeout bounds each call; zero leaves calls bounded only by ctx.
	Timeout time.Duration
	// MaxFailures consecutive failures open the breaker. Zero means 5.
	MaxFailures uint32
	// OpenFor is how long the breaker stays open. Zero means 30s.
	OpenFor    time.Duration
	HTTPClient *http.Client
	Logger     *log.Logger
}

type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*envelope]
	logger  *log.Logger
}

func New(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	maxFailures := opts.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	openFor := opts.OpenFor
	if openFor == 0 {
		openFor = 30 * time.Second
	}
	breaker := gobreaker.NewCircuitBreaker[*envelope](gobreaker.Settings{
		Name:    "storefront-api",
		Timeout: openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Printf("client: breaker %s %s -> %s", name, from, to)
		},
	})
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    httpClient,
		breaker: breaker,
		logger:  logger,
	}
}

type couponRequest struct {
	Code string `json:"codigo"`
}

type couponData struct {
	Kind  domain.CouponKind `json:"tipo"`
	Value float64           `json:"valor"`
}

type syncRequest struct {
	Items []domain.LineItem `json:"items"`
}

type envelope struct {
	status  int
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Data    *couponData       `json:"data,omitempty"`
	Cart    []domain.LineItem `json:"carrito,omitempty"`
}

// VerifyCoupon asks the server whether code is a valid coupon.
func (c *Client) VerifyCoupon(ctx context.Context, code string) (domain.Coupon, error) {
	code = strings.TrimSpace(code)
	env, err := c.post(ctx, "/api/cupon/verificar", couponRequest{Code: code}, nil)
	if err != nil {
		return domain.Coupon{}, err
	}
	if !env.Success {
		return domain.Coupon{}, &RejectedError{Message: env.Message}
	}
	if env.Data == nil || !env.Data.Kind.Valid() {
		return domain.Coupon{}, &RejectedError{Message: "respuesta de cupón incompleta"}
	}
	return domain.Coupon{Code: code, Kind: env.Data.Kind, Value: env.Data.Value}, nil
}

// SyncCart sends the local items for customerID and returns the server's
// merged cart.
func (c *Client) SyncCart(ctx context.Context, customerID string, items []domain.LineItem) ([]domain.LineItem, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, domain.ErrUnauthenticated
	}
	if items == nil {
		items = []domain.LineItem{}
	}
	headers := map[string]string{CustomerHeader: customerID}
	env, err := c.post(ctx, "/api/carrito/sincronizar", syncRequest{Items: items}, headers)
	if err != nil {
		return nil, err
	}
	if env.status == http.StatusUnauthorized {
		return nil, domain.ErrUnauthenticated
	}
	if !env.Success {
		return nil, &RejectedError{Message: env.Message}
	}
	return env.Cart, nil
}

func (c *Client) post(ctx context.Context, path string, body interface{}, headers map[string]string) (*envelope, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	env, err := c.breaker.Execute(func() (*envelope, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Requested-With", "XMLHttpRequest")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("status %d", resp.StatusCode)
		}
		env := &envelope{status: resp.StatusCode}
		if resp.StatusCode == http.StatusUnauthorized {
			return env, nil
		}
		if err := json.NewDecoder(resp.Body).Decode(env); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		return env, nil
	})
	if err != nil {
		c.logger.Printf("client: POST %s failed: %v", path, err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return env, nil
}
