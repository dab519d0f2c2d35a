package shurjopay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	domainErrors "github.com/nadiyatra/registration/internal/domain/errors"
	"github.com/nadiyatra/registration/internal/infrastructure/config"
	"github.com/nadiyatra/registration/internal/infrastructure/observability"
)

// Client talks to the shurjoPay HTTP API. Every outbound operation
// re-authenticates first; tokens are short-lived and never cached across
// requests.
type Client struct {
	cfg        config.GatewayConfig
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
	logger     zerolog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a gateway client. metrics may be nil.
func NewClient(cfg config.GatewayConfig, logger zerolog.Logger, metrics *observability.Metrics) *Client {
	threshold := cfg.CircuitBreakerThreshold
	if threshold == 0 {
		threshold = 10
	}
	timeout := cfg.CircuitBreakerTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "shurjopay",
		MaxRequests: 10,
		Interval:    60 * time.Second,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= threshold && failureRatio >= 0.6
		},
	})

	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: requestTimeout},
		breaker:    breaker,
		logger:     logger.With().Str("component", "shurjopay").Logger(),
		metrics:    metrics,
	}
}

// Initiate opens a hosted-checkout session and returns the checkout URL
// the registrant must be redirected to.
func (c *Client) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResponse, error) {
	auth, err := c.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"prefix":                c.cfg.Prefix,
		"token":                 auth.Token,
		"store_id":              auth.StoreID,
		"return_url":            c.cfg.ReturnURL,
		"cancel_url":            c.cfg.ReturnURL,
		"amount":                req.Amount,
		"order_id":              req.OrderID,
		"currency":              req.Currency,
		"discount_amount":       0,
		"disc_percent":          0,
		"client_ip":             "127.0.0.1",
		"customer_name":         req.CustomerName,
		"customer_phone":        req.CustomerPhone,
		"customer_email":        req.CustomerEmail,
		"customer_address":      req.CustomerAddress,
		"customer_city":         req.CustomerCity,
		"customer_state":        "",
		"customer_postcode":     "",
		"customer_country":      "Bangladesh",
		"shipping_address":      req.CustomerAddress,
		"shipping_city":         req.CustomerCity,
		"shipping_country":      "Bangladesh",
		"received_person_name":  req.CustomerName,
		"shipping_phone_number": req.CustomerPhone,
	}

	data, err := c.post(ctx, "initiate", "/api/secret-pay", auth.Token, payload)
	if err != nil {
		return nil, err
	}

	var resp InitiateResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode initiate response: %w", err)
	}
	if resp.CheckoutURL == "" {
		c.logger.Error().RawJSON("response", data).Msg("checkout url missing from initiate response")
		return nil, fmt.Errorf("checkout url not received: %w", domainErrors.ErrGatewayUnavailable)
	}
	return &resp, nil
}

// Verify asks the gateway for the authoritative outcome of a payment.
// The verification endpoint sometimes wraps its answer in a one-element
// array; the first element wins.
func (c *Client) Verify(ctx context.Context, orderID string) (*VerifyResponse, error) {
	auth, err := c.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	data, err := c.post(ctx, "verify", "/api/verification", auth.Token, map[string]any{
		"order_id": orderID,
	})
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []VerifyResponse
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("decode verify response list: %w", err)
		}
		if len(list) == 0 {
			return nil, fmt.Errorf("empty verify response: %w", domainErrors.ErrVerificationFailed)
		}
		return &list[0], nil
	}

	var resp VerifyResponse
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return nil, fmt.Errorf("decode verify response: %w", err)
	}
	return &resp, nil
}

func (c *Client) authenticate(ctx context.Context) (*authResponse, error) {
	data, err := c.post(ctx, "auth", "/api/get_token", "", map[string]string{
		"username": c.cfg.Username,
		"password": c.cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domainErrors.ErrGatewayAuth, err)
	}

	var auth authResponse
	if err := json.Unmarshal(data, &auth); err != nil {
		return nil, fmt.Errorf("%w: decode auth response: %w", domainErrors.ErrGatewayAuth, err)
	}
	if auth.Token == "" || auth.StoreID == 0 {
		return nil, fmt.Errorf("%w: token or store_id missing", domainErrors.ErrGatewayAuth)
	}
	return &auth, nil
}

// post sends a JSON request through the circuit breaker and returns the raw
// response body. Non-2xx responses count as breaker failures.
func (c *Client) post(ctx context.Context, operation, path, bearer string, payload any) ([]byte, error) {
	start := time.Now()

	data, err := c.breaker.Execute(func() ([]byte, error) {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+path, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("gateway request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read gateway response: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("gateway returned %d: %s", resp.StatusCode, respBody)
		}
		return respBody, nil
	})

	c.observe(operation, time.Since(start), err)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit open", domainErrors.ErrGatewayUnavailable)
		}
		return nil, err
	}
	return data, nil
}

func (c *Client) observe(operation string, elapsed time.Duration, err error) {
	if c.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.metrics.GatewayRequestsTotal.WithLabelValues(operation, result).Inc()
	c.metrics.GatewayRequestDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}
