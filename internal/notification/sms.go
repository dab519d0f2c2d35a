package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/nadiyatra/registration/internal/infrastructure/config"
	"github.com/nadiyatra/registration/pkg/retry"
)

// SMSSender delivers a text message to a single recipient.
type SMSSender interface {
	Send(ctx context.Context, to, message string) error
}

// SMSClient sends SMS through the REVE HTTP API.
type SMSClient struct {
	cfg        config.SMSConfig
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewSMSClient(cfg config.SMSConfig, logger zerolog.Logger) *SMSClient {
	return &SMSClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger.With().Str("component", "sms").Logger(),
	}
}

func (c *SMSClient) Send(ctx context.Context, to, message string) error {
	payload, err := json.Marshal(map[string]string{
		"apikey":         c.cfg.APIKey,
		"secretkey":      c.cfg.SecretKey,
		"callerID":       c.cfg.CallerID,
		"toUser":         to,
		"messageContent": message,
	})
	if err != nil {
		return fmt.Errorf("marshal sms payload: %w", err)
	}

	return retry.Do(ctx, retry.Config{MaxAttempts: 2, InitialDelay: time.Second, MaxDelay: 5 * time.Second}, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("build sms request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sms request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("sms provider returned %d: %s", resp.StatusCode, body)
		}

		c.logger.Debug().Str("to", to).Msg("sms accepted by provider")
		return nil
	})
}
