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

// Email is a single outbound message.
type Email struct {
	To      string
	Subject string
	HTML    string
}

// EmailSender delivers an email message.
type EmailSender interface {
	Send(ctx context.Context, email Email) error
}

// EmailClient sends email through the Resend HTTP API.
type EmailClient struct {
	cfg        config.EmailConfig
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewEmailClient(cfg config.EmailConfig, logger zerolog.Logger) *EmailClient {
	return &EmailClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger.With().Str("component", "email").Logger(),
	}
}

func (c *EmailClient) Send(ctx context.Context, email Email) error {
	payload, err := json.Marshal(map[string]any{
		"from":    c.cfg.From,
		"to":      []string{email.To},
		"subject": email.Subject,
		"html":    email.HTML,
	})
	if err != nil {
		return fmt.Errorf("marshal email payload: %w", err)
	}

	return retry.Do(ctx, retry.Config{MaxAttempts: 2, InitialDelay: time.Second, MaxDelay: 5 * time.Second}, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("build email request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("email request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("email provider returned %d: %s", resp.StatusCode, body)
		}

		c.logger.Debug().Str("to", email.To).Msg("email accepted by provider")
		return nil
	})
}
