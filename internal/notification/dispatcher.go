package notification

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/nadiyatra/registration/internal/domain/registration"
	"github.com/nadiyatra/registration/internal/infrastructure/observability"
)

// Dispatcher fans out payment-confirmation notifications: one SMS to the
// registrant, one email to the admin when configured, one email to the
// registrant when an address was captured. Each attempt is isolated; a
// provider failure never reaches the payment workflow.
type Dispatcher struct {
	sms        SMSSender
	email      EmailSender
	adminEmail string
	logger     zerolog.Logger
	metrics    *observability.Metrics

	wg sync.WaitGroup
}

// NewDispatcher creates a Dispatcher. adminEmail may be empty; metrics may
// be nil.
func NewDispatcher(sms SMSSender, email EmailSender, adminEmail string, logger zerolog.Logger, metrics *observability.Metrics) *Dispatcher {
	return &Dispatcher{
		sms:        sms,
		email:      email,
		adminEmail: adminEmail,
		logger:     logger.With().Str("component", "notification").Logger(),
		metrics:    metrics,
	}
}

// PaymentConfirmed schedules the fan-out and returns immediately. The
// caller's HTTP response is never blocked on provider outcomes.
func (d *Dispatcher) PaymentConfirmed(ctx context.Context, reg *registration.Registration) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.dispatch(context.WithoutCancel(ctx), reg)
	}()
}

// Wait blocks until all in-flight dispatches settle. Called on shutdown.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) dispatch(ctx context.Context, reg *registration.Registration) {
	var (
		mu        sync.Mutex
		attempted int
		failed    int
	)
	record := func(channel string, err error) {
		mu.Lock()
		defer mu.Unlock()
		attempted++
		status := "sent"
		if err != nil {
			failed++
			status = "failed"
			d.logger.Error().Err(err).
				Str("channel", channel).
				Stringer("registration_id", reg.ID).
				Msg("notification attempt failed")
		}
		if d.metrics != nil {
			d.metrics.NotificationsTotal.WithLabelValues(channel, status).Inc()
		}
	}

	var g errgroup.Group

	g.Go(func() error {
		record("sms", d.sms.Send(ctx, reg.MobileNumber, confirmationSMS(reg)))
		return nil
	})

	if d.adminEmail != "" {
		g.Go(func() error {
			record("admin_email", d.email.Send(ctx, Email{
				To:      d.adminEmail,
				Subject: adminEmailSubject(reg),
				HTML:    adminEmailBody(reg),
			}))
			return nil
		})
	}

	if reg.Email != "" {
		g.Go(func() error {
			record("user_email", d.email.Send(ctx, Email{
				To:      reg.Email,
				Subject: userEmailSubject(),
				HTML:    userEmailBody(reg),
			}))
			return nil
		})
	}

	_ = g.Wait()

	d.logger.Info().
		Stringer("registration_id", reg.ID).
		Int("attempted", attempted).
		Int("failed", failed).
		Msg("notification dispatch settled")
}
