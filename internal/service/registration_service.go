package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	domainErrors "github.com/nadiyatra/registration/internal/domain/errors"
	"github.com/nadiyatra/registration/internal/domain/registration"
	"github.com/nadiyatra/registration/internal/gateway/shurjopay"
	"github.com/nadiyatra/registration/internal/infrastructure/observability"
)

// PaymentGateway is the slice of the gateway client the orchestrator needs.
type PaymentGateway interface {
	Initiate(ctx context.Context, req shurjopay.InitiateRequest) (*shurjopay.InitiateResponse, error)
	Verify(ctx context.Context, orderID string) (*shurjopay.VerifyResponse, error)
}

// Notifier fans out payment-confirmation notifications without blocking the
// caller.
type Notifier interface {
	PaymentConfirmed(ctx context.Context, reg *registration.Registration)
}

// Locker serializes reconcile attempts per registration.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// Config holds orchestrator policy knobs.
type Config struct {
	Currency string
	// ReverifyFailed allows a FAILED or CANCELLED registration to be
	// re-verified against the gateway. SUCCESS is always guarded.
	ReverifyFailed bool
}

// RegistrationService drives a registration through its payment lifecycle
// and guarantees that success notifications fire at most once per record.
// It is the single owner of registration writes.
type RegistrationService struct {
	repo     registration.Repository
	gateway  PaymentGateway
	notifier Notifier
	locker   Locker
	cfg      Config
	logger   zerolog.Logger
	metrics  *observability.Metrics
}

// NewRegistrationService creates a new RegistrationService. metrics may be
// nil.
func NewRegistrationService(
	repo registration.Repository,
	gateway PaymentGateway,
	notifier Notifier,
	locker Locker,
	cfg Config,
	logger zerolog.Logger,
	metrics *observability.Metrics,
) *RegistrationService {
	if cfg.Currency == "" {
		cfg.Currency = "BDT"
	}
	return &RegistrationService{
		repo:     repo,
		gateway:  gateway,
		notifier: notifier,
		locker:   locker,
		cfg:      cfg,
		logger:   logger.With().Str("component", "orchestrator").Logger(),
		metrics:  metrics,
	}
}

// InitiateRequest holds the input for starting a registration payment.
type InitiateRequest struct {
	FullName          string
	MobileNumber      string
	Email             string
	ParticipationType registration.ParticipationType
	Adults            int
	Children          int
	Infants           int
	AmountPoisha      int64
}

// InitiateResponse holds the result of starting a registration payment.
type InitiateResponse struct {
	Registration *registration.Registration
	CheckoutURL  string
}

// Initiate creates a PENDING registration and opens a hosted-checkout
// session with the gateway, using the registration's own id as the order
// reference. On gateway failure the record stays PENDING; retry is the
// registrant's responsibility via re-submission.
func (s *RegistrationService) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResponse, error) {
	reg, err := registration.New(
		req.FullName,
		req.MobileNumber,
		req.Email,
		req.ParticipationType,
		req.Adults, req.Children, req.Infants,
		registration.Amount{ValuePoisha: req.AmountPoisha, Currency: s.cfg.Currency},
	)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, reg); err != nil {
		return nil, fmt.Errorf("create registration: %w", err)
	}
	if s.metrics != nil {
		s.metrics.RegistrationsTotal.WithLabelValues(string(reg.ParticipationType)).Inc()
	}
	s.logger.Info().
		Stringer("registration_id", reg.ID).
		Str("participation_type", string(reg.ParticipationType)).
		Int("total_participants", reg.TotalParticipants).
		Msg("registration saved")

	gwResp, err := s.gateway.Initiate(ctx, shurjopay.InitiateRequest{
		OrderID:         reg.ID.String(),
		Amount:          poishaToFloat(req.AmountPoisha),
		Currency:        s.cfg.Currency,
		CustomerName:    reg.FullName,
		CustomerPhone:   reg.MobileNumber,
		CustomerEmail:   reg.Email,
		CustomerAddress: "Rangpur",
		CustomerCity:    "Rangpur",
	})
	if err != nil {
		s.logger.Error().Err(err).Stringer("registration_id", reg.ID).Msg("payment initiation failed")
		return nil, fmt.Errorf("initiate payment: %w", err)
	}

	if gwResp.SPOrderID != "" {
		reg.AttachTransactionID(gwResp.SPOrderID)
		if err := s.repo.Update(ctx, reg); err != nil {
			// The checkout session is already open; losing the early
			// transaction id only disables alternate-key lookup until
			// verification attaches it again.
			s.logger.Warn().Err(err).Stringer("registration_id", reg.ID).Msg("failed to attach gateway transaction id")
		}
	}

	return &InitiateResponse{Registration: reg, CheckoutURL: gwResp.CheckoutURL}, nil
}

// ReconcileResult holds the outcome of a reconcile or IPN attempt.
type ReconcileResult struct {
	Registration     *registration.Registration
	Gateway          *shurjopay.VerifyResponse
	Status           registration.PaymentStatus
	AlreadyProcessed bool
}

// Reconcile queries the gateway for the authoritative outcome of a payment
// and updates local state to match. A registration already in SUCCESS is
// returned as-is with no gateway call, no write and no notification; that
// guard is what makes duplicate callbacks harmless.
func (s *RegistrationService) Reconcile(ctx context.Context, orderID string) (*ReconcileResult, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, domainErrors.NewValidationError("order_id", "cannot be empty")
	}

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.String("payment.order_id", orderID))

	result, err := s.withOrderLock(ctx, orderID, func(ctx context.Context) (*ReconcileResult, error) {
		return s.reconcileLocked(ctx, orderID)
	})
	s.recordReconcileOutcome(result, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *RegistrationService) reconcileLocked(ctx context.Context, orderID string) (*ReconcileResult, error) {
	reg, err := s.findByOrderRef(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if guarded := s.guardResult(reg); guarded != nil {
		return guarded, nil
	}

	verifyResp, err := s.gateway.Verify(ctx, orderID)
	if err != nil {
		// Best effort: leave a FAILED mark so the record is not stuck
		// looking live. Secondary failures must not mask the original.
		s.markFailed(ctx, orderID)
		return nil, fmt.Errorf("%w: %w", domainErrors.ErrVerificationFailed, err)
	}

	if verifyResp.Succeeded() {
		txID := verifyResp.CanonicalTransactionID(orderID)
		rows, err := s.repo.UpdateByOrderRef(ctx, orderID, registration.StatusSuccess, &txID)
		if err != nil {
			return nil, err
		}
		if rows == 0 {
			s.logger.Error().Str("order_id", orderID).Msg("no matching registration for success update")
		}
		_ = reg.MarkSuccess(txID)

		s.notifier.PaymentConfirmed(ctx, reg)
		s.logger.Info().Str("order_id", orderID).Str("transaction_id", txID).Msg("payment confirmed")

		return &ReconcileResult{
			Registration: reg,
			Gateway:      verifyResp,
			Status:       registration.StatusSuccess,
		}, nil
	}

	rows, err := s.repo.UpdateByOrderRef(ctx, orderID, registration.StatusFailed, nil)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		s.logger.Error().Str("order_id", orderID).Msg("no matching registration for failure update")
	}
	_ = reg.MarkFailed()
	s.logger.Info().
		Str("order_id", orderID).
		Str("bank_status", verifyResp.BankStatus).
		Msg("payment marked as failed")

	return &ReconcileResult{
		Registration: reg,
		Gateway:      verifyResp,
		Status:       registration.StatusFailed,
	}, nil
}

// IPNNotice carries the fields of a gateway-initiated payment notification.
type IPNNotice struct {
	OrderID       string
	TransactionID string
	Status        string
}

// ProcessIPN applies a gateway-pushed payment outcome with the same guard
// and lookup semantics as Reconcile, trusting the pushed status instead of
// calling back out to the gateway.
func (s *RegistrationService) ProcessIPN(ctx context.Context, notice IPNNotice) (*ReconcileResult, error) {
	if strings.TrimSpace(notice.OrderID) == "" {
		return nil, domainErrors.NewValidationError("order_id", "cannot be empty")
	}
	if strings.TrimSpace(notice.TransactionID) == "" {
		return nil, domainErrors.NewValidationError("transaction_id", "cannot be empty")
	}

	result, err := s.withOrderLock(ctx, notice.OrderID, func(ctx context.Context) (*ReconcileResult, error) {
		return s.processIPNLocked(ctx, notice)
	})
	s.recordReconcileOutcome(result, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *RegistrationService) processIPNLocked(ctx context.Context, notice IPNNotice) (*ReconcileResult, error) {
	reg, err := s.findByOrderRef(ctx, notice.OrderID)
	if err != nil {
		return nil, err
	}

	if guarded := s.guardResult(reg); guarded != nil {
		return guarded, nil
	}

	status := registration.ParsePaymentStatus(notice.Status)
	txID := notice.TransactionID

	rows, err := s.repo.UpdateByOrderRef(ctx, notice.OrderID, status, &txID)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		s.logger.Error().Str("order_id", notice.OrderID).Msg("no matching registration for ipn update")
	}

	if status == registration.StatusSuccess {
		_ = reg.MarkSuccess(txID)
		s.notifier.PaymentConfirmed(ctx, reg)
	} else {
		reg.PaymentStatus = status
		reg.TransactionID = &txID
	}

	s.logger.Info().
		Str("order_id", notice.OrderID).
		Str("transaction_id", txID).
		Str("status", string(status)).
		Msg("ipn processed")

	return &ReconcileResult{Registration: reg, Status: status}, nil
}

// ReverifyStalePending re-runs Reconcile for PENDING registrations older
// than the cutoff: registrants who abandoned checkout, or callbacks that
// never arrived. Returns the number of registrations swept.
func (s *RegistrationService) ReverifyStalePending(ctx context.Context, olderThan time.Time, limit int) (int, error) {
	status := registration.StatusPending
	regs, err := s.repo.List(ctx, registration.ListFilter{
		Status:        &status,
		CreatedBefore: &olderThan,
		Limit:         limit,
	})
	if err != nil {
		return 0, fmt.Errorf("list pending registrations: %w", err)
	}

	swept := 0
	for _, reg := range regs {
		if _, err := s.Reconcile(ctx, reg.ID.String()); err != nil {
			s.logger.Warn().Err(err).Stringer("registration_id", reg.ID).Msg("stale pending re-verification failed")
			continue
		}
		swept++
	}
	return swept, nil
}

// withOrderLock serializes a reconcile attempt on the record's own id.
// The same registration is addressed through two references, its primary
// id and the gateway's order id, so locking on the raw reference would
// let a duplicate delivery under the other reference run concurrently
// and slip past the SUCCESS guard. The unlocked lookup only pins the
// lock key; fn re-reads the record under the lock before acting on it.
func (s *RegistrationService) withOrderLock(ctx context.Context, orderRef string, fn func(ctx context.Context) (*ReconcileResult, error)) (*ReconcileResult, error) {
	reg, err := s.findByOrderRef(ctx, orderRef)
	if err != nil {
		return nil, err
	}

	var result *ReconcileResult
	err = s.locker.WithLock(ctx, reg.ID.String(), func(ctx context.Context) error {
		var err error
		result, err = fn(ctx)
		return err
	})
	return result, err
}

// findByOrderRef looks a registration up by primary id first, falling back
// to the stored gateway transaction id when the gateway echoed its own
// identifier.
func (s *RegistrationService) findByOrderRef(ctx context.Context, orderRef string) (*registration.Registration, error) {
	if id, err := uuid.Parse(orderRef); err == nil {
		reg, err := s.repo.GetByID(ctx, id)
		if err == nil {
			return reg, nil
		}
		if !errors.Is(err, domainErrors.ErrRegistrationNotFound) {
			return nil, err
		}
	}
	return s.repo.GetByTransactionID(ctx, orderRef)
}

// guardResult returns a distinguished already-processed result when the
// registration must not be re-processed, nil otherwise.
func (s *RegistrationService) guardResult(reg *registration.Registration) *ReconcileResult {
	if reg.PaymentStatus == registration.StatusSuccess {
		s.logger.Info().Stringer("registration_id", reg.ID).Msg("payment already confirmed, skipping")
		return &ReconcileResult{
			Registration:     reg,
			Status:           reg.PaymentStatus,
			AlreadyProcessed: true,
		}
	}
	settled := reg.PaymentStatus == registration.StatusFailed || reg.PaymentStatus == registration.StatusCancelled
	if settled && !s.cfg.ReverifyFailed {
		s.logger.Info().
			Stringer("registration_id", reg.ID).
			Str("status", string(reg.PaymentStatus)).
			Msg("re-verification disabled, skipping")
		return &ReconcileResult{
			Registration:     reg,
			Status:           reg.PaymentStatus,
			AlreadyProcessed: true,
		}
	}
	return nil
}

func (s *RegistrationService) markFailed(ctx context.Context, orderID string) {
	rows, err := s.repo.UpdateByOrderRef(ctx, orderID, registration.StatusFailed, nil)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID).Msg("best-effort failure mark errored")
		return
	}
	if rows == 0 {
		s.logger.Warn().Str("order_id", orderID).Msg("best-effort failure mark matched no rows")
	}
}

func (s *RegistrationService) recordReconcileOutcome(result *ReconcileResult, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "error"
	switch {
	case errors.Is(err, domainErrors.ErrRegistrationNotFound):
		outcome = "not_found"
	case err == nil && result != nil && result.AlreadyProcessed:
		outcome = "already_processed"
	case err == nil && result != nil:
		outcome = strings.ToLower(string(result.Status))
	}
	s.metrics.ReconcilesTotal.WithLabelValues(outcome).Inc()
}

func poishaToFloat(poisha int64) float64 {
	return float64(poisha) / 100.0
}
