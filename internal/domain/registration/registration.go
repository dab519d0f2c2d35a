package registration

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nadiyatra/registration/internal/domain/errors"
)

// ParticipationType represents how a registrant joins the event
type ParticipationType string

const (
	TypeSingle ParticipationType = "single"
	TypeFamily ParticipationType = "family"
	TypeGuest  ParticipationType = "guest"
)

// PaymentStatus represents the payment status in the state machine
type PaymentStatus string

const (
	StatusPending   PaymentStatus = "PENDING"
	StatusSuccess   PaymentStatus = "SUCCESS"
	StatusFailed    PaymentStatus = "FAILED"
	StatusCancelled PaymentStatus = "CANCELLED"
)

// Valid reports whether s is one of the four known payment statuses.
func (s PaymentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusSuccess, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// ParsePaymentStatus maps a free-form gateway status string onto a local
// payment status. Gateways report success as "success", "completed" or
// "paid" depending on the channel.
func ParsePaymentStatus(s string) PaymentStatus {
	switch strings.ToLower(s) {
	case "success", "completed", "paid":
		return StatusSuccess
	case "failed":
		return StatusFailed
	case "cancelled":
		return StatusCancelled
	default:
		return StatusPending
	}
}

// Registration is the single persistent entity: one row per registrant.
// The registration's own ID doubles as the order reference sent to the
// payment gateway; TransactionID is the gateway-assigned identifier
// attached once known.
type Registration struct {
	ID                uuid.UUID
	FullName          string
	MobileNumber      string
	Email             string
	ParticipationType ParticipationType
	TotalParticipants int
	Adults            int
	Children          int
	Infants           int
	Amount            Amount
	PaymentStatus     PaymentStatus
	TransactionID     *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Amount represents a monetary amount in the smallest currency unit (poisha).
type Amount struct {
	ValuePoisha int64
	Currency    string
}

// String returns a human-readable representation of the amount.
func (a Amount) String() string {
	whole := a.ValuePoisha / 100
	frac := a.ValuePoisha % 100
	if frac < 0 {
		frac = -frac
	}
	return fmt.Sprintf("%d.%02d %s", whole, frac, a.Currency)
}

// Validate checks that the amount is valid.
func (a Amount) Validate() error {
	if a.ValuePoisha <= 0 {
		return errors.NewValidationError("amount", "must be greater than 0")
	}
	if len(a.Currency) != 3 {
		return errors.NewValidationError("currency", "must be a 3-letter ISO code")
	}
	return nil
}

// New creates a registration in PENDING state. TotalParticipants is always
// derived from the breakdown; a client-supplied total is never trusted.
// Single registrations with an all-zero breakdown default to one adult.
func New(
	fullName string,
	mobileNumber string,
	email string,
	participationType ParticipationType,
	adults, children, infants int,
	amount Amount,
) (*Registration, error) {
	if strings.TrimSpace(fullName) == "" {
		return nil, errors.NewValidationError("full_name", "cannot be empty")
	}
	if strings.TrimSpace(mobileNumber) == "" {
		return nil, errors.NewValidationError("mobile_number", "cannot be empty")
	}
	switch participationType {
	case TypeSingle, TypeFamily, TypeGuest:
	default:
		return nil, errors.NewValidationError("participation_type", "must be one of single, family, guest")
	}
	if err := amount.Validate(); err != nil {
		return nil, err
	}

	if participationType == TypeSingle && adults == 0 && children == 0 && infants == 0 {
		adults = 1
	}
	if adults < 1 {
		return nil, errors.NewValidationError("adults", "at least one adult is required")
	}
	if children < 0 || infants < 0 {
		return nil, errors.NewValidationError("participant_breakdown", "counts cannot be negative")
	}

	now := time.Now()
	return &Registration{
		ID:                uuid.New(),
		FullName:          fullName,
		MobileNumber:      mobileNumber,
		Email:             email,
		ParticipationType: participationType,
		TotalParticipants: adults + children + infants,
		Adults:            adults,
		Children:          children,
		Infants:           infants,
		Amount:            amount,
		PaymentStatus:     StatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// CanTransitionTo checks if the payment status can move to newStatus.
// SUCCESS is terminal. FAILED and CANCELLED are re-checkable: a later
// reconcile attempt may still flip them once the gateway reports the
// authoritative outcome.
func (r *Registration) CanTransitionTo(newStatus PaymentStatus) bool {
	transitions := map[PaymentStatus][]PaymentStatus{
		StatusPending: {
			StatusSuccess,
			StatusFailed,
			StatusCancelled,
		},
		StatusFailed: {
			StatusSuccess,
			StatusFailed, // re-verification may fail again
			StatusCancelled,
		},
		StatusCancelled: {
			StatusSuccess,
			StatusFailed,
			StatusCancelled,
		},
		StatusSuccess: {}, // terminal
	}

	allowed, exists := transitions[r.PaymentStatus]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == newStatus {
			return true
		}
	}
	return false
}

// TransitionTo moves the registration to a new payment status.
func (r *Registration) TransitionTo(newStatus PaymentStatus) error {
	if !r.CanTransitionTo(newStatus) {
		return errors.NewDomainError(
			"invalid_transition",
			"cannot transition from "+string(r.PaymentStatus)+" to "+string(newStatus),
			errors.ErrInvalidStateTransition,
		)
	}
	r.PaymentStatus = newStatus
	r.UpdatedAt = time.Now()
	return nil
}

// MarkSuccess transitions to SUCCESS and records the canonical gateway
// transaction identifier.
func (r *Registration) MarkSuccess(transactionID string) error {
	if err := r.TransitionTo(StatusSuccess); err != nil {
		return err
	}
	if transactionID != "" {
		r.TransactionID = &transactionID
	}
	return nil
}

// MarkFailed transitions to FAILED.
func (r *Registration) MarkFailed() error {
	return r.TransitionTo(StatusFailed)
}

// MarkCancelled transitions to CANCELLED.
func (r *Registration) MarkCancelled() error {
	return r.TransitionTo(StatusCancelled)
}

// AttachTransactionID records the gateway-assigned identifier without
// changing the payment status. Used when initiation returns one synchronously.
func (r *Registration) AttachTransactionID(transactionID string) {
	if transactionID == "" {
		return
	}
	r.TransactionID = &transactionID
	r.UpdatedAt = time.Now()
}

// IsSettled reports whether the payment has reached its terminal state.
func (r *Registration) IsSettled() bool {
	return r.PaymentStatus == StatusSuccess
}
