package controller

import (
	"time"

	"github.com/nadiyatra/registration/internal/domain/registration"
)

// --- Request DTOs ---
// These DTOs handle HTTP/JSON concerns (float64 for money, validation tags).
// Controllers convert these to service layer DTOs before calling business logic.

// InitiatePaymentRequest holds the input for starting a registration payment.
type InitiatePaymentRequest struct {
	FullName          string  `json:"full_name" validate:"required,min=2,max=120"`
	MobileNumber      string  `json:"mobile_number" validate:"required,min=10,max=20"`
	Email             string  `json:"email" validate:"omitempty,email"`
	ParticipationType string  `json:"participation_type" validate:"required,oneof=single family guest"`
	Adults            int     `json:"adults" validate:"gte=0"`
	Children          int     `json:"children" validate:"gte=0"`
	Infants           int     `json:"infants" validate:"gte=0"`
	Amount            float64 `json:"amount" validate:"required,gt=0"`
}

// VerifyPaymentRequest holds the input for verifying a payment outcome.
type VerifyPaymentRequest struct {
	OrderID string `json:"order_id" validate:"required"`
}

// --- Response DTOs ---

// Envelope is the uniform response wrapper.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// RegistrationResponse represents a registration in API responses.
type RegistrationResponse struct {
	ID                string    `json:"id"`
	FullName          string    `json:"full_name"`
	MobileNumber      string    `json:"mobile_number"`
	Email             string    `json:"email,omitempty"`
	ParticipationType string    `json:"participation_type"`
	TotalParticipants int       `json:"total_participants"`
	Adults            int       `json:"adults"`
	Children          int       `json:"children"`
	Infants           int       `json:"infants"`
	Amount            float64   `json:"amount"`
	Currency          string    `json:"currency"`
	PaymentStatus     string    `json:"payment_status"`
	TransactionID     *string   `json:"transaction_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// InitiatePaymentResponse carries the hosted-checkout redirect target.
type InitiatePaymentResponse struct {
	CheckoutURL  string `json:"checkout_url"`
	OrderID      string `json:"order_id"`
	Registration *RegistrationResponse `json:"registration"`
}

// VerifyPaymentResponse reports the reconciled payment outcome.
type VerifyPaymentResponse struct {
	Status           string                `json:"status"`
	AlreadyProcessed bool                  `json:"already_processed"`
	BankStatus       string                `json:"bank_status,omitempty"`
	Message          string                `json:"message,omitempty"`
	TransactionID    *string               `json:"transaction_id,omitempty"`
	Registration     *RegistrationResponse `json:"registration"`
}

// --- Conversion helpers ---

// FromRegistration converts a domain registration to API response.
func FromRegistration(r *registration.Registration) *RegistrationResponse {
	return &RegistrationResponse{
		ID:                r.ID.String(),
		FullName:          r.FullName,
		MobileNumber:      r.MobileNumber,
		Email:             r.Email,
		ParticipationType: string(r.ParticipationType),
		TotalParticipants: r.TotalParticipants,
		Adults:            r.Adults,
		Children:          r.Children,
		Infants:           r.Infants,
		Amount:            poishaToFloat(r.Amount.ValuePoisha),
		Currency:          r.Amount.Currency,
		PaymentStatus:     string(r.PaymentStatus),
		TransactionID:     r.TransactionID,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

// floatToPoisha converts a float taka amount to poisha.
func floatToPoisha(f float64) int64 {
	return int64(f*100 + 0.5)
}

// poishaToFloat converts poisha to a float taka amount.
func poishaToFloat(poisha int64) float64 {
	return float64(poisha) / 100.0
}
