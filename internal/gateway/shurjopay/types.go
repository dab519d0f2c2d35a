package shurjopay

import (
	"encoding/json"
	"strings"
)

// FlexString decodes JSON strings and bare numbers alike. The gateway is
// not consistent about which fields arrive quoted.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*f = FlexString(v)
		return nil
	}
	*f = FlexString(s)
	return nil
}

type authResponse struct {
	Token     string `json:"token"`
	StoreID   int    `json:"store_id"`
	TokenType string `json:"token_type"`
	Message   string `json:"message"`
	ExpiresIn int    `json:"expires_in"`
}

// InitiateRequest holds the customer and order fields for a hosted-checkout
// session.
type InitiateRequest struct {
	OrderID         string
	Amount          float64
	Currency        string
	CustomerName    string
	CustomerPhone   string
	CustomerEmail   string
	CustomerAddress string
	CustomerCity    string
}

// InitiateResponse is the gateway's answer to a checkout session request.
type InitiateResponse struct {
	CheckoutURL     string     `json:"checkout_url"`
	Amount          FlexString `json:"amount"`
	Currency        string     `json:"currency"`
	SPOrderID       string     `json:"sp_order_id"`
	CustomerOrderID string     `json:"customer_order_id"`
}

// VerifyResponse is the gateway's authoritative report on a payment outcome.
type VerifyResponse struct {
	SPOrderID         string     `json:"sp_order_id"`
	OrderID           string     `json:"order_id"`
	Method            string     `json:"method"`
	BankStatus        string     `json:"bank_status"`
	SPCode            FlexString `json:"sp_code"`
	SPMessage         string     `json:"sp_message"`
	Amount            FlexString `json:"amount"`
	Currency          string     `json:"currency"`
	TransactionStatus string     `json:"transaction_status"`
	BankTrxID         string     `json:"bank_trx_id"`
	ReceivedAmount    FlexString `json:"received_amount"`
}

// Succeeded reports whether the response indicates a completed payment.
// bank_status and sp_message are matched case-insensitively and either is
// sufficient; the upstream API does not fill them consistently.
func (v *VerifyResponse) Succeeded() bool {
	return strings.EqualFold(v.BankStatus, "success") ||
		strings.EqualFold(v.SPMessage, "success")
}

// CanonicalTransactionID picks the transaction identifier to persist,
// preferring the gateway's own sp_order_id over the echoed order id over
// the caller-supplied fallback.
func (v *VerifyResponse) CanonicalTransactionID(fallback string) string {
	if v.SPOrderID != "" {
		return v.SPOrderID
	}
	if v.OrderID != "" {
		return v.OrderID
	}
	return fallback
}
