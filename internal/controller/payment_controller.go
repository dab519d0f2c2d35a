package controller

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/nadiyatra/registration/internal/domain/registration"
	"github.com/nadiyatra/registration/internal/service"
)

// PaymentController handles the payment lifecycle HTTP surface.
type PaymentController struct {
	registrationService *service.RegistrationService
}

// NewPaymentController creates a new PaymentController.
func NewPaymentController(registrationService *service.RegistrationService) *PaymentController {
	return &PaymentController{registrationService: registrationService}
}

// InitiatePayment handles POST /api/v1/payment/initiate
func (h *PaymentController) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	var req InitiatePaymentRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	resp, err := h.registrationService.Initiate(r.Context(), service.InitiateRequest{
		FullName:          strings.TrimSpace(req.FullName),
		MobileNumber:      strings.TrimSpace(req.MobileNumber),
		Email:             strings.TrimSpace(req.Email),
		ParticipationType: registration.ParticipationType(req.ParticipationType),
		Adults:            req.Adults,
		Children:          req.Children,
		Infants:           req.Infants,
		AmountPoisha:      floatToPoisha(req.Amount),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, InitiatePaymentResponse{
		CheckoutURL:  resp.CheckoutURL,
		OrderID:      resp.Registration.ID.String(),
		Registration: FromRegistration(resp.Registration),
	})
}

// VerifyPayment handles POST /api/v1/payment/verify. The HTTP call succeeds
// whenever reconciliation ran; a FAILED payment is still a 200 with the
// outcome in the body.
func (h *PaymentController) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req VerifyPaymentRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.registrationService.Reconcile(r.Context(), req.OrderID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, verifyResponse(result))
}

// HandleIPN handles POST and GET /api/v1/payment/ipn. Gateways deliver
// instant payment notifications as JSON, form posts or bare query strings
// with inconsistent field names, so all shapes are accepted.
func (h *PaymentController) HandleIPN(w http.ResponseWriter, r *http.Request) {
	notice, err := parseIPN(r)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.registrationService.ProcessIPN(r.Context(), notice)
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, verifyResponse(result))
}

func verifyResponse(result *service.ReconcileResult) VerifyPaymentResponse {
	resp := VerifyPaymentResponse{
		Status:           string(result.Status),
		AlreadyProcessed: result.AlreadyProcessed,
		Registration:     FromRegistration(result.Registration),
		TransactionID:    result.Registration.TransactionID,
	}
	if result.Gateway != nil {
		resp.BankStatus = result.Gateway.BankStatus
		resp.Message = result.Gateway.SPMessage
	}
	return resp
}

func parseIPN(r *http.Request) (service.IPNNotice, error) {
	values := url.Values{}

	if r.Method == http.MethodPost {
		contentType := r.Header.Get("Content-Type")
		switch {
		case strings.HasPrefix(contentType, "application/json"):
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
				for k, v := range body {
					values.Set(k, toString(v))
				}
			}
		default:
			if err := r.ParseForm(); err == nil {
				values = r.PostForm
			}
		}
	}
	// Query parameters always participate; some gateways redirect through
	// GET with everything in the query string.
	for k, v := range r.URL.Query() {
		if values.Get(k) == "" && len(v) > 0 {
			values.Set(k, v[0])
		}
	}

	return service.IPNNotice{
		OrderID:       firstOf(values, "order_id", "customer_order_id", "sp_order_id"),
		TransactionID: firstOf(values, "transaction_id", "txn_id", "bank_trx_id"),
		Status:        firstOf(values, "status", "payment_status", "bank_status", "sp_message"),
	}, nil
}

func firstOf(values url.Values, keys ...string) string {
	for _, k := range keys {
		if v := values.Get(k); v != "" {
			return v
		}
	}
	return ""
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case nil:
		return ""
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}
