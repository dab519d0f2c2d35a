package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadiyatra/registration/internal/domain/registration"
	"github.com/nadiyatra/registration/internal/gateway/shurjopay"
	"github.com/nadiyatra/registration/internal/service"
	"github.com/nadiyatra/registration/internal/testutil"
)

// --- Test Helpers ---

func setupController(t *testing.T) (*PaymentController, *testutil.MockRegistrationRepository, *testutil.MockGateway, *testutil.MockNotifier) {
	t.Helper()
	repo := testutil.NewMockRegistrationRepository()
	gateway := &testutil.MockGateway{}
	notifier := &testutil.MockNotifier{}
	svc := service.NewRegistrationService(
		repo, gateway, notifier, &testutil.MockLocker{},
		service.Config{Currency: "BDT", ReverifyFailed: true},
		zerolog.Nop(), nil,
	)
	return NewPaymentController(svc), repo, gateway, notifier
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

func dataField(t *testing.T, env Envelope, key string) any {
	t.Helper()
	data, ok := env.Data.(map[string]any)
	require.True(t, ok, "data is not an object")
	return data[key]
}

// --- InitiatePayment Tests ---

func TestInitiatePayment_Success(t *testing.T) {
	h, repo, _, _ := setupController(t)

	body := `{
		"full_name": "Karim Uddin",
		"mobile_number": "01712345678",
		"email": "karim@example.com",
		"participation_type": "family",
		"adults": 2,
		"children": 1,
		"amount": 1500
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payment/initiate", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.InitiatePayment(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	assert.NotEmpty(t, dataField(t, env, "checkout_url"))
	assert.NotEmpty(t, dataField(t, env, "order_id"))

	regs, err := repo.List(context.Background(), registration.ListFilter{})
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Equal(t, int64(150000), regs[0].Amount.ValuePoisha)
}

func TestInitiatePayment_MissingName(t *testing.T) {
	h, _, gateway, _ := setupController(t)

	body := `{"mobile_number": "01712345678", "participation_type": "single", "amount": 500}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payment/initiate", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.InitiatePayment(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, "validation_error", env.Code)
	assert.Equal(t, 0, gateway.InitiateCalls)
}

func TestInitiatePayment_InvalidJSON(t *testing.T) {
	h, _, _, _ := setupController(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payment/initiate", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.InitiatePayment(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// --- VerifyPayment Tests ---

func TestVerifyPayment_Success(t *testing.T) {
	h, repo, gateway, notifier := setupController(t)

	reg := testutil.NewTestRegistration("Karim Uddin", registration.TypeSingle, 1, 0, 0, 50000)
	require.NoError(t, repo.Create(context.Background(), reg))
	gateway.VerifyFunc = func(ctx context.Context, orderID string) (*shurjopay.VerifyResponse, error) {
		return &shurjopay.VerifyResponse{BankStatus: "success", SPOrderID: "SP123"}, nil
	}

	body := `{"order_id": "` + reg.ID.String() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payment/verify", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.VerifyPayment(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	assert.Equal(t, "SUCCESS", dataField(t, env, "status"))
	assert.Equal(t, "SP123", dataField(t, env, "transaction_id"))
	assert.Equal(t, 1, notifier.Count())
}

func TestVerifyPayment_FailedOutcomeIsStillHTTP200(t *testing.T) {
	h, repo, gateway, _ := setupController(t)

	reg := testutil.NewTestRegistration("Karim Uddin", registration.TypeSingle, 1, 0, 0, 50000)
	require.NoError(t, repo.Create(context.Background(), reg))
	gateway.VerifyFunc = func(ctx context.Context, orderID string) (*shurjopay.VerifyResponse, error) {
		return &shurjopay.VerifyResponse{BankStatus: "failed"}, nil
	}

	body := `{"order_id": "` + reg.ID.String() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payment/verify", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.VerifyPayment(rec, req)

	// Reconciliation ran; the payment outcome lives in the body.
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	assert.Equal(t, "FAILED", dataField(t, env, "status"))
}

func TestVerifyPayment_MissingOrderID(t *testing.T) {
	h, _, _, _ := setupController(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payment/verify", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.VerifyPayment(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, "validation_error", env.Code)
}

func TestVerifyPayment_UnknownOrder(t *testing.T) {
	h, _, _, _ := setupController(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payment/verify", strings.NewReader(`{"order_id": "ghost"}`))
	rec := httptest.NewRecorder()
	h.VerifyPayment(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "not_found", env.Code)
}

// --- HandleIPN Tests ---

func TestHandleIPN_GetWithQueryParams(t *testing.T) {
	h, repo, _, notifier := setupController(t)

	reg := testutil.NewTestRegistration("Karim Uddin", registration.TypeSingle, 1, 0, 0, 50000)
	require.NoError(t, repo.Create(context.Background(), reg))

	target := "/api/v1/payment/ipn?order_id=" + reg.ID.String() + "&txn_id=TXN-7&bank_status=success"
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.HandleIPN(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "SUCCESS", dataField(t, env, "status"))
	assert.Equal(t, 1, notifier.Count())
}

func TestHandleIPN_JSONBody(t *testing.T) {
	h, repo, _, _ := setupController(t)

	reg := testutil.NewTestRegistration("Karim Uddin", registration.TypeSingle, 1, 0, 0, 50000)
	require.NoError(t, repo.Create(context.Background(), reg))

	body := `{"order_id": "` + reg.ID.String() + `", "transaction_id": "TXN-8", "status": "cancelled"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payment/ipn", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.HandleIPN(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "CANCELLED", dataField(t, env, "status"))
}

func TestHandleIPN_FormPost(t *testing.T) {
	h, repo, _, _ := setupController(t)

	reg := testutil.NewTestRegistration("Karim Uddin", registration.TypeSingle, 1, 0, 0, 50000)
	require.NoError(t, repo.Create(context.Background(), reg))

	form := "order_id=" + reg.ID.String() + "&transaction_id=TXN-9&payment_status=failed"
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payment/ipn", strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.HandleIPN(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "FAILED", dataField(t, env, "status"))
}

func TestHandleIPN_MissingOrderID(t *testing.T) {
	h, _, _, _ := setupController(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payment/ipn?txn_id=TXN-1&status=success", nil)
	rec := httptest.NewRecorder()
	h.HandleIPN(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// --- DTO Tests ---

func TestFloatToPoisha(t *testing.T) {
	assert.Equal(t, int64(150000), floatToPoisha(1500))
	assert.Equal(t, int64(99), floatToPoisha(0.99))
	assert.Equal(t, int64(10), floatToPoisha(0.1))
}

func TestFromRegistration(t *testing.T) {
	reg := testutil.NewTestRegistration("Karim Uddin", registration.TypeFamily, 2, 1, 0, 150000)
	resp := FromRegistration(reg)

	assert.Equal(t, reg.ID.String(), resp.ID)
	assert.Equal(t, "family", resp.ParticipationType)
	assert.Equal(t, 3, resp.TotalParticipants)
	assert.Equal(t, 1500.0, resp.Amount)
	assert.Equal(t, "BDT", resp.Currency)
	assert.Equal(t, "PENDING", resp.PaymentStatus)
}
