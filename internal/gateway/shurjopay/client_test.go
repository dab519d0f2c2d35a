package shurjopay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/nadiyatra/registration/internal/domain/errors"
	"github.com/nadiyatra/registration/internal/infrastructure/config"
)

// fakeGateway mimics the upstream sandbox: token endpoint plus checkout and
// verification endpoints that require the bearer token.
func fakeGateway(t *testing.T, verifyBody string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/get_token":
			var creds map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
			if creds["username"] != "sp_user" || creds["password"] != "sp_pass" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"token":    "tok-1",
				"store_id": 1,
			})
		case "/api/secret-pay":
			if r.Header.Get("Authorization") != "Bearer tok-1" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			var payload map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, "Bangladesh", payload["customer_country"])
			json.NewEncoder(w).Encode(map[string]any{
				"checkout_url":      "https://pay.example.com/checkout/9",
				"sp_order_id":       "SP-9",
				"customer_order_id": payload["order_id"],
				"amount":            1500,
			})
		case "/api/verification":
			if r.Header.Get("Authorization") != "Bearer tok-1" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte(verifyBody))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestClient(endpoint string) *Client {
	return NewClient(config.GatewayConfig{
		Endpoint:  endpoint,
		Username:  "sp_user",
		Password:  "sp_pass",
		Prefix:    "sp",
		ReturnURL: "http://localhost:3000/payment/callback",
	}, zerolog.Nop(), nil)
}

func TestInitiate_ReturnsCheckoutURL(t *testing.T) {
	srv := fakeGateway(t, "{}")
	defer srv.Close()

	client := newTestClient(srv.URL)
	resp, err := client.Initiate(context.Background(), InitiateRequest{
		OrderID:       "order-1",
		Amount:        1500,
		Currency:      "BDT",
		CustomerName:  "Karim Uddin",
		CustomerPhone: "01712345678",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example.com/checkout/9", resp.CheckoutURL)
	assert.Equal(t, "SP-9", resp.SPOrderID)
	// Numeric amounts decode through the tolerant string type.
	assert.Equal(t, FlexString("1500"), resp.Amount)
}

func TestInitiate_MissingCheckoutURLIsGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/get_token" {
			json.NewEncoder(w).Encode(map[string]any{"token": "tok-1", "store_id": 1})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"message": "store closed"})
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.Initiate(context.Background(), InitiateRequest{OrderID: "order-1", Amount: 10, Currency: "BDT"})
	assert.ErrorIs(t, err, domainErrors.ErrGatewayUnavailable)
}

func TestAuthenticate_BadCredentials(t *testing.T) {
	srv := fakeGateway(t, "{}")
	defer srv.Close()

	client := NewClient(config.GatewayConfig{
		Endpoint: srv.URL,
		Username: "sp_user",
		Password: "wrong",
	}, zerolog.Nop(), nil)

	_, err := client.Verify(context.Background(), "order-1")
	assert.ErrorIs(t, err, domainErrors.ErrGatewayAuth)
}

func TestVerify_ObjectResponse(t *testing.T) {
	srv := fakeGateway(t, `{"sp_order_id":"SP-9","bank_status":"Success","sp_code":1000,"amount":"1500.00"}`)
	defer srv.Close()

	client := newTestClient(srv.URL)
	resp, err := client.Verify(context.Background(), "order-1")
	require.NoError(t, err)
	assert.True(t, resp.Succeeded())
	assert.Equal(t, "SP-9", resp.SPOrderID)
	assert.Equal(t, FlexString("1000"), resp.SPCode)
}

func TestVerify_ArrayResponseTakesFirstElement(t *testing.T) {
	srv := fakeGateway(t, `[{"sp_order_id":"SP-9","bank_status":"success"},{"sp_order_id":"SP-10","bank_status":"failed"}]`)
	defer srv.Close()

	client := newTestClient(srv.URL)
	resp, err := client.Verify(context.Background(), "order-1")
	require.NoError(t, err)
	assert.Equal(t, "SP-9", resp.SPOrderID)
	assert.True(t, resp.Succeeded())
}

func TestVerify_EmptyArrayResponse(t *testing.T) {
	srv := fakeGateway(t, `[]`)
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.Verify(context.Background(), "order-1")
	assert.ErrorIs(t, err, domainErrors.ErrVerificationFailed)
}

func TestSucceeded(t *testing.T) {
	assert.True(t, (&VerifyResponse{BankStatus: "Success"}).Succeeded())
	assert.True(t, (&VerifyResponse{SPMessage: "success"}).Succeeded())
	assert.False(t, (&VerifyResponse{BankStatus: "failed", SPMessage: "declined"}).Succeeded())
	assert.False(t, (&VerifyResponse{}).Succeeded())
}

func TestCanonicalTransactionID(t *testing.T) {
	assert.Equal(t, "SP-1", (&VerifyResponse{SPOrderID: "SP-1", OrderID: "ord"}).CanonicalTransactionID("fb"))
	assert.Equal(t, "ord", (&VerifyResponse{OrderID: "ord"}).CanonicalTransactionID("fb"))
	assert.Equal(t, "fb", (&VerifyResponse{}).CanonicalTransactionID("fb"))
}

func TestFlexString(t *testing.T) {
	var s struct {
		A FlexString `json:"a"`
		B FlexString `json:"b"`
		C FlexString `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"text","b":42.5,"c":null}`), &s))
	assert.Equal(t, FlexString("text"), s.A)
	assert.Equal(t, FlexString("42.5"), s.B)
	assert.Equal(t, FlexString(""), s.C)
}
