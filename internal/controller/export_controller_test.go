package controller

import (
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadiyatra/registration/internal/domain/registration"
	"github.com/nadiyatra/registration/internal/testutil"
)

func TestExportCSV_WritesAllColumns(t *testing.T) {
	repo := testutil.NewMockRegistrationRepository()
	reg := testutil.NewTestRegistration(`Karim "Bhai" Uddin`, registration.TypeFamily, 2, 1, 0, 150000)
	reg.PaymentStatus = registration.StatusSuccess
	reg.TransactionID = testutil.StrPtr("SP123")
	require.NoError(t, repo.Create(context.Background(), reg))

	h := NewExportController(repo)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/registrations/export", nil)
	rec := httptest.NewRecorder()
	h.ExportCSV(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")

	records, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, exportHeader, records[0])

	row := records[1]
	require.Len(t, row, 13)
	assert.Equal(t, reg.ID.String(), row[0])
	// The quoted nickname survives RFC 4180 encoding.
	assert.Equal(t, `Karim "Bhai" Uddin`, row[1])
	assert.Equal(t, "family", row[4])
	assert.Equal(t, "3", row[5])
	assert.Equal(t, "1500.00", row[9])
	assert.Equal(t, "SUCCESS", row[10])
	assert.Equal(t, "SP123", row[11])
}

func TestExportCSV_EmptyIs404(t *testing.T) {
	h := NewExportController(testutil.NewMockRegistrationRepository())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/registrations/export", nil)
	rec := httptest.NewRecorder()
	h.ExportCSV(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "no registrations found")
}

func TestExportCSV_StatusFilterIsForwarded(t *testing.T) {
	repo := testutil.NewMockRegistrationRepository()
	var captured *registration.PaymentStatus
	repo.ListFunc = func(ctx context.Context, filter registration.ListFilter) ([]*registration.Registration, error) {
		captured = filter.Status
		reg := testutil.NewTestRegistration("Karim Uddin", registration.TypeSingle, 1, 0, 0, 50000)
		reg.PaymentStatus = registration.StatusSuccess
		return []*registration.Registration{reg}, nil
	}

	h := NewExportController(repo)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/registrations/export?status=SUCCESS", nil)
	rec := httptest.NewRecorder()
	h.ExportCSV(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, captured)
	assert.Equal(t, registration.StatusSuccess, *captured)
}

func TestExportCSV_UnknownStatusIs400(t *testing.T) {
	repo := testutil.NewMockRegistrationRepository()
	listCalls := 0
	repo.ListFunc = func(ctx context.Context, filter registration.ListFilter) ([]*registration.Registration, error) {
		listCalls++
		return nil, nil
	}

	h := NewExportController(repo)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/registrations/export?status=foo", nil)
	rec := httptest.NewRecorder()
	h.ExportCSV(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "validation_error", env.Code)
	assert.Equal(t, 0, listCalls)
}

func TestExportCSV_StatusFilterIsCaseInsensitive(t *testing.T) {
	repo := testutil.NewMockRegistrationRepository()
	var captured *registration.PaymentStatus
	repo.ListFunc = func(ctx context.Context, filter registration.ListFilter) ([]*registration.Registration, error) {
		captured = filter.Status
		reg := testutil.NewTestRegistration("Karim Uddin", registration.TypeSingle, 1, 0, 0, 50000)
		return []*registration.Registration{reg}, nil
	}

	h := NewExportController(repo)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/registrations/export?status=failed", nil)
	rec := httptest.NewRecorder()
	h.ExportCSV(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, captured)
	assert.Equal(t, registration.StatusFailed, *captured)
}

func TestExportCSV_EmptyTransactionIDStaysEmpty(t *testing.T) {
	repo := testutil.NewMockRegistrationRepository()
	reg := testutil.NewTestRegistration("Karim Uddin", registration.TypeSingle, 1, 0, 0, 50000)
	require.NoError(t, repo.Create(context.Background(), reg))

	h := NewExportController(repo)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/registrations/export", nil)
	rec := httptest.NewRecorder()
	h.ExportCSV(rec, req)

	records, err := csv.NewReader(strings.NewReader(rec.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "", records[1][11])
	assert.Equal(t, "PENDING", records[1][10])
}
