package registration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/nadiyatra/registration/internal/domain/errors"
)

func validAmount() Amount {
	return Amount{ValuePoisha: 50000, Currency: "BDT"}
}

func TestNew_Valid(t *testing.T) {
	reg, err := New("Karim Uddin", "01712345678", "karim@example.com", TypeFamily, 2, 1, 0, Amount{ValuePoisha: 150000, Currency: "BDT"})
	require.NoError(t, err)

	assert.NotEqual(t, "", reg.ID.String())
	assert.Equal(t, StatusPending, reg.PaymentStatus)
	assert.Equal(t, 3, reg.TotalParticipants)
	assert.Equal(t, 2, reg.Adults)
	assert.Nil(t, reg.TransactionID)
}

func TestNew_SingleDefaultsToOneAdult(t *testing.T) {
	reg, err := New("Rahim Mia", "01811111111", "", TypeSingle, 0, 0, 0, validAmount())
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Adults)
	assert.Equal(t, 1, reg.TotalParticipants)
}

func TestNew_ValidationFailures(t *testing.T) {
	tests := []struct {
		name              string
		fullName          string
		mobile            string
		participationType ParticipationType
		adults, children  int
		infants           int
		amount            Amount
		field             string
	}{
		{"empty name", "", "01712345678", TypeSingle, 1, 0, 0, validAmount(), "full_name"},
		{"empty mobile", "Karim", "", TypeSingle, 1, 0, 0, validAmount(), "mobile_number"},
		{"bad type", "Karim", "01712345678", ParticipationType("vip"), 1, 0, 0, validAmount(), "participation_type"},
		{"zero amount", "Karim", "01712345678", TypeSingle, 1, 0, 0, Amount{ValuePoisha: 0, Currency: "BDT"}, "amount"},
		{"bad currency", "Karim", "01712345678", TypeSingle, 1, 0, 0, Amount{ValuePoisha: 100, Currency: "TAKA"}, "currency"},
		{"family without adult", "Karim", "01712345678", TypeFamily, 0, 2, 0, validAmount(), "adults"},
		{"negative children", "Karim", "01712345678", TypeFamily, 1, -1, 0, validAmount(), "participant_breakdown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.fullName, tt.mobile, "", tt.participationType, tt.adults, tt.children, tt.infants, tt.amount)
			var validationErr *domainErrors.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.field, validationErr.Field)
		})
	}
}

func TestTransitions(t *testing.T) {
	tests := []struct {
		from    PaymentStatus
		to      PaymentStatus
		allowed bool
	}{
		{StatusPending, StatusSuccess, true},
		{StatusPending, StatusFailed, true},
		{StatusPending, StatusCancelled, true},
		{StatusFailed, StatusSuccess, true},
		{StatusFailed, StatusFailed, true},
		{StatusCancelled, StatusSuccess, true},
		{StatusSuccess, StatusFailed, false},
		{StatusSuccess, StatusCancelled, false},
		{StatusSuccess, StatusSuccess, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			reg, err := New("Karim", "01712345678", "", TypeSingle, 1, 0, 0, validAmount())
			require.NoError(t, err)
			reg.PaymentStatus = tt.from

			err = reg.TransitionTo(tt.to)
			if tt.allowed {
				assert.NoError(t, err)
				assert.Equal(t, tt.to, reg.PaymentStatus)
			} else {
				assert.ErrorIs(t, err, domainErrors.ErrInvalidStateTransition)
				assert.Equal(t, tt.from, reg.PaymentStatus)
			}
		})
	}
}

func TestMarkSuccess_RecordsTransactionID(t *testing.T) {
	reg, err := New("Karim", "01712345678", "", TypeSingle, 1, 0, 0, validAmount())
	require.NoError(t, err)

	require.NoError(t, reg.MarkSuccess("SP123"))
	assert.Equal(t, StatusSuccess, reg.PaymentStatus)
	require.NotNil(t, reg.TransactionID)
	assert.Equal(t, "SP123", *reg.TransactionID)
	assert.True(t, reg.IsSettled())

	// Terminal: a second confirmation attempt must fail.
	assert.Error(t, reg.MarkSuccess("SP456"))
	assert.Equal(t, "SP123", *reg.TransactionID)
}

func TestAttachTransactionID(t *testing.T) {
	reg, err := New("Karim", "01712345678", "", TypeSingle, 1, 0, 0, validAmount())
	require.NoError(t, err)

	reg.AttachTransactionID("")
	assert.Nil(t, reg.TransactionID)

	reg.AttachTransactionID("SP-EARLY")
	require.NotNil(t, reg.TransactionID)
	assert.Equal(t, "SP-EARLY", *reg.TransactionID)
	assert.Equal(t, StatusPending, reg.PaymentStatus)
}

func TestParsePaymentStatus(t *testing.T) {
	assert.Equal(t, StatusSuccess, ParsePaymentStatus("success"))
	assert.Equal(t, StatusSuccess, ParsePaymentStatus("Completed"))
	assert.Equal(t, StatusSuccess, ParsePaymentStatus("PAID"))
	assert.Equal(t, StatusFailed, ParsePaymentStatus("failed"))
	assert.Equal(t, StatusCancelled, ParsePaymentStatus("Cancelled"))
	assert.Equal(t, StatusPending, ParsePaymentStatus("processing"))
	assert.Equal(t, StatusPending, ParsePaymentStatus(""))
}

func TestPaymentStatusValid(t *testing.T) {
	assert.True(t, StatusPending.Valid())
	assert.True(t, StatusSuccess.Valid())
	assert.True(t, StatusFailed.Valid())
	assert.True(t, StatusCancelled.Valid())
	assert.False(t, PaymentStatus("foo").Valid())
	assert.False(t, PaymentStatus("").Valid())
}

func TestAmountString(t *testing.T) {
	assert.Equal(t, "1500.00 BDT", Amount{ValuePoisha: 150000, Currency: "BDT"}.String())
	assert.Equal(t, "0.50 BDT", Amount{ValuePoisha: 50, Currency: "BDT"}.String())
}
