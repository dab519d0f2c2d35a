package testutil

import (
	"time"

	"github.com/nadiyatra/registration/internal/domain/registration"
)

func NewTestRegistration(fullName string, participationType registration.ParticipationType, adults, children, infants int, amountPoisha int64) *registration.Registration {
	reg, err := registration.New(
		fullName,
		"01712345678",
		"test@example.com",
		participationType,
		adults, children, infants,
		registration.Amount{ValuePoisha: amountPoisha, Currency: "BDT"},
	)
	if err != nil {
		panic(err)
	}
	// Push creation into the past so stale-pending filters match.
	reg.CreatedAt = time.Now().Add(-time.Hour)
	return reg
}

func StrPtr(s string) *string {
	return &s
}
