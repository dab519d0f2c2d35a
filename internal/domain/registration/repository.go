package registration

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for registration persistence
type Repository interface {
	// Create creates a new registration
	Create(ctx context.Context, reg *Registration) error

	// GetByID retrieves a registration by its own ID
	GetByID(ctx context.Context, id uuid.UUID) (*Registration, error)

	// GetByTransactionID retrieves a registration by the gateway transaction id
	GetByTransactionID(ctx context.Context, transactionID string) (*Registration, error)

	// Update updates an existing registration by primary key
	Update(ctx context.Context, reg *Registration) error

	// UpdateByOrderRef applies a status change matching the primary key first
	// and falling back to the stored transaction id, to tolerate the gateway
	// echoing its own identifier instead of the original order id. Returns
	// the number of rows affected; zero rows is a soft error left to the
	// caller to log.
	UpdateByOrderRef(ctx context.Context, orderRef string, status PaymentStatus, transactionID *string) (int64, error)

	// List lists registrations with filters, ordered by creation time descending
	List(ctx context.Context, filter ListFilter) ([]*Registration, error)
}

// ListFilter defines filters for listing registrations
type ListFilter struct {
	Status        *PaymentStatus
	CreatedBefore *time.Time
	Limit         int
}
