package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	domainErrors "github.com/nadiyatra/registration/internal/domain/errors"
	"github.com/nadiyatra/registration/internal/domain/registration"
)

const registrationColumns = `id, full_name, mobile_number, email, participation_type,
	        total_participants, adults, children, infants,
	        amount, currency, payment_status, transaction_id, created_at, updated_at`

// RegistrationRepository implements registration.Repository using PostgreSQL.
type RegistrationRepository struct {
	pool *pgxpool.Pool
}

// NewRegistrationRepository creates a new RegistrationRepository.
func NewRegistrationRepository(pool *pgxpool.Pool) *RegistrationRepository {
	return &RegistrationRepository{pool: pool}
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Create inserts a new registration.
func (r *RegistrationRepository) Create(ctx context.Context, reg *registration.Registration) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO registrations
		 (id, full_name, mobile_number, email, participation_type,
		  total_participants, adults, children, infants,
		  amount, currency, payment_status, transaction_id, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		reg.ID, reg.FullName, reg.MobileNumber, reg.Email, string(reg.ParticipationType),
		reg.TotalParticipants, reg.Adults, reg.Children, reg.Infants,
		poishaToNumericString(reg.Amount.ValuePoisha), reg.Amount.Currency,
		string(reg.PaymentStatus), reg.TransactionID, reg.CreatedAt, reg.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domainErrors.ErrDuplicateTransactionID
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

// GetByID retrieves a registration by its ID.
func (r *RegistrationRepository) GetByID(ctx context.Context, id uuid.UUID) (*registration.Registration, error) {
	return r.scanRegistration(r.pool.QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = $1`, id))
}

// GetByTransactionID retrieves a registration by the gateway transaction id.
func (r *RegistrationRepository) GetByTransactionID(ctx context.Context, transactionID string) (*registration.Registration, error) {
	return r.scanRegistration(r.pool.QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE transaction_id = $1`, transactionID))
}

// Update updates an existing registration by primary key.
func (r *RegistrationRepository) Update(ctx context.Context, reg *registration.Registration) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE registrations SET
		  payment_status=$1, transaction_id=$2, updated_at=$3
		 WHERE id=$4`,
		string(reg.PaymentStatus), reg.TransactionID, reg.UpdatedAt, reg.ID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domainErrors.ErrDuplicateTransactionID
		}
		return fmt.Errorf("update registration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrRegistrationNotFound
	}
	return nil
}

// UpdateByOrderRef applies a status change matching the primary key first and
// falling back to the stored transaction id. The gateway sometimes echoes its
// own identifier instead of the original order id, so both must be tried.
// Zero rows affected is reported to the caller, not treated as an error here.
func (r *RegistrationRepository) UpdateByOrderRef(
	ctx context.Context,
	orderRef string,
	status registration.PaymentStatus,
	transactionID *string,
) (int64, error) {
	now := time.Now()

	if id, err := uuid.Parse(orderRef); err == nil {
		n, err := r.applyStatus(ctx, `WHERE id = $4`, id, status, transactionID, now)
		if err != nil {
			return 0, err
		}
		if n > 0 {
			return n, nil
		}
	}

	return r.applyStatus(ctx, `WHERE transaction_id = $4`, orderRef, status, transactionID, now)
}

func (r *RegistrationRepository) applyStatus(
	ctx context.Context,
	where string,
	ref any,
	status registration.PaymentStatus,
	transactionID *string,
	now time.Time,
) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE registrations SET
		  payment_status=$1, transaction_id=COALESCE($2, transaction_id), updated_at=$3 `+where,
		string(status), transactionID, now, ref,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, domainErrors.ErrDuplicateTransactionID
		}
		return 0, fmt.Errorf("update registration status: %w", err)
	}
	return tag.RowsAffected(), nil
}

// List lists registrations with optional filters, newest first.
func (r *RegistrationRepository) List(ctx context.Context, f registration.ListFilter) ([]*registration.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE 1=1`
	args := []any{}
	argIdx := 1

	if f.Status != nil {
		query += fmt.Sprintf(" AND payment_status = $%d", argIdx)
		args = append(args, string(*f.Status))
		argIdx++
	}
	if f.CreatedBefore != nil {
		query += fmt.Sprintf(" AND created_at < $%d", argIdx)
		args = append(args, *f.CreatedBefore)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, f.Limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var regs []*registration.Registration
	for rows.Next() {
		reg, err := r.scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

// scanRegistration scans a registration from any source implementing the
// scanner interface.
func (r *RegistrationRepository) scanRegistration(s scanner) (*registration.Registration, error) {
	reg := &registration.Registration{}
	var (
		participationType string
		amountStr         string
		status            string
	)
	err := s.Scan(
		&reg.ID, &reg.FullName, &reg.MobileNumber, &reg.Email, &participationType,
		&reg.TotalParticipants, &reg.Adults, &reg.Children, &reg.Infants,
		&amountStr, &reg.Amount.Currency, &status, &reg.TransactionID, &reg.CreatedAt, &reg.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domainErrors.ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("scan registration: %w", err)
	}

	poisha, err := numericStringToPoisha(amountStr)
	if err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	reg.Amount.ValuePoisha = poisha

	reg.ParticipationType = registration.ParticipationType(participationType)
	reg.PaymentStatus = registration.PaymentStatus(status)
	return reg, nil
}
