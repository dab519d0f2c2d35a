package testutil

import (
	"context"
	"sync"

	"github.com/google/uuid"

	domainErrors "github.com/nadiyatra/registration/internal/domain/errors"
	"github.com/nadiyatra/registration/internal/domain/registration"
	"github.com/nadiyatra/registration/internal/gateway/shurjopay"
)

// --- Registration Repository Mock ---

// MockRegistrationRepository is an in-memory implementation of
// registration.Repository. Any of the *Func fields override the default
// behavior for that method.
type MockRegistrationRepository struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*registration.Registration

	CreateFunc             func(ctx context.Context, reg *registration.Registration) error
	GetByIDFunc            func(ctx context.Context, id uuid.UUID) (*registration.Registration, error)
	GetByTransactionIDFunc func(ctx context.Context, transactionID string) (*registration.Registration, error)
	UpdateFunc             func(ctx context.Context, reg *registration.Registration) error
	UpdateByOrderRefFunc   func(ctx context.Context, orderRef string, status registration.PaymentStatus, transactionID *string) (int64, error)
	ListFunc               func(ctx context.Context, filter registration.ListFilter) ([]*registration.Registration, error)

	UpdateByOrderRefCalls int
}

func NewMockRegistrationRepository() *MockRegistrationRepository {
	return &MockRegistrationRepository{
		byID: make(map[uuid.UUID]*registration.Registration),
	}
}

// Reads hand out copies, like a real repository scanning rows, so callers
// mutating a fetched record cannot bypass the write methods.
func cloneRegistration(reg *registration.Registration) *registration.Registration {
	c := *reg
	return &c
}

func (m *MockRegistrationRepository) Create(ctx context.Context, reg *registration.Registration) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, reg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[reg.ID] = reg
	return nil
}

func (m *MockRegistrationRepository) GetByID(ctx context.Context, id uuid.UUID) (*registration.Registration, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.byID[id]
	if !ok {
		return nil, domainErrors.ErrRegistrationNotFound
	}
	return cloneRegistration(reg), nil
}

func (m *MockRegistrationRepository) GetByTransactionID(ctx context.Context, transactionID string) (*registration.Registration, error) {
	if m.GetByTransactionIDFunc != nil {
		return m.GetByTransactionIDFunc(ctx, transactionID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, reg := range m.byID {
		if reg.TransactionID != nil && *reg.TransactionID == transactionID {
			return cloneRegistration(reg), nil
		}
	}
	return nil, domainErrors.ErrRegistrationNotFound
}

func (m *MockRegistrationRepository) Update(ctx context.Context, reg *registration.Registration) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, reg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[reg.ID]; !ok {
		return domainErrors.ErrRegistrationNotFound
	}
	m.byID[reg.ID] = reg
	return nil
}

func (m *MockRegistrationRepository) UpdateByOrderRef(ctx context.Context, orderRef string, status registration.PaymentStatus, transactionID *string) (int64, error) {
	m.mu.Lock()
	m.UpdateByOrderRefCalls++
	m.mu.Unlock()
	if m.UpdateByOrderRefFunc != nil {
		return m.UpdateByOrderRefFunc(ctx, orderRef, status, transactionID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, err := uuid.Parse(orderRef); err == nil {
		if reg, ok := m.byID[id]; ok {
			reg.PaymentStatus = status
			if transactionID != nil {
				reg.TransactionID = transactionID
			}
			return 1, nil
		}
	}
	for _, reg := range m.byID {
		if reg.TransactionID != nil && *reg.TransactionID == orderRef {
			reg.PaymentStatus = status
			if transactionID != nil {
				reg.TransactionID = transactionID
			}
			return 1, nil
		}
	}
	return 0, nil
}

func (m *MockRegistrationRepository) List(ctx context.Context, filter registration.ListFilter) ([]*registration.Registration, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*registration.Registration
	for _, reg := range m.byID {
		if filter.Status != nil && reg.PaymentStatus != *filter.Status {
			continue
		}
		if filter.CreatedBefore != nil && !reg.CreatedAt.Before(*filter.CreatedBefore) {
			continue
		}
		out = append(out, cloneRegistration(reg))
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// --- Gateway Mock ---

// MockGateway is a mock payment gateway.
type MockGateway struct {
	mu sync.Mutex

	InitiateFunc func(ctx context.Context, req shurjopay.InitiateRequest) (*shurjopay.InitiateResponse, error)
	VerifyFunc   func(ctx context.Context, orderID string) (*shurjopay.VerifyResponse, error)

	InitiateCalls int
	VerifyCalls   int
}

func (m *MockGateway) Initiate(ctx context.Context, req shurjopay.InitiateRequest) (*shurjopay.InitiateResponse, error) {
	m.mu.Lock()
	m.InitiateCalls++
	m.mu.Unlock()
	if m.InitiateFunc != nil {
		return m.InitiateFunc(ctx, req)
	}
	return &shurjopay.InitiateResponse{
		CheckoutURL: "https://sandbox.shurjopayment.com/checkout/" + req.OrderID,
		SPOrderID:   "SP" + req.OrderID[:8],
	}, nil
}

func (m *MockGateway) Verify(ctx context.Context, orderID string) (*shurjopay.VerifyResponse, error) {
	m.mu.Lock()
	m.VerifyCalls++
	m.mu.Unlock()
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, orderID)
	}
	return &shurjopay.VerifyResponse{BankStatus: "success", SPOrderID: "SP123"}, nil
}

// --- Notifier Mock ---

// MockNotifier records confirmed registrations.
type MockNotifier struct {
	mu        sync.Mutex
	Confirmed []*registration.Registration
}

func (m *MockNotifier) PaymentConfirmed(ctx context.Context, reg *registration.Registration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Confirmed = append(m.Confirmed, reg)
}

func (m *MockNotifier) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Confirmed)
}

// --- Locker Mock ---

// MockLocker runs the critical section inline. AcquireErr simulates
// contention.
type MockLocker struct {
	mu         sync.Mutex
	AcquireErr error
	Calls      int
}

func (m *MockLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	m.Calls++
	err := m.AcquireErr
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return fn(ctx)
}

// KeyedLocker serializes callers per key with real mutexes and records
// every key acquired, for tests that exercise concurrent reconcile
// attempts.
type KeyedLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
	keys  []string
}

func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *KeyedLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.keys = append(l.keys, key)
	l.mu.Unlock()

	m.Lock()
	defer m.Unlock()
	return fn(ctx)
}

func (l *KeyedLocker) Keys() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.keys...)
}
