package fulfillment

import (
	"context"
	"errors"
	"sync"

	"marketplace-svc/models"

	"github.com/shopspring/decimal"
)

type txKey struct{}

// memStore is an in-memory Store. Transactions are serialized and roll
// back by restoring a snapshot.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	products  map[string]models.Product
	users     map[string]models.User
	purchases []models.Purchase

	// failOn makes the named method return errInjected.
	failOn string
}

var errInjected = errors.New("injected failure")

func newMemStore() *memStore {
	return &memStore{
		products: map[string]models.Product{
			"p1": {ID: "p1", Name: "Tomatoes", Quantity: 10, Price: decimal.NewFromInt(5), Email: "farmer@x"},
		},
		users: map[string]models.User{
			"farmer@x": {Email: "farmer@x", Type: models.UserTypeFarmer, Earning: decimal.Zero},
		},
	}
}

type snapshot struct {
	products  map[string]models.Product
	users     map[string]models.User
	purchases []models.Purchase
}

func (m *memStore) snapshot() snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := snapshot{
		products:  make(map[string]models.Product, len(m.products)),
		users:     make(map[string]models.User, len(m.users)),
		purchases: append([]models.Purchase(nil), m.purchases...),
	}
	for k, v := range m.products {
		s.products[k] = v
	}
	for k, v := range m.users {
		s.users[k] = v
	}
	return s
}

func (m *memStore) restore(s snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products, m.users, m.purchases = s.products, s.users, s.purchases
}

func (m *memStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	m.txMu.Lock()
	defer m.txMu.Unlock()

	before := m.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		m.restore(before)
		return err
	}
	return nil
}

func (m *memStore) fail(method string) error {
	if m.failOn == method {
		return errInjected
	}
	return nil
}

func (m *memStore) PurchaseBySession(_ context.Context, sessionID string) (*models.Purchase, error) {
	if err := m.fail("PurchaseBySession"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.purchases {
		if p.SessionID == sessionID {
			p := p
			return &p, nil
		}
	}
	return nil, nil
}

func (m *memStore) EnsureUser(_ context.Context, u models.User) (bool, error) {
	if err := m.fail("EnsureUser"); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Email]; ok {
		return false, nil
	}
	u.Earning = decimal.Zero
	m.users[u.Email] = u
	return true, nil
}

func (m *memStore) GetProductForUpdate(_ context.Context, id string) (models.Product, error) {
	if err := m.fail("GetProductForUpdate"); err != nil {
		return models.Product{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return models.Product{}, models.ErrProductNotFound
	}
	return p, nil
}

func (m *memStore) SetProductQuantity(_ context.Context, id string, quantity int) error {
	if err := m.fail("SetProductQuantity"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return models.ErrProductNotFound
	}
	p.Quantity = quantity
	m.products[id] = p
	return nil
}

func (m *memStore) CreditEarning(_ context.Context, email string, amount decimal.Decimal) error {
	if err := m.fail("CreditEarning"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return models.ErrSellerNotFound
	}
	u.Earning = u.Earning.Add(amount)
	m.users[email] = u
	return nil
}

func (m *memStore) CreatePurchase(_ context.Context, p models.Purchase) error {
	if err := m.fail("CreatePurchase"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.purchases {
		if existing.SessionID == p.SessionID {
			return models.ErrDuplicatePurchase
		}
	}
	m.purchases = append(m.purchases, p)
	return nil
}

func (m *memStore) product(id string) models.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id]
}

func (m *memStore) user(email string) (models.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	return u, ok
}

func (m *memStore) purchaseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.purchases)
}
