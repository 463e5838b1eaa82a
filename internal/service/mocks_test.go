package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/store"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.NewStore(store.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, err = store.NewMigrator(s).Migrate(context.Background(), nil)
	require.NoError(t, err)
	return s
}

// fastHasher keeps test runs quick
func fastHasher() *PasswordHasher {
	return NewPasswordHasher(1000)
}

type mockPublisher struct {
	mu     sync.Mutex
	events []interface{}
	err    error
}

func (m *mockPublisher) record(event interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func (m *mockPublisher) PublishStockChanged(_ context.Context, event *models.StockChangedEvent) error {
	return m.record(event)
}

func (m *mockPublisher) PublishProductDeleted(_ context.Context, event *models.ProductDeletedEvent) error {
	return m.record(event)
}

func (m *mockPublisher) PublishUserRegistered(_ context.Context, event *models.UserRegisteredEvent) error {
	return m.record(event)
}

func (m *mockPublisher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}

func (m *mockPublisher) stockEvents() []*models.StockChangedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.StockChangedEvent
	for _, e := range m.events {
		if sc, ok := e.(*models.StockChangedEvent); ok {
			out = append(out, sc)
		}
	}
	return out
}

type mockMirror struct {
	stocks   map[int64]int
	err      error
	writeErr error
}

func newMockMirror() *mockMirror {
	return &mockMirror{stocks: make(map[int64]int)}
}

func (m *mockMirror) GetStock(_ context.Context, productID int64) (int, bool, error) {
	if m.err != nil {
		return 0, false, m.err
	}
	stock, ok := m.stocks[productID]
	return stock, ok, nil
}

func (m *mockMirror) SetStock(_ context.Context, productID int64, stock int) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.stocks[productID] = stock
	return nil
}

func (m *mockMirror) DeleteStock(_ context.Context, productID int64) error {
	delete(m.stocks, productID)
	return nil
}

func (m *mockMirror) SyncStock(_ context.Context, stocks map[int64]int) error {
	if m.err != nil {
		return m.err
	}
	m.stocks = make(map[int64]int, len(stocks))
	for id, stock := range stocks {
		m.stocks[id] = stock
	}
	return nil
}

type mockSessions struct {
	sessions map[string]*models.Session
	ttls     map[string]time.Duration
}

func newMockSessions() *mockSessions {
	return &mockSessions{
		sessions: make(map[string]*models.Session),
		ttls:     make(map[string]time.Duration),
	}
}

func (m *mockSessions) SaveSession(_ context.Context, session *models.Session, ttl time.Duration) error {
	clone := *session
	m.sessions[session.Token] = &clone
	m.ttls[session.Token] = ttl
	return nil
}

func (m *mockSessions) GetSession(_ context.Context, token string) (*models.Session, error) {
	if s, ok := m.sessions[token]; ok {
		clone := *s
		return &clone, nil
	}
	return nil, nil
}

func (m *mockSessions) DeleteSession(_ context.Context, token string) error {
	delete(m.sessions, token)
	return nil
}

var errBrokerDown = errors.New("broker down")
