package trader

import (
	"sync"
	"testing"

	"github.com/Noslix/BinanceBot/internal/binance"
	"github.com/Noslix/BinanceBot/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// MockRestClient is a mock implementation of the RestClientInterface.
type MockRestClient struct {
	mock.Mock
}

func (m *MockRestClient) Ping() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockRestClient) GetFreeBalance(asset string) (decimal.Decimal, error) {
	args := m.Called(asset)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockRestClient) GetBalances() ([]models.Balance, error) {
	args := m.Called()
	return args.Get(0).([]models.Balance), args.Error(1)
}

func (m *MockRestClient) GetTradeRule(symbol string) (models.TradeRule, error) {
	args := m.Called(symbol)
	return args.Get(0).(models.TradeRule), args.Error(1)
}

func (m *MockRestClient) GetKlines(symbol, interval string, limit int) ([]models.Kline, error) {
	args := m.Called(symbol, interval, limit)
	return args.Get(0).([]models.Kline), args.Error(1)
}

func (m *MockRestClient) GetOpenOrderCount(symbol string) (int, error) {
	args := m.Called(symbol)
	return args.Get(0).(int), args.Error(1)
}

func (m *MockRestClient) CreateOrder(intent models.OrderIntent) (*binance.CreateOrderResponse, error) {
	args := m.Called(intent)
	return args.Get(0).(*binance.CreateOrderResponse), args.Error(1)
}

// recordingNotifier captures outbound notifications for assertions.
type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) SendMessage(text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, text)
	return nil
}

func (n *recordingNotifier) Messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.messages))
	copy(out, n.messages)
	return out
}

// setupTestDB creates a new, non-shared in-memory database for each test to
// ensure isolation.
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	assert.NoError(t, err)

	err = db.AutoMigrate(&models.PurchaseRecord{}, &models.LogEntry{})
	assert.NoError(t, err)

	return db
}
