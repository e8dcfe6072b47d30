package payment

import (
	"context"

	"github.com/vladislavdragonenkov/orders-ms/internal/domain"
)

// MockService — конфигурируемая заглушка PaymentService для тестов.
type MockService struct {
	Session    domain.PaymentSession
	SessionErr error

	CreateSessionCalls int
	LastOrder          domain.Order
}

// NewMockService возвращает mock с успешным сценарием по умолчанию.
func NewMockService() *MockService {
	return &MockService{
		Session: domain.PaymentSession{
			ID:  "sess-mock",
			URL: "https://payments.local/session/sess-mock",
		},
	}
}

// CreateSession возвращает заранее настроенный результат и считает вызовы.
func (m *MockService) CreateSession(_ context.Context, order domain.Order) (domain.PaymentSession, error) {
	m.CreateSessionCalls++
	m.LastOrder = order
	if m.SessionErr != nil {
		return domain.PaymentSession{}, m.SessionErr
	}
	return m.Session, nil
}

var _ domain.PaymentService = (*MockService)(nil)
