package catalog

import (
	"context"

	"github.com/vladislavdragonenkov/orders-ms/internal/domain"
)

// MockService — конфигурируемая заглушка ProductService для тестов.
type MockService struct {
	Products    []domain.Product
	ValidateErr error

	ValidateCalls int
	LastIDs       []string
}

// NewMockService возвращает mock с успешным сценарием по умолчанию.
func NewMockService(products ...domain.Product) *MockService {
	return &MockService{Products: products}
}

// Validate возвращает заранее настроенный результат и считает вызовы.
func (m *MockService) Validate(_ context.Context, ids []string) ([]domain.Product, error) {
	m.ValidateCalls++
	m.LastIDs = ids
	if m.ValidateErr != nil {
		return nil, m.ValidateErr
	}
	return m.Products, nil
}

var _ domain.ProductService = (*MockService)(nil)
