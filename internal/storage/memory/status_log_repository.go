package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/orders-ms/internal/domain"
)

// statusLogRepositoryInMemory хранит журнал смен статусов в памяти.
type statusLogRepositoryInMemory struct {
	mu      sync.RWMutex
	entries map[string][]domain.StatusLogEntry
}

// NewStatusLogRepository возвращает in-memory журнал статусов.
func NewStatusLogRepository() domain.StatusLogRepository {
	return &statusLogRepositoryInMemory{
		entries: make(map[string][]domain.StatusLogEntry),
	}
}

// Append добавляет запись в журнал заказа.
func (r *statusLogRepositoryInMemory) Append(entry domain.StatusLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry.PreviousStatus != nil {
		previous := *entry.PreviousStatus
		entry.PreviousStatus = &previous
	}
	r.entries[entry.OrderID] = append(r.entries[entry.OrderID], entry)
	return nil
}

// List возвращает записи журнала в порядке добавления.
func (r *statusLogRepositoryInMemory) List(orderID string) ([]domain.StatusLogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.entries[orderID]
	entries := make([]domain.StatusLogEntry, len(stored))
	copy(entries, stored)
	return entries, nil
}

var _ domain.StatusLogRepository = (*statusLogRepositoryInMemory)(nil)
