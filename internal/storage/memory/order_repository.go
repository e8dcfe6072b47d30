package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/orders-ms/internal/domain"
)

// orderRepositoryInMemory — простая in-memory реализация OrderRepository
// для локальной разработки и тестов.
type orderRepositoryInMemory struct {
	mu       sync.RWMutex
	items    map[string]domain.Order
	receipts map[string][]domain.Receipt
	// statusLog получает начальную запись при создании заказа, имитируя
	// транзакционную запись журнала в Postgres-реализации.
	statusLog domain.StatusLogRepository
}

// NewOrderRepository возвращает in-memory репозиторий. statusLog может быть
// nil — тогда начальные записи журнала не пишутся.
func NewOrderRepository(statusLog domain.StatusLogRepository) domain.OrderRepository {
	return &orderRepositoryInMemory{
		items:     make(map[string]domain.Order),
		receipts:  make(map[string][]domain.Receipt),
		statusLog: statusLog,
	}
}

// CreateWithLines сохраняет заказ вместе с позициями и начальной записью журнала.
func (r *orderRepositoryInMemory) CreateWithLines(order domain.Order, initialLog domain.StatusLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[order.ID]; exists {
		return domain.ErrOrderIDRequired
	}
	// Сохраняем копию без денормализованных имён: имя не хранится,
	// оно подставляется из каталога при чтении.
	stored := order
	stored.Lines = make([]domain.OrderLine, len(order.Lines))
	for i, line := range order.Lines {
		line.Name = ""
		stored.Lines[i] = line
	}
	r.items[order.ID] = stored

	if r.statusLog != nil {
		if err := r.statusLog.Append(initialLog); err != nil {
			delete(r.items, order.ID)
			return err
		}
	}
	return nil
}

// FindPage возвращает страницу заказов без позиций.
func (r *orderRepositoryInMemory) FindPage(page domain.Page) ([]domain.Order, domain.PageMeta, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]domain.Order, 0, len(r.items))
	for _, order := range r.items {
		if page.Status != "" && order.Status != page.Status {
			continue
		}
		order.Lines = nil
		matched = append(matched, order)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	meta := domain.PageMeta{
		Total:    total,
		Page:     page.Page,
		LastPage: (total + page.Limit - 1) / page.Limit,
	}

	offset := (page.Page - 1) * page.Limit
	if offset >= total {
		return []domain.Order{}, meta, nil
	}
	end := offset + page.Limit
	if end > total {
		end = total
	}
	return matched[offset:end], meta, nil
}

// FindByIDWithLines возвращает заказ с позициями или ErrOrderNotFound.
func (r *orderRepositoryInMemory) FindByIDWithLines(id string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	lines := make([]domain.OrderLine, len(order.Lines))
	copy(lines, order.Lines)
	order.Lines = lines
	return order, nil
}

// UpdateStatus меняет статус и возвращает обновлённый заказ с предыдущим статусом.
func (r *orderRepositoryInMemory) UpdateStatus(id string, status domain.OrderStatus) (domain.Order, domain.OrderStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, "", domain.ErrOrderNotFound
	}

	previous := order.Status
	order.Status = status
	order.UpdatedAt = time.Now().UTC()
	r.items[id] = order
	return order, previous, nil
}

// MarkPaid атомарно проставляет отметки оплаты и сохраняет чек.
// Повторное событие с другим chargeId перезаписывает отметку: идемпотентность
// не обеспечивается.
func (r *orderRepositoryInMemory) MarkPaid(confirmation domain.PaidConfirmation) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.items[confirmation.OrderID]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}

	now := time.Now().UTC()
	order.Paid = true
	order.PaidAt = &now
	order.PaymentChargeID = confirmation.PaymentChargeID
	order.UpdatedAt = now
	r.items[confirmation.OrderID] = order

	r.receipts[confirmation.OrderID] = append(r.receipts[confirmation.OrderID], domain.Receipt{
		OrderID:    confirmation.OrderID,
		ChargeID:   confirmation.PaymentChargeID,
		ReceiptURL: confirmation.ReceiptURL,
		CreatedAt:  now,
	})

	return order, nil
}

// Receipts возвращает чеки заказа (для проверок в тестах).
func Receipts(repo domain.OrderRepository, orderID string) []domain.Receipt {
	inMemory, ok := repo.(*orderRepositoryInMemory)
	if !ok {
		return nil
	}
	inMemory.mu.RLock()
	defer inMemory.mu.RUnlock()

	receipts := make([]domain.Receipt, len(inMemory.receipts[orderID]))
	copy(receipts, inMemory.receipts[orderID])
	return receipts
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
