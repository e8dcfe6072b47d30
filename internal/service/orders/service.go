// Пакет orders реализует workflow заказов: создание с проверкой товаров по
// каталогу, выборки, смену статуса и обработку подтверждения оплаты.
package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders-ms/internal/apperr"
	"github.com/vladislavdragonenkov/orders-ms/internal/domain"
	"github.com/vladislavdragonenkov/orders-ms/internal/metrics"
)

// CreateItem — одна позиция запроса на создание заказа.
type CreateItem struct {
	ProductID string
	Quantity  int32
}

// FindAllResult — страница заказов с метаданными пагинации.
type FindAllResult struct {
	Data []domain.Order
	Meta domain.PageMeta
}

// Service — оркестратор заказов. Держит явные ссылки на репозиторий, журнал
// статусов и клиентов удалённых сервисов; вся координация — здесь.
type Service struct {
	orders    domain.OrderRepository
	statusLog domain.StatusLogRepository
	products  domain.ProductService
	payments  domain.PaymentService
	logger    *log.Entry
	metrics   *metrics.OrderMetrics
}

// NewService конструирует сервис с зависимостями.
func NewService(
	orders domain.OrderRepository,
	statusLog domain.StatusLogRepository,
	products domain.ProductService,
	payments domain.PaymentService,
	logger *log.Entry,
) *Service {
	svc := NewServiceWithoutMetrics(orders, statusLog, products, payments, logger)
	svc.metrics = metrics.NewOrderMetrics()
	return svc
}

// NewServiceWithoutMetrics создаёт сервис без метрик (для тестов).
func NewServiceWithoutMetrics(
	orders domain.OrderRepository,
	statusLog domain.StatusLogRepository,
	products domain.ProductService,
	payments domain.PaymentService,
	logger *log.Entry,
) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "orders-service")
	}
	return &Service{
		orders:    orders,
		statusLog: statusLog,
		products:  products,
		payments:  payments,
		logger:    logger,
	}
}

// Create создаёт заказ: подтверждает товары по каталогу, снимает цену и имя
// в позиции, считает агрегаты и атомарно сохраняет заказ вместе с позициями
// и начальной записью журнала статусов.
func (s *Service) Create(ctx context.Context, items []CreateItem) (domain.Order, error) {
	started := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationDuration("create", time.Since(started))
		}
	}()

	if len(items) == 0 {
		return domain.Order{}, &apperr.ValidationError{Messages: []string{domain.ErrItemsRequired.Error()}}
	}

	ids := distinctProductIDs(items)
	products, err := s.products.Validate(ctx, ids)
	if err != nil {
		s.recordCreateFailed(err)
		return domain.Order{}, fmt.Errorf("validate products: %w", err)
	}

	byID := make(map[string]domain.Product, len(products))
	for _, product := range products {
		byID[product.ID] = product
	}

	now := time.Now().UTC()
	lines := make([]domain.OrderLine, 0, len(items))
	for _, item := range items {
		product, ok := byID[item.ProductID]
		if !ok {
			// Бизнес-ошибка, а не ошибка транспорта: каталог ответил,
			// но товара в ответе нет.
			appErr := apperr.Unprocessable(fmt.Sprintf("product not found: %s", item.ProductID))
			s.recordCreateFailed(appErr)
			return domain.Order{}, appErr
		}
		lines = append(lines, domain.OrderLine{
			ProductID:  product.ID,
			Quantity:   item.Quantity,
			PriceMinor: product.PriceMinor,
			Name:       product.Name,
		})
	}

	amountMinor, totalItems := domain.Totals(lines)
	order := domain.Order{
		ID:               uuid.NewString(),
		TotalAmountMinor: amountMinor,
		TotalItems:       totalItems,
		Status:           domain.OrderStatusCreated,
		Lines:            lines,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if errs := order.ValidateLines(); len(errs) > 0 {
		messages := make([]string, 0, len(errs))
		for _, e := range errs {
			messages = append(messages, e.Error())
		}
		return domain.Order{}, &apperr.ValidationError{Messages: messages}
	}

	initialLog := domain.StatusLogEntry{
		OrderID:   order.ID,
		NewStatus: domain.OrderStatusCreated,
		ChangedBy: domain.ChangedBySystem,
		Occurred:  now,
	}
	if err := s.orders.CreateWithLines(order, initialLog); err != nil {
		s.logger.WithError(err).Error("failed to persist order")
		s.recordCreateFailed(err)
		return domain.Order{}, fmt.Errorf("persist order: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordOrderCreated()
	}
	s.logger.WithFields(log.Fields{
		"order_id":    order.ID,
		"total_items": order.TotalItems,
	}).Info("order created")

	return order, nil
}

// CreatePaymentSession открывает сессию оплаты по уже сохранённому заказу.
// Вызывается после успешного Create вне его транзакции: неудача сессии не
// откатывает заказ и не компенсируется.
func (s *Service) CreatePaymentSession(ctx context.Context, order domain.Order) (domain.PaymentSession, error) {
	session, err := s.payments.CreateSession(ctx, order)
	if err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Error("failed to create payment session")
		return domain.PaymentSession{}, fmt.Errorf("create payment session: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordPaymentSession()
	}
	return session, nil
}

// FindAll возвращает страницу заказов без позиций.
func (s *Service) FindAll(_ context.Context, page domain.Page) (FindAllResult, error) {
	if page.Page <= 0 || page.Limit <= 0 {
		return FindAllResult{}, &apperr.ValidationError{Messages: []string{"page and limit must be positive integers"}}
	}
	if page.Status != "" && !page.Status.IsValid() {
		return FindAllResult{}, &apperr.ValidationError{Messages: []string{domain.ErrStatusInvalid.Error()}}
	}

	data, meta, err := s.orders.FindPage(page)
	if err != nil {
		s.logger.WithError(err).Error("failed to list orders")
		return FindAllResult{}, fmt.Errorf("list orders: %w", err)
	}
	return FindAllResult{Data: data, Meta: meta}, nil
}

// FindOne возвращает заказ с позициями, подтягивая актуальные имена товаров
// из каталога. Цена не обновляется — только снимок из хранилища. Если каталог
// недоступен, падает вся выборка: деградированный ответ без имён не отдаётся.
func (s *Service) FindOne(ctx context.Context, id string) (domain.Order, error) {
	order, err := s.orders.FindByIDWithLines(id)
	if err != nil {
		if domain.IsNotFound(err) {
			return domain.Order{}, apperr.NotFound(fmt.Sprintf("order with id '%s' not found", id))
		}
		return domain.Order{}, fmt.Errorf("find order: %w", err)
	}

	ids := make([]string, 0, len(order.Lines))
	for _, line := range order.Lines {
		ids = append(ids, line.ProductID)
	}

	products, err := s.products.Validate(ctx, ids)
	if err != nil {
		return domain.Order{}, fmt.Errorf("validate products: %w", err)
	}

	names := make(map[string]string, len(products))
	for _, product := range products {
		names[product.ID] = product.Name
	}
	for i := range order.Lines {
		order.Lines[i].Name = names[order.Lines[i].ProductID]
	}

	return order, nil
}

// ChangeStatus меняет статус заказа на любой из закрытого множества.
// Легальность перехода из текущего статуса намеренно не проверяется.
func (s *Service) ChangeStatus(_ context.Context, id string, status domain.OrderStatus) (domain.Order, error) {
	if id == "" {
		return domain.Order{}, &apperr.ValidationError{Messages: []string{domain.ErrOrderIDRequired.Error()}}
	}
	if !status.IsValid() {
		return domain.Order{}, &apperr.ValidationError{Messages: []string{domain.ErrStatusInvalid.Error()}}
	}

	order, previous, err := s.orders.UpdateStatus(id, status)
	if err != nil {
		// Хранилище не различает "записи нет" и прочие ошибки обновления:
		// наружу уходит единый not found.
		s.logger.WithError(err).WithField("order_id", id).Warn("failed to update order status")
		return domain.Order{}, apperr.NotFound(fmt.Sprintf("order with id '%s' not found", id))
	}

	// Запись журнала — best-effort, вне транзакции обновления.
	s.appendStatusLog(order.ID, &previous, status)

	if s.metrics != nil {
		s.metrics.RecordStatusChange(string(status))
	}
	return order, nil
}

// MarkPaid обрабатывает асинхронное подтверждение оплаты: атомарно проставляет
// отметки оплаты и создаёт чек. Ответа у события нет, поэтому ошибка уходит
// вызывающему только для логирования.
func (s *Service) MarkPaid(_ context.Context, confirmation domain.PaidConfirmation) error {
	order, err := s.orders.MarkPaid(confirmation)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordPaidEventFailed()
		}
		return fmt.Errorf("mark order paid: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordPaidEvent()
	}
	s.logger.WithFields(log.Fields{
		"order_id":  order.ID,
		"charge_id": confirmation.PaymentChargeID,
	}).Info("order marked as paid")

	return nil
}

// StatusLog возвращает журнал смены статусов заказа.
func (s *Service) StatusLog(_ context.Context, orderID string) ([]domain.StatusLogEntry, error) {
	if s.statusLog == nil {
		return nil, nil
	}
	return s.statusLog.List(orderID)
}

func (s *Service) appendStatusLog(orderID string, previous *domain.OrderStatus, status domain.OrderStatus) {
	if s.statusLog == nil {
		return
	}
	entry := domain.StatusLogEntry{
		OrderID:        orderID,
		PreviousStatus: previous,
		NewStatus:      status,
		ChangedBy:      domain.ChangedBySystem,
		Occurred:       time.Now().UTC(),
	}
	if err := s.statusLog.Append(entry); err != nil {
		// Известный зазор консистентности: переход без записи журнала.
		s.logger.WithError(err).WithField("order_id", orderID).Warn("failed to append status log entry")
	}
}

func (s *Service) recordCreateFailed(err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordCreateFailed(apperr.Normalize(err, "OrdersService").Code)
}

func distinctProductIDs(items []CreateItem) []string {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}
