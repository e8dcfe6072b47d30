package domain

import "time"

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusCreated — заказ только что создан, дальнейшая обработка не начата.
	OrderStatusCreated OrderStatus = "CREATED"
	// OrderStatusPending — заказ ожидает оплаты.
	OrderStatusPending OrderStatus = "PENDING"
	// OrderStatusPaid — оплата подтверждена платёжным сервисом.
	OrderStatusPaid OrderStatus = "PAID"
	// OrderStatusDelivered — заказ передан клиенту.
	OrderStatusDelivered OrderStatus = "DELIVERED"
	// OrderStatusCancelled — заказ отменён.
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// OrderStatuses — закрытое множество допустимых статусов. Переходы между
// статусами намеренно не ограничиваются: множество — данные, а не логика.
var OrderStatuses = []OrderStatus{
	OrderStatusCreated,
	OrderStatusPending,
	OrderStatusPaid,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// IsValid сообщает, входит ли статус в закрытое множество.
func (s OrderStatus) IsValid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// ChangedBySystem — идентификатор актора для переходов, инициированных самим сервисом.
const ChangedBySystem = "consumer"

// OrderLine представляет одну позицию заказа. Цена и имя — снимки на момент
// создания, дальнейшие изменения каталога их не затрагивают.
type OrderLine struct {
	// ProductID — внешний идентификатор товара в каталоге.
	ProductID string
	// Quantity — количество единиц товара.
	Quantity int32
	// PriceMinor — цена за единицу в минимальных денежных единицах.
	PriceMinor int64
	// Name — денормализованное имя товара; репозиторий его не хранит,
	// оно подставляется из каталога при отдаче наружу.
	Name string
}

// Order агрегирует состояние заказа, его позиции и платёжные отметки.
type Order struct {
	ID               string
	TotalAmountMinor int64
	TotalItems       int32
	Status           OrderStatus
	Paid             bool
	PaidAt           *time.Time
	PaymentChargeID  string
	Lines            []OrderLine
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Totals считает агрегаты заказа по позициям: сумма qty*price и сумма qty.
// Вызывается ровно один раз при создании заказа и далее не пересчитывается.
func Totals(lines []OrderLine) (amountMinor int64, items int32) {
	for _, line := range lines {
		amountMinor += int64(line.Quantity) * line.PriceMinor
		items += line.Quantity
	}
	return amountMinor, items
}

// ValidateLines проверяет инварианты позиций перед созданием заказа.
func (o *Order) ValidateLines() []error {
	var errs []error

	if len(o.Lines) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	for _, line := range o.Lines {
		if line.ProductID == "" {
			errs = append(errs, ErrProductIDRequired)
		}
		if line.Quantity <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if line.PriceMinor < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
	}

	return errs
}

// StatusLogEntry — append-only запись аудита смены статуса.
type StatusLogEntry struct {
	OrderID string
	// PreviousStatus отсутствует для записи о создании заказа.
	PreviousStatus *OrderStatus
	NewStatus      OrderStatus
	ChangedBy      string
	Occurred       time.Time
}

// Receipt фиксирует подтверждение оплаты, пришедшее от платёжного сервиса.
type Receipt struct {
	OrderID    string
	ChargeID   string
	ReceiptURL string
	CreatedAt  time.Time
}

// Product — read-only представление товара из удалённого каталога.
// Локально не персистится, кроме снимка цены в позиции заказа.
type Product struct {
	ID         string
	Name       string
	PriceMinor int64
}

// PaymentSession — ссылка на сессию оплаты, созданную платёжным сервисом.
type PaymentSession struct {
	ID         string
	URL        string
	SuccessURL string
	CancelURL  string
}

// PaidConfirmation — payload асинхронного события об успешной оплате.
type PaidConfirmation struct {
	OrderID         string
	PaymentChargeID string
	ReceiptURL      string
}

// Page описывает запрос страницы заказов.
type Page struct {
	Page  int
	Limit int
	// Status фильтрует выборку; пустое значение означает "все статусы".
	Status OrderStatus
}

// PageMeta — метаданные страницы для ответа findAll.
type PageMeta struct {
	Total    int
	Page     int
	LastPage int
}
