package domain

import "context"

// ProductService описывает взаимодействие с удалённым каталогом товаров.
type ProductService interface {
	// Validate подтверждает существование товаров и возвращает их актуальные
	// имя и цену. Отсутствие товара в ответе каталога — бизнес-ошибка на
	// стороне вызывающего; сам клиент запрос не повторяет.
	Validate(ctx context.Context, ids []string) ([]Product, error)
}

// PaymentService описывает взаимодействие с платёжным сервисом.
type PaymentService interface {
	// CreateSession создаёт сессию оплаты по уже сохранённому заказу.
	// Ошибка сессии не откатывает заказ — компенсаций нет.
	CreateSession(ctx context.Context, order Order) (PaymentSession, error)
}

// StatusLogRepository хранит журнал смены статусов заказа.
type StatusLogRepository interface {
	// Append добавляет запись; вызовы после создания заказа — best-effort,
	// вне транзакции основного обновления.
	Append(entry StatusLogEntry) error
	List(orderID string) ([]StatusLogEntry, error)
}
