package domain

import "errors"

var (
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrProductNotFound — бизнес-ошибка: каталог не подтвердил запрошенный товар.
	ErrProductNotFound = errors.New("product not found")
	// ErrStatusInvalid — статус вне закрытого множества OrderStatuses.
	ErrStatusInvalid = errors.New("order status is not valid")
	// ErrItemsRequired — заказ должен содержать хотя бы одну позицию.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// ErrItemQtyInvalid — количество в позиции должно быть положительным.
	ErrItemQtyInvalid = errors.New("item quantity must be greater than zero")
	// ErrItemPriceInvalid — цена позиции не может быть отрицательной.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
	// ErrProductIDRequired — позиция без идентификатора товара.
	ErrProductIDRequired = errors.New("product_id is required")
	// ErrOrderIDRequired — операция без идентификатора заказа.
	ErrOrderIDRequired = errors.New("order_id is required")
	// ErrUpstreamUnavailable — удалённый сервис недоступен на уровне транспорта.
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")
)

// IsNotFound проверяет, является ли ошибка отсутствием заказа.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound)
}
