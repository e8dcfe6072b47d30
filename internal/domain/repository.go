package domain

// OrderRepository описывает требования оркестратора к хранилищу заказов.
// Интерфейс — контракт, а не отражение механизма запросов.
type OrderRepository interface {
	// CreateWithLines атомарно сохраняет заказ, его позиции и начальную запись
	// журнала статусов. Любая ошибка откатывает всё: частичный заказ невозможен.
	CreateWithLines(order Order, initialLog StatusLogEntry) error
	// FindPage возвращает страницу заказов без позиций и метаданные пагинации.
	FindPage(page Page) ([]Order, PageMeta, error)
	// FindByIDWithLines возвращает заказ с позициями или ErrOrderNotFound.
	FindByIDWithLines(id string) (Order, error)
	// UpdateStatus меняет статус заказа и возвращает обновлённый заказ вместе
	// с предыдущим статусом; ErrOrderNotFound, если записи нет.
	UpdateStatus(id string, status OrderStatus) (Order, OrderStatus, error)
	// MarkPaid атомарно проставляет отметки оплаты и создаёт запись чека.
	MarkPaid(confirmation PaidConfirmation) (Order, error)
}
