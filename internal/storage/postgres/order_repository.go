package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/orders-ms/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

// CreateWithLines вставляет заказ, его позиции и начальную запись журнала
// статусов в одной транзакции: либо видно всё, либо ничего.
func (r *orderRepository) CreateWithLines(order domain.Order, initialLog domain.StatusLogEntry) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, total_amount_minor, total_items, status, paid, payment_charge_id, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		order.ID, order.TotalAmountMinor, order.TotalItems, string(order.Status),
		order.Paid, order.PaymentChargeID, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("order %s already exists: %w", order.ID, err)
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for _, line := range order.Lines {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, price_minor)
			VALUES ($1,$2,$3,$4)
		`,
			order.ID, line.ProductID, line.Quantity, line.PriceMinor,
		); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO order_status_log (order_id, previous_status, new_status, changed_by, occurred)
		VALUES ($1,$2,$3,$4,$5)
	`,
		initialLog.OrderID, statusPtrToNull(initialLog.PreviousStatus),
		string(initialLog.NewStatus), initialLog.ChangedBy, initialLog.Occurred,
	); err != nil {
		return fmt.Errorf("insert initial status log: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create order: %w", err)
	}

	return nil
}

// FindPage возвращает страницу заказов без позиций вместе с метаданными.
func (r *orderRepository) FindPage(page domain.Page) ([]domain.Order, domain.PageMeta, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var (
		total int
		err   error
	)
	if page.Status != "" {
		err = r.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM orders WHERE status = $1`, string(page.Status),
		).Scan(&total)
	} else {
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total)
	}
	if err != nil {
		return nil, domain.PageMeta{}, fmt.Errorf("count orders: %w", err)
	}

	meta := domain.PageMeta{
		Total:    total,
		Page:     page.Page,
		LastPage: (total + page.Limit - 1) / page.Limit,
	}

	offset := (page.Page - 1) * page.Limit

	query := `
		SELECT id, total_amount_minor, total_items, status, paid, paid_at, payment_charge_id, created_at, updated_at
		FROM orders
	`
	var rows *sql.Rows
	if page.Status != "" {
		rows, err = r.db.QueryContext(ctx, query+`
			WHERE status = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2 OFFSET $3
		`, string(page.Status), page.Limit, offset)
	} else {
		rows, err = r.db.QueryContext(ctx, query+`
			ORDER BY created_at DESC, id DESC
			LIMIT $1 OFFSET $2
		`, page.Limit, offset)
	}
	if err != nil {
		return nil, domain.PageMeta{}, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0, page.Limit)
	for rows.Next() {
		order, scanErr := scanOrder(rows)
		if scanErr != nil {
			return nil, domain.PageMeta{}, scanErr
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.PageMeta{}, fmt.Errorf("iterate order rows: %w", err)
	}

	return orders, meta, nil
}

// FindByIDWithLines возвращает заказ вместе с позициями.
func (r *orderRepository) FindByIDWithLines(id string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	order, err := r.selectOrder(ctx, r.db.QueryRowContext(ctx, `
		SELECT id, total_amount_minor, total_items, status, paid, paid_at, payment_charge_id, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, id))
	if err != nil {
		return domain.Order{}, err
	}

	lines, err := r.loadLines(ctx, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Lines = lines

	return order, nil
}

// UpdateStatus меняет статус заказа и возвращает обновлённый заказ вместе
// с предыдущим статусом. Строка блокируется на время транзакции, чтобы
// предыдущий статус соответствовал именно этой смене.
func (r *orderRepository) UpdateStatus(id string, status domain.OrderStatus) (domain.Order, domain.OrderStatus, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Order{}, "", fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var order domain.Order
	order, err = r.selectOrder(ctx, tx.QueryRowContext(ctx, `
		SELECT id, total_amount_minor, total_items, status, paid, paid_at, payment_charge_id, created_at, updated_at
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`, id))
	if err != nil {
		return domain.Order{}, "", err
	}

	previous := order.Status
	now := time.Now().UTC()

	if _, err = tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $1,
		    updated_at = $2
		WHERE id = $3
	`, string(status), now, id); err != nil {
		return domain.Order{}, "", fmt.Errorf("update order status: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return domain.Order{}, "", fmt.Errorf("commit update status: %w", err)
	}

	order.Status = status
	order.UpdatedAt = now

	return order, previous, nil
}

// MarkPaid проставляет отметки оплаты и сохраняет чек в одной транзакции.
// Повторное подтверждение перезаписывает charge id без проверки.
func (r *orderRepository) MarkPaid(confirmation domain.PaidConfirmation) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Order{}, fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()

	var res sql.Result
	res, err = tx.ExecContext(ctx, `
		UPDATE orders
		SET paid = TRUE,
		    paid_at = $1,
		    payment_charge_id = $2,
		    updated_at = $1
		WHERE id = $3
	`, now, confirmation.PaymentChargeID, confirmation.OrderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("mark order paid: %w", err)
	}

	var affected int64
	affected, err = res.RowsAffected()
	if err != nil {
		return domain.Order{}, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		err = domain.ErrOrderNotFound
		return domain.Order{}, err
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO order_receipts (order_id, charge_id, receipt_url, created_at)
		VALUES ($1,$2,$3,$4)
	`, confirmation.OrderID, confirmation.PaymentChargeID, confirmation.ReceiptURL, now); err != nil {
		return domain.Order{}, fmt.Errorf("insert receipt: %w", err)
	}

	var order domain.Order
	order, err = r.selectOrder(ctx, tx.QueryRowContext(ctx, `
		SELECT id, total_amount_minor, total_items, status, paid, paid_at, payment_charge_id, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, confirmation.OrderID))
	if err != nil {
		return domain.Order{}, err
	}

	if err = tx.Commit(); err != nil {
		return domain.Order{}, fmt.Errorf("commit mark paid: %w", err)
	}

	return order, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *orderRepository) selectOrder(_ context.Context, row rowScanner) (domain.Order, error) {
	var (
		order  domain.Order
		status string
		paidAt sql.NullTime
	)
	err := row.Scan(
		&order.ID, &order.TotalAmountMinor, &order.TotalItems, &status,
		&order.Paid, &paidAt, &order.PaymentChargeID, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}
	order.Status = domain.OrderStatus(status)
	if paidAt.Valid {
		t := paidAt.Time
		order.PaidAt = &t
	}
	return order, nil
}

func scanOrder(rows *sql.Rows) (domain.Order, error) {
	var (
		order  domain.Order
		status string
		paidAt sql.NullTime
	)
	if err := rows.Scan(
		&order.ID, &order.TotalAmountMinor, &order.TotalItems, &status,
		&order.Paid, &paidAt, &order.PaymentChargeID, &order.CreatedAt, &order.UpdatedAt,
	); err != nil {
		return domain.Order{}, fmt.Errorf("scan order row: %w", err)
	}
	order.Status = domain.OrderStatus(status)
	if paidAt.Valid {
		t := paidAt.Time
		order.PaidAt = &t
	}
	return order, nil
}

func (r *orderRepository) loadLines(ctx context.Context, orderID string) ([]domain.OrderLine, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, quantity, price_minor
		FROM order_items
		WHERE order_id = $1
		ORDER BY id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	lines := make([]domain.OrderLine, 0)
	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(&line.ProductID, &line.Quantity, &line.PriceMinor); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return lines, nil
}

func statusPtrToNull(status *domain.OrderStatus) sql.NullString {
	if status == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*status), Valid: true}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.OrderRepository = (*orderRepository)(nil)
