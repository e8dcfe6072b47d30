package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/orders-ms/internal/domain"
)

type statusLogRepository struct {
	db *sql.DB
}

// NewStatusLogRepository создаёт PostgreSQL-реализацию StatusLogRepository.
func NewStatusLogRepository(store *Store) domain.StatusLogRepository {
	return &statusLogRepository{db: store.DB()}
}

func (r *statusLogRepository) Append(entry domain.StatusLogEntry) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if entry.Occurred.IsZero() {
		entry.Occurred = time.Now().UTC()
	}

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO order_status_log (order_id, previous_status, new_status, changed_by, occurred)
		VALUES ($1,$2,$3,$4,$5)
	`, entry.OrderID, statusPtrToNull(entry.PreviousStatus), string(entry.NewStatus), entry.ChangedBy, entry.Occurred); err != nil {
		return fmt.Errorf("append status log entry: %w", err)
	}

	return nil
}

func (r *statusLogRepository) List(orderID string) ([]domain.StatusLogEntry, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT order_id, previous_status, new_status, changed_by, occurred
		FROM order_status_log
		WHERE order_id = $1
		ORDER BY occurred ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list status log entries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.StatusLogEntry, 0)
	for rows.Next() {
		var (
			entry    domain.StatusLogEntry
			previous sql.NullString
			next     string
		)
		if err := rows.Scan(&entry.OrderID, &previous, &next, &entry.ChangedBy, &entry.Occurred); err != nil {
			return nil, fmt.Errorf("scan status log entry: %w", err)
		}
		if previous.Valid {
			status := domain.OrderStatus(previous.String)
			entry.PreviousStatus = &status
		}
		entry.NewStatus = domain.OrderStatus(next)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status log entries: %w", err)
	}

	return entries, nil
}

var _ domain.StatusLogRepository = (*statusLogRepository)(nil)
