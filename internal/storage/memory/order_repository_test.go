package memory

import (
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/orders-ms/internal/domain"
)

func newTestOrder(id string, status domain.OrderStatus, createdAt time.Time) domain.Order {
	return domain.Order{
		ID:               id,
		TotalAmountMinor: 2500,
		TotalItems:       3,
		Status:           status,
		Lines: []domain.OrderLine{
			{ProductID: "p-1", Quantity: 2, PriceMinor: 500, Name: "Widget"},
			{ProductID: "p-2", Quantity: 1, PriceMinor: 1500, Name: "Gadget"},
		},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func initialLogFor(order domain.Order) domain.StatusLogEntry {
	return domain.StatusLogEntry{
		OrderID:   order.ID,
		NewStatus: order.Status,
		ChangedBy: domain.ChangedBySystem,
		Occurred:  order.CreatedAt,
	}
}

func TestCreateWithLinesWritesInitialLog(t *testing.T) {
	statusLog := NewStatusLogRepository()
	repo := NewOrderRepository(statusLog)

	order := newTestOrder("o-1", domain.OrderStatusCreated, time.Now().UTC())
	if err := repo.CreateWithLines(order, initialLogFor(order)); err != nil {
		t.Fatalf("CreateWithLines failed: %v", err)
	}

	entries, err := statusLog.List("o-1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	if entries[0].PreviousStatus != nil {
		t.Error("initial entry must have no previous status")
	}
	if entries[0].NewStatus != domain.OrderStatusCreated {
		t.Errorf("unexpected new status: %s", entries[0].NewStatus)
	}
	if entries[0].ChangedBy != domain.ChangedBySystem {
		t.Errorf("unexpected actor: %s", entries[0].ChangedBy)
	}
}

func TestFindByIDWithLinesDropsNames(t *testing.T) {
	repo := NewOrderRepository(nil)
	order := newTestOrder("o-1", domain.OrderStatusCreated, time.Now().UTC())
	if err := repo.CreateWithLines(order, initialLogFor(order)); err != nil {
		t.Fatalf("CreateWithLines failed: %v", err)
	}

	found, err := repo.FindByIDWithLines("o-1")
	if err != nil {
		t.Fatalf("FindByIDWithLines failed: %v", err)
	}
	if len(found.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(found.Lines))
	}
	for _, line := range found.Lines {
		// Имя товара не персистится, только снимок цены.
		if line.Name != "" {
			t.Errorf("line name must not be stored, got %q", line.Name)
		}
	}
	if found.Lines[0].PriceMinor != 500 {
		t.Errorf("price snapshot must be kept, got %d", found.Lines[0].PriceMinor)
	}
}

func TestFindByIDWithLinesNotFound(t *testing.T) {
	repo := NewOrderRepository(nil)

	_, err := repo.FindByIDWithLines("missing")
	if !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestFindPagePaginationAndFilter(t *testing.T) {
	repo := NewOrderRepository(nil)
	base := time.Now().UTC()

	for i, status := range []domain.OrderStatus{
		domain.OrderStatusCreated,
		domain.OrderStatusCreated,
		domain.OrderStatusPaid,
		domain.OrderStatusCreated,
		domain.OrderStatusCancelled,
	} {
		order := newTestOrder(string(rune('a'+i)), status, base.Add(time.Duration(i)*time.Minute))
		if err := repo.CreateWithLines(order, initialLogFor(order)); err != nil {
			t.Fatalf("CreateWithLines failed: %v", err)
		}
	}

	result, meta, err := repo.FindPage(domain.Page{Page: 1, Limit: 2})
	if err != nil {
		t.Fatalf("FindPage failed: %v", err)
	}
	if meta.Total != 5 || meta.Page != 1 || meta.LastPage != 3 {
		t.Errorf("unexpected meta: %+v", meta)
	}
	if len(result) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(result))
	}
	// Новые заказы первыми.
	if result[0].CreatedAt.Before(result[1].CreatedAt) {
		t.Error("orders must be sorted newest first")
	}
	for _, order := range result {
		if order.Lines != nil {
			t.Error("page items must not include lines")
		}
	}

	filtered, meta, err := repo.FindPage(domain.Page{Page: 1, Limit: 10, Status: domain.OrderStatusCreated})
	if err != nil {
		t.Fatalf("FindPage with filter failed: %v", err)
	}
	if meta.Total != 3 || meta.LastPage != 1 {
		t.Errorf("unexpected filtered meta: %+v", meta)
	}
	for _, order := range filtered {
		if order.Status != domain.OrderStatusCreated {
			t.Errorf("filter leaked status %s", order.Status)
		}
	}
}

func TestFindPageEmptyResult(t *testing.T) {
	repo := NewOrderRepository(nil)

	result, meta, err := repo.FindPage(domain.Page{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("FindPage failed: %v", err)
	}
	if len(result) != 0 {
		t.Errorf("expected empty result, got %d orders", len(result))
	}
	if meta.Total != 0 || meta.Page != 1 || meta.LastPage != 0 {
		t.Errorf("expected meta {0 1 0}, got %+v", meta)
	}
}

func TestFindPageBeyondLastPage(t *testing.T) {
	repo := NewOrderRepository(nil)
	order := newTestOrder("o-1", domain.OrderStatusCreated, time.Now().UTC())
	if err := repo.CreateWithLines(order, initialLogFor(order)); err != nil {
		t.Fatalf("CreateWithLines failed: %v", err)
	}

	result, meta, err := repo.FindPage(domain.Page{Page: 5, Limit: 10})
	if err != nil {
		t.Fatalf("FindPage failed: %v", err)
	}
	if len(result) != 0 {
		t.Errorf("expected empty slice beyond last page, got %d", len(result))
	}
	if meta.Total != 1 || meta.Page != 5 || meta.LastPage != 1 {
		t.Errorf("unexpected meta: %+v", meta)
	}
}

func TestUpdateStatusReturnsPrevious(t *testing.T) {
	repo := NewOrderRepository(nil)
	order := newTestOrder("o-1", domain.OrderStatusCreated, time.Now().UTC())
	if err := repo.CreateWithLines(order, initialLogFor(order)); err != nil {
		t.Fatalf("CreateWithLines failed: %v", err)
	}

	updated, previous, err := repo.UpdateStatus("o-1", domain.OrderStatusDelivered)
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if previous != domain.OrderStatusCreated {
		t.Errorf("expected previous CREATED, got %s", previous)
	}
	if updated.Status != domain.OrderStatusDelivered {
		t.Errorf("expected DELIVERED, got %s", updated.Status)
	}

	_, _, err = repo.UpdateStatus("missing", domain.OrderStatusPaid)
	if !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestMarkPaidOverwritesOnRepeat(t *testing.T) {
	repo := NewOrderRepository(nil)
	order := newTestOrder("o-1", domain.OrderStatusCreated, time.Now().UTC())
	if err := repo.CreateWithLines(order, initialLogFor(order)); err != nil {
		t.Fatalf("CreateWithLines failed: %v", err)
	}

	first, err := repo.MarkPaid(domain.PaidConfirmation{
		OrderID:         "o-1",
		PaymentChargeID: "ch-1",
		ReceiptURL:      "https://receipts.local/1",
	})
	if err != nil {
		t.Fatalf("MarkPaid failed: %v", err)
	}
	if !first.Paid || first.PaidAt == nil {
		t.Error("order must be marked paid with timestamp")
	}
	if first.PaymentChargeID != "ch-1" {
		t.Errorf("unexpected charge id: %s", first.PaymentChargeID)
	}
	if first.Status != domain.OrderStatusCreated {
		t.Errorf("payment confirmation must not change status, got %s", first.Status)
	}

	// Повторное подтверждение перезаписывает отметку без проверки.
	second, err := repo.MarkPaid(domain.PaidConfirmation{
		OrderID:         "o-1",
		PaymentChargeID: "ch-2",
		ReceiptURL:      "https://receipts.local/2",
	})
	if err != nil {
		t.Fatalf("repeated MarkPaid failed: %v", err)
	}
	if second.PaymentChargeID != "ch-2" {
		t.Errorf("charge id must be overwritten, got %s", second.PaymentChargeID)
	}

	receipts := Receipts(repo, "o-1")
	if len(receipts) != 2 {
		t.Errorf("expected 2 receipts, got %d", len(receipts))
	}
}

func TestMarkPaidUnknownOrder(t *testing.T) {
	repo := NewOrderRepository(nil)

	_, err := repo.MarkPaid(domain.PaidConfirmation{OrderID: "missing", PaymentChargeID: "ch-1"})
	if !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}
