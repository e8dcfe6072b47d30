package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders-ms/internal/domain"
	"github.com/vladislavdragonenkov/orders-ms/internal/service/catalog"
	"github.com/vladislavdragonenkov/orders-ms/internal/service/payment"
	"github.com/vladislavdragonenkov/orders-ms/internal/storage/memory"
)

type handlerFixture struct {
	handler *Handler
	service *serviceFixture
}

func newHandlerFixture(products ...domain.Product) *handlerFixture {
	baseLogger := log.New()
	baseLogger.SetLevel(log.WarnLevel)
	logger := baseLogger.WithField("component", "orders-handler-test")

	statusLog := memory.NewStatusLogRepository()
	orderRepo := memory.NewOrderRepository(statusLog)
	catalogSvc := catalog.NewMockService(products...)
	paymentSvc := payment.NewMockService()
	svc := NewServiceWithoutMetrics(orderRepo, statusLog, catalogSvc, paymentSvc, logger)

	handler := NewHandler(svc)
	handler.logger = logger

	return &handlerFixture{
		handler: handler,
		service: &serviceFixture{
			svc:       svc,
			orders:    orderRepo,
			statusLog: statusLog,
			catalog:   catalogSvc,
			payment:   paymentSvc,
		},
	}
}

func TestCreateOrderReturnsOrderAndSession(t *testing.T) {
	f := newHandlerFixture(defaultProducts()...)

	payload := []byte(`{"items":[{"productId":"` + defaultProducts()[0].ID + `","quantity":2}]}`)
	result, appErr := f.handler.CreateOrder(context.Background(), payload)
	if appErr != nil {
		t.Fatalf("CreateOrder failed: %+v", appErr)
	}

	response, ok := result.(createOrderResponse)
	if !ok {
		t.Fatalf("unexpected result type %T", result)
	}
	if response.Order.TotalAmount != 10 || response.Order.TotalItems != 2 {
		t.Errorf("unexpected totals: %+v", response.Order)
	}
	if response.Order.Status != string(domain.OrderStatusCreated) {
		t.Errorf("unexpected status: %s", response.Order.Status)
	}
	if len(response.Order.Items) != 1 || response.Order.Items[0].Name != "Widget" {
		t.Errorf("unexpected items: %+v", response.Order.Items)
	}
	if response.PaymentSession.URL != "https://payments.local/session/sess-mock" {
		t.Errorf("unexpected session url: %s", response.PaymentSession.URL)
	}
}

func TestCreateOrderValidationIs400WithDetails(t *testing.T) {
	f := newHandlerFixture()

	cases := []struct {
		name    string
		payload string
	}{
		{"empty items", `{"items":[]}`},
		{"missing product id", `{"items":[{"quantity":1}]}`},
		{"zero quantity", `{"items":[{"productId":"p-1","quantity":0}]}`},
		{"broken json", `{"items":`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, appErr := f.handler.CreateOrder(context.Background(), []byte(tc.payload))
			if appErr == nil {
				t.Fatal("expected validation error")
			}
			if appErr.StatusCode != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", appErr.StatusCode)
			}
			details, ok := appErr.Details.([]string)
			if !ok || len(details) == 0 {
				t.Error("validation error must carry details")
			}
		})
	}
	if f.service.catalog.ValidateCalls != 0 {
		t.Error("catalog must not be called on validation failure")
	}
}

func TestCreateOrderValidationDetailsNameRule(t *testing.T) {
	f := newHandlerFixture()

	_, appErr := f.handler.CreateOrder(context.Background(), []byte(`{"items":[{"productId":"p-1","quantity":-1}]}`))
	if appErr == nil {
		t.Fatal("expected validation error")
	}
	details, ok := appErr.Details.([]string)
	if !ok || len(details) != 1 || !strings.Contains(details[0], "'gt' rule") {
		t.Errorf("details must name the failed rule: %v", appErr.Details)
	}
}

func TestFindAllOrdersAppliesDefaults(t *testing.T) {
	f := newHandlerFixture()

	result, appErr := f.handler.FindAllOrders(context.Background(), []byte(`{}`))
	if appErr != nil {
		t.Fatalf("FindAllOrders failed: %+v", appErr)
	}

	response, ok := result.(findAllResponse)
	if !ok {
		t.Fatalf("unexpected result type %T", result)
	}
	if response.Meta.Page != defaultPage {
		t.Errorf("expected default page %d, got %d", defaultPage, response.Meta.Page)
	}
	if response.Data == nil {
		t.Error("data must serialize as an empty array, not null")
	}
}

func TestFindAllOrdersInvalidStatus(t *testing.T) {
	f := newHandlerFixture()

	_, appErr := f.handler.FindAllOrders(context.Background(), []byte(`{"status":"SHIPPED"}`))
	if appErr == nil {
		t.Fatal("expected validation error")
	}
	if appErr.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", appErr.StatusCode)
	}
}

func TestFindOneOrderRequiresUUID(t *testing.T) {
	f := newHandlerFixture()

	_, appErr := f.handler.FindOneOrder(context.Background(), []byte(`{"id":"not-a-uuid"}`))
	if appErr == nil {
		t.Fatal("expected validation error")
	}
	if appErr.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", appErr.StatusCode)
	}
}

func TestFindOneOrderNotFound(t *testing.T) {
	f := newHandlerFixture()

	_, appErr := f.handler.FindOneOrder(context.Background(), []byte(`{"id":"7f8d6a3e-5b1c-4e9f-8a2d-1c3b5e7f9a0b"}`))
	if appErr == nil {
		t.Fatal("expected not found error")
	}
	if appErr.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", appErr.StatusCode)
	}
}

func TestChangeOrderStatusHappyPath(t *testing.T) {
	f := newHandlerFixture(defaultProducts()...)
	ctx := context.Background()

	created, err := f.service.svc.Create(ctx, []CreateItem{{ProductID: defaultProducts()[0].ID, Quantity: 1}})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	payload := []byte(`{"id":"` + created.ID + `","status":"CANCELLED"}`)
	result, appErr := f.handler.ChangeOrderStatus(ctx, payload)
	if appErr != nil {
		t.Fatalf("ChangeOrderStatus failed: %+v", appErr)
	}

	response, ok := result.(orderPayload)
	if !ok {
		t.Fatalf("unexpected result type %T", result)
	}
	if response.Status != string(domain.OrderStatusCancelled) {
		t.Errorf("expected CANCELLED, got %s", response.Status)
	}
	if len(response.Items) != 0 {
		t.Error("change-status response must not include items")
	}
}

func TestChangeOrderStatusRequiresUUID(t *testing.T) {
	f := newHandlerFixture()

	_, appErr := f.handler.ChangeOrderStatus(context.Background(), []byte(`{"id":"42","status":"PAID"}`))
	if appErr == nil {
		t.Fatal("expected validation error")
	}
	if appErr.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", appErr.StatusCode)
	}
}

func TestPaymentSucceededMarksOrderPaid(t *testing.T) {
	f := newHandlerFixture(defaultProducts()...)
	ctx := context.Background()

	created, err := f.service.svc.Create(ctx, []CreateItem{{ProductID: defaultProducts()[0].ID, Quantity: 1}})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	payload := []byte(`{"orderId":"` + created.ID + `","paymentChargeId":"ch-77","receiptUrl":"https://receipts.local/77"}`)
	if err := f.handler.PaymentSucceeded(ctx, payload); err != nil {
		t.Fatalf("PaymentSucceeded failed: %v", err)
	}

	found, err := f.service.orders.FindByIDWithLines(created.ID)
	if err != nil {
		t.Fatalf("FindByIDWithLines failed: %v", err)
	}
	if !found.Paid || found.PaymentChargeID != "ch-77" {
		t.Errorf("order must carry payment marks: %+v", found)
	}
}

func TestPaymentSucceededInvalidPayloadIsTerminal(t *testing.T) {
	f := newHandlerFixture()

	if err := f.handler.PaymentSucceeded(context.Background(), []byte(`{"orderId":"42"}`)); err == nil {
		t.Fatal("expected error for invalid event payload")
	}
}

func TestOrderPayloadFieldNames(t *testing.T) {
	f := newHandlerFixture(defaultProducts()...)
	ctx := context.Background()

	created, err := f.service.svc.Create(ctx, []CreateItem{{ProductID: defaultProducts()[0].ID, Quantity: 1}})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	raw, err := json.Marshal(toOrderPayload(created, true))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	for _, field := range []string{`"totalAmount"`, `"totalItems"`, `"createdAt"`, `"items"`, `"productId"`} {
		if !strings.Contains(string(raw), field) {
			t.Errorf("payload must contain %s: %s", field, raw)
		}
	}
	// Пустые отметки оплаты не сериализуются.
	if strings.Contains(string(raw), "paymentChargeId") {
		t.Errorf("unpaid order must omit charge id: %s", raw)
	}
}
