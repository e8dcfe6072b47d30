package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders-ms/internal/apperr"
	"github.com/vladislavdragonenkov/orders-ms/internal/domain"
	"github.com/vladislavdragonenkov/orders-ms/internal/messaging/kafka"
)

const handlerContext = "OrdersController"

const (
	defaultPage  = 1
	defaultLimit = 10
)

// Handler привязывает паттерны шины к операциям сервиса: декодирует payload,
// валидирует DTO и нормализует любую ошибку в конверт AppError.
// Это внешняя граница всех входящих сообщений.
type Handler struct {
	svc      *Service
	validate *validator.Validate
	logger   *log.Entry
}

// NewHandler создаёт обработчик входящих сообщений.
func NewHandler(svc *Service) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
		logger:   log.WithField("component", "orders-handler"),
	}
}

// Register подключает все паттерны и события к responder'у.
func (h *Handler) Register(responder *kafka.Responder) {
	responder.HandlePattern(kafka.TopicCreateOrder, h.CreateOrder)
	responder.HandlePattern(kafka.TopicFindAllOrders, h.FindAllOrders)
	responder.HandlePattern(kafka.TopicFindOneOrder, h.FindOneOrder)
	responder.HandlePattern(kafka.TopicChangeOrderStatus, h.ChangeOrderStatus)
	responder.HandleEvent(kafka.TopicPaymentSucceeded, h.PaymentSucceeded)
}

// createOrderItem — позиция входящего запроса createOrder.
type createOrderItem struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int32  `json:"quantity" validate:"required,gt=0"`
}

// createOrderRequest — payload паттерна createOrder.
type createOrderRequest struct {
	Items []createOrderItem `json:"items" validate:"required,min=1,dive"`
}

// paginationRequest — payload паттерна findAllOrders.
type paginationRequest struct {
	Page   int    `json:"page" validate:"omitempty,gt=0"`
	Limit  int    `json:"limit" validate:"omitempty,gt=0"`
	Status string `json:"status" validate:"omitempty"`
}

// findOneRequest — payload паттерна findOneOrder.
type findOneRequest struct {
	ID string `json:"id" validate:"required,uuid4"`
}

// changeStatusRequest — payload паттерна changeOrderStatus.
type changeStatusRequest struct {
	ID     string `json:"id" validate:"required,uuid4"`
	Status string `json:"status" validate:"required"`
}

// paidOrderEvent — payload события payment.succeeded.
type paidOrderEvent struct {
	PaymentChargeID string `json:"paymentChargeId" validate:"required"`
	OrderID         string `json:"orderId" validate:"required,uuid4"`
	ReceiptURL      string `json:"receiptUrl" validate:"required,url"`
}

// orderItemPayload — позиция заказа в ответе.
type orderItemPayload struct {
	ProductID string `json:"productId"`
	Quantity  int32  `json:"quantity"`
	Price     int64  `json:"price"`
	Name      string `json:"name,omitempty"`
}

// orderPayload — заказ в ответе.
type orderPayload struct {
	ID              string             `json:"id"`
	TotalAmount     int64              `json:"totalAmount"`
	TotalItems      int32              `json:"totalItems"`
	Status          string             `json:"status"`
	Paid            bool               `json:"paid"`
	PaidAt          *time.Time         `json:"paidAt,omitempty"`
	PaymentChargeID string             `json:"paymentChargeId,omitempty"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
	Items           []orderItemPayload `json:"items,omitempty"`
}

// sessionPayload — сессия оплаты в ответе createOrder.
type sessionPayload struct {
	ID         string `json:"id,omitempty"`
	URL        string `json:"url"`
	SuccessURL string `json:"successUrl,omitempty"`
	CancelURL  string `json:"cancelUrl,omitempty"`
}

// createOrderResponse — результат паттерна createOrder.
type createOrderResponse struct {
	Order          orderPayload   `json:"order"`
	PaymentSession sessionPayload `json:"paymentSession"`
}

// pageMetaPayload — метаданные пагинации в ответе findAllOrders.
type pageMetaPayload struct {
	Total    int `json:"total"`
	Page     int `json:"page"`
	LastPage int `json:"lastPage"`
}

// findAllResponse — результат паттерна findAllOrders.
type findAllResponse struct {
	Data []orderPayload  `json:"data"`
	Meta pageMetaPayload `json:"meta"`
}

// CreateOrder обрабатывает паттерн createOrder: создаёт заказ и сразу же
// открывает сессию оплаты. Сессия создаётся после коммита заказа: её неудача
// возвращает ошибку вызывающему, но заказ остаётся сохранённым.
func (h *Handler) CreateOrder(ctx context.Context, payload []byte) (interface{}, *apperr.AppError) {
	var req createOrderRequest
	if appErr := h.bind(payload, &req); appErr != nil {
		return nil, appErr
	}

	items := make([]CreateItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, CreateItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	h.logger.Info("order received from gateway")
	order, err := h.svc.Create(ctx, items)
	if err != nil {
		return nil, apperr.Normalize(err, handlerContext)
	}
	h.logger.WithField("order_id", order.ID).Info("order created successful")

	session, err := h.svc.CreatePaymentSession(ctx, order)
	if err != nil {
		return nil, apperr.Normalize(err, handlerContext)
	}

	return createOrderResponse{
		Order: toOrderPayload(order, true),
		PaymentSession: sessionPayload{
			ID:         session.ID,
			URL:        session.URL,
			SuccessURL: session.SuccessURL,
			CancelURL:  session.CancelURL,
		},
	}, nil
}

// FindAllOrders обрабатывает паттерн findAllOrders.
func (h *Handler) FindAllOrders(ctx context.Context, payload []byte) (interface{}, *apperr.AppError) {
	req := paginationRequest{Page: defaultPage, Limit: defaultLimit}
	if appErr := h.bind(payload, &req); appErr != nil {
		return nil, appErr
	}

	result, err := h.svc.FindAll(ctx, domain.Page{
		Page:   req.Page,
		Limit:  req.Limit,
		Status: domain.OrderStatus(req.Status),
	})
	if err != nil {
		return nil, apperr.Normalize(err, handlerContext)
	}

	data := make([]orderPayload, 0, len(result.Data))
	for _, order := range result.Data {
		data = append(data, toOrderPayload(order, false))
	}

	return findAllResponse{
		Data: data,
		Meta: pageMetaPayload{
			Total:    result.Meta.Total,
			Page:     result.Meta.Page,
			LastPage: result.Meta.LastPage,
		},
	}, nil
}

// FindOneOrder обрабатывает паттерн findOneOrder.
func (h *Handler) FindOneOrder(ctx context.Context, payload []byte) (interface{}, *apperr.AppError) {
	var req findOneRequest
	if appErr := h.bind(payload, &req); appErr != nil {
		return nil, appErr
	}

	order, err := h.svc.FindOne(ctx, req.ID)
	if err != nil {
		return nil, apperr.Normalize(err, handlerContext)
	}
	return toOrderPayload(order, true), nil
}

// ChangeOrderStatus обрабатывает паттерн changeOrderStatus.
func (h *Handler) ChangeOrderStatus(ctx context.Context, payload []byte) (interface{}, *apperr.AppError) {
	var req changeStatusRequest
	if appErr := h.bind(payload, &req); appErr != nil {
		return nil, appErr
	}

	order, err := h.svc.ChangeStatus(ctx, req.ID, domain.OrderStatus(req.Status))
	if err != nil {
		return nil, apperr.Normalize(err, handlerContext)
	}
	return toOrderPayload(order, false), nil
}

// PaymentSucceeded обрабатывает событие payment.succeeded. У события нет
// вызывающего, которому можно ответить: ошибка уходит consumer'у для
// логирования и терминальна для этого сообщения.
func (h *Handler) PaymentSucceeded(ctx context.Context, payload []byte) error {
	var event paidOrderEvent
	if appErr := h.bind(payload, &event); appErr != nil {
		return fmt.Errorf("invalid payment.succeeded payload: %s", appErr.Message)
	}

	h.logger.WithField("order_id", event.OrderID).Info("mark order as paid")
	return h.svc.MarkPaid(ctx, domain.PaidConfirmation{
		OrderID:         event.OrderID,
		PaymentChargeID: event.PaymentChargeID,
		ReceiptURL:      event.ReceiptURL,
	})
}

// bind декодирует и валидирует входящий payload. Ошибки формата и валидации
// приводят к 400-конверту с details из сообщений валидатора.
func (h *Handler) bind(payload []byte, target interface{}) *apperr.AppError {
	if err := json.Unmarshal(payload, target); err != nil {
		return apperr.Normalize(&apperr.ValidationError{
			Messages: []string{fmt.Sprintf("invalid payload: %v", err)},
		}, handlerContext)
	}

	if err := h.validate.Struct(target); err != nil {
		var fieldErrors validator.ValidationErrors
		messages := []string{err.Error()}
		if errors.As(err, &fieldErrors) {
			messages = messages[:0]
			for _, fe := range fieldErrors {
				messages = append(messages, fmt.Sprintf("%s failed on the '%s' rule", fe.Field(), fe.Tag()))
			}
		}
		return apperr.Normalize(&apperr.ValidationError{Messages: messages}, handlerContext)
	}

	return nil
}

func toOrderPayload(order domain.Order, withItems bool) orderPayload {
	payload := orderPayload{
		ID:              order.ID,
		TotalAmount:     order.TotalAmountMinor,
		TotalItems:      order.TotalItems,
		Status:          string(order.Status),
		Paid:            order.Paid,
		PaidAt:          order.PaidAt,
		PaymentChargeID: order.PaymentChargeID,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
	if withItems {
		payload.Items = make([]orderItemPayload, 0, len(order.Lines))
		for _, line := range order.Lines {
			payload.Items = append(payload.Items, orderItemPayload{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				Price:     line.PriceMinor,
				Name:      line.Name,
			})
		}
	}
	return payload
}
