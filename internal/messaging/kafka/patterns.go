package kafka

import (
	"encoding/json"

	"github.com/vladislavdragonenkov/orders-ms/internal/apperr"
)

// Топики входящих паттернов request/reply.
const (
	TopicCreateOrder       = "orders.create"
	TopicFindAllOrders     = "orders.find-all"
	TopicFindOneOrder      = "orders.find-one"
	TopicChangeOrderStatus = "orders.change-status"
)

// Топики событий (publish/subscribe, без ответа).
const (
	TopicPaymentSucceeded = "payment.succeeded"
)

// Топики исходящих запросов к удалённым сервисам.
const (
	TopicValidateProducts     = "products.validate"
	TopicCreatePaymentSession = "payments.create-session"
	TopicDeadLetterQueue      = "orders.dlq" // Dead Letter Queue для failed messages
)

// Заголовки request/reply поверх Kafka.
const (
	HeaderReplyTopic    = "x-reply-topic"
	HeaderCorrelationID = "x-correlation-id"
)

// Reply — конверт ответа на запрос: либо данные, либо нормализованная ошибка.
type Reply struct {
	Data  json.RawMessage  `json:"data,omitempty"`
	Error *apperr.AppError `json:"error,omitempty"`
}

// NewDataReply упаковывает успешный результат в конверт ответа.
func NewDataReply(data interface{}) (Reply, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Data: raw}, nil
}

// NewErrorReply упаковывает нормализованную ошибку в конверт ответа.
func NewErrorReply(appErr *apperr.AppError) Reply {
	return Reply{Error: appErr}
}
