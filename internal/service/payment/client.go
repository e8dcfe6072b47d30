// Пакет payment — типизированный клиент платёжного сервиса поверх шины.
package payment

import (
	"context"
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders-ms/internal/domain"
	"github.com/vladislavdragonenkov/orders-ms/internal/messaging/kafka"
)

// sessionItem — позиция заказа в запросе на сессию оплаты.
// Наружу уходит только имя, цена и количество — без внутренних идентификаторов.
type sessionItem struct {
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int32  `json:"quantity"`
}

// sessionRequest — payload запроса create_payment_session.
type sessionRequest struct {
	OrderID  string        `json:"orderId"`
	Currency string        `json:"currency"`
	Items    []sessionItem `json:"items"`
}

// sessionResponse — форма сессии оплаты на проводе.
type sessionResponse struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	SuccessURL string `json:"successUrl"`
	CancelURL  string `json:"cancelUrl"`
}

// Client создаёт сессии оплаты через request/reply шины.
// Повторов нет: политика ретраев — не дело этого слоя.
type Client struct {
	requester *kafka.Requester
	currency  string
	logger    *log.Entry
}

// NewClient создаёт клиент платёжного сервиса. currency — фиксированный код
// валюты, в которой выставляются все сессии.
func NewClient(requester *kafka.Requester, currency string) *Client {
	return &Client{
		requester: requester,
		currency:  currency,
		logger:    log.WithField("component", "payment-client"),
	}
}

// CreateSession создаёт сессию оплаты по сохранённому заказу.
func (c *Client) CreateSession(ctx context.Context, order domain.Order) (domain.PaymentSession, error) {
	items := make([]sessionItem, 0, len(order.Lines))
	for _, line := range order.Lines {
		items = append(items, sessionItem{
			Name:     line.Name,
			Price:    line.PriceMinor,
			Quantity: line.Quantity,
		})
	}

	raw, err := c.requester.Request(ctx, kafka.TopicCreatePaymentSession, sessionRequest{
		OrderID:  order.ID,
		Currency: c.currency,
		Items:    items,
	})
	if err != nil {
		return domain.PaymentSession{}, err
	}

	var payload sessionResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.PaymentSession{}, fmt.Errorf("failed to decode payment session response: %w", err)
	}

	c.logger.WithField("order_id", order.ID).Debug("payment session created")

	return domain.PaymentSession{
		ID:         payload.ID,
		URL:        payload.URL,
		SuccessURL: payload.SuccessURL,
		CancelURL:  payload.CancelURL,
	}, nil
}

var _ domain.PaymentService = (*Client)(nil)
