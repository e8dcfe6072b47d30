// Пакет catalog — типизированный клиент удалённого каталога товаров поверх шины.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders-ms/internal/domain"
	"github.com/vladislavdragonenkov/orders-ms/internal/messaging/kafka"
)

// productPayload — форма товара на проводе.
type productPayload struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PriceMinor int64  `json:"price"`
}

// Client отправляет запрос validate_products и ждёт единственный ответ.
// Чистый слой трансляции: без повторов и без локальных side effects.
type Client struct {
	requester *kafka.Requester
	logger    *log.Entry
}

// NewClient создаёт клиент каталога поверх requester'а шины.
func NewClient(requester *kafka.Requester) *Client {
	return &Client{
		requester: requester,
		logger:    log.WithField("component", "catalog-client"),
	}
}

// Validate подтверждает товары по списку идентификаторов. Транспортные ошибки
// уходят наверх как есть — их классифицирует нормализатор.
func (c *Client) Validate(ctx context.Context, ids []string) ([]domain.Product, error) {
	raw, err := c.requester.Request(ctx, kafka.TopicValidateProducts, ids)
	if err != nil {
		return nil, err
	}

	var payload []productPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode validate_products response: %w", err)
	}

	products := make([]domain.Product, 0, len(payload))
	for _, p := range payload {
		products = append(products, domain.Product{
			ID:         p.ID,
			Name:       p.Name,
			PriceMinor: p.PriceMinor,
		})
	}

	c.logger.WithFields(log.Fields{
		"requested": len(ids),
		"returned":  len(products),
	}).Debug("products validated")

	return products, nil
}

var _ domain.ProductService = (*Client)(nil)
