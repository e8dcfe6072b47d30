package kafka

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders-ms/internal/apperr"
)

// PatternHandler обрабатывает payload одного паттерна шины и возвращает
// данные ответа либо нормализованную ошибку.
type PatternHandler func(ctx context.Context, payload []byte) (interface{}, *apperr.AppError)

// EventHandler обрабатывает событие без ответа. Ошибка логируется вызывающим
// и терминальна для сообщения.
type EventHandler func(ctx context.Context, payload []byte) error

// Responder — серверная сторона request/reply: маршрутизирует сообщения из
// топиков-паттернов в обработчики и публикует конверт ответа в reply-топик
// из заголовков запроса. События обрабатываются без публикации ответа.
type Responder struct {
	producer *Producer
	logger   *log.Entry
	patterns map[string]PatternHandler
	events   map[string]EventHandler
}

// NewResponder создаёт маршрутизатор поверх producer для ответов.
func NewResponder(producer *Producer) *Responder {
	return &Responder{
		producer: producer,
		logger:   log.WithField("component", "kafka-responder"),
		patterns: make(map[string]PatternHandler),
		events:   make(map[string]EventHandler),
	}
}

// HandlePattern регистрирует обработчик request/reply паттерна.
func (r *Responder) HandlePattern(topic string, handler PatternHandler) {
	r.patterns[topic] = handler
}

// HandleEvent регистрирует обработчик события.
func (r *Responder) HandleEvent(topic string, handler EventHandler) {
	r.events[topic] = handler
}

// Topics возвращает все топики, на которые нужно подписать consumer.
func (r *Responder) Topics() []string {
	topics := make([]string, 0, len(r.patterns)+len(r.events))
	for topic := range r.patterns {
		topics = append(topics, topic)
	}
	for topic := range r.events {
		topics = append(topics, topic)
	}
	return topics
}

// Handle — MessageHandler для Consumer: определяет тип топика и выполняет
// обработку. Для паттернов любая ошибка уходит вызывающему в конверте,
// поэтому Handle возвращает nil; для событий ошибка возвращается consumer'у,
// который её логирует и отправляет сообщение в DLQ.
func (r *Responder) Handle(ctx context.Context, message *sarama.ConsumerMessage) error {
	if handler, ok := r.patterns[message.Topic]; ok {
		r.handleRequest(ctx, message, handler)
		return nil
	}
	if handler, ok := r.events[message.Topic]; ok {
		return handler(ctx, message.Value)
	}

	r.logger.WithField("topic", message.Topic).Warn("message for unknown topic")
	return nil
}

func (r *Responder) handleRequest(ctx context.Context, message *sarama.ConsumerMessage, handler PatternHandler) {
	replyTopic := HeaderValue(message, HeaderReplyTopic)
	correlationID := HeaderValue(message, HeaderCorrelationID)

	result, appErr := handler(ctx, message.Value)

	var reply Reply
	if appErr != nil {
		reply = NewErrorReply(appErr)
	} else {
		var err error
		reply, err = NewDataReply(result)
		if err != nil {
			r.logger.WithError(err).WithField("topic", message.Topic).Error("failed to encode reply data")
			reply = NewErrorReply(apperr.Normalize(err, "Responder"))
		}
	}

	if replyTopic == "" {
		// Запрос без reply-топика: отвечать некуда, результат только в логах.
		r.logger.WithFields(log.Fields{
			"topic":          message.Topic,
			"correlation_id": correlationID,
		}).Warn("request without reply topic header")
		return
	}

	payload, err := json.Marshal(reply)
	if err != nil {
		r.logger.WithError(err).WithField("topic", message.Topic).Error("failed to marshal reply envelope")
		return
	}

	headers := map[string]string{HeaderCorrelationID: correlationID}
	if err := r.producer.PublishMessage(replyTopic, correlationID, payload, headers); err != nil {
		r.logger.WithError(err).WithFields(log.Fields{
			"topic":          message.Topic,
			"reply_topic":    replyTopic,
			"correlation_id": correlationID,
		}).Error("failed to publish reply")
	}
}
