package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// DefaultRequestTimeout — таймаут ожидания ответа по умолчанию.
const DefaultRequestTimeout = 5 * time.Second

// Requester реализует клиентскую сторону request/reply поверх Kafka:
// запрос публикуется в топик паттерна с заголовками x-reply-topic и
// x-correlation-id, ответ ожидается на собственном reply-топике инстанса.
// Повторов нет: любая ошибка транспорта возвращается вызывающему как есть.
type Requester struct {
	producer   *Producer
	consumer   sarama.Consumer
	partition  sarama.PartitionConsumer
	replyTopic string
	timeout    time.Duration
	logger     *log.Entry

	mu      sync.Mutex
	pending map[string]chan Reply
}

// NewRequester подключает producer и подписку на reply-топик.
// replyTopic должен быть уникальным для инстанса сервиса.
func NewRequester(brokers []string, replyTopic string, timeout time.Duration) (*Requester, error) {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	producer, err := NewProducer(brokers)
	if err != nil {
		return nil, err
	}

	config := sarama.NewConfig()
	config.Consumer.Return.Errors = true

	consumer, err := sarama.NewConsumer(brokers, config)
	if err != nil {
		_ = producer.Close()
		return nil, fmt.Errorf("failed to create reply consumer: %w", err)
	}

	partition, err := consumer.ConsumePartition(replyTopic, 0, sarama.OffsetNewest)
	if err != nil {
		_ = consumer.Close()
		_ = producer.Close()
		return nil, fmt.Errorf("failed to consume reply topic %q: %w", replyTopic, err)
	}

	r := &Requester{
		producer:   producer,
		consumer:   consumer,
		partition:  partition,
		replyTopic: replyTopic,
		timeout:    timeout,
		logger:     log.WithField("component", "kafka-requester"),
		pending:    make(map[string]chan Reply),
	}

	go r.dispatchLoop()

	return r, nil
}

// Request отправляет запрос и блокируется до ответа, таймаута или отмены
// контекста. Ошибка из конверта ответа возвращается вызывающему как error.
func (r *Requester) Request(ctx context.Context, topic string, payload interface{}) (json.RawMessage, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	correlationID := uuid.NewString()
	replyCh := r.register(correlationID)
	defer r.unregister(correlationID)

	headers := map[string]string{
		HeaderReplyTopic:    r.replyTopic,
		HeaderCorrelationID: correlationID,
	}
	if err := r.producer.PublishMessage(topic, correlationID, data, headers); err != nil {
		// Транспортная ошибка уходит наверх без изменений: её классифицирует
		// нормализатор на внешней границе.
		return nil, err
	}

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case reply := <-replyCh:
		if reply.Error != nil {
			return nil, reply.Error
		}
		return reply.Data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, fmt.Errorf("request %q timed out after %s: %w", topic, r.timeout, context.DeadlineExceeded)
	}
}

// Close останавливает подписку на ответы и закрывает подключения.
func (r *Requester) Close() error {
	if err := r.partition.Close(); err != nil {
		r.logger.WithError(err).Warn("failed to close reply partition consumer")
	}
	if err := r.consumer.Close(); err != nil {
		r.logger.WithError(err).Warn("failed to close reply consumer")
	}
	return r.producer.Close()
}

func (r *Requester) dispatchLoop() {
	for message := range r.partition.Messages() {
		if message == nil {
			return
		}
		correlationID := HeaderValue(message, HeaderCorrelationID)
		if correlationID == "" {
			r.logger.WithField("topic", message.Topic).Debug("reply without correlation id, skipping")
			continue
		}

		var reply Reply
		if err := json.Unmarshal(message.Value, &reply); err != nil {
			r.logger.WithError(err).WithField("correlation_id", correlationID).Warn("failed to decode reply envelope")
			continue
		}
		r.deliver(correlationID, reply)
	}
}

func (r *Requester) register(correlationID string) chan Reply {
	ch := make(chan Reply, 1)
	r.mu.Lock()
	r.pending[correlationID] = ch
	r.mu.Unlock()
	return ch
}

func (r *Requester) unregister(correlationID string) {
	r.mu.Lock()
	delete(r.pending, correlationID)
	r.mu.Unlock()
}

func (r *Requester) deliver(correlationID string, reply Reply) {
	r.mu.Lock()
	ch, ok := r.pending[correlationID]
	r.mu.Unlock()

	if !ok {
		// Ответ пришёл после таймаута вызывающего: просто фиксируем.
		r.logger.WithField("correlation_id", correlationID).Debug("reply for unknown correlation id")
		return
	}

	select {
	case ch <- reply:
	default:
	}
}
