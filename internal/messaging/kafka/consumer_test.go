package kafka

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"
)

func TestSendToDLQ(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != TopicDeadLetterQueue {
			t.Errorf("dlq message must go to %s, got %s", TopicDeadLetterQueue, msg.Topic)
		}
		value, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		var payload map[string]interface{}
		if err := json.Unmarshal(value, &payload); err != nil {
			return err
		}
		if payload["original_topic"] != "orders.create" {
			t.Errorf("unexpected original topic: %v", payload["original_topic"])
		}
		if payload["original_value"] != "v" {
			t.Errorf("unexpected original value: %v", payload["original_value"])
		}
		if payload["error_message"] != "boom" {
			t.Errorf("unexpected error message: %v", payload["error_message"])
		}
		return nil
	})

	consumer := &Consumer{
		dlqProducer: &Producer{producer: mockProducer, logger: log.WithField("test", "send-dlq")},
		logger:      log.WithField("test", "consumer-send-dlq"),
	}

	msg := &sarama.ConsumerMessage{Topic: "orders.create", Partition: 1, Offset: 42, Key: []byte("k"), Value: []byte("v")}
	if err := consumer.sendToDLQ(msg, errors.New("boom")); err != nil {
		t.Fatalf("sendToDLQ failed: %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestHeaderValue(t *testing.T) {
	msg := &sarama.ConsumerMessage{
		Headers: []*sarama.RecordHeader{
			{Key: []byte(HeaderCorrelationID), Value: []byte("corr-7")},
			nil,
			{Key: []byte("other"), Value: []byte("x")},
		},
	}

	if got := HeaderValue(msg, HeaderCorrelationID); got != "corr-7" {
		t.Errorf("expected corr-7, got %q", got)
	}
	if got := HeaderValue(msg, "missing"); got != "" {
		t.Errorf("expected empty value for missing header, got %q", got)
	}
}
