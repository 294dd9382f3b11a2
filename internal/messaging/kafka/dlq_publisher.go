package kafka

import (
	"fmt"
	"strconv"
	"time"

	"github.com/IBM/sarama"

	"github.com/vladislavdragonenkov/kuborder/internal/domain"
)

// DLQPublisher отправляет недоставленные outbox-сообщения в dead letter queue.
// Причина отказа, исходный topic и число попыток передаются record-заголовками,
// тело сообщения остаётся исходным envelope.
type DLQPublisher struct {
	producer *Producer
}

// NewDLQPublisher создаёт Kafka-паблишер dead letter queue.
func NewDLQPublisher(producer *Producer) domain.DeadLetterPublisher {
	return &DLQPublisher{producer: producer}
}

// PublishDead публикует сообщение в DLQ с retry-метаданными в заголовках.
func (p *DLQPublisher) PublishDead(msg domain.OutboxMessage, cause error, attempts int) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka dlq publisher is not initialized")
	}

	errText := ""
	if cause != nil {
		errText = cause.Error()
	}
	headers := []sarama.RecordHeader{
		{Key: []byte(HeaderRetryCount), Value: []byte(strconv.Itoa(attempts))},
		{Key: []byte(HeaderOriginalTopic), Value: []byte(routeTopic(msg, TopicOrderEvents))},
		{Key: []byte(HeaderErrorMessage), Value: []byte(errText)},
		{Key: []byte(HeaderFailedAt), Value: []byte(time.Now().UTC().Format(time.RFC3339Nano))},
	}

	return p.producer.PublishEventWithHeaders(TopicDeadLetterQueue, messageKey(msg), newEnvelope(msg), headers)
}

var _ domain.DeadLetterPublisher = (*DLQPublisher)(nil)
