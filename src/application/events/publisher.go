package events

import (
	"encoding/json"
	"time"

	"mediagrab-be-server/src/application/records/entity"
	"mediagrab-be-server/src/lib/cerr"

	"github.com/streadway/amqp"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

// RecordEvent is published whenever a download record reaches a terminal
// status, for downstream consumers (notifications, accounting).
type RecordEvent struct {
	RecordID   string        `json:"record_id"`
	UserID     string        `json:"user_id"`
	SourceURL  string        `json:"source_url"`
	Status     entity.Status `json:"status"`
	FileName   string        `json:"file_name,omitempty"`
	FileSize   int64         `json:"file_size,omitempty"`
	Error      string        `json:"error,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

//counterfeiter:generate . Publisher
type Publisher interface {
	PublishRecordEvent(event RecordEvent) error
}

var _ Publisher = RabbitMQPublisher{}

func NewRabbitMQPublisher(conn *amqp.Connection, queueName string) (RabbitMQPublisher, error) {
	channel, err := conn.Channel()
	if err != nil {
		return RabbitMQPublisher{}, cerr.Wrap(err).Error("Failed to create rabbit channel")
	}

	if _, err := channel.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		_ = channel.Close()
		return RabbitMQPublisher{}, cerr.Field("queue_name", queueName).
			Wrap(err).Error("Failed to declare queue")
	}

	return RabbitMQPublisher{
		channel:   channel,
		queueName: queueName,
	}, nil
}

type RabbitMQPublisher struct {
	channel   *amqp.Channel
	queueName string
}

func (r RabbitMQPublisher) PublishRecordEvent(event RecordEvent) error {
	jsonBytes, err := json.Marshal(event)
	if err != nil {
		return cerr.Field("record_id", event.RecordID).
			Wrap(err).Error("Failed to marshal record event")
	}

	msg := amqp.Publishing{
		Type:         "record_" + string(event.Status),
		Body:         jsonBytes,
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
	}

	return r.channel.Publish("", r.queueName, true, false, msg)
}

var _ Publisher = NoopPublisher{}

// NoopPublisher stands in when no message broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishRecordEvent(RecordEvent) error {
	return nil
}
