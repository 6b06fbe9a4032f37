package main

import (
	"encoding/json"
	"fmt"
	"os"

	"mediagrab-be-server/src/application/events"

	"github.com/streadway/amqp"
)

// Tails the record event queue and prints every event. Handy for
// checking that the server is actually publishing lifecycle events.
func main() {
	rabbitURL := os.Getenv("RABBITMQ_URL")
	if rabbitURL == "" {
		panic("Can't get rabbitmq url")
	}

	queueName := os.Getenv("RABBITMQ_QUEUE_NAME")
	if queueName == "" {
		queueName = "download-record-events"
	}

	conn, err := amqp.Dial(rabbitURL)
	if err != nil {
		panic(err)
	}
	defer conn.Close()

	rabbitChannel, err := conn.Channel()
	if err != nil {
		panic(err)
	}
	defer rabbitChannel.Close()

	queue, err := rabbitChannel.QueueDeclare(
		queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		panic(err)
	}

	deliveries, err := rabbitChannel.Consume(queue.Name, "", true, false, false, false, nil)
	if err != nil {
		panic(err)
	}

	fmt.Printf("Waiting for events on %s\n", queue.Name)

	for delivery := range deliveries {
		var event events.RecordEvent
		if err := json.Unmarshal(delivery.Body, &event); err != nil {
			fmt.Printf("Unparseable event: %s\n", string(delivery.Body))
			continue
		}

		fmt.Printf("[%s] record=%s user=%s url=%s file=%s size=%d error=%q\n",
			event.Status,
			event.RecordID,
			event.UserID,
			event.SourceURL,
			event.FileName,
			event.FileSize,
			event.Error,
		)
	}
}
