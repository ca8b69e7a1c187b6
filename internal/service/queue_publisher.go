// Package service publishes audit events to RabbitMQ.  Errors are logged and
// returned so callers can ignore them without interrupting the request flow.
package service

import (
    "context"
    "encoding/json"
    "log"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    q "github.com/iliyamo/elder-health-text/internal/queue"
)

// Publisher sends text.processed events.
type Publisher interface {
    PublishTextProcessed(ctx context.Context, event q.TextProcessedEvent) error
}

// NopPublisher drops every event.  It is used when auditing is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishTextProcessed(context.Context, q.TextProcessedEvent) error { return nil }

// AMQPPublisher dials the broker per event.  Audit traffic is low and a
// fresh connection keeps a broker restart from poisoning later publishes.
type AMQPPublisher struct {
    URL string
}

// PublishTextProcessed publishes event to the durable text.processed queue
// as a persistent JSON message.
func (p AMQPPublisher) PublishTextProcessed(ctx context.Context, event q.TextProcessedEvent) error {
    conn, err := amqp.Dial(p.URL)
    if err != nil {
        log.Printf("rabbitmq: dial failed: %v", err)
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        log.Printf("rabbitmq: channel open failed: %v", err)
        return err
    }
    defer func() { _ = ch.Close() }()

    if _, err := ch.QueueDeclare(
        q.TextProcessedQueue, // name
        true,                 // durable
        false,                // autoDelete
        false,                // exclusive
        false,                // noWait
        nil,                  // args
    ); err != nil {
        log.Printf("rabbitmq: queue declare failed: %v", err)
        return err
    }

    body, err := json.Marshal(event)
    if err != nil {
        log.Printf("rabbitmq: marshal event failed: %v", err)
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        MessageId:    event.EventID,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }

    if err := ch.PublishWithContext(ctx,
        "",                   // default exchange
        q.TextProcessedQueue, // routing key = queue name
        false,                // mandatory
        false,                // immediate
        pub,
    ); err != nil {
        log.Printf("rabbitmq: publish failed: %v", err)
        return err
    }

    return nil
}
