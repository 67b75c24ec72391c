package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/tour-booking/internal/booking"
)

// channel is the subset of *amqp.Channel the publisher uses.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// dialFunc opens a channel and returns a func closing the channel and its
// connection.
type dialFunc func(url string) (channel, func(), error)

func dialAMQP(url string) (channel, func(), error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return ch, func() { _ = ch.Close(); _ = conn.Close() }, nil
}

// Publisher implements booking.Notifier by sending each event to a durable
// queue.  It dials per event; booking writes are rare enough that a
// long-lived connection is not worth its reconnect handling.
type Publisher struct {
	url   string
	queue string
	log   *zap.Logger
	dial  dialFunc
}

var _ booking.Notifier = (*Publisher)(nil)

func NewPublisher(url, queue string, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{url: url, queue: queue, log: log, dial: dialAMQP}
}

// Notify publishes ev as a persistent JSON message routed to the queue.
func (p *Publisher) Notify(ctx context.Context, ev booking.Event) error {
	body, err := json.Marshal(NewBookingEvent(ev))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	ch, closeFn, err := p.dial(p.url)
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}
	defer closeFn()

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	err = ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         string(ev.Kind),
		MessageId:    ev.Booking.BookingNumber,
		Timestamp:    ev.At.UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", ev.Kind, err)
	}
	p.log.Debug("booking event published",
		zap.String("kind", string(ev.Kind)),
		zap.String("booking_number", ev.Booking.BookingNumber))
	return nil
}
