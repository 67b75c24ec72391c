package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AuditConsumer reads booking events and writes one audit line per event.
type AuditConsumer struct {
	url   string
	queue string
	tag   string
	log   *zap.Logger // operational log
	audit *zap.Logger // audit trail, usually a rotating file
}

func NewAuditConsumer(url, queue, tag string, log, audit *zap.Logger) *AuditConsumer {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuditConsumer{url: url, queue: queue, tag: tag, log: log, audit: audit}
}

// Run consumes until ctx is cancelled, redialing with exponential backoff
// capped at 30s.
func (a *AuditConsumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(a.url)
		if err == nil {
			backoff = time.Second
			err = a.consume(ctx, conn)
			_ = conn.Close()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		a.log.Warn("audit consumer disconnected", zap.Error(err), zap.Duration("retry_in", backoff))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (a *AuditConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		return fmt.Errorf("qos: %w", err)
	}
	if _, err := ch.QueueDeclare(a.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, a.queue, a.tag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	a.log.Info("audit consumer started", zap.String("queue", a.queue))

	for d := range msgs {
		if err := a.handle(d.Body); err != nil {
			a.log.Warn("audit message rejected", zap.Error(err))
			_ = d.Nack(false, false) // poison messages are dropped, not requeued
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func (a *AuditConsumer) handle(body []byte) error {
	var ev BookingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Kind == "" || ev.BookingNumber == "" {
		return errors.New("event without kind or booking number")
	}
	fields := []zap.Field{
		zap.String("booking_number", ev.BookingNumber),
		zap.Uint64("booking_id", ev.BookingID),
		zap.Uint64("tour_id", ev.TourID),
		zap.Uint64("user_id", ev.UserID),
		zap.Uint64("actor_id", ev.ActorID),
		zap.String("tour_date", ev.TourDate),
		zap.Int("people", ev.PeopleCount),
		zap.Int64("total_cents", ev.TotalPriceCents),
		zap.String("status", ev.Status),
		zap.Time("occurred_at", ev.OccurredAt),
	}
	if ev.Reason != "" {
		fields = append(fields, zap.String("reason", ev.Reason))
	}
	a.audit.Info(ev.Kind, fields...)
	return nil
}
