package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/fjod/storefront/pkg/logger"
	"github.com/segmentio/kafka-go"
)

const (
	DefaultTopic   = "order-confirmations"
	DefaultGroupID = "storefront-mailer"
	eventType      = "order_confirmation"
)

// ConfirmationMessage is the queued form of one confirmation email.
type ConfirmationMessage struct {
	OrderID  string    `json:"order_id"`
	To       string    `json:"to"`
	HTML     string    `json:"html"`
	QueuedAt time.Time `json:"queued_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// QueueMailer hands confirmations to Kafka; a Worker sends them. A
// successful send here only means the message was queued.
type QueueMailer struct {
	writer messageWriter
	now    func() time.Time
}

func NewQueueMailer(topic string, brokers ...string) *QueueMailer {
	if topic == "" {
		topic = DefaultTopic
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
	}
	return &QueueMailer{writer: w, now: time.Now}
}

func (q *QueueMailer) SendOrderConfirmation(ctx context.Context, to, orderID, html string) error {
	payload, err := json.Marshal(ConfirmationMessage{
		OrderID:  orderID,
		To:       to,
		HTML:     html,
		QueuedAt: q.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal confirmation: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(orderID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	}
	if err := q.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("queue confirmation: %w", err)
	}
	return nil
}

func (q *QueueMailer) Close() error {
	return q.writer.Close()
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Worker consumes queued confirmations and sends them with a Mailer. An
// offset is committed only once its message is sent or found unusable, so a
// confirmation that cannot be sent yet is retried rather than lost.
type Worker struct {
	reader  messageReader
	mailer  Mailer
	log     *logger.Logger
	backoff backoff.BackOff
}

func NewWorker(mailer Mailer, log *logger.Logger, topic, groupID string, brokers ...string) *Worker {
	if topic == "" {
		topic = DefaultTopic
	}
	if groupID == "" {
		groupID = DefaultGroupID
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
	return &Worker{reader: reader, mailer: mailer, log: log, backoff: defaultBackoff()}
}

func defaultBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 30 * time.Second
	return b
}

func (w *Worker) Run(ctx context.Context) {
	for ctx.Err() == nil {
		m, err := w.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			d := w.backoff.NextBackOff()
			w.log.Error("error fetching message", "error", err, "retry_in", d.String())
			if !sleepCtx(ctx, d) {
				return
			}
			continue
		}
		w.backoff.Reset()

		if !w.processMessage(ctx, m) {
			// stopped mid-retry; the uncommitted offset is redelivered on restart
			return
		}
		if err := w.reader.CommitMessages(ctx, m); err != nil {
			w.log.Error("error committing message", "error", err, "offset", m.Offset)
		}
	}
}

func (w *Worker) Close() {
	if err := w.reader.Close(); err != nil {
		w.log.Warn("error closing kafka reader", "error", err)
	}
}

// processMessage reports whether m is settled and its offset may be
// committed. Send failures are retried with backoff until ctx ends.
func (w *Worker) processMessage(ctx context.Context, m kafka.Message) bool {
	var msg ConfirmationMessage
	if err := json.Unmarshal(m.Value, &msg); err != nil {
		w.log.Error("dropping unparseable confirmation message", "error", err, "offset", m.Offset)
		return true
	}
	if msg.OrderID == "" || msg.To == "" {
		w.log.Error("dropping confirmation message without order id or recipient", "offset", m.Offset)
		return true
	}

	defer w.backoff.Reset()
	for attempt := 1; ; attempt++ {
		err := w.mailer.SendOrderConfirmation(ctx, msg.To, msg.OrderID, msg.HTML)
		if err == nil {
			w.log.Info("queued confirmation sent", "order_id", msg.OrderID, "attempt", attempt, "queued_for", time.Since(msg.QueuedAt).String())
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		d := w.backoff.NextBackOff()
		w.log.Warn("failed to send queued confirmation", "order_id", msg.OrderID, "attempt", attempt, "retry_in", d.String(), "error", err)
		if !sleepCtx(ctx, d) {
			return false
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
