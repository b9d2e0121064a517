// Package rabbitmq is publishing notifications as events to a RabbitMQ queue,
// leaving the delivery to whoever consumes the queue.
package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/exp/slog"
)

const DefaultQueue = "showwatch.notifications"

// Event is the message body published for every notification.
type Event struct {
	Source    string    `json:"source"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Publisher is publishing to a durable queue on the default exchange.
type Publisher struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	queue  string
	source string
	logger *slog.Logger
}

type Opt func(*Publisher)

func WithQueue(queue string) Opt {
	return func(p *Publisher) {
		p.queue = queue
	}
}

// WithSource sets the source field of published events, e.g. "shows" or "seats".
func WithSource(source string) Opt {
	return func(p *Publisher) {
		p.source = source
	}
}

func WithLogger(logger *slog.Logger) Opt {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// New is connecting to the broker at url and declaring the queue.
func New(url string, opts ...Opt) (*Publisher, error) {
	p := &Publisher{queue: DefaultQueue, source: "showwatch", logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq.New() - dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq.New() - channel: %w", err)
	}

	// durable, not auto-deleted, not exclusive
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq.New() - queue declare: %w", err)
	}

	p.conn, p.ch = conn, ch
	return p, nil
}

func (p *Publisher) Publish(ctx context.Context, msg string) error {
	body, err := json.Marshal(Event{Source: p.source, Message: msg, CreatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("Publisher.Publish() - %w", err)
	}

	err = p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("Publisher.Publish() - %w", err)
	}

	p.logger.Debug("published notification", "queue", p.queue)
	return nil
}

// Close is closing the channel and the connection.
func (p *Publisher) Close() error {
	if err := p.ch.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}
