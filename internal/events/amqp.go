// Package events publishes entry change events to a message broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"wt-go/internal/wt"
)

const publishTimeout = 5 * time.Second

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

// opener dials the broker and returns a ready channel plus the connection to close.
type opener func() (amqpChannel, io.Closer, error)

// AMQPPublisher sends each event as a persistent JSON message to a durable
// queue on the default exchange. The connection is opened on first use and
// reopened after any failure.
type AMQPPublisher struct {
	queue  string
	open   opener
	logger wt.Logger

	mu      sync.Mutex
	channel amqpChannel
	conn    io.Closer
}

// NewAMQPPublisher creates a publisher for the given broker URL and queue.
// No connection is made until the first Publish.
func NewAMQPPublisher(url, queue string, logger wt.Logger) *AMQPPublisher {
	if logger == nil {
		logger = wt.NewNopLogger()
	}
	return &AMQPPublisher{
		queue:  queue,
		open:   dialer(url, queue),
		logger: logger,
	}
}

func dialer(url, queue string) opener {
	return func() (amqpChannel, io.Closer, error) {
		conn, err := amqp.Dial(url)
		if err != nil {
			return nil, nil, fmt.Errorf("dialing broker: %w", err)
		}

		ch, err := conn.Channel()
		if err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("opening channel: %w", err)
		}

		_, err = ch.QueueDeclare(
			queue, // name
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("declaring queue %s: %w", queue, err)
		}
		return ch, conn, nil
	}
}

// Publish sends ev. A failed publish drops the connection so the next call redials.
func (p *AMQPPublisher) Publish(ctx context.Context, ev wt.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel == nil || p.channel.IsClosed() {
		p.reset()
		ch, conn, err := p.open()
		if err != nil {
			return err
		}
		p.channel, p.conn = ch, conn
		p.logger.Info("connected to event broker", "queue", p.queue)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.channel.PublishWithContext(ctx,
		"",      // exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    ev.At,
			Type:         ev.Type,
			Body:         body,
		},
	)
	if err != nil {
		p.reset()
		return fmt.Errorf("publishing %s: %w", ev.Type, err)
	}
	return nil
}

// Close closes the channel and connection, if open.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}

// reset must be called with mu held.
func (p *AMQPPublisher) reset() {
	if p.channel != nil {
		p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
}

var _ wt.Publisher = (*AMQPPublisher)(nil)
