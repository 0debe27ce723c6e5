// Package rabbitmq publishes notifications to a RabbitMQ topic exchange.
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"rideshare/internal/domain"
)

// Publisher sends notifications as persistent JSON messages and waits for
// the broker to confirm each one.
type Publisher struct {
	exchange string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   publishChannel
}

// confirmation is the broker's pending verdict on one published message.
type confirmation interface {
	WaitContext(ctx context.Context) (bool, error)
}

// publishChannel is the part of an AMQP channel the publisher needs.
type publishChannel interface {
	IsClosed() bool
	Close() error
	publish(ctx context.Context, exchange, key string, msg amqp.Publishing) (confirmation, error)
}

// confirmChannel is an *amqp.Channel in confirm mode.
type confirmChannel struct {
	*amqp.Channel
}

func (c confirmChannel) publish(ctx context.Context, exchange, key string, msg amqp.Publishing) (confirmation, error) {
	dc, err := c.PublishWithDeferredConfirmWithContext(ctx, exchange, key, false, false, msg)
	if err != nil {
		return nil, err
	}
	if dc == nil {
		return nil, errors.New("channel is not in confirm mode")
	}
	return dc, nil
}

// Dial connects to the broker, declares the exchange and puts the channel
// in confirm mode.
func Dial(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: declare exchange %s: %w", exchange, err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: enable confirms: %w", err)
	}

	return &Publisher{
		exchange: exchange,
		conn:     conn,
		ch:       confirmChannel{ch},
	}, nil
}

// RoutingKey returns the key a notification is published under, for
// example "notify.payment_received".
func RoutingKey(n domain.Notification) string {
	return "notify." + strings.ToLower(string(n.Type))
}

// Publish sends n and blocks until the broker acks it or ctx ends.
func (p *Publisher) Publish(ctx context.Context, n domain.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("rabbitmq: encode notification: %w", err)
	}

	// Each confirmation is bound to its own delivery tag, so a confirm that
	// arrives after ctx ended cannot be read by a later publish.
	confirm, err := p.send(ctx, RoutingKey(n), amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Timestamp:    n.CreatedAt,
		Body:         body,
	})
	if err != nil {
		return err
	}

	ack, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("rabbitmq: wait for confirm: %w", err)
	}
	if !ack {
		return errors.New("rabbitmq: publish not acknowledged")
	}
	return nil
}

func (p *Publisher) send(ctx context.Context, key string, msg amqp.Publishing) (confirmation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil || p.ch.IsClosed() {
		return nil, errors.New("rabbitmq: channel is not open")
	}

	confirm, err := p.ch.publish(ctx, p.exchange, key, msg)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: publish: %w", err)
	}
	return confirm, nil
}

// Close closes the channel and the connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if p.ch != nil {
		errs = append(errs, p.ch.Close())
		p.ch = nil
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
		p.conn = nil
	}
	return errors.Join(errs...)
}
