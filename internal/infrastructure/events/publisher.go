// Package events publishes committed order status transitions to RabbitMQ so
// dashboards and the customer notifier can follow them.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"dispatch-backend/internal/domain"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel is the part of *amqp.Channel the publisher needs.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	GetNextPublishSeqNo() uint64
}

// Publisher is safe for concurrent use. With confirms on, each publish waits
// for the confirmation carrying its own delivery tag.
type Publisher struct {
	Exchange string

	ch       Channel
	confirms bool
	close    func()
	mu       sync.Mutex // orders seq lookup and publish

	wmu     sync.Mutex
	waiting map[uint64]chan bool
	closed  bool
}

// Dial connects, declares the topic exchange and enables publisher confirms.
func Dial(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("enable confirms: %w", err)
	}
	p := New(ch, exchange, ch.NotifyPublish(make(chan amqp.Confirmation, 16)))
	p.close = func() {
		_ = ch.Close()
		_ = conn.Close()
	}
	return p, nil
}

// New wraps an existing channel. acks may be nil when confirms are off.
func New(ch Channel, exchange string, acks <-chan amqp.Confirmation) *Publisher {
	p := &Publisher{
		Exchange: exchange,
		ch:       ch,
		confirms: acks != nil,
		close:    func() {},
		waiting:  map[uint64]chan bool{},
	}
	if acks != nil {
		go p.route(acks)
	}
	return p
}

// route hands each confirmation to the publish waiting on its tag. Confirms
// nobody waits for any more (the publish timed out) are dropped.
func (p *Publisher) route(acks <-chan amqp.Confirmation) {
	for conf := range acks {
		p.wmu.Lock()
		w, ok := p.waiting[conf.DeliveryTag]
		delete(p.waiting, conf.DeliveryTag)
		p.wmu.Unlock()
		if ok {
			w <- conf.Ack
		}
	}
	p.wmu.Lock()
	p.closed = true
	for tag, w := range p.waiting {
		close(w)
		delete(p.waiting, tag)
	}
	p.wmu.Unlock()
}

func (p *Publisher) forget(tag uint64) {
	p.wmu.Lock()
	delete(p.waiting, tag)
	p.wmu.Unlock()
}

func (p *Publisher) Close() { p.close() }

// RoutingKey is order.status.<order status>.
func RoutingKey(ev domain.StatusEvent) string {
	return "order.status." + string(ev.OrderStatus)
}

// PublishStatus sends ev persistently and waits for the broker ack.
func (p *Publisher) PublishStatus(ctx context.Context, ev domain.StatusEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	headers := amqp.Table{"x-source": "dispatch-backend"}
	if ev.Notification != "" {
		headers["x-notify-customer"] = true
	}
	msg := amqp.Publishing{
		DeliveryMode:  amqp.Persistent,
		ContentType:   "application/json",
		CorrelationId: ev.OrderID,
		Timestamp:     ev.OccurredAt,
		Headers:       headers,
		Body:          body,
	}

	p.mu.Lock()
	var (
		tag  uint64
		done chan bool
	)
	if p.confirms {
		tag = p.ch.GetNextPublishSeqNo()
		done = make(chan bool, 1)
		p.wmu.Lock()
		if p.closed {
			p.wmu.Unlock()
			p.mu.Unlock()
			return errors.New("publisher confirm channel closed")
		}
		p.waiting[tag] = done
		p.wmu.Unlock()
	}
	err = p.ch.PublishWithContext(ctx, p.Exchange, RoutingKey(ev), false, false, msg)
	p.mu.Unlock()
	if err != nil {
		if done != nil {
			p.forget(tag)
		}
		return err
	}
	if done == nil {
		return nil
	}
	select {
	case ack, ok := <-done:
		if !ok {
			return errors.New("publisher confirm channel closed")
		}
		if !ack {
			return fmt.Errorf("publish NACK from broker for tag %d", tag)
		}
		return nil
	case <-ctx.Done():
		p.forget(tag)
		return ctx.Err()
	}
}
