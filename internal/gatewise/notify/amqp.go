// Package notify forwards door events to an AMQP topic exchange so
// monitors outside the station can follow the stream.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/types"
)

const publishTimeout = 2 * time.Second

// channel is the subset of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher publishes each door event as JSON with routing key
// door.<door>.<status>.
type Publisher struct {
	exchange string
	log      *zap.Logger
	conn     *amqp.Connection
	ch       channel
}

// Dial connects to url and declares a durable topic exchange.
func Dial(url, exchange string, log *zap.Logger) (*Publisher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	p := newPublisher(ch, exchange, log)
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, exchange string, log *zap.Logger) *Publisher {
	return &Publisher{exchange: exchange, log: log.Named("amqp"), ch: ch}
}

// Handle publishes ev. It has the signature of a ring subscriber; failures
// are logged and the event is not retried.
func (p *Publisher) Handle(ev types.DoorEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := p.Publish(ctx, ev); err != nil {
		p.log.Warn("publish door event failed", zap.String("event_id", ev.ID), zap.Error(err))
	}
}

func (p *Publisher) Publish(ctx context.Context, ev types.DoorEvent) error {
	msg, err := publishing(ev)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, p.exchange, RoutingKey(ev), false, false, msg)
}

func (p *Publisher) Close() error {
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// RoutingKey is door.<door>.<status> with dots and spaces in either part
// replaced so they stay single topic words, e.g. "denied (blackout)"
// becomes "denied_blackout".
func RoutingKey(ev types.DoorEvent) string {
	return "door." + topicWord(ev.Door) + "." + topicWord(ev.Status)
}

var topicReplacer = strings.NewReplacer(".", "_", " ", "_", "(", "", ")", "", "*", "_", "#", "_")

func topicWord(s string) string {
	s = topicReplacer.Replace(strings.TrimSpace(s))
	if s == "" {
		return "unknown"
	}
	return s
}

func publishing(ev types.DoorEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode door event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Timestamp:    ev.Timestamp,
		Type:         "gatewise.door_event",
		Headers: amqp.Table{
			"door":   ev.Door,
			"status": ev.Status,
		},
		Body: body,
	}, nil
}
