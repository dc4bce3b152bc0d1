// Package service holds process-level collaborators that sit beside the HTTP
// surface.  Currently it announces lifecycle transitions on RabbitMQ.
package service

import (
    "context"
    "encoding/json"
    "fmt"
    "log"
    "time"

    "github.com/google/uuid"
    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/Serious-senpai/pet-house/internal/config"
    q "github.com/Serious-senpai/pet-house/internal/queue"
)

// Announcer publishes lifecycle transitions.  Implementations must be safe
// to call when the broker is gone; failures are reported, never fatal.
type Announcer interface {
    Announce(ctx context.Context, status string) error
    Close() error
}

// Instance describes the running process for lifecycle events.
type Instance struct {
    Service string
    Version string
    Env     string
    Addr    string
}

// NewLifecycleEvent builds the event for status with a fresh ID.
func NewLifecycleEvent(in Instance, status string, now time.Time) q.LifecycleEvent {
    return q.LifecycleEvent{
        Meta: q.EventMeta{
            ID:       uuid.NewString(),
            Type:     fmt.Sprintf("service.%s.v1", status),
            Producer: in.Service + "@" + in.Version,
            Time:     now.UTC(),
        },
        Data: q.ServiceStatus{
            Service: in.Service,
            Version: in.Version,
            Status:  status,
            Addr:    in.Addr,
            Env:     in.Env,
        },
    }
}

// LifecyclePublisher sends lifecycle events to a durable topic exchange.
type LifecyclePublisher struct {
    conn     *amqp.Connection
    exchange string
    instance Instance
}

// NewAnnouncer returns a LifecyclePublisher when a broker is configured and
// reachable, and a no-op Announcer otherwise.
func NewAnnouncer(cfg config.BrokerConfig, in Instance) Announcer {
    if !cfg.Enabled() {
        return nopAnnouncer{}
    }
    p, err := NewLifecyclePublisher(cfg, in)
    if err != nil {
        log.Printf("rabbitmq: lifecycle events disabled: %v", err)
        return nopAnnouncer{}
    }
    return p
}

// NewLifecyclePublisher dials the broker and declares the exchange.
func NewLifecyclePublisher(cfg config.BrokerConfig, in Instance) (*LifecyclePublisher, error) {
    conn, err := amqp.Dial(cfg.URL)
    if err != nil {
        return nil, fmt.Errorf("dial: %w", err)
    }
    ch, err := conn.Channel()
    if err != nil {
        _ = conn.Close()
        return nil, fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.ExchangeDeclare(
        cfg.Exchange, // name
        "topic",      // kind
        true,         // durable
        false,        // autoDelete
        false,        // internal
        false,        // noWait
        nil,          // args
    ); err != nil {
        _ = conn.Close()
        return nil, fmt.Errorf("exchange declare: %w", err)
    }
    return &LifecyclePublisher{conn: conn, exchange: cfg.Exchange, instance: in}, nil
}

// Announce publishes one lifecycle event.  Errors are logged and returned.
func (p *LifecyclePublisher) Announce(ctx context.Context, status string) error {
    ev := NewLifecycleEvent(p.instance, status, time.Now())
    body, err := json.Marshal(ev)
    if err != nil {
        log.Printf("rabbitmq: marshal event failed: %v", err)
        return err
    }

    ch, err := p.conn.Channel()
    if err != nil {
        log.Printf("rabbitmq: channel open failed: %v", err)
        return err
    }
    defer func() { _ = ch.Close() }()

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        MessageId:    ev.Meta.ID,
        Timestamp:    ev.Meta.Time,
        Type:         ev.Meta.Type,
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, p.exchange, ev.RoutingKey(), false, false, pub); err != nil {
        log.Printf("rabbitmq: publish %s failed: %v", ev.Meta.Type, err)
        return err
    }
    return nil
}

func (p *LifecyclePublisher) Close() error { return p.conn.Close() }

type nopAnnouncer struct{}

func (nopAnnouncer) Announce(context.Context, string) error { return nil }
func (nopAnnouncer) Close() error                           { return nil }
