package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ErrPublisherClosed - публикация после Close.
var ErrPublisherClosed = errors.New("publisher channel is closed")

// Publisher отправляет события во внешнюю шину.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

const (
	maxConnectAttempts = 5
	reconnectDelay     = 2 * time.Second
)

// RabbitMQPublisher публикует события в topic exchange, routing key = тип события.
type RabbitMQPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	log      *zap.Logger
	mu       sync.Mutex
}

// DialRabbitMQ подключается к брокеру с повторными попытками и объявляет exchange.
func DialRabbitMQ(ctx context.Context, url, exchange string, log *zap.Logger) (*RabbitMQPublisher, error) {
	log = log.Named("rabbitmq_publisher")
	var (
		conn *amqp.Connection
		err  error
	)
	for attempt := 1; ; attempt++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		log.Warn("Failed to connect to RabbitMQ", zap.Int("attempt", attempt), zap.Error(err))
		if attempt >= maxConnectAttempts {
			return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", attempt, err)
		}
		select {
		case <-time.After(reconnectDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	p, err := NewRabbitMQPublisher(conn, exchange, log)
	if err != nil {
		conn.Close()
		return nil, err
	}
	log.Info("RabbitMQ publisher initialized", zap.String("exchange", exchange))
	return p, nil
}

// NewRabbitMQPublisher открывает канал на conn и объявляет durable topic exchange.
func NewRabbitMQPublisher(conn *amqp.Connection, exchange string, log *zap.Logger) (*RabbitMQPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel for publisher: %w", err)
	}
	err = ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	return &RabbitMQPublisher{conn: conn, ch: ch, exchange: exchange, log: log}, nil
}

// Publish отправляет событие как persistent JSON сообщение.
func (p *RabbitMQPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return ErrPublisherClosed
	}
	err = p.ch.PublishWithContext(ctx,
		p.exchange,
		string(event.Type),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    uuid.NewString(),
			Timestamp:    event.OccurredAt,
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}
	return nil
}

// Close закрывает канал и соединение.
func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return nil
	}
	chErr := p.ch.Close()
	p.ch = nil
	if p.conn != nil {
		return errors.Join(chErr, p.conn.Close())
	}
	return chErr
}
