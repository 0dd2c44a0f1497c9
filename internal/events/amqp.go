package events

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/streadway/amqp"

	"newsletter-gate/internal/common/errors"
	"newsletter-gate/internal/common/logging"
)

// Channel abstracts the AMQP channel for testing
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Dialer opens a connection and a channel on it
type Dialer func(url string) (Channel, func() error, error)

// AMQPPublisher publishes events to a durable topic exchange with the event
// type as routing key. A broken channel is redialed on the next publish.
type AMQPPublisher struct {
	mu        sync.Mutex
	url       string
	exchange  string
	dial      Dialer
	ch        Channel
	closeConn func() error
	logger    logging.Logger
}

// NewAMQPPublisher connects and declares the exchange
func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	return NewAMQPPublisherWithDialer(url, exchange, dialAMQP)
}

func NewAMQPPublisherWithDialer(url, exchange string, dial Dialer) (*AMQPPublisher, error) {
	if url == "" {
		return nil, errors.ConfigError("AMQP URL is required")
	}
	if exchange == "" {
		exchange = "newslettergate"
	}

	p := &AMQPPublisher{
		url:      url,
		exchange: exchange,
		dial:     dial,
		logger: logging.GetGlobalLogger().WithFields(
			logging.String("component", "amqp_events"),
			logging.String("exchange", exchange),
		),
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func dialAMQP(url string) (Channel, func() error, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	return ch, conn.Close, nil
}

// connect must be called with mu held
func (p *AMQPPublisher) connect() error {
	ch, closeConn, err := p.dial(p.url)
	if err != nil {
		return errors.ConnectionError("failed to connect to AMQP broker", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		if closeConn != nil {
			closeConn()
		}
		return errors.ConnectionError("failed to declare exchange "+p.exchange, err)
	}

	p.ch = ch
	p.closeConn = closeConn
	return nil
}

// disconnect must be called with mu held
func (p *AMQPPublisher) disconnect() {
	if p.ch != nil {
		p.ch.Close()
		p.ch = nil
	}
	if p.closeConn != nil {
		p.closeConn()
		p.closeConn = nil
	}
}

func (p *AMQPPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return errors.InternalError("failed to marshal event", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    event.OccurredAt,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil {
		if err := p.connect(); err != nil {
			return err
		}
	}

	if err := p.ch.Publish(p.exchange, event.Type, false, false, msg); err != nil {
		p.logger.Warn("AMQP publish failed, reconnecting", logging.Err(err))
		p.disconnect()
		if err := p.connect(); err != nil {
			return err
		}
		if err := p.ch.Publish(p.exchange, event.Type, false, false, msg); err != nil {
			return errors.ConnectionError("failed to publish event to AMQP", err)
		}
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disconnect()
	return nil
}
