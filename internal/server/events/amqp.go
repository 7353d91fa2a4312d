package events

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/daianaegermichels/financas/internal/logging"
	"github.com/rabbitmq/amqp091-go"
)

const (
	publishTimeout = 5 * time.Second
	dialTimeout    = 5 * time.Second
	redialInterval = 10 * time.Second
)

var (
	ErrPublisherClosed = errors.New("publisher closed")
	errNotConnected    = errors.New("broker not connected")
)

// channel is the subset of *amqp091.Channel used by AMQPPublisher.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	IsClosed() bool
	Close() error
}

type dialFunc func(url string) (io.Closer, channel, error)

func dialAMQP(url string) (io.Closer, channel, error) {
	conn, err := amqp091.DialConfig(url, amqp091.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp091.DefaultDial(dialTimeout),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}

	return conn, ch, nil
}

// AMQPPublisher publishes persistent JSON messages to a durable topic
// exchange, using the event type as routing key. A lost connection is
// redialled on a later Publish, at most once per redialInterval.
type AMQPPublisher struct {
	url      string
	exchange string
	dial     dialFunc
	logger   logging.Logger
	now      func() time.Time

	mu       sync.Mutex
	conn     io.Closer
	channel  channel
	lastDial time.Time
	closed   bool
}

// NewAMQPPublisher dials url and declares exchange.
func NewAMQPPublisher(url, exchange string, logger logging.Logger) (*AMQPPublisher, error) {
	return newAMQPPublisher(url, exchange, dialAMQP, logger)
}

func newAMQPPublisher(url, exchange string, dial dialFunc, logger logging.Logger) (*AMQPPublisher, error) {
	p := &AMQPPublisher{
		url:      url,
		exchange: exchange,
		dial:     dial,
		logger:   logger.With("module", "events"),
		now:      time.Now,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

// connect must be called with mu held.
func (p *AMQPPublisher) connect() error {
	p.lastDial = p.now()

	conn, ch, err := p.dial(p.url)
	if err != nil {
		return err
	}

	err = ch.ExchangeDeclare(
		p.exchange, // name
		"topic",    // type
		true,       // durable
		false,      // auto-deleted
		false,      // internal
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}

	p.conn, p.channel = conn, ch
	return nil
}

// drop must be called with mu held.
func (p *AMQPPublisher) drop() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
	p.conn, p.channel = nil, nil
}

// current returns a live channel, redialling when the previous one closed.
func (p *AMQPPublisher) current() (channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPublisherClosed
	}
	if p.channel != nil && !p.channel.IsClosed() {
		return p.channel, nil
	}

	p.drop()
	if p.now().Sub(p.lastDial) < redialInterval {
		return nil, errNotConnected
	}

	if err := p.connect(); err != nil {
		return nil, err
	}
	p.logger.Info(context.Background(), "reconnected to broker", "exchange", p.exchange)
	return p.channel, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, e Event) error {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = p.now()
	}

	body, err := e.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ch, err := p.current()
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = ch.PublishWithContext(
		ctx,
		p.exchange,     // exchange
		string(e.Type), // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    e.OccurredAt,
			Type:         string(e.Type),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	p.logger.Debug(ctx, "event published", "type", e.Type, "entry_id", e.EntryID, "user_id", e.UserID)
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true

	var err error
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		err = p.conn.Close()
	}
	p.conn, p.channel = nil, nil
	return err
}
