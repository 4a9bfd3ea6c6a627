// Package broker contains AMQP client used for judge requests and results.
package broker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/udovin/algo/futures"

	"github.com/udovin/grader/internal/config"
	"github.com/udovin/grader/internal/pkg/logs"
)

var (
	// ErrNotConfirmed means that broker rejected published message.
	ErrNotConfirmed = errors.New("message is not confirmed by broker")
	// ErrClosed means that channel was closed before confirmation.
	ErrClosed = errors.New("broker channel is closed")
)

// Channel represents subset of AMQP channel methods used by client.
type Channel interface {
	Confirm(noWait bool) error
	NotifyPublish(confirm chan amqp.Confirmation) chan amqp.Confirmation
	GetNextPublishSeqNo() uint64
	PublishWithContext(
		ctx context.Context, exchange, key string,
		mandatory, immediate bool, msg amqp.Publishing,
	) error
	ExchangeDeclare(
		name, kind string, durable, autoDelete, internal, noWait bool,
		args amqp.Table,
	) error
	QueueDeclare(
		name string, durable, autoDelete, exclusive, noWait bool,
		args amqp.Table,
	) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(
		queue, consumer string, autoAck, exclusive, noLocal, noWait bool,
		args amqp.Table,
	) (<-chan amqp.Delivery, error)
	IsClosed() bool
	Close() error
}

// Client represents AMQP client with publisher confirms.
type Client struct {
	conn    *amqp.Connection
	channel Channel
	config  config.Broker
	logger  *logs.Logger
	// pending contains confirm callbacks by delivery tag.
	pending map[uint64]func(bool, error)
	mutex   sync.Mutex
	done    chan struct{}
}

// URL returns AMQP URL for broker config.
func URL(cfg config.Broker) (string, error) {
	password, err := cfg.Password.Secret()
	if err != nil {
		return "", err
	}
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(cfg.User, password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
	}
	// Empty path means default vhost.
	if cfg.VHost != "" && cfg.VHost != "/" {
		u.Path = "/" + cfg.VHost
		u.RawPath = "/" + url.PathEscape(cfg.VHost)
	}
	return u.String(), nil
}

// Dial connects to broker and declares judge exchange and result queue.
func Dial(cfg config.Broker, logger *logs.Logger) (*Client, error) {
	cfg = cfg.WithDefaults()
	addr, err := URL(cfg)
	if err != nil {
		return nil, err
	}
	amqpConfig := amqp.Config{Properties: amqp.NewConnectionProperties()}
	amqpConfig.Properties.SetClientConnectionName("grader-" + uuid.NewString())
	conn, err := amqp.DialConfig(addr, amqpConfig)
	if err != nil {
		return nil, fmt.Errorf("cannot dial broker: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("cannot open channel: %w", err)
	}
	client, err := NewClient(channel, cfg, logger)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	client.conn = conn
	return client, nil
}

// NewClient creates client over opened channel.
//
// Channel is switched into confirm mode, judge exchange and result
// queue are declared.
func NewClient(channel Channel, cfg config.Broker, logger *logs.Logger) (*Client, error) {
	cfg = cfg.WithDefaults()
	if err := channel.Confirm(false); err != nil {
		return nil, fmt.Errorf("cannot enable confirm mode: %w", err)
	}
	if err := channel.ExchangeDeclare(
		cfg.Exchange, amqp.ExchangeDirect, true, false, false, false, nil,
	); err != nil {
		return nil, fmt.Errorf("cannot declare exchange: %w", err)
	}
	if _, err := channel.QueueDeclare(
		cfg.ResultQueue, true, false, false, false, nil,
	); err != nil {
		return nil, fmt.Errorf("cannot declare queue: %w", err)
	}
	if err := channel.QueueBind(
		cfg.ResultQueue, cfg.ResultKey, cfg.Exchange, false, nil,
	); err != nil {
		return nil, fmt.Errorf("cannot bind queue: %w", err)
	}
	c := Client{
		channel: channel,
		config:  cfg,
		logger:  logger,
		pending: map[uint64]func(bool, error){},
		done:    make(chan struct{}),
	}
	confirms := channel.NotifyPublish(make(chan amqp.Confirmation, 16))
	go c.handleConfirms(confirms)
	return &c, nil
}

// Config returns broker config with defaults.
func (c *Client) Config() config.Broker {
	return c.config
}

// Publish publishes message to judge exchange and waits for confirmation.
func (c *Client) Publish(ctx context.Context, key string, msg amqp.Publishing) error {
	future, err := c.publish(ctx, key, msg)
	if err != nil {
		return err
	}
	ack, err := future.Get(ctx)
	if err != nil {
		return err
	}
	if !ack {
		return ErrNotConfirmed
	}
	return nil
}

func (c *Client) publish(
	ctx context.Context, key string, msg amqp.Publishing,
) (futures.Future[bool], error) {
	var empty futures.Future[bool]
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.pending == nil {
		return empty, ErrClosed
	}
	tag := c.channel.GetNextPublishSeqNo()
	future, setResult := futures.New[bool]()
	c.pending[tag] = setResult
	if err := c.channel.PublishWithContext(
		ctx, c.config.Exchange, key, false, false, msg,
	); err != nil {
		delete(c.pending, tag)
		return empty, fmt.Errorf("cannot publish message: %w", err)
	}
	return future, nil
}

func (c *Client) handleConfirms(confirms <-chan amqp.Confirmation) {
	defer close(c.done)
	for confirm := range confirms {
		c.mutex.Lock()
		setResult, ok := c.pending[confirm.DeliveryTag]
		delete(c.pending, confirm.DeliveryTag)
		c.mutex.Unlock()
		if !ok {
			c.logger.Warn(
				"Unexpected confirmation",
				logs.Any("delivery_tag", confirm.DeliveryTag),
			)
			continue
		}
		if !confirm.Ack {
			c.logger.Error(
				"Message is not confirmed",
				logs.Any("delivery_tag", confirm.DeliveryTag),
			)
		}
		setResult(confirm.Ack, nil)
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	for _, setResult := range c.pending {
		setResult(false, ErrClosed)
	}
	c.pending = nil
}

// Consume starts consuming judge results with prefetch of one message.
func (c *Client) Consume(consumer string) (<-chan amqp.Delivery, error) {
	if err := c.channel.Qos(1, 0, false); err != nil {
		return nil, fmt.Errorf("cannot set qos: %w", err)
	}
	return c.channel.Consume(
		c.config.ResultQueue, consumer, false, false, false, false, nil,
	)
}

// Ping returns error if broker channel is closed.
func (c *Client) Ping() error {
	if c.channel.IsClosed() {
		return ErrClosed
	}
	return nil
}

// Close closes channel and connection.
func (c *Client) Close() error {
	err := c.channel.Close()
	<-c.done
	if c.conn != nil {
		if cerr := c.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
