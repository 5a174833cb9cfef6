package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"

	applog "logdash/internal/log"
)

const (
	maxFailures = 3
	openTimeout = 30 * time.Second
	maxBackoff  = 30 * time.Second
)

var errNotConnected = errors.New("amqp connection not established")

type Client struct {
	url          string
	exchangeName string
	queueName    string
	logger       *applog.Logger

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	cb *gobreaker.CircuitBreaker
}

func NewClient(url, exchangeName, queueName string, logger *applog.Logger) (*Client, error) {
	client := newClient(url, exchangeName, queueName, logger)
	if err := client.connect(); err != nil {
		return nil, err
	}
	return client, nil
}

// NewConsumerClient returns a client even when the broker is not reachable
// yet; ConsumeRefreshRequests keeps reconnecting in the background.
func NewConsumerClient(url, exchangeName, queueName string, logger *applog.Logger) *Client {
	client := newClient(url, exchangeName, queueName, logger)
	if err := client.connect(); err != nil {
		client.logger.Warn("AMQP unavailable at startup, will retry", applog.FieldError, err)
	}
	return client
}

func newClient(url, exchangeName, queueName string, logger *applog.Logger) *Client {
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentAMQP)
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger:       logger,
	}
	c.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "amqp-publish",
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String())
		},
	})
	return c
}

func (c *Client) connect() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := setup(channel, c.exchangeName, c.queueName); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.channel = channel
	c.mu.Unlock()
	return nil
}

func setup(channel *amqp091.Channel, exchangeName, queueName string) error {
	// Declare exchange
	err := channel.ExchangeDeclare(
		exchangeName, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	// Declare queue
	_, err = channel.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Bind queue to exchange
	err = channel.QueueBind(
		queueName,    // queue name
		queueName,    // routing key (same as queue name for direct exchange)
		exchangeName, // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

func (c *Client) currentChannel() *amqp091.Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel
}

// PublishRefreshRequest publishes a refresh request on behalf of source.
func (c *Client) PublishRefreshRequest(ctx context.Context, source string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := NewRefreshRequest(source)
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	_, err = c.cb.Execute(func() (any, error) {
		ch := c.currentChannel()
		if ch == nil {
			return nil, errNotConnected
		}

		pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		return nil, ch.PublishWithContext(
			pubCtx,
			c.exchangeName, // exchange
			c.queueName,    // routing key
			false,          // mandatory
			false,          // immediate
			amqp091.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp091.Persistent,
				Timestamp:    msg.RequestedAt,
				Body:         body,
			},
		)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("circuit breaker is open: %w", err)
	}
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	c.logger.InfoContext(ctx, "Published refresh request",
		applog.FieldSource, msg.Source,
		"exchange", c.exchangeName,
		"queue", c.queueName)

	return nil
}

// RefreshHandler processes one refresh request. A returned error requeues
// the message.
type RefreshHandler func(ctx context.Context, msg *RefreshRequest) error

// ConsumeRefreshRequests consumes refresh requests until ctx is done. A lost
// connection is re-established with exponential backoff.
func (c *Client) ConsumeRefreshRequests(ctx context.Context, handler RefreshHandler) error {
	attempt := 0
	for {
		err := c.consume(ctx, handler)
		if ctx.Err() != nil {
			c.logger.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		}
		if !isConnectionError(err) {
			return err
		}

		wait := exponentialBackoff(attempt)
		c.logger.WarnContext(ctx, "AMQP connection lost, reconnecting",
			applog.FieldError, err,
			"attempt", attempt+1,
			"backoff", wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		if err := c.connect(); err != nil {
			attempt++
			continue
		}
		attempt = 0
	}
}

func (c *Client) consume(ctx context.Context, handler RefreshHandler) error {
	ch := c.currentChannel()
	if ch == nil {
		return errNotConnected
	}

	msgs, err := ch.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.logger.InfoContext(ctx, "Started consuming refresh requests", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed: %w", amqp091.ErrClosed)
			}

			switch c.dispatch(ctx, delivery.Body, handler) {
			case actionAck:
				delivery.Ack(false)
			case actionRequeue:
				delivery.Nack(false, true)
			case actionDrop:
				delivery.Nack(false, false)
			}
		}
	}
}

type deliveryAction int

const (
	actionAck deliveryAction = iota
	actionRequeue
	actionDrop
)

func (c *Client) dispatch(ctx context.Context, body []byte, handler RefreshHandler) deliveryAction {
	msg, err := RefreshRequestFromJSON(body)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to unmarshal message", applog.FieldError, err)
		return actionDrop
	}

	if err := handler(ctx, msg); err != nil {
		c.logger.ErrorContext(ctx, "Failed to handle message",
			applog.FieldError, err,
			applog.FieldSource, msg.Source)
		return actionRequeue
	}
	return actionAck
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

// exponentialBackoff returns 1s, 2s, 4s ... capped at 30s.
func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) || errors.Is(err, errNotConnected) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe", "closed network"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
