// Package amqp publishes and consumes ledger change notifications over
// RabbitMQ.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	applog "rateio/internal/log"
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	publishTimeout = 5 * time.Second
	maxBackoff     = 30 * time.Second
	prefetchCount  = 1
)

// ErrCircuitOpen is returned while the publisher refuses to try the broker.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type Client struct {
	url          string
	exchangeName string
	queueName    string
	logger       *applog.Logger

	mu          sync.Mutex
	conn        *amqp091.Connection
	channel     *amqp091.Channel
	lastFailure time.Time

	failureCount int64
	state        int32
}

// NewClient connects to the broker and declares the exchange, queue and
// binding.
func NewClient(url, exchangeName, queueName string, logger *applog.Logger) (*Client, error) {
	if logger == nil {
		logger = applog.Default()
	}
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger:       logger.WithComponent(applog.ComponentAMQP),
	}
	if _, err := c.ensureChannel(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) log() *applog.Logger {
	if c.logger == nil {
		return applog.Default().WithComponent(applog.ComponentAMQP)
	}
	return c.logger
}

// ensureChannel returns an open channel, dialing again if the previous
// connection dropped.
func (c *Client) ensureChannel() (*amqp091.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil && !c.conn.IsClosed() && c.channel != nil && !c.channel.IsClosed() {
		return c.channel, nil
	}
	c.closeLocked()

	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := setup(channel, c.exchangeName, c.queueName); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	c.conn = conn
	c.channel = channel
	return channel, nil
}

func setup(ch *amqp091.Channel, exchangeName, queueName string) error {
	err := ch.ExchangeDeclare(
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

	_, err = ch.QueueDeclare(
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

	// Routing key equals the queue name on a direct exchange.
	if err := ch.QueueBind(queueName, queueName, exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// PublishLedgerChange publishes a persistent JSON change message.
func (c *Client) PublishLedgerChange(ctx context.Context, msg *LedgerChangeMessage) error {
	if c.isCircuitOpen() {
		return fmt.Errorf("publish ledger change: %w", ErrCircuitOpen)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ch, err := c.ensureChannel()
	if err != nil {
		c.recordFailure()
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = ch.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    msg.ID,
			Timestamp:    msg.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		c.recordFailure()
		if isConnectionError(err) {
			c.resetConnection()
		}
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()

	c.log().DebugContext(ctx, "Published ledger change",
		applog.FieldMessageID, msg.ID,
		applog.FieldChangeKind, msg.Kind,
		applog.FieldUserID, msg.UserID,
		applog.FieldPeriod, msg.Period)
	return nil
}

// Handler processes one change message. A returned error requeues it.
type Handler func(ctx context.Context, msg *LedgerChangeMessage) error

// ConsumeLedgerChanges delivers messages to handler until ctx is done,
// reconnecting with exponential backoff when the broker goes away.
func (c *Client) ConsumeLedgerChanges(ctx context.Context, handler Handler) error {
	attempt := 0
	for {
		err := c.consumeOnce(ctx, handler, func() { attempt = 0 })
		if ctx.Err() != nil {
			return ctx.Err()
		}

		wait := exponentialBackoff(attempt)
		attempt++
		c.log().WarnContext(ctx, "Consumer interrupted, reconnecting",
			applog.FieldError, err,
			"retry_in", wait.String())
		c.resetConnection()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (c *Client) consumeOnce(ctx context.Context, handler Handler, connected func()) error {
	ch, err := c.ensureChannel()
	if err != nil {
		return err
	}
	if err := ch.Qos(prefetchCount, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	msgs, err := ch.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	connected()
	c.log().InfoContext(ctx, "Started consuming ledger changes", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			c.log().InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			c.handleDelivery(ctx, delivery, handler)
		}
	}
}

func (c *Client) handleDelivery(ctx context.Context, delivery amqp091.Delivery, handler Handler) {
	msg, err := LedgerChangeMessageFromJSON(delivery.Body)
	if err != nil {
		c.log().ErrorContext(ctx, "Dropping malformed message", applog.FieldError, err)
		_ = delivery.Nack(false, false)
		return
	}

	if err := handler(ctx, msg); err != nil {
		c.log().ErrorContext(ctx, "Failed to handle ledger change",
			applog.FieldError, err,
			applog.FieldMessageID, msg.ID,
			applog.FieldUserID, msg.UserID,
			applog.FieldPeriod, msg.Period)
		_ = delivery.Nack(false, !delivery.Redelivered)
		return
	}

	_ = delivery.Ack(false)
	c.log().InfoContext(ctx, "Processed ledger change",
		applog.FieldMessageID, msg.ID,
		applog.FieldChangeKind, msg.Kind,
		applog.FieldUserID, msg.UserID,
		applog.FieldPeriod, msg.Period)
}

// isCircuitOpen reports whether publishes must be refused. An open circuit
// moves to half-open once openTimeout has elapsed.
func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.mu.Lock()
	last := c.lastFailure
	c.mu.Unlock()
	if time.Since(last) < openTimeout {
		return true
	}
	atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
	return false
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	failures := atomic.AddInt64(&c.failureCount, 1)
	if failures >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		c.mu.Lock()
		c.lastFailure = time.Now()
		c.mu.Unlock()
		if atomic.SwapInt32(&c.state, StateOpen) != StateOpen {
			c.log().Warn("Circuit breaker opened", "failures", failures)
		}
	}
}

// exponentialBackoff doubles from one second and caps at maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 5 {
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
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"connection", "eof", "broken pipe", "closed network"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func (c *Client) resetConnection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if c.channel != nil {
		_ = c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return nil
}
