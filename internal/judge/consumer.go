package judge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/go-playground/validator.v9"

	"github.com/udovin/grader/internal/core"
	"github.com/udovin/grader/internal/models"
	"github.com/udovin/grader/internal/pkg/logs"
)

// Source represents broker client that delivers judge results.
type Source interface {
	Consume(consumer string) (<-chan amqp.Delivery, error)
}

// ResultHandler represents handler of judge results.
type ResultHandler interface {
	HandleResult(ctx context.Context, msg JudgeResultMessage) error
}

// Consumer consumes judge results from broker.
type Consumer struct {
	core     *core.Core
	source   Source
	handler  ResultHandler
	tag      string
	validate *validator.Validate
}

// NewConsumer creates a new instance of Consumer.
func NewConsumer(
	c *core.Core, source Source, handler ResultHandler, tag string,
) *Consumer {
	return &Consumer{
		core:     c,
		source:   source,
		handler:  handler,
		tag:      tag,
		validate: validator.New(),
	}
}

// Start starts consuming of judge results.
func (c *Consumer) Start() error {
	deliveries, err := c.source.Consume(c.tag)
	if err != nil {
		return fmt.Errorf("cannot consume results: %w", err)
	}
	c.core.StartTask("judge_consumer", func(ctx context.Context) {
		c.run(ctx, deliveries)
	})
	return nil
}

func (c *Consumer) run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case delivery, ok := <-deliveries:
			if !ok {
				// Broker connection is lost, so process should be
				// restarted to subscribe again.
				c.core.Logger().Error("Result deliveries are closed")
				c.core.Interrupt()
				return
			}
			c.handleDelivery(ctx, delivery)
		}
	}
}

type deliveryAction int

const (
	ackDelivery deliveryAction = iota
	rejectDelivery
	requeueDelivery
)

func (c *Consumer) handleDelivery(ctx context.Context, delivery amqp.Delivery) {
	logger := c.core.Logger().With(
		logs.Any("delivery_tag", delivery.DeliveryTag),
		logs.Any("message_id", delivery.MessageId),
	)
	var err error
	switch c.processDelivery(ctx, delivery, logger) {
	case ackDelivery:
		err = delivery.Ack(false)
	case rejectDelivery:
		err = delivery.Nack(false, false)
	default:
		err = delivery.Nack(false, true)
	}
	if err != nil {
		logger.Error("Cannot acknowledge delivery", err)
	}
}

func (c *Consumer) processDelivery(
	ctx context.Context, delivery amqp.Delivery, logger *logs.Logger,
) deliveryAction {
	ctx, span := c.core.Tracer().Start(
		ctx, "judge.Consumer.HandleResult",
		trace.WithSpanKind(trace.SpanKindConsumer),
	)
	defer span.End()
	var msg JudgeResultMessage
	if err := json.Unmarshal(delivery.Body, &msg); err != nil {
		logger.Error("Cannot decode judge result", err)
		span.SetStatus(codes.Error, err.Error())
		return rejectDelivery
	}
	if err := c.validate.Struct(msg); err != nil {
		logger.Error("Invalid judge result", err)
		span.SetStatus(codes.Error, err.Error())
		return rejectDelivery
	}
	span.SetAttributes(
		attribute.Int64("submission_id", msg.SubmissionID),
		attribute.Int("result_code", int(msg.ResultCode)),
	)
	logger = logger.With(logs.Any("submission_id", msg.SubmissionID))
	err := c.handler.HandleResult(ctx, msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	switch {
	case err == nil:
		return ackDelivery
	case errors.Is(err, ErrJudgeServerError):
		logger.Error("Judge failed to grade submission", err, logs.Any("judge_error", msg.Error))
		return ackDelivery
	case IsProtocolError(err):
		logger.Error("Judge result violates protocol", err)
		return rejectDelivery
	case errors.Is(err, models.ErrEntityNotExist):
		// Redelivery cannot restore missing entities.
		logger.Error("Judge result references missing entity", err)
		return rejectDelivery
	default:
		logger.Warn("Cannot handle judge result", err)
		return requeueDelivery
	}
}
