package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/udovin/grader/internal/core"
	"github.com/udovin/grader/internal/models"
	"github.com/udovin/grader/internal/pkg/logs"
)

const (
	requestType        = "judge"
	requestContentType = "application/json"
	requestPriority    = 3
)

// Sender represents broker client that publishes confirmed messages.
type Sender interface {
	Publish(ctx context.Context, key string, msg amqp.Publishing) error
}

// Publisher publishes judge requests for submissions.
type Publisher struct {
	core   *core.Core
	sender Sender
	key    string
}

// NewPublisher creates a new instance of Publisher.
func NewPublisher(c *core.Core, sender Sender, key string) *Publisher {
	return &Publisher{core: c, sender: sender, key: key}
}

// Publish sends judge request for submission and waits for broker
// confirmation.
//
// Returns models.ErrEntityNotExist if problem of submission is missing.
func (p *Publisher) Publish(
	ctx context.Context, code []models.Snippet, submission models.Submission,
) (err error) {
	ctx, span := p.core.Tracer().Start(
		ctx, "judge.Publisher.Publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.Int64("submission_id", submission.ID),
			attribute.Int64("problem_id", submission.ProblemID),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	problem, err := p.core.Problems.Get(ctx, submission.ProblemID)
	if err != nil {
		if models.IsNotFound(err) {
			return fmt.Errorf("problem %d: %w", submission.ProblemID, models.ErrEntityNotExist)
		}
		return err
	}
	request := NewJudgeRequest(code, submission.Language, problem)
	body, err := json.Marshal(request)
	if err != nil {
		return err
	}
	correlationID := uuid.NewString()
	if err := p.sender.Publish(ctx, p.key, amqp.Publishing{
		ContentType:   requestContentType,
		DeliveryMode:  amqp.Persistent,
		Priority:      requestPriority,
		CorrelationId: correlationID,
		MessageId:     strconv.FormatInt(submission.ID, 10),
		Timestamp:     p.core.Now(),
		Type:          requestType,
		Body:          body,
	}); err != nil {
		return err
	}
	p.core.Logger().Debug(
		"Published judge request",
		logs.Any("submission_id", submission.ID),
		logs.Any("correlation_id", correlationID),
	)
	return nil
}
