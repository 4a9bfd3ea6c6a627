// Package notify publishes status of finalized submissions.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/udovin/grader/internal/config"
	"github.com/udovin/grader/internal/models"
)

// SubmissionStatus represents status of finalized submission.
type SubmissionStatus struct {
	SubmissionID int64          `json:"submission_id"`
	UserID       int64          `json:"user_id"`
	ProblemID    int64          `json:"problem_id"`
	Verdict      models.Verdict `json:"verdict"`
	Score        int64          `json:"score"`
	Error        string         `json:"error,omitempty"`
}

// Notifier represents sink for submission status updates.
type Notifier interface {
	Notify(ctx context.Context, status SubmissionStatus) error
}

// NewSubmissionStatus returns status of submission.
func NewSubmissionStatus(submission models.Submission) SubmissionStatus {
	return SubmissionStatus{
		SubmissionID: submission.ID,
		UserID:       submission.UserID,
		ProblemID:    submission.ProblemID,
		Verdict:      submission.Verdict,
		Score:        submission.Score,
		Error:        string(submission.Error),
	}
}

// Channel returns pub/sub channel of submission.
func Channel(submissionID int64) string {
	return fmt.Sprintf("submission:%d", submissionID)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, SubmissionStatus) error {
	return nil
}

// NewNopNotifier returns notifier that drops all updates.
func NewNopNotifier() Notifier {
	return nopNotifier{}
}

// Publisher represents redis pub/sub client.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisNotifier publishes JSON statuses into redis channels.
type RedisNotifier struct {
	client Publisher
}

// Notify publishes status into channel of submission.
func (n *RedisNotifier) Notify(ctx context.Context, status SubmissionStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, Channel(status.SubmissionID), data).Err()
}

// NewRedisNotifier creates a new instance of RedisNotifier.
func NewRedisNotifier(client Publisher) *RedisNotifier {
	return &RedisNotifier{client: client}
}

// NewRedisClient creates redis client from config.
func NewRedisClient(cfg config.Redis) (*redis.Client, error) {
	password, err := cfg.Password.Secret()
	if err != nil {
		return nil, err
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: password,
		DB:       cfg.DB,
	}), nil
}
