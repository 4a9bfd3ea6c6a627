package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/nsf/jsondiff"
	"github.com/redis/go-redis/v9"

	"github.com/udovin/grader/internal/config"
	"github.com/udovin/grader/internal/models"
)

type testPublisher struct {
	channel string
	message []byte
	err     error
}

func (p *testPublisher) Publish(
	ctx context.Context, channel string, message any,
) *redis.IntCmd {
	p.channel = channel
	p.message = message.([]byte)
	return redis.NewIntResult(1, p.err)
}

func TestRedisNotifier(t *testing.T) {
	publisher := testPublisher{}
	notifier := NewRedisNotifier(&publisher)
	submission := models.Submission{
		UserID:    2,
		ProblemID: 3,
		Verdict:   models.WrongAnswer,
		Score:     50,
	}
	submission.ID = 1
	if err := notifier.Notify(context.Background(), NewSubmissionStatus(submission)); err != nil {
		t.Fatal("Error:", err)
	}
	if publisher.channel != "submission:1" {
		t.Fatalf("Expected %q, got %q", "submission:1", publisher.channel)
	}
	expected := `{"submission_id":1,"user_id":2,"problem_id":3,"verdict":"WrongAnswer","score":50}`
	options := jsondiff.DefaultConsoleOptions()
	if diff, s := jsondiff.Compare([]byte(expected), publisher.message, &options); diff != jsondiff.FullMatch {
		t.Fatalf("Unexpected status: %s", s)
	}
	publisher.err = errors.New("test error")
	if err := notifier.Notify(context.Background(), SubmissionStatus{}); err == nil {
		t.Fatal("Expected error")
	}
}

func TestNopNotifier(t *testing.T) {
	if err := NewNopNotifier().Notify(context.Background(), SubmissionStatus{}); err != nil {
		t.Fatal("Error:", err)
	}
}

func TestNewRedisClient(t *testing.T) {
	client, err := NewRedisClient(config.Redis{Addr: "localhost:6379", DB: 1})
	if err != nil {
		t.Fatal("Error:", err)
	}
	defer func() { _ = client.Close() }()
	if client.Options().DB != 1 {
		t.Fatalf("Expected %v, got %v", 1, client.Options().DB)
	}
	if _, err := NewRedisClient(config.Redis{Password: "env:GRADER_MISSING_REDIS_PASSWORD"}); err == nil {
		t.Fatal("Expected error")
	}
}
