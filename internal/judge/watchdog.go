package judge

import (
	"context"
	"time"

	"github.com/udovin/grader/internal/core"
	"github.com/udovin/grader/internal/pkg/logs"
)

const watchdogLimit = 100

// Watchdog reports submissions that are judging for too long.
//
// Watchdog never changes submissions, stuck submissions should be
// investigated by operator.
type Watchdog struct {
	core       *core.Core
	staleAfter time.Duration
	interval   time.Duration
}

// NewWatchdog creates a new instance of Watchdog.
func NewWatchdog(c *core.Core, staleAfter, interval time.Duration) *Watchdog {
	if staleAfter <= 0 {
		staleAfter = 15 * time.Minute
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Watchdog{core: c, staleAfter: staleAfter, interval: interval}
}

// Start starts periodic checks.
func (w *Watchdog) Start() {
	w.core.StartTask("judge_watchdog", w.run)
}

func (w *Watchdog) run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Check(ctx); err != nil {
				w.core.Logger().Warn("Cannot check judging submissions", err)
			}
		}
	}
}

// Check logs stale judging submissions and returns their amount.
func (w *Watchdog) Check(ctx context.Context) (int, error) {
	before := w.core.Now().Add(-w.staleAfter).Unix()
	submissions, err := w.core.Submissions.FindJudgingBefore(ctx, before, watchdogLimit)
	if err != nil {
		return 0, err
	}
	for _, submission := range submissions {
		w.core.Logger().Warn(
			"Submission is judging for too long",
			logs.Any("submission_id", submission.ID),
			logs.Any("problem_id", submission.ProblemID),
			logs.Any("create_time", submission.CreateTime),
		)
	}
	return len(submissions), nil
}
