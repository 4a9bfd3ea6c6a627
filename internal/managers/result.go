package managers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/udovin/gosql"

	"github.com/udovin/grader/internal/core"
	"github.com/udovin/grader/internal/judge"
	"github.com/udovin/grader/internal/models"
	"github.com/udovin/grader/internal/notify"
	"github.com/udovin/grader/internal/pkg/logs"
)

var sqlReadCommitted = gosql.WithIsolation(sql.LevelReadCommitted)

// ResultManager applies judge results to submissions.
type ResultManager struct {
	core     *core.Core
	scoring  *ScoringManager
	notifier notify.Notifier
}

// NewResultManager creates a new instance of ResultManager.
func NewResultManager(
	core *core.Core, scoring *ScoringManager, notifier notify.Notifier,
) *ResultManager {
	return &ResultManager{core: core, scoring: scoring, notifier: notifier}
}

// HandleResult applies judge result message.
//
// Results for submissions that are not judging are ignored, so
// duplicate and late messages do not change anything. Returns
// judge.ErrJudgeServerError after server error verdict is saved.
func (m *ResultManager) HandleResult(
	ctx context.Context, msg judge.JudgeResultMessage,
) error {
	verdict, err := msg.ResultCode.Verdict()
	if err != nil {
		return err
	}
	var testcaseID int64
	if !isSubmissionVerdict(verdict) {
		if msg.JudgeResult == nil {
			return fmt.Errorf(
				"submission %d: %w", msg.SubmissionID, judge.ErrMissingJudgeResult,
			)
		}
		if testcaseID, err = msg.JudgeResult.ParseTestcaseID(); err != nil {
			return err
		}
	}
	logger := m.core.Logger().With(logs.Any("submission_id", msg.SubmissionID))
	var finalized *models.Submission
	judging := false
	if err := m.core.WrapTx(ctx, func(ctx context.Context) error {
		now := m.core.Now().Unix()
		ok, err := m.core.Submissions.TouchJudging(ctx, msg.SubmissionID, now)
		if err != nil {
			return err
		}
		if !ok {
			logger.Debug("Ignoring result for submission that is not judging")
			return nil
		}
		judging = true
		submission, err := m.core.Submissions.Get(ctx, msg.SubmissionID)
		if err != nil {
			return err
		}
		if isSubmissionVerdict(verdict) {
			submission.Error = models.NString(msg.Error)
			ok, err := m.finalize(ctx, &submission, verdict)
			if ok {
				finalized = &submission
			}
			return err
		}
		final, err := m.applyTestcaseResult(ctx, &submission, testcaseID, verdict, msg, logger)
		if err != nil || final == nil {
			return err
		}
		ok, err = m.finalize(ctx, &submission, *final)
		if ok {
			finalized = &submission
		}
		return err
	}, sqlReadCommitted); err != nil {
		return err
	}
	if finalized != nil {
		logger.Info("Submission finalized", logs.Any("verdict", finalized.Verdict.String()))
		if err := m.notifier.Notify(ctx, notify.NewSubmissionStatus(*finalized)); err != nil {
			logger.Warn("Cannot notify submission status", err)
		}
	}
	if judging && verdict == models.ServerError {
		return fmt.Errorf(
			"submission %d: %w: %s", msg.SubmissionID, judge.ErrJudgeServerError, msg.Error,
		)
	}
	return nil
}

// isSubmissionVerdict returns true if verdict is reported for whole
// submission instead of single testcase.
func isSubmissionVerdict(verdict models.Verdict) bool {
	return verdict == models.CompileError || verdict == models.ServerError
}

// applyTestcaseResult saves result of testcase and returns overall
// verdict when all expected testcases are judged.
//
// Expected testcases are fixed when submission is created, so later
// changes of problem testcases do not affect judging submissions.
func (m *ResultManager) applyTestcaseResult(
	ctx context.Context, submission *models.Submission, testcaseID int64,
	verdict models.Verdict, msg judge.JudgeResultMessage, logger *logs.Logger,
) (*models.Verdict, error) {
	ids, err := submission.GetTestcaseIDs()
	if err != nil {
		return nil, err
	}
	expected := map[int64]struct{}{}
	for _, id := range ids {
		expected[id] = struct{}{}
	}
	if _, ok := expected[testcaseID]; !ok {
		logger.Warn(
			"Ignoring result for unknown testcase",
			logs.Any("testcase_id", testcaseID),
		)
		return nil, nil
	}
	result := models.SubmissionResult{
		SubmissionID: submission.ID,
		TestcaseID:   testcaseID,
		Verdict:      verdict,
		CPUTime:      msg.JudgeResult.CPUTime,
		Memory:       msg.JudgeResult.Memory,
		Output:       models.NString(msg.JudgeResult.Output),
	}
	created, err := m.core.SubmissionResults.Upsert(ctx, &result)
	if err != nil {
		return nil, err
	}
	// Repeated result of the same testcase is counted once.
	if created && isGradedVerdict(verdict) {
		if err := m.core.Testcases.IncrementCounters(
			ctx, testcaseID, verdict == models.Accepted,
		); err != nil {
			return nil, fmt.Errorf("cannot update testcase counters: %w", err)
		}
	}
	results, err := m.core.SubmissionResults.FindBySubmission(ctx, submission.ID)
	if err != nil {
		return nil, err
	}
	final := models.Accepted
	accepted := map[int64]bool{}
	count := 0
	for _, result := range results {
		if _, ok := expected[result.TestcaseID]; !ok {
			continue
		}
		count++
		if result.Verdict == models.Judging {
			return nil, nil
		}
		if result.Verdict == models.Accepted {
			accepted[result.TestcaseID] = true
		} else if final == models.Accepted {
			// Results are ordered by testcase, so first failed
			// testcase defines verdict.
			final = result.Verdict
		}
	}
	if count < len(expected) {
		return nil, nil
	}
	testcases, err := m.core.Testcases.FindByProblem(ctx, submission.ProblemID)
	if err != nil {
		return nil, err
	}
	var judged []models.Testcase
	for _, testcase := range testcases {
		if _, ok := expected[testcase.ID]; ok {
			judged = append(judged, testcase)
		}
	}
	submission.Score = models.WeightedScore(judged, accepted)
	return &final, nil
}

// isGradedVerdict returns true if verdict is real outcome of testcase.
func isGradedVerdict(verdict models.Verdict) bool {
	switch verdict {
	case models.Judging, models.ServerError, models.Blind:
		return false
	default:
		return true
	}
}

// finalize moves submission to terminal verdict and updates problem
// counters and standings.
//
// Returns false if submission was already finalized.
func (m *ResultManager) finalize(
	ctx context.Context, submission *models.Submission, verdict models.Verdict,
) (bool, error) {
	if err := m.core.Submissions.Finalize(ctx, submission, verdict); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	// Server errors are failures of judge, so they are not counted.
	if verdict == models.ServerError {
		return true, nil
	}
	accepted := verdict == models.Accepted
	if err := m.core.Problems.IncrementCounters(
		ctx, submission.ProblemID, accepted,
	); err != nil {
		return false, fmt.Errorf("cannot update problem counters: %w", err)
	}
	if submission.IsScored() {
		if err := m.scoring.ApplyVerdict(ctx, *submission, accepted); err != nil {
			return false, fmt.Errorf("cannot apply verdict to standing: %w", err)
		}
	}
	return true, nil
}
