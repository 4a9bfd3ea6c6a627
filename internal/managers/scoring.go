package managers

import (
	"context"
	"fmt"

	"github.com/udovin/grader/internal/core"
	"github.com/udovin/grader/internal/models"
)

// ScoringManager applies finalized verdicts to standings.
type ScoringManager struct {
	submissions        *models.SubmissionStore
	contestProblems    *models.ContestProblemStore
	contestRecords     *models.ContestRecordStore
	assignmentProblems *models.AssignmentProblemStore
	assignmentRecords  *models.AssignmentRecordStore
}

// NewScoringManager creates a new instance of ScoringManager.
func NewScoringManager(core *core.Core) *ScoringManager {
	return &ScoringManager{
		submissions:        core.Submissions,
		contestProblems:    core.ContestProblems,
		contestRecords:     core.ContestRecords,
		assignmentProblems: core.AssignmentProblems,
		assignmentRecords:  core.AssignmentRecords,
	}
}

// ApplyVerdict updates standing of submission author.
//
// Accepted submission adds score of problem, increments amount of
// accepted problems and sets finish time, other verdicts increment
// penalty. Should be called once per submission at finalization,
// after verdict of submission is saved.
//
// Only first accepted submission of problem is counted. Verdicts of
// submissions finalized after it do not change standing.
func (m *ScoringManager) ApplyVerdict(
	ctx context.Context, submission models.Submission, accepted bool,
) error {
	switch {
	case submission.ContestID != 0:
		contestID := int64(submission.ContestID)
		record, err := m.contestRecords.FindByUser(ctx, contestID, submission.UserID)
		if err != nil {
			return wrapStandingError(err, "contest", contestID, submission.UserID)
		}
		// Empty delta locks standing row.
		if err := m.contestRecords.Apply(ctx, record.ID, models.StandingDelta{}); err != nil {
			return err
		}
		if solved, err := m.isSolved(ctx, submission); err != nil || solved {
			return err
		}
		delta, err := makeDelta(submission, accepted, func() (int64, error) {
			problem, err := m.contestProblems.FindByProblem(ctx, contestID, submission.ProblemID)
			return problem.Score, err
		})
		if err != nil {
			return err
		}
		return m.contestRecords.Apply(ctx, record.ID, delta)
	case submission.AssignmentID != 0:
		assignmentID := int64(submission.AssignmentID)
		record, err := m.assignmentRecords.FindByUser(ctx, assignmentID, submission.UserID)
		if err != nil {
			return wrapStandingError(err, "assignment", assignmentID, submission.UserID)
		}
		// Empty delta locks standing row.
		if err := m.assignmentRecords.Apply(ctx, record.ID, models.StandingDelta{}); err != nil {
			return err
		}
		if solved, err := m.isSolved(ctx, submission); err != nil || solved {
			return err
		}
		delta, err := makeDelta(submission, accepted, func() (int64, error) {
			problem, err := m.assignmentProblems.FindByProblem(ctx, assignmentID, submission.ProblemID)
			return problem.Score, err
		})
		if err != nil {
			return err
		}
		return m.assignmentRecords.Apply(ctx, record.ID, delta)
	default:
		return nil
	}
}

// isSolved returns true if another submission of author was already
// accepted for the same problem and context.
//
// Standing row should be locked by caller, so concurrent finalizations
// for the same user see each other.
func (m *ScoringManager) isSolved(
	ctx context.Context, submission models.Submission,
) (bool, error) {
	return m.submissions.HasAccepted(ctx, models.SubmissionFilter{
		UserID:       submission.UserID,
		ProblemID:    submission.ProblemID,
		ContestID:    submission.ContestID,
		AssignmentID: submission.AssignmentID,
		ExcludeID:    submission.ID,
	})
}

func makeDelta(
	submission models.Submission, accepted bool,
	problemScore func() (int64, error),
) (models.StandingDelta, error) {
	if !accepted {
		return models.StandingDelta{Penalty: 1}, nil
	}
	score, err := problemScore()
	if err != nil {
		if models.IsNotFound(err) {
			return models.StandingDelta{}, fmt.Errorf(
				"problem %d: %w", submission.ProblemID, models.ErrEntityNotExist,
			)
		}
		return models.StandingDelta{}, err
	}
	return models.StandingDelta{
		Score:              score,
		AcceptedProblemNum: 1,
		FinishTime:         submission.UpdateTime,
	}, nil
}

func wrapStandingError(err error, kind string, id, userID int64) error {
	if models.IsNotFound(err) {
		return fmt.Errorf("%s %d, user %d: %w", kind, id, userID, ErrStandingNotExist)
	}
	return err
}
