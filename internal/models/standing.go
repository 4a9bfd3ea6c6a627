package models

import (
	"context"
	"fmt"
	"time"

	"github.com/udovin/gosql"

	"github.com/udovin/grader/internal/db"
)

// Period represents time window of contest or assignment.
type Period struct {
	BeginTime int64 `db:"begin_time"`
	EndTime   int64 `db:"end_time"`
}

// IsOngoing returns true if period contains specified time.
func (p Period) IsOngoing(now time.Time) bool {
	t := now.Unix()
	return p.BeginTime <= t && t < p.EndTime
}

// ScoredProblem represents problem with score inside context.
type ScoredProblem struct {
	baseObject
	ProblemID int64 `db:"problem_id"`
	Score     int64 `db:"score"`
}

// Standing represents aggregated result of user inside context.
type Standing struct {
	baseObject
	UserID             int64 `db:"user_id"`
	AcceptedProblemNum int64 `db:"accepted_problem_num"`
	Score              int64 `db:"score"`
	Penalty            int64 `db:"penalty"`
	// FinishTime contains time of last accepted submission.
	FinishTime NInt64 `db:"finish_time"`
}

// StandingDelta represents change of standing.
type StandingDelta struct {
	Score              int64
	AcceptedProblemNum int64
	Penalty            int64
	// FinishTime will be updated when it is not zero.
	FinishTime int64
}

type scoredProblemStore[T any, TPtr ObjectPtr[T]] struct {
	baseStore[T, TPtr]
	column string
}

// FindByProblem returns problem of context.
//
// Returns sql.ErrNoRows if problem is not in context.
func (s *scoredProblemStore[T, TPtr]) FindByProblem(
	ctx context.Context, contextID, problemID int64,
) (T, error) {
	return s.findOne(ctx, db.FindQuery{
		Where: fmt.Sprintf(`%q = $1 AND "problem_id" = $2`, s.column),
		Args:  []any{contextID, problemID},
	})
}

type standingStore[T any, TPtr ObjectPtr[T]] struct {
	baseStore[T, TPtr]
	column string
}

// FindByUser returns standing of user inside context.
//
// Returns sql.ErrNoRows if user is not registered.
func (s *standingStore[T, TPtr]) FindByUser(
	ctx context.Context, contextID, userID int64,
) (T, error) {
	return s.findOne(ctx, db.FindQuery{
		Where: fmt.Sprintf(`%q = $1 AND "user_id" = $2`, s.column),
		Args:  []any{contextID, userID},
	})
}

// FindByContext returns all standings of context.
func (s *standingStore[T, TPtr]) FindByContext(
	ctx context.Context, contextID int64,
) ([]T, error) {
	return s.findAll(ctx, db.FindQuery{
		Where:   fmt.Sprintf(`%q = $1`, s.column),
		Args:    []any{contextID},
		OrderBy: `"score" DESC, "penalty", "id"`,
	})
}

// Apply applies delta to standing in single update.
//
// Negative deltas are rejected, so standings never decrease.
func (s *standingStore[T, TPtr]) Apply(
	ctx context.Context, id int64, delta StandingDelta,
) error {
	if delta.Score < 0 || delta.AcceptedProblemNum < 0 || delta.Penalty < 0 {
		return fmt.Errorf("standing delta cannot be negative: %+v", delta)
	}
	set := `"score" = "score" + $1, ` +
		`"accepted_problem_num" = "accepted_problem_num" + $2, ` +
		`"penalty" = "penalty" + $3`
	args := []any{delta.Score, delta.AcceptedProblemNum, delta.Penalty}
	if delta.FinishTime != 0 {
		set += `, "finish_time" = $4`
		args = append(args, delta.FinishTime)
	}
	args = append(args, id)
	count, err := s.store.UpdateWhere(
		ctx, set, fmt.Sprintf(`"id" = $%d`, len(args)), args...,
	)
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrEntityNotExist
	}
	return nil
}

func makeScoredProblemStore[T any, TPtr ObjectPtr[T]](
	conn *gosql.DB, table, column string,
) scoredProblemStore[T, TPtr] {
	return scoredProblemStore[T, TPtr]{
		baseStore: makeBaseStore[T, TPtr](conn, table),
		column:    column,
	}
}

func makeStandingStore[T any, TPtr ObjectPtr[T]](
	conn *gosql.DB, table, column string,
) standingStore[T, TPtr] {
	return standingStore[T, TPtr]{
		baseStore: makeBaseStore[T, TPtr](conn, table),
		column:    column,
	}
}
