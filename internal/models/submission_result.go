package models

import (
	"context"

	"github.com/udovin/gosql"

	"github.com/udovin/grader/internal/db"
)

// SubmissionResult represents result of submission on single testcase.
type SubmissionResult struct {
	baseObject
	SubmissionID int64   `db:"submission_id"`
	TestcaseID   int64   `db:"testcase_id"`
	Verdict      Verdict `db:"verdict"`
	// CPUTime contains CPU time in milliseconds.
	CPUTime int64 `db:"cpu_time"`
	// Memory contains memory usage in bytes.
	Memory int64   `db:"memory"`
	Output NString `db:"output"`
}

// SubmissionResultStore represents store for submission results.
type SubmissionResultStore struct {
	baseStore[SubmissionResult, *SubmissionResult]
}

// FindBySubmission returns results of submission ordered by testcase.
func (s *SubmissionResultStore) FindBySubmission(
	ctx context.Context, submissionID int64,
) ([]SubmissionResult, error) {
	return s.findAll(ctx, db.FindQuery{
		Where:   `"submission_id" = $1`,
		Args:    []any{submissionID},
		OrderBy: `"testcase_id", "id"`,
	})
}

// Upsert creates result or updates existing result with the same
// submission and testcase.
//
// Returns true if result was created.
func (s *SubmissionResultStore) Upsert(
	ctx context.Context, result *SubmissionResult,
) (bool, error) {
	existing, err := s.findOne(ctx, db.FindQuery{
		Where: `"submission_id" = $1 AND "testcase_id" = $2`,
		Args:  []any{result.SubmissionID, result.TestcaseID},
	})
	if err != nil {
		if !IsNotFound(err) {
			return false, err
		}
		return true, s.Create(ctx, result)
	}
	result.ID = existing.ID
	return false, s.Update(ctx, result)
}

// NewSubmissionResultStore creates a new instance of SubmissionResultStore.
func NewSubmissionResultStore(conn *gosql.DB, table string) *SubmissionResultStore {
	return &SubmissionResultStore{
		baseStore: makeBaseStore[SubmissionResult, *SubmissionResult](conn, table),
	}
}
