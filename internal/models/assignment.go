package models

import (
	"github.com/udovin/gosql"
)

// Assignment represents assignment of course.
type Assignment struct {
	baseObject
	Period
	Title                string `db:"title"`
	IsJudgeResultVisible bool   `db:"is_judge_result_visible"`
}

// AssignmentStore represents store for assignments.
type AssignmentStore struct {
	baseStore[Assignment, *Assignment]
}

// NewAssignmentStore creates a new instance of AssignmentStore.
func NewAssignmentStore(conn *gosql.DB, table string) *AssignmentStore {
	return &AssignmentStore{
		baseStore: makeBaseStore[Assignment, *Assignment](conn, table),
	}
}

// AssignmentProblem represents problem of assignment.
type AssignmentProblem struct {
	ScoredProblem
	AssignmentID int64 `db:"assignment_id"`
}

// AssignmentProblemStore represents store for assignment problems.
type AssignmentProblemStore struct {
	scoredProblemStore[AssignmentProblem, *AssignmentProblem]
}

// NewAssignmentProblemStore creates a new instance of AssignmentProblemStore.
func NewAssignmentProblemStore(conn *gosql.DB, table string) *AssignmentProblemStore {
	return &AssignmentProblemStore{
		scoredProblemStore: makeScoredProblemStore[AssignmentProblem, *AssignmentProblem](
			conn, table, "assignment_id",
		),
	}
}

// AssignmentRecord represents standing of user in assignment.
type AssignmentRecord struct {
	Standing
	AssignmentID int64 `db:"assignment_id"`
}

// AssignmentRecordStore represents store for assignment records.
type AssignmentRecordStore struct {
	standingStore[AssignmentRecord, *AssignmentRecord]
}

// NewAssignmentRecordStore creates a new instance of AssignmentRecordStore.
func NewAssignmentRecordStore(conn *gosql.DB, table string) *AssignmentRecordStore {
	return &AssignmentRecordStore{
		standingStore: makeStandingStore[AssignmentRecord, *AssignmentRecord](
			conn, table, "assignment_id",
		),
	}
}
