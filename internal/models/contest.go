package models

import (
	"github.com/udovin/gosql"
)

// Contest represents contest.
type Contest struct {
	baseObject
	Period
	Title string `db:"title"`
	// IsJudgeResultVisible means that participants can see verdicts
	// of other participants during contest.
	IsJudgeResultVisible bool `db:"is_judge_result_visible"`
}

// ContestStore represents store for contests.
type ContestStore struct {
	baseStore[Contest, *Contest]
}

// NewContestStore creates a new instance of ContestStore.
func NewContestStore(conn *gosql.DB, table string) *ContestStore {
	return &ContestStore{
		baseStore: makeBaseStore[Contest, *Contest](conn, table),
	}
}

// ContestProblem represents problem of contest.
type ContestProblem struct {
	ScoredProblem
	ContestID int64 `db:"contest_id"`
}

// ContestProblemStore represents store for contest problems.
type ContestProblemStore struct {
	scoredProblemStore[ContestProblem, *ContestProblem]
}

// NewContestProblemStore creates a new instance of ContestProblemStore.
func NewContestProblemStore(conn *gosql.DB, table string) *ContestProblemStore {
	return &ContestProblemStore{
		scoredProblemStore: makeScoredProblemStore[ContestProblem, *ContestProblem](
			conn, table, "contest_id",
		),
	}
}

// ContestRecord represents standing of user in contest.
type ContestRecord struct {
	Standing
	ContestID int64 `db:"contest_id"`
}

// ContestRecordStore represents store for contest records.
type ContestRecordStore struct {
	standingStore[ContestRecord, *ContestRecord]
}

// NewContestRecordStore creates a new instance of ContestRecordStore.
func NewContestRecordStore(conn *gosql.DB, table string) *ContestRecordStore {
	return &ContestRecordStore{
		standingStore: makeStandingStore[ContestRecord, *ContestRecord](
			conn, table, "contest_id",
		),
	}
}
