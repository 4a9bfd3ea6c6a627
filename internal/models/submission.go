package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/udovin/gosql"

	"github.com/udovin/grader/internal/db"
)

// ErrInvalidTransition means that verdict cannot be changed.
var ErrInvalidTransition = errors.New("invalid verdict transition")

// Submission represents one grading attempt.
type Submission struct {
	baseObject
	UserID       int64  `db:"user_id"`
	ProblemID    int64  `db:"problem_id"`
	ContestID    NInt64 `db:"contest_id"`
	AssignmentID NInt64 `db:"assignment_id"`
	WorkbookID   NInt64 `db:"workbook_id"`
	// Code contains JSON list of snippets.
	Code     JSON     `db:"code"`
	Language Language `db:"language"`
	Verdict  Verdict  `db:"verdict"`
	// Score contains percent of passed testcase weights.
	Score int64 `db:"score"`
	// Error contains error reported by judge.
	Error    NString `db:"error"`
	CodeSize int64   `db:"code_size"`
	// TestcaseCount contains amount of testcases expected
	// to be judged.
	TestcaseCount int64 `db:"testcase_count"`
	// TestcaseIDs contains JSON list of testcases that were active
	// when submission was created.
	TestcaseIDs JSON  `db:"testcase_ids"`
	CreateTime  int64 `db:"create_time"`
	UpdateTime  int64 `db:"update_time"`
}

// GetCode returns code snippets of submission.
func (o Submission) GetCode() ([]Snippet, error) {
	var code []Snippet
	if len(o.Code) == 0 {
		return code, nil
	}
	err := json.Unmarshal(o.Code, &code)
	return code, err
}

// SetCode sets code snippets of submission.
func (o *Submission) SetCode(code []Snippet) error {
	raw, err := json.Marshal(code)
	if err != nil {
		return err
	}
	o.Code = raw
	return nil
}

// GetTestcaseIDs returns testcases expected to be judged.
func (o Submission) GetTestcaseIDs() ([]int64, error) {
	var ids []int64
	if len(o.TestcaseIDs) == 0 {
		return ids, nil
	}
	err := json.Unmarshal(o.TestcaseIDs, &ids)
	return ids, err
}

// SetTestcaseIDs sets testcases expected to be judged.
func (o *Submission) SetTestcaseIDs(ids []int64) error {
	if ids == nil {
		ids = []int64{}
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	o.TestcaseIDs = raw
	o.TestcaseCount = int64(len(ids))
	return nil
}

// ValidateContext checks that at most one context is set.
func (o Submission) ValidateContext() error {
	count := 0
	for _, id := range []NInt64{o.ContestID, o.AssignmentID, o.WorkbookID} {
		if id != 0 {
			count++
		}
	}
	if count > 1 {
		return fmt.Errorf("submission has %d contexts", count)
	}
	return nil
}

// IsScored returns true if submission affects standings.
func (o Submission) IsScored() bool {
	return o.ContestID != 0 || o.AssignmentID != 0
}

// Clone creates copy of submission.
func (o Submission) Clone() Submission {
	o.Code = o.Code.Clone()
	o.TestcaseIDs = o.TestcaseIDs.Clone()
	return o
}

// SubmissionStore represents store for submissions.
type SubmissionStore struct {
	baseStore[Submission, *Submission]
}

// Create creates a new submission.
func (s *SubmissionStore) Create(ctx context.Context, submission *Submission) error {
	if err := submission.ValidateContext(); err != nil {
		return err
	}
	return s.baseStore.Create(ctx, submission)
}

// TouchJudging updates time of submission only if it is still judging.
//
// Update takes row lock, so concurrent handlers of the same submission
// are serialized until end of transaction. Returns false if submission
// is not judging or does not exist.
func (s *SubmissionStore) TouchJudging(
	ctx context.Context, id int64, now int64,
) (bool, error) {
	count, err := s.store.UpdateWhere(
		ctx, `"update_time" = $1`, `"id" = $2 AND "verdict" = $3`,
		now, id, int64(Judging),
	)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Finalize moves judging submission to terminal verdict.
//
// Returns sql.ErrNoRows if submission was already finalized.
func (s *SubmissionStore) Finalize(
	ctx context.Context, submission *Submission, verdict Verdict,
) error {
	if !CanTransition(submission.Verdict, verdict) {
		return fmt.Errorf(
			"%w: %s -> %s", ErrInvalidTransition, submission.Verdict, verdict,
		)
	}
	updated := submission.Clone()
	updated.Verdict = verdict
	if err := s.store.UpdateObjectIf(
		ctx, &updated, "verdict", int64(Judging),
	); err != nil {
		return err
	}
	*submission = updated
	return nil
}

// SubmissionFilter represents filter for accepted submissions.
type SubmissionFilter struct {
	UserID       int64
	ProblemID    int64
	ContestID    NInt64
	AssignmentID NInt64
	// AnyContext disables filtering by contest and assignment.
	AnyContext bool
	// ExcludeID skips submission with specified ID.
	ExcludeID int64
}

// HasAccepted returns true if user has accepted submission for problem.
func (s *SubmissionStore) HasAccepted(
	ctx context.Context, filter SubmissionFilter,
) (bool, error) {
	where := []string{`"user_id" = $1`, `"problem_id" = $2`, `"verdict" = $3`}
	args := []any{filter.UserID, filter.ProblemID, int64(Accepted)}
	if !filter.AnyContext {
		for _, column := range []struct {
			name  string
			value NInt64
		}{
			{"contest_id", filter.ContestID},
			{"assignment_id", filter.AssignmentID},
		} {
			if column.value == 0 {
				where = append(where, fmt.Sprintf("%q IS NULL", column.name))
			} else {
				args = append(args, int64(column.value))
				where = append(where, fmt.Sprintf("%q = $%d", column.name, len(args)))
			}
		}
	}
	if filter.ExcludeID != 0 {
		args = append(args, filter.ExcludeID)
		where = append(where, fmt.Sprintf(`"id" <> $%d`, len(args)))
	}
	_, err := s.findOne(ctx, db.FindQuery{
		Where: strings.Join(where, " AND "),
		Args:  args,
	})
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// FindJudgingBefore returns judging submissions created before
// specified time.
func (s *SubmissionStore) FindJudgingBefore(
	ctx context.Context, before int64, limit int,
) ([]Submission, error) {
	return s.findAll(ctx, db.FindQuery{
		Where: `"verdict" = $1 AND "create_time" < $2`,
		Args:  []any{int64(Judging), before},
		Limit: limit,
	})
}

// NewSubmissionStore creates a new instance of SubmissionStore.
func NewSubmissionStore(conn *gosql.DB, table string) *SubmissionStore {
	return &SubmissionStore{
		baseStore: makeBaseStore[Submission, *Submission](conn, table),
	}
}
