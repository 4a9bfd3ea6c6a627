package models

import (
	"context"

	"github.com/udovin/gosql"
	"golang.org/x/exp/constraints"

	"github.com/udovin/grader/internal/db"
)

// Testcase represents testcase of problem.
type Testcase struct {
	baseObject
	ProblemID  int64 `db:"problem_id"`
	IsHidden   bool  `db:"is_hidden"`
	IsOutdated bool  `db:"is_outdated"`
	// ScoreWeight contains fraction of problem score as
	// numerator and denominator. Zero denominator means
	// that all testcases have equal weights.
	ScoreWeightNumerator   int64 `db:"score_weight_numerator"`
	ScoreWeightDenominator int64 `db:"score_weight_denominator"`
	// SubmissionCount contains amount of graded results.
	SubmissionCount int64 `db:"submission_count"`
	AcceptedCount   int64 `db:"accepted_count"`
}

// TestcaseStore represents store for testcases.
type TestcaseStore struct {
	baseStore[Testcase, *Testcase]
}

// FindActiveByProblem returns not outdated testcases of problem.
func (s *TestcaseStore) FindActiveByProblem(
	ctx context.Context, problemID int64,
) ([]Testcase, error) {
	return s.findAll(ctx, db.FindQuery{
		Where: `"problem_id" = $1 AND "is_outdated" = $2`,
		Args:  []any{problemID, false},
	})
}

// FindByProblem returns all testcases of problem including outdated.
func (s *TestcaseStore) FindByProblem(
	ctx context.Context, problemID int64,
) ([]Testcase, error) {
	return s.findAll(ctx, db.FindQuery{
		Where:   `"problem_id" = $1`,
		Args:    []any{problemID},
		OrderBy: `"id"`,
	})
}

// IncrementCounters counts graded result of testcase.
func (s *TestcaseStore) IncrementCounters(
	ctx context.Context, id int64, accepted bool,
) error {
	var delta int64
	if accepted {
		delta = 1
	}
	count, err := s.store.UpdateWhere(
		ctx,
		`"submission_count" = "submission_count" + 1, `+
			`"accepted_count" = "accepted_count" + $1`,
		`"id" = $2`,
		delta, id,
	)
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrEntityNotExist
	}
	return nil
}

// NewTestcaseStore creates a new instance of TestcaseStore.
func NewTestcaseStore(conn *gosql.DB, table string) *TestcaseStore {
	return &TestcaseStore{
		baseStore: makeBaseStore[Testcase, *Testcase](conn, table),
	}
}

func gcd[T constraints.Integer](a, b T) T {
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		return -a
	}
	return a
}

// fraction represents non-negative rational number.
type fraction struct {
	num, den int64
}

func (f fraction) add(o fraction) fraction {
	if f.den == 0 {
		return o
	}
	if o.den == 0 {
		return f
	}
	g := gcd(f.den, o.den)
	den := f.den / g * o.den
	num := f.num*(den/f.den) + o.num*(den/o.den)
	if d := gcd(num, den); d > 1 {
		num, den = num/d, den/d
	}
	return fraction{num: num, den: den}
}

// WeightedScore returns percent of passed testcase weights.
//
// Weights of all testcases are used when at least one of testcases
// has weight, otherwise all testcases have equal weights.
func WeightedScore(testcases []Testcase, accepted map[int64]bool) int64 {
	if len(testcases) == 0 {
		return 0
	}
	weighted := false
	for _, testcase := range testcases {
		if testcase.ScoreWeightDenominator > 0 {
			weighted = true
			break
		}
	}
	var total, passed fraction
	for _, testcase := range testcases {
		weight := fraction{num: 1, den: 1}
		if weighted {
			if testcase.ScoreWeightDenominator <= 0 {
				continue
			}
			weight = fraction{
				num: testcase.ScoreWeightNumerator,
				den: testcase.ScoreWeightDenominator,
			}
		}
		total = total.add(weight)
		if accepted[testcase.ID] {
			passed = passed.add(weight)
		}
	}
	if total.num == 0 || passed.den == 0 {
		return 0
	}
	// passed / total * 100 = passed.num * total.den * 100 / (passed.den * total.num)
	return passed.num * total.den * 100 / (passed.den * total.num)
}
