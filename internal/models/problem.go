package models

import (
	"context"
	"encoding/json"

	"github.com/udovin/gosql"
	"golang.org/x/exp/slices"
)

// Problem represents problem.
type Problem struct {
	baseObject
	Title string `db:"title"`
	// Languages contains JSON list of allowed languages.
	Languages JSON `db:"languages"`
	// Template contains JSON list of templates.
	Template JSON `db:"template"`
	// TimeLimit contains time limit in milliseconds.
	TimeLimit int64 `db:"time_limit"`
	// MemoryLimit contains memory limit in megabytes.
	MemoryLimit     int64   `db:"memory_limit"`
	SubmissionCount int64   `db:"submission_count"`
	AcceptedCount   int64   `db:"accepted_count"`
	AcceptedRate    float64 `db:"accepted_rate"`
}

// GetLanguages returns allowed languages.
func (o Problem) GetLanguages() ([]Language, error) {
	var languages []Language
	if len(o.Languages) == 0 {
		return languages, nil
	}
	err := json.Unmarshal(o.Languages, &languages)
	return languages, err
}

// SetLanguages sets allowed languages.
func (o *Problem) SetLanguages(languages []Language) error {
	raw, err := json.Marshal(languages)
	if err != nil {
		return err
	}
	o.Languages = raw
	return nil
}

// SupportsLanguage returns true if language is allowed for problem.
func (o Problem) SupportsLanguage(language Language) (bool, error) {
	languages, err := o.GetLanguages()
	if err != nil {
		return false, err
	}
	return slices.Contains(languages, language), nil
}

// GetTemplates returns templates of problem.
func (o Problem) GetTemplates() ([]Template, error) {
	var templates []Template
	if len(o.Template) == 0 {
		return templates, nil
	}
	err := json.Unmarshal(o.Template, &templates)
	return templates, err
}

// SetTemplates sets templates of problem.
func (o *Problem) SetTemplates(templates []Template) error {
	raw, err := json.Marshal(templates)
	if err != nil {
		return err
	}
	o.Template = raw
	return nil
}

// GetTemplate returns template code for language.
func (o Problem) GetTemplate(language Language) ([]Snippet, error) {
	templates, err := o.GetTemplates()
	if err != nil {
		return nil, err
	}
	for _, template := range templates {
		if template.Language == language {
			return template.Code, nil
		}
	}
	return nil, nil
}

// Clone creates copy of problem.
func (o Problem) Clone() Problem {
	o.Languages = o.Languages.Clone()
	o.Template = o.Template.Clone()
	return o
}

// ProblemStore represents store for problems.
type ProblemStore struct {
	baseStore[Problem, *Problem]
}

// IncrementCounters counts finalized submission of problem and
// recalculates accepted rate.
func (s *ProblemStore) IncrementCounters(
	ctx context.Context, id int64, accepted bool,
) error {
	var delta int64
	if accepted {
		delta = 1
	}
	count, err := s.store.UpdateWhere(
		ctx,
		`"submission_count" = "submission_count" + 1, `+
			`"accepted_count" = "accepted_count" + $1, `+
			`"accepted_rate" = ("accepted_count" + $2) * 1.0 / ("submission_count" + 1)`,
		`"id" = $3`,
		delta, delta, id,
	)
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrEntityNotExist
	}
	return nil
}

// NewProblemStore creates a new instance of ProblemStore.
func NewProblemStore(conn *gosql.DB, table string) *ProblemStore {
	return &ProblemStore{
		baseStore: makeBaseStore[Problem, *Problem](conn, table),
	}
}
