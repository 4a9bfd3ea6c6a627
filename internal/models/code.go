package models

import (
	"sort"
)

// Snippet represents named fragment of submitted code.
type Snippet struct {
	ID     int    `json:"id"`
	Text   string `json:"text"`
	Locked bool   `json:"locked,omitempty"`
}

// Template represents starter code of problem for language.
type Template struct {
	Language Language  `json:"language"`
	Code     []Snippet `json:"code"`
}

// SortSnippets returns copy of snippets ordered by ID.
func SortSnippets(code []Snippet) []Snippet {
	sorted := append([]Snippet(nil), code...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

// CheckTemplate returns true if code keeps all locked fragments
// of template untouched.
//
// Empty template allows any code. Otherwise code should contain
// exactly the same fragments as template and every locked fragment
// should be byte-identical.
func CheckTemplate(template []Snippet, code []Snippet) bool {
	if len(template) == 0 {
		return true
	}
	if len(template) != len(code) {
		return false
	}
	template, code = SortSnippets(template), SortSnippets(code)
	for i := range template {
		if template[i].ID != code[i].ID {
			return false
		}
		if template[i].Locked && template[i].Text != code[i].Text {
			return false
		}
	}
	return true
}
