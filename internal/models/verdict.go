package models

import (
	"fmt"
)

// Verdict represents outcome of submission or single testcase.
type Verdict int

const (
	// Judging means that grading is in progress.
	Judging Verdict = 0
	// Accepted means that solution is correct.
	Accepted Verdict = 1
	// WrongAnswer means that solution printed wrong answer.
	WrongAnswer Verdict = 2
	// TimeLimitExceeded means that solution exceeded time limit.
	TimeLimitExceeded Verdict = 3
	// MemoryLimitExceeded means that solution exceeded memory limit.
	MemoryLimitExceeded Verdict = 4
	// RuntimeError means that solution crashed.
	RuntimeError Verdict = 5
	// CompileError means that solution cannot be compiled.
	CompileError Verdict = 6
	// ServerError means that judge failed to grade solution.
	ServerError Verdict = 7
	// OutputLimitExceeded means that solution printed too much.
	OutputLimitExceeded Verdict = 8
	// Blind hides real verdict from viewer. It is never stored.
	Blind Verdict = 9
)

var verdictNames = map[Verdict]string{
	Judging:             "Judging",
	Accepted:            "Accepted",
	WrongAnswer:         "WrongAnswer",
	TimeLimitExceeded:   "TimeLimitExceeded",
	MemoryLimitExceeded: "MemoryLimitExceeded",
	RuntimeError:        "RuntimeError",
	CompileError:        "CompileError",
	ServerError:         "ServerError",
	OutputLimitExceeded: "OutputLimitExceeded",
	Blind:               "Blind",
}

// String returns string representation.
func (v Verdict) String() string {
	if name, ok := verdictNames[v]; ok {
		return name
	}
	return fmt.Sprintf("Verdict(%d)", v)
}

// MarshalText marshals verdict to text.
func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText unmarshals verdict from text.
func (v *Verdict) UnmarshalText(data []byte) error {
	for verdict, name := range verdictNames {
		if name == string(data) {
			*v = verdict
			return nil
		}
	}
	return fmt.Errorf("unknown verdict %q", data)
}

// IsTerminal returns true if verdict finishes grading.
func (v Verdict) IsTerminal() bool {
	switch v {
	case Accepted, WrongAnswer, TimeLimitExceeded, MemoryLimitExceeded,
		RuntimeError, CompileError, ServerError, OutputLimitExceeded:
		return true
	default:
		return false
	}
}

// CanTransition returns true if submission verdict can be changed
// from one verdict to another.
//
// Only Judging submissions can be changed and only to terminal
// verdicts, so every submission is finalized at most once.
func CanTransition(from, to Verdict) bool {
	return from == Judging && to.IsTerminal()
}
