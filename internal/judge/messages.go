// Package judge contains wire messages and broker workers of the
// external judge protocol.
package judge

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/udovin/grader/internal/models"
)

var (
	// ErrUnknownResultCode means that judge sent unsupported result code.
	ErrUnknownResultCode = errors.New("unknown result code")
	// ErrMissingJudgeResult means that testcase result is missing.
	ErrMissingJudgeResult = errors.New("missing judge result")
	// ErrInvalidTestcaseID means that testcase id cannot be parsed.
	ErrInvalidTestcaseID = errors.New("invalid testcase id")
	// ErrJudgeServerError means that judge failed to grade submission.
	//
	// It is returned after server error verdict is persisted.
	ErrJudgeServerError = errors.New("judge server error")
)

// IsProtocolError returns true if message violates judge protocol
// and should not be redelivered.
func IsProtocolError(err error) bool {
	return errors.Is(err, ErrUnknownResultCode) ||
		errors.Is(err, ErrMissingJudgeResult) ||
		errors.Is(err, ErrInvalidTestcaseID)
}

// ResultCode represents result code of external judge.
type ResultCode int

const (
	AcceptedCode      ResultCode = 0
	WrongAnswerCode   ResultCode = 1
	CPUTimeLimitCode  ResultCode = 2
	RealTimeLimitCode ResultCode = 3
	MemoryLimitCode   ResultCode = 4
	RuntimeErrorCode  ResultCode = 5
	CompileErrorCode  ResultCode = 6
	OutputLimitCode   ResultCode = 7
	ServerErrorCode   ResultCode = 8
)

const testcaseIDSeparator = ":"

var resultVerdicts = map[ResultCode]models.Verdict{
	AcceptedCode:      models.Accepted,
	WrongAnswerCode:   models.WrongAnswer,
	CPUTimeLimitCode:  models.TimeLimitExceeded,
	RealTimeLimitCode: models.TimeLimitExceeded,
	MemoryLimitCode:   models.MemoryLimitExceeded,
	RuntimeErrorCode:  models.RuntimeError,
	CompileErrorCode:  models.CompileError,
	OutputLimitCode:   models.OutputLimitExceeded,
	ServerErrorCode:   models.ServerError,
}

// Verdict returns verdict for result code.
func (c ResultCode) Verdict() (models.Verdict, error) {
	verdict, ok := resultVerdicts[c]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownResultCode, int(c))
	}
	return verdict, nil
}

// JudgeRequest represents request for grading submission.
type JudgeRequest struct {
	Code                     string          `json:"code"`
	Language                 models.Language `json:"language"`
	ProblemID                int64           `json:"problemId"`
	TimeLimit                int64           `json:"timeLimit"`
	MemoryLimit              int64           `json:"memoryLimit"`
	StopOnNotAccepted        bool            `json:"stopOnNotAccepted"`
	JudgeOnlyHiddenTestcases bool            `json:"judgeOnlyHiddenTestcases"`
	ContainHiddenTestcases   bool            `json:"containHiddenTestcases"`
}

// NewJudgeRequest creates request for code of submission.
//
// Time limit of problem is in milliseconds and memory limit is in
// megabytes, limits of request are adjusted for language.
func NewJudgeRequest(
	code []models.Snippet, language models.Language, problem models.Problem,
) JudgeRequest {
	var texts []string
	for _, snippet := range models.SortSnippets(code) {
		texts = append(texts, snippet.Text)
	}
	return JudgeRequest{
		Code:                   strings.Join(texts, "\n"),
		Language:               language,
		ProblemID:              problem.ID,
		TimeLimit:              language.TimeLimit(problem.TimeLimit),
		MemoryLimit:            language.MemoryLimit(problem.MemoryLimit),
		ContainHiddenTestcases: true,
	}
}

// JudgeResult represents result of single testcase.
type JudgeResult struct {
	// TestcaseID contains composite ID in format "<tag>:<id>".
	TestcaseID string `json:"testcaseId" validate:"required"`
	// CPUTime contains CPU time in milliseconds.
	CPUTime int64 `json:"cpuTime" validate:"gte=0"`
	// RealTime contains real time in milliseconds.
	RealTime int64 `json:"realTime" validate:"gte=0"`
	// Memory contains memory usage in bytes.
	Memory    int64  `json:"memory" validate:"gte=0"`
	Signal    int64  `json:"signal"`
	ExitCode  int64  `json:"exitCode"`
	ErrorCode int64  `json:"errorCode"`
	Output    string `json:"output,omitempty"`
}

// ParseTestcaseID returns numeric ID of testcase.
func (r JudgeResult) ParseTestcaseID() (int64, error) {
	_, value, ok := strings.Cut(r.TestcaseID, testcaseIDSeparator)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTestcaseID, r.TestcaseID)
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTestcaseID, r.TestcaseID)
	}
	return id, nil
}

// JudgeResultMessage represents message from external judge.
type JudgeResultMessage struct {
	ResultCode   ResultCode   `json:"resultCode" validate:"min=0,max=8"`
	SubmissionID int64        `json:"submissionId" validate:"required,min=1"`
	Error        string       `json:"error"`
	JudgeResult  *JudgeResult `json:"judgeResult,omitempty"`
}
