package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/udovin/grader/internal/managers"
	"github.com/udovin/grader/internal/models"
)

func (v *View) registerSubmissionHandlers(g *echo.Group) {
	g.POST(
		"/v0/problems/:problem/submissions", v.createSubmission,
		v.extractViewer,
	)
	g.GET(
		"/v0/submissions/:submission", v.observeSubmission,
		v.extractViewer,
	)
	g.GET(
		"/v0/submissions/:submission/results", v.observeSubmissionResults,
		v.extractViewer,
	)
}

// Submission represents submission.
type Submission struct {
	ID            int64                      `json:"id"`
	UserID        int64                      `json:"user_id"`
	ProblemID     int64                      `json:"problem_id"`
	ContestID     int64                      `json:"contest_id,omitempty"`
	AssignmentID  int64                      `json:"assignment_id,omitempty"`
	WorkbookID    int64                      `json:"workbook_id,omitempty"`
	Language      models.Language            `json:"language"`
	Code          []models.Snippet           `json:"code,omitempty"`
	Verdict       models.Verdict             `json:"verdict"`
	Score         int64                      `json:"score"`
	Error         string                     `json:"error,omitempty"`
	CodeSize      int64                      `json:"code_size"`
	TestcaseCount int64                      `json:"testcase_count"`
	CreateTime    int64                      `json:"create_time"`
	UpdateTime    int64                      `json:"update_time"`
	Blinded       bool                       `json:"blinded,omitempty"`
	Results       []SubmissionTestcaseResult `json:"results,omitempty"`
}

// SubmissionTestcaseResult represents result of submission on testcase.
type SubmissionTestcaseResult struct {
	TestcaseID int64          `json:"testcase_id"`
	Verdict    models.Verdict `json:"verdict"`
	CPUTime    int64          `json:"cpu_time"`
	Memory     int64          `json:"memory"`
	Output     string         `json:"output,omitempty"`
}

// SubmissionTestcaseResults represents list of testcase results.
type SubmissionTestcaseResults struct {
	Results []SubmissionTestcaseResult `json:"results"`
}

func makeSubmission(c echo.Context, submission models.Submission) Submission {
	resp := Submission{
		ID:            submission.ID,
		UserID:        submission.UserID,
		ProblemID:     submission.ProblemID,
		ContestID:     int64(submission.ContestID),
		AssignmentID:  int64(submission.AssignmentID),
		WorkbookID:    int64(submission.WorkbookID),
		Language:      submission.Language,
		Verdict:       submission.Verdict,
		Score:         submission.Score,
		Error:         string(submission.Error),
		CodeSize:      submission.CodeSize,
		TestcaseCount: submission.TestcaseCount,
		CreateTime:    submission.CreateTime,
		UpdateTime:    submission.UpdateTime,
	}
	if code, err := submission.GetCode(); err != nil {
		c.Logger().Warn("Cannot parse submission code", err)
	} else {
		resp.Code = code
	}
	return resp
}

func makeTestcaseResults(results []models.SubmissionResult) []SubmissionTestcaseResult {
	resp := make([]SubmissionTestcaseResult, 0, len(results))
	for _, result := range results {
		resp = append(resp, SubmissionTestcaseResult{
			TestcaseID: result.TestcaseID,
			Verdict:    result.Verdict,
			CPUTime:    result.CPUTime,
			Memory:     result.Memory,
			Output:     string(result.Output),
		})
	}
	return resp
}

func (v *View) createSubmission(c echo.Context) error {
	viewerID, err := getViewerID(c)
	if err != nil {
		return err
	}
	problemID, err := strconv.ParseInt(c.Param("problem"), 10, 64)
	if err != nil {
		c.Logger().Warn(err)
		return errorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid problem ID.",
		}
	}
	var form managers.CreateSubmissionForm
	if err := c.Bind(&form); err != nil {
		c.Logger().Warn(err)
		return errorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid form.",
		}
	}
	form.UserID = viewerID
	form.ProblemID = problemID
	submission, err := v.submissions.CreateSubmission(getContext(c), form)
	if err != nil {
		return wrapManagerError(err)
	}
	return c.JSON(http.StatusCreated, makeSubmission(c, submission))
}

func parseSubmissionID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("submission"), 10, 64)
	if err != nil {
		c.Logger().Warn(err)
		return 0, errorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid submission ID.",
		}
	}
	return id, nil
}

func (v *View) observeSubmission(c echo.Context) error {
	viewerID, err := getViewerID(c)
	if err != nil {
		return err
	}
	id, err := parseSubmissionID(c)
	if err != nil {
		return err
	}
	view, err := v.submissions.GetSubmission(getContext(c), viewerID, id)
	if err != nil {
		return wrapManagerError(err)
	}
	resp := makeSubmission(c, view.Submission)
	resp.Blinded = view.Blinded
	resp.Results = makeTestcaseResults(view.Results)
	return c.JSON(http.StatusOK, resp)
}

func (v *View) observeSubmissionResults(c echo.Context) error {
	viewerID, err := getViewerID(c)
	if err != nil {
		return err
	}
	id, err := parseSubmissionID(c)
	if err != nil {
		return err
	}
	results, err := v.submissions.ListResults(getContext(c), viewerID, id)
	if err != nil {
		return wrapManagerError(err)
	}
	return c.JSON(http.StatusOK, SubmissionTestcaseResults{
		Results: makeTestcaseResults(results),
	})
}
