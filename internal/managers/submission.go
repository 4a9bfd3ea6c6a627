package managers

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/go-playground/validator.v9"

	"github.com/udovin/grader/internal/core"
	"github.com/udovin/grader/internal/models"
)

// SubmissionPublisher represents publisher of judge requests.
type SubmissionPublisher interface {
	Publish(ctx context.Context, code []models.Snippet, submission models.Submission) error
}

// SubmissionManager creates submissions and controls their visibility.
type SubmissionManager struct {
	core      *core.Core
	publisher SubmissionPublisher
	validate  *validator.Validate
}

// NewSubmissionManager creates a new instance of SubmissionManager.
func NewSubmissionManager(
	core *core.Core, publisher SubmissionPublisher,
) *SubmissionManager {
	return &SubmissionManager{
		core:      core,
		publisher: publisher,
		validate:  newValidator(),
	}
}

// CreateSubmissionForm represents form for new submission.
type CreateSubmissionForm struct {
	UserID       int64            `json:"-" validate:"required,min=1"`
	ProblemID    int64            `json:"-" validate:"required,min=1"`
	ContestID    int64            `json:"contest_id,omitempty" validate:"min=0"`
	AssignmentID int64            `json:"assignment_id,omitempty" validate:"min=0"`
	WorkbookID   int64            `json:"workbook_id,omitempty" validate:"min=0"`
	Language     models.Language  `json:"language" validate:"required"`
	Code         []models.Snippet `json:"code" validate:"required,min=1"`
}

func (f CreateSubmissionForm) validateContext() error {
	count := 0
	for _, id := range []int64{f.ContestID, f.AssignmentID, f.WorkbookID} {
		if id != 0 {
			count++
		}
	}
	if count > 1 {
		return FieldErrors{"context": "only one of contest, assignment or workbook can be set"}
	}
	return nil
}

// CreateSubmission validates form, creates judging submission and
// publishes judge request.
//
// Submission is returned with publish error too, because it is
// already saved and remains judging.
func (m *SubmissionManager) CreateSubmission(
	ctx context.Context, form CreateSubmissionForm,
) (models.Submission, error) {
	ctx, span := m.core.Tracer().Start(
		ctx, "managers.SubmissionManager.CreateSubmission",
		trace.WithAttributes(
			attribute.Int64("user_id", form.UserID),
			attribute.Int64("problem_id", form.ProblemID),
		),
	)
	defer span.End()
	if err := validateForm(m.validate, form); err != nil {
		return models.Submission{}, err
	}
	if err := form.validateContext(); err != nil {
		return models.Submission{}, err
	}
	if err := form.Language.Valid(); err != nil {
		return models.Submission{}, FieldErrors{"language": err.Error()}
	}
	problem, err := m.core.Problems.Get(ctx, form.ProblemID)
	if err != nil {
		return models.Submission{}, wrapNotFound(err, "problem", form.ProblemID)
	}
	supported, err := problem.SupportsLanguage(form.Language)
	if err != nil {
		return models.Submission{}, err
	}
	if !supported {
		return models.Submission{}, ErrLanguageNotAllowed
	}
	template, err := problem.GetTemplate(form.Language)
	if err != nil {
		return models.Submission{}, err
	}
	if !models.CheckTemplate(template, form.Code) {
		return models.Submission{}, ErrTemplateModified
	}
	if err := m.checkContext(ctx, form); err != nil {
		return models.Submission{}, err
	}
	testcases, err := m.core.Testcases.FindActiveByProblem(ctx, problem.ID)
	if err != nil {
		return models.Submission{}, err
	}
	now := m.core.Now().Unix()
	submission := models.Submission{
		UserID:       form.UserID,
		ProblemID:    problem.ID,
		ContestID:    models.NInt64(form.ContestID),
		AssignmentID: models.NInt64(form.AssignmentID),
		WorkbookID:   models.NInt64(form.WorkbookID),
		Language:     form.Language,
		Verdict:      models.Judging,
		CodeSize:     int64(len(form.Code[0].Text)),
		CreateTime:   now,
		UpdateTime:   now,
	}
	if err := submission.SetCode(form.Code); err != nil {
		return models.Submission{}, err
	}
	ids := make([]int64, 0, len(testcases))
	for _, testcase := range testcases {
		ids = append(ids, testcase.ID)
	}
	if err := submission.SetTestcaseIDs(ids); err != nil {
		return models.Submission{}, err
	}
	if err := m.core.Submissions.Create(ctx, &submission); err != nil {
		return models.Submission{}, err
	}
	span.SetAttributes(attribute.Int64("submission_id", submission.ID))
	if err := m.publisher.Publish(ctx, form.Code, submission); err != nil {
		return submission, fmt.Errorf("cannot publish judge request: %w", err)
	}
	return submission, nil
}

func (m *SubmissionManager) checkContext(
	ctx context.Context, form CreateSubmissionForm,
) error {
	now := m.core.Now()
	filter := models.SubmissionFilter{
		UserID:       form.UserID,
		ProblemID:    form.ProblemID,
		ContestID:    models.NInt64(form.ContestID),
		AssignmentID: models.NInt64(form.AssignmentID),
	}
	switch {
	case form.ContestID != 0:
		contest, err := m.core.Contests.Get(ctx, form.ContestID)
		if err != nil {
			return wrapNotFound(err, "contest", form.ContestID)
		}
		if !contest.IsOngoing(now) {
			return ErrContestNotOngoing
		}
		if _, err := m.core.ContestProblems.FindByProblem(
			ctx, form.ContestID, form.ProblemID,
		); err != nil {
			return wrapNotFound(err, "contest problem", form.ProblemID)
		}
		if _, err := m.core.ContestRecords.FindByUser(
			ctx, form.ContestID, form.UserID,
		); err != nil {
			if models.IsNotFound(err) {
				return ErrNotRegistered
			}
			return err
		}
	case form.AssignmentID != 0:
		assignment, err := m.core.Assignments.Get(ctx, form.AssignmentID)
		if err != nil {
			return wrapNotFound(err, "assignment", form.AssignmentID)
		}
		if !assignment.IsOngoing(now) {
			return ErrContestNotOngoing
		}
		if _, err := m.core.AssignmentProblems.FindByProblem(
			ctx, form.AssignmentID, form.ProblemID,
		); err != nil {
			return wrapNotFound(err, "assignment problem", form.ProblemID)
		}
		if _, err := m.core.AssignmentRecords.FindByUser(
			ctx, form.AssignmentID, form.UserID,
		); err != nil {
			if models.IsNotFound(err) {
				return ErrNotRegistered
			}
			return err
		}
	case form.WorkbookID != 0:
		if _, err := m.core.Workbooks.Get(ctx, form.WorkbookID); err != nil {
			return wrapNotFound(err, "workbook", form.WorkbookID)
		}
		return nil
	default:
		return nil
	}
	accepted, err := m.core.Submissions.HasAccepted(ctx, filter)
	if err != nil {
		return err
	}
	if accepted {
		return ErrAlreadyAccepted
	}
	return nil
}

// SubmissionView represents submission visible to viewer.
type SubmissionView struct {
	models.Submission
	Results []models.SubmissionResult
	// Blinded means that verdicts are hidden from viewer.
	Blinded bool
}

// GetSubmission returns submission with results if viewer can see it.
//
// Verdicts are replaced with Blind while contest with hidden judge
// results is running.
func (m *SubmissionManager) GetSubmission(
	ctx context.Context, viewerID, id int64,
) (SubmissionView, error) {
	submission, err := m.core.Submissions.Get(ctx, id)
	if err != nil {
		return SubmissionView{}, wrapNotFound(err, "submission", id)
	}
	viewer, err := m.core.Users.Get(ctx, viewerID)
	if err != nil {
		if !models.IsNotFound(err) {
			return SubmissionView{}, err
		}
		viewer = models.User{}
		viewer.ID = viewerID
	}
	period, visible, err := m.getPeriod(ctx, submission)
	if err != nil {
		return SubmissionView{}, err
	}
	ongoing := period != nil && period.IsOngoing(m.core.Now())
	owner := submission.UserID == viewer.ID
	if !owner && !viewer.IsAdmin() {
		if ongoing {
			return SubmissionView{}, ErrForbidden
		}
		accepted, err := m.core.Submissions.HasAccepted(ctx, models.SubmissionFilter{
			UserID:     viewer.ID,
			ProblemID:  submission.ProblemID,
			AnyContext: true,
		})
		if err != nil {
			return SubmissionView{}, err
		}
		if !accepted {
			return SubmissionView{}, ErrForbidden
		}
	}
	results, err := m.core.SubmissionResults.FindBySubmission(ctx, submission.ID)
	if err != nil {
		return SubmissionView{}, err
	}
	view := SubmissionView{Submission: submission, Results: results}
	if ongoing && !visible && !viewer.IsAdmin() {
		view.blind()
	}
	return view, nil
}

// ListResults returns testcase results of submission ordered by testcase.
func (m *SubmissionManager) ListResults(
	ctx context.Context, viewerID, id int64,
) ([]models.SubmissionResult, error) {
	view, err := m.GetSubmission(ctx, viewerID, id)
	if err != nil {
		return nil, err
	}
	return view.Results, nil
}

func (v *SubmissionView) blind() {
	v.Blinded = true
	if v.Verdict != models.Judging {
		v.Verdict = models.Blind
	}
	v.Score = 0
	v.Error = ""
	for i := range v.Results {
		v.Results[i].Verdict = models.Blind
		v.Results[i].CPUTime = 0
		v.Results[i].Memory = 0
		v.Results[i].Output = ""
	}
}

// getPeriod returns period of contest or assignment of submission and
// visibility of judge results.
func (m *SubmissionManager) getPeriod(
	ctx context.Context, submission models.Submission,
) (*models.Period, bool, error) {
	switch {
	case submission.ContestID != 0:
		contest, err := m.core.Contests.Get(ctx, int64(submission.ContestID))
		if err != nil {
			return nil, false, wrapNotFound(err, "contest", int64(submission.ContestID))
		}
		return &contest.Period, contest.IsJudgeResultVisible, nil
	case submission.AssignmentID != 0:
		assignment, err := m.core.Assignments.Get(ctx, int64(submission.AssignmentID))
		if err != nil {
			return nil, false, wrapNotFound(err, "assignment", int64(submission.AssignmentID))
		}
		return &assignment.Period, assignment.IsJudgeResultVisible, nil
	default:
		return nil, true, nil
	}
}

func wrapNotFound(err error, kind string, id int64) error {
	if models.IsNotFound(err) {
		return fmt.Errorf("%s %d: %w", kind, id, models.ErrEntityNotExist)
	}
	return err
}
