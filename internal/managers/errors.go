package managers

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"gopkg.in/go-playground/validator.v9"

	"github.com/udovin/grader/internal/models"
)

var (
	// ErrLanguageNotAllowed means that problem does not support language.
	ErrLanguageNotAllowed = errors.New("language is not allowed")
	// ErrTemplateModified means that locked template code was changed.
	ErrTemplateModified = errors.New("locked template code is modified")
	// ErrAlreadyAccepted means that user already solved problem in context.
	ErrAlreadyAccepted = errors.New("problem is already accepted")
	// ErrContestNotOngoing means that contest or assignment is not running.
	ErrContestNotOngoing = errors.New("contest is not ongoing")
	// ErrNotRegistered means that user is not registered in context.
	ErrNotRegistered = errors.New("user is not registered")
	// ErrForbidden means that viewer cannot see submission.
	ErrForbidden = errors.New("access is forbidden")
	// ErrStandingNotExist means that standing of scored submission
	// is missing.
	ErrStandingNotExist = fmt.Errorf("standing: %w", models.ErrEntityNotExist)
)

// FieldErrors contains messages of invalid form fields.
type FieldErrors map[string]string

// Error returns error message.
func (e FieldErrors) Error() string {
	var fields []string
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fmt.Sprintf("form has invalid fields: %s", strings.Join(fields, ", "))
}

func newValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return validate
}

func validateForm(validate *validator.Validate, form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err
	}
	fields := FieldErrors{}
	for _, fieldErr := range errs {
		fields[fieldErr.Field()] = fmt.Sprintf("failed on %q rule", fieldErr.Tag())
	}
	return fields
}
