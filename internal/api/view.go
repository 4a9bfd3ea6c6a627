package api

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/udovin/grader/internal/config"
	"github.com/udovin/grader/internal/core"
	"github.com/udovin/grader/internal/managers"
	"github.com/udovin/grader/internal/models"
	"github.com/udovin/grader/internal/pkg/logs"
)

// Pinger represents dependency that can be checked for health.
type Pinger interface {
	Ping() error
}

// View represents API view.
type View struct {
	core        *core.Core
	submissions *managers.SubmissionManager
	broker      Pinger
}

// NewView returns a new instance of view.
//
// Broker can be nil, then health check ignores it.
func NewView(
	core *core.Core, submissions *managers.SubmissionManager, broker Pinger,
) *View {
	return &View{
		core:        core,
		submissions: submissions,
		broker:      broker,
	}
}

// Register registers handlers in specified group.
func (v *View) Register(g *echo.Group) {
	g.Use(wrapResponse)
	g.GET("/ping", v.ping)
	g.GET("/health", v.health)
	v.registerSubmissionHandlers(g)
}

// ping returns pong.
func (v *View) ping(c echo.Context) error {
	return c.String(http.StatusOK, "pong")
}

// health returns current healthiness status.
func (v *View) health(c echo.Context) error {
	if err := v.core.DB.PingContext(getContext(c)); err != nil {
		c.Logger().Error(err)
		return c.String(http.StatusInternalServerError, "unhealthy")
	}
	if v.broker != nil {
		if err := v.broker.Ping(); err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, "unhealthy")
		}
	}
	return c.String(http.StatusOK, "healthy")
}

const (
	userIDHeader = "X-User-ID"
	viewerKey    = "viewer"
)

// extractViewer extracts ID of user from trusted gateway header.
func (v *View) extractViewer(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(userIDHeader)
		if header == "" {
			return errorResponse{
				Code:    http.StatusUnauthorized,
				Message: "Unable to authorize.",
			}
		}
		id, err := strconv.ParseInt(header, 10, 64)
		if err != nil || id <= 0 {
			c.Logger().Warn("Invalid user ID header", logs.Any("header", header))
			return errorResponse{
				Code:    http.StatusUnauthorized,
				Message: "Invalid user ID.",
			}
		}
		c.Set(viewerKey, id)
		return next(c)
	}
}

func getViewerID(c echo.Context) (int64, error) {
	id, ok := c.Get(viewerKey).(int64)
	if !ok {
		c.Logger().Error("viewer not extracted")
		return 0, fmt.Errorf("viewer not extracted")
	}
	return id, nil
}

func getContext(c echo.Context) context.Context {
	return c.Request().Context()
}

type errorField struct {
	Message string `json:"message"`
}

type errorFields map[string]errorField

type errorResponse struct {
	// Code.
	Code int `json:"-"`
	// Message.
	Message string `json:"message"`
	// InvalidFields.
	InvalidFields errorFields `json:"invalid_fields,omitempty"`
}

// StatusCode returns response status code.
func (r errorResponse) StatusCode() int {
	return r.Code
}

// Error returns response error message.
func (r errorResponse) Error() string {
	var result strings.Builder
	result.WriteString(r.Message)
	if len(r.InvalidFields) > 0 {
		fields := make([]string, 0, len(r.InvalidFields))
		for field := range r.InvalidFields {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		result.WriteString(" (invalid fields: ")
		result.WriteString(strings.Join(fields, ", "))
		result.WriteRune(')')
	}
	return result.String()
}

type statusCodeResponse interface {
	StatusCode() int
}

// conflictMessages contains messages of rejected submissions.
var conflictMessages = []struct {
	Err     error
	Message string
}{
	{managers.ErrLanguageNotAllowed, "Language is not allowed for problem."},
	{managers.ErrTemplateModified, "Locked code of template is modified."},
	{managers.ErrAlreadyAccepted, "Problem is already accepted."},
	{managers.ErrContestNotOngoing, "Contest is not running."},
	{managers.ErrNotRegistered, "User is not registered in contest."},
}

// wrapManagerError converts manager error to response.
func wrapManagerError(err error) error {
	var fieldErrs managers.FieldErrors
	if errors.As(err, &fieldErrs) {
		resp := errorResponse{
			Code:          http.StatusBadRequest,
			Message:       "Form has invalid fields.",
			InvalidFields: errorFields{},
		}
		for field, message := range fieldErrs {
			resp.InvalidFields[field] = errorField{Message: message}
		}
		return resp
	}
	for _, conflict := range conflictMessages {
		if errors.Is(err, conflict.Err) {
			return errorResponse{
				Code:    http.StatusConflict,
				Message: conflict.Message,
			}
		}
	}
	switch {
	case errors.Is(err, managers.ErrForbidden):
		return errorResponse{
			Code:    http.StatusForbidden,
			Message: "Access is forbidden.",
		}
	case models.IsNotFound(err):
		return errorResponse{
			Code:    http.StatusNotFound,
			Message: "Not found.",
		}
	default:
		return err
	}
}

var (
	rnd      = rand.NewSource(time.Now().UnixNano())
	rndMutex = sync.Mutex{}
)

func randUint32() uint32 {
	rndMutex.Lock()
	defer rndMutex.Unlock()
	return uint32(rnd.Int63() >> 32)
}

func wrapResponse(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		reqID := c.Request().Header.Get(echo.HeaderXRequestID)
		if reqID == "" {
			reqID = fmt.Sprintf("%d-%d", time.Now().UnixMilli(), randUint32())
		}
		logger := c.Logger().(*logs.Logger).With(logs.Any("req_id", reqID))
		c.SetLogger(logger)
		c.Response().Header().Add(echo.HeaderXRequestID, reqID)
		c.Response().Header().Add("X-Grader-Version", config.Version)
		start := time.Now()
		err := next(c)
		status := c.Response().Status
		if err != nil {
			status = http.StatusInternalServerError
		}
		if resp, ok := err.(statusCodeResponse); ok {
			status = resp.StatusCode()
			if status == 0 {
				status = http.StatusInternalServerError
			}
		}
		defer func() {
			finish := time.Now()
			message := fmt.Sprintf("%s %s", c.Request().Method, c.Request().RequestURI)
			params := map[string]string{}
			for _, name := range c.ParamNames() {
				params[name] = c.Param(name)
			}
			args := []any{
				message,
				logs.Any("status", status),
				logs.Any("method", c.Request().Method),
				logs.Any("path", c.Path()),
				logs.Any("params", params),
				logs.Any("remote_ip", c.RealIP()),
				logs.Any("latency", finish.Sub(start).String()),
				err,
			}
			switch {
			case status >= 500:
				logger.Error(args...)
			case status >= 400:
				logger.Warn(args...)
			default:
				logger.Info(args...)
			}
		}()
		if resp, ok := err.(statusCodeResponse); ok {
			return c.JSON(status, resp)
		}
		return err
	}
}
