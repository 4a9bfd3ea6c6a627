package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/udovin/grader/internal/config"
	"github.com/udovin/grader/internal/core"
	"github.com/udovin/grader/internal/db"
	"github.com/udovin/grader/internal/managers"
	"github.com/udovin/grader/internal/migrations"
	"github.com/udovin/grader/internal/models"
	"github.com/udovin/grader/internal/pkg/logs"
)

var (
	testView      *View
	testSrv       *echo.Echo
	testBroker    *testPinger
	testPublisher *testJudgePublisher
	testUser      models.User
	testOther     models.User
	testProblem   models.Problem
)

type testPinger struct {
	err error
}

func (p *testPinger) Ping() error {
	return p.err
}

type testJudgePublisher struct {
	count int
}

func (p *testJudgePublisher) Publish(
	ctx context.Context, code []models.Snippet, submission models.Submission,
) error {
	p.count++
	return nil
}

func testSetup(tb testing.TB) {
	c, err := core.NewCore(config.Config{
		DB: config.DB{Options: config.SQLiteOptions{Path: ":memory:"}},
	})
	if err != nil {
		tb.Fatal("Error:", err)
	}
	c.SetLogger(logs.NewTestLogger(io.Discard))
	c.SetNow(func() time.Time { return time.Unix(1700000000, 0) })
	c.SetupAllStores()
	ctx := context.Background()
	if err := db.ApplyMigrations(
		ctx, c.DB, migrations.SchemaGroup, migrations.Schema,
	); err != nil {
		tb.Fatal("Error:", err)
	}
	testUser = models.User{Login: "user"}
	if err := c.Users.Create(ctx, &testUser); err != nil {
		tb.Fatal("Error:", err)
	}
	testOther = models.User{Login: "other"}
	if err := c.Users.Create(ctx, &testOther); err != nil {
		tb.Fatal("Error:", err)
	}
	testProblem = models.Problem{Title: "A+B", TimeLimit: 1000, MemoryLimit: 256}
	if err := testProblem.SetLanguages([]models.Language{models.Cpp}); err != nil {
		tb.Fatal("Error:", err)
	}
	if err := c.Problems.Create(ctx, &testProblem); err != nil {
		tb.Fatal("Error:", err)
	}
	testcase := models.Testcase{ProblemID: testProblem.ID}
	if err := c.Testcases.Create(ctx, &testcase); err != nil {
		tb.Fatal("Error:", err)
	}
	if err := c.Start(); err != nil {
		tb.Fatal("Error:", err)
	}
	testBroker = &testPinger{}
	testPublisher = &testJudgePublisher{}
	testSrv = echo.New()
	testSrv.Logger = c.Logger()
	testView = NewView(c, managers.NewSubmissionManager(c, testPublisher), testBroker)
	testView.Register(testSrv.Group("/api"))
}

func testTeardown(tb testing.TB) {
	testView.core.Stop()
	_ = testView.core.DB.Close()
}

func testRequest(
	tb testing.TB, method, path string, userID int64, body any,
) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			tb.Fatal("Error:", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if userID != 0 {
		req.Header.Set(userIDHeader, strconv.FormatInt(userID, 10))
	}
	rec := httptest.NewRecorder()
	testSrv.ServeHTTP(rec, req)
	return rec
}

func expectStatus(tb testing.TB, expected, got int) {
	if got != expected {
		tb.Fatalf("Expected %v, got %v", expected, got)
	}
}

func TestPing(t *testing.T) {
	testSetup(t)
	defer testTeardown(t)
	rec := testRequest(t, http.MethodGet, "/api/ping", 0, nil)
	expectStatus(t, http.StatusOK, rec.Code)
	if rec.Header().Get("X-Grader-Version") != config.Version {
		t.Fatalf("Expected %q, got %q", config.Version, rec.Header().Get("X-Grader-Version"))
	}
}

func TestHealth(t *testing.T) {
	testSetup(t)
	defer testTeardown(t)
	rec := testRequest(t, http.MethodGet, "/api/health", 0, nil)
	expectStatus(t, http.StatusOK, rec.Code)
	testBroker.err = errors.New("connection closed")
	rec = testRequest(t, http.MethodGet, "/api/health", 0, nil)
	expectStatus(t, http.StatusInternalServerError, rec.Code)
}

func TestHealthUnhealthy(t *testing.T) {
	testSetup(t)
	defer testTeardown(t)
	if err := testView.core.DB.Close(); err != nil {
		t.Fatal("Error:", err)
	}
	rec := testRequest(t, http.MethodGet, "/api/health", 0, nil)
	expectStatus(t, http.StatusInternalServerError, rec.Code)
}

func TestWrapManagerError(t *testing.T) {
	tests := []struct {
		Err  error
		Code int
	}{
		{managers.FieldErrors{"code": "required"}, http.StatusBadRequest},
		{managers.ErrLanguageNotAllowed, http.StatusConflict},
		{managers.ErrTemplateModified, http.StatusConflict},
		{managers.ErrAlreadyAccepted, http.StatusConflict},
		{managers.ErrContestNotOngoing, http.StatusConflict},
		{managers.ErrNotRegistered, http.StatusConflict},
		{managers.ErrForbidden, http.StatusForbidden},
		{models.ErrEntityNotExist, http.StatusNotFound},
	}
	for _, test := range tests {
		var resp errorResponse
		if !errors.As(wrapManagerError(test.Err), &resp) {
			t.Fatalf("Expected error response for %v", test.Err)
		}
		expectStatus(t, test.Code, resp.StatusCode())
	}
	err := errors.New("unknown error")
	if wrapManagerError(err) != err {
		t.Fatal("Unknown error should not be wrapped")
	}
}
