// Package core contains shared resources of grader.
package core

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/udovin/gosql"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/udovin/grader/internal/config"
	"github.com/udovin/grader/internal/db"
	"github.com/udovin/grader/internal/models"
	"github.com/udovin/grader/internal/pkg/logs"
)

// TracerName contains name of grader tracer.
const TracerName = "github.com/udovin/grader"

// Core manages all available resources.
type Core struct {
	// Config contains config.
	Config config.Config
	// Users contains user store.
	Users *models.UserStore
	// Problems contains problem store.
	Problems *models.ProblemStore
	// Testcases contains testcase store.
	Testcases *models.TestcaseStore
	// Submissions contains submission store.
	Submissions *models.SubmissionStore
	// SubmissionResults contains submission result store.
	SubmissionResults *models.SubmissionResultStore
	// Contests contains contest store.
	Contests *models.ContestStore
	// ContestProblems contains contest problem store.
	ContestProblems *models.ContestProblemStore
	// ContestRecords contains contest record store.
	ContestRecords *models.ContestRecordStore
	// Assignments contains assignment store.
	Assignments *models.AssignmentStore
	// AssignmentProblems contains assignment problem store.
	AssignmentProblems *models.AssignmentProblemStore
	// AssignmentRecords contains assignment record store.
	AssignmentRecords *models.AssignmentRecordStore
	// Workbooks contains workbook store.
	Workbooks *models.WorkbookStore
	//
	context context.Context
	cancel  context.CancelFunc
	waiter  sync.WaitGroup
	//
	taskContext context.Context
	taskCancel  context.CancelFunc
	taskWaiter  sync.WaitGroup
	// DB stores database connection.
	DB *gosql.DB
	// logger contains logger.
	logger *logs.Logger
	// tracer contains tracer.
	tracer trace.Tracer
	// now returns current time.
	now func() time.Time
}

// NewCore creates core instance from config.
func NewCore(cfg config.Config) (*Core, error) {
	conn, err := cfg.DB.Create()
	if err != nil {
		return nil, err
	}
	return &Core{
		Config: cfg,
		DB:     conn,
		logger: logs.NewLogger(log.Lvl(cfg.LogLevel)),
		tracer: otel.Tracer(TracerName),
		now:    time.Now,
	}, nil
}

// SetupAllStores prepares all stores.
func (c *Core) SetupAllStores() {
	c.Users = models.NewUserStore(c.DB, "grader_user")
	c.Problems = models.NewProblemStore(c.DB, "grader_problem")
	c.Testcases = models.NewTestcaseStore(c.DB, "grader_testcase")
	c.Submissions = models.NewSubmissionStore(c.DB, "grader_submission")
	c.SubmissionResults = models.NewSubmissionResultStore(c.DB, "grader_submission_result")
	c.Contests = models.NewContestStore(c.DB, "grader_contest")
	c.ContestProblems = models.NewContestProblemStore(c.DB, "grader_contest_problem")
	c.ContestRecords = models.NewContestRecordStore(c.DB, "grader_contest_record")
	c.Assignments = models.NewAssignmentStore(c.DB, "grader_assignment")
	c.AssignmentProblems = models.NewAssignmentProblemStore(c.DB, "grader_assignment_problem")
	c.AssignmentRecords = models.NewAssignmentRecordStore(c.DB, "grader_assignment_record")
	c.Workbooks = models.NewWorkbookStore(c.DB, "grader_workbook")
}

// Logger returns logger instance.
func (c *Core) Logger() *logs.Logger {
	return c.logger
}

// SetLogger replaces logger instance.
func (c *Core) SetLogger(logger *logs.Logger) {
	c.logger = logger
}

// Tracer returns tracer instance.
func (c *Core) Tracer() trace.Tracer {
	return c.tracer
}

// Now returns current time.
func (c *Core) Now() time.Time {
	return c.now()
}

// SetNow replaces clock of core.
func (c *Core) SetNow(now func() time.Time) {
	c.now = now
}

// Start starts core background tasks.
func (c *Core) Start() error {
	if c.cancel != nil {
		return fmt.Errorf("core already started")
	}
	c.Logger().Debug("Starting core")
	c.context, c.cancel = context.WithCancel(context.Background())
	c.taskContext, c.taskCancel = context.WithCancel(c.context)
	c.Logger().Debug("Core started")
	return nil
}

// Stop stops all started tasks.
func (c *Core) Stop() {
	if c.cancel == nil {
		return
	}
	c.Logger().Debug("Stopping core")
	defer c.Logger().Debug("Core stopped")
	c.taskCancel()
	c.taskWaiter.Wait()
	c.cancel()
	c.waiter.Wait()
	c.context, c.cancel = nil, nil
}

// Interrupt cancels context of started core without waiting for tasks.
//
// Owner of core should call Stop after context is done.
func (c *Core) Interrupt() {
	if cancel := c.cancel; cancel != nil {
		cancel()
	}
}

// Context returns context of started core.
func (c *Core) Context() context.Context {
	return c.context
}

// WrapTx runs function with transaction.
func (c *Core) WrapTx(
	ctx context.Context, fn func(ctx context.Context) error,
	options ...gosql.BeginTxOption,
) (err error) {
	return gosql.WrapTx(ctx, c.DB, func(tx *sql.Tx) error {
		return fn(db.WithTx(ctx, tx))
	}, options...)
}

// StartTask starts task in new goroutine.
func (c *Core) StartTask(name string, task func(ctx context.Context)) {
	c.Logger().Info("Start task", logs.Any("task", name))
	c.taskWaiter.Add(1)
	c.startCoreTask(func() {
		defer c.taskWaiter.Done()
		defer c.Logger().Info("Task finished", logs.Any("task", name))
		task(c.taskContext)
	})
}

func (c *Core) startCoreTask(task func()) {
	c.waiter.Add(1)
	go func() {
		defer c.waiter.Done()
		task()
	}()
}
