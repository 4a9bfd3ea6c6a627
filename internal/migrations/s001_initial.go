package migrations

import (
	"github.com/udovin/grader/internal/db"
	"github.com/udovin/grader/internal/db/schema"
)

func init() {
	Schema.AddMigration("001_initial", db.NewMigration(s001Operations))
}

func idColumn() schema.Column {
	return schema.Column{
		Name: "id", Type: schema.Int64, PrimaryKey: true, AutoIncrement: true,
	}
}

func int64Column(name string) schema.Column {
	return schema.Column{Name: name, Type: schema.Int64}
}

func nullInt64Column(name string) schema.Column {
	return schema.Column{Name: name, Type: schema.Int64, Nullable: true}
}

func standingColumns(context string) []schema.Column {
	return []schema.Column{
		idColumn(),
		int64Column("user_id"),
		int64Column("accepted_problem_num"),
		int64Column("score"),
		int64Column("penalty"),
		nullInt64Column("finish_time"),
		int64Column(context),
	}
}

func scoredProblemColumns(context string) []schema.Column {
	return []schema.Column{
		idColumn(),
		int64Column("problem_id"),
		int64Column("score"),
		int64Column(context),
	}
}

func periodColumns() []schema.Column {
	return []schema.Column{
		idColumn(),
		int64Column("begin_time"),
		int64Column("end_time"),
		{Name: "title", Type: schema.String},
		{Name: "is_judge_result_visible", Type: schema.Bool},
	}
}

var s001Operations = []schema.Operation{
	schema.CreateTable{
		Name: "grader_user",
		Columns: []schema.Column{
			idColumn(),
			{Name: "login", Type: schema.String},
			int64Column("role"),
		},
	},
	schema.CreateIndex{
		Name:    "grader_user_login_idx",
		Table:   "grader_user",
		Columns: []string{"login"},
		Unique:  true,
	},
	schema.CreateTable{
		Name: "grader_problem",
		Columns: []schema.Column{
			idColumn(),
			{Name: "title", Type: schema.String},
			{Name: "languages", Type: schema.JSON},
			{Name: "template", Type: schema.JSON},
			int64Column("time_limit"),
			int64Column("memory_limit"),
			int64Column("submission_count"),
			int64Column("accepted_count"),
			{Name: "accepted_rate", Type: schema.Float64},
		},
	},
	schema.CreateTable{
		Name: "grader_testcase",
		Columns: []schema.Column{
			idColumn(),
			int64Column("problem_id"),
			{Name: "is_hidden", Type: schema.Bool},
			{Name: "is_outdated", Type: schema.Bool},
			int64Column("score_weight_numerator"),
			int64Column("score_weight_denominator"),
			int64Column("submission_count"),
			int64Column("accepted_count"),
		},
	},
	schema.CreateIndex{
		Name:    "grader_testcase_problem_idx",
		Table:   "grader_testcase",
		Columns: []string{"problem_id"},
	},
	schema.CreateTable{
		Name:    "grader_contest",
		Columns: periodColumns(),
	},
	schema.CreateTable{
		Name:    "grader_contest_problem",
		Columns: scoredProblemColumns("contest_id"),
	},
	schema.CreateIndex{
		Name:    "grader_contest_problem_idx",
		Table:   "grader_contest_problem",
		Columns: []string{"contest_id", "problem_id"},
		Unique:  true,
	},
	schema.CreateTable{
		Name:    "grader_contest_record",
		Columns: standingColumns("contest_id"),
	},
	schema.CreateIndex{
		Name:    "grader_contest_record_idx",
		Table:   "grader_contest_record",
		Columns: []string{"contest_id", "user_id"},
		Unique:  true,
	},
	schema.CreateTable{
		Name:    "grader_assignment",
		Columns: periodColumns(),
	},
	schema.CreateTable{
		Name:    "grader_assignment_problem",
		Columns: scoredProblemColumns("assignment_id"),
	},
	schema.CreateIndex{
		Name:    "grader_assignment_problem_idx",
		Table:   "grader_assignment_problem",
		Columns: []string{"assignment_id", "problem_id"},
		Unique:  true,
	},
	schema.CreateTable{
		Name:    "grader_assignment_record",
		Columns: standingColumns("assignment_id"),
	},
	schema.CreateIndex{
		Name:    "grader_assignment_record_idx",
		Table:   "grader_assignment_record",
		Columns: []string{"assignment_id", "user_id"},
		Unique:  true,
	},
	schema.CreateTable{
		Name: "grader_workbook",
		Columns: []schema.Column{
			idColumn(),
			{Name: "title", Type: schema.String},
		},
	},
	schema.CreateTable{
		Name: "grader_submission",
		Columns: []schema.Column{
			idColumn(),
			int64Column("user_id"),
			int64Column("problem_id"),
			nullInt64Column("contest_id"),
			nullInt64Column("assignment_id"),
			nullInt64Column("workbook_id"),
			{Name: "code", Type: schema.JSON},
			{Name: "language", Type: schema.String},
			int64Column("verdict"),
			int64Column("score"),
			{Name: "error", Type: schema.String, Nullable: true},
			int64Column("code_size"),
			int64Column("testcase_count"),
			{Name: "testcase_ids", Type: schema.JSON},
			int64Column("create_time"),
			int64Column("update_time"),
		},
	},
	schema.CreateIndex{
		Name:    "grader_submission_user_problem_idx",
		Table:   "grader_submission",
		Columns: []string{"user_id", "problem_id"},
	},
	schema.CreateIndex{
		Name:    "grader_submission_verdict_idx",
		Table:   "grader_submission",
		Columns: []string{"verdict", "create_time"},
	},
	schema.CreateTable{
		Name: "grader_submission_result",
		Columns: []schema.Column{
			idColumn(),
			int64Column("submission_id"),
			int64Column("testcase_id"),
			int64Column("verdict"),
			int64Column("cpu_time"),
			int64Column("memory"),
			{Name: "output", Type: schema.String, Nullable: true},
		},
	},
	schema.CreateIndex{
		Name:    "grader_submission_result_idx",
		Table:   "grader_submission_result",
		Columns: []string{"submission_id", "testcase_id"},
		Unique:  true,
	},
}
