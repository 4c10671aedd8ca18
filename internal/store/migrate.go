package store

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table and column layout. Timestamps are unix milliseconds so range
// predicates compare as integers.
var (
	topicsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "grade", Type: field.TypeString},
		{Name: "code", Type: field.TypeString},
		{Name: "label_en", Type: field.TypeString, Default: ""},
		{Name: "label_ja", Type: field.TypeString, Default: ""},
		{Name: "abstractness", Type: field.TypeInt, Default: 1},
		{Name: "context_type", Type: field.TypeString, Default: ""},
		{Name: "scenario", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "sub_topics", Type: field.TypeJSON, Nullable: true},
		{Name: "argument_axes", Type: field.TypeJSON, Nullable: true},
		{Name: "weight", Type: field.TypeFloat64, Default: 1.0},
		{Name: "official_frequency", Type: field.TypeFloat64, Default: 1.0},
		{Name: "active", Type: field.TypeBool, Default: true},
		{Name: "created_at", Type: field.TypeInt64},
	}
	topicsTable = &schema.Table{
		Name:       "topics",
		Columns:    topicsColumns,
		PrimaryKey: []*schema.Column{topicsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "topic_grade_code", Unique: true, Columns: []*schema.Column{topicsColumns[1], topicsColumns[2]}},
			{Name: "topic_active", Columns: []*schema.Column{topicsColumns[12]}},
		},
	}

	suitabilityColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "topic_code", Type: field.TypeString},
		{Name: "grade", Type: field.TypeString},
		{Name: "question_type", Type: field.TypeString},
		{Name: "score", Type: field.TypeFloat64},
	}
	suitabilityTable = &schema.Table{
		Name:       "topic_suitability",
		Columns:    suitabilityColumns,
		PrimaryKey: []*schema.Column{suitabilityColumns[0]},
		Indexes: []*schema.Index{
			{Name: "suitability_key", Unique: true, Columns: suitabilityColumns[1:4]},
		},
	}

	usageColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "student_id", Type: field.TypeString},
		{Name: "grade", Type: field.TypeString},
		{Name: "topic_code", Type: field.TypeString},
		{Name: "question_type", Type: field.TypeString},
		{Name: "session_id", Type: field.TypeString, Nullable: true},
		{Name: "used_at", Type: field.TypeInt64},
	}
	usageTable = &schema.Table{
		Name:       "usage_events",
		Columns:    usageColumns,
		PrimaryKey: []*schema.Column{usageColumns[0]},
		Indexes: []*schema.Index{
			{Name: "usage_recent", Columns: []*schema.Column{usageColumns[1], usageColumns[2], usageColumns[4], usageColumns[6]}},
		},
	}

	blacklistColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "student_id", Type: field.TypeString},
		{Name: "grade", Type: field.TypeString},
		{Name: "topic_code", Type: field.TypeString},
		{Name: "question_type", Type: field.TypeString},
		{Name: "reason", Type: field.TypeString},
		{Name: "failure_count", Type: field.TypeInt, Default: 1},
		{Name: "expires_at", Type: field.TypeInt64, Nullable: true},
		{Name: "created_at", Type: field.TypeInt64},
		{Name: "updated_at", Type: field.TypeInt64},
	}
	blacklistTable = &schema.Table{
		Name:       "blacklist_entries",
		Columns:    blacklistColumns,
		PrimaryKey: []*schema.Column{blacklistColumns[0]},
		Indexes: []*schema.Index{
			{Name: "blacklist_key", Unique: true, Columns: blacklistColumns[1:5]},
		},
	}

	statisticsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "grade", Type: field.TypeString},
		{Name: "topic_code", Type: field.TypeString},
		{Name: "question_type", Type: field.TypeString},
		{Name: "selection_count", Type: field.TypeInt, Default: 0},
		{Name: "success_count", Type: field.TypeInt, Default: 0},
		{Name: "failure_count", Type: field.TypeInt, Default: 0},
		{Name: "avg_completion_ms", Type: field.TypeFloat64, Default: 0},
		{Name: "last_selected_at", Type: field.TypeInt64, Nullable: true},
	}
	statisticsTable = &schema.Table{
		Name:       "topic_statistics",
		Columns:    statisticsColumns,
		PrimaryKey: []*schema.Column{statisticsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "statistics_key", Unique: true, Columns: statisticsColumns[1:4]},
		},
	}

	lexiconColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "lemma", Type: field.TypeString, Unique: true},
		{Name: "level", Type: field.TypeInt},
		{Name: "zipf", Type: field.TypeFloat64},
		{Name: "pos", Type: field.TypeString, Default: ""},
	}
	lexiconTable = &schema.Table{
		Name:       "lexicon_entries",
		Columns:    lexiconColumns,
		PrimaryKey: []*schema.Column{lexiconColumns[0]},
	}

	llmEventColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "created_at", Type: field.TypeInt64},
		{Name: "provider", Type: field.TypeString},
		{Name: "model", Type: field.TypeString},
		{Name: "purpose", Type: field.TypeString},
		{Name: "input_tokens", Type: field.TypeInt, Default: 0},
		{Name: "output_tokens", Type: field.TypeInt, Default: 0},
		{Name: "latency_ms", Type: field.TypeInt64, Default: 0},
		{Name: "success", Type: field.TypeBool},
		{Name: "error_message", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "request_body", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "response_body", Type: field.TypeString, Size: 2147483647, Default: ""},
	}
	llmEventTable = &schema.Table{
		Name:       "llm_request_events",
		Columns:    llmEventColumns,
		PrimaryKey: []*schema.Column{llmEventColumns[0]},
	}

	itemColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "student_id", Type: field.TypeString},
		{Name: "session_id", Type: field.TypeString, Default: ""},
		{Name: "grade", Type: field.TypeString},
		{Name: "question_type", Type: field.TypeString},
		{Name: "topic_code", Type: field.TypeString},
		{Name: "topic_grade", Type: field.TypeString},
		{Name: "selection_method", Type: field.TypeString},
		{Name: "fallback_stage", Type: field.TypeInt},
		{Name: "content", Type: field.TypeJSON},
		{Name: "validation", Type: field.TypeJSON, Nullable: true},
		{Name: "created_at", Type: field.TypeInt64},
	}
	itemTable = &schema.Table{
		Name:       "generated_items",
		Columns:    itemColumns,
		PrimaryKey: []*schema.Column{itemColumns[0]},
		Indexes: []*schema.Index{
			{Name: "item_student_created", Columns: []*schema.Column{itemColumns[1], itemColumns[11]}},
		},
	}

	tables = []*schema.Table{
		topicsTable,
		suitabilityTable,
		usageTable,
		blacklistTable,
		statisticsTable,
		lexiconTable,
		llmEventTable,
		itemTable,
	}
)

// migrate creates or upgrades every table.
func migrate(ctx context.Context, drv dialect.Driver) error {
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return fmt.Errorf("new migrate: %w", err)
	}
	if err := m.Create(ctx, tables...); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}
