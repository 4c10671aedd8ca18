package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/eikengen/internal/eiken"
)

// itemRepo implements ItemRepo.
type itemRepo struct {
	db *sql.DB
}

var itemSelectColumns = []string{
	"id", "student_id", "session_id", "grade", "question_type", "topic_code", "topic_grade",
	"selection_method", "fallback_stage", "content", "validation", "created_at",
}

func (r *itemRepo) SaveItem(ctx context.Context, item GeneratedItem) error {
	if item.ID == "" {
		return fmt.Errorf("save item: id is required")
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	var validation any
	if len(item.Validation) > 0 {
		validation = string(item.Validation)
	}
	query, args := builder().Insert(itemTable.Name).
		Columns(itemSelectColumns...).
		Values(item.ID, item.StudentID, item.SessionID, string(item.Grade), string(item.QuestionType),
			item.TopicCode, string(item.TopicGrade), item.SelectionMethod, item.FallbackStage,
			string(item.Content), validation, millis(item.CreatedAt)).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save item %s: %w", item.ID, err)
	}
	return nil
}

func (r *itemRepo) ListItems(ctx context.Context, f ItemFilter) ([]GeneratedItem, error) {
	sel := builder().Select(itemSelectColumns...).From(entsql.Table(itemTable.Name))
	var preds []*entsql.Predicate
	if f.StudentID != "" {
		preds = append(preds, entsql.EQ("student_id", f.StudentID))
	}
	if f.SessionID != "" {
		preds = append(preds, entsql.EQ("session_id", f.SessionID))
	}
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	sel.OrderBy(entsql.Desc("created_at"))
	if f.Limit > 0 {
		sel.Limit(f.Limit)
	}

	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var out []GeneratedItem
	for rows.Next() {
		var (
			it                    GeneratedItem
			grade, qt, topicGrade string
			content               string
			validation            sql.NullString
			created               int64
		)
		if err := rows.Scan(&it.ID, &it.StudentID, &it.SessionID, &grade, &qt, &it.TopicCode,
			&topicGrade, &it.SelectionMethod, &it.FallbackStage, &content, &validation, &created); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		it.Grade = eiken.Grade(grade)
		it.QuestionType = eiken.QuestionType(qt)
		it.TopicGrade = eiken.Grade(topicGrade)
		it.Content = []byte(content)
		if validation.Valid {
			it.Validation = []byte(validation.String)
		}
		it.CreatedAt = fromMillis(created)
		out = append(out, it)
	}
	return out, rows.Err()
}
