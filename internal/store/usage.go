package store

import (
	"context"
	"database/sql"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/eikengen/internal/eiken"
)

// usageRepo implements UsageRepo.
type usageRepo struct {
	db *sql.DB
}

func (r *usageRepo) AppendUsage(ctx context.Context, e UsageEvent) error {
	return appendUsage(ctx, r.db, e)
}

func appendUsage(ctx context.Context, q querier, e UsageEvent) error {
	var session any
	if e.SessionID != "" {
		session = e.SessionID
	}
	query, args := builder().Insert(usageTable.Name).
		Columns("student_id", "grade", "topic_code", "question_type", "session_id", "used_at").
		Values(e.StudentID, string(e.Grade), e.TopicCode, string(e.QuestionType), session, millis(e.UsedAt)).
		Query()
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("append usage: %w", err)
	}
	return nil
}

func (r *usageRepo) RecentTopics(ctx context.Context, studentID string, grade eiken.Grade, qt eiken.QuestionType, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}
	query, args := builder().Select("topic_code").
		From(entsql.Table(usageTable.Name)).
		Where(entsql.And(
			entsql.EQ("student_id", studentID),
			entsql.EQ("grade", string(grade)),
			entsql.EQ("question_type", string(qt)),
		)).
		OrderBy(entsql.Desc("used_at"), entsql.Desc("id")).
		Limit(limit).
		Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent topics: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scan recent topic: %w", err)
		}
		out = append(out, code)
	}
	return out, rows.Err()
}
