package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/eikengen/internal/eiken"
)

// statsRepo implements StatsRepo.
type statsRepo struct {
	db *sql.DB
}

var statsSelectColumns = []string{
	"grade", "topic_code", "question_type", "selection_count", "success_count",
	"failure_count", "avg_completion_ms", "last_selected_at",
}

func (r *statsRepo) Statistics(ctx context.Context, qt eiken.QuestionType) (map[TopicKey]TopicStatistics, error) {
	list, err := r.ListStatistics(ctx, StatsFilter{QuestionType: qt})
	if err != nil {
		return nil, err
	}
	out := make(map[TopicKey]TopicStatistics, len(list))
	for _, s := range list {
		out[TopicKey{Grade: s.Grade, Code: s.TopicCode}] = s
	}
	return out, nil
}

func (r *statsRepo) ListStatistics(ctx context.Context, f StatsFilter) ([]TopicStatistics, error) {
	sel := builder().Select(statsSelectColumns...).From(entsql.Table(statisticsTable.Name))
	var preds []*entsql.Predicate
	if f.Grade != "" {
		preds = append(preds, entsql.EQ("grade", string(f.Grade)))
	}
	if f.QuestionType != "" {
		preds = append(preds, entsql.EQ("question_type", string(f.QuestionType)))
	}
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	query, args := sel.OrderBy("grade", "question_type", "topic_code").Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query statistics: %w", err)
	}
	defer rows.Close()

	var out []TopicStatistics
	for rows.Next() {
		s, err := scanStatistics(rows)
		if err != nil {
			return nil, fmt.Errorf("scan statistics: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *statsRepo) Increment(ctx context.Context, key StatsKey, field StatField) error {
	switch field {
	case FieldSelection, FieldSuccess, FieldFailure:
	default:
		return fmt.Errorf("unknown statistics field %q", field)
	}
	return bumpStatistics(ctx, r.db, key, map[StatField]int{field: 1}, nil)
}

// bumpStatistics adds deltas to the counters of key, creating the row on
// first use. selectedAt, when set, becomes last_selected_at.
func bumpStatistics(ctx context.Context, q querier, key StatsKey, deltas map[StatField]int, selectedAt *int64) error {
	changed := selectedAt != nil
	for _, d := range deltas {
		changed = changed || d != 0
	}
	if !changed {
		return ensureStatistics(ctx, q, key)
	}

	cols := []string{"grade", "topic_code", "question_type", "selection_count", "success_count", "failure_count", "avg_completion_ms"}
	vals := []any{string(key.Grade), key.TopicCode, string(key.QuestionType),
		deltas[FieldSelection], deltas[FieldSuccess], deltas[FieldFailure], 0.0}
	if selectedAt != nil {
		cols = append(cols, "last_selected_at")
		vals = append(vals, *selectedAt)
	}

	query, args := builder().Insert(statisticsTable.Name).
		Columns(cols...).
		Values(vals...).
		OnConflict(
			entsql.ConflictColumns("grade", "topic_code", "question_type"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				for f, d := range deltas {
					if d != 0 {
						u.Add(string(f), d)
					}
				}
				if selectedAt != nil {
					u.SetExcluded("last_selected_at")
				}
			}),
		).
		Query()
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("bump statistics %s/%s/%s: %w", key.Grade, key.TopicCode, key.QuestionType, err)
	}
	return nil
}

// ensureStatistics creates a zeroed row for key if none exists.
func ensureStatistics(ctx context.Context, q querier, key StatsKey) error {
	query, args := builder().Insert(statisticsTable.Name).
		Columns("grade", "topic_code", "question_type").
		Values(string(key.Grade), key.TopicCode, string(key.QuestionType)).
		OnConflict(
			entsql.ConflictColumns("grade", "topic_code", "question_type"),
			entsql.DoNothing(),
		).
		Query()
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("ensure statistics %s/%s/%s: %w", key.Grade, key.TopicCode, key.QuestionType, err)
	}
	return nil
}

// getStatistics returns nil when the row does not exist.
func getStatistics(ctx context.Context, q querier, key StatsKey) (*TopicStatistics, error) {
	query, args := builder().Select(statsSelectColumns...).
		From(entsql.Table(statisticsTable.Name)).
		Where(entsql.And(
			entsql.EQ("grade", string(key.Grade)),
			entsql.EQ("topic_code", key.TopicCode),
			entsql.EQ("question_type", string(key.QuestionType)),
		)).
		Query()
	s, err := scanStatistics(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get statistics: %w", err)
	}
	return &s, nil
}

func scanStatistics(s rowScanner) (TopicStatistics, error) {
	var (
		st        TopicStatistics
		grade, qt string
		last      sql.NullInt64
	)
	err := s.Scan(&grade, &st.TopicCode, &qt, &st.SelectionCount, &st.SuccessCount,
		&st.FailureCount, &st.AvgCompletionMs, &last)
	if err != nil {
		return TopicStatistics{}, err
	}
	st.Grade = eiken.Grade(grade)
	st.QuestionType = eiken.QuestionType(qt)
	st.LastSelectedAt = timePtr(last)
	return st, nil
}
