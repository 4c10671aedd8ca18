package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/eikengen/internal/eiken"
)

// topicRepo implements TopicRepo.
type topicRepo struct {
	db *sql.DB
}

var topicSelectColumns = []string{
	"id", "grade", "code", "label_en", "label_ja", "abstractness", "context_type",
	"scenario", "sub_topics", "argument_axes", "weight", "official_frequency", "active",
}

func (r *topicRepo) UpsertTopic(ctx context.Context, t Topic) error {
	if t.Weight <= 0 {
		return fmt.Errorf("topic %s/%s: weight must be positive", t.Grade, t.Code)
	}
	subs, err := json.Marshal(nonNil(t.SubTopics))
	if err != nil {
		return fmt.Errorf("marshal sub topics: %w", err)
	}
	axes, err := json.Marshal(nonNil(t.ArgumentAxes))
	if err != nil {
		return fmt.Errorf("marshal argument axes: %w", err)
	}

	query, args := builder().Insert(topicsTable.Name).
		Columns("grade", "code", "label_en", "label_ja", "abstractness", "context_type",
			"scenario", "sub_topics", "argument_axes", "weight", "official_frequency", "active", "created_at").
		Values(string(t.Grade), t.Code, t.LabelEN, t.LabelJA, t.Abstractness, t.ContextType,
			t.Scenario, string(subs), string(axes), t.Weight, t.OfficialFrequency, t.Active, millis(time.Now())).
		OnConflict(
			entsql.ConflictColumns("grade", "code"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				for _, c := range []string{"label_en", "label_ja", "abstractness", "context_type",
					"scenario", "sub_topics", "argument_axes", "weight", "official_frequency", "active"} {
					u.SetExcluded(c)
				}
			}),
		).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert topic %s/%s: %w", t.Grade, t.Code, err)
	}
	return nil
}

func (r *topicRepo) ActiveTopics(ctx context.Context, grades ...eiken.Grade) ([]Topic, error) {
	sel := builder().Select(topicSelectColumns...).From(entsql.Table(topicsTable.Name))
	pred := entsql.EQ("active", true)
	if len(grades) > 0 {
		pred = entsql.And(pred, entsql.In("grade", gradeArgs(grades)...))
	}
	sel.Where(pred).OrderBy("grade", "code")
	return r.query(ctx, sel)
}

func (r *topicRepo) ListTopics(ctx context.Context, grade eiken.Grade) ([]Topic, error) {
	sel := builder().Select(topicSelectColumns...).From(entsql.Table(topicsTable.Name))
	if grade != "" {
		sel.Where(entsql.EQ("grade", string(grade)))
	}
	sel.OrderBy("grade", "code")
	return r.query(ctx, sel)
}

func (r *topicRepo) SetActive(ctx context.Context, grade eiken.Grade, code string, active bool) error {
	query, args := builder().Update(topicsTable.Name).
		Set("active", active).
		Where(entsql.And(entsql.EQ("grade", string(grade)), entsql.EQ("code", code))).
		Query()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("set active %s/%s: %w", grade, code, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("topic %s/%s not found", grade, code)
	}
	return nil
}

func (r *topicRepo) SetSuitability(ctx context.Context, key TopicKey, qt eiken.QuestionType, score float64) error {
	if score < 0 {
		return fmt.Errorf("suitability for %s/%s: score must not be negative", key.Grade, key.Code)
	}
	query, args := builder().Insert(suitabilityTable.Name).
		Columns("topic_code", "grade", "question_type", "score").
		Values(key.Code, string(key.Grade), string(qt), score).
		OnConflict(
			entsql.ConflictColumns("topic_code", "grade", "question_type"),
			entsql.ResolveWithNewValues(),
		).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("set suitability: %w", err)
	}
	return nil
}

func (r *topicRepo) Suitability(ctx context.Context, qt eiken.QuestionType) (map[TopicKey]float64, error) {
	query, args := builder().Select("topic_code", "grade", "score").
		From(entsql.Table(suitabilityTable.Name)).
		Where(entsql.EQ("question_type", string(qt))).
		Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query suitability: %w", err)
	}
	defer rows.Close()

	out := make(map[TopicKey]float64)
	for rows.Next() {
		var code, grade string
		var score float64
		if err := rows.Scan(&code, &grade, &score); err != nil {
			return nil, fmt.Errorf("scan suitability: %w", err)
		}
		out[TopicKey{Grade: eiken.Grade(grade), Code: code}] = score
	}
	return out, rows.Err()
}

func (r *topicRepo) query(ctx context.Context, sel *entsql.Selector) ([]Topic, error) {
	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query topics: %w", err)
	}
	defer rows.Close()

	var out []Topic
	for rows.Next() {
		var (
			t          Topic
			grade      string
			subs, axes sql.NullString
		)
		if err := rows.Scan(&t.ID, &grade, &t.Code, &t.LabelEN, &t.LabelJA, &t.Abstractness,
			&t.ContextType, &t.Scenario, &subs, &axes, &t.Weight, &t.OfficialFrequency, &t.Active); err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		t.Grade = eiken.Grade(grade)
		if subs.Valid && subs.String != "" {
			if err := json.Unmarshal([]byte(subs.String), &t.SubTopics); err != nil {
				return nil, fmt.Errorf("unmarshal sub topics of %s: %w", t.Code, err)
			}
		}
		if axes.Valid && axes.String != "" {
			if err := json.Unmarshal([]byte(axes.String), &t.ArgumentAxes); err != nil {
				return nil, fmt.Errorf("unmarshal argument axes of %s: %w", t.Code, err)
			}
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func gradeArgs(grades []eiken.Grade) []any {
	out := make([]any, len(grades))
	for i, g := range grades {
		out[i] = string(g)
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
