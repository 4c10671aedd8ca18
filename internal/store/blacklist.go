package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/eikengen/internal/eiken"
)

// blacklistRepo implements BlacklistRepo.
type blacklistRepo struct {
	db *sql.DB
}

var blacklistSelectColumns = []string{
	"student_id", "grade", "topic_code", "question_type", "reason",
	"failure_count", "expires_at", "created_at", "updated_at",
}

func (r *blacklistRepo) Entries(ctx context.Context, studentID string, grade eiken.Grade, qt eiken.QuestionType) ([]BlacklistEntry, error) {
	return r.query(ctx, entsql.And(
		entsql.EQ("student_id", studentID),
		entsql.EQ("grade", string(grade)),
		entsql.EQ("question_type", string(qt)),
	))
}

func (r *blacklistRepo) ActiveEntries(ctx context.Context, studentID string, grade eiken.Grade, qt eiken.QuestionType, now time.Time) ([]BlacklistEntry, error) {
	return r.query(ctx, entsql.And(
		entsql.EQ("student_id", studentID),
		entsql.EQ("grade", string(grade)),
		entsql.EQ("question_type", string(qt)),
		entsql.Or(entsql.IsNull("expires_at"), entsql.GT("expires_at", millis(now))),
	))
}

func (r *blacklistRepo) ListBlacklist(ctx context.Context, studentID string) ([]BlacklistEntry, error) {
	if studentID == "" {
		return r.query(ctx, nil)
	}
	return r.query(ctx, entsql.EQ("student_id", studentID))
}

func (r *blacklistRepo) Upsert(ctx context.Context, e BlacklistEntry) error {
	return upsertBlacklist(ctx, r.db, e)
}

func upsertBlacklist(ctx context.Context, q querier, e BlacklistEntry) error {
	if e.FailureCount < 1 {
		return fmt.Errorf("blacklist entry for %s: failure count must be at least 1", e.TopicCode)
	}
	now := time.Now()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = now
	}
	query, args := builder().Insert(blacklistTable.Name).
		Columns("student_id", "grade", "topic_code", "question_type", "reason",
			"failure_count", "expires_at", "created_at", "updated_at").
		Values(e.StudentID, string(e.Grade), e.TopicCode, string(e.QuestionType), e.Reason,
			e.FailureCount, nullMillis(e.ExpiresAt), millis(e.CreatedAt), millis(e.UpdatedAt)).
		OnConflict(
			entsql.ConflictColumns("student_id", "grade", "topic_code", "question_type"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.SetExcluded("reason")
				u.SetExcluded("failure_count")
				u.SetExcluded("expires_at")
				u.SetExcluded("updated_at")
			}),
		).
		Query()
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert blacklist %s/%s/%s: %w", e.StudentID, e.Grade, e.TopicCode, err)
	}
	return nil
}

// getBlacklist returns nil when the key has no entry.
func getBlacklist(ctx context.Context, q querier, key BlacklistKey) (*BlacklistEntry, error) {
	query, args := builder().Select(blacklistSelectColumns...).
		From(entsql.Table(blacklistTable.Name)).
		Where(entsql.And(
			entsql.EQ("student_id", key.StudentID),
			entsql.EQ("grade", string(key.Grade)),
			entsql.EQ("topic_code", key.TopicCode),
			entsql.EQ("question_type", string(key.QuestionType)),
		)).
		Query()
	e, err := scanBlacklist(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get blacklist entry: %w", err)
	}
	return &e, nil
}

func (r *blacklistRepo) query(ctx context.Context, pred *entsql.Predicate) ([]BlacklistEntry, error) {
	sel := builder().Select(blacklistSelectColumns...).From(entsql.Table(blacklistTable.Name))
	if pred != nil {
		sel.Where(pred)
	}
	query, args := sel.OrderBy(entsql.Desc("updated_at")).Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query blacklist: %w", err)
	}
	defer rows.Close()

	var out []BlacklistEntry
	for rows.Next() {
		e, err := scanBlacklist(rows)
		if err != nil {
			return nil, fmt.Errorf("scan blacklist entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBlacklist(s rowScanner) (BlacklistEntry, error) {
	var (
		e                BlacklistEntry
		grade, qt        string
		expires          sql.NullInt64
		created, updated int64
	)
	err := s.Scan(&e.StudentID, &grade, &e.TopicCode, &qt, &e.Reason,
		&e.FailureCount, &expires, &created, &updated)
	if err != nil {
		return BlacklistEntry{}, err
	}
	e.Grade = eiken.Grade(grade)
	e.QuestionType = eiken.QuestionType(qt)
	e.ExpiresAt = timePtr(expires)
	e.CreatedAt = fromMillis(created)
	e.UpdatedAt = fromMillis(updated)
	return e, nil
}
