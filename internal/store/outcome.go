package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// outcomeRepo implements OutcomeRepo.
type outcomeRepo struct {
	db *sql.DB
}

func (r *outcomeRepo) RecordOutcome(ctx context.Context, o Outcome) (entry *BlacklistEntry, err error) {
	if o.TopicCode == "" {
		return nil, fmt.Errorf("record outcome: topic code is required")
	}
	if o.At.IsZero() {
		o.At = time.Now()
	}
	if o.TopicGrade == "" {
		o.TopicGrade = o.Grade
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin outcome tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	key := StatsKey{Grade: o.TopicGrade, TopicCode: o.TopicCode, QuestionType: o.QuestionType}
	deltas := map[StatField]int{}
	var selectedAt *int64
	if o.CountSelection {
		deltas[FieldSelection] = 1
		at := millis(o.At)
		selectedAt = &at
	}
	if o.Success {
		deltas[FieldSuccess] = 1
	}
	if o.Failure {
		deltas[FieldFailure] = 1
	}

	if o.Success && o.CompletionTime > 0 {
		if err = foldCompletionTime(ctx, tx, key, o.CompletionTime); err != nil {
			return nil, err
		}
	}
	if len(deltas) > 0 {
		if err = bumpStatistics(ctx, tx, key, deltas, selectedAt); err != nil {
			return nil, err
		}
	}

	if o.AppendUsage {
		err = appendUsage(ctx, tx, UsageEvent{
			StudentID:    o.StudentID,
			Grade:        o.Grade,
			TopicCode:    o.TopicCode,
			QuestionType: o.QuestionType,
			SessionID:    o.SessionID,
			UsedAt:       o.At,
		})
		if err != nil {
			return nil, err
		}
	}

	if o.Blacklist != nil {
		if entry, err = applyBlacklist(ctx, tx, o); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit outcome: %w", err)
	}
	return entry, nil
}

// foldCompletionTime updates the running average with one more success.
// It runs before the success counter is bumped, so the stored count is the
// number of samples already averaged.
func foldCompletionTime(ctx context.Context, tx *sql.Tx, key StatsKey, d time.Duration) error {
	if err := ensureStatistics(ctx, tx, key); err != nil {
		return err
	}
	cur, err := getStatistics(ctx, tx, key)
	if err != nil {
		return err
	}
	if cur == nil {
		return fmt.Errorf("statistics row %s/%s vanished inside transaction", key.Grade, key.TopicCode)
	}
	n := float64(cur.SuccessCount)
	avg := (cur.AvgCompletionMs*n + float64(d.Milliseconds())) / (n + 1)

	query, args := builder().Update(statisticsTable.Name).
		Set("avg_completion_ms", avg).
		Where(entsql.And(
			entsql.EQ("grade", string(key.Grade)),
			entsql.EQ("topic_code", key.TopicCode),
			entsql.EQ("question_type", string(key.QuestionType)),
		)).
		Query()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update completion average: %w", err)
	}
	return nil
}

func applyBlacklist(ctx context.Context, tx *sql.Tx, o Outcome) (*BlacklistEntry, error) {
	key := BlacklistKey{
		StudentID:    o.StudentID,
		Grade:        o.Grade,
		TopicCode:    o.TopicCode,
		QuestionType: o.QuestionType,
	}
	prev, err := getBlacklist(ctx, tx, key)
	if err != nil {
		return nil, err
	}

	e := BlacklistEntry{
		BlacklistKey: key,
		Reason:       o.Blacklist.Reason,
		FailureCount: 1,
		CreatedAt:    o.At,
		UpdatedAt:    o.At,
	}
	if prev != nil {
		e.FailureCount = prev.FailureCount + 1
		e.CreatedAt = prev.CreatedAt
	}
	if o.Blacklist.Expiry != nil {
		e.ExpiresAt = o.Blacklist.Expiry(e.FailureCount)
	}
	if err := upsertBlacklist(ctx, tx, e); err != nil {
		return nil, err
	}
	return &e, nil
}
