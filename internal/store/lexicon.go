package store

import (
	"context"
	"database/sql"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/eikengen/internal/eiken"
)

// lookupBatch bounds the number of bound parameters per IN query.
const lookupBatch = 500

// lexiconRepo implements LexiconRepo.
type lexiconRepo struct {
	db *sql.DB
}

func (r *lexiconRepo) LookupLemmas(ctx context.Context, lemmas []string) ([]LexiconEntry, error) {
	var out []LexiconEntry
	for start := 0; start < len(lemmas); start += lookupBatch {
		end := min(start+lookupBatch, len(lemmas))
		args := make([]any, 0, end-start)
		for _, l := range lemmas[start:end] {
			args = append(args, l)
		}

		query, qargs := builder().Select("lemma", "level", "zipf", "pos").
			From(entsql.Table(lexiconTable.Name)).
			Where(entsql.In("lemma", args...)).
			Query()
		rows, err := r.db.QueryContext(ctx, query, qargs...)
		if err != nil {
			return nil, fmt.Errorf("lookup lemmas: %w", err)
		}
		for rows.Next() {
			var e LexiconEntry
			var level int
			if err := rows.Scan(&e.Lemma, &level, &e.Zipf, &e.POS); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan lexicon entry: %w", err)
			}
			e.Level = eiken.Level(level)
			out = append(out, e)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *lexiconRepo) UpsertLexicon(ctx context.Context, entries []LexiconEntry) (n int, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin lexicon tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, e := range entries {
		if e.Lemma == "" || e.Level < eiken.A1 || e.Level > eiken.C2 {
			return 0, fmt.Errorf("invalid lexicon entry %q (level %v)", e.Lemma, e.Level)
		}
		query, args := builder().Insert(lexiconTable.Name).
			Columns("lemma", "level", "zipf", "pos").
			Values(e.Lemma, int(e.Level), e.Zipf, e.POS).
			OnConflict(
				entsql.ConflictColumns("lemma"),
				entsql.ResolveWithNewValues(),
			).
			Query()
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return 0, fmt.Errorf("upsert lemma %q: %w", e.Lemma, err)
		}
		n++
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit lexicon: %w", err)
	}
	return n, nil
}

func (r *lexiconRepo) LexiconSize(ctx context.Context) (int, error) {
	query, args := builder().Select(entsql.Count("*")).From(entsql.Table(lexiconTable.Name)).Query()
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count lexicon: %w", err)
	}
	return n, nil
}
