package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/brightpath/lmscache/cache"
	"github.com/brightpath/lmscache/logger"
)

const (
	entriesTable = "cache_entries"
	tagsTable    = "cache_entry_tags"
)

// snapshotQuery computes the full metrics snapshot in one round trip.
// The live/expired split happens in aggregate FILTER clauses so expired
// rows never require a prior sweep to be excluded.
const snapshotQuery = `SELECT
	COUNT(*) FILTER (WHERE expires_at > $1),
	COALESCE(AVG(hit_count) FILTER (WHERE expires_at > $1), 0),
	COALESCE(MAX(hit_count) FILTER (WHERE expires_at > $1), 0),
	COUNT(*) FILTER (WHERE hit_count > 0 AND expires_at > $1),
	COUNT(*) FILTER (WHERE expires_at <= $1),
	COALESCE(SUM(pg_column_size(value)) FILTER (WHERE expires_at > $1), 0)
FROM cache_entries`

// Store implements cache.Store on PostgreSQL. All expiry comparisons use a
// timestamp computed by the injected clock and passed as a query argument,
// so expired-but-unswept rows are invisible to reads and tests can simulate
// the passage of time.
type Store struct {
	db      *sql.DB
	builder sq.StatementBuilderType
	log     logger.Logger
	now     func() time.Time
	closed  atomic.Bool
}

var _ cache.Store = (*Store)(nil)

// NewStore creates a postgres-backed store over an open connection pool.
func NewStore(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		log:     log,
		now:     time.Now,
	}
}

// WithClock replaces the store's clock. Test hook.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Read returns the live entry for key, or cache.ErrNotFound when the key is
// absent or past expiry.
func (s *Store) Read(ctx context.Context, key string) (*cache.Entry, error) {
	if s.closed.Load() {
		return nil, cache.ErrClosed
	}

	query, args, err := s.builder.
		Select(
			"e.entry_key", "e.value", "e.expires_at", "e.hit_count", "e.created_at",
			"COALESCE(string_agg(t.tag, ','), '')").
		From(entriesTable + " e").
		LeftJoin(tagsTable + " t ON t.entry_key = e.entry_key").
		Where(sq.Eq{"e.entry_key": key}).
		Where(sq.Gt{"e.expires_at": s.now()}).
		GroupBy("e.entry_key", "e.value", "e.expires_at", "e.hit_count", "e.created_at").
		ToSql()
	if err != nil {
		return nil, cache.NewOperationError("read", key, err)
	}

	var entry cache.Entry
	var tags string
	err = s.db.QueryRowContext(ctx, query, args...).Scan(
		&entry.Key, &entry.Value, &entry.ExpiresAt, &entry.HitCount, &entry.CreatedAt, &tags)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, cache.ErrNotFound
		}
		return nil, cache.NewOperationError("read", key, err)
	}

	if tags != "" {
		entry.Tags = strings.Split(tags, ",")
	}
	return &entry, nil
}

// Write upserts the entry and replaces its tag set in one transaction.
// The ON CONFLICT update resets hit_count: an overwritten key starts a fresh
// lifetime for metrics purposes.
func (s *Store) Write(ctx context.Context, key string, value []byte, ttl time.Duration, tags []string) error {
	if s.closed.Load() {
		return cache.ErrClosed
	}
	if ttl <= 0 {
		return cache.ErrInvalidTTL
	}

	now := s.now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return cache.NewOperationError("write", key, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query, args, err := s.builder.
		Insert(entriesTable).
		Columns("entry_key", "value", "expires_at", "hit_count", "created_at").
		Values(key, value, now.Add(ttl), 0, now).
		Suffix(`ON CONFLICT (entry_key) DO UPDATE SET
			value = EXCLUDED.value,
			expires_at = EXCLUDED.expires_at,
			hit_count = 0,
			created_at = EXCLUDED.created_at`).
		ToSql()
	if err != nil {
		return cache.NewOperationError("write", key, err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return cache.NewOperationError("write", key, err)
	}

	query, args, err = s.builder.Delete(tagsTable).Where(sq.Eq{"entry_key": key}).ToSql()
	if err != nil {
		return cache.NewOperationError("write", key, err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return cache.NewOperationError("write", key, err)
	}

	normalized := cache.NormalizeTags(tags)
	if len(normalized) > 0 {
		insert := s.builder.Insert(tagsTable).Columns("entry_key", "tag")
		for _, tag := range normalized {
			insert = insert.Values(key, tag)
		}
		query, args, err = insert.ToSql()
		if err != nil {
			return cache.NewOperationError("write", key, err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return cache.NewOperationError("write", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return cache.NewOperationError("write", key, err)
	}
	return nil
}

// IncrementHit atomically bumps the hit counter for a live entry.
// The increment happens in SQL, so concurrent hits cannot corrupt the
// counter; an expired or missing row is left untouched.
func (s *Store) IncrementHit(ctx context.Context, key string) error {
	if s.closed.Load() {
		return cache.ErrClosed
	}

	query, args, err := s.builder.
		Update(entriesTable).
		Set("hit_count", sq.Expr("hit_count + 1")).
		Where(sq.Eq{"entry_key": key}).
		Where(sq.Gt{"expires_at": s.now()}).
		ToSql()
	if err != nil {
		return cache.NewOperationError("increment_hit", key, err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return cache.NewOperationError("increment_hit", key, err)
	}
	return nil
}

// DeleteByTags removes every entry carrying at least one of the given tags.
// The delete is a single statement against the indexed tag relation, so a
// batch invalidation can never partially apply.
func (s *Store) DeleteByTags(ctx context.Context, tags []string) (int64, error) {
	if s.closed.Load() {
		return 0, cache.ErrClosed
	}
	if len(tags) == 0 {
		return 0, nil
	}

	// Build the subquery with ? placeholders; the outer builder renumbers
	// everything to $n on final ToSql.
	subQuery, subArgs, err := sq.Select("entry_key").From(tagsTable).Where(sq.Eq{"tag": tags}).ToSql()
	if err != nil {
		return 0, cache.NewOperationError("delete_by_tags", "", err)
	}

	query, args, err := s.builder.
		Delete(entriesTable).
		Where(sq.Expr("entry_key IN ("+subQuery+")", subArgs...)).
		ToSql()
	if err != nil {
		return 0, cache.NewOperationError("delete_by_tags", "", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, cache.NewOperationError("delete_by_tags", "", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, cache.NewOperationError("delete_by_tags", "", err)
	}
	return removed, nil
}

// DeleteExpired removes every row past expiry and returns the count.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	if s.closed.Load() {
		return 0, cache.ErrClosed
	}

	query, args, err := s.builder.
		Delete(entriesTable).
		Where(sq.LtOrEq{"expires_at": s.now()}).
		ToSql()
	if err != nil {
		return 0, cache.NewOperationError("delete_expired", "", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, cache.NewOperationError("delete_expired", "", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, cache.NewOperationError("delete_expired", "", err)
	}
	return removed, nil
}

// Clear wipes the entire cache table. Tag rows go with it via the cascade.
func (s *Store) Clear(ctx context.Context) error {
	if s.closed.Load() {
		return cache.ErrClosed
	}

	query, args, err := s.builder.Delete(entriesTable).ToSql()
	if err != nil {
		return cache.NewOperationError("clear", "", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return cache.NewOperationError("clear", "", err)
	}
	return nil
}

// TopEntries returns up to limit live entries ordered by hit count
// descending, most recently created first on ties.
func (s *Store) TopEntries(ctx context.Context, limit int) ([]cache.Entry, error) {
	if s.closed.Load() {
		return nil, cache.ErrClosed
	}
	if limit <= 0 {
		return nil, nil
	}

	query, args, err := s.builder.
		Select(
			"e.entry_key", "e.value", "e.expires_at", "e.hit_count", "e.created_at",
			"COALESCE(string_agg(t.tag, ','), '')").
		From(entriesTable + " e").
		LeftJoin(tagsTable + " t ON t.entry_key = e.entry_key").
		Where(sq.Gt{"e.expires_at": s.now()}).
		GroupBy("e.entry_key", "e.value", "e.expires_at", "e.hit_count", "e.created_at").
		OrderBy("e.hit_count DESC", "e.created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, cache.NewOperationError("top_entries", "", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, cache.NewOperationError("top_entries", "", err)
	}
	defer rows.Close()

	var entries []cache.Entry
	for rows.Next() {
		var entry cache.Entry
		var tags string
		if err := rows.Scan(&entry.Key, &entry.Value, &entry.ExpiresAt, &entry.HitCount, &entry.CreatedAt, &tags); err != nil {
			return nil, cache.NewOperationError("top_entries", "", err)
		}
		if tags != "" {
			entry.Tags = strings.Split(tags, ",")
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, cache.NewOperationError("top_entries", "", err)
	}
	return entries, nil
}

// Snapshot computes the aggregate metrics in a single query.
func (s *Store) Snapshot(ctx context.Context) (cache.MetricsSnapshot, error) {
	if s.closed.Load() {
		return cache.MetricsSnapshot{}, cache.ErrClosed
	}

	var snapshot cache.MetricsSnapshot
	err := s.db.QueryRowContext(ctx, snapshotQuery, s.now()).Scan(
		&snapshot.TotalEntries,
		&snapshot.AverageHits,
		&snapshot.MaxHits,
		&snapshot.ReusedEntries,
		&snapshot.ExpiredEntries,
		&snapshot.TotalBytes,
	)
	if err != nil {
		return cache.MetricsSnapshot{}, cache.NewOperationError("snapshot", "", err)
	}
	return snapshot, nil
}

// Health pings the database.
func (s *Store) Health(ctx context.Context) error {
	if s.closed.Load() {
		return cache.ErrClosed
	}
	if err := s.db.PingContext(ctx); err != nil {
		return cache.NewConnectionError("ping", "postgres", err)
	}
	return nil
}

// Close closes the underlying connection pool. Idempotent.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return cache.ErrClosed
	}
	return s.db.Close()
}
