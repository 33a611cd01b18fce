package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"ayashare/internal/config"
	"ayashare/internal/pipeline"
	"ayashare/internal/services"
)

// DefaultListLimit caps List when the caller passes no limit.
const DefaultListLimit = 20

// Store manages run history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database under the state dir.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.HistoryDBPath())
}

// OpenPath opens the history database at dbPath.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: filepath.Clean(dbPath)}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts or updates the row for result.RunID.
func (s *Store) Record(ctx context.Context, result pipeline.Result) error {
	if result.RunID == "" {
		return services.Wrap(services.ErrInvalidArgument, "history", "record", "run id is empty", nil)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `
INSERT INTO runs (
    run_id, status, stage, audio_path, chunks_count, chunks_dir,
    transcriptions_count, video_path, error, error_kind, started_at, finished_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(run_id) DO UPDATE SET
    status = excluded.status,
    stage = excluded.stage,
    audio_path = excluded.audio_path,
    chunks_count = excluded.chunks_count,
    chunks_dir = excluded.chunks_dir,
    transcriptions_count = excluded.transcriptions_count,
    video_path = excluded.video_path,
    error = excluded.error,
    error_kind = excluded.error_kind,
    finished_at = excluded.finished_at,
    updated_at = excluded.updated_at`,
			result.RunID,
			string(result.Status),
			string(result.Stage),
			result.AudioPath,
			result.ChunksCount,
			nullableString(result.ChunksDir),
			result.TranscriptionsCount,
			nullableString(result.VideoPath),
			nullableString(result.Error),
			nullableString(result.ErrorKind),
			formatTime(result.StartedAt),
			nullableTime(result.FinishedAt),
			now,
		)
		if err != nil {
			return fmt.Errorf("upsert run: %w", err)
		}
		return nil
	})
}

const selectColumns = `run_id, status, stage, audio_path, chunks_count, chunks_dir,
    transcriptions_count, video_path, error, error_kind, started_at, finished_at`

// Get returns the run with the given id.
func (s *Store) Get(ctx context.Context, runID string) (pipeline.Result, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM runs WHERE run_id = ?", runID)
	result, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return pipeline.Result{}, services.Wrap(services.ErrNotFound, "history", "get", "no run with id "+runID, nil)
	}
	return result, err
}

// List returns the most recent runs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]pipeline.Result, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+selectColumns+" FROM runs ORDER BY started_at DESC, run_id LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var results []pipeline.Result
	for rows.Next() {
		result, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return results, nil
}

// Counts returns the number of runs per status.
func (s *Store) Counts(ctx context.Context) (map[pipeline.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(1) FROM runs GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("count runs: %w", err)
	}
	defer rows.Close()

	counts := make(map[pipeline.Status]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[pipeline.Status(status)] = count
	}
	return counts, rows.Err()
}

// Prune deletes finished runs that started before cutoff and returns how many
// rows were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx,
			"DELETE FROM runs WHERE started_at < ? AND status IN (?, ?)",
			formatTime(cutoff), string(pipeline.StatusSuccess), string(pipeline.StatusFailed))
		if err != nil {
			return fmt.Errorf("prune runs: %w", err)
		}
		removed, err = res.RowsAffected()
		return err
	})
	return removed, err
}

// RunIDs returns the identifiers of every recorded run.
func (s *Store) RunIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT run_id FROM runs")
	if err != nil {
		return nil, fmt.Errorf("list run ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run id: %w", err)
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (pipeline.Result, error) {
	var (
		result                                        pipeline.Result
		status, stage, startedAt                      string
		chunksDir, videoPath, errText, kind, finished sql.NullString
	)
	if err := scanner.Scan(
		&result.RunID,
		&status,
		&stage,
		&result.AudioPath,
		&result.ChunksCount,
		&chunksDir,
		&result.TranscriptionsCount,
		&videoPath,
		&errText,
		&kind,
		&startedAt,
		&finished,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return pipeline.Result{}, err
		}
		return pipeline.Result{}, fmt.Errorf("scan run: %w", err)
	}
	result.Status = pipeline.Status(status)
	result.Stage = pipeline.Stage(stage)
	result.ChunksDir = chunksDir.String
	result.VideoPath = videoPath.String
	result.Error = errText.String
	result.ErrorKind = kind.String

	var err error
	if result.StartedAt, err = parseTime(startedAt); err != nil {
		return pipeline.Result{}, err
	}
	if finished.Valid && finished.String != "" {
		if result.FinishedAt, err = parseTime(finished.String); err != nil {
			return pipeline.Result{}, err
		}
	}
	return result, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return formatTime(value)
}

func formatTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return t, nil
}
