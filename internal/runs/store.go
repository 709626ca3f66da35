package runs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"revoice/internal/config"
)

// Store manages run persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// ErrNotFound is returned when a run id has no record.
var ErrNotFound = errors.New("run not found")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// timeLayout pads fractional seconds to a fixed width so the stored strings
// sort lexicographically in chronological order. FailStale compares them
// directly in SQL.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// Open initializes or connects to the run database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.LogDir, "runs.db"))
}

// OpenPath opens the run database at an explicit path.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the backing database file path.
func (s *Store) Path() string {
	return s.path
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

// NewRun inserts a queued run for the given source video.
func (s *Store) NewRun(ctx context.Context, sourcePath string) (*Run, error) {
	sourcePath = strings.TrimSpace(sourcePath)
	if sourcePath == "" {
		return nil, errors.New("runs: source path required")
	}
	id := uuid.NewString()
	timestamp := formatTime(time.Now())

	err := s.execWithRetry(
		ensureContext(ctx),
		`INSERT INTO runs (
            id, source_path, step, progress_percent, progress_message,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id,
		sourcePath,
		string(StepQueued),
		0.0,
		"queued",
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return s.GetByID(ctx, id)
}

const runColumns = `id, source_path, step, progress_percent,
    COALESCE(progress_message, ''), COALESCE(error_message, ''),
    COALESCE(output_path, ''), created_at, updated_at, last_heartbeat`

// GetByID fetches a run snapshot by identifier.
func (s *Store) GetByID(ctx context.Context, id string) (*Run, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// List returns recent runs, newest first. limit <= 0 returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]*Run, error) {
	ctx = ensureContext(ctx)
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var result []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		result = append(result, run)
	}
	return result, rows.Err()
}

// Update persists the mutable fields of a run.
func (s *Store) Update(ctx context.Context, run *Run) error {
	if run == nil || run.ID == "" {
		return errors.New("runs: run with id required")
	}
	if _, ok := ParseStep(string(run.Step)); !ok {
		return fmt.Errorf("runs: unknown step %q", run.Step)
	}
	run.UpdatedAt = time.Now().UTC()
	var heartbeat any
	if run.LastHeartbeat != nil {
		heartbeat = formatTime(*run.LastHeartbeat)
	}
	err := s.execWithRetry(
		ensureContext(ctx),
		`UPDATE runs SET
            step = ?, progress_percent = ?, progress_message = ?,
            error_message = ?, output_path = ?, updated_at = ?, last_heartbeat = ?
         WHERE id = ?`,
		string(run.Step),
		run.ProgressPercent,
		nullableString(run.ProgressMessage),
		nullableString(run.ErrorMessage),
		nullableString(run.OutputPath),
		formatTime(run.UpdatedAt),
		heartbeat,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

// Heartbeat refreshes a processing run's liveness timestamp.
func (s *Store) Heartbeat(ctx context.Context, id string) error {
	now := formatTime(time.Now())
	err := s.execWithRetry(ensureContext(ctx),
		`UPDATE runs SET last_heartbeat = ? WHERE id = ?`, now, id)
	if err != nil {
		return fmt.Errorf("heartbeat: %w", err)
	}
	return nil
}

// AddArtifact appends an artifact record for a run.
func (s *Store) AddArtifact(ctx context.Context, runID, kind, path, metadataJSON string) error {
	if runID == "" || kind == "" {
		return errors.New("runs: artifact needs run id and kind")
	}
	timestamp := formatTime(time.Now())
	err := s.execWithRetry(
		ensureContext(ctx),
		`INSERT INTO artifacts (run_id, kind, path, metadata_json, created_at)
         VALUES (?, ?, ?, ?, ?)`,
		runID, kind, path, nullableString(metadataJSON), timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert artifact: %w", err)
	}
	return nil
}

// ArtifactsForRun returns a run's artifacts in insertion order.
func (s *Store) ArtifactsForRun(ctx context.Context, runID string) ([]Artifact, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, kind, path, COALESCE(metadata_json, ''), created_at
         FROM artifacts WHERE run_id = ? ORDER BY id ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var result []Artifact
	for rows.Next() {
		var artifact Artifact
		var createdAt string
		if err := rows.Scan(&artifact.ID, &artifact.RunID, &artifact.Kind,
			&artifact.Path, &artifact.MetadataJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		artifact.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		result = append(result, artifact)
	}
	return result, rows.Err()
}

// FailStale marks processing runs without a recent heartbeat as failed.
// A daemon crash mid-stage otherwise leaves runs stuck in-flight forever.
func (s *Store) FailStale(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx = ensureContext(ctx)
	query := `UPDATE runs SET step = ?,
            error_message = 'abandoned: no heartbeat',
            progress_message = 'abandoned: no heartbeat',
            updated_at = ?
         WHERE step IN (?, ?, ?, ?, ?, ?)
           AND (last_heartbeat IS NULL OR last_heartbeat < ?)`
	args := []any{
		string(StepFailed),
		formatTime(time.Now()),
		string(StepExtracting), string(StepDiarizing), string(StepTranscribing),
		string(StepSynthesizing), string(StepStitching), string(StepMuxing),
		formatTime(cutoff),
	}

	var affected int64
	err := retryOnBusy(ctx, func() error {
		res, execErr := s.db.ExecContext(ctx, query, args...)
		if execErr != nil {
			return execErr
		}
		affected, execErr = res.RowsAffected()
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("fail stale runs: %w", err)
	}
	return affected, nil
}

func scanRun(row interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run       Run
		step      string
		createdAt string
		updatedAt string
		heartbeat sql.NullString
	)
	if err := row.Scan(&run.ID, &run.SourcePath, &step, &run.ProgressPercent,
		&run.ProgressMessage, &run.ErrorMessage, &run.OutputPath,
		&createdAt, &updatedAt, &heartbeat); err != nil {
		return nil, err
	}
	run.Step = Step(step)
	run.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	run.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	if heartbeat.Valid && heartbeat.String != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, heartbeat.String); err == nil {
			run.LastHeartbeat = &parsed
		}
	}
	return &run, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
