// Package sqlite persists simulation runs and their per-tick trajectories.
package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Open opens (or creates) the run database and brings its schema up to the
// latest migration.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open run database: %w", err)
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	// Not closing m: that would close the shared DB connection.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// Run is a persisted simulation run record.
type Run struct {
	RunID             string
	MapName           string
	Algorithm         string
	Seed              int64
	Reason            string
	Ticks             int
	FinalX            float64
	FinalY            float64
	DistanceToTarget  float64
	StaticCollisions  int
	DynamicCollisions int
}

// TickRow is one persisted trajectory sample.
type TickRow struct {
	RunID       string
	Tick        int
	X           float64
	Y           float64
	HeadingDeg  float64
	Speed       float64
	MemoryCells int
}

// RunStore provides persistence for runs and their trajectories.
type RunStore struct {
	db *sql.DB
}

// NewRunStore creates a RunStore over an opened database.
func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db}
}

// CreateRun inserts a new run record. If RunID is empty, a UUID is generated.
func (s *RunStore) CreateRun(run *Run) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO runs (run_id, map_name, algorithm, seed)
			VALUES (?, ?, ?, ?)`,
			run.RunID, run.MapName, run.Algorithm, run.Seed,
		)
		return err
	})
}

// FinishRun records a run's terminal outcome.
func (s *RunStore) FinishRun(run *Run) error {
	err := retryOnBusy(func() error {
		res, err := s.db.Exec(`
			UPDATE runs
			SET completed_at = CURRENT_TIMESTAMP, reason = ?, ticks = ?,
			    final_x = ?, final_y = ?, distance_to_target = ?,
			    static_collisions = ?, dynamic_collisions = ?
			WHERE run_id = ?`,
			run.Reason, run.Ticks,
			run.FinalX, run.FinalY, run.DistanceToTarget,
			run.StaticCollisions, run.DynamicCollisions,
			run.RunID,
		)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("run %s not found", run.RunID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", run.RunID, err)
	}
	return nil
}

// InsertTick persists one trajectory sample.
func (s *RunStore) InsertTick(row TickRow) error {
	err := retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO run_ticks (run_id, tick, x, y, heading_deg, speed, memory_cells)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			row.RunID, row.Tick, row.X, row.Y, row.HeadingDeg, row.Speed, row.MemoryCells,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("inserting tick %d of run %s: %w", row.Tick, row.RunID, err)
	}
	return nil
}

// GetRun returns a single run by ID.
func (s *RunStore) GetRun(runID string) (*Run, error) {
	row := s.db.QueryRow(`
		SELECT run_id, map_name, algorithm, seed,
		       COALESCE(reason, ''), ticks,
		       COALESCE(final_x, 0), COALESCE(final_y, 0), COALESCE(distance_to_target, 0),
		       static_collisions, dynamic_collisions
		FROM runs
		WHERE run_id = ?`, runID)

	var r Run
	err := row.Scan(
		&r.RunID, &r.MapName, &r.Algorithm, &r.Seed,
		&r.Reason, &r.Ticks,
		&r.FinalX, &r.FinalY, &r.DistanceToTarget,
		&r.StaticCollisions, &r.DynamicCollisions,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("run %s not found", runID)
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	return &r, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *RunStore) ListRuns(limit int) ([]*Run, error) {
	rows, err := s.db.Query(`
		SELECT run_id, map_name, algorithm, seed,
		       COALESCE(reason, ''), ticks,
		       COALESCE(final_x, 0), COALESCE(final_y, 0), COALESCE(distance_to_target, 0),
		       static_collisions, dynamic_collisions
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var r Run
		err := rows.Scan(
			&r.RunID, &r.MapName, &r.Algorithm, &r.Seed,
			&r.Reason, &r.Ticks,
			&r.FinalX, &r.FinalY, &r.DistanceToTarget,
			&r.StaticCollisions, &r.DynamicCollisions,
		)
		if err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}

// Trajectory returns a run's trajectory samples in tick order.
func (s *RunStore) Trajectory(runID string) ([]TickRow, error) {
	rows, err := s.db.Query(`
		SELECT run_id, tick, x, y, heading_deg, speed, memory_cells
		FROM run_ticks
		WHERE run_id = ?
		ORDER BY tick ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("query trajectory: %w", err)
	}
	defer rows.Close()

	var ticks []TickRow
	for rows.Next() {
		var tr TickRow
		if err := rows.Scan(&tr.RunID, &tr.Tick, &tr.X, &tr.Y, &tr.HeadingDeg, &tr.Speed, &tr.MemoryCells); err != nil {
			return nil, fmt.Errorf("scan tick row: %w", err)
		}
		ticks = append(ticks, tr)
	}
	return ticks, rows.Err()
}

const maxBusyRetries = 5

// retryOnBusy retries a write a few times when sqlite reports the database
// locked. Anything else fails immediately.
func retryOnBusy(fn func() error) error {
	var err error
	for attempt := 0; attempt < maxBusyRetries; attempt++ {
		err = fn()
		if err == nil || !isBusy(err) {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * 10 * time.Millisecond)
	}
	return err
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
