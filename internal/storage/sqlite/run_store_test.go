package sqlite

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/driftlab/navsim/internal/geom"
	"github.com/driftlab/navsim/internal/sim"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreateAndFinishRun(t *testing.T) {
	store := NewRunStore(openTestDB(t))

	run := &Run{MapName: "corridor", Algorithm: "sampling", Seed: 7}
	if err := store.CreateRun(run); err != nil {
		t.Fatal(err)
	}
	if run.RunID == "" {
		t.Fatal("expected generated run id")
	}

	run.Reason = "target_reached"
	run.Ticks = 42
	run.FinalX, run.FinalY = 98.5, 1.2
	run.DistanceToTarget = 1.9
	if err := store.FinishRun(run); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetRun(run.RunID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Reason != "target_reached" || got.Ticks != 42 {
		t.Errorf("unexpected run: %+v", got)
	}
	if got.MapName != "corridor" || got.Algorithm != "sampling" || got.Seed != 7 {
		t.Errorf("metadata not preserved: %+v", got)
	}
}

func TestFinishUnknownRunFails(t *testing.T) {
	store := NewRunStore(openTestDB(t))
	err := store.FinishRun(&Run{RunID: "no-such-run"})
	if err == nil {
		t.Error("expected error for unknown run")
	}
}

func TestTrajectoryRoundTrip(t *testing.T) {
	store := NewRunStore(openTestDB(t))
	run := &Run{MapName: "empty", Algorithm: "straight", Seed: 1}
	if err := store.CreateRun(run); err != nil {
		t.Fatal(err)
	}

	for tick := 1; tick <= 3; tick++ {
		row := TickRow{RunID: run.RunID, Tick: tick, X: float64(tick) * 10, Speed: 10}
		if err := store.InsertTick(row); err != nil {
			t.Fatal(err)
		}
	}

	ticks, err := store.Trajectory(run.RunID)
	if err != nil {
		t.Fatal(err)
	}
	if len(ticks) != 3 {
		t.Fatalf("expected 3 ticks, got %d", len(ticks))
	}
	for i, tr := range ticks {
		if tr.Tick != i+1 {
			t.Errorf("tick %d out of order: %+v", i, tr)
		}
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	store := NewRunStore(openTestDB(t))
	for _, name := range []string{"a", "b", "c"} {
		if err := store.CreateRun(&Run{MapName: name, Algorithm: "straight", Seed: 1}); err != nil {
			t.Fatal(err)
		}
	}
	runs, err := store.ListRuns(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Errorf("expected limit 2, got %d", len(runs))
	}
}

func TestRecorderPersistsSnapshots(t *testing.T) {
	store := NewRunStore(openTestDB(t))
	run := &Run{MapName: "empty", Algorithm: "straight", Seed: 1}
	if err := store.CreateRun(run); err != nil {
		t.Fatal(err)
	}

	rec := NewRecorder(store, run.RunID)
	rec.ObserveTick(sim.Snapshot{
		Tick:  1,
		Robot: geom.Pose{Pos: r2.Vec{X: 10, Y: 0}, HeadingDeg: 0, Speed: 10},
	})
	rec.ObserveTick(sim.Snapshot{
		Tick:  2,
		Robot: geom.Pose{Pos: r2.Vec{X: 20, Y: 0}, HeadingDeg: 0, Speed: 10},
	})

	ticks, err := store.Trajectory(run.RunID)
	if err != nil {
		t.Fatal(err)
	}
	if len(ticks) != 2 {
		t.Fatalf("expected 2 persisted ticks, got %d", len(ticks))
	}
	if ticks[1].X != 20 {
		t.Errorf("expected x=20 at tick 2, got %v", ticks[1].X)
	}
}

func TestRetryOnBusy(t *testing.T) {
	t.Run("success after retry", func(t *testing.T) {
		calls := 0
		err := retryOnBusy(func() error {
			calls++
			if calls < 3 {
				return errors.New("database is locked (5) (SQLITE_BUSY)")
			}
			return nil
		})
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		if calls != 3 {
			t.Errorf("expected 3 calls, got %d", calls)
		}
	})

	t.Run("non-busy error fails immediately", func(t *testing.T) {
		calls := 0
		testErr := errors.New("some other error")
		err := retryOnBusy(func() error {
			calls++
			return testErr
		})
		if !errors.Is(err, testErr) {
			t.Errorf("expected %v, got %v", testErr, err)
		}
		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
	})

	t.Run("max retries exceeded", func(t *testing.T) {
		calls := 0
		err := retryOnBusy(func() error {
			calls++
			return errors.New("database is locked (5) (SQLITE_BUSY)")
		})
		if err == nil {
			t.Error("expected error")
		}
		if calls != maxBusyRetries {
			t.Errorf("expected %d calls, got %d", maxBusyRetries, calls)
		}
	})
}
