package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/driftlab/navsim/internal/config"
	"github.com/driftlab/navsim/internal/nav"
	"github.com/driftlab/navsim/internal/report"
	"github.com/driftlab/navsim/internal/sim"
	storage "github.com/driftlab/navsim/internal/storage/sqlite"
	"github.com/driftlab/navsim/internal/version"
)

var (
	mapPath     = flag.String("map", "", "Path to the JSON map file (required)")
	tuningPath  = flag.String("tuning", "", "Path to a JSON tuning file (defaults apply when omitted)")
	algoName    = flag.String("algo", "sampling", "Navigation algorithm: straight or sampling")
	dbPath      = flag.String("db", "", "SQLite database to record the run into (optional)")
	reportPath  = flag.String("report", "", "Write an HTML trajectory report to this path (optional)")
	plotsDir    = flag.String("plots", "", "Write PNG metric plots into this directory (optional)")
	maxSteps    = flag.Int("max-steps", 0, "Override the tick budget (0 keeps the tuning value)")
	seed        = flag.Int64("seed", 0, "Override the random seed (0 keeps the tuning value)")
	quiet       = flag.Bool("quiet", false, "Suppress per-run progress logging")
	showVersion = flag.Bool("version", false, "Print the version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	if *mapPath == "" {
		log.Fatal("a map file is required (-map)")
	}

	tuning := config.Default()
	if *tuningPath != "" {
		var err error
		tuning, err = config.Load(*tuningPath)
		if err != nil {
			log.Fatalf("failed to load tuning: %v", err)
		}
	}
	if *maxSteps > 0 {
		tuning.MaxTicks = maxSteps
	}
	if *seed != 0 {
		tuning.Seed = seed
	}
	if err := tuning.Validate(); err != nil {
		log.Fatalf("invalid tuning: %v", err)
	}

	env, err := sim.LoadMap(*mapPath)
	if err != nil {
		log.Fatalf("failed to load map: %v", err)
	}

	algo, err := chooseAlgorithm(*algoName, tuning)
	if err != nil {
		log.Fatal(err)
	}

	s, err := sim.New(env, tuning, algo)
	if err != nil {
		log.Fatalf("failed to build simulation: %v", err)
	}

	var store *storage.RunStore
	var run *storage.Run
	if *dbPath != "" {
		db, err := storage.Open(*dbPath)
		if err != nil {
			log.Fatalf("failed to open run database: %v", err)
		}
		defer db.Close()

		store = storage.NewRunStore(db)
		run = &storage.Run{
			MapName:   filepath.Base(*mapPath),
			Algorithm: algo.Name(),
			Seed:      tuning.GetSeed(),
		}
		if err := store.CreateRun(run); err != nil {
			log.Fatalf("failed to create run record: %v", err)
		}
		s.AddObserver(storage.NewRecorder(store, run.RunID))
		if !*quiet {
			log.Printf("recording run %s to %s", run.RunID, *dbPath)
		}
	}

	var htmlReporter *report.HTMLReporter
	if *reportPath != "" {
		htmlReporter = report.NewHTMLReporter(fmt.Sprintf("navsim %s / %s", filepath.Base(*mapPath), algo.Name()))
		s.AddObserver(htmlReporter)
	}

	var plotter *report.TrajectoryPlotter
	if *plotsDir != "" {
		plotter = report.NewTrajectoryPlotter()
		s.AddObserver(plotter)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !*quiet {
		log.Printf("running %s on %s (seed=%d, max_ticks=%d)",
			algo.Name(), filepath.Base(*mapPath), tuning.GetSeed(), tuning.GetMaxTicks())
	}

	outcome, err := s.Run(ctx)
	if err != nil && outcome.Reason != sim.ReasonCancelled {
		log.Fatalf("simulation failed: %v", err)
	}

	stats := s.Stats()
	if !*quiet {
		log.Printf("run finished: reason=%s ticks=%d distance_to_target=%.2f avg_decision=%s",
			outcome.Reason, outcome.Ticks, outcome.DistanceToTarget, stats.AvgDecisionTime())
	}

	// Machine-readable outcome line for batch drivers.
	fmt.Printf("%s,%s,%s,%d,%.3f,%.3f,%.3f\n",
		filepath.Base(*mapPath), algo.Name(), outcome.Reason, outcome.Ticks,
		outcome.FinalPose.Pos.X, outcome.FinalPose.Pos.Y, outcome.DistanceToTarget)

	if store != nil {
		run.Reason = string(outcome.Reason)
		run.Ticks = outcome.Ticks
		run.FinalX = outcome.FinalPose.Pos.X
		run.FinalY = outcome.FinalPose.Pos.Y
		run.DistanceToTarget = outcome.DistanceToTarget
		run.StaticCollisions = stats.StaticCollisions
		run.DynamicCollisions = stats.DynamicCollisions
		if err := store.FinishRun(run); err != nil {
			log.Printf("failed to finalise run record: %v", err)
		}
	}

	if htmlReporter != nil {
		if err := htmlReporter.WriteHTML(*reportPath); err != nil {
			log.Printf("failed to write HTML report: %v", err)
		} else if !*quiet {
			log.Printf("wrote HTML report to %s", *reportPath)
		}
	}

	if plotter != nil {
		n, err := plotter.GeneratePlots(*plotsDir)
		if err != nil {
			log.Printf("failed to generate plots: %v", err)
		} else if !*quiet {
			log.Printf("wrote %d plots to %s", n, *plotsDir)
		}
	}

	if outcome.Reason != sim.ReasonTargetReached {
		os.Exit(1)
	}
}

func chooseAlgorithm(name string, tuning *config.Tuning) (nav.Algorithm, error) {
	switch name {
	case "straight":
		return nav.NewStraightLine(), nil
	case "sampling":
		return nav.NewSampling(tuning.GetSeed(), tuning.GetSamplingCandidates()), nil
	default:
		return nil, fmt.Errorf("unknown algorithm %q (want straight or sampling)", name)
	}
}
