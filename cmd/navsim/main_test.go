package main

import (
	"testing"

	"github.com/driftlab/navsim/internal/config"
)

func TestChooseAlgorithm(t *testing.T) {
	tuning := config.Default()

	straight, err := chooseAlgorithm("straight", tuning)
	if err != nil {
		t.Fatal(err)
	}
	if straight.Name() != "straight" {
		t.Errorf("unexpected name %q", straight.Name())
	}

	sampling, err := chooseAlgorithm("sampling", tuning)
	if err != nil {
		t.Fatal(err)
	}
	if sampling.Name() != "sampling" {
		t.Errorf("unexpected name %q", sampling.Name())
	}

	if _, err := chooseAlgorithm("a-star", tuning); err == nil {
		t.Error("expected error for unknown algorithm")
	}
}
