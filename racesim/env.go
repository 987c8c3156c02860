package racesim

import (
	"fmt"
	"os"
	"strconv"
)

// ParamsFromEnv builds Params from the RACESIM_* environment variables
// cmd/racesim's run subcommand sets before shelling out to `go test`,
// letting a TestXxx wrapper stay a plain `go test`-compatible function
// (`racesim.Simulate(n, 0, racesim.ParamsFromEnv(), newSuite)`) while still
// picking up flags passed to `racesim run`. Every variable is optional;
// unset ones leave the corresponding Params field at its zero value.
func ParamsFromEnv() Params {
	var p Params
	if v, ok := envInt("RACESIM_ITERATIONS"); ok {
		p.Iterations = v
	}
	if v, ok := envInt("RACESIM_DEPTH_LIMIT"); ok {
		p.ExecutionDepthLimit = v
	}
	if v, ok := envInt("RACESIM_DEFER_DENOMINATOR"); ok {
		p.DeferDenominator = v
	}
	switch os.Getenv("RACESIM_SEARCH") {
	case "fair", "fair_full":
		p.Search = SearchFairFull
	case "context_bound", "context-bound":
		p.Search = SearchContextBound
	case "random", "":
		p.Search = SearchRandom
	}
	if v, ok := envInt("RACESIM_CONTEXT_BOUND"); ok {
		p.ContextBound = v
	}
	if v, ok := envInt("RACESIM_FAIRNESS_CAP"); ok {
		p.FairnessCap = v
	}
	if v, ok := envInt64("RACESIM_SEED"); ok {
		p.Seed = v
	}
	if v, ok := envInt("RACESIM_WORKERS"); ok {
		p.Workers = v
	}
	if os.Getenv("RACESIM_COLLECT_HISTORY") == "1" {
		p.CollectHistory = true
	}
	if path := os.Getenv("RACESIM_INITIAL_STATE"); path != "" {
		if f, err := os.Open(path); err == nil {
			if state, err := DecodeState(f); err == nil {
				p.InitialState = &state
			}
			f.Close()
		}
	}
	p.Output = os.Stderr
	return p
}

// ReportFromEnv writes res's final scheduler state and/or failure history
// to the files named by RACESIM_FINAL_STATE / RACESIM_OUTPUT_HISTORY, if
// set, so a TestXxx wrapper can persist a failure for `racesim replay`
// without hard-coding a path. Both are no-ops when their variable is unset.
func ReportFromEnv(res Result) error {
	if path := os.Getenv("RACESIM_FINAL_STATE"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		err = EncodeState(f, res.FinalState)
		f.Close()
		if err != nil {
			return err
		}
	}
	if path := os.Getenv("RACESIM_OUTPUT_HISTORY"); path != "" && res.Failure != nil {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		for _, ev := range res.History {
			if _, err := fmt.Fprintf(f, "[%d] thread %d: %s %s %s\n", ev.Step, ev.Thread, ev.Kind, ev.Object, ev.Detail); err != nil {
				f.Close()
				return err
			}
		}
		f.Close()
	}
	return nil
}

func envInt(name string) (int, bool) {
	raw, ok := os.LookupEnv(name)
	if !ok || raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func envInt64(name string) (int64, bool) {
	raw, ok := os.LookupEnv(name)
	if !ok || raw == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
