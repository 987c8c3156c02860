// run.go implements the 'racesim run' command.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
)

// runFlags holds the parsed form of every 'racesim run' flag, kept as its
// own struct (rather than *flag.FlagSet lookups scattered through
// runCommand) so buildEnv can be tested without a FlagSet or any I/O.
type runFlags struct {
	iterations     int
	depthLimit     int
	search         string
	contextBound   int
	seed           int64
	workers        int
	collectHistory bool
	initialState   string
	finalState     string
	outputHistory  string
	testArgs       []string
}

// parseRunFlags splits args into racesim-specific flags and the trailing
// package pattern / `go test` flags, leaving the latter untouched in
// testArgs.
func parseRunFlags(args []string) (runFlags, error) {
	fs := flag.NewFlagSet("racesim run", flag.ContinueOnError)
	iterations := fs.Int("iterations", 0, "iteration count (0 = unbounded, only sound for -search fair/context-bound)")
	depthLimit := fs.Int("depth-limit", 10000, "execution depth limit before a livelock is reported")
	search := fs.String("search", "random", "scheduler strategy: random, fair, context-bound")
	contextBound := fs.Int("context-bound", 2, "voluntary preemptions per iteration for -search context-bound")
	seed := fs.Int64("seed", 0, "base seed for -search random (0 derives one from the wall clock)")
	workers := fs.Int("workers", 0, "worker pool size for -search random (0 = runtime.NumCPU())")
	collectHistory := fs.Bool("collect-history", false, "skip the post-failure determinism-check replay")
	initialState := fs.String("initial-state", "", "replay from a scheduler state file saved by a prior -final-state run")
	finalState := fs.String("final-state", "", "save the scheduler state at the end of the run (or the failing iteration) to this file")
	outputHistory := fs.String("output-history", "", "on failure, write the step-by-step history transcript to this file")

	if err := fs.Parse(args); err != nil {
		return runFlags{}, err
	}

	testArgs := append([]string{"test"}, fs.Args()...)
	if len(fs.Args()) == 0 {
		testArgs = append(testArgs, "./...")
	}

	return runFlags{
		iterations:     *iterations,
		depthLimit:     *depthLimit,
		search:         *search,
		contextBound:   *contextBound,
		seed:           *seed,
		workers:        *workers,
		collectHistory: *collectHistory,
		initialState:   *initialState,
		finalState:     *finalState,
		outputHistory:  *outputHistory,
		testArgs:       testArgs,
	}, nil
}

// buildEnv translates rf into the RACESIM_* environment variables
// racesim.ParamsFromEnv / racesim.ReportFromEnv read, appended onto base
// (normally os.Environ()).
func buildEnv(base []string, rf runFlags) []string {
	env := append(base,
		fmt.Sprintf("RACESIM_ITERATIONS=%d", rf.iterations),
		fmt.Sprintf("RACESIM_DEPTH_LIMIT=%d", rf.depthLimit),
		fmt.Sprintf("RACESIM_SEARCH=%s", rf.search),
		fmt.Sprintf("RACESIM_CONTEXT_BOUND=%d", rf.contextBound),
		fmt.Sprintf("RACESIM_SEED=%d", rf.seed),
		fmt.Sprintf("RACESIM_WORKERS=%d", rf.workers),
	)
	if rf.collectHistory {
		env = append(env, "RACESIM_COLLECT_HISTORY=1")
	}
	if rf.initialState != "" {
		env = append(env, fmt.Sprintf("RACESIM_INITIAL_STATE=%s", rf.initialState))
	}
	if rf.finalState != "" {
		env = append(env, fmt.Sprintf("RACESIM_FINAL_STATE=%s", rf.finalState))
	}
	if rf.outputHistory != "" {
		env = append(env, fmt.Sprintf("RACESIM_OUTPUT_HISTORY=%s", rf.outputHistory))
	}
	return env
}

// runCommand implements the 'racesim run' command.
//
// Flow:
//  1. Parse racesim-specific flags out of args, leaving the package pattern
//     (and any trailing `go test` flags) untouched.
//  2. Translate the parsed flags into RACESIM_* environment variables.
//  3. Exec `go test` against the remaining arguments, forwarding
//     stdin/stdout/stderr and the child's exit code — racesim.Simulate
//     inside each TestXxx wrapper picks the variables up via
//     racesim.ParamsFromEnv.
func runCommand(args []string) {
	rf, err := parseRunFlags(args)
	if err != nil {
		os.Exit(2)
	}

	cmd := exec.Command("go", rf.testArgs...)
	cmd.Env = buildEnv(os.Environ(), rf)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Exit(exitErr.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "racesim: failed to run go test: %v\n", err)
		os.Exit(1)
	}
}
