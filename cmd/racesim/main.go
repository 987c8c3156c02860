// Package main implements the racesim CLI tool.
//
// racesim is the test-harness front end for the github.com/kolkov/racesim
// module: it translates command-line flags into the RACESIM_* environment
// variables racesim.ParamsFromEnv reads, then drives `go test` the same way
// `go test` itself would be invoked directly — racesim adds nothing to how
// a package is built, only to how its racesim.Simulate calls are
// parameterized.
//
// Usage:
//
//	racesim run ./...                 # run every racesim.Simulate test
//	racesim replay iter-42.state       # describe one saved failure state
//	racesim doctor                     # suggest a -workers value
package main

import (
	"fmt"
	"os"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "run":
		runCommand(os.Args[2:])
	case "replay":
		replayCommand(os.Args[2:])
	case "doctor":
		doctorCommand(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("racesim version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`racesim - stress-testing race detector for concurrent algorithms

USAGE:
    racesim <command> [arguments]

COMMANDS:
    run        Run racesim.Simulate tests matching a package pattern
    replay     Check a saved state file and print how to replay it
    doctor     Print CPU/load info and a suggested -workers value
    version    Show version information
    help       Show this help message

EXAMPLES:
    # Run every test in the current module with 100k random iterations
    racesim run -iterations 100000 ./...

    # Exhaustively search one package's interleavings
    racesim run -search fair ./internal/ringbuffer

    # Show a failure state saved by a prior run and the command to replay it
    racesim replay iter-1337.state

    # Check how many workers this machine can usefully run
    racesim doctor

ABOUT:
    racesim drives a user-supplied Suite through many cooperatively
    scheduled interleavings of its threads, looking for data races,
    deadlocks, livelocks, leaks and failed assertions under a C++11-style
    memory model, and can replay any failure it finds deterministically
    from a saved scheduler state.

FOR MORE INFORMATION:
    Repository: https://github.com/kolkov/racesim

`)
}
