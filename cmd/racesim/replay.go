// replay.go implements the 'racesim replay' command.
package main

import (
	"fmt"
	"os"

	"github.com/kolkov/racesim/racesim"
)

// describeState reads the state file at path and renders the two lines
// replayCommand prints, split out so it can be tested without os.Exit.
func describeState(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	state, err := racesim.DecodeState(f)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("iteration %d, %d-byte scheduler state\n"+
		"to replay: RACESIM_INITIAL_STATE=%s RACESIM_COLLECT_HISTORY=1 racesim run ./...\n",
		state.Iteration, len(state.Blob), path), nil
}

// replayCommand implements the 'racesim replay' command.
//
// It reads a state file written by EncodeState (normally one a prior
// `racesim run` saved via Result.FinalState on failure), decodes the
// scheduler cursor, and prints the iteration number and blob size so the
// operator can confirm which failure they are about to re-drive — the
// actual re-run happens inside the test binary itself, by passing the same
// file through RACESIM_INITIAL_STATE and RACESIM_COLLECT_HISTORY=1 to a
// `racesim run` invocation; this command's job is validating the file and
// reporting what it contains.
func replayCommand(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: racesim replay <state-file>")
		os.Exit(2)
	}

	out, err := describeState(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "racesim: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(out)
}
