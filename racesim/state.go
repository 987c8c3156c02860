package racesim

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// EncodeState writes s to w in the on-disk form spec.md §6 describes —
// "<iteration_number> <scheduler-specific blob>" — one line, the blob
// base64-encoded so it survives round-tripping through a text file
// untouched by line-ending or encoding surprises.
func EncodeState(w io.Writer, s State) error {
	_, err := fmt.Fprintf(w, "%d %s\n", s.Iteration, base64.StdEncoding.EncodeToString(s.Blob))
	return err
}

// DecodeState reads a State previously written by EncodeState.
func DecodeState(r io.Reader) (State, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return State{}, err
		}
		return State{}, fmt.Errorf("racesim: empty state")
	}
	fields := strings.SplitN(strings.TrimSpace(scanner.Text()), " ", 2)
	if len(fields) != 2 {
		return State{}, fmt.Errorf("racesim: malformed state line %q", scanner.Text())
	}
	iter, err := strconv.Atoi(fields[0])
	if err != nil {
		return State{}, fmt.Errorf("racesim: malformed iteration number: %w", err)
	}
	blob, err := base64.StdEncoding.DecodeString(fields[1])
	if err != nil {
		return State{}, fmt.Errorf("racesim: malformed state blob: %w", err)
	}
	return State{Iteration: iter, Blob: blob}, nil
}
