// run_test.go tests the 'racesim run' command's flag parsing and
// environment translation, without actually exec'ing `go test`.
package main

import (
	"strings"
	"testing"
)

func TestParseRunFlagsDefaults(t *testing.T) {
	rf, err := parseRunFlags(nil)
	if err != nil {
		t.Fatalf("parseRunFlags() error: %v", err)
	}
	if rf.search != "random" {
		t.Errorf("expected default search %q, got %q", "random", rf.search)
	}
	if rf.depthLimit != 10000 {
		t.Errorf("expected default depth limit 10000, got %d", rf.depthLimit)
	}
	if len(rf.testArgs) != 2 || rf.testArgs[0] != "test" || rf.testArgs[1] != "./..." {
		t.Errorf("expected default testArgs [test ./...], got %v", rf.testArgs)
	}
}

func TestParseRunFlagsPackagePattern(t *testing.T) {
	rf, err := parseRunFlags([]string{"-search", "fair", "-context-bound", "3", "./internal/ringbuffer"})
	if err != nil {
		t.Fatalf("parseRunFlags() error: %v", err)
	}
	if rf.search != "fair" {
		t.Errorf("expected search %q, got %q", "fair", rf.search)
	}
	if rf.contextBound != 3 {
		t.Errorf("expected context bound 3, got %d", rf.contextBound)
	}
	if len(rf.testArgs) != 2 || rf.testArgs[1] != "./internal/ringbuffer" {
		t.Errorf("expected testArgs [test ./internal/ringbuffer], got %v", rf.testArgs)
	}
}

func TestParseRunFlagsRejectsUnknownFlag(t *testing.T) {
	if _, err := parseRunFlags([]string{"-not-a-flag"}); err == nil {
		t.Fatal("expected an error for an unknown flag")
	}
}

func TestBuildEnvSetsRequiredVariables(t *testing.T) {
	rf, err := parseRunFlags([]string{"-iterations", "500", "-seed", "7"})
	if err != nil {
		t.Fatalf("parseRunFlags() error: %v", err)
	}
	env := buildEnv(nil, rf)

	want := []string{"RACESIM_ITERATIONS=500", "RACESIM_SEED=7", "RACESIM_SEARCH=random"}
	for _, w := range want {
		if !contains(env, w) {
			t.Errorf("expected %q in env, got %v", w, env)
		}
	}
	for _, unwanted := range []string{"RACESIM_COLLECT_HISTORY", "RACESIM_INITIAL_STATE", "RACESIM_FINAL_STATE", "RACESIM_OUTPUT_HISTORY"} {
		for _, e := range env {
			if strings.HasPrefix(e, unwanted+"=") {
				t.Errorf("did not expect %s to be set when its flag was not passed", unwanted)
			}
		}
	}
}

func TestBuildEnvOptionalVariables(t *testing.T) {
	rf, err := parseRunFlags([]string{"-collect-history", "-initial-state", "a.state", "-final-state", "b.state", "-output-history", "c.log"})
	if err != nil {
		t.Fatalf("parseRunFlags() error: %v", err)
	}
	env := buildEnv(nil, rf)

	want := []string{
		"RACESIM_COLLECT_HISTORY=1",
		"RACESIM_INITIAL_STATE=a.state",
		"RACESIM_FINAL_STATE=b.state",
		"RACESIM_OUTPUT_HISTORY=c.log",
	}
	for _, w := range want {
		if !contains(env, w) {
			t.Errorf("expected %q in env, got %v", w, env)
		}
	}
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
