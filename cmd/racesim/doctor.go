// doctor.go implements the 'racesim doctor' command.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// doctorCommand implements the 'racesim doctor' command. It exists because
// -search random's worker pool (internal/engine/driver's parallel batches)
// has no good default: too few workers leaves CPU idle on a long random
// run, too many starves the scheduler's own goroutine switching. doctor
// samples the host and prints a -workers value an operator can paste
// straight into 'racesim run'.
func doctorCommand(args []string) {
	fs := flag.NewFlagSet("racesim doctor", flag.ExitOnError)
	sample := fs.Duration("sample", 500*time.Millisecond, "CPU sampling window")
	if err := fs.Parse(args); err != nil {
		os.Exit(2)
	}

	numCPU := runtime.NumCPU()
	fmt.Printf("logical CPUs (runtime.NumCPU): %d\n", numCPU)

	if counts, err := cpu.Counts(true); err == nil {
		fmt.Printf("logical CPUs (gopsutil):      %d\n", counts)
	}
	if counts, err := cpu.Counts(false); err == nil {
		fmt.Printf("physical cores (gopsutil):    %d\n", counts)
	}

	pcts, err := cpu.Percent(*sample, false)
	busy := 0.0
	if err == nil && len(pcts) > 0 {
		busy = pcts[0]
		fmt.Printf("CPU load over %s:          %.1f%%\n", *sample, busy)
	} else {
		fmt.Printf("CPU load over %s:          unavailable (%v)\n", *sample, err)
	}

	if avg, err := load.Avg(); err == nil {
		fmt.Printf("load average (1/5/15m):      %.2f / %.2f / %.2f\n", avg.Load1, avg.Load5, avg.Load15)
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		fmt.Printf("memory available:             %.1f GiB of %.1f GiB\n",
			float64(vm.Available)/(1<<30), float64(vm.Total)/(1<<30))
	}

	workers := numCPU
	if busy > 50 {
		workers = numCPU / 2
		if workers < 1 {
			workers = 1
		}
	}
	fmt.Printf("\nsuggested: racesim run -search random -workers %d ./...\n", workers)
}
