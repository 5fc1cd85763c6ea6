// corestn-demo exercises the corestn kernel against a few built-in
// scenarios, replacing the teacher's DIMACS-file CLI (file-format parsing is
// out of scope for this kernel, spec §1) with small scenarios built directly
// against the Model API — the only front end the kernel itself recognizes.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime/pprof"
	"time"

	"github.com/mhorvath/corestn/corestn"
)

var flagCPUProfile = flag.Bool(
	"cpuprof",
	false,
	"save pprof CPU profile in cpuprof",
)

var flagMemProfile = flag.Bool(
	"memprof",
	false,
	"save pprof memory profile in memprof",
)

var flagScenario = flag.String(
	"scenario",
	"sat",
	"which built-in scenario to run: sat, stn-cycle, optimize, unsat-core",
)

var flagStats = flag.Bool(
	"stats",
	false,
	"print periodic search statistics",
)

type config struct {
	scenario   string
	memProfile bool
	cpuProfile bool
	stats      bool
}

func parseConfig() *config {
	flag.Parse()
	return &config{
		scenario:   *flagScenario,
		memProfile: *flagMemProfile,
		cpuProfile: *flagCPUProfile,
		stats:      *flagStats,
	}
}

func run(cfg *config) error {
	scenario, ok := scenarios[cfg.scenario]
	if !ok {
		return fmt.Errorf("unknown scenario %q (want one of: sat, stn-cycle, optimize, unsat-core)", cfg.scenario)
	}

	solverCfg := corestn.LoadConfig()
	solverCfg.PrintStats = cfg.stats

	fmt.Printf("c scenario: %s\n", cfg.scenario)

	t := time.Now()
	result, err := scenario(solverCfg)
	elapsed := time.Since(t)
	if err != nil {
		return err
	}

	fmt.Printf("c time (sec): %f\n", elapsed.Seconds())
	fmt.Printf("c status:     %s\n", result)
	return nil
}

func main() {
	cfg := parseConfig()

	if cfg.cpuProfile {
		f, err := os.Create("cpuprof")
		if err != nil {
			log.Fatal(err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal(err)
		}
		defer pprof.StopCPUProfile()
	}

	if err := run(cfg); err != nil {
		log.Fatal(err)
	}

	if cfg.memProfile {
		f, err := os.Create("memprof")
		if err != nil {
			log.Fatal(err)
		}
		pprof.WriteHeapProfile(f)
		f.Close()
	}
}
