// Command infrasim-tui plays a level in the terminal: the node table and
// incident list update live as the simulation ticks.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dd0wney/infrasim/pkg/simulation"
	"github.com/dd0wney/infrasim/pkg/validation"
)

func main() {
	levelPath := flag.String("level", "", "Level document to play (required)")
	seed := flag.Int64("seed", 0, "Random seed (picked from the clock when omitted)")
	speed := flag.Int("speed", 1, "Initial speed step, 0 (slowest) to 4 (fastest)")
	flag.Parse()

	if *levelPath == "" {
		fmt.Fprintln(os.Stderr, "infrasim-tui: -level is required")
		os.Exit(2)
	}
	seedGiven := false
	flag.Visit(func(f *flag.Flag) { seedGiven = seedGiven || f.Name == "seed" })
	if !seedGiven {
		*seed = time.Now().UnixNano()
	}

	data, err := os.ReadFile(*levelPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "infrasim-tui: %v\n", err)
		os.Exit(2)
	}
	res := validation.Default().ValidateBytes(*levelPath, data)
	if !res.Valid {
		for _, e := range res.Errors {
			fmt.Fprintf(os.Stderr, "%s: %v\n", *levelPath, e)
		}
		os.Exit(1)
	}

	engine, err := simulation.New(res.Level, simulation.Options{Seed: *seed})
	if err != nil {
		fmt.Fprintf(os.Stderr, "infrasim-tui: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(initialModel(engine, *seed, *speed), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}
