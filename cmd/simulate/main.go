// Command simulate runs a level headlessly for a number of ticks, optionally
// recording a trace, or replays a recorded trace to check it still matches.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/dd0wney/infrasim/pkg/level"
	"github.com/dd0wney/infrasim/pkg/logging"
	"github.com/dd0wney/infrasim/pkg/report"
	"github.com/dd0wney/infrasim/pkg/simulation"
	"github.com/dd0wney/infrasim/pkg/trace"
	"github.com/dd0wney/infrasim/pkg/validation"
)

type options struct {
	levelPath string
	ticks     int
	seed      int64
	tracePath string
	verify    string
	frames    bool
	jsonOut   bool
	verbose   bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return report.ExitUsage
	}

	logLevel := logging.WarnLevel
	if opts.verbose {
		logLevel = logging.InfoLevel
	}
	logger := logging.NewTextLogger(stderr, logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lvl, code := loadLevel(opts.levelPath, stdout, stderr)
	if lvl == nil {
		return code
	}

	if opts.verify != "" {
		return verify(ctx, lvl, opts.verify, stdout, stderr)
	}
	return simulate(ctx, lvl, opts, logger, stdout, stderr)
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.levelPath, "level", "", "Level document to simulate (required)")
	fs.IntVar(&opts.ticks, "ticks", 60, "Number of ticks to run")
	fs.Int64Var(&opts.seed, "seed", 0, "Random seed (picked from the clock when omitted)")
	fs.StringVar(&opts.tracePath, "trace", "", "Write a compressed trace of every frame to this file")
	fs.StringVar(&opts.verify, "verify", "", "Replay this trace against the level instead of running")
	fs.BoolVar(&opts.frames, "frames", false, "Print every frame as a JSON line")
	fs.BoolVar(&opts.jsonOut, "json", false, "Print the summary as JSON")
	fs.BoolVar(&opts.verbose, "v", false, "Log incident transitions to stderr")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.levelPath == "" {
		fmt.Fprintln(stderr, "simulate: -level is required")
		return opts, flag.ErrHelp
	}
	if opts.ticks <= 0 {
		fmt.Fprintln(stderr, "simulate: -ticks must be positive")
		return opts, flag.ErrHelp
	}
	if !flagGiven(fs, "seed") {
		opts.seed = time.Now().UnixNano()
	}
	return opts, nil
}

// flagGiven reports whether name was set on the command line, so an explicit
// -seed 0 is honoured.
func flagGiven(fs *flag.FlagSet, name string) bool {
	given := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			given = true
		}
	})
	return given
}

// loadLevel validates the document and refuses to go further when it is
// invalid, printing the errors the way levelcheck does.
func loadLevel(path string, stdout, stderr io.Writer) (*level.Level, int) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "simulate: %v\n", err)
		return nil, report.ExitUsage
	}

	res := validation.Default().ValidateBytes(path, data)
	if !res.Valid {
		batch := &report.Batch{}
		batch.Add(report.FileResult{Name: path, Errors: res.Errors})
		_ = batch.RenderText(stdout, false)
		return nil, report.ExitFailed
	}
	return res.Level, report.ExitOK
}

func verify(ctx context.Context, lvl *level.Level, path string, stdout, stderr io.Writer) int {
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(stderr, "simulate: %v\n", err)
		return report.ExitUsage
	}
	defer f.Close()

	r, err := trace.NewReader(f)
	if err != nil {
		fmt.Fprintf(stderr, "simulate: %s: %v\n", path, err)
		return report.ExitUsage
	}

	checked, err := trace.Verify(ctx, lvl, r)
	if err != nil {
		fmt.Fprintf(stdout, "trace %s diverged after %d ticks: %v\n", path, checked, err)
		if errors.Is(err, trace.ErrDiverged) {
			return report.ExitFailed
		}
		return report.ExitUsage
	}
	fmt.Fprintf(stdout, "trace %s verified: %d ticks match (run %s, seed %d)\n",
		path, checked, r.Header().RunID, r.Header().Seed)
	return report.ExitOK
}

func simulate(ctx context.Context, lvl *level.Level, opts options, logger logging.Logger, stdout, stderr io.Writer) int {
	var observers []simulation.Observer
	if opts.frames {
		enc := json.NewEncoder(stdout)
		observers = append(observers, simulation.ObserverFunc(func(f simulation.Frame) error {
			return enc.Encode(f)
		}))
	}

	// the trace header carries the run id, which only exists once the
	// engine does, so the writer is attached after New
	var tw *trace.Writer
	if opts.tracePath != "" {
		observers = append(observers, simulation.ObserverFunc(func(f simulation.Frame) error {
			return tw.ObserveFrame(f)
		}))
	}

	engine, err := simulation.New(lvl, simulation.Options{
		Seed:     opts.seed,
		Logger:   logger,
		Observer: fanOut(observers),
	})
	if err != nil {
		fmt.Fprintf(stderr, "simulate: %v\n", err)
		return report.ExitUsage
	}

	if opts.tracePath != "" {
		tw, err = trace.Create(opts.tracePath, trace.Header{
			RunID:   engine.RunID(),
			LevelID: lvl.ID,
			Seed:    opts.seed,
		})
		if err != nil {
			fmt.Fprintf(stderr, "simulate: %v\n", err)
			return report.ExitUsage
		}
		defer tw.Close()
	}

	frames, err := engine.Run(ctx, opts.ticks)
	if err != nil {
		fmt.Fprintf(stderr, "simulate: stopped after %d ticks: %v\n", len(frames), err)
		return report.ExitFailed
	}
	if tw != nil {
		if err := tw.Close(); err != nil {
			fmt.Fprintf(stderr, "simulate: %v\n", err)
			return report.ExitFailed
		}
		st := tw.Stats()
		fmt.Fprintf(stderr, "trace %s: %d frames, %d bytes (%.0f%% of raw)\n",
			opts.tracePath, st.Frames, st.BytesCompressed, 100*st.CompressionRatio)
	}

	summary := simulation.Summarize(frames)
	switch {
	case opts.jsonOut:
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(struct {
			RunID   string `json:"runId"`
			LevelID string `json:"levelId"`
			Seed    int64  `json:"seed"`
			simulation.Summary
		}{engine.RunID(), lvl.ID, opts.seed, summary})
	case !opts.frames:
		printSummary(stdout, lvl, opts.seed, summary)
	}
	return report.ExitOK
}

// fanOut hands each frame to every observer in order.
func fanOut(observers []simulation.Observer) simulation.Observer {
	switch len(observers) {
	case 0:
		return nil
	case 1:
		return observers[0]
	}
	return simulation.ObserverFunc(func(f simulation.Frame) error {
		for _, o := range observers {
			if err := o.ObserveFrame(f); err != nil {
				return err
			}
		}
		return nil
	})
}

func printSummary(w io.Writer, lvl *level.Level, seed int64, s simulation.Summary) {
	fmt.Fprintf(w, "level %s, %d ticks, seed %d\n", lvl.ID, s.Ticks, seed)
	fmt.Fprintf(w, "jobs fired: %d, incidents started: %d\n", s.JobFirings, s.IncidentStarts)
	if s.FirstFailureTick > 0 {
		fmt.Fprintf(w, "first failure at tick %d\n", s.FirstFailureTick)
	} else {
		fmt.Fprintln(w, "no failures")
	}

	kinds := make([]string, 0, len(s.Alerts))
	for k := range s.Alerts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(w, "  %s: %d node-ticks\n", k, s.Alerts[k])
	}

	fmt.Fprintln(w, "peak utilization:")
	for _, n := range lvl.Nodes {
		fmt.Fprintf(w, "  %-20s %6.1f%%\n", n.ID, 100*s.PeakUtilization[n.ID])
	}
}
