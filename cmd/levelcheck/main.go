// Command levelcheck validates every level document in a directory or S3
// prefix and exits non-zero when any of them fails.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"

	"github.com/dd0wney/infrasim/pkg/logging"
	"github.com/dd0wney/infrasim/pkg/report"
	"github.com/dd0wney/infrasim/pkg/source"
	"github.com/dd0wney/infrasim/pkg/validation"
)

type options struct {
	dir       string
	format    string
	workers   int
	color     string
	verbose   bool
	s3        source.S3Config
	lifecycle int
	horizon   int
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return report.ExitUsage
	}

	level := logging.WarnLevel
	if opts.verbose {
		level = logging.DebugLevel
	}
	logger := logging.NewTextLogger(stderr, level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	v, err := validation.NewValidator(validation.Limits{
		MaxLifecycleTicks: opts.lifecycle,
		HorizonTicks:      opts.horizon,
	})
	if err != nil {
		fmt.Fprintf(stderr, "levelcheck: %v\n", err)
		return report.ExitUsage
	}

	src, err := openSource(ctx, opts)
	if err != nil {
		fmt.Fprintf(stderr, "levelcheck: %v\n", err)
		return report.ExitUsage
	}

	batch, err := report.Run(ctx, source.Instrument(src, logger, nil), report.RunOptions{
		Validator: v,
		Workers:   opts.workers,
		Logger:    logger,
	})
	if err != nil {
		fmt.Fprintf(stderr, "levelcheck: %v\n", err)
		return report.ExitUsage
	}

	if opts.format == "json" {
		err = batch.RenderJSON(stdout)
	} else {
		err = batch.RenderText(stdout, styled(opts.color, stdout))
	}
	if err != nil {
		fmt.Fprintf(stderr, "levelcheck: %v\n", err)
		return report.ExitUsage
	}
	return batch.ExitCode()
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("levelcheck", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.dir, "dir", "levels", "Directory of level documents")
	fs.StringVar(&opts.format, "format", "text", "Output format: text or json")
	fs.IntVar(&opts.workers, "workers", 0, "Concurrent validations (0 = one)")
	fs.StringVar(&opts.color, "color", "auto", "Colour output: auto, always or never")
	fs.BoolVar(&opts.verbose, "v", false, "Log each validated document to stderr")
	fs.IntVar(&opts.lifecycle, "max-lifecycle", validation.DefaultMaxLifecycleTicks, "Maximum warning+duration ticks per incident")
	fs.IntVar(&opts.horizon, "horizon", validation.DefaultHorizonTicks, "Maximum job interval in ticks")
	fs.StringVar(&opts.s3.Bucket, "s3-bucket", "", "Read levels from this S3 bucket instead of -dir")
	fs.StringVar(&opts.s3.Prefix, "s3-prefix", "", "Key prefix within the bucket")
	fs.StringVar(&opts.s3.Region, "s3-region", "us-east-1", "Bucket region")
	fs.StringVar(&opts.s3.Endpoint, "s3-endpoint", "", "Custom endpoint for S3-compatible stores")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.format != "text" && opts.format != "json" {
		fmt.Fprintf(stderr, "levelcheck: unknown -format %q\n", opts.format)
		return opts, flag.ErrHelp
	}
	if opts.color != "auto" && opts.color != "always" && opts.color != "never" {
		fmt.Fprintf(stderr, "levelcheck: unknown -color %q\n", opts.color)
		return opts, flag.ErrHelp
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "levelcheck: unexpected arguments %v\n", fs.Args())
		return opts, flag.ErrHelp
	}
	return opts, nil
}

func openSource(ctx context.Context, opts options) (source.Source, error) {
	if opts.s3.Bucket != "" {
		if err := validation.Struct(opts.s3); err != nil {
			return nil, err
		}
		return source.NewS3Source(ctx, opts.s3)
	}
	return source.NewDirSource(opts.dir)
}

// styled decides whether text output gets lipgloss styling.
func styled(mode string, w io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
