// lbcheck verifies the leaderboards served by a running arcade server.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/arcade/internal/lbcheck"
	"github.com/okian/arcade/pkg/logger"
	"github.com/spf13/cobra"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// errExit signals a non-zero exit after the command already reported.
var errExit = errors.New("exit")

// run executes the lbcheck CLI with the given args.
func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	if args == nil {
		args = []string{}
	}
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errExit) {
			fmt.Fprintf(stderr, "lbcheck: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	cfg := lbcheck.DefaultConfig()
	var logFormat string

	root := &cobra.Command{
		Use:   "lbcheck",
		Short: "Check the leaderboards of a running arcade server",
		Long: `Fetch every leaderboard from a running arcade server and verify that
rows are ordered by score, unique per user or game, and within the limit.

Examples:
  lbcheck --url http://localhost:8080
  lbcheck --limit 50 --workers 8 --verbose`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(logger.WithFormat(logFormat), logger.WithOutput(stderr)); err != nil {
				return err
			}
			if cfg.Verbose {
				_ = logger.SetLevelString("debug")
			}
			return runCheck(cmd.Context(), cfg, stdout)
		},
	}

	flags := root.Flags()
	flags.StringVar(&cfg.BaseURL, "url", cfg.BaseURL, "Base URL of the service")
	flags.IntVar(&cfg.Limit, "limit", cfg.Limit, "Limit passed to every leaderboard request")
	flags.IntVar(&cfg.Workers, "workers", cfg.Workers, "Concurrent per-game requests")
	flags.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "HTTP request timeout")
	flags.BoolVar(&cfg.Verbose, "verbose", false, "Log every fetched leaderboard")
	flags.StringVar(&logFormat, "log-format", "text", "Log format: text or json")
	return root
}

func runCheck(ctx context.Context, cfg lbcheck.Config, stdout io.Writer) error {
	report, err := lbcheck.Run(ctx, cfg, logger.Named("lbcheck"))
	if err != nil {
		return err
	}
	renderReport(stdout, report)
	if !report.Passed() {
		return errExit
	}
	return nil
}

func renderReport(w io.Writer, r *lbcheck.Report) {
	for _, res := range r.Results {
		if res.Passed {
			fmt.Fprintf(w, "PASS  %s\n", res.Name)
			continue
		}
		fmt.Fprintf(w, "FAIL  %s: %s\n", res.Name, res.Detail)
	}
	fmt.Fprintf(w, "\n%d games, %d rows, %d failed\n", r.Games, r.Rows, len(r.Failures()))
}
