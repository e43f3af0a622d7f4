// Package cli wires the configuration, store and platform clients into the
// spectacles-xix command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/onnwee/spectacles-xix/bot"
	"github.com/onnwee/spectacles-xix/telemetry"
)

const serviceName = "spectacles-xix"

type runFlags struct {
	configPath    string
	date          string
	wicks         string
	book          bool
	includePosted bool
	force         bool
	dryRun        bool
	noTweet       bool
	noToot        bool
}

func (f *runFlags) options() bot.Options {
	return bot.Options{
		Date:          f.date,
		Wicks:         f.wicks,
		Book:          f.book,
		IncludePosted: f.includePosted,
		Force:         f.force,
		DryRun:        f.dryRun,
	}
}

func bindRunFlags(cmd *cobra.Command) *runFlags {
	f := &runFlags{}
	cmd.PersistentFlags().StringVar(&f.configPath, "config", "", "YAML configuration file")
	fs := cmd.Flags()
	fs.StringVar(&f.date, "date", "", "target date as DD-MM-YYYY (default: 200 years ago today)")
	fs.StringVar(&f.wicks, "wicks", "", "post the performance with this Wicks number")
	fs.BoolVar(&f.book, "book", false, "look up a digitized edition on Google Books")
	fs.BoolVar(&f.includePosted, "posted", false, "include performances already posted")
	fs.BoolVar(&f.force, "force", false, "post regardless of the hour")
	fs.BoolVar(&f.dryRun, "dry-run", false, "compose and log without publishing")
	fs.BoolVar(&f.noTweet, "no-tweet", false, "do not post to X")
	fs.BoolVar(&f.noToot, "no-toot", false, "do not post to Mastodon")
	return f
}

func newRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spectacles-xix",
		Short: "Post a Paris stage performance from 200 years ago",
		Long: `spectacles-xix picks a performance given in Paris 200 years ago today,
composes a short French description and posts it to X and Mastodon.

Run it hourly; it spreads the day's performances until 23h.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	f := bindRunFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		return runBot(cmd.Context(), f)
	}
	cmd.AddCommand(newMigrateCmd(&f.configPath))
	cmd.AddCommand(newAuthCmd(&f.configPath))
	cmd.AddCommand(newCheckCmd(&f.configPath))
	return cmd
}

// Execute runs the command line until completion or SIGINT/SIGTERM.
func Execute(version string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd(version).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func runBot(ctx context.Context, f *runFlags) error {
	a, err := openApp(ctx, f.configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	telemetry.Init()
	shutdown, err := telemetry.InitTracing(a.cfg.OTLPEndpoint, serviceName, "1.0.0")
	if err != nil {
		slog.Warn("tracing initialization failed", slog.Any("err", err))
		shutdown = func() {}
	}
	defer shutdown()

	ctx, runID := telemetry.NewRunContext(ctx)
	logger := telemetry.LoggerWithCorr(ctx)
	logger.Info("run started", slog.String("run_id", runID), slog.Bool("dry_run", f.dryRun))

	runner := &bot.Runner{
		Store:    a.store,
		Targets:  buildTargets(ctx, a.cfg, a.store, f.noTweet, f.noToot),
		Composer: a.composer(),
		Location: a.cfg.Location(),
	}
	if f.book {
		runner.Books = a.books(ctx)
	}

	out, runErr := runner.Run(ctx, f.options())
	logger.Info("run finished",
		slog.String("target", out.Target.Format("2006-01-02")),
		slog.Int("candidates", out.Candidates),
		slog.Bool("posted", out.Posted),
		slog.Any("err", runErr))

	if err := telemetry.Push(ctx, a.cfg.PushgatewayURL, serviceName); err != nil {
		logger.Warn("metrics push failed", slog.Any("err", err))
	}
	return runErr
}
