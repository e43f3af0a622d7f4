// Command migrate-tokens seals OAuth tokens that were stored before an
// encryption key was configured.
//
// Usage:
//
//	migrate-tokens [--dry-run] [--status] [--config FILE]
//
// DB_DSN and ENCRYPTION_KEY are read like the bot reads them (environment
// over the optional YAML file).
//
// Example:
//
//	export ENCRYPTION_KEY="$(openssl rand -base64 32)"
//	./migrate-tokens --dry-run
//	./migrate-tokens
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/onnwee/spectacles-xix/config"
	"github.com/onnwee/spectacles-xix/crypto"
	"github.com/onnwee/spectacles-xix/db"
)

var errNoKey = errors.New("ENCRYPTION_KEY is required to seal tokens")

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))
	if err := newCmd().ExecuteContext(context.Background()); err != nil {
		slog.Error("token migration failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func newCmd() *cobra.Command {
	var configPath string
	var dryRun, status bool
	cmd := &cobra.Command{
		Use:           "migrate-tokens",
		Short:         "Encrypt plaintext OAuth tokens in place",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, dryRun, status, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "YAML configuration file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "count the tokens that would be sealed without changing them")
	cmd.Flags().BoolVar(&status, "status", false, "only print the encryption status")
	return cmd
}

func run(ctx context.Context, cfg *config.Config, dryRun, statusOnly bool, out io.Writer) error {
	if cfg.EncryptionKey == "" && !statusOnly {
		return errNoKey
	}
	var sealer crypto.Sealer
	if cfg.EncryptionKey != "" {
		s, err := crypto.NewAESGCM(cfg.EncryptionKey)
		if err != nil {
			return fmt.Errorf("encryption key: %w", err)
		}
		sealer = s
	}

	database, err := db.Connect(cfg.DBDsn)
	if err != nil {
		return err
	}
	defer database.Close()
	store := db.NewStore(database, sealer)
	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("ping db: %w", err)
	}

	if !statusOnly {
		rep, err := store.SealPlaintextTokens(ctx, dryRun)
		slog.Info("token migration summary",
			slog.Int("found", rep.Found),
			slog.Int("sealed", rep.Sealed),
			slog.Int("errors", rep.Failed),
			slog.Bool("dry_run", dryRun))
		if err != nil {
			return err
		}
	}

	counts, err := store.TokenStatus(ctx)
	if err != nil {
		return err
	}
	printStatus(out, counts)
	return nil
}

func printStatus(out io.Writer, counts map[int]int) {
	versions := make([]int, 0, len(counts))
	total := 0
	for v, n := range counts {
		versions = append(versions, v)
		total += n
	}
	sort.Ints(versions)
	for _, v := range versions {
		fmt.Fprintf(out, "%-28s %d\n", describeVersion(v), counts[v])
	}
	fmt.Fprintf(out, "%-28s %d\n", "total", total)
}

func describeVersion(v int) string {
	switch v {
	case 0:
		return "plaintext"
	case crypto.Version:
		return "encrypted (AES-256-GCM)"
	}
	return fmt.Sprintf("unknown version %d", v)
}
