package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/onnwee/spectacles-xix/booksapi"
	"github.com/onnwee/spectacles-xix/db"
	"github.com/onnwee/spectacles-xix/oauth"
)

type readinessCheck struct {
	name string
	fn   func(ctx context.Context) error
}

// runChecks stops at the first failing check and writes a JSON status line.
func runChecks(ctx context.Context, out io.Writer, checks []readinessCheck) error {
	enc := json.NewEncoder(out)
	for _, c := range checks {
		if err := c.fn(ctx); err != nil {
			_ = enc.Encode(map[string]string{
				"status":       "not_ready",
				"failed_check": c.name,
				"error":        err.Error(),
			})
			return fmt.Errorf("%s: %w", c.name, err)
		}
	}
	_ = enc.Encode(map[string]string{"status": "ready"})
	return nil
}

func (a *app) readinessChecks() []readinessCheck {
	checks := []readinessCheck{
		{"database", a.store.Ping},
		{"schema", func(context.Context) error {
			_, dirty, err := db.MigrationVersion(a.db)
			if err != nil {
				return err
			}
			if dirty {
				return errors.New("schema is dirty")
			}
			return nil
		}},
	}
	if a.cfg.XEnabled() {
		checks = append(checks, readinessCheck{"x_credentials", func(ctx context.Context) error {
			tok, err := a.store.LoadToken(ctx, oauth.ProviderX)
			if err != nil {
				return err
			}
			if tok == nil {
				return oauth.ErrNoToken
			}
			return nil
		}})
	}
	if a.cfg.RedisEnabled() {
		checks = append(checks, readinessCheck{"redis", func(ctx context.Context) error {
			rdb, err := booksapi.NewRedisClient(ctx, a.cfg.RedisAddr, a.cfg.RedisPassword, a.cfg.RedisDB)
			if err != nil {
				return err
			}
			return rdb.Close()
		}})
	}
	return checks
}

func newCheckCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that the database, schema and credentials are ready",
		Long:  "Exits non-zero when a dependency is not ready. Suitable as a container health check.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			return runChecks(cmd.Context(), cmd.OutOrStdout(), a.readinessChecks())
		},
	}
}
