package cli

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/onnwee/spectacles-xix/config"
	"github.com/onnwee/spectacles-xix/oauth"
)

var errXDisabled = errors.New("X_CLIENT_ID is not set")

func newAuthCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize the bot's accounts",
	}
	x := &cobra.Command{
		Use:   "x",
		Short: "Authorize the X account (OAuth 2.0 with PKCE)",
	}
	x.AddCommand(newAuthURLCmd(configPath), newAuthExchangeCmd(configPath))
	cmd.AddCommand(x)
	return cmd
}

func newAuthURLCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "url",
		Short: "Print the authorization URL and the PKCE verifier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if !cfg.XEnabled() {
				return errXDisabled
			}
			u, verifier := oauth.AuthCodeURL(oauth.XConfig(cfg.XClientID, cfg.XClientSecret, cfg.XAPIBase), uuid.NewString())
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Open this URL and approve access:")
			fmt.Fprintln(out, u)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Then run:")
			fmt.Fprintf(out, "  spectacles-xix auth x exchange --verifier %s --code <code>\n", verifier)
			return nil
		},
	}
}

func newAuthExchangeCmd(configPath *string) *cobra.Command {
	var code, verifier string
	cmd := &cobra.Command{
		Use:   "exchange",
		Short: "Trade an authorization code for a token and store it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			if !a.cfg.XEnabled() {
				return errXDisabled
			}
			tok, err := oauth.Exchange(cmd.Context(), oauth.XConfig(a.cfg.XClientID, a.cfg.XClientSecret, a.cfg.XAPIBase), a.store, oauth.ProviderX, code, verifier)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "token stored, expires %s\n", tok.Expiry.Format("2006-01-02 15:04"))
			return nil
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "authorization code from the callback URL")
	cmd.Flags().StringVar(&verifier, "verifier", "", "PKCE verifier printed by 'auth x url'")
	_ = cmd.MarkFlagRequired("code")
	_ = cmd.MarkFlagRequired("verifier")
	return cmd
}
