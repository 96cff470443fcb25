package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/skratchdot/open-golang/open"
	"github.com/spf13/cobra"

	"github.com/spdrive/spdrive/internal/spauth"
)

// loginTimeout bounds how long the login flow waits for the browser
// round-trip or an external token write.
const loginTimeout = 5 * time.Minute

func newLoginCmd() *cobra.Command {
	var (
		noBrowser bool
		external  bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with SharePoint",
		Long: "Starts the OAuth2 authorization-code flow. By default a browser is\n" +
			"opened and a local callback server captures the redirect. With\n" +
			"--no-browser the URL is printed for manual use. With --external the\n" +
			"command waits for a companion auth server to write the token file.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := buildApp()

			if external {
				return loginExternal(cmd.Context(), app)
			}

			return loginBrowser(cmd.Context(), app, noBrowser)
		},
	}

	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "print the authorization URL instead of opening a browser")
	cmd.Flags().BoolVar(&external, "external", false, "wait for an external auth server to write the token file")

	return cmd
}

// loginBrowser runs the interactive authorization-code flow with a local
// callback server.
func loginBrowser(ctx context.Context, app *appContext, noBrowser bool) error {
	if app.cfg.Auth.ClientID == "" {
		return fmt.Errorf("client_id is not configured (set [auth] client_id or SHAREPOINT_CLIENT_ID)")
	}

	ctx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()

	state := spauth.NewState()
	authURL := app.oauth.AuthCodeURL(state)

	if noBrowser {
		statusf("Open this URL in your browser:\n\n  %s\n\n", authURL)
	} else {
		statusf("Opening browser for authentication...\n")

		if err := open.Run(authURL); err != nil {
			app.logger.Warn("could not open browser", "error", err)
			statusf("Could not open browser. Visit this URL manually:\n\n  %s\n\n", authURL)
		}
	}

	code, err := spauth.WaitForCode(ctx, app.cfg.Auth.RedirectURI, state, app.logger)
	if err != nil {
		return err
	}

	tokens, err := app.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return err
	}

	app.manager.SetTokens(tokens)

	statusf("Authentication successful. Tokens saved to %s\n", app.cfg.Auth.TokenPath)

	return nil
}

// loginExternal waits for a companion auth server (sharing the same token
// file) to complete the flow and write tokens.
func loginExternal(ctx context.Context, app *appContext) error {
	ctx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()

	events, err := app.store.Watch(ctx)
	if err != nil {
		return err
	}

	statusf("Waiting for external authentication (token file: %s)...\n", app.cfg.Auth.TokenPath)

	for range events {
		app.manager.Reload()

		if app.manager.IsAuthenticated() {
			statusf("Authentication detected.\n")

			return nil
		}
	}

	if ctx.Err() != nil {
		return fmt.Errorf("timed out waiting for external authentication: %w", ctx.Err())
	}

	return fmt.Errorf("token file watch ended without a valid token set")
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			app := buildApp()

			if err := app.manager.Logout(); err != nil {
				return err
			}

			statusf("Logged out.\n")

			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			app := buildApp()

			authenticated := app.manager.IsAuthenticated()

			if flagJSON {
				return printJSON(map[string]any{
					"authenticated": authenticated,
					"tokenPath":     app.cfg.Auth.TokenPath,
				})
			}

			if authenticated {
				fmt.Println("Authenticated.")
			} else {
				fmt.Println("Not authenticated. Run 'spdrive login'.")
				os.Exit(1)
			}

			return nil
		},
	}
}
