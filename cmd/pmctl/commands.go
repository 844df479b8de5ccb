package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"projectmanager/cmd/internal/client"
	authv1 "projectmanager/shared/contracts/auth/v1"

	"github.com/spf13/cobra"
)

type options struct {
	server           string
	sessionFile      string
	refreshTransport string
	cookieName       string
	refreshTimeout   time.Duration
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "pmctl",
		Short:         "projectmanager auth client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.server, "server", envOr("PM_SERVER_URL", "http://127.0.0.1:8080"), "API base URL")
	root.PersistentFlags().StringVar(&opts.sessionFile, "session-file", os.Getenv("PM_SESSION_FILE"), "session file (default <config dir>/projectmanager/session.json)")
	root.PersistentFlags().StringVar(&opts.refreshTransport, "refresh-transport", envOr("PM_AUTH_REFRESH_TRANSPORT", "cookie"), "how the server carries refresh tokens: cookie or body")
	root.PersistentFlags().StringVar(&opts.cookieName, "refresh-cookie-name", envOr("PM_AUTH_REFRESH_COOKIE_NAME", authv1.DefaultRefreshCookieName), "refresh cookie name in cookie transport")
	root.PersistentFlags().DurationVar(&opts.refreshTimeout, "refresh-timeout", client.DefaultRefreshTimeout, "refresh call timeout")

	root.AddCommand(
		credentialsCmd(opts, "register", "Create an account and start a session"),
		credentialsCmd(opts, "login", "Start a session"),
		whoamiCmd(opts),
		refreshCmd(opts),
		logoutCmd(opts),
		logoutAllCmd(opts),
	)
	return root
}

func (o *options) client() (*client.Client, error) {
	var cookieMode bool
	switch strings.ToLower(strings.TrimSpace(o.refreshTransport)) {
	case "cookie":
		cookieMode = true
	case "body":
	default:
		return nil, fmt.Errorf("--refresh-transport must be cookie or body, got %q", o.refreshTransport)
	}

	path := o.sessionFile
	if path == "" {
		var err error
		if path, err = client.DefaultSessionPath(); err != nil {
			return nil, err
		}
	}
	return client.New(client.Config{
		BaseURL:           o.server,
		CookieMode:        cookieMode,
		RefreshCookieName: o.cookieName,
		RefreshTimeout:    o.refreshTimeout,
	}, client.NewFileStore(path))
}

// readPassword takes --password, then PM_PASSWORD, then one line of stdin.
func readPassword(cmd *cobra.Command, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if v := os.Getenv("PM_PASSWORD"); v != "" {
		return v, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return "", errors.New("empty password")
	}
	return pw, nil
}

func credentialsCmd(opts *options, name, short string) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   name + " <email>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			pw, err := readPassword(cmd, password)
			if err != nil {
				return err
			}

			var sess client.Session
			if name == "register" {
				sess, err = c.Register(cmd.Context(), args[0], pw)
			} else {
				sess, err = c.Login(cmd.Context(), args[0], pw)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s (%s), access token expires %s\n",
				sess.Email, sess.UserID, sess.AccessExpiry.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password (prefer PM_PASSWORD or stdin)")
	return cmd
}

func whoamiCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user, refreshing the session if needed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			me, err := c.Me(cmd.Context())
			if err != nil {
				if errors.Is(err, client.ErrUnauthenticated) {
					return errors.New("not signed in; run pmctl login")
				}
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(me)
		},
	}
}

func refreshCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Rotate the refresh token now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			sess, err := c.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "refreshed, access token expires %s\n", sess.AccessExpiry.Format(time.RFC3339))
			return nil
		},
	}
}

func logoutCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End this session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			if err := c.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		},
	}
}

func logoutAllCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout-all",
		Short: "End every session of the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			if err := c.LogoutAll(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "signed out everywhere")
			return nil
		},
	}
}
