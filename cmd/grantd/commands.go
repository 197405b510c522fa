package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aussiebroadwan/grantd/internal/provider/app"
	"github.com/aussiebroadwan/grantd/pkg/cryptox"
	"github.com/aussiebroadwan/grantd/pkg/jwtx"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "grantd",
		Short:        "OAuth2 authorization server",
		Long:         "grantd issues opaque bearer tokens through the password, refresh_token and authorization_code grants.\nConfiguration is read from the environment and an optional .env file.",
		SilenceUsage: true,
		RunE:         runServe,
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP server (default)",
			Args:  cobra.NoArgs,
			RunE:  runServe,
		},
		newHashPasswordCmd(),
		newSessionTokenCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print the build version",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				cmd.Println(app.BuildVersion)
			},
		},
	)
	return root
}

func runServe(_ *cobra.Command, _ []string) error {
	application, err := app.New(app.LoadConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return application.Run()
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Hash a password for the users file",
		Long: "Reads a password from the terminal, or the first line of stdin when piped, and prints its argon2id hash.\n" +
			"The hash is peppered with AUTH_PEPPER_FILE so it must be generated against the server's pepper.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := app.LoadConfig()
			cryptox.SetPepperPath(cfg.PepperFile)

			password, err := readPassword(cmd)
			if err != nil {
				return err
			}
			if password == "" {
				return errors.New("password must not be empty")
			}

			hash, err := cryptox.HashPassword(password)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func readPassword(cmd *cobra.Command) (string, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newSessionTokenCmd() *cobra.Command {
	var (
		subject  string
		username string
		scopes   []string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "session-token",
		Short: "Mint a session token signed with AUTH_SESSION_SECRET",
		Long: "Mints an HS256 session token. Use it as the bearer token for the authorize endpoint,\n" +
			"or with the clients:read and clients:write scopes for client administration.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := app.LoadConfig()
			if cfg.SessionSecret == "" {
				return errors.New("AUTH_SESSION_SECRET is not set")
			}

			signer, err := jwtx.NewSignerHS256([]byte(cfg.SessionSecret))
			if err != nil {
				return err
			}

			claims := jwtx.NewSessionClaims(subject, username, scopes, ttl, cfg.SessionIssuer, time.Now())
			token, err := signer.Sign(claims)
			if err != nil {
				return fmt.Errorf("sign session token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "user id the token is issued for (required)")
	cmd.Flags().StringVar(&username, "username", "", "informational username claim")
	cmd.Flags().StringSliceVar(&scopes, "scope", nil, "scopes to grant, repeatable or comma separated")
	cmd.Flags().DurationVar(&ttl, "ttl", jwtx.DefaultSessionTTL, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")

	return cmd
}
