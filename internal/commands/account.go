package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/sadopc/pomotrack/internal/api"
	"github.com/sadopc/pomotrack/internal/store"
)

var errNoServer = errors.New("no server configured: set server_url or pass --server")

// promptCredentials asks for whatever was not given on the command line.
func promptCredentials(email, password *string) error {
	var fields []huh.Field
	if *email == "" {
		fields = append(fields, huh.NewInput().Title("Email").Value(email).
			Validate(func(s string) error {
				if !strings.Contains(s, "@") {
					return errors.New("enter an email address")
				}
				return nil
			}))
	}
	if *password == "" {
		fields = append(fields, huh.NewInput().Title("Password").
			EchoMode(huh.EchoModePassword).Value(password))
	}
	if len(fields) == 0 {
		return nil
	}
	return huh.NewForm(huh.NewGroup(fields...)).Run()
}

func saveAccount(st *store.Store, token, email string) error {
	kv := st.KV()
	if err := kv.Set(tokenKey, token); err != nil {
		return err
	}
	return kv.Set(emailKey, email)
}

func clearAccount(st *store.Store) error {
	kv := st.KV()
	if err := kv.Delete(tokenKey); err != nil {
		return err
	}
	return kv.Delete(emailKey)
}

// newCredentialCmd builds register and login, which differ only in the
// client call and the wording.
func newCredentialCmd(e *env, use, short, verb string, call func(*api.Client, context.Context, string, string) (string, error)) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !e.cfg.Remote() {
				return errNoServer
			}
			if err := promptCredentials(&email, &password); err != nil {
				return err
			}
			st, err := e.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			email = strings.ToLower(strings.TrimSpace(email))
			token, err := call(api.NewClient(e.cfg.ServerURL, ""), cmd.Context(), email, password)
			if err != nil {
				return fmt.Errorf("%s: %w", use, err)
			}
			if err := saveAccount(st, token, email); err != nil {
				return fmt.Errorf("save token: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s as %s\n", verb, email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when empty)")
	return cmd
}

func newRegisterCmd(e *env) *cobra.Command {
	return newCredentialCmd(e, "register", "Create an account on the server", "Registered and logged in", (*api.Client).Register)
}

func newLoginCmd(e *env) *cobra.Command {
	return newCredentialCmd(e, "login", "Log in to the server", "Logged in", (*api.Client).Login)
}

func newLogoutCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := e.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			if token, ok := st.KV().Get(tokenKey); ok && token != "" && e.cfg.Remote() {
				// Best effort; the local token is dropped either way.
				if err := api.NewClient(e.cfg.ServerURL, token).Logout(cmd.Context()); err != nil {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: server logout failed: %v\n", err)
				}
			}
			if err := clearAccount(st); err != nil {
				return fmt.Errorf("clear token: %w", err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show where sessions are recorded",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if !e.cfg.Remote() {
				_, _ = fmt.Fprintf(out, "local (%s)\n", e.cfg.DBPath)
				return nil
			}
			st, err := e.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			token, ok := st.KV().Get(tokenKey)
			if !ok || token == "" {
				return errNotLoggedIn
			}
			_, email, err := api.NewClient(e.cfg.ServerURL, token).Me(cmd.Context())
			if errors.Is(err, api.ErrUnauthorized) {
				return fmt.Errorf("token rejected by %s: log in again", e.cfg.ServerURL)
			}
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "%s on %s\n", email, e.cfg.ServerURL)
			return nil
		},
	}
}
