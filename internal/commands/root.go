// Package commands wires the pomotrack command line.
package commands

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sadopc/pomotrack/internal/api"
	"github.com/sadopc/pomotrack/internal/chime"
	"github.com/sadopc/pomotrack/internal/config"
	"github.com/sadopc/pomotrack/internal/logging"
	"github.com/sadopc/pomotrack/internal/store"
	"github.com/sadopc/pomotrack/internal/timer"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Keys in the local settings table that hold the signed-in account.
const (
	tokenKey = "auth:token"
	emailKey = "auth:email"
)

var errNotLoggedIn = errors.New("not logged in: run `pomotrack login` or clear server_url")

// env carries the resolved configuration into every command.
type env struct {
	configPath string
	dbPath     string
	serverURL  string

	cfg config.Config
}

// load reads the config file and applies flag overrides.
func (e *env) load() error {
	path := e.configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return fmt.Errorf("locate config: %w", err)
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if e.dbPath != "" {
		cfg.DBPath = e.dbPath
	}
	if e.serverURL != "" {
		cfg.ServerURL = e.serverURL
	}
	e.cfg = cfg
	return nil
}

func (e *env) openStore() (*store.Store, error) {
	st, err := store.New(e.cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return st, nil
}

// fileLogger logs to the configured file so the terminal stays clean.
func (e *env) fileLogger() (*slog.Logger, io.Closer) {
	logger, closer, err := logging.OpenFile(e.cfg.LogFile, e.cfg.Level())
	if err != nil {
		return logging.Discard(), io.NopCloser(nil)
	}
	return logger, closer
}

// sessions picks the session store: the local table, or the server when one
// is configured. The second result is the signed-in email, if any.
func (e *env) sessions(st *store.Store) (timer.SessionStore, string, error) {
	if !e.cfg.Remote() {
		return st.ForUser(store.LocalUserID, nil), "", nil
	}
	kv := st.KV()
	token, ok := kv.Get(tokenKey)
	if !ok || token == "" {
		return nil, "", errNotLoggedIn
	}
	email, _ := kv.Get(emailKey)
	return api.NewClient(e.cfg.ServerURL, token), email, nil
}

func (e *env) chime(logger *slog.Logger) timer.Chime {
	if !e.cfg.ChimeEnabled() {
		return chime.Silent{}
	}
	dir, err := config.Dir()
	if err != nil {
		return chime.New(logger)
	}
	return chime.New(logger, chime.WithDir(dir))
}

func newRootCmd() *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:   "pomotrack",
		Short: "A pomodoro timer for the terminal",
		Long: `pomotrack runs focus/break cycles, keeps a history of finished sessions
and tracks progress towards a daily focus goal. Sessions are stored locally,
or on a pomotrack server when server_url is configured.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return e.load()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(e)
		},
	}
	root.PersistentFlags().StringVar(&e.configPath, "config", "", "config file (default ~/.config/pomotrack/config.yaml)")
	root.PersistentFlags().StringVar(&e.dbPath, "db", "", "database path")
	root.PersistentFlags().StringVar(&e.serverURL, "server", "", "pomotrack server URL")

	root.AddCommand(newRunCmd(e))
	root.AddCommand(newRegisterCmd(e))
	root.AddCommand(newLoginCmd(e))
	root.AddCommand(newLogoutCmd(e))
	root.AddCommand(newWhoamiCmd(e))
	root.AddCommand(newHistoryCmd(e))
	root.AddCommand(newGoalCmd(e))
	root.AddCommand(newExportCmd(e))
	root.AddCommand(newServeCmd(e))
	root.AddCommand(newVersionCmd())
	return root
}

// SetVersion sets the version information
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the root command
func Execute() error {
	return newRootCmd().Execute()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "pomotrack %s (commit %s, built %s)\n", version, commit, date)
			return nil
		},
	}
}
