package commands

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/pomotrack/internal/tui"
)

func runTUI(e *env) error {
	st, err := e.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	logger, closer := e.fileLogger()
	defer closer.Close()

	sessions, account, err := e.sessions(st)
	if err != nil {
		return err
	}
	home, _ := os.UserHomeDir()

	app := tui.NewApp(tui.Options{
		Settings:           st.KV(),
		Sessions:           sessions,
		Chime:              e.chime(logger),
		Logger:             logger,
		SampleInterval:     time.Duration(e.cfg.SampleInterval),
		BackgroundInterval: time.Duration(e.cfg.BackgroundInterval),
		PollInterval:       time.Duration(e.cfg.PollInterval),
		Account:            account,
		ExportDir:          home,
	})
	logger.Info("starting tui", "db", e.cfg.DBPath, "server", e.cfg.ServerURL)

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithReportFocus())
	final, err := p.Run()
	if m, ok := final.(tui.App); ok {
		m.Close()
	}
	if err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
