package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/pomotrack/internal/timer"
)

// How long run waits for the last session writes after its final cycle.
const flushTimeout = 15 * time.Second

func newRunCmd(e *env) *cobra.Command {
	var cycles int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run focus cycles without the interface",
		Long: `Run focus/break cycles headlessly, printing the countdown. Each finished
cycle is recorded like in the interface. The command returns once the given
number of focus cycles has completed.

Examples:
  pomotrack run              # one focus cycle
  pomotrack run --cycles 4   # four focus cycles with breaks in between
  pomotrack run --json       # one JSON snapshot per line`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cycles < 1 {
				return fmt.Errorf("--cycles must be at least 1")
			}
			st, err := e.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			logger, closer := e.fileLogger()
			defer closer.Close()

			sessions, _, err := e.sessions(st)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runCycles(ctx, runOptions{
				settings:           st.KV(),
				sessions:           sessions,
				chime:              e.chime(logger),
				logger:             logger,
				clock:              timer.SystemClock{},
				sampleInterval:     time.Duration(e.cfg.SampleInterval),
				backgroundInterval: time.Duration(e.cfg.BackgroundInterval),
				cycles:             cycles,
				json:               asJSON,
				out:                cmd.OutOrStdout(),
			})
		},
	}
	cmd.Flags().IntVar(&cycles, "cycles", 1, "focus cycles to complete")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print snapshots as JSON lines")
	return cmd
}

type runOptions struct {
	settings           timer.KV
	sessions           timer.SessionLogger
	chime              timer.Chime
	logger             *slog.Logger
	clock              timer.Clock
	sampleInterval     time.Duration
	backgroundInterval time.Duration
	cycles             int
	json               bool
	out                io.Writer
}

// flushLogger reports every finished write so run can wait for them
// before returning.
type flushLogger struct {
	next timer.SessionLogger
	done chan error
}

func (f flushLogger) LogSession(ctx context.Context, kind timer.Kind, durationSeconds int) error {
	err := f.next.LogSession(ctx, kind, durationSeconds)
	f.done <- err
	return err
}

// runCycles drives a machine on its own event loop until opts.cycles focus
// cycles have completed or ctx is cancelled. A cycle that ends idle (auto
// start off) is started again.
func runCycles(ctx context.Context, opts runOptions) error {
	loop := timer.NewLoop()
	defer loop.Stop()

	flush := flushLogger{next: opts.sessions, done: make(chan error, 2*opts.cycles+2)}
	enc := json.NewEncoder(opts.out)
	finished := make(chan struct{})
	var once sync.Once
	var m *timer.Machine
	logged := 0
	lastMode := timer.Mode("")

	loop.Call(func() {
		m = timer.New(timer.Options{
			Clock:              opts.clock,
			Scheduler:          loop,
			Settings:           opts.settings,
			Sessions:           flush,
			Chime:              opts.chime,
			Logger:             opts.logger,
			SampleInterval:     opts.sampleInterval,
			BackgroundInterval: opts.backgroundInterval,
		})
		m.Subscribe(func(s timer.Snapshot) {
			if lastMode != "" && s.Mode != lastMode {
				logged++
			}
			lastMode = s.Mode
			if opts.json {
				_ = enc.Encode(s)
			} else {
				_, _ = fmt.Fprintf(opts.out, "\r%-5s %s  %-7s cycles %d ", s.Mode, formatClock(s.TimeLeft()), s.State, s.CyclesCompleted)
			}
			if s.CyclesCompleted >= opts.cycles {
				once.Do(func() { close(finished) })
				return
			}
			if s.State == timer.Idle && logged > 0 {
				loop.Post(m.Start)
			}
		})
		lastMode = m.Snapshot().Mode
		m.Start()
	})

	var err error
	select {
	case <-finished:
	case <-ctx.Done():
		err = ctx.Err()
	}

	var expected int
	loop.Call(func() {
		m.Close()
		expected = logged
	})
	if !opts.json {
		_, _ = fmt.Fprintln(opts.out)
	}

	timeout := time.After(flushTimeout)
	for i := 0; i < expected; i++ {
		select {
		case logErr := <-flush.done:
			if logErr != nil {
				_, _ = fmt.Fprintf(opts.out, "warning: session not saved: %v\n", logErr)
			}
		case <-timeout:
			return fmt.Errorf("timed out saving sessions")
		}
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func formatClock(secs int) string {
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
