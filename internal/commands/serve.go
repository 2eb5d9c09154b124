package commands

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/pomotrack/internal/api"
	"github.com/sadopc/pomotrack/internal/auth"
	"github.com/sadopc/pomotrack/internal/logging"
	"github.com/sadopc/pomotrack/internal/timer"
)

func newServeCmd(e *env) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the session server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if listen == "" {
				listen = e.cfg.Listen
			}
			st, err := e.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			logger, closer := logging.Stderr(e.cfg.Level())
			defer closer.Close()

			if n, err := st.DeleteExpiredTokens(time.Now()); err != nil {
				logger.Warn("token sweep failed", "err", err)
			} else if n > 0 {
				logger.Info("removed expired tokens", "count", n)
			}

			svc := auth.NewService(st, auth.WithTokenTTL(time.Duration(e.cfg.TokenTTL)))
			srv := api.NewServer(st, svc, timer.SystemClock{}, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(ctx, listen)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from config, :8080)")
	return cmd
}
