package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/pomotrack/internal/export"
)

func newExportCmd(e *env) *cobra.Command {
	var format, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export sessions as CSV or JSON",
		Long: `Export every session, most recent first.

Examples:
  pomotrack export                      # CSV to stdout
  pomotrack export --format json -o s.json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "csv" && format != "json" {
				return fmt.Errorf("unknown format %q: use csv or json", format)
			}
			list, err := e.listSessions(cmd.Context())
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}

			if format == "json" {
				err = export.WriteJSON(w, list, time.Now())
			} else {
				err = export.WriteCSV(w, list)
			}
			if err != nil {
				return err
			}
			if output != "" && output != "-" {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d sessions to %s\n", len(list), output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "csv or json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}
