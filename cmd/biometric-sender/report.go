package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ryabkov82/biometric-sender/internal/report"
)

func newReportCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "report <report.json>",
		Short: "Render a saved JSON report as HTML",
		Long: `Converts a JSON report written by an upload run into a self-contained
HTML page. The default output is <stem>_report.html next to the input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := report.LoadJSON(args[0])
			if err != nil {
				return err
			}
			if out == "" {
				out = report.HTMLPathFor(args[0])
			}
			if err := report.SaveHTML(out, rep); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "HTML report saved to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "HTML output path")
	return cmd
}
