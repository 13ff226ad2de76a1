package cli

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/me/goramble/pkg/model"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a configuration document and report how it expands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, _, err := newWorkspace()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			report, err := ws.SetupFile(cmd.Context(), args[0])
			if err != nil {
				var valErr *model.SchemaValidationError
				if errors.As(err, &valErr) {
					fmt.Fprintf(out, "%s: %d problem(s)\n", args[0], len(valErr.Violations))
					for _, v := range valErr.Violations {
						fmt.Fprintf(out, "  %s\n", v)
					}
					return fmt.Errorf("%s is invalid", args[0])
				}
				return err
			}

			for _, w := range report.Warnings {
				fmt.Fprintf(out, "warning: %s\n", w)
			}
			for _, f := range report.Failures {
				fmt.Fprintf(out, "error: %s: %s\n", f.Experiment, f.Message)
			}
			fmt.Fprintf(out, "%s: %s experiment(s), %s template(s), %s instance(s)\n",
				args[0],
				humanize.Comma(int64(report.Leaves-report.Templates)),
				humanize.Comma(int64(report.Templates)),
				humanize.Comma(int64(len(report.Instances))))
			if len(report.Failures) > 0 {
				return fmt.Errorf("%d experiment(s) failed to expand", len(report.Failures))
			}
			return nil
		},
	}
}
