package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/me/goramble/internal/store"
	"github.com/spf13/cobra"
)

func newExpandCmd() *cobra.Command {
	var (
		asJSON bool
		save   bool
	)
	cmd := &cobra.Command{
		Use:   "expand <file>",
		Short: "Expand a configuration document into experiment instances",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, _, err := newWorkspace()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			report, err := ws.SetupBytes(cmd.Context(), data)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			errOut := cmd.ErrOrStderr()

			for _, w := range report.Warnings {
				fmt.Fprintf(errOut, "warning: %s\n", w)
			}
			for _, f := range report.Failures {
				fmt.Fprintf(errOut, "error: %s: %s\n", f.Experiment, f.Message)
			}

			if save {
				st, err := openStore(cmd)
				if err != nil {
					return err
				}
				defer st.Close()
				exp := store.NewExpansion(args[0], data)
				exp.Warnings = report.Warnings
				for _, f := range report.Failures {
					exp.Failures = append(exp.Failures, f.Experiment+": "+f.Message)
				}
				if err := st.SaveExpansion(cmd.Context(), exp, report.Instances); err != nil {
					return fmt.Errorf("save expansion: %w", err)
				}
				fmt.Fprintf(errOut, "saved expansion %s (%s instances)\n", exp.ID, humanize.Comma(int64(exp.InstanceCount)))
			}

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(out, "%-36s  %-40s  %s\n", "ID", "EXPERIMENT", "NAME")
				fmt.Fprintf(out, "%-36s  %-40s  %s\n", "--", "----------", "----")
				for _, inst := range report.Instances {
					fmt.Fprintf(out, "%-36s  %-40s  %s\n", inst.ID, inst.QualifiedName(), inst.Name)
				}
				fmt.Fprintf(out, "\n%s instance(s)\n", humanize.Comma(int64(len(report.Instances))))
			}

			if len(report.Failures) > 0 {
				return fmt.Errorf("%d experiment(s) failed to expand", len(report.Failures))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full report as JSON")
	cmd.Flags().BoolVar(&save, "save", false, "Store the expansion in the database")
	return cmd
}
