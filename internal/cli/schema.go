package cli

import (
	"encoding/json"

	"github.com/me/goramble/internal/schema"
	"github.com/me/goramble/pkg/model"
	"github.com/spf13/cobra"
)

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "schema [application|workload|experiment]",
		Short:     "Print the configuration schema as JSON",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"application", "workload", "experiment"},
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := schema.NewRegistry(cfg.Defaults)
			if err != nil {
				return err
			}
			sch := reg.Document()
			if len(args) == 1 {
				if sch, err = reg.LevelSchema(model.Level(args[0])); err != nil {
					return err
				}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(sch)
		},
	}
}
