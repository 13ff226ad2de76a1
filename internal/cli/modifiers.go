package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newModifiersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "modifiers",
		Short: "Inspect registered modifiers",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List builtin and plugin modifiers",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				mods, err := newModifierRegistry()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%-20s  %-30s  %s\n", "NAME", "MODES", "TAGS")
				fmt.Fprintf(out, "%-20s  %-30s  %s\n", "----", "-----", "----")
				for _, m := range mods.List() {
					var modes []string
					for _, md := range m.Modes() {
						modes = append(modes, md.Name)
					}
					fmt.Fprintf(out, "%-20s  %-30s  %s\n", m.Name(), strings.Join(modes, ","), strings.Join(m.Tags(), ","))
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "show <name>",
			Short: "Show a modifier with its modes",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				mods, err := newModifierRegistry()
				if err != nil {
					return err
				}
				m, err := mods.Get(args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Name:        %s\n", m.Name())
				fmt.Fprintf(out, "Tags:        %s\n", strings.Join(m.Tags(), ", "))
				fmt.Fprintf(out, "Maintainers: %s\n", strings.Join(m.Maintainers(), ", "))
				fmt.Fprintln(out, "Modes:")
				for _, md := range m.Modes() {
					fmt.Fprintf(out, "  %-16s  %s\n", md.Name, md.Description)
				}
				return nil
			},
		},
	)
	return cmd
}
