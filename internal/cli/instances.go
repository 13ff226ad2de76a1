package cli

import (
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/me/goramble/pkg/model"
	"github.com/spf13/cobra"
)

func newInstancesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "instances",
		Short: "Browse stored experiment instances",
	}

	var (
		expansionID string
		application string
		workload    string
		limit       int
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List stored instances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			opts := model.ListOptions{
				Limit:       limit,
				ExpansionID: expansionID,
				Application: application,
				Workload:    workload,
			}
			opts.Clamp()
			instances, total, err := st.ListInstances(cmd.Context(), opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(instances) == 0 {
				fmt.Fprintln(out, "No instances found.")
				return nil
			}
			fmt.Fprintf(out, "%-36s  %-40s  %s\n", "ID", "EXPERIMENT", "NAME")
			fmt.Fprintf(out, "%-36s  %-40s  %s\n", "--", "----------", "----")
			for _, inst := range instances {
				fmt.Fprintf(out, "%-36s  %-40s  %s\n", inst.ID, inst.QualifiedName(), inst.Name)
			}
			fmt.Fprintf(out, "\nShowing %d of %s instance(s)\n", len(instances), humanize.Comma(int64(total)))
			return nil
		},
	}
	list.Flags().StringVar(&expansionID, "expansion", "", "Filter by expansion ID")
	list.Flags().StringVar(&application, "application", "", "Filter by application")
	list.Flags().StringVar(&workload, "workload", "", "Filter by workload")
	list.Flags().IntVar(&limit, "limit", 20, "Maximum number of instances to show")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a stored instance as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			inst, err := st.GetInstance(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if inst == nil {
				return model.NewNotFoundError("Instance", args[0])
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(inst)
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}

func newExpansionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expansions",
		Short: "Browse stored expansions",
	}
	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List stored expansions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			opts := model.ListOptions{Limit: limit}
			opts.Clamp()
			expansions, total, err := st.ListExpansions(cmd.Context(), opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(expansions) == 0 {
				fmt.Fprintln(out, "No expansions found.")
				return nil
			}
			fmt.Fprintf(out, "%-40s  %-10s  %-16s  %s\n", "ID", "INSTANCES", "CREATED", "SOURCE")
			fmt.Fprintf(out, "%-40s  %-10s  %-16s  %s\n", "--", "---------", "-------", "------")
			for _, exp := range expansions {
				fmt.Fprintf(out, "%-40s  %-10s  %-16s  %s\n",
					exp.ID, humanize.Comma(int64(exp.InstanceCount)), humanize.Time(exp.CreatedAt), exp.Source)
			}
			fmt.Fprintf(out, "\nShowing %d of %s expansion(s)\n", len(expansions), humanize.Comma(int64(total)))
			return nil
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "Maximum number of expansions to show")
	cmd.AddCommand(list)
	return cmd
}
