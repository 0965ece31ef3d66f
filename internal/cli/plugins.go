package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(pluginsCmd)
	pluginsCmd.AddCommand(pluginsListCmd)
	pluginsCmd.AddCommand(pluginsToolsCmd)
	pluginsCmd.AddCommand(pluginsHelpCmd)
}

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "Inspect extension modules",
}

var pluginsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Load all plugins and show what was accepted",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(true, false)
		if err != nil {
			return err
		}
		defer rt.close()

		ctx := context.Background()
		n, err := rt.plugins.LoadAll(ctx)
		if err != nil {
			return err
		}
		defer rt.plugins.UnloadAll(ctx)

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tVERSION\tTOOLS\tDESCRIPTION")
		for _, rec := range rt.plugins.Records() {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
				rec.Plugin.Name, rec.Plugin.Version, len(rec.Plugin.Tools), rec.Plugin.Description)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d plugin(s) loaded\n", n)
		return nil
	},
}

var pluginsHelpCmd = &cobra.Command{
	Use:   "help-entries",
	Short: "Show the chat help entries contributed by loaded plugins",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(true, false)
		if err != nil {
			return err
		}
		defer rt.close()

		ctx := context.Background()
		if _, err := rt.plugins.LoadAll(ctx); err != nil {
			return err
		}
		defer rt.plugins.UnloadAll(ctx)

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PLUGIN\tCOMMAND\tDESCRIPTION")
		for _, rec := range rt.plugins.Records() {
			for _, h := range rec.Plugin.Help {
				fmt.Fprintf(w, "%s\t%s\t%s\n", rec.Plugin.Name, h.Command, h.Description)
			}
		}
		return w.Flush()
	},
}

var pluginsToolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Show the aggregate tool catalog, grouped by owner",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(true, true)
		if err != nil {
			return err
		}
		defer rt.close()

		ctx := context.Background()
		if _, err := rt.plugins.LoadAll(ctx); err != nil {
			return err
		}
		defer rt.plugins.UnloadAll(ctx)
		if err := rt.catalog.AddPluginTools(rt.plugins); err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TOOL\tOWNER\tDESCRIPTION")
		for _, t := range rt.catalog.List() {
			owner := t.Owner
			if owner == "" {
				owner = "(builtin)"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", t.Spec.Name, owner, t.Spec.Description)
		}
		return w.Flush()
	},
}
