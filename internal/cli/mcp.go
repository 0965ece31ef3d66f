package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opsward/opsward/internal/mcp"
	"github.com/opsward/opsward/internal/plugin"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the sandboxed tools over MCP on stdio",
	Long: "Loads plugins, assembles the tool catalog, and speaks the Model Context\n" +
		"Protocol on stdin/stdout so external agents use the same gates as chat.",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(true, true)
		if err != nil {
			return err
		}
		defer rt.close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if _, err := rt.plugins.LoadAll(ctx); err != nil {
			return err
		}
		defer rt.plugins.UnloadAll(context.Background())
		if err := rt.catalog.AddPluginTools(rt.plugins); err != nil {
			return err
		}

		// Surface plugin-directory changes; reloads are sequenced by the
		// operator restarting the server, never mid-traffic.
		watcher := plugin.NewWatcher(rt.cfg.PluginDir)
		go func() {
			if err := watcher.Run(ctx); err != nil {
				rt.log.Warn("plugin watcher stopped", zap.Error(err))
			}
		}()
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-watcher.Changes():
					rt.log.Info("plugin directory changed; restart to reload")
				}
			}
		}()

		rt.log.Info("mcp server starting",
			zap.Int("tools", len(rt.catalog.List())),
			zap.Strings("plugins", rt.plugins.Loaded()))

		srv := mcp.New(mcp.Config{
			Commands: rt.commands,
			Paths:    rt.paths,
			Catalog:  rt.catalog,
			Version:  version,
		}, rt.log)
		return srv.Run(ctx)
	},
}
