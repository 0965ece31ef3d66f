package cli

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/opsward/opsward/internal/audit"
	"github.com/opsward/opsward/internal/cmdgate"
	"github.com/opsward/opsward/internal/config"
	"github.com/opsward/opsward/internal/logging"
	"github.com/opsward/opsward/internal/pathgate"
	"github.com/opsward/opsward/internal/plugin"
	"github.com/opsward/opsward/internal/ratelimit"
	"github.com/opsward/opsward/internal/store"
	"github.com/opsward/opsward/internal/tools"
)

// runtime is the assembled sandbox a command works with. Commands build
// only the pieces they need via the with* options.
type runtime struct {
	cfg      *config.Config
	log      *zap.Logger
	commands *cmdgate.Gate
	paths    *pathgate.Gate
	store    *store.Store
	plugins  *plugin.Manager
	catalog  *tools.Catalog
	auditLog *audit.Log
}

// newRuntime loads config and builds the gates. withStore also opens the
// database and the plugin manager; withCatalog additionally assembles the
// tool catalog (and loads plugins).
func newRuntime(withStore, withCatalog bool) (*runtime, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	pathPolicy, err := pathgate.LoadPolicy(cfg.PathPolicyPath)
	if err != nil {
		return nil, fmt.Errorf("load path policy: %w", err)
	}
	paths := pathgate.New(pathPolicy, log)

	cmdPolicy, err := cmdgate.LoadPolicy(cfg.CommandPolicyPath)
	if err != nil {
		return nil, fmt.Errorf("load command policy: %w", err)
	}
	commands := cmdgate.New(cmdPolicy, paths, log)

	rt := &runtime{cfg: cfg, log: log, commands: commands, paths: paths}

	if !withStore && !withCatalog {
		return rt, nil
	}

	rt.store, err = store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	rt.plugins = plugin.NewManager(cfg.PluginDir, rt.store.DB(), log)
	rt.plugins.SetHookDeadline(cfg.HookDeadline)

	if !withCatalog {
		return rt, nil
	}

	rt.auditLog, err = audit.Open(cfg.AuditLogPath)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	limiter := ratelimit.New(cfg.RateLimit.Calls, cfg.RateLimit.Window)
	rt.catalog = tools.New(commands, paths, limiter, rt.auditLog, log)
	return rt, nil
}

func (rt *runtime) close() {
	if rt.auditLog != nil {
		_ = rt.auditLog.Close()
	}
	if rt.store != nil {
		_ = rt.store.Close()
	}
	_ = rt.log.Sync()
}
