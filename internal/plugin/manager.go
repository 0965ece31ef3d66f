package plugin

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/opsward/opsward/internal/dbgate"
	"github.com/opsward/opsward/sdk/pluginsdk"
)

// DefaultHookDeadline bounds plugin Init and Destroy hooks.
const DefaultHookDeadline = 5 * time.Second

// OwnedTool is a plugin tool tagged with its owner for routing and display
// grouping.
type OwnedTool struct {
	Owner string
	Tool  pluginsdk.Tool
}

// loaded is one registry entry: the validated record plus the table-name
// prefix generated for its database handle.
type loaded struct {
	record Record
	prefix dbgate.Prefix
	host   *pluginsdk.Host
}

// Manager discovers, loads, and unloads extension modules and maintains
// the registry of currently loaded plugins.
type Manager struct {
	dir      string
	db       *sql.DB
	deadline time.Duration
	log      *zap.Logger

	mu        sync.Mutex
	loaded    map[string]*loaded
	toolOwner map[string]string // aggregate tool name -> plugin name
}

// NewManager creates a Manager over a plugin directory and the shared
// database connection handles are minted from.
func NewManager(dir string, db *sql.DB, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		dir:       dir,
		db:        db,
		deadline:  DefaultHookDeadline,
		log:       log.Named("plugin"),
		loaded:    make(map[string]*loaded),
		toolOwner: make(map[string]string),
	}
}

// SetHookDeadline overrides the Init/Destroy deadline. Zero restores the
// default.
func (m *Manager) SetHookDeadline(d time.Duration) {
	if d <= 0 {
		d = DefaultHookDeadline
	}
	m.deadline = d
}

// LoadAll discovers and loads every candidate module independently. Any
// failure discards only that plugin; the loop continues. Returns the number
// of plugins loaded.
func (m *Manager) LoadAll(ctx context.Context) (int, error) {
	paths, err := Discover(m.dir)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, path := range paths {
		if err := m.loadOne(ctx, path); err != nil {
			m.log.Warn("plugin not loaded", zap.String("path", path), zap.Error(err))
			continue
		}
		count++
	}
	return count, nil
}

// loadOne takes a single candidate through Discovered -> Validated ->
// Initializing -> Loaded. Registration is all-or-nothing.
func (m *Manager) loadOne(ctx context.Context, path string) error {
	p, err := parse(path)
	if err != nil {
		return &LoadError{Path: path, State: StateDiscovered, Err: err}
	}

	if err := validate(p); err != nil {
		return &LoadError{Path: path, State: StateValidated, Err: err}
	}

	m.mu.Lock()
	if _, dup := m.loaded[p.Name]; dup {
		m.mu.Unlock()
		return &LoadError{Path: path, State: StateValidated,
			Err: fmt.Errorf("plugin %q already loaded", p.Name)}
	}
	// Aggregate tool-name uniqueness, independent of the per-plugin
	// namespace: a later plugin cannot shadow an earlier one's tool.
	for _, t := range p.Tools {
		if owner, taken := m.toolOwner[t.Spec.Name]; taken {
			m.mu.Unlock()
			return &LoadError{Path: path, State: StateValidated,
				Err: fmt.Errorf("tool %q already registered by plugin %q", t.Spec.Name, owner)}
		}
	}
	m.mu.Unlock()

	handle, err := dbgate.NewHandle(m.db, p.Name)
	if err != nil {
		return &LoadError{Path: path, State: StateValidated, Err: err}
	}
	handle.SetOwnerLookup(m.Loaded)
	host := &pluginsdk.Host{DB: &hostDB{handle: handle}}

	if p.Init != nil {
		if err := m.runHook(ctx, func(hctx context.Context) error {
			return p.Init(hctx, host)
		}); err != nil {
			return &LoadError{Path: path, State: StateInitializing, Err: err}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded[p.Name] = &loaded{
		record: Record{Plugin: p, Path: path, State: StateLoaded},
		prefix: handle.Prefix(),
		host:   host,
	}
	for _, t := range p.Tools {
		m.toolOwner[t.Spec.Name] = p.Name
	}
	m.log.Info("plugin loaded",
		zap.String("name", p.Name),
		zap.String("version", p.Version),
		zap.Int("tools", len(p.Tools)))
	return nil
}

// runHook races a lifecycle hook against the deadline. The loser's side
// effect keeps running; only the load decision is bound by the deadline.
func (m *Manager) runHook(ctx context.Context, hook func(context.Context) error) error {
	hctx, cancel := context.WithTimeout(ctx, m.deadline)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- hook(hctx) }()

	select {
	case err := <-done:
		return err
	case <-hctx.Done():
		return fmt.Errorf("hook deadline exceeded after %s", m.deadline)
	}
}

// Tools returns the flattened tool list across loaded plugins, each tagged
// with its owner, sorted by tool name.
func (m *Manager) Tools() []OwnedTool {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []OwnedTool
	for name, l := range m.loaded {
		for _, t := range l.record.Plugin.Tools {
			out = append(out, OwnedTool{Owner: name, Tool: t})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tool.Spec.Name < out[j].Tool.Spec.Name })
	return out
}

// Loaded reports the names of currently loaded plugins, sorted.
func (m *Manager) Loaded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.loaded))
	for name := range m.loaded {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Records returns the loaded plugin records, sorted by name.
func (m *Manager) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Record
	for _, l := range m.loaded {
		out = append(out, l.record)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Plugin.Name < out[j].Plugin.Name })
	return out
}

// UnloadAll runs each loaded plugin's Destroy hook best-effort under the
// deadline, then clears the registry. Destroy failures are logged and
// swallowed: shutdown must still complete.
func (m *Manager) UnloadAll(ctx context.Context) {
	m.mu.Lock()
	entries := make([]*loaded, 0, len(m.loaded))
	for _, l := range m.loaded {
		entries = append(entries, l)
	}
	m.loaded = make(map[string]*loaded)
	m.toolOwner = make(map[string]string)
	m.mu.Unlock()

	for _, l := range entries {
		p := l.record.Plugin
		if p.Destroy == nil {
			continue
		}
		if err := m.runHook(ctx, p.Destroy); err != nil {
			m.log.Warn("plugin destroy failed",
				zap.String("name", p.Name), zap.Error(err))
		}
	}
}
