// Package dbgate restricts a plugin's database statements to its own table
// namespace. Every call re-validates the SQL text against the handle's
// prefix, so a Handle can be passed into plugin code without granting more
// than the plugin's namespace; the shared connection, pragmas, and database
// file path stay with the host.
package dbgate

import (
	"context"
	"database/sql"
	"fmt"
)

// IsolationError reports SQL referencing a table outside the caller's
// namespace. It is returned synchronously so a misbehaving extension fails
// loudly instead of corrupting shared state.
type IsolationError struct {
	Plugin string
	Table  string
	// Owner is the foreign plugin that owns the table, or "" when the
	// table is host-owned ("core").
	Owner string
}

func (e *IsolationError) Error() string {
	if e.Owner != "" {
		return fmt.Sprintf("plugin %q may not reference table %q owned by plugin %q", e.Plugin, e.Table, e.Owner)
	}
	return fmt.Sprintf("plugin %q may not reference core table %q", e.Plugin, e.Table)
}

// Handle is the database capability handed to a single plugin. Stateless
// beyond the shared connection, plugin name, and prefix.
type Handle struct {
	db     *sql.DB
	plugin string
	prefix Prefix
	owners func() []string
}

// NewHandle binds a plugin to its namespace on the shared connection.
func NewHandle(db *sql.DB, pluginName string) (*Handle, error) {
	prefix, err := NewPrefix(pluginName)
	if err != nil {
		return nil, err
	}
	return &Handle{db: db, plugin: pluginName, prefix: prefix}, nil
}

// Prefix returns the handle's table-name prefix.
func (h *Handle) Prefix() Prefix { return h.prefix }

// SetOwnerLookup supplies the current set of loaded plugin names. Plugin
// names may contain underscores, so the table prefix alone does not say
// where the name ends; with the lookup, isolation errors name the owning
// plugin exactly instead of guessing at the first segment.
func (h *Handle) SetOwnerLookup(fn func() []string) { h.owners = fn }

// ownerOf resolves the plugin that owns a namespaced table, preferring the
// longest loaded name whose prefix matches.
func (h *Handle) ownerOf(table string) string {
	if h.owners != nil {
		best := ""
		for _, name := range h.owners() {
			p, err := NewPrefix(name)
			if err != nil {
				continue
			}
			if p.Owns(table) && len(name) > len(best) {
				best = name
			}
		}
		if best != "" {
			return best
		}
	}
	return pluginOwner(table)
}

// Validate checks a statement's table references against the namespace.
func (h *Handle) Validate(query string) error {
	if isPragma(query) {
		return nil
	}
	for _, table := range extractTables(query) {
		if isSystemTable(table) || h.prefix.Owns(table) {
			continue
		}
		err := &IsolationError{Plugin: h.plugin, Table: table}
		if owner := h.ownerOf(table); owner != "" && owner != h.plugin {
			err.Owner = owner
		}
		return err
	}
	return nil
}

// Exec validates and executes a statement.
func (h *Handle) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if err := h.Validate(query); err != nil {
		return nil, err
	}
	return h.db.ExecContext(ctx, query, args...)
}

// Query validates and runs a query.
func (h *Handle) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if err := h.Validate(query); err != nil {
		return nil, err
	}
	return h.db.QueryContext(ctx, query, args...)
}

// QueryRow validates and runs a single-row query.
func (h *Handle) QueryRow(ctx context.Context, query string, args ...any) (*sql.Row, error) {
	if err := h.Validate(query); err != nil {
		return nil, err
	}
	return h.db.QueryRowContext(ctx, query, args...), nil
}

// Prepare validates and prepares a statement.
func (h *Handle) Prepare(ctx context.Context, query string) (*sql.Stmt, error) {
	if err := h.Validate(query); err != nil {
		return nil, err
	}
	return h.db.PrepareContext(ctx, query)
}

// Tx wraps a transaction so every statement inside it is re-validated.
type Tx struct {
	tx     *sql.Tx
	handle *Handle
}

func (t *Tx) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if err := t.handle.Validate(query); err != nil {
		return nil, err
	}
	return t.tx.ExecContext(ctx, query, args...)
}

func (t *Tx) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if err := t.handle.Validate(query); err != nil {
		return nil, err
	}
	return t.tx.QueryContext(ctx, query, args...)
}

// Transaction runs fn inside a transaction, rolling back on error.
func (h *Handle) Transaction(ctx context.Context, fn func(*Tx) error) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(&Tx{tx: tx, handle: h}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}
