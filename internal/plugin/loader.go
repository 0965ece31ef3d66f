package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/opsward/opsward/sdk/pluginsdk"
)

// Discover lists candidate plugin modules in the configured directory:
// flat, non-recursive, sorted, restartable. A missing directory is an
// empty result, not an error.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read plugin dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".go") {
			continue
		}
		if strings.HasSuffix(e.Name(), "_test.go") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// parse interprets a plugin source file and extracts its exported record.
// Interpretation runs with stdlib plus the pluginsdk symbols only; a module
// that does not export Plugin with the right type is rejected here, before
// any lifecycle hook runs.
func parse(path string) (pluginsdk.Plugin, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return pluginsdk.Plugin{}, fmt.Errorf("read module: %w", err)
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return pluginsdk.Plugin{}, fmt.Errorf("load stdlib symbols: %w", err)
	}
	if err := i.Use(sdkSymbols); err != nil {
		return pluginsdk.Plugin{}, fmt.Errorf("load sdk symbols: %w", err)
	}

	if _, err := i.Eval(string(src)); err != nil {
		return pluginsdk.Plugin{}, fmt.Errorf("interpret module: %w", err)
	}

	v, err := i.Eval("main.Plugin")
	if err != nil {
		return pluginsdk.Plugin{}, fmt.Errorf("module does not declare Plugin: %w", err)
	}

	p, ok := v.Interface().(pluginsdk.Plugin)
	if !ok {
		return pluginsdk.Plugin{}, fmt.Errorf("Plugin has type %T, want pluginsdk.Plugin", v.Interface())
	}
	return p, nil
}
