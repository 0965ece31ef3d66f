package plugin

import (
	"reflect"

	"github.com/traefik/yaegi/interp"

	"github.com/opsward/opsward/sdk/pluginsdk"
)

// sdkSymbols exposes the pluginsdk types to interpreted plugin code, the
// same way yaegi's extract tool would generate them.
var sdkSymbols = interp.Exports{
	"github.com/opsward/opsward/sdk/pluginsdk/pluginsdk": {
		"Plugin":    reflect.ValueOf((*pluginsdk.Plugin)(nil)),
		"Tool":      reflect.ValueOf((*pluginsdk.Tool)(nil)),
		"ToolSpec":  reflect.ValueOf((*pluginsdk.ToolSpec)(nil)),
		"HelpEntry": reflect.ValueOf((*pluginsdk.HelpEntry)(nil)),
		"Host":      reflect.ValueOf((*pluginsdk.Host)(nil)),
		"DB":        reflect.ValueOf((*pluginsdk.DB)(nil)),
	},
}
