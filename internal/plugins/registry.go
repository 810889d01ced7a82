// Package plugins tracks which optional features are switched on for this
// instance.
package plugins

import (
	"sort"

	"github.com/nimdassdev/passbolt-api/internal/usecase/healthcheck"
)

// Feature switches shipped on or off out of the box. Configuration overrides
// win over these.
var defaults = map[string]bool{
	healthcheck.FeatureJwtAuthentication: true,
	healthcheck.FeatureSmtpSettings:      true,
	healthcheck.FeatureSelfRegistration:  false,
}

// Registry answers feature gate queries. Unknown features are disabled.
type Registry struct {
	enabled map[string]bool
}

// New builds a Registry from the defaults plus configuration overrides.
func New(overrides map[string]bool) *Registry {
	enabled := make(map[string]bool, len(defaults)+len(overrides))
	for name, on := range defaults {
		enabled[name] = on
	}
	for name, on := range overrides {
		enabled[name] = on
	}
	return &Registry{enabled: enabled}
}

// IsEnabled reports whether the named feature is switched on.
func (r *Registry) IsEnabled(name string) bool {
	return r.enabled[name]
}

// Names returns every known feature name, sorted, for startup logging.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.enabled))
	for name := range r.enabled {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
