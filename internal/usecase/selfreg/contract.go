// Package selfreg exposes self registration plugin state.
package selfreg

import "context"

// SettingsSource reads raw organization setting values.
type SettingsSource interface {
	OrganizationSetting(ctx context.Context, property string) (string, error)
}
