// Package version holds build and release metadata.
package version

// AppVersion is the passbolt release this build tracks. The application
// healthcheck compares it against the latest published release.
const AppVersion = "5.3.2"

//nolint:revive // Set via ldflags at build time.
var (
	Commit = "unknown"
	Date   = "unknown"
)
