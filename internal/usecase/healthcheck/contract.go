package healthcheck

import (
	"context"
	"net/http"
)

// Feature names known to the gate.
const (
	FeatureJwtAuthentication = "jwtAuthentication"
	FeatureSmtpSettings      = "smtpSettings"
	FeatureSelfRegistration  = "selfRegistration"
)

// DatabaseHealth reports database facts and answers the queries the
// application category depends on. Check never returns nil and never fails:
// an unreachable database comes back as all-false facts.
type DatabaseHealth interface {
	Check(ctx context.Context) *DatabaseChecks
	CountAdmins(ctx context.Context) (int64, error)
	SchemaUpToDate(ctx context.Context) (bool, error)
}

// GPGHealth reports server key facts. Check never returns nil.
type GPGHealth interface {
	Check(ctx context.Context) *GPGChecks
}

// SSLHealth reports TLS peer facts for the server's own endpoint.
// Check never returns nil.
type SSLHealth interface {
	Check(ctx context.Context) *SSLChecks
}

// CoreHealth reports core runtime facts. client, when non-nil, overrides the
// HTTP client used for the reachability probe. Check never returns nil.
type CoreHealth interface {
	Check(ctx context.Context, client *http.Client) *CoreChecks
}

// SMTPSettingsHealth validates stored SMTP settings. It is only consulted
// when the smtpSettings feature is enabled. Check returns a fresh, never-nil
// value each call.
type SMTPSettingsHealth interface {
	Check(ctx context.Context) *SMTPSettingsChecks
}

// SelfRegistrationHealth exposes self-registration plugin state.
type SelfRegistrationHealth interface {
	Enabled() bool
	Provider(ctx context.Context) (string, error)
}

// JWTKeyValidator validates the RS256 key pair used for JWT authentication.
type JWTKeyValidator interface {
	Validate(ctx context.Context) error
}

// FeatureGate answers plugin enablement questions.
type FeatureGate interface {
	IsEnabled(feature string) bool
}

// VersionSource resolves the latest published release version.
type VersionSource interface {
	LatestVersion(ctx context.Context) (string, error)
}
