package healthcheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	goversion "github.com/hashicorp/go-version"
	"go.uber.org/zap"
)

const versionUndefined = "undefined"

// Settings enumerates the configuration the healthchecks read. It is built
// once at wiring time so probes never consult ambient configuration.
type Settings struct {
	MinGoVersion       string
	NextMinGoVersion   string
	TmpPath            string
	LogPath            string
	AppConfigPath      string
	PassboltConfigPath string
	Robots             string
	SslForce           bool
	FullBaseURL        string
	SeleniumEnabled    bool
	EmailValidateMx    bool
	JsProd             bool
	EmailSend          map[string]any
	JwtKeysPath        string
	CurrentVersion     string
}

// Collaborators groups the category checkers the service drives.
type Collaborators struct {
	Database         DatabaseHealth
	GPG              GPGHealth
	SSL              SSLHealth
	Core             CoreHealth
	SMTPSettings     SMTPSettingsHealth
	SelfRegistration SelfRegistrationHealth
	JWTKeys          JWTKeyValidator
	Gate             FeatureGate
	Versions         VersionSource
}

// Service runs the passbolt healthchecks and accumulates their facts into a
// Report. Category methods are additive: each merges its own category into
// the report it is given and leaves every other category untouched, so they
// can be invoked individually, repeatedly, and in any order.
type Service struct {
	settings       Settings
	collab         Collaborators
	minVersion     *goversion.Version
	nextMinVersion *goversion.Version
	logger         *zap.Logger
}

// New creates a Service. It fails when a collaborator is missing or a
// configured minimum version does not parse; both point at a broken build
// rather than a degraded deployment.
func New(settings Settings, collab Collaborators, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if collab.Database == nil || collab.GPG == nil || collab.SSL == nil ||
		collab.Core == nil || collab.SMTPSettings == nil ||
		collab.SelfRegistration == nil || collab.JWTKeys == nil ||
		collab.Gate == nil || collab.Versions == nil {
		return nil, errors.New("healthcheck: all collaborators are required")
	}

	minVersion, err := goversion.NewVersion(settings.MinGoVersion)
	if err != nil {
		return nil, fmt.Errorf("parse min go version %q: %w", settings.MinGoVersion, err)
	}
	nextMinVersion, err := goversion.NewVersion(settings.NextMinGoVersion)
	if err != nil {
		return nil, fmt.Errorf("parse next min go version %q: %w", settings.NextMinGoVersion, err)
	}

	return &Service{
		settings:       settings,
		collab:         collab,
		minVersion:     minVersion,
		nextMinVersion: nextMinVersion,
		logger:         logger,
	}, nil
}

// RunAll runs every healthcheck category in a fixed order and returns the
// accumulated report. client, when non-nil, is used by probes that reach out
// over HTTP. A panicking probe is absorbed: its category is recorded with
// every fact negative instead of aborting the run.
func (s *Service) RunAll(ctx context.Context, report Report, client *http.Client) Report {
	steps := []struct {
		name     string
		run      func(Report) Report
		fallback Report
	}{
		{"environment", func(r Report) Report { return s.Environment(ctx, r) }, Report{Environment: &EnvironmentChecks{}}},
		{"configFile", func(r Report) Report { return s.ConfigFiles(ctx, r) }, Report{ConfigFile: &ConfigFileChecks{}}},
		{"core", func(r Report) Report { return s.coreWith(ctx, r, client) }, Report{Core: &CoreChecks{}}},
		{"ssl", func(r Report) Report { return s.SSL(ctx, r) }, Report{SSL: &SSLChecks{}}},
		{"database", func(r Report) Report { return s.Database(ctx, r) }, Report{Database: &DatabaseChecks{}}},
		{"gpg", func(r Report) Report { return s.GPG(ctx, r) }, Report{GPG: &GPGChecks{}}},
		{"application", func(r Report) Report { return s.Application(ctx, r) }, Report{Application: &ApplicationChecks{}}},
		{"smtpSettings", func(r Report) Report { return s.SMTPSettings(ctx, r) }, Report{SMTPSettings: &SMTPSettingsChecks{Source: SMTPSourceUndefined}}},
	}

	for _, step := range steps {
		report = s.runStep(step.name, report, step.run, step.fallback)
	}
	return report
}

// runStep shields the run from a panicking probe: the category is merged in
// with zero-valued facts and the panic is logged.
func (s *Service) runStep(name string, report Report, run func(Report) Report, fallback Report) (out Report) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("healthcheck category panicked",
				zap.String("category", name),
				zap.Any("panic", r))
			out = report.Merge(fallback)
		}
	}()
	return run(report)
}

// ConfigFiles merges configuration file presence facts.
func (s *Service) ConfigFiles(_ context.Context, report Report) Report {
	checks := &ConfigFileChecks{
		App:      fileExists(s.settings.AppConfigPath),
		Passbolt: fileExists(s.settings.PassboltConfigPath),
	}
	return report.Merge(Report{ConfigFile: checks})
}

// Core merges core runtime facts.
func (s *Service) Core(ctx context.Context, report Report) Report {
	return s.coreWith(ctx, report, nil)
}

func (s *Service) coreWith(ctx context.Context, report Report, client *http.Client) Report {
	checks := s.collab.Core.Check(ctx, client)
	if checks == nil {
		checks = &CoreChecks{}
	}
	return report.Merge(Report{Core: checks})
}

// SSL merges TLS peer facts.
func (s *Service) SSL(ctx context.Context, report Report) Report {
	checks := s.collab.SSL.Check(ctx)
	if checks == nil {
		checks = &SSLChecks{}
	}
	return report.Merge(Report{SSL: checks})
}

// Database merges database connectivity and contents facts.
func (s *Service) Database(ctx context.Context, report Report) Report {
	checks := s.collab.Database.Check(ctx)
	if checks == nil {
		checks = &DatabaseChecks{}
	}
	return report.Merge(Report{Database: checks})
}

// GPG merges server key facts.
func (s *Service) GPG(ctx context.Context, report Report) Report {
	checks := s.collab.GPG.Check(ctx)
	if checks == nil {
		checks = &GPGChecks{}
	}
	return report.Merge(Report{GPG: checks})
}

// Application merges application level facts. The admin account check
// depends on database connectivity, so the database category is refreshed
// and merged first; when the connection is down the admin query is never
// attempted.
func (s *Service) Application(ctx context.Context, report Report) Report {
	checks := &ApplicationChecks{}
	checks.Info.CurrentVersion = s.settings.CurrentVersion
	checks.Info.RemoteVersion = versionUndefined

	if remote, err := s.collab.Versions.LatestVersion(ctx); err == nil {
		checks.Info.RemoteVersion = remote
		if upToDate, err := notBehind(s.settings.CurrentVersion, remote); err == nil {
			checks.LatestVersion = &upToDate
		}
	} else {
		s.logger.Debug("latest version lookup failed", zap.Error(err))
	}

	if upToDate, err := s.collab.Database.SchemaUpToDate(ctx); err == nil {
		checks.Schema = upToDate
	} else {
		s.logger.Debug("schema check failed", zap.Error(err))
	}

	checks.RobotsIndexDisabled = strings.Contains(s.settings.Robots, "noindex")
	checks.SslForce = s.settings.SslForce
	checks.SslFullBaseURL = strings.HasPrefix(s.settings.FullBaseURL, "https")
	checks.SeleniumDisabled = !s.settings.SeleniumEnabled
	checks.HostAvailabilityCheckEnabled = s.settings.EmailValidateMx
	checks.JsProd = s.settings.JsProd
	checks.EmailNotificationEnabled = s.emailNotificationEnabled()

	enabled := s.collab.SelfRegistration.Enabled()
	checks.RegistrationClosed.IsSelfRegistrationPluginEnabled = enabled
	if enabled {
		if provider, err := s.collab.SelfRegistration.Provider(ctx); err == nil && provider != "" {
			checks.RegistrationClosed.SelfRegistrationProvider = &provider
		}
	}

	report = s.Database(ctx, report)
	if report.Database != nil && report.Database.Connect {
		if n, err := s.collab.Database.CountAdmins(ctx); err == nil {
			checks.AdminCount = n > 0
		} else {
			s.logger.Debug("admin count failed", zap.Error(err))
		}
	}

	return report.Merge(Report{Application: checks})
}

// JWT merges JWT authentication facts. Directory writability is recorded
// whether or not the feature is enabled; key validation only runs when it is.
func (s *Service) JWT(ctx context.Context, report Report) Report {
	checks := &JWTChecks{
		IsEnabled:   s.collab.Gate.IsEnabled(FeatureJwtAuthentication),
		JwtWritable: writable(s.settings.JwtKeysPath),
	}
	if checks.IsEnabled {
		checks.KeyPairValid = s.validateJWTKeys(ctx) == nil
	}
	return report.Merge(Report{JWT: checks})
}

func (s *Service) validateJWTKeys(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("jwt key validation panicked: %v", r)
		}
	}()
	return s.collab.JWTKeys.Validate(ctx)
}

// SMTPSettings merges SMTP settings facts. When the smtpSettings feature is
// disabled the stored settings are not consulted at all.
func (s *Service) SMTPSettings(ctx context.Context, report Report) Report {
	if !s.collab.Gate.IsEnabled(FeatureSmtpSettings) {
		return report.Merge(Report{SMTPSettings: &SMTPSettingsChecks{Source: SMTPSourceUndefined}})
	}
	checks := s.collab.SMTPSettings.Check(ctx)
	if checks == nil {
		checks = &SMTPSettingsChecks{Source: SMTPSourceUndefined}
	}
	checks.IsEnabled = true
	return report.Merge(Report{SMTPSettings: checks})
}

// emailNotificationEnabled reports whether every notification toggle is on.
// The serialized subtree must not contain the token "false" anywhere, which
// also trips on string values that happen to spell it out.
func (s *Service) emailNotificationEnabled() bool {
	data, err := json.Marshal(s.settings.EmailSend)
	if err != nil {
		return false
	}
	return !strings.Contains(string(data), "false")
}

// notBehind compares the running version against the latest release.
func notBehind(current, remote string) (bool, error) {
	cv, err := goversion.NewVersion(current)
	if err != nil {
		return false, err
	}
	rv, err := goversion.NewVersion(remote)
	if err != nil {
		return false, err
	}
	return cv.GreaterThanOrEqual(rv), nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
