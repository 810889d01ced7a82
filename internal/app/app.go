// Package app builds the healthcheck object graph from configuration. The
// API server and the CLI wire the exact same graph, so the composition lives
// here instead of in either main.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nimdassdev/passbolt-api/internal/cache/redis"
	"github.com/nimdassdev/passbolt-api/internal/config"
	"github.com/nimdassdev/passbolt-api/internal/gpg"
	"github.com/nimdassdev/passbolt-api/internal/jwtkeys"
	"github.com/nimdassdev/passbolt-api/internal/metrics"
	"github.com/nimdassdev/passbolt-api/internal/plugins"
	"github.com/nimdassdev/passbolt-api/internal/repository/database"
	"github.com/nimdassdev/passbolt-api/internal/repository/versioncache"
	"github.com/nimdassdev/passbolt-api/internal/ssl"
	"github.com/nimdassdev/passbolt-api/internal/transport/remote"
	"github.com/nimdassdev/passbolt-api/internal/usecase/corechecks"
	"github.com/nimdassdev/passbolt-api/internal/usecase/healthcheck"
	"github.com/nimdassdev/passbolt-api/internal/usecase/selfreg"
	"github.com/nimdassdev/passbolt-api/internal/usecase/smtpsettings"
	"github.com/nimdassdev/passbolt-api/internal/version"
)

// databaseBackend is the slice of the database repository the wiring needs:
// category facts, organization setting reads and the pooled handle lifecycle.
type databaseBackend interface {
	healthcheck.DatabaseHealth
	OrganizationSetting(ctx context.Context, property string) (string, error)
	Close() error
}

// App bundles the wired healthcheck service with the resources it owns.
type App struct {
	Healthcheck *healthcheck.Service
	Plugins     *plugins.Registry

	db    databaseBackend
	cache *redis.Store
}

// Build wires every healthcheck collaborator from cfg. Deployment faults do
// not fail the build: an unreachable database or cache backend downgrades
// that collaborator and the healthcheck reports on it. Build only fails on a
// broken composition, which no deployment fix can repair.
func Build(cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db := buildDatabase(cfg, logger)
	cache := buildCache(cfg, logger)
	registry := plugins.New(cfg.Plugins)

	keyring := gpg.New(gpg.Config{
		Home:        cfg.Gpg.Home,
		Fingerprint: cfg.Gpg.ServerKey.Fingerprint,
		PublicPath:  cfg.Gpg.ServerKey.Public,
		PrivatePath: cfg.Gpg.ServerKey.Private,
		Passphrase:  cfg.Gpg.ServerKey.Passphrase,
	}, logger)

	// Pass a nil interface, not a typed nil pointer, when no cache backend
	// is configured.
	var pinger corechecks.CachePinger
	if cache != nil {
		pinger = cache
	}
	core := corechecks.New(corechecks.Config{
		Debug:       cfg.Debug,
		Salt:        cfg.Security.Salt,
		FullBaseURL: cfg.App.FullBaseURL,
	}, pinger, logger)

	smtp, err := smtpsettings.New(db, keyring, cfg.Security.SmtpSettingsEndpointsDisabled, logger)
	if err != nil {
		return nil, fmt.Errorf("wire smtp settings check: %w", err)
	}

	selfRegistration, err := selfreg.New(registry.IsEnabled(healthcheck.FeatureSelfRegistration), db, logger)
	if err != nil {
		return nil, fmt.Errorf("wire self registration check: %w", err)
	}

	svc, err := healthcheck.New(settingsFromConfig(cfg, registry), healthcheck.Collaborators{
		Database:         db,
		GPG:              keyring,
		SSL:              ssl.NewChecker(cfg.App.FullBaseURL, logger),
		Core:             core,
		SMTPSettings:     smtp,
		SelfRegistration: selfRegistration,
		JWTKeys:          jwtkeys.New(cfg.Jwt.KeysPath, cfg.Jwt.MinKeyBits, logger),
		Gate:             registry,
		Versions:         buildVersionSource(cfg, cache, logger),
	}, logger)
	if err != nil {
		return nil, err
	}

	return &App{
		Healthcheck: svc,
		Plugins:     registry,
		db:          db,
		cache:       cache,
	}, nil
}

// Close releases the pooled database and cache connections.
func (a *App) Close() {
	if a.cache != nil {
		a.cache.Close()
	}
	_ = a.db.Close()
}

// buildDatabase opens the lazy MySQL handle. A handle that cannot even be
// constructed is replaced by one that reports the construction error from
// every query.
func buildDatabase(cfg config.Config, logger *zap.Logger) databaseBackend {
	repo, err := database.New(database.Config{
		DSN:          cfg.Database.DSN(),
		TablesPrefix: cfg.Database.TablesPrefix,
	}, logger)
	if err != nil {
		logger.Warn("database handle unavailable", zap.Error(err))
		return database.NewUnavailable(err, logger)
	}
	return repo
}

// buildCache connects the optional cache backend. Failure to connect means
// running without one, never failing the build.
func buildCache(cfg config.Config, logger *zap.Logger) *redis.Store {
	if len(cfg.Cache.Addrs) == 0 {
		return nil
	}
	store, err := redis.NewStore(redis.Config{
		Addrs:    cfg.Cache.Addrs,
		Username: cfg.Cache.Username,
		Password: cfg.Cache.Password,
		DB:       cfg.Cache.DB,
	})
	if err != nil {
		logger.Warn("cache backend unavailable, running without it", zap.Error(err))
		return nil
	}
	return store
}

// buildVersionSource assembles the release lookup, cached when a cache
// backend is available.
func buildVersionSource(cfg config.Config, cache *redis.Store, logger *zap.Logger) healthcheck.VersionSource {
	fetcher := remote.NewFetcher(remote.Config{
		URL:     cfg.Remote.ReleasesURL,
		Timeout: time.Duration(cfg.Remote.TimeoutSec) * time.Second,
		Logger:  logger,
	})
	if cache == nil {
		return fetcher
	}
	return versioncache.New(fetcher, cache,
		time.Duration(cfg.Cache.VersionTTLSec)*time.Second,
		metrics.VersionCacheTotal, logger)
}

func settingsFromConfig(cfg config.Config, registry *plugins.Registry) healthcheck.Settings {
	return healthcheck.Settings{
		MinGoVersion:       cfg.Environment.MinGoVersion,
		NextMinGoVersion:   cfg.Environment.NextMinGoVersion,
		TmpPath:            cfg.Environment.TmpPath,
		LogPath:            cfg.Environment.LogPath,
		AppConfigPath:      cfg.AppConfigPath(),
		PassboltConfigPath: cfg.PassboltConfigPath(),
		Robots:             cfg.Meta.Robots,
		SslForce:           cfg.Security.SslForce,
		FullBaseURL:        cfg.App.FullBaseURL,
		SeleniumEnabled:    registry.IsEnabled("selenium"),
		EmailValidateMx:    cfg.Email.Validate.Mx,
		JsProd:             cfg.Js.Build == "production",
		EmailSend:          cfg.Email.Send,
		JwtKeysPath:        cfg.Jwt.KeysPath,
		CurrentVersion:     version.AppVersion,
	}
}
