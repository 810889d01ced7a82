// Package database provides the MySQL accessor behind the healthcheck: the
// database category facts plus the queries other categories depend on.
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/nimdassdev/passbolt-api/internal/domain"
	"github.com/nimdassdev/passbolt-api/internal/usecase/healthcheck"
)

// Roles seeded by the install; their absence means the instance was never
// provisioned.
var requiredRoles = []string{"guest", "user", "admin", "root"}

// migrationRegister lists every migration this build expects to find applied,
// in order.
var migrationRegister = []string{
	"20230901000001_create_roles",
	"20230901000002_create_users",
	"20230901000003_create_gpgkeys",
	"20230901000004_create_organization_settings",
	"20240115000001_add_users_disabled",
	"20250301000001_create_smtp_settings",
}

// Config holds connection settings.
type Config struct {
	DSN          string
	TablesPrefix string
}

// Repo wraps a lazily connected MySQL handle. Construction never dials: a
// down database is something the healthcheck reports, not a fatal error.
type Repo struct {
	db     *gorm.DB
	prefix string
	logger *zap.Logger
}

// New creates a Repo.
func New(cfg Config, logger *zap.Logger) (*Repo, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       cfg.DSN,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger:               gormlogger.Default.LogMode(gormlogger.Silent),
		DisableAutomaticPing: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap sql db: %w", err)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)

	return &Repo{db: db, prefix: cfg.TablesPrefix, logger: logger}, nil
}

// Close releases the connection pool.
func (r *Repo) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Check reports the database category facts. Every query failure is absorbed
// into negative facts.
func (r *Repo) Check(ctx context.Context) *healthcheck.DatabaseChecks {
	checks := &healthcheck.DatabaseChecks{TablesPrefix: r.prefix != ""}

	sqlDB, err := r.db.DB()
	if err != nil {
		r.logger.Debug("database handle unavailable", zap.Error(err))
		return checks
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		r.logger.Debug("database unreachable", zap.Error(err))
		return checks
	}
	checks.Connect = true

	var version string
	if err := r.db.WithContext(ctx).Raw("SELECT VERSION()").Scan(&version).Error; err == nil && version != "" {
		checks.SupportedBackend = true
	}

	if tables, err := r.db.WithContext(ctx).Migrator().GetTables(); err == nil {
		checks.Info.TablesCount = len(tables)
		checks.TablesCount = len(tables) > 0
	}

	checks.DefaultContent = r.defaultRolesPresent(ctx)

	return checks
}

// CountAdmins counts active, non-deleted users holding the admin role.
func (r *Repo) CountAdmins(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Table(r.table("users")+" AS users").
		Joins("JOIN "+r.table("roles")+" AS roles ON roles.id = users.role_id").
		Where("roles.name = ?", "admin").
		Where("users.active = ? AND users.deleted = ?", true, false).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return n, nil
}

// SchemaUpToDate reports whether every registered migration has been applied.
func (r *Repo) SchemaUpToDate(ctx context.Context) (bool, error) {
	var applied []string
	err := r.db.WithContext(ctx).
		Table(r.table("schema_migrations")).
		Pluck("version", &applied).Error
	if err != nil {
		return false, fmt.Errorf("read schema migrations: %w", err)
	}
	return len(missingMigrations(applied)) == 0, nil
}

// OrganizationSetting returns the raw stored value for a setting property.
func (r *Repo) OrganizationSetting(ctx context.Context, property string) (string, error) {
	var row struct{ Value string }
	err := r.db.WithContext(ctx).
		Table(r.table("organization_settings")).
		Select("value").
		Where("property = ?", property).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("%w: %s", domain.ErrSettingNotFound, property)
	}
	if err != nil {
		return "", fmt.Errorf("read organization setting %s: %w", property, err)
	}
	return row.Value, nil
}

func (r *Repo) defaultRolesPresent(ctx context.Context) bool {
	var names []string
	if err := r.db.WithContext(ctx).Table(r.table("roles")).Pluck("name", &names).Error; err != nil {
		r.logger.Debug("roles table unreadable", zap.Error(err))
		return false
	}
	present := make(map[string]bool, len(names))
	for _, name := range names {
		present[name] = true
	}
	for _, role := range requiredRoles {
		if !present[role] {
			return false
		}
	}
	return true
}

func (r *Repo) table(name string) string {
	return r.prefix + name
}

// missingMigrations returns the registered migrations absent from applied,
// preserving register order.
func missingMigrations(applied []string) []string {
	seen := make(map[string]bool, len(applied))
	for _, version := range applied {
		seen[version] = true
	}
	var missing []string
	for _, version := range migrationRegister {
		if !seen[version] {
			missing = append(missing, version)
		}
	}
	return missing
}
