package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config file names inside the config directory. app.yaml ships with the
// distribution and holds framework defaults; passbolt.yaml is created by the
// administrator and overlays it. Both may legitimately be absent: the
// healthcheck reports on their presence instead of failing at load time.
const (
	AppConfigFile      = "app.yaml"
	PassboltConfigFile = "passbolt.yaml"
)

// Config holds the passbolt API configuration.
type Config struct {
	Debug       bool              `yaml:"debug"`
	HTTP        HTTPConfig        `yaml:"http"`
	App         AppConfig         `yaml:"app"`
	Security    SecurityConfig    `yaml:"security"`
	Environment EnvironmentConfig `yaml:"environment"`
	Database    DatabaseConfig    `yaml:"database"`
	Cache       CacheConfig       `yaml:"cache"`
	Gpg         GpgConfig         `yaml:"gpg"`
	Jwt         JwtConfig         `yaml:"jwt"`
	Email       EmailConfig       `yaml:"email"`
	Meta        MetaConfig        `yaml:"meta"`
	Js          JsConfig          `yaml:"js"`
	Remote      RemoteConfig      `yaml:"remote"`
	Plugins     map[string]bool   `yaml:"plugins"`
	Logging     LoggingConfig     `yaml:"logging"`

	// ConfigDir is the directory the configuration was loaded from.
	ConfigDir string `yaml:"-"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// AppConfig holds application identity settings.
type AppConfig struct {
	FullBaseURL string `yaml:"full_base_url"`
}

// SecurityConfig holds security settings. An empty APIKeys list leaves the
// HTTP API unauthenticated.
type SecurityConfig struct {
	Salt                          string   `yaml:"salt"`
	ApiKeys                       []string `yaml:"api_keys"`
	SslForce                      bool     `yaml:"ssl_force"`
	SmtpSettingsEndpointsDisabled bool     `yaml:"smtp_settings_endpoints_disabled"`
}

// EnvironmentConfig holds runtime environment expectations.
type EnvironmentConfig struct {
	MinGoVersion     string `yaml:"min_go_version"`
	NextMinGoVersion string `yaml:"next_min_go_version"`
	TmpPath          string `yaml:"tmp_path"`
	LogPath          string `yaml:"log_path"`
}

// DatabaseConfig holds MySQL connection settings.
type DatabaseConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	Database     string `yaml:"database"`
	TablesPrefix string `yaml:"tables_prefix"`
}

// DSN builds a go-sql-driver MySQL DSN from the connection settings.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}

// CacheConfig holds Redis/Valkey cache settings. An empty Addrs list disables
// the cache backend.
type CacheConfig struct {
	Addrs         []string `yaml:"addrs"`
	Username      string   `yaml:"username"`
	Password      string   `yaml:"password"`
	DB            int      `yaml:"db"`
	VersionTTLSec int      `yaml:"version_ttl_sec"`
}

// GpgConfig holds OpenPGP server key settings.
type GpgConfig struct {
	Home      string          `yaml:"home"`
	ServerKey ServerKeyConfig `yaml:"server_key"`
}

// ServerKeyConfig holds the server OpenPGP key pair location and identity.
type ServerKeyConfig struct {
	Fingerprint string `yaml:"fingerprint"`
	Public      string `yaml:"public"`
	Private     string `yaml:"private"`
	Passphrase  string `yaml:"passphrase"`
}

// JwtConfig holds JWT authentication key settings.
type JwtConfig struct {
	KeysPath   string `yaml:"keys_path"`
	MinKeyBits int    `yaml:"min_key_bits"`
}

// EmailConfig holds email notification settings. Send is kept free-form: the
// healthcheck inspects the serialized subtree rather than individual toggles.
type EmailConfig struct {
	Send     map[string]any      `yaml:"send"`
	Validate EmailValidateConfig `yaml:"validate"`
}

// EmailValidateConfig holds email validation settings.
type EmailValidateConfig struct {
	Mx bool `yaml:"mx"`
}

// MetaConfig holds HTML meta settings.
type MetaConfig struct {
	Robots string `yaml:"robots"`
}

// JsConfig holds frontend build settings.
type JsConfig struct {
	Build string `yaml:"build"` // production or development
}

// RemoteConfig holds settings for the upstream release lookup.
type RemoteConfig struct {
	ReleasesURL string `yaml:"releases_url"`
	TimeoutSec  int    `yaml:"timeout_sec"`
}

// Load reads configuration from dir: app.yaml first, then passbolt.yaml
// overlaid on top. A .env file in the working directory, if present, is
// exported into the environment before ${VAR} substitution.
func Load(dir string) (Config, error) {
	if fileExists(".env") {
		if err := godotenv.Load(); err != nil {
			return Config{}, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	cfg := Config{ConfigDir: dir}
	for _, name := range []string{AppConfigFile, PassboltConfigFile} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}

		// Substitute env variables of the form ${VAR}
		data = expandEnvVars(data)

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(dir string) Config {
	cfg, err := Load(dir)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// AppConfigPath returns the expected location of app.yaml.
func (c *Config) AppConfigPath() string {
	return filepath.Join(c.ConfigDir, AppConfigFile)
}

// PassboltConfigPath returns the expected location of passbolt.yaml.
func (c *Config) PassboltConfigPath() string {
	return filepath.Join(c.ConfigDir, PassboltConfigFile)
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Environment.MinGoVersion == "" {
		c.Environment.MinGoVersion = "1.25.0"
	}
	if c.Environment.NextMinGoVersion == "" {
		c.Environment.NextMinGoVersion = "1.26.0"
	}
	if c.Environment.TmpPath == "" {
		c.Environment.TmpPath = "tmp"
	}
	if c.Environment.LogPath == "" {
		c.Environment.LogPath = "logs"
	}
	if c.Database.Host == "" {
		c.Database.Host = "localhost"
	}
	if c.Database.Port <= 0 {
		c.Database.Port = 3306
	}
	if c.Database.Database == "" {
		c.Database.Database = "passbolt"
	}
	if c.Cache.VersionTTLSec <= 0 {
		c.Cache.VersionTTLSec = 86400
	}
	if c.Gpg.Home == "" {
		if home := os.Getenv("GNUPGHOME"); home != "" {
			c.Gpg.Home = home
		} else {
			c.Gpg.Home = filepath.Join(os.Getenv("HOME"), ".gnupg")
		}
	}
	if c.Gpg.ServerKey.Public == "" {
		c.Gpg.ServerKey.Public = filepath.Join(c.ConfigDir, "gpg", "serverkey.asc")
	}
	if c.Gpg.ServerKey.Private == "" {
		c.Gpg.ServerKey.Private = filepath.Join(c.ConfigDir, "gpg", "serverkey_private.asc")
	}
	if c.Jwt.KeysPath == "" {
		c.Jwt.KeysPath = filepath.Join(c.ConfigDir, "jwt")
	}
	if c.Jwt.MinKeyBits <= 0 {
		c.Jwt.MinKeyBits = 4096
	}
	if c.Meta.Robots == "" {
		c.Meta.Robots = "noindex, nofollow"
	}
	if c.Js.Build == "" {
		c.Js.Build = "production"
	}
	if c.Remote.ReleasesURL == "" {
		c.Remote.ReleasesURL = "https://api.github.com/repos/passbolt/passbolt_api/releases/latest"
	}
	if c.Remote.TimeoutSec <= 0 {
		c.Remote.TimeoutSec = 10
	}
}

// Validate checks the configuration for structural correctness. Deployment
// problems (missing salt, unreachable database and so on) are deliberately
// not validated here: the healthcheck reports them instead.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("database.port must be between 1 and 65535, got %d", c.Database.Port)
	}
	if c.Jwt.MinKeyBits < 1024 {
		return fmt.Errorf("jwt.min_key_bits must be at least 1024, got %d", c.Jwt.MinKeyBits)
	}
	return nil
}

// FindConfigDir locates the config directory.
func FindConfigDir() string {
	// 1. Explicit override
	if dir := os.Getenv("PASSBOLT_CONFIG_DIR"); dir != "" {
		return dir
	}

	// 2. Check ./config/
	if dirExists("config") {
		return "config"
	}

	// 3. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config"); dirExists(path) {
		return path
	}

	// 4. Fallback to ./config/
	return "config"
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
