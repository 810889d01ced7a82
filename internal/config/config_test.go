package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoad_OverlaysPassboltOverApp(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, AppConfigFile, `
http:
  port: 9000
app:
  full_base_url: https://defaults.local
meta:
  robots: "index, follow"
`)
	writeConfigFile(t, dir, PassboltConfigFile, `
app:
  full_base_url: https://passbolt.example.com
security:
  salt: a-long-random-salt
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.App.FullBaseURL != "https://passbolt.example.com" {
		t.Errorf("expected passbolt.yaml to override full_base_url, got %q", cfg.App.FullBaseURL)
	}
	if cfg.HTTP.Port != 9000 {
		t.Errorf("expected port 9000 from app.yaml, got %d", cfg.HTTP.Port)
	}
	if cfg.Meta.Robots != "index, follow" {
		t.Errorf("expected robots from app.yaml to survive overlay, got %q", cfg.Meta.Robots)
	}
	if cfg.Security.Salt != "a-long-random-salt" {
		t.Errorf("expected salt from passbolt.yaml, got %q", cfg.Security.Salt)
	}
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, PassboltConfigFile, `
database:
  host: ${DATASOURCES_DEFAULT_HOST}
  username: ${DATASOURCES_DEFAULT_USERNAME:-passbolt}
`)
	t.Setenv("DATASOURCES_DEFAULT_HOST", "db.internal")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Database.Host != "db.internal" {
		t.Errorf("expected expanded host, got %q", cfg.Database.Host)
	}
	if cfg.Database.Username != "passbolt" {
		t.Errorf("expected default username, got %q", cfg.Database.Username)
	}
}

func TestLoad_MissingFilesFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error for empty config dir: %v", err)
	}
	if cfg.HTTP.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.HTTP.Port)
	}
	if cfg.Database.Port != 3306 {
		t.Errorf("expected default database port 3306, got %d", cfg.Database.Port)
	}
}

func TestLoad_InvalidYaml(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, PassboltConfigFile, "app: [not: valid")

	if _, err := Load(dir); err == nil {
		t.Fatal("expected error for invalid yaml")
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 0},
		Database: DatabaseConfig{Port: 3306},
		Jwt:      JwtConfig{MinKeyBits: 4096},
	}

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_InvalidDatabasePort(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Port: 99999},
		Jwt:      JwtConfig{MinKeyBits: 4096},
	}

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid database port")
	}
}

func TestValidate_WeakJwtKeyBits(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Port: 3306},
		Jwt:      JwtConfig{MinKeyBits: 512},
	}

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for weak jwt key size")
	}
}

func TestApplyDefaults(t *testing.T) {
	t.Setenv("GNUPGHOME", "/var/lib/passbolt/.gnupg")

	cfg := Config{ConfigDir: "config"}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Environment.TmpPath != "tmp" {
		t.Errorf("expected TmpPath=tmp, got %q", cfg.Environment.TmpPath)
	}
	if cfg.Environment.LogPath != "logs" {
		t.Errorf("expected LogPath=logs, got %q", cfg.Environment.LogPath)
	}
	if cfg.Gpg.Home != "/var/lib/passbolt/.gnupg" {
		t.Errorf("expected GNUPGHOME to be picked up, got %q", cfg.Gpg.Home)
	}
	if cfg.Gpg.ServerKey.Public != filepath.Join("config", "gpg", "serverkey.asc") {
		t.Errorf("unexpected server key path %q", cfg.Gpg.ServerKey.Public)
	}
	if cfg.Jwt.KeysPath != filepath.Join("config", "jwt") {
		t.Errorf("unexpected jwt keys path %q", cfg.Jwt.KeysPath)
	}
	if cfg.Jwt.MinKeyBits != 4096 {
		t.Errorf("expected MinKeyBits=4096, got %d", cfg.Jwt.MinKeyBits)
	}
	if cfg.Cache.VersionTTLSec != 86400 {
		t.Errorf("expected VersionTTLSec=86400, got %d", cfg.Cache.VersionTTLSec)
	}
	if cfg.Js.Build != "production" {
		t.Errorf("expected Build=production, got %q", cfg.Js.Build)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:        HTTPConfig{Port: 443, ReadTimeoutSec: 30},
		Environment: EnvironmentConfig{TmpPath: "/var/tmp/passbolt"},
		Gpg:         GpgConfig{Home: "/srv/gnupg"},
		Js:          JsConfig{Build: "development"},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 443 {
		t.Errorf("expected Port=443, got %d", cfg.HTTP.Port)
	}
	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Environment.TmpPath != "/var/tmp/passbolt" {
		t.Errorf("expected TmpPath to survive, got %q", cfg.Environment.TmpPath)
	}
	if cfg.Gpg.Home != "/srv/gnupg" {
		t.Errorf("expected Gpg.Home to survive, got %q", cfg.Gpg.Home)
	}
	if cfg.Js.Build != "development" {
		t.Errorf("expected Build=development, got %q", cfg.Js.Build)
	}
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "db.internal",
		Port:     3307,
		Username: "passbolt",
		Password: "secret",
		Database: "passboltdb",
	}

	want := "passbolt:secret@tcp(db.internal:3307)/passboltdb?charset=utf8mb4&parseTime=True&loc=Local"
	if got := d.DSN(); got != want {
		t.Errorf("unexpected DSN:\ngot:  %q\nwant: %q", got, want)
	}
}
