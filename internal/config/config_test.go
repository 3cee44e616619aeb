package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesYAMLEnvAndDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9000"
  site-url: "https://tablehouse.example/"
database:
  dsn: "file:from-yaml.db"
jwt:
  secret: "yaml-secret"
  expiry: 2h
mail:
  driver: SMTP
  smtp:
    host: "smtp.example.com"
`)
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load(AppConfig{ConfigPath: path, EnvFile: ""})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":9000" || cfg.Server.SiteURL != "https://tablehouse.example" {
		t.Fatalf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.JWT.Secret != "env-secret" || cfg.JWT.Expiry != 2*time.Hour || cfg.JWT.StaffExpiry != defaultStaffTTL {
		t.Fatalf("unexpected jwt config: %+v", cfg.JWT)
	}
	if cfg.Mail.Driver != MailDriverSMTP || cfg.Mail.SMTP.Port != 587 {
		t.Fatalf("unexpected mail config: %+v", cfg.Mail)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected cors origins: %v", cfg.Server.CORSOrigins)
	}
	if cfg.Database.DSN != "file:from-yaml.db" {
		t.Fatalf("unexpected dsn: %s", cfg.Database.DSN)
	}
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")
	cfg, err := Load(AppConfig{ConfigPath: path})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Mail.Driver != MailDriverLog || cfg.Stripe.Currency != defaultCurrency {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestValidateRejectsIncompleteMailDriver(t *testing.T) {
	path := writeConfig(t, "mail:\n  driver: sns\n")
	if _, err := Load(AppConfig{ConfigPath: path}); err == nil {
		t.Fatalf("expected sns without topic to fail")
	}
	path = writeConfig(t, "mail:\n  driver: pigeon\n")
	if _, err := Load(AppConfig{ConfigPath: path}); err == nil {
		t.Fatalf("expected unknown driver to fail")
	}
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/etc/eventdesk.yaml")
	if got := ResolveConfigPath(" custom.yaml "); got != "custom.yaml" {
		t.Fatalf("expected flag to win, got %s", got)
	}
	if got := ResolveConfigPath(""); got != "/etc/eventdesk.yaml" {
		t.Fatalf("expected env path, got %s", got)
	}
}
