package config

import (
	"testing"
	"time"

	"gorm.io/gorm/logger"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DB.DBName != "inventory_service" {
		t.Errorf("expected default db name inventory_service, got %s", cfg.DB.DBName)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Metrics.Prefix != "inventory" {
		t.Errorf("expected default metrics prefix inventory, got %s", cfg.Metrics.Prefix)
	}
	if cfg.DB.ConnMaxLifetime != time.Hour {
		t.Errorf("expected default conn lifetime 1h, got %s", cfg.DB.ConnMaxLifetime)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_MAX_OPEN_CONNS", "7")
	t.Setenv("DB_CONN_MAX_LIFETIME", "30m")
	t.Setenv("DB_LOG_LEVEL", "silent")
	t.Setenv("SERVER_PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DB.Host != "db.internal" {
		t.Errorf("expected host db.internal, got %s", cfg.DB.Host)
	}
	if cfg.DB.MaxOpenConns != 7 {
		t.Errorf("expected 7 open conns, got %d", cfg.DB.MaxOpenConns)
	}
	if cfg.DB.ConnMaxLifetime != 30*time.Minute {
		t.Errorf("expected 30m lifetime, got %s", cfg.DB.ConnMaxLifetime)
	}
	if cfg.DB.LogLevel != logger.Silent {
		t.Errorf("expected silent gorm log level, got %v", cfg.DB.LogLevel)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
}

func TestGetDSN(t *testing.T) {
	c := DBConfig{Host: "h", Port: "5432", User: "u", Password: "p", DBName: "d", SSLMode: "disable"}
	want := "host=h port=5432 user=u password=p dbname=d sslmode=disable"
	if got := c.GetDSN(); got != want {
		t.Errorf("dsn mismatch:\n got  %s\n want %s", got, want)
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("TEST_INT", "not-a-number")
	if got := getEnvAsInt("TEST_INT", 42); got != 42 {
		t.Errorf("bad int should fall back to default, got %d", got)
	}
	t.Setenv("TEST_DURATION", "bogus")
	if got := getEnvAsDuration("TEST_DURATION", time.Minute); got != time.Minute {
		t.Errorf("bad duration should fall back to default, got %s", got)
	}
	if got := getEnvAsLogLevel("TEST_UNSET_LEVEL", logger.Warn); got != logger.Warn {
		t.Errorf("unset level should fall back to default, got %v", got)
	}
}
