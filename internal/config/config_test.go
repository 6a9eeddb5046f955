package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	p := writeConfig(t, "server:\n  port: 9090\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port: got %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.Address != "0.0.0.0" {
		t.Errorf("address: got %q, want 0.0.0.0", cfg.Server.Address)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("log level: got %q, want info", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("log format: got %q, want json", cfg.Logging.Format)
	}
	if cfg.Auth.TokenDurationHours != 24 {
		t.Errorf("token duration: got %d, want 24", cfg.Auth.TokenDurationHours)
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	p := writeConfig(t, "")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8484 {
		t.Errorf("default port: got %d, want 8484", cfg.Server.Port)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	p := writeConfig(t, "{{invalid yaml}}")
	_, err := Load(p)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoad_NonexistentFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoad_EncryptionEnabled(t *testing.T) {
	p := writeConfig(t, "encryption:\n  enabled: true\n  secret: shared-secret\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Encryption.Enabled || cfg.Encryption.Secret != "shared-secret" {
		t.Errorf("got %+v", cfg.Encryption)
	}
}

func TestLoad_OverrideDefaults(t *testing.T) {
	p := writeConfig(t, "server:\n  address: 127.0.0.1\n  port: 1234\nauth:\n  jwt_secret: s3cr3t\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Address != "127.0.0.1" || cfg.Server.Port != 1234 {
		t.Errorf("got %+v", cfg.Server)
	}
	if cfg.Auth.JWTSecret != "s3cr3t" {
		t.Errorf("got %q", cfg.Auth.JWTSecret)
	}
}

func TestListenAddr(t *testing.T) {
	cfg := Config{Server: ServerConfig{Address: "127.0.0.1", Port: 8080}}
	if got := cfg.ListenAddr(); got != "127.0.0.1:8080" {
		t.Errorf("ListenAddr: got %q, want 127.0.0.1:8080", got)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	p := writeConfig(t, "server:\n  port: 1\n")
	os.Setenv("SYNCDB_PORT", "4242")
	defer os.Unsetenv("SYNCDB_PORT")

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 4242 {
		t.Errorf("got %d, want env override 4242", cfg.Server.Port)
	}
}
