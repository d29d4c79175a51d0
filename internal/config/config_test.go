package config

import (
	"testing"
	"time"
)

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := Load()
	if err == nil {
		t.Error("expected error when DATABASE_URL is missing")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/renalwatch_test")
	t.Setenv("ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if cfg.DBMaxConns != 20 {
		t.Errorf("expected default max conns 20, got %d", cfg.DBMaxConns)
	}
	if cfg.SMTPPort != 587 {
		t.Errorf("expected default SMTP port 587, got %d", cfg.SMTPPort)
	}
	if cfg.EscalationTick() != time.Minute {
		t.Errorf("expected default escalation tick 1m, got %s", cfg.EscalationTick())
	}
	if !cfg.IsDev() {
		t.Error("expected IsDev true for ENV=development")
	}
}

func TestValidate_ProductionRequiresAuthIssuer(t *testing.T) {
	cfg := &Config{Env: "production", SMTPHost: "smtp.example.org", SMTPPort: 587}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error without AUTH_ISSUER in production")
	}

	cfg.AuthIssuer = "https://auth.example.org"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_ProductionRequiresSMTPHost(t *testing.T) {
	cfg := &Config{Env: "production", AuthIssuer: "https://auth.example.org", SMTPPort: 587}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error without SMTP_HOST in production")
	}
}

func TestValidate_BadSMTPPort(t *testing.T) {
	cfg := &Config{Env: "development", SMTPHost: "localhost", SMTPPort: -1}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for invalid SMTP port")
	}
}

func TestEscalationTick_Configured(t *testing.T) {
	cfg := &Config{EscalationTickSeconds: 30}
	if cfg.EscalationTick() != 30*time.Second {
		t.Errorf("expected 30s, got %s", cfg.EscalationTick())
	}
}
