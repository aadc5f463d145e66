package config

import (
	"context"
	"os"
	"testing"
	"time"
)

const (
	testSecret    = "test-secret-key-that-is-at-least-32-characters-long"
	testMasterKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	os.Setenv("JWT_SECRET", testSecret)
	os.Setenv("VAULT_MASTER_KEY", testMasterKey)
	t.Cleanup(func() {
		os.Unsetenv("JWT_SECRET")
		os.Unsetenv("VAULT_MASTER_KEY")
	})
}

func TestLoad(t *testing.T) {
	setRequiredEnv(t)

	ctx := context.Background()
	cfg, err := Load(ctx)
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	// Test default values
	if cfg.Server.Port != "8080" {
		t.Errorf("Expected Server.Port to be '8080', got '%s'", cfg.Server.Port)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Expected Server.Host to be '0.0.0.0', got '%s'", cfg.Server.Host)
	}

	if cfg.Postgres.Host != "localhost" {
		t.Errorf("Expected Postgres.Host to be 'localhost', got '%s'", cfg.Postgres.Host)
	}

	if cfg.Redis.Host != "localhost" {
		t.Errorf("Expected Redis.Host to be 'localhost', got '%s'", cfg.Redis.Host)
	}

	if cfg.JWT.EdgeTokenExpiry.Duration != time.Hour {
		t.Errorf("Expected JWT.EdgeTokenExpiry to be 1h, got %v", cfg.JWT.EdgeTokenExpiry.Duration)
	}

	if cfg.JWT.DomainTokenExpiry.Duration != 10*time.Minute {
		t.Errorf("Expected JWT.DomainTokenExpiry to be 10m, got %v", cfg.JWT.DomainTokenExpiry.Duration)
	}

	if cfg.OAuth.FlowTTL.Duration != 10*time.Minute {
		t.Errorf("Expected OAuth.FlowTTL to be 10m, got %v", cfg.OAuth.FlowTTL.Duration)
	}

	if cfg.Security.BCryptCost != 12 {
		t.Errorf("Expected Security.BCryptCost to be 12, got %d", cfg.Security.BCryptCost)
	}

	if cfg.Env != "development" {
		t.Errorf("Expected Env to be 'development', got '%s'", cfg.Env)
	}

	if cfg.Mode() != ModeDevelopment {
		t.Errorf("Expected Mode to be development, got '%s'", cfg.Mode())
	}

	if cfg.OAuth.GitHub.Enabled() {
		t.Error("Expected GitHub provider to be disabled without credentials")
	}
}

func TestLoadMissingMasterKey(t *testing.T) {
	os.Setenv("JWT_SECRET", testSecret)
	defer os.Unsetenv("JWT_SECRET")

	if _, err := Load(context.Background()); err == nil {
		t.Fatal("Expected error when VAULT_MASTER_KEY is missing")
	}
}

func TestLoadShortMasterKey(t *testing.T) {
	os.Setenv("JWT_SECRET", testSecret)
	os.Setenv("VAULT_MASTER_KEY", "deadbeef")
	defer func() {
		os.Unsetenv("JWT_SECRET")
		os.Unsetenv("VAULT_MASTER_KEY")
	}()

	if _, err := Load(context.Background()); err == nil {
		t.Fatal("Expected error for a master key shorter than 32 bytes")
	}
}

func TestLoadBypassRejectedInProduction(t *testing.T) {
	setRequiredEnv(t)
	os.Setenv("ENV", "production")
	os.Setenv("BYPASS_AUTH", "true")
	defer func() {
		os.Unsetenv("ENV")
		os.Unsetenv("BYPASS_AUTH")
	}()

	if _, err := Load(context.Background()); err == nil {
		t.Fatal("Expected error when BYPASS_AUTH is set in production")
	}
}

func TestLoadBypassRejectedWithStrictAuth(t *testing.T) {
	setRequiredEnv(t)
	os.Setenv("REQUIRE_STRICT_AUTH", "true")
	os.Setenv("BYPASS_AUTH", "true")
	defer func() {
		os.Unsetenv("REQUIRE_STRICT_AUTH")
		os.Unsetenv("BYPASS_AUTH")
	}()

	if _, err := Load(context.Background()); err == nil {
		t.Fatal("Expected error when BYPASS_AUTH is combined with REQUIRE_STRICT_AUTH")
	}
}

func TestModeStrictAuthForcesProduction(t *testing.T) {
	cfg := &Config{Env: "development"}
	cfg.Security.RequireStrictAuth = true

	if cfg.Mode() != ModeProduction {
		t.Errorf("Expected REQUIRE_STRICT_AUTH to force production mode, got '%s'", cfg.Mode())
	}
}

func TestLoadWithCustomValues(t *testing.T) {
	setRequiredEnv(t)
	os.Setenv("SERVER_PORT", "9090")
	os.Setenv("JWT_EDGE_TOKEN_EXPIRY", "30m")
	os.Setenv("OAUTH_GITHUB_CLIENT_ID", "client-id")
	os.Setenv("OAUTH_GITHUB_CLIENT_SECRET", "client-secret")
	defer func() {
		os.Unsetenv("SERVER_PORT")
		os.Unsetenv("JWT_EDGE_TOKEN_EXPIRY")
		os.Unsetenv("OAUTH_GITHUB_CLIENT_ID")
		os.Unsetenv("OAUTH_GITHUB_CLIENT_SECRET")
	}()

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Expected Server.Port to be '9090', got '%s'", cfg.Server.Port)
	}

	if cfg.JWT.EdgeTokenExpiry.Duration != 30*time.Minute {
		t.Errorf("Expected JWT.EdgeTokenExpiry to be 30m, got %v", cfg.JWT.EdgeTokenExpiry.Duration)
	}

	if !cfg.OAuth.GitHub.Enabled() {
		t.Error("Expected GitHub provider to be enabled")
	}
}
