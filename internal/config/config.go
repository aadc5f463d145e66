package config

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

// Mode is the effective runtime environment of the process. It is resolved
// once at startup and passed explicitly to the components that branch on it.
type Mode string

const (
	ModeDevelopment Mode = "development"
	ModeProduction  Mode = "production"
)

type Config struct {
	Server   ServerConfig   `env:",prefix=SERVER_"`
	Postgres PostgresConfig `env:",prefix=POSTGRES_"`
	Redis    RedisConfig    `env:",prefix=REDIS_"`
	JWT      JWTConfig      `env:",prefix=JWT_"`
	Vault    VaultConfig    `env:",prefix=VAULT_"`
	OAuth    OAuthConfig    `env:",prefix=OAUTH_"`
	Security SecurityConfig `env:",prefix="`
	CORS     CORSConfig     `env:",prefix=CORS_"`
	Env      string         `env:"ENV,default=development"`
}

type ServerConfig struct {
	Port         string   `env:"PORT,default=8080"`
	Host         string   `env:"HOST,default=0.0.0.0"`
	ReadTimeout  Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout Duration `env:"WRITE_TIMEOUT,default=15s"`
}

type PostgresConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=5432"`
	User     string `env:"USER,default=bridge_service"`
	Password string `env:"PASSWORD,default=bridge_service_password"`
	DBName   string `env:"DB,default=bridge_service_db"`
	SSLMode  string `env:"SSLMODE,default=disable"`
}

type RedisConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=6379"`
	Password string `env:"PASSWORD,default="`
	DB       int    `env:"DB,default=0"`
}

type JWTConfig struct {
	Secret            string   `env:"SECRET,required"`
	EdgeTokenExpiry   Duration `env:"EDGE_TOKEN_EXPIRY,default=1h"`
	DomainTokenExpiry Duration `env:"DOMAIN_TOKEN_EXPIRY,default=10m"`
}

type VaultConfig struct {
	// MasterKey is the hex-encoded 256-bit key used to encrypt stored
	// provider credentials. It is process-wide configuration, never
	// derived from request data.
	MasterKey string `env:"MASTER_KEY,required"`
}

type OAuthConfig struct {
	RedirectBaseURL string         `env:"REDIRECT_BASE_URL,default=http://localhost:8080"`
	FlowTTL         Duration       `env:"FLOW_TTL,default=10m"`
	GitHub          ProviderConfig `env:",prefix=GITHUB_"`
	Google          ProviderConfig `env:",prefix=GOOGLE_"`
}

type ProviderConfig struct {
	ClientID     string `env:"CLIENT_ID,default="`
	ClientSecret string `env:"CLIENT_SECRET,default="`
}

// Enabled reports whether the provider has credentials configured.
func (p ProviderConfig) Enabled() bool {
	return p.ClientID != "" && p.ClientSecret != ""
}

type SecurityConfig struct {
	// RequireStrictAuth forces production auth behavior regardless of ENV.
	RequireStrictAuth bool `env:"REQUIRE_STRICT_AUTH,default=false"`
	// BypassAuth relaxes the edge gate for local development. It is only
	// honored outside production; Load rejects the combination outright.
	BypassAuth        bool     `env:"BYPASS_AUTH,default=false"`
	BCryptCost        int      `env:"BCRYPT_COST,default=12"`
	RateLimitRequests int      `env:"RATE_LIMIT_REQUESTS,default=10"`
	RateLimitWindow   Duration `env:"RATE_LIMIT_WINDOW,default=1m"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`
	AllowedMethods []string `env:"ALLOWED_METHODS,default=GET,POST,PUT,PATCH,DELETE,OPTIONS"`
	AllowedHeaders []string `env:"ALLOWED_HEADERS,default=Content-Type,Authorization"`
}

// DSN returns PostgreSQL connection string
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// Address returns Redis connection address
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// Key decodes the master key into raw bytes.
func (v VaultConfig) Key() ([]byte, error) {
	key, err := hex.DecodeString(v.MasterKey)
	if err != nil {
		return nil, fmt.Errorf("VAULT_MASTER_KEY is not valid hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("VAULT_MASTER_KEY must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

// Mode returns the effective environment mode. ENV=production and
// REQUIRE_STRICT_AUTH both force production behavior.
func (c *Config) Mode() Mode {
	if c.Env == "production" || c.Security.RequireStrictAuth {
		return ModeProduction
	}
	return ModeDevelopment
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	var config Config

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Validate JWT secret length
	if len(config.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	if _, err := config.Vault.Key(); err != nil {
		return nil, err
	}

	if config.Security.BypassAuth && config.Mode() == ModeProduction {
		return nil, fmt.Errorf("BYPASS_AUTH cannot be enabled in production")
	}

	return &config, nil
}

// LoadWithDefaults loads configuration with default context
func LoadWithDefaults() (*Config, error) {
	return Load(context.Background())
}
