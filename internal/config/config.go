package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the vault.
type Config struct {
	AppName             string
	AppEnv              string
	AppPort             string
	DatabaseDriver      string
	DatabaseURL         string
	RedisURL            string
	SettingsCacheKey    string
	JWTSecret           string
	JWTTTL              time.Duration
	BackupEnabled       bool
	BackupInterval      time.Duration
	BackupRetention     int
	BackupTimeout       time.Duration
	NATSURL             string
	NATSSubject         string
	SeedAdminEmail      string
	SeedAdminPassword   string
	SeedTeacherEmail    string
	SeedTeacherPassword string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("VAULT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Counsel Vault")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.url", "file:counsel-vault.db")
	v.SetDefault("settings.cache_key", "vault:settings")
	v.SetDefault("jwt.ttl", "12h")
	v.SetDefault("backup.enabled", true)
	v.SetDefault("backup.interval", "24h")
	v.SetDefault("backup.retention", 7)
	v.SetDefault("backup.timeout", "2m")
	v.SetDefault("nats.subject", "vault")
	v.SetDefault("seed.admin_email", "admin@school.local")
	v.SetDefault("seed.admin_password", "admin123")
	v.SetDefault("seed.teacher_email", "teacher@school.local")
	v.SetDefault("seed.teacher_password", "teacher123")

	jwtTTL, err := parseDuration(v, "jwt.ttl", "12h")
	if err != nil {
		return Config{}, err
	}

	interval, err := parseDuration(v, "backup.interval", "24h")
	if err != nil {
		return Config{}, err
	}

	timeout, err := parseDuration(v, "backup.timeout", "2m")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:             v.GetString("app.name"),
		AppEnv:              v.GetString("app.env"),
		AppPort:             v.GetString("app.port"),
		DatabaseDriver:      strings.ToLower(v.GetString("database.driver")),
		DatabaseURL:         v.GetString("database.url"),
		RedisURL:            v.GetString("redis.url"),
		SettingsCacheKey:    v.GetString("settings.cache_key"),
		JWTSecret:           v.GetString("jwt.secret"),
		JWTTTL:              jwtTTL,
		BackupEnabled:       v.GetBool("backup.enabled"),
		BackupInterval:      interval,
		BackupRetention:     v.GetInt("backup.retention"),
		BackupTimeout:       timeout,
		NATSURL:             v.GetString("nats.url"),
		NATSSubject:         v.GetString("nats.subject"),
		SeedAdminEmail:      v.GetString("seed.admin_email"),
		SeedAdminPassword:   v.GetString("seed.admin_password"),
		SeedTeacherEmail:    v.GetString("seed.teacher_email"),
		SeedTeacherPassword: v.GetString("seed.teacher_password"),
	}

	if cfg.DatabaseDriver != "sqlite" && cfg.DatabaseDriver != "postgres" {
		return Config{}, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	if cfg.BackupRetention <= 0 {
		return Config{}, fmt.Errorf("backup retention must be positive, got %d", cfg.BackupRetention)
	}

	if cfg.BackupInterval <= 0 {
		return Config{}, fmt.Errorf("backup interval must be positive")
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key, fallback string) (time.Duration, error) {
	raw := v.GetString(key)
	if raw == "" {
		raw = fallback
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	return parsed, nil
}
