package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port         string        `yaml:"port"`
	DBDSN        string        `yaml:"db_dsn"`
	StaticDir    string        `yaml:"static_dir"`
	TemplatesDir string        `yaml:"templates_dir"`
	LogLevel     string        `yaml:"log_level"`
	LogFormat    string        `yaml:"log_format"`
	JWTSecret    string        `yaml:"jwt_secret"`
	JWTTTL       time.Duration `yaml:"jwt_ttl"`
	CookieSecure bool          `yaml:"cookie_secure"`
}

func defaults() Config {
	return Config{
		Port:         "8080",
		DBDSN:        "indieconverters.db", // sqlite file in project root
		StaticDir:    "./web/static",
		TemplatesDir: "./web/templates",
		LogLevel:     "info",
		LogFormat:    "text",
		JWTSecret:    "dev-only-change-me",
		JWTTTL:       24 * time.Hour,
	}
}

// Load builds the config from defaults, then CONFIG_FILE (YAML) if set,
// then environment variables.
func Load() (Config, error) {
	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.mergeEnv(os.Getenv); err != nil {
		return Config{}, err
	}

	slog.Info("config loaded",
		"port", cfg.Port, "db_dsn", cfg.DBDSN, "log_level", cfg.LogLevel,
		"log_format", cfg.LogFormat, "jwt_ttl", cfg.JWTTTL, "cookie_secure", cfg.CookieSecure)
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	str("PORT", &c.Port)
	str("DB_DSN", &c.DBDSN)
	str("STATIC_DIR", &c.StaticDir)
	str("TEMPLATES_DIR", &c.TemplatesDir)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)
	str("JWT_SECRET", &c.JWTSecret)

	if v := getenv("JWT_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("JWT_TTL: %w", err)
		}
		c.JWTTTL = d
	}
	if v := getenv("COOKIE_SECURE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("COOKIE_SECURE: %w", err)
		}
		c.CookieSecure = b
	}
	return nil
}
