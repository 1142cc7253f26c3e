// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Environment variable names recognised by LoadFromEnv. The AWS_* names
// match the conventional AWS SDK variables so existing credentials work
// without translation.
const (
	EnvProfile     = "AWS_PROFILE"
	EnvAccessKey   = "AWS_ACCESS_KEY_ID"
	EnvSecretKey   = "AWS_SECRET_ACCESS_KEY"
	EnvEndpointURL = "AWS_ENDPOINT_URL"
	EnvRegion      = "AWS_DEFAULT_REGION"
)

// DefaultRegion is used when AWS_DEFAULT_REGION is unset.
const DefaultRegion = "us-east-1"

// Config holds connection parameters for the storage shim and settings for
// the dashboard server. Immutable after construction.
type Config struct {
	// Storage endpoint configuration.
	Profile     string // named AWS profile ("" = none)
	AccessKey   string // explicit access key ID ("" = resolve via profile/env chain)
	SecretKey   string // explicit secret access key
	EndpointURL string // S3-compatible endpoint override ("" = AWS default)
	Region      string // defaults to DefaultRegion

	// TLS verification: VerifySSL=false disables certificate checks;
	// CABundle optionally points at a PEM bundle to trust instead.
	VerifySSL bool
	CABundle  string

	// Emulation: when LocalS3 is set, s3:// URIs are redirected into the
	// directory tree rooted at LocalS3Dir (default: user home directory).
	LocalS3    bool
	LocalS3Dir string

	// Dashboard server settings.
	DatasetURI          string // URI of the table the dashboard explores
	ListenAddr          string // HTTP listen address (default ":8080")
	LogLevel            string // debug, info, warn, error (default "info")
	RateLimitRPS        float64
	RateLimitBurst      int
	CORSAllowedOrigins  []string
	DashboardConfigPath string // optional YAML dashboard config

	// Warnings collects non-fatal notes generated during loading. They are
	// logged by the caller once the logger exists.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// HasStaticCredentials reports whether explicit credentials were supplied.
// Completeness of the pair is left to the SDK's own validation.
func (c *Config) HasStaticCredentials() bool {
	return c.AccessKey != "" || c.SecretKey != ""
}

// EmulationRoot resolves LocalS3Dir to an absolute path, expanding a leading
// "~" to the user home directory.
func (c *Config) EmulationRoot() (string, error) {
	dir := c.LocalS3Dir
	if dir == "" {
		dir = "~"
	}
	if dir == "~" || strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		dir = filepath.Join(home, strings.TrimPrefix(dir, "~"))
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve emulation root %q: %w", dir, err)
	}
	return abs, nil
}

// LoadFromEnv loads configuration from environment variables. All storage
// variables are optional; the default credential chain applies when none are
// set.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Profile:             os.Getenv(EnvProfile),
		AccessKey:           os.Getenv(EnvAccessKey),
		SecretKey:           os.Getenv(EnvSecretKey),
		EndpointURL:         os.Getenv(EnvEndpointURL),
		Region:              os.Getenv(EnvRegion),
		VerifySSL:           true,
		LocalS3Dir:          os.Getenv("LOCAL_S3_DIR"),
		DatasetURI:          os.Getenv("DATASET_URI"),
		ListenAddr:          os.Getenv("LISTEN_ADDR"),
		LogLevel:            os.Getenv("LOG_LEVEL"),
		DashboardConfigPath: os.Getenv("DASHBOARD_CONFIG"),
	}

	if v := os.Getenv("LOCAL_S3"); v != "" {
		cfg.LocalS3 = parseBool(v, false)
	}

	// VERIFY_SSL accepts a boolean or a path to a CA bundle.
	if v := os.Getenv("VERIFY_SSL"); v != "" {
		switch strings.ToLower(v) {
		case "0", "false", "no", "off":
			cfg.VerifySSL = false
		case "1", "true", "yes", "on":
			cfg.VerifySSL = true
		default:
			cfg.CABundle = v
		}
	}

	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		}
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = origins
	}

	// Defaults
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}
	if cfg.LocalS3Dir == "" {
		cfg.LocalS3Dir = "~"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 100
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 200
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}

	if cfg.LocalS3 && cfg.HasStaticCredentials() {
		cfg.Warnings = append(cfg.Warnings, "LOCAL_S3 is set — explicit AWS credentials are ignored in emulation mode")
	}
	if (cfg.AccessKey == "") != (cfg.SecretKey == "") {
		cfg.Warnings = append(cfg.Warnings, "only one of AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY is set — the SDK will reject the partial pair on use")
	}

	return cfg, nil
}

func parseBool(v string, defaultVal bool) bool {
	switch strings.TrimSpace(strings.ToLower(v)) {
	case "0", "false", "no", "off":
		return false
	case "1", "true", "yes", "on":
		return true
	}
	return defaultVal
}

// LoadDotEnv reads a .env file and sets any variables not already present in
// the environment. Lines are KEY=VALUE; comments (#) and blanks are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // missing .env is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		// Real environment variables take precedence over the file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes matching surrounding double or single quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
