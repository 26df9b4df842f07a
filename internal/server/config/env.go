package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/devlearning/devauth/internal/flagx"
	"github.com/joho/godotenv"
)

const envPrefix = "DEVAUTH_"

// loadDotEnv exports variables from the -env file, or from ./.env when it
// exists. Variables already set in the process environment win.
func loadDotEnv(args []string) error {
	if path := flagx.EnvFile(args); path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// parseEnv overlays DEVAUTH_* variables. Durations accept "1h" or integer
// milliseconds, like the JSON file.
func parseEnv(config *Config, lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(envPrefix + name)
		if !ok || strings.TrimSpace(v) == "" {
			return "", false
		}
		return strings.TrimSpace(v), true
	}

	if v, ok := get("HTTP_ADDR"); ok {
		config.EndpointAddrHTTP = v
	}
	if v, ok := get("GRPC_ADDR"); ok {
		config.EndpointAddrGRPC = v
	}
	if v, ok := get("DATABASE_DSN"); ok {
		config.DatabaseDSN = v
	}
	if v, ok := get("SECRET_KEY"); ok {
		config.SecretKey = v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		config.LogLevel = v
	}
	if v, ok := get("CORS_ORIGINS"); ok {
		config.CORSAllowedOrigins = splitList(v)
	}

	durations := []struct {
		name string
		dst  *time.Duration
	}{
		{"ACCESS_TOKEN_TTL", &config.AccessTokenValidityDuration},
		{"REFRESH_TOKEN_TTL", &config.RefreshTokenValidityDuration},
		{"SWEEP_INTERVAL", &config.SweepInterval},
	}
	for _, d := range durations {
		v, ok := get(d.name)
		if !ok {
			continue
		}
		parsed, err := parseEnvDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, d.name, err)
		}
		*d.dst = parsed
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"MAX_REFRESH_TOKENS", &config.MaxRefreshTokensPerPrincipal},
		{"BCRYPT_COST", &config.BcryptCost},
	}
	for _, i := range ints {
		v, ok := get(i.name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, i.name, err)
		}
		*i.dst = n
	}

	return nil
}

func parseEnvDuration(v string) (time.Duration, error) {
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(v)
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
