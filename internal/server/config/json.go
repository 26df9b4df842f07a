package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/devlearning/devauth/internal/flagx"
	"github.com/devlearning/devauth/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations accept
// Go duration strings ("1h") or integer milliseconds (3600000).
type JsonConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	MaxRefreshTokensPerPrincipal int            `json:"max_refresh_tokens_per_principal"`
	SweepInterval                timex.Duration `json:"sweep_interval"`
	BcryptCost                   int            `json:"bcrypt_cost"`
	CORSAllowedOrigins           []string       `json:"cors_allowed_origins"`
	LogLevel                     string         `json:"log_level"`
}

// parseJson overlays values from the file given with -c/-config. Fields
// missing from the file keep their current value. No flag, no change.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.LogLevel, c.LogLevel)
	if c.AccessTokenValidityDuration.Duration > 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration.Duration > 0 {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if c.SweepInterval.Duration > 0 {
		config.SweepInterval = c.SweepInterval.Duration
	}
	if c.MaxRefreshTokensPerPrincipal > 0 {
		config.MaxRefreshTokensPerPrincipal = c.MaxRefreshTokensPerPrincipal
	}
	if c.BcryptCost > 0 {
		config.BcryptCost = c.BcryptCost
	}
	if len(c.CORSAllowedOrigins) > 0 {
		config.CORSAllowedOrigins = c.CORSAllowedOrigins
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
