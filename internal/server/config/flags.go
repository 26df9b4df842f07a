package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/devlearning/devauth/internal/flagx"
)

// serverFlags lists the flags parseFlags owns; everything else in args is
// left for other components (-c/-config, -env, CLI subcommand flags).
var serverFlags = []string{"-a", "-g", "-d", "-s", "-t", "-r", "-m", "-i", "-l"}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   REST bind address (e.g., ":8080")
//	-g string   gRPC health bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-s string   access token HMAC secret
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-m int      max valid refresh tokens per principal
//	-i int      expired token sweep interval, minutes
//	-l string   log level
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to serve the REST API")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "address and port to serve gRPC health")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.IntVar(&config.MaxRefreshTokensPerPrincipal, "m", config.MaxRefreshTokensPerPrincipal, "max refresh tokens per principal")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	accessTokenValidity := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	refreshTokenValidity := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh_token_validity_duration (in minutes)")
	sweepInterval := fs.Int("i", int(config.SweepInterval.Minutes()), "sweep_interval (in minutes)")

	if err := fs.Parse(flagx.FilterArgs(args, serverFlags)); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	// Minute flags only apply when given, so sub-minute values from JSON or
	// the environment survive.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenValidityDuration = time.Duration(*accessTokenValidity) * time.Minute
		case "r":
			config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidity) * time.Minute
		case "i":
			config.SweepInterval = time.Duration(*sweepInterval) * time.Minute
		}
	})
	return nil
}
