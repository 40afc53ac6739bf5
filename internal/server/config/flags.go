package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/farmledger/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   listen address of the HTTP API
//	-d string   Postgres connection string
//	-k string   token signing key
//	-t int      access token validity in hours
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-k", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.EndpointAddr, "a", cfg.EndpointAddr, "listen address of the HTTP API")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "Postgres connection string")
	fs.StringVar(&cfg.SecretKey, "k", cfg.SecretKey, "token signing key")
	tokenValidity := fs.Int("t", int(cfg.AccessTokenValidityDuration.Hours()), "access token validity (in hours)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.AccessTokenValidityDuration = time.Duration(*tokenValidity) * time.Hour
}
