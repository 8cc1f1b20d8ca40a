package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
)

var knownFlags = []string{"-a", "-l", "-d", "-s", "-t", "-r", "-k", "-n", "-u", "-p", "-b", "-g", "-e"}

// parseFlags overlays short command-line flags onto config.
//
//	-a string   HTTP bind address (":8000")
//	-l string   gRPC health bind address (":50051")
//	-d string   PostgreSQL DSN
//	-s string   signing secret (at least 32 bytes)
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-k int      verification/reset token validity, minutes
//	-n string   notifier backend: console, sendgrid, nats
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket
//	-g string   S3 region
//	-e string   S3 base endpoint
//
// Other flags are filtered out first so -c/-config can coexist.
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "HTTP address and port")
	fs.StringVar(&config.HealthAddrGRPC, "l", config.HealthAddrGRPC, "gRPC health address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	access := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (minutes)")
	refresh := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh token validity (minutes)")
	account := fs.Int("k", int(config.AccountTokenValidityDuration.Minutes()), "verification and reset token validity (minutes)")

	fs.StringVar(&config.Notifier, "n", config.Notifier, "notifier backend")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(flagx.FilterArgs(args, knownFlags)); err != nil {
		return err
	}

	config.AccessTokenValidityDuration = time.Duration(*access) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refresh) * time.Minute
	config.AccountTokenValidityDuration = time.Duration(*account) * time.Minute
	return nil
}
