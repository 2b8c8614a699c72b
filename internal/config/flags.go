package config

import (
	"flag"
	"os"
	"time"

	"github.com/fintrail/audita/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   metrics/health bind address (e.g., ":9090")
//	-d string   PostgreSQL DSN
//	-q string   redis URL for the access-event log
//	-m string   master passphrase for key derivation
//	-s string   JWT HMAC secret key
//	-t int      caller token validity, minutes
//	-n string   tenant id
//	-l int      access-event log cap
//	-i int      maintenance interval, minutes
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components. Duration
// flags are accepted as integers in minutes.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:],
		[]string{"-a", "-d", "-q", "-m", "-s", "-t", "-n", "-l", "-i", "-u", "-p", "-b", "-g", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.MetricsAddr, "a", config.MetricsAddr, "address and port for metrics endpoint")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.RedisURL, "q", config.RedisURL, "redis URL for access events")
	fs.StringVar(&config.MasterPassphrase, "m", config.MasterPassphrase, "master passphrase")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	tokenValidity := fs.Int("t", int(config.TokenValidityDuration.Minutes()), "token validity (in minutes)")

	fs.StringVar(&config.TenantID, "n", config.TenantID, "tenant id")
	fs.IntVar(&config.MaxAccessEvents, "l", config.MaxAccessEvents, "access-event log cap")

	maintenanceInterval := fs.Int("i", int(config.MaintenanceInterval.Minutes()), "maintenance interval (in minutes)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.TokenValidityDuration = time.Duration(*tokenValidity) * time.Minute
	config.MaintenanceInterval = time.Duration(*maintenanceInterval) * time.Minute
}
