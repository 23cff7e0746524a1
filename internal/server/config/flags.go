package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/dualcal/internal/flagx"
)

var serverFlags = []string{"-a", "-w", "-d", "-k", "-l", "-s", "-t", "-m", "-u", "-p", "-b", "-g", "-e"}

// parseFlags populates selected Config fields from command-line flags.
//
//	-a string   gRPC bind address
//	-w string   HTTP gateway bind address
//	-d string   PostgreSQL DSN
//	-k string   record store backend (postgres, mongo, memory)
//	-l string   claims store backend (postgres, redis, memory)
//	-s string   token signing secret
//	-t int      token validity, minutes
//	-m string   bootstrap (reserved master admin) email
//	-u/-p/-b/-g/-e  S3 user, password, bucket, region, endpoint
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], serverFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run gRPC server")
	fs.StringVar(&config.EndpointAddrHTTP, "w", config.EndpointAddrHTTP, "address and port to run HTTP gateway")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.RecordBackend, "k", config.RecordBackend, "record store backend")
	fs.StringVar(&config.ClaimsBackend, "l", config.ClaimsBackend, "claims store backend")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	tokenValidity := fs.Int("t", int(config.TokenValidityDuration.Minutes()), "token validity duration (in minutes)")

	fs.StringVar(&config.BootstrapEmail, "m", config.BootstrapEmail, "bootstrap master admin email")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			config.TokenValidityDuration = time.Duration(*tokenValidity) * time.Minute
		}
	})
}
