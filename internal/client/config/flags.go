package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/dualcal/internal/flagx"
)

var clientFlags = []string{"-a", "-i", "-f", "-t", "-z"}

// parseFlags populates selected Config fields from command-line flags.
// Only the flags listed in clientFlags are taken from os.Args.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], clientFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.StringVar(&cfg.CachePath, "f", cfg.CachePath, "offline cache file")
	fs.StringVar(&cfg.IdentityToken, "t", cfg.IdentityToken, "identity provider token")
	fs.StringVar(&cfg.Timezone, "z", cfg.Timezone, "timezone used on first sign-in")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
}
