package config

import (
	"flag"
	"os"

	"github.com/yorutsuke/ledgersync/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   local SQLite DSN
//	-r string   base URL of the remote record store
//	-t string   API token for the remote store
//	-u string   owner (account) id to operate on
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-r", "-t", "-u"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.LocalDSN, "d", cfg.LocalDSN, "local sqlite dsn")
	fs.StringVar(&cfg.RemoteBaseURL, "r", cfg.RemoteBaseURL, "remote store base url")
	fs.StringVar(&cfg.APIToken, "t", cfg.APIToken, "remote store api token")
	fs.StringVar(&cfg.OwnerID, "u", cfg.OwnerID, "owner id")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}

// parseEnv overlays credentials from the environment so they can be kept out
// of config files and shell history.
func parseEnv(cfg *Config) {
	if v := os.Getenv("LEDGERSYNC_API_TOKEN"); v != "" {
		cfg.APIToken = v
	}
	if v := os.Getenv("LEDGERSYNC_S3_ACCESS_KEY"); v != "" {
		cfg.S3AccessKey = v
	}
	if v := os.Getenv("LEDGERSYNC_S3_SECRET_KEY"); v != "" {
		cfg.S3SecretKey = v
	}
}
