package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/supportdesk/internal/flagx"
)

// parseFlags overlays cfg with the flags it knows; everything else in args
// is left for other loaders.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-t", "-o", "-l"})

	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "base URL of the REST API")
	fs.StringVar(&cfg.SessionDBPath, "d", cfg.SessionDBPath, "path of the local session database")
	timeout := fs.Int("t", int(cfg.HTTPTimeout.Seconds()), "HTTP timeout for API calls (in seconds)")
	fs.StringVar(&cfg.DownloadDir, "o", cfg.DownloadDir, "download directory")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			cfg.HTTPTimeout = time.Duration(*timeout) * time.Second
		}
	})
	return nil
}
