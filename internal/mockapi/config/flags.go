package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/supportdesk/internal/flagx"
)

// parseFlags overlays cfg with the flags below.
//
//	-a string   listen address (e.g. ":8080")
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-u string   storage access key
//	-p string   storage secret key
//	-b string   storage bucket
//	-g string   storage region
//	-e int      pre-signed URL validity, minutes
//	-l string   log level
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-s", "-t", "-u", "-p", "-b", "-g", "-e", "-l"})

	fs := flag.NewFlagSet("mockapi", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ListenAddr, "a", cfg.ListenAddr, "address and port to run server")
	fs.StringVar(&cfg.SecretKey, "s", cfg.SecretKey, "secret key")
	ttl := fs.Int("t", int(cfg.TokenTTL.Minutes()), "access token validity (in minutes)")
	fs.StringVar(&cfg.Storage.AccessKey, "u", cfg.Storage.AccessKey, "storage access key")
	fs.StringVar(&cfg.Storage.SecretKey, "p", cfg.Storage.SecretKey, "storage secret key")
	fs.StringVar(&cfg.Storage.Bucket, "b", cfg.Storage.Bucket, "storage bucket")
	fs.StringVar(&cfg.Storage.Region, "g", cfg.Storage.Region, "storage region")
	expiry := fs.Int("e", int(cfg.Storage.URLExpiry.Minutes()), "pre-signed URL validity (in minutes)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return err
	}

	// Minute flags only override when given, so sub-minute JSON values survive.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			cfg.TokenTTL = time.Duration(*ttl) * time.Minute
		case "e":
			cfg.Storage.URLExpiry = time.Duration(*expiry) * time.Minute
		}
	})
	return nil
}
