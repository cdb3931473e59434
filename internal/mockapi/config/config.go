// Package config handles configuration for the mock API server: defaults,
// an optional JSON overlay and command-line flags, in that order.
package config

import (
	"errors"
	"time"
)

// Storage describes the embedded object store that backs pre-signed URLs.
type Storage struct {
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	URLExpiry time.Duration
}

// Limits are enforced by the upload-url endpoint.
type Limits struct {
	RequestMaxCount     int
	CommentMaxCount     int
	MaxFileSizeBytes    int64
	AllowedContentTypes []string
}

// Config holds runtime settings for the mock API.
//
// SecretKey signs access tokens (HS256). The defaults are for local
// development only.
type Config struct {
	ListenAddr string
	SecretKey  string
	TokenTTL   time.Duration
	LogLevel   string
	Storage    Storage
	Limits     Limits
}

func (c *Config) LoadDefaults() {
	c.ListenAddr = ":8080"
	c.SecretKey = "secretKey"
	c.TokenTTL = 60 * time.Minute
	c.LogLevel = "info"
	c.Storage = Storage{
		Bucket:    "attachments",
		Region:    "us-east-1",
		AccessKey: "admin",
		SecretKey: "secretpassword",
		URLExpiry: 15 * time.Minute,
	}
	c.Limits = Limits{
		RequestMaxCount:  10,
		CommentMaxCount:  5,
		MaxFileSizeBytes: 10 * 1024 * 1024,
		AllowedContentTypes: []string{
			"image/jpeg",
			"image/png",
			"image/webp",
			"application/pdf",
			"text/plain",
			"text/csv",
		},
	}
}

// LoadConfig applies defaults, then the JSON file named by -c/-config and
// finally the flags in args. args excludes the program name.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.ListenAddr == "":
		return errors.New("listen address is required")
	case c.SecretKey == "":
		return errors.New("secret key is required")
	case c.TokenTTL <= 0:
		return errors.New("token ttl must be positive")
	case c.Storage.Bucket == "":
		return errors.New("bucket is required")
	case c.Storage.URLExpiry <= 0:
		return errors.New("url expiry must be positive")
	case c.Limits.RequestMaxCount <= 0, c.Limits.CommentMaxCount <= 0, c.Limits.MaxFileSizeBytes <= 0:
		return errors.New("attachment limits must be positive")
	}
	return nil
}
