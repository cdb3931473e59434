package config

import (
	"fmt"
	"time"
)

// AttachmentLimits are the client-side upload limits per scope.
type AttachmentLimits struct {
	RequestMaxCount     int
	CommentMaxCount     int
	MaxFileSizeBytes    int64
	AllowedContentTypes []string
}

// Config holds runtime settings for the supportdesk client.
type Config struct {
	APIBaseURL    string
	SessionDBPath string
	HTTPTimeout   time.Duration
	DownloadDir   string
	LogLevel      string
	Attachments   AttachmentLimits
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://127.0.0.1:8080/api/v1"
	c.SessionDBPath = "supportdesk.db"
	c.HTTPTimeout = 15 * time.Second
	c.DownloadDir = "downloads"
	c.LogLevel = "info"
	c.Attachments = AttachmentLimits{
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

// LoadConfig builds a Config from defaults, the JSON file named in args (if
// any) and then the flags in args. args excludes the program name.
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
	if c.APIBaseURL == "" {
		return fmt.Errorf("api base url is required")
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("http timeout must not be negative")
	}
	a := c.Attachments
	if a.RequestMaxCount <= 0 || a.CommentMaxCount <= 0 {
		return fmt.Errorf("attachment limits must be positive")
	}
	if a.MaxFileSizeBytes <= 0 {
		return fmt.Errorf("max file size must be positive")
	}
	return nil
}
