package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/supportdesk/internal/flagx"
	"github.com/dmitrijs2005/supportdesk/internal/timex"
)

// JSONConfig is the on-disk shape; absent keys keep their defaults.
type JSONConfig struct {
	ListenAddr *string         `json:"listen_addr"`
	SecretKey  *string         `json:"secret_key"`
	TokenTTL   *timex.Duration `json:"token_ttl"`
	LogLevel   *string         `json:"log_level"`
	Storage    *struct {
		Bucket    *string         `json:"bucket"`
		Region    *string         `json:"region"`
		AccessKey *string         `json:"access_key"`
		SecretKey *string         `json:"secret_key"`
		URLExpiry *timex.Duration `json:"url_expiry"`
	} `json:"storage"`
	Limits *struct {
		RequestMaxCount     *int     `json:"request_max_count"`
		CommentMaxCount     *int     `json:"comment_max_count"`
		MaxFileSizeBytes    *int64   `json:"max_file_size_bytes"`
		AllowedContentTypes []string `json:"allowed_content_types"`
	} `json:"limits"`
}

func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var jc JSONConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setIf(&cfg.ListenAddr, jc.ListenAddr)
	setIf(&cfg.SecretKey, jc.SecretKey)
	setIf(&cfg.LogLevel, jc.LogLevel)
	if jc.TokenTTL != nil {
		cfg.TokenTTL = jc.TokenTTL.Duration
	}

	if s := jc.Storage; s != nil {
		setIf(&cfg.Storage.Bucket, s.Bucket)
		setIf(&cfg.Storage.Region, s.Region)
		setIf(&cfg.Storage.AccessKey, s.AccessKey)
		setIf(&cfg.Storage.SecretKey, s.SecretKey)
		if s.URLExpiry != nil {
			cfg.Storage.URLExpiry = s.URLExpiry.Duration
		}
	}

	if l := jc.Limits; l != nil {
		setIf(&cfg.Limits.RequestMaxCount, l.RequestMaxCount)
		setIf(&cfg.Limits.CommentMaxCount, l.CommentMaxCount)
		setIf(&cfg.Limits.MaxFileSizeBytes, l.MaxFileSizeBytes)
		if l.AllowedContentTypes != nil {
			cfg.Limits.AllowedContentTypes = l.AllowedContentTypes
		}
	}
	return nil
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
