package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/supportdesk/internal/flagx"
	"github.com/dmitrijs2005/supportdesk/internal/timex"
)

// JSONConfig is the on-disk shape. Pointer fields tell "absent" from zero.
type JSONConfig struct {
	APIBaseURL    *string          `json:"api_base_url"`
	SessionDBPath *string          `json:"session_db"`
	HTTPTimeout   *timex.Duration  `json:"http_timeout"`
	DownloadDir   *string          `json:"download_dir"`
	LogLevel      *string          `json:"log_level"`
	Attachments   *JSONAttachments `json:"attachments"`
}

type JSONAttachments struct {
	RequestMaxCount     *int     `json:"request_max_count"`
	CommentMaxCount     *int     `json:"comment_max_count"`
	MaxFileSizeBytes    *int64   `json:"max_file_size_bytes"`
	AllowedContentTypes []string `json:"allowed_content_types"`
}

// parseJSON overlays cfg with the file named by -c/-config, if given.
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

	setIf(&cfg.APIBaseURL, jc.APIBaseURL)
	setIf(&cfg.SessionDBPath, jc.SessionDBPath)
	setIf(&cfg.DownloadDir, jc.DownloadDir)
	setIf(&cfg.LogLevel, jc.LogLevel)
	if jc.HTTPTimeout != nil {
		cfg.HTTPTimeout = jc.HTTPTimeout.Duration
	}

	if a := jc.Attachments; a != nil {
		setIf(&cfg.Attachments.RequestMaxCount, a.RequestMaxCount)
		setIf(&cfg.Attachments.CommentMaxCount, a.CommentMaxCount)
		setIf(&cfg.Attachments.MaxFileSizeBytes, a.MaxFileSizeBytes)
		if a.AllowedContentTypes != nil {
			cfg.Attachments.AllowedContentTypes = a.AllowedContentTypes
		}
	}
	return nil
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
