// Package config loads runtime configuration for the supportdesk client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the REST API, e.g. http://localhost:8080/api/v1
//	-d string   path of the local session database
//	-t int      HTTP timeout for API calls (seconds)
//	-o string   directory downloads are written to
//	-l string   log level: debug, info, warn, error
//
// # JSON schema
//
// Durations use timex.Duration, so "15s" and integer nanoseconds both work.
// Keys that are absent keep their earlier value.
//
//	{
//	  "api_base_url": "http://localhost:8080/api/v1",
//	  "session_db": "supportdesk.db",
//	  "http_timeout": "15s",
//	  "download_dir": "downloads",
//	  "log_level": "info",
//	  "attachments": {
//	    "request_max_count": 10,
//	    "comment_max_count": 5,
//	    "max_file_size_bytes": 10485760,
//	    "allowed_content_types": ["image/png", "application/pdf"]
//	  }
//	}
package config
