// Package config loads process configuration for the FreeFeed gateway.
//
// All settings come from the environment (optionally seeded from a .env file
// by the caller), declared as go-flags struct tags so each variable has a
// single declaration with its default. The opt-out policy file itself is NOT
// read here; only its path is resolved. The policy is re-read on every
// filtering operation, see the optout package.
package config

import (
	"fmt"
	"path/filepath"

	"freefeed-mcp/internal/logging"

	"github.com/adrg/xdg"
	flags "github.com/jessevdk/go-flags"
)

const AppName = "freefeed-mcp" // used for the default config directory

// Version is set at build time via -ldflags
var Version = "dev"

const (
	DefaultImageMaxBytes = 2_000_000
	MinImageMaxBytes     = 256_000
)

type rawConfig struct {
	// FreeFeed upstream
	BaseURL    string `long:"base-url" env:"FREEFEED_BASE_URL" default:"https://freefeed.net" description:"Base URL of the FreeFeed instance"`
	APIVersion int    `long:"api-version" env:"FREEFEED_API_VERSION" default:"4" description:"FreeFeed API version"`
	AppToken   string `long:"app-token" env:"FREEFEED_APP_TOKEN" description:"Application token for authentication"`
	Username   string `long:"username" env:"FREEFEED_USERNAME" description:"FreeFeed username (token alternative)"`
	Password   string `long:"password" env:"FREEFEED_PASSWORD" description:"FreeFeed password (token alternative)"`

	// Opt-out policy
	OptOutConfigPath string `long:"optout-config" env:"FREEFEED_OPTOUT_CONFIG" description:"Path to the opt-out policy JSON file"`

	// Attachments
	ImageMaxBytes int64  `long:"image-max-bytes" env:"FREEFEED_MCP_IMAGE_MAX_BYTES" default:"2000000" description:"Byte ceiling for inline image data"`
	UploadDir     string `long:"upload-dir" env:"FREEFEED_UPLOAD_DIR" default:"." description:"Directory uploads are confined to"`
	DownloadDir   string `long:"download-dir" env:"FREEFEED_DOWNLOAD_DIR" default:"./downloads" description:"Directory downloads are confined to"`

	// REST facade
	APIHost string `long:"api-host" env:"FREEFEED_API_HOST" default:"0.0.0.0" description:"REST listen host"`
	APIPort string `long:"api-port" env:"FREEFEED_API_PORT" default:"8000" description:"REST listen port"`

	Debug bool `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// Config holds the resolved gateway configuration.
type Config struct {
	BaseURL    string
	APIVersion int
	AppToken   string
	Username   string
	Password   string

	OptOutConfigPath string

	ImageMaxBytes int64
	UploadDir     string
	DownloadDir   string

	APIHost string
	APIPort string

	Debug   bool
	Version string
}

// Load resolves configuration from the environment.
//
// Invalid numeric values fall back to their defaults with a warning rather
// than failing startup; only a completely unparsable environment is an error.
func Load() (*Config, error) {
	var raw rawConfig

	parser := flags.NewParser(&raw, flags.IgnoreUnknown)

	// Environment only. CLI argument handling belongs to cobra, so go-flags
	// is given no argv to chew on.
	if _, err := parser.ParseArgs(nil); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Config{
		BaseURL:          raw.BaseURL,
		APIVersion:       raw.APIVersion,
		AppToken:         raw.AppToken,
		Username:         raw.Username,
		Password:         raw.Password,
		OptOutConfigPath: raw.OptOutConfigPath,
		ImageMaxBytes:    raw.ImageMaxBytes,
		UploadDir:        raw.UploadDir,
		DownloadDir:      raw.DownloadDir,
		APIHost:          raw.APIHost,
		APIPort:          raw.APIPort,
		Debug:            raw.Debug,
		Version:          Version,
	}

	if cfg.APIVersion <= 0 {
		logging.Warn("Invalid FREEFEED_API_VERSION, falling back to 4", "value", cfg.APIVersion)
		cfg.APIVersion = 4
	}

	if cfg.ImageMaxBytes <= 0 {
		cfg.ImageMaxBytes = DefaultImageMaxBytes
	} else if cfg.ImageMaxBytes < MinImageMaxBytes {
		cfg.ImageMaxBytes = MinImageMaxBytes
	}

	if cfg.OptOutConfigPath == "" {
		cfg.OptOutConfigPath = DefaultOptOutConfigPath()
	}

	return cfg, nil
}

// DefaultOptOutConfigPath returns the standard opt-out policy file location
// for the current platform. The file does not have to exist; the policy
// loader falls back to built-in defaults when it is absent.
func DefaultOptOutConfigPath() string {
	path := filepath.Join(xdg.ConfigHome, AppName, "optout.json")
	logging.Debug("Determined opt-out config path", "path", path)
	return path
}
