// Package config loads, validates, and persists crateflow's configuration:
// a single immutable snapshot of paths, per-source credentials, concurrency
// caps, and formatting templates shared by every component in a run.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/crateflow/internal/constants"
	"github.com/oshokin/crateflow/internal/logger"
	"github.com/oshokin/crateflow/internal/utils"
)

// Source identifiers used as map keys and ledger tags across the module.
const (
	SourceQobuz      = "qobuz"
	SourceTidal      = "tidal"
	SourceDeezer     = "deezer"
	SourceSoundCloud = "soundcloud"
)

// DownloadsConfig groups the download-concurrency and destination settings.
type DownloadsConfig struct {
	// Folder is the root directory downloaded files are written under.
	Folder string `mapstructure:"folder"`
	// SourceSubdirectories creates one subfolder per source under Folder.
	SourceSubdirectories bool `mapstructure:"source_subdirectories"`
	// MaxConnections bounds simultaneously transferring tracks (clamped ≥1).
	MaxConnections int `mapstructure:"max_connections"`
	// RequestsPerMinute is read from config but not used: the download
	// semaphore applies no per-acquire delay.
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	// SpeedLimit is a transfer speed such as "500KB" or "1MB"; empty means none.
	// It is parsed and validated only: no client passes it to its
	// downloadables, so transfers are not throttled.
	SpeedLimit string `mapstructure:"speed_limit"`
	// ParsedSpeedLimit is SpeedLimit parsed to bytes/second.
	ParsedSpeedLimit int64 `mapstructure:"-"`
}

// DatabaseConfig controls the completed/failed ledger persistence.
type DatabaseConfig struct {
	DownloadsEnabled       bool   `mapstructure:"downloads_enabled"`
	DownloadsPath          string `mapstructure:"downloads_path"`
	FailedDownloadsEnabled bool   `mapstructure:"failed_downloads_enabled"`
	FailedDownloadsPath    string `mapstructure:"failed_downloads_path"`
}

// FilepathsConfig controls folder/filename templating and sanitation.
type FilepathsConfig struct {
	FolderFormat       string `mapstructure:"folder_format"`
	TrackFormat        string `mapstructure:"track_format"`
	RestrictCharacters bool   `mapstructure:"restrict_characters"`
	// TruncateTo caps generated path component length; 0 means no limit.
	TruncateTo int `mapstructure:"truncate_to"`
}

// ArtworkConfig controls embedded and hi-res cover handling.
type ArtworkConfig struct {
	EmbedSize string `mapstructure:"embed_size"`
	SaveHiRes bool   `mapstructure:"save_hi_res"`
}

// ConversionConfig controls optional post-download transcoding.
type ConversionConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Codec        string `mapstructure:"codec"`
	SamplingRate int    `mapstructure:"sampling_rate"`
	BitDepth     int    `mapstructure:"bit_depth"`
}

// LastfmConfig controls Last.fm playlist resolution.
type LastfmConfig struct {
	Source         string `mapstructure:"source"`
	FallbackSource string `mapstructure:"fallback_source"`
}

// QobuzCredentials holds Qobuz login and quality settings.
type QobuzCredentials struct {
	EmailOrUserID     string `mapstructure:"email_or_userid"`
	PasswordOrToken   string `mapstructure:"password_or_token"`
	AppID             string `mapstructure:"app_id"`
	Quality           uint8  `mapstructure:"quality"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
}

// TidalCredentials holds Tidal OAuth token pair and quality settings.
type TidalCredentials struct {
	AccessToken       string `mapstructure:"access_token"`
	RefreshToken      string `mapstructure:"refresh_token"`
	ClientID          string `mapstructure:"client_id"`
	ClientSecret      string `mapstructure:"client_secret"`
	Quality           uint8  `mapstructure:"quality"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
}

// DeezerCredentials holds the Deezer ARL cookie and quality settings.
type DeezerCredentials struct {
	ARL               string `mapstructure:"arl"`
	Quality           uint8  `mapstructure:"quality"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
}

// SoundCloudCredentials holds the SoundCloud client identity.
type SoundCloudCredentials struct {
	ClientID          string `mapstructure:"client_id"`
	AppVersion        string `mapstructure:"app_version"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
}

// CLIConfig controls terminal-facing behavior.
type CLIConfig struct {
	ProgressBars bool `mapstructure:"progress_bars"`
}

// Config holds every configuration setting for a run. Built once, read-only
// thereafter, and shared by every component via pointer.
type Config struct {
	Downloads  DownloadsConfig       `mapstructure:"downloads"`
	Database   DatabaseConfig        `mapstructure:"database"`
	Filepaths  FilepathsConfig       `mapstructure:"filepaths"`
	Artwork    ArtworkConfig         `mapstructure:"artwork"`
	Conversion ConversionConfig      `mapstructure:"conversion"`
	Lastfm     LastfmConfig          `mapstructure:"lastfm"`
	Qobuz      QobuzCredentials      `mapstructure:"qobuz"`
	Tidal      TidalCredentials      `mapstructure:"tidal"`
	Deezer     DeezerCredentials     `mapstructure:"deezer"`
	SoundCloud SoundCloudCredentials `mapstructure:"soundcloud"`
	CLI        CLIConfig             `mapstructure:"cli"`

	// LogLevel is the logging verbosity name.
	LogLevel string `mapstructure:"log_level"`
	// DisableSSLVerification turns off certificate verification on every
	// client's HTTP connector (policy setting, off by default).
	DisableSSLVerification bool `mapstructure:"disable_ssl_verification"`
	// RetryAttemptsCount must be positive. No client retries metadata
	// fetches, so it does not change how requests are made.
	RetryAttemptsCount int64 `mapstructure:"retry_attempts_count"`
	// MaxDownloadPause must not be negative. No component pauses between
	// downloads, so it has no effect.
	MaxDownloadPause string `mapstructure:"max_download_pause"`
	// MinRetryPause/MaxRetryPause must be positive. Metadata fetches are not
	// retried, so they have no effect.
	MinRetryPause string `mapstructure:"min_retry_pause"`
	MaxRetryPause string `mapstructure:"max_retry_pause"`

	// DryRun is set by the --dry-run flag. No component reads it: downloads,
	// tagging and file writes run as usual.
	DryRun bool

	// Parsed* are derived fields populated by ValidateConfig.
	ParsedLogLevel         zapcore.Level
	ParsedMaxDownloadPause time.Duration
	ParsedMinRetryPause    time.Duration
	ParsedMaxRetryPause    time.Duration
}

const (
	// DefaultConfigFilename is the default name of the configuration file.
	DefaultConfigFilename = ".crateflow.yaml"

	// DefaultFolderFormat is the default album folder naming template.
	DefaultFolderFormat = "{{.releaseYear}} - {{.albumArtist}} - {{.albumTitle}}"

	// DefaultTrackFormat is the default track filename template.
	DefaultTrackFormat = "{{.trackNumberPad}} - {{.trackTitle}}"

	// DefaultMaxLogLength is the default maximum size (in bytes) for one logged HTTP dump.
	DefaultMaxLogLength = 1 * 1024 * 1024 // 1 MB

	// PlaylistBatchSize bounds concurrent playlist-track resolution (spec §4.4/§5).
	PlaylistBatchSize = 20

	minQuality = 1
	maxQuality = 3
)

// Static error definitions, one per validation failure mode.
var (
	ErrInvalidQuality               = errors.New("invalid quality")
	ErrUnknownLogLevel              = errors.New("unknown log level")
	ErrInvalidRetryAttempts         = errors.New("retry_attempts_count must be a positive integer")
	ErrInvalidMaxDownloadPause      = errors.New("max_download_pause must not be negative")
	ErrInvalidMinRetryPause         = errors.New("min_retry_pause must be positive")
	ErrInvalidMaxRetryPause         = errors.New("max_retry_pause must be positive")
	ErrInvalidMaxConnections        = errors.New("downloads.max_connections must be a positive integer")
	ErrMissingQobuzCredentials      = errors.New("qobuz credentials are missing email_or_userid/password_or_token")
	ErrMissingTidalCredentials      = errors.New("tidal credentials are missing access_token")
	ErrMissingDeezerCredentials     = errors.New("deezer credentials are missing arl")
	ErrMissingSoundCloudCredentials = errors.New("soundcloud credentials are missing client_id")
)

// LoadConfig loads configuration settings from a YAML file and environment
// variables prefixed CRATEFLOW_. CLI flags are not read here; the caller
// applies them to the returned Config.
func LoadConfig(configFilename string) (*Config, error) {
	if configFilename == "" {
		configFilename = DefaultConfigFilename
	}

	viper.SetConfigFile(configFilename)
	viper.SetEnvPrefix("crateflow")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config from file: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// ValidateConfig checks the configuration for validity and populates the
// derived Parsed* fields. Credential presence is not validated here; each
// client's Login reports missing credentials for its own source, so an
// empty soundcloud block in a Qobuz-only config is not an error.
//
//nolint:funlen,gocognit,cyclop // Validation functions naturally have high complexity and length due to sequential checks.
func ValidateConfig(cfg *Config) error {
	if cfg.Downloads.MaxConnections <= 0 {
		return ErrInvalidMaxConnections
	}

	if cfg.Qobuz.Quality != 0 && (cfg.Qobuz.Quality < minQuality || cfg.Qobuz.Quality > maxQuality) {
		return fmt.Errorf("%w: qobuz quality must be between %d and %d", ErrInvalidQuality, minQuality, maxQuality)
	}

	parsedLogLevel, isLogLevelCorrect := logger.ParseLogLevel(cfg.LogLevel)
	if !isLogLevelCorrect {
		return fmt.Errorf("%w: '%s'", ErrUnknownLogLevel, cfg.LogLevel)
	}

	cfg.ParsedLogLevel = parsedLogLevel

	if speedLimit := strings.TrimSpace(cfg.Downloads.SpeedLimit); speedLimit != "" && speedLimit != "0" {
		parsedSpeedLimit, err := humanize.ParseBytes(speedLimit)
		if err != nil {
			return fmt.Errorf("failed to parse downloads.speed_limit: %w", err)
		}

		// io.CopyN accepts only int64, so we convert safely before using it.
		cfg.Downloads.ParsedSpeedLimit = utils.SafeUint64ToInt64(parsedSpeedLimit)
	}

	if cfg.RetryAttemptsCount <= 0 {
		return ErrInvalidRetryAttempts
	}

	if cfg.MaxDownloadPause == "" {
		cfg.MaxDownloadPause = "0s"
	}

	var err error

	cfg.ParsedMaxDownloadPause, err = time.ParseDuration(cfg.MaxDownloadPause)
	if err != nil {
		return fmt.Errorf("failed to parse max_download_pause: %w", err)
	}

	if cfg.ParsedMaxDownloadPause < 0 {
		return ErrInvalidMaxDownloadPause
	}

	if cfg.MinRetryPause == "" {
		cfg.MinRetryPause = "1s"
	}

	cfg.ParsedMinRetryPause, err = time.ParseDuration(cfg.MinRetryPause)
	if err != nil {
		return fmt.Errorf("failed to parse min_retry_pause: %w", err)
	}

	if cfg.ParsedMinRetryPause <= 0 {
		return ErrInvalidMinRetryPause
	}

	if cfg.MaxRetryPause == "" {
		cfg.MaxRetryPause = "3s"
	}

	cfg.ParsedMaxRetryPause, err = time.ParseDuration(cfg.MaxRetryPause)
	if err != nil {
		return fmt.Errorf("failed to parse max_retry_pause: %w", err)
	}

	if cfg.ParsedMaxRetryPause <= 0 {
		return ErrInvalidMaxRetryPause
	}

	if cfg.Filepaths.FolderFormat == "" {
		cfg.Filepaths.FolderFormat = DefaultFolderFormat
	}

	if cfg.Filepaths.TrackFormat == "" {
		cfg.Filepaths.TrackFormat = DefaultTrackFormat
	}

	return nil
}

// HasCredentials reports whether the given source has enough configuration
// to attempt a login; it does not guarantee the credentials are valid.
func (c *Config) HasCredentials(source string) bool {
	switch source {
	case SourceQobuz:
		return c.Qobuz.EmailOrUserID != "" && c.Qobuz.PasswordOrToken != ""
	case SourceTidal:
		return c.Tidal.AccessToken != ""
	case SourceDeezer:
		return c.Deezer.ARL != ""
	case SourceSoundCloud:
		return c.SoundCloud.ClientID != ""
	default:
		return false
	}
}

// SaveConfig persists cfg back to its source file, preserving key order and
// comments via a yaml.Node round-trip, updating only the credential fields
// that may have been refreshed during login (e.g. Tidal's token pair).
func SaveConfig(cfg *Config) error {
	configFile := getConfigFilePath()

	originalContent, err := os.ReadFile(configFile)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var node yaml.Node
	if err = yaml.Unmarshal(originalContent, &node); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	updateScalarInNode(&node, []string{"tidal", "access_token"}, cfg.Tidal.AccessToken)
	updateScalarInNode(&node, []string{"tidal", "refresh_token"}, cfg.Tidal.RefreshToken)
	updateScalarInNode(&node, []string{"qobuz", "password_or_token"}, cfg.Qobuz.PasswordOrToken)
	updateScalarInNode(&node, []string{"deezer", "arl"}, cfg.Deezer.ARL)

	newContent, err := yaml.Marshal(&node)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if err = os.WriteFile(configFile, newContent, constants.DefaultFilePermissions); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// getConfigFilePath returns the config file path from viper or the default.
func getConfigFilePath() string {
	if configFile := viper.ConfigFileUsed(); configFile != "" {
		return configFile
	}

	return DefaultConfigFilename
}

// updateScalarInNode walks a dotted path of mapping keys and overwrites the
// leaf scalar's value in place, preserving every other node's style and
// position. A missing path or an empty value is a no-op.
func updateScalarInNode(root *yaml.Node, path []string, value string) {
	if value == "" || len(root.Content) == 0 {
		return
	}

	current := root.Content[0]

	for depth, key := range path {
		if current.Kind != yaml.MappingNode {
			return
		}

		var valueNode *yaml.Node

		for i := 0; i < len(current.Content); i += 2 {
			if current.Content[i].Value == key {
				valueNode = current.Content[i+1]

				break
			}
		}

		if valueNode == nil {
			return
		}

		if depth == len(path)-1 {
			valueNode.Value = value

			if valueNode.Style == 0 {
				valueNode.Style = yaml.DoubleQuotedStyle
			}

			return
		}

		current = valueNode
	}
}
