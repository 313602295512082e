package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

func validConfig() *Config {
	return &Config{
		Downloads: DownloadsConfig{
			Folder:         "/tmp/downloads",
			MaxConnections: 3,
		},
		Filepaths: FilepathsConfig{
			FolderFormat: DefaultFolderFormat,
			TrackFormat:  DefaultTrackFormat,
		},
		LogLevel:           "info",
		RetryAttemptsCount: 3,
		MaxDownloadPause:   "5s",
		MinRetryPause:      "1s",
		MaxRetryPause:      "3s",
	}
}

func TestValidateConfig_Valid(t *testing.T) {
	t.Parallel()

	cfg := validConfig()

	err := ValidateConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, zapcore.InfoLevel, cfg.ParsedLogLevel)
	assert.Equal(t, "5s", cfg.ParsedMaxDownloadPause.String())
}

func TestValidateConfig_InvalidMaxConnections(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Downloads.MaxConnections = 0

	err := ValidateConfig(cfg)
	require.ErrorIs(t, err, ErrInvalidMaxConnections)
}

func TestValidateConfig_UnknownLogLevel(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.LogLevel = "verbose"

	err := ValidateConfig(cfg)
	require.ErrorIs(t, err, ErrUnknownLogLevel)
}

func TestValidateConfig_InvalidQuality(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Qobuz.Quality = 9

	err := ValidateConfig(cfg)
	require.ErrorIs(t, err, ErrInvalidQuality)
}

func TestValidateConfig_InvalidRetryAttempts(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.RetryAttemptsCount = 0

	err := ValidateConfig(cfg)
	require.ErrorIs(t, err, ErrInvalidRetryAttempts)
}

func TestValidateConfig_SpeedLimitParsed(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Downloads.SpeedLimit = "1MB"

	err := ValidateConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, int64(1000000), cfg.Downloads.ParsedSpeedLimit)
}

func TestValidateConfig_DefaultsAppliedForTemplates(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Filepaths.FolderFormat = ""
	cfg.Filepaths.TrackFormat = ""

	err := ValidateConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, DefaultFolderFormat, cfg.Filepaths.FolderFormat)
	assert.Equal(t, DefaultTrackFormat, cfg.Filepaths.TrackFormat)
}

func TestHasCredentials(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	assert.False(t, cfg.HasCredentials(SourceQobuz))

	cfg.Qobuz.EmailOrUserID = "me@example.com"
	cfg.Qobuz.PasswordOrToken = "secret"
	assert.True(t, cfg.HasCredentials(SourceQobuz))

	cfg.Tidal.AccessToken = "token"
	assert.True(t, cfg.HasCredentials(SourceTidal))

	cfg.Deezer.ARL = "arl-cookie"
	assert.True(t, cfg.HasCredentials(SourceDeezer))

	cfg.SoundCloud.ClientID = "client-id"
	assert.True(t, cfg.HasCredentials(SourceSoundCloud))

	assert.False(t, cfg.HasCredentials("unknown"))
}

func TestUpdateScalarInNode(t *testing.T) {
	t.Parallel()

	original := "downloads:\n  folder: /tmp\ntidal:\n  access_token: \"old-token\"\n  refresh_token: \"old-refresh\"\n"

	var node yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(original), &node))

	updateScalarInNode(&node, []string{"tidal", "access_token"}, "new-token")
	updateScalarInNode(&node, []string{"missing", "key"}, "ignored")

	out, err := yaml.Marshal(&node)
	require.NoError(t, err)
	assert.Contains(t, string(out), "new-token")
	assert.Contains(t, string(out), "old-refresh")
	assert.NotContains(t, string(out), "old-token")
}
