package sys

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disgoorg/snowflake/v2"
	"github.com/joho/godotenv"
)

const (
	DefaultPrefix          = "!"
	MaxPrefixLength        = 10
	DefaultTrackDirectory  = "tracks"
	DefaultTempDirectory   = "temp"
	DefaultStartupFile     = "startup.mp3"
	DefaultMaxTrackSeconds = 600
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Token             string
	GuildID           snowflake.ID
	VoiceChannelID    snowflake.ID
	OperatorChannelID snowflake.ID
	OwnerIDs          []snowflake.ID
	Prefix            string
	DestroyOnError    bool
	TrackDirectory    string
	TempDirectory     string
	StartupFile       string
	MaxTrackSeconds   int
	DatabasePath      string
	LogFile           string
	Silent            bool

	rawGuildID           string
	rawVoiceChannelID    string
	rawOperatorChannelID string
	rawOwnerIDs          []string
}

var GlobalConfig *Config

// LoadConfig reads .env (if present) and the process environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()
	return ConfigFromEnv()
}

// ConfigFromEnv builds and validates a Config from the current environment
// without touching .env.
func ConfigFromEnv() (*Config, error) {
	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		folder := "."
		if info, err := os.Stat("data"); err == nil && info.IsDir() {
			folder = "./data"
		}
		dbPath = filepath.Join(folder, GetProjectName()+".db")
	}

	silent, _ := strconv.ParseBool(os.Getenv("SILENT"))
	destroy, _ := strconv.ParseBool(os.Getenv("DESTROY_ON_ERROR"))

	prefix := strings.ToLower(strings.TrimSpace(os.Getenv("PREFIX")))
	if prefix == "" {
		prefix = DefaultPrefix
	}

	maxSeconds := DefaultMaxTrackSeconds
	if v := os.Getenv("MAX_TRACK_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%w: MAX_TRACK_SECONDS must be a positive integer", ErrInvalidConfig)
		}
		maxSeconds = n
	}

	// OWNER_ID is the single-owner spelling; both are merged.
	var ownerIDs []string
	for _, key := range []string{"OWNER_IDS", "OWNER_ID"} {
		for _, part := range strings.Split(os.Getenv(key), ",") {
			if part = strings.TrimSpace(part); part != "" {
				ownerIDs = append(ownerIDs, part)
			}
		}
	}

	cfg := &Config{
		Token:           os.Getenv("DISCORD_TOKEN"),
		Prefix:          prefix,
		DestroyOnError:  destroy,
		TrackDirectory:  envOr("TRACK_DIRECTORY", DefaultTrackDirectory),
		TempDirectory:   envOr("TEMP_DIRECTORY", DefaultTempDirectory),
		StartupFile:     envOr("STARTUP_FILE", DefaultStartupFile),
		MaxTrackSeconds: maxSeconds,
		DatabasePath:    dbPath,
		LogFile:         os.Getenv("LOG_FILE"),
		Silent:          silent,

		rawGuildID:           strings.TrimSpace(os.Getenv("GUILD_ID")),
		rawVoiceChannelID:    strings.TrimSpace(os.Getenv("VOICE_CHANNEL_ID")),
		rawOperatorChannelID: strings.TrimSpace(os.Getenv("OPERATOR_CHANNEL_ID")),
		rawOwnerIDs:          ownerIDs,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Silent {
		SetSilentMode(true)
	}

	GlobalConfig = cfg
	return cfg, nil
}

// Validate checks the token, prefix and every snowflake and fills the parsed
// ID fields.
func (c *Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, MsgConfigMissingToken)
	}
	if len(c.Prefix) > MaxPrefixLength {
		return fmt.Errorf("%w: PREFIX must be at most %d characters", ErrInvalidConfig, MaxPrefixLength)
	}

	var err error
	if c.GuildID, err = parseSnowflake("GUILD_ID", c.rawGuildID, true); err != nil {
		return err
	}
	if c.VoiceChannelID, err = parseSnowflake("VOICE_CHANNEL_ID", c.rawVoiceChannelID, true); err != nil {
		return err
	}
	if c.OperatorChannelID, err = parseSnowflake("OPERATOR_CHANNEL_ID", c.rawOperatorChannelID, false); err != nil {
		return err
	}

	c.OwnerIDs = c.OwnerIDs[:0]
	for _, raw := range c.rawOwnerIDs {
		id, err := parseSnowflake("OWNER_IDS", raw, true)
		if err != nil {
			return err
		}
		c.OwnerIDs = append(c.OwnerIDs, id)
	}
	return nil
}

// IsOwner reports whether id is one of the configured owners.
func (c *Config) IsOwner(id snowflake.ID) bool {
	for _, owner := range c.OwnerIDs {
		if owner == id {
			return true
		}
	}
	return false
}

func parseSnowflake(key, raw string, required bool) (snowflake.ID, error) {
	if raw == "" {
		if required {
			return 0, fmt.Errorf("%w: %s is not set", ErrInvalidConfig, key)
		}
		return 0, nil
	}
	if len(raw) < 17 || len(raw) > 20 {
		return 0, fmt.Errorf("%w: invalid %s: must be a valid Snowflake", ErrInvalidConfig, key)
	}
	id, err := snowflake.Parse(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s: %v", ErrInvalidConfig, key, err)
	}
	return id, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func GetProjectName() string {
	exePath, err := os.Executable()
	projectName := "radiobox"
	if err == nil {
		projectName = filepath.Base(exePath)
		projectName = strings.TrimSuffix(projectName, ".exe")

		if projectName == "main" || strings.HasPrefix(projectName, "go_build_") || strings.HasSuffix(projectName, ".test") {
			projectName = "radiobox"
		}
	}
	return projectName
}
