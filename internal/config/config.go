package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/roomops/herald/pkg/calendar"
	"github.com/roomops/herald/pkg/types"
	"gopkg.in/yaml.v3"
)

const (
	// TokenEnvVar overrides any token from the config file.
	TokenEnvVar = "HERALD_TOKEN"

	defaultAPIURL    = "https://api.gitter.im/v1"
	defaultStreamURL = "https://stream.gitter.im/v1"
	defaultPort      = "8080"
	defaultTick      = "1s"
	defaultBotName   = "herald"
	defaultBlacklist = "blacklist.yml"
)

type Config struct {
	Room          RoomConfig           `yaml:"room"`
	Auth          AuthConfig           `yaml:"auth"`
	Server        ServerConfig         `yaml:"server"`
	Runner        RunnerConfig         `yaml:"runner"`
	ApprovedUsers []string             `yaml:"approved_users"`
	BlacklistFile string               `yaml:"blacklist_file"`
	Announcements []types.Announcement `yaml:"announcements"`
}

type RoomConfig struct {
	ID        string `yaml:"id"`
	APIURL    string `yaml:"api_url"`
	StreamURL string `yaml:"stream_url"`
}

type AuthConfig struct {
	Token     string `yaml:"token"`
	TokenFile string `yaml:"token_file"`
	BotName   string `yaml:"bot_name"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type RunnerConfig struct {
	Tick string `yaml:"tick"`
}

// tokenFile is the shape of the standalone credentials file.
type tokenFile struct {
	APIToken string `yaml:"apitoken"`
}

// Load reads and validates the configuration. Any failure here is fatal to
// the process; the supervisor restarts it once the file is fixed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Room.APIURL == "" {
		c.Room.APIURL = defaultAPIURL
	}
	if c.Room.StreamURL == "" {
		c.Room.StreamURL = defaultStreamURL
	}
	if c.Server.Port == "" {
		c.Server.Port = defaultPort
	}
	if c.Runner.Tick == "" {
		c.Runner.Tick = defaultTick
	}
	if c.Auth.BotName == "" {
		c.Auth.BotName = defaultBotName
	}
	if c.BlacklistFile == "" {
		c.BlacklistFile = defaultBlacklist
	}
}

// Validate checks the schema once at load time so that nothing downstream
// has to re-check it.
func (c *Config) Validate() error {
	if c.Room.ID == "" {
		return fmt.Errorf("room.id is required")
	}

	if _, err := time.ParseDuration(c.Runner.Tick); err != nil {
		return fmt.Errorf("invalid runner.tick %q: %w", c.Runner.Tick, err)
	}

	if len(c.Announcements) == 0 {
		return fmt.Errorf("at least one announcement is required")
	}

	seen := make(map[string]struct{}, len(c.Announcements))
	for i, ann := range c.Announcements {
		if ann.Name == "" {
			return fmt.Errorf("announcement %d: name is required", i)
		}
		if _, dup := seen[ann.Name]; dup {
			return fmt.Errorf("announcement %q: name used more than once", ann.Name)
		}
		seen[ann.Name] = struct{}{}

		if ann.Message == "" {
			return fmt.Errorf("announcement %q: message is required", ann.Name)
		}

		if err := validateRecurrence(ann); err != nil {
			return fmt.Errorf("announcement %q: %w", ann.Name, err)
		}
	}

	return nil
}

func validateRecurrence(ann types.Announcement) error {
	hasInterval := ann.Every != ""
	hasWeekly := len(ann.Days) > 0 || len(ann.Times) > 0

	switch {
	case hasInterval && hasWeekly:
		return fmt.Errorf("'every' and 'days'/'times' are mutually exclusive")
	case !hasInterval && !hasWeekly:
		return fmt.Errorf("either 'every' or 'days' plus 'times' is required")
	}

	if hasInterval {
		interval, err := time.ParseDuration(ann.Every)
		if err != nil {
			return fmt.Errorf("invalid interval %q: %w", ann.Every, err)
		}
		if interval <= 0 {
			return fmt.Errorf("interval must be positive, got %q", ann.Every)
		}
		return nil
	}

	if len(ann.Days) == 0 {
		return fmt.Errorf("'days' is required alongside 'times'")
	}
	if len(ann.Times) == 0 {
		return fmt.Errorf("'times' is required alongside 'days'")
	}

	for _, day := range ann.Days {
		if _, err := calendar.ParseWeekday(day); err != nil {
			return err
		}
	}
	for _, at := range ann.Times {
		if _, err := calendar.ParseTimeOfDay(at); err != nil {
			return err
		}
	}

	return nil
}

// TickDuration returns the validated runner tick.
func (c *Config) TickDuration() time.Duration {
	tick, err := time.ParseDuration(c.Runner.Tick)
	if err != nil {
		return time.Second
	}
	return tick
}

// ResolveToken finds the API token: the environment wins, then the inline
// config value, then the standalone token file.
func (c *Config) ResolveToken() (string, error) {
	if token := os.Getenv(TokenEnvVar); token != "" {
		return token, nil
	}

	if c.Auth.Token != "" {
		return c.Auth.Token, nil
	}

	if c.Auth.TokenFile != "" {
		data, err := os.ReadFile(c.Auth.TokenFile)
		if err != nil {
			return "", fmt.Errorf("failed to read token file: %w", err)
		}

		var tf tokenFile
		if err := yaml.Unmarshal(data, &tf); err != nil {
			return "", fmt.Errorf("failed to parse token file: %w", err)
		}
		if tf.APIToken == "" {
			return "", fmt.Errorf("token file %s has no apitoken", c.Auth.TokenFile)
		}
		return tf.APIToken, nil
	}

	return "", fmt.Errorf("no API token: set %s, auth.token or auth.token_file", TokenEnvVar)
}
