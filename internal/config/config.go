package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Rotation modes for the theme of the day
const (
	RotationDaily = "daily"
	RotationQueue = "queue"
)

type Config struct {
	Port         string        `mapstructure:"port"`
	DBPath       string        `mapstructure:"db_path"`
	VaultPath    string        `mapstructure:"vault_path"`
	Timezone     string        `mapstructure:"timezone"`
	Tokens       string        `mapstructure:"tokens"`
	RotationMode string        `mapstructure:"rotation_mode"`
	Log          LoggingConfig `mapstructure:"log"`

	actors map[string]string
}

// LoggingConfig holds settings for the logger. An empty Directory disables the file core.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Directory  string `mapstructure:"directory"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("db_path", "")
	v.SetDefault("vault_path", "")
	v.SetDefault("timezone", "Europe/London")
	v.SetDefault("tokens", "")
	v.SetDefault("rotation_mode", RotationDaily)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.directory", "")
	v.SetDefault("log.max_size", 10) // MB
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 7) // days
	v.SetDefault("log.compress", true)
}

// Load reads config.yaml from configDir (optional) and PARAMI_* environment
// variables, e.g. PARAMI_DB_PATH or PARAMI_LOG_DIRECTORY.
func Load(configDir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configDir != "" {
		v.AddConfigPath(filepath.Clean(configDir))
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("PARAMI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configDir != "" {
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("PARAMI_DB_PATH is required")
	}
	if c.RotationMode != RotationDaily && c.RotationMode != RotationQueue {
		return fmt.Errorf("PARAMI_ROTATION_MODE must be %q or %q, got %q", RotationDaily, RotationQueue, c.RotationMode)
	}
	actors, err := parseTokens(c.Tokens)
	if err != nil {
		return err
	}
	if len(actors) == 0 {
		return fmt.Errorf("PARAMI_TOKENS is required")
	}
	c.actors = actors
	return nil
}

// parseTokens reads "actor:token,actor:token" into a token -> actor map
func parseTokens(raw string) (map[string]string, error) {
	actors := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		actor, token, ok := strings.Cut(pair, ":")
		actor, token = strings.TrimSpace(actor), strings.TrimSpace(token)
		if !ok || actor == "" || token == "" {
			return nil, fmt.Errorf("PARAMI_TOKENS: malformed entry %q, want actor:token", pair)
		}
		if prev, dup := actors[token]; dup {
			return nil, fmt.Errorf("PARAMI_TOKENS: token for %q is also used by %q", actor, prev)
		}
		actors[token] = actor
	}
	return actors, nil
}

func (c *Config) ActorFromToken(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	actor, ok := c.actors[token]
	return actor, ok
}

// Actors lists every configured actor, in no particular order
func (c *Config) Actors() []string {
	out := make([]string, 0, len(c.actors))
	for _, a := range c.actors {
		out = append(out, a)
	}
	return out
}

// WithTokens returns a copy of c using the given actor -> token pairs. Used
// by tests and the CLI where no environment is loaded.
func (c Config) WithTokens(pairs map[string]string) *Config {
	c.actors = make(map[string]string, len(pairs))
	for actor, token := range pairs {
		c.actors[token] = actor
	}
	return &c
}
