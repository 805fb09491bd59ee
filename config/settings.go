// Package config provides application settings.
//
// Settings come from three layers, weakest first: built-in defaults, the
// JSON config file in the data directory, and environment variables. The
// pipeline must run with any of these absent, so a missing or corrupt
// config file falls back to defaults instead of failing.

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Default values applied when neither the config file nor the environment
// says otherwise.
const (
	DefaultMinSessionLength = 100
	DefaultCooldownSeconds  = 300
	DefaultTimeoutSeconds   = 30
	DefaultProvider         = "gemini"
	DefaultDecisionModel    = "gemini-2.5-flash-lite"
	DefaultSuggestionModel  = "gemini-2.5-flash"
	DefaultMaxTokens        = 1024
	DefaultTemperature      = 0.3
)

// Settings holds all application configuration.
type Settings struct {
	Enabled          bool
	MinSessionLength int
	CooldownSeconds  int
	TimeoutSeconds   int
	Provider         string
	DecisionModel    string
	SuggestionModel  string
	MaxTokens        uint32
	Temperature      float64
	DataDir          string
}

// fileSettings mirrors the config.json schema. Pointer fields distinguish
// "absent" from zero so partial files only override what they mention.
type fileSettings struct {
	Enabled          *bool    `json:"enable_suggestions,omitempty"`
	MinSessionLength *int     `json:"min_session_length,omitempty"`
	CooldownSeconds  *int     `json:"suggestion_cooldown,omitempty"`
	TimeoutSeconds   *int     `json:"request_timeout,omitempty"`
	Provider         *string  `json:"provider,omitempty"`
	DecisionModel    *string  `json:"decision_model,omitempty"`
	SuggestionModel  *string  `json:"suggestion_model,omitempty"`
	MaxTokens        *uint32  `json:"max_tokens,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
}

// DefaultDataDir returns the data directory: $SAGE_DATA_DIR if set,
// otherwise ~/.sage (falling back to .sage when the home dir is unknown).
func DefaultDataDir() string {
	if dir := os.Getenv("SAGE_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sage"
	}
	return filepath.Join(home, ".sage")
}

// Load builds settings for the given data directory.
// Returns an error only for invalid environment values; a missing or
// unparseable config file is tolerated and the defaults apply.
func Load(dataDir string) (Settings, error) {
	s := Settings{
		Enabled:          true,
		MinSessionLength: DefaultMinSessionLength,
		CooldownSeconds:  DefaultCooldownSeconds,
		TimeoutSeconds:   DefaultTimeoutSeconds,
		Provider:         DefaultProvider,
		DecisionModel:    DefaultDecisionModel,
		SuggestionModel:  DefaultSuggestionModel,
		MaxTokens:        DefaultMaxTokens,
		Temperature:      DefaultTemperature,
		DataDir:          dataDir,
	}

	s.applyFile(configPath(dataDir))

	if err := s.applyEnv(); err != nil {
		return Settings{}, err
	}

	return s, nil
}

// applyFile overlays values from config.json. Unreadable or malformed
// files are ignored; a damaged config must not disable the whole system.
func (s *Settings) applyFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	var f fileSettings
	if err := json.Unmarshal(data, &f); err != nil {
		return
	}

	if f.Enabled != nil {
		s.Enabled = *f.Enabled
	}
	if f.MinSessionLength != nil {
		s.MinSessionLength = *f.MinSessionLength
	}
	if f.CooldownSeconds != nil {
		s.CooldownSeconds = *f.CooldownSeconds
	}
	if f.TimeoutSeconds != nil {
		s.TimeoutSeconds = *f.TimeoutSeconds
	}
	if f.Provider != nil {
		s.Provider = *f.Provider
	}
	if f.DecisionModel != nil {
		s.DecisionModel = *f.DecisionModel
	}
	if f.SuggestionModel != nil {
		s.SuggestionModel = *f.SuggestionModel
	}
	if f.MaxTokens != nil {
		s.MaxTokens = *f.MaxTokens
	}
	if f.Temperature != nil {
		s.Temperature = *f.Temperature
	}
}

// applyEnv overlays SAGE_* environment variables.
func (s *Settings) applyEnv() error {
	var err error

	if s.Enabled, err = getEnvBool("SAGE_ENABLED", s.Enabled); err != nil {
		return err
	}
	if s.MinSessionLength, err = getEnvInt("SAGE_MIN_SESSION_LENGTH", s.MinSessionLength); err != nil {
		return err
	}
	if s.CooldownSeconds, err = getEnvInt("SAGE_COOLDOWN_SECONDS", s.CooldownSeconds); err != nil {
		return err
	}
	if s.TimeoutSeconds, err = getEnvInt("SAGE_TIMEOUT_SECONDS", s.TimeoutSeconds); err != nil {
		return err
	}
	if v := os.Getenv("SAGE_PROVIDER"); v != "" {
		s.Provider = v
	}
	if v := os.Getenv("SAGE_DECISION_MODEL"); v != "" {
		s.DecisionModel = v
	}
	if v := os.Getenv("SAGE_SUGGESTION_MODEL"); v != "" {
		s.SuggestionModel = v
	}

	return nil
}

// Save writes the settings back to config.json in the data directory.
func (s Settings) Save() error {
	f := fileSettings{
		Enabled:          &s.Enabled,
		MinSessionLength: &s.MinSessionLength,
		CooldownSeconds:  &s.CooldownSeconds,
		TimeoutSeconds:   &s.TimeoutSeconds,
		Provider:         &s.Provider,
		DecisionModel:    &s.DecisionModel,
		SuggestionModel:  &s.SuggestionModel,
		MaxTokens:        &s.MaxTokens,
		Temperature:      &s.Temperature,
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.MkdirAll(s.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(configPath(s.DataDir), data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Cooldown returns the cooldown period as a duration.
func (s Settings) Cooldown() time.Duration {
	return time.Duration(s.CooldownSeconds) * time.Second
}

// Timeout returns the per-capability-call timeout as a duration.
func (s Settings) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// CooldownPath returns the location of the cooldown record.
func (s Settings) CooldownPath() string {
	return filepath.Join(s.DataDir, "last_suggestion")
}

// HistoryPath returns the location of the suggestion history database.
func (s Settings) HistoryPath() string {
	return filepath.Join(s.DataDir, "sage.db")
}

// ConfigPath returns the location of the config file.
func (s Settings) ConfigPath() string {
	return configPath(s.DataDir)
}

func configPath(dataDir string) string {
	return filepath.Join(dataDir, "config.json")
}

// Environment variable helpers with proper error handling

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return b, nil
}
