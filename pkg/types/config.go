// Package types holds configuration types shared by the CLI and the library.
package types

import "time"

// Config represents the tbgclient configuration.
// The same shape is read from JSON, JSONC and YAML files.
type Config struct {
	// Schema reference (for editor support)
	Schema string `json:"$schema,omitempty" yaml:"$schema,omitempty"`

	// Forum endpoints
	ForumURL string `json:"forumURL,omitempty" yaml:"forumURL,omitempty"`
	ChatURL  string `json:"chatURL,omitempty" yaml:"chatURL,omitempty"`

	// Credentials used by `tbgclient login` when flags are omitted
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`

	UserAgent string `json:"userAgent,omitempty" yaml:"userAgent,omitempty"`

	// Request timeout in seconds
	Timeout int `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// Raise on HTTP status >= 400 (default true)
	RaiseOnErrorCode *bool `json:"raiseOnErrorCode,omitempty" yaml:"raiseOnErrorCode,omitempty"`

	Retry *RetryConfig `json:"retry,omitempty" yaml:"retry,omitempty"`
	Log   *LogConfig   `json:"log,omitempty" yaml:"log,omitempty"`
	Chat  *ChatConfig  `json:"chat,omitempty" yaml:"chat,omitempty"`
}

// RetryConfig controls retries of idempotent requests.
type RetryConfig struct {
	MaxRetries      int    `json:"maxRetries,omitempty" yaml:"maxRetries,omitempty"`
	InitialInterval string `json:"initialInterval,omitempty" yaml:"initialInterval,omitempty"` // "500ms"
	MaxInterval     string `json:"maxInterval,omitempty" yaml:"maxInterval,omitempty"`
}

// Initial returns the parsed initial interval, or fallback when unset or invalid.
func (r *RetryConfig) Initial(fallback time.Duration) time.Duration {
	return parseDuration(r, func(r *RetryConfig) string { return r.InitialInterval }, fallback)
}

// Max returns the parsed maximum interval, or fallback when unset or invalid.
func (r *RetryConfig) Max(fallback time.Duration) time.Duration {
	return parseDuration(r, func(r *RetryConfig) string { return r.MaxInterval }, fallback)
}

func parseDuration(r *RetryConfig, field func(*RetryConfig) string, fallback time.Duration) time.Duration {
	if r == nil || field(r) == "" {
		return fallback
	}
	d, err := time.ParseDuration(field(r))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"` // DEBUG|INFO|WARN|ERROR
	Pretty bool   `json:"pretty,omitempty" yaml:"pretty,omitempty"`
	File   bool   `json:"file,omitempty" yaml:"file,omitempty"`
	Dir    string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// ChatConfig holds chat client settings.
type ChatConfig struct {
	// Poll interval in milliseconds
	PollInterval int  `json:"pollInterval,omitempty" yaml:"pollInterval,omitempty"`
	NoColor      bool `json:"noColor,omitempty" yaml:"noColor,omitempty"`
}

// ShouldRaiseOnErrorCode reports whether HTTP error codes become errors.
func (c *Config) ShouldRaiseOnErrorCode() bool {
	return c.RaiseOnErrorCode == nil || *c.RaiseOnErrorCode
}

// RequestTimeout returns the configured timeout or 30 seconds.
func (c *Config) RequestTimeout() time.Duration {
	if c.Timeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Timeout) * time.Second
}

// PollInterval returns the chat poll interval or one second.
func (c *Config) PollInterval() time.Duration {
	if c.Chat == nil || c.Chat.PollInterval <= 0 {
		return time.Second
	}
	return time.Duration(c.Chat.PollInterval) * time.Millisecond
}
