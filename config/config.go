// Package config assembles the process configuration from defaults, an
// optional JSON file and the environment.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jonwraymond/notebookmcp/jupyter"
	"github.com/jonwraymond/notebookmcp/logging"
)

// Environment variables read by FromEnv.
const (
	EnvJupyterURL     = "JUPYTER_SERVER_URL"
	EnvJupyterToken   = "JUPYTER_TOKEN"
	EnvJupyterTimeout = "JUPYTER_TIMEOUT"
	EnvLogLevel       = "NOTEBOOKMCP_LOG_LEVEL"
	EnvLogFormat      = "NOTEBOOKMCP_LOG_FORMAT"
	// EnvDisabledTools is a comma separated list of tool names.
	EnvDisabledTools = "NOTEBOOKMCP_DISABLED_TOOLS"
)

// ErrConfiguration indicates an invalid configuration.
var ErrConfiguration = errors.New("config: invalid configuration")

// Duration is a time.Duration that reads from JSON as a Go duration string
// ("45s") or a number of seconds.
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := parseDuration(s)
		if err != nil {
			return err
		}
		*d = Duration(v)
		return nil
	}
	var secs float64
	if err := json.Unmarshal(b, &secs); err != nil {
		return fmt.Errorf("duration must be a string or a number of seconds: %s", b)
	}
	*d = Duration(secs * float64(time.Second))
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}

// JupyterConfig locates the notebook server.
type JupyterConfig struct {
	URL     string   `json:"url,omitempty"`
	Token   string   `json:"token,omitempty"`
	Timeout Duration `json:"timeout,omitempty"`
}

// LogConfig selects the log level and format.
type LogConfig struct {
	Level  string `json:"level,omitempty"`
	Format string `json:"format,omitempty"`
}

// ServerConfig names the MCP implementation and trims its tool set.
type ServerConfig struct {
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
	// DisabledTools lists tool names that are not exposed.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// Config is the complete process configuration.
type Config struct {
	Jupyter JupyterConfig `json:"jupyter"`
	Log     LogConfig     `json:"log"`
	Server  ServerConfig  `json:"server"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Jupyter: JupyterConfig{
			URL:     jupyter.DefaultBaseURL,
			Timeout: Duration(jupyter.DefaultTimeout),
		},
		Log:    LogConfig{Level: "info", Format: "text"},
		Server: ServerConfig{Name: "notebookmcp", Version: "dev"},
	}
}

// Merge applies the non-zero values of source onto c.
func (c *Config) Merge(source *Config) {
	if source == nil {
		return
	}
	if source.Jupyter.URL != "" {
		c.Jupyter.URL = source.Jupyter.URL
	}
	if source.Jupyter.Token != "" {
		c.Jupyter.Token = source.Jupyter.Token
	}
	if source.Jupyter.Timeout != 0 {
		c.Jupyter.Timeout = source.Jupyter.Timeout
	}
	if source.Log.Level != "" {
		c.Log.Level = source.Log.Level
	}
	if source.Log.Format != "" {
		c.Log.Format = source.Log.Format
	}
	if source.Server.Name != "" {
		c.Server.Name = source.Server.Name
	}
	if source.Server.Version != "" {
		c.Server.Version = source.Server.Version
	}
	if len(source.Server.DisabledTools) > 0 {
		c.Server.DisabledTools = append([]string(nil), source.Server.DisabledTools...)
	}
}

// Load reads a JSON file and merges it over the defaults.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}

// FromEnv returns the values set in the environment; unset variables stay
// zero so the result can be merged. lookup is usually os.LookupEnv.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	var cfg Config
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}
	cfg.Jupyter.URL = get(EnvJupyterURL)
	cfg.Jupyter.Token = get(EnvJupyterToken)
	if raw := get(EnvJupyterTimeout); raw != "" {
		d, err := parseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrConfiguration, EnvJupyterTimeout, err)
		}
		cfg.Jupyter.Timeout = Duration(d)
	}
	cfg.Log.Level = get(EnvLogLevel)
	cfg.Log.Format = get(EnvLogFormat)
	if raw := get(EnvDisabledTools); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			cfg.Server.DisabledTools = append(cfg.Server.DisabledTools, strings.TrimSpace(name))
		}
	}
	return cfg, nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var problems []string
	if u, err := url.Parse(c.Jupyter.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		problems = append(problems, fmt.Sprintf("jupyter.url %q must be an http(s) URL", c.Jupyter.URL))
	}
	if c.Jupyter.Timeout < 0 {
		problems = append(problems, "jupyter.timeout must not be negative")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		problems = append(problems, "log.level: "+err.Error())
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("log.format %q must be text or json", c.Log.Format))
	}
	for _, name := range c.Server.DisabledTools {
		if strings.TrimSpace(name) == "" {
			problems = append(problems, "server.disabled_tools must not contain blank names")
			break
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

// JupyterClientConfig converts the section into a client configuration.
func (c Config) JupyterClientConfig(l logging.Logger) jupyter.Config {
	return jupyter.Config{
		BaseURL: c.Jupyter.URL,
		Token:   c.Jupyter.Token,
		Timeout: time.Duration(c.Jupyter.Timeout),
		Logger:  l,
	}
}

// Logger builds the configured logger writing to w. Validate first; an
// unknown level falls back to info.
func (c Config) Logger(w io.Writer) logging.Logger {
	level, _ := logging.ParseLevel(c.Log.Level)
	return logging.New(level, c.Log.Format, w)
}
