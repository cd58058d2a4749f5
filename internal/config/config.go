package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config is the root configuration for tp, stored in ~/.timeplan/config.json.
// The file supports single-line // comments for documentation purposes.
// Every key can be overridden by a TIMEPLAN_ environment variable, e.g.
// TIMEPLAN_SERVER_URL for server.url.
type Config struct {
	// DataDir holds the local database or day files.
	DataDir string
	Store   StoreConfig
	User    UserConfig
	Server  ServerConfig
	Planner PlannerConfig
	// AdminEmails is the comma separated signup admin allow-list.
	AdminEmails string
	Timer       TimerConfig
}

type StoreConfig struct {
	// Driver is "bolt" or "file".
	Driver string
}

type UserConfig struct {
	// Email identifies the local user when no server is configured.
	Email string
}

// ServerConfig covers both sides of the HTTP data service: Addr is where
// tp serve listens, URL and Token are what the CLI uses to reach a server.
type ServerConfig struct {
	Addr  string
	URL   string
	Token string
}

type PlannerConfig struct {
	BaseURL string
	Model   string
	APIKey  string
}

type TimerConfig struct {
	TickInterval time.Duration
}

const (
	DriverBolt = "bolt"
	DriverFile = "file"

	DefaultDataDir      = "~/.timeplan"
	DefaultEmail        = "me@localhost"
	DefaultAddr         = ":8080"
	DefaultBaseURL      = "https://api.openai.com/v1"
	DefaultModel        = "gpt-3.5-turbo"
	DefaultTickInterval = time.Second
)

// Remote reports whether the CLI talks to an HTTP data service instead of the
// local store.
func (c Config) Remote() bool {
	return c.Server.URL != ""
}

// configTemplate is the annotated config written on first run.
// Lines whose trimmed content starts with // are stripped before JSON parsing.
const configTemplate = `// tp configuration: ~/.timeplan/config.json
//
// All settings are optional. Any key can be overridden from the environment
// with the TIMEPLAN_ prefix, dots replaced by underscores
// (e.g. TIMEPLAN_STORE_DRIVER=file).
{
  // Directory for the local database / day files.
  "data_dir": "~/.timeplan",

  "store": {
    // "bolt" keeps everything in one timeplan.db file.
    // "file" writes one JSON file per day, readable and diffable.
    "driver": "bolt"
  },

  "user": {
    // Local user the CLI acts as when no server is configured.
    "email": "me@localhost"
  },

  "server": {
    // Listen address of: tp serve
    "addr": ":8080",
    // Base URL of a remote tp serve. Leave empty to use the local store.
    "url": "",
    // API token printed by: tp signup <email>
    "token": ""
  },

  "planner": {
    // OpenAI-compatible chat completions endpoint used by: tp plan
    "base_url": "https://api.openai.com/v1",
    "model": "gpt-3.5-turbo",
    // Also read from OPENAI_API_KEY.
    "api_key": ""
  },

  // Comma separated emails that become admins at signup. Also read from ADMIN_EMAILS.
  "admin_emails": "",

  "timer": {
    // Refresh interval of the running timer display.
    "tick_interval": "1s"
  }
}
`

// DefaultPath returns ~/.timeplan/config.json.
func DefaultPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".timeplan", "config.json"), nil
}

// stripLineComments removes lines whose leading non-whitespace content starts
// with //. Only full-line comments are handled; inline comments are not stripped.
func stripLineComments(data []byte) []byte {
	var out []byte
	for _, line := range bytes.Split(data, []byte("\n")) {
		if bytes.HasPrefix(bytes.TrimLeft(line, " \t"), []byte("//")) {
			continue
		}
		out = append(out, line...)
		out = append(out, '\n')
	}
	return out
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("json")
	v.SetDefault("data_dir", DefaultDataDir)
	v.SetDefault("store.driver", DriverBolt)
	v.SetDefault("user.email", DefaultEmail)
	v.SetDefault("server.addr", DefaultAddr)
	v.SetDefault("server.url", "")
	v.SetDefault("server.token", "")
	v.SetDefault("planner.base_url", DefaultBaseURL)
	v.SetDefault("planner.model", DefaultModel)
	v.SetDefault("planner.api_key", "")
	v.SetDefault("admin_emails", "")
	v.SetDefault("timer.tick_interval", DefaultTickInterval.String())

	v.SetEnvPrefix("TIMEPLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("admin_emails", "TIMEPLAN_ADMIN_EMAILS", "ADMIN_EMAILS")
	_ = v.BindEnv("planner.api_key", "TIMEPLAN_PLANNER_API_KEY", "OPENAI_API_KEY")
	return v
}

// Load reads the config at path (DefaultPath when empty), creating it with
// annotated defaults on first run, and applies environment overrides.
func Load(path string) (Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return Config{}, err
		}
		path = p
	}

	v := newViper()
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// First run: write the annotated template so users can discover options.
		if writeErr := writeDefault(path); writeErr != nil {
			slog.Warn("could not create config file", "path", path, "err", writeErr)
		}
	case err != nil:
		return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
	default:
		if err := v.ReadConfig(bytes.NewReader(stripLineComments(data))); err != nil {
			return Config{}, fmt.Errorf("parsing config file %s: %w\nTip: delete the file to regenerate defaults", path, err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	dataDir, err := homedir.Expand(v.GetString("data_dir"))
	if err != nil {
		return Config{}, fmt.Errorf("expanding data_dir: %w", err)
	}

	cfg := Config{
		DataDir:     dataDir,
		Store:       StoreConfig{Driver: strings.ToLower(v.GetString("store.driver"))},
		User:        UserConfig{Email: v.GetString("user.email")},
		AdminEmails: v.GetString("admin_emails"),
		Server: ServerConfig{
			Addr:  v.GetString("server.addr"),
			URL:   strings.TrimRight(v.GetString("server.url"), "/"),
			Token: v.GetString("server.token"),
		},
		Planner: PlannerConfig{
			BaseURL: v.GetString("planner.base_url"),
			Model:   v.GetString("planner.model"),
			APIKey:  v.GetString("planner.api_key"),
		},
		Timer: TimerConfig{TickInterval: v.GetDuration("timer.tick_interval")},
	}

	if cfg.Store.Driver != DriverBolt && cfg.Store.Driver != DriverFile {
		return Config{}, fmt.Errorf("store.driver must be %q or %q, got %q", DriverBolt, DriverFile, cfg.Store.Driver)
	}
	if cfg.Timer.TickInterval <= 0 {
		return Config{}, fmt.Errorf("timer.tick_interval must be positive, got %q", v.GetString("timer.tick_interval"))
	}
	if cfg.User.Email == "" {
		cfg.User.Email = DefaultEmail
	}
	return cfg, nil
}

// writeDefault creates the config directory and writes the annotated default
// config template.
func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0o600); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}
