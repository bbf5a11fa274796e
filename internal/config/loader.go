package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigFileName is the name of the config file without extension
	ConfigFileName = "embedd"
	// ConfigFileExt is the config file extension
	ConfigFileExt = "yaml"
	// EnvPrefix prefixes every environment variable override, e.g. EMBEDD_SERVER_PORT
	EnvPrefix = "EMBEDD"
	// ModelPathEnv overrides model.path without the prefix
	ModelPathEnv = "MODEL_PATH"
)

// flagKeys maps command line flag names to configuration keys
var flagKeys = map[string]string{
	"host":         "server.host",
	"port":         "server.port",
	"log-level":    "server.log_level",
	"log-format":   "server.log_format",
	"pid-file":     "server.pid_file",
	"model":        "model.path",
	"backend":      "model.backend",
	"device":       "model.device",
	"truncate-dim": "model.truncate_dim",
	"ollama-url":   "ollama.url",
	"openai-url":   "openai.url",
}

// Loader handles configuration loading and saving
type Loader struct {
	configFile  string
	searchPaths []string
	flags       *pflag.FlagSet
	v           *viper.Viper
}

// NewLoader creates a new config loader. An empty configFile means the
// loader looks for embedd.yaml in the search paths and tolerates its absence.
func NewLoader(configFile string, searchPaths ...string) *Loader {
	if len(searchPaths) == 0 {
		searchPaths = []string{".", "/etc/embedd"}
	}
	return &Loader{
		configFile:  configFile,
		searchPaths: searchPaths,
		v:           viper.New(),
	}
}

// RegisterFlags defines the command line overrides on fs
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("host", d.Server.Host, "address to listen on")
	fs.Int("port", d.Server.Port, "port to listen on")
	fs.String("log-level", d.Server.LogLevel, "log level (debug, info, warn, error)")
	fs.String("log-format", d.Server.LogFormat, "log format (json, console)")
	fs.String("pid-file", d.Server.PIDFile, "write the process ID to this file")
	fs.String("model", d.Model.Path, "embedding model identifier")
	fs.String("backend", d.Model.Backend, "inference backend (ollama, openai, hash)")
	fs.String("device", d.Model.Device, "inference device")
	fs.Int("truncate-dim", d.Model.TruncateDim, "truncate embeddings to this many dimensions (0 = full)")
	fs.String("ollama-url", d.Ollama.URL, "Ollama base URL")
	fs.String("openai-url", d.OpenAI.URL, "OpenAI-compatible server base URL")
}

// BindFlags makes flags explicitly set on fs take precedence over every
// other source. Flags that fs does not define are ignored.
func (l *Loader) BindFlags(fs *pflag.FlagSet) {
	l.flags = fs
}

// ConfigFileUsed returns the config file read by the last Load, if any
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Load resolves the configuration from defaults, the config file, the
// environment and bound flags, in increasing order of precedence, and
// validates the result.
func (l *Loader) Load() (*Config, error) {
	// Create a fresh viper instance for each load to avoid stale state
	l.v = viper.New()
	setDefaults(l.v, Default())

	l.v.SetEnvPrefix(EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if l.flags != nil {
		for name, key := range flagKeys {
			f := l.flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := l.v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
			}
		}
	}

	if err := l.readConfigFile(); err != nil {
		return nil, err
	}

	// MODEL_PATH beats EMBEDD_MODEL_PATH; only an explicit --model beats it.
	if v, ok := os.LookupEnv(ModelPathEnv); ok && v != "" && !l.flagChanged("model") {
		l.v.Set("model.path", v)
	}

	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := ValidateOrError(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) flagChanged(name string) bool {
	if l.flags == nil {
		return false
	}
	f := l.flags.Lookup(name)
	return f != nil && f.Changed
}

func (l *Loader) readConfigFile() error {
	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
		if err := l.v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", l.configFile, err)
		}
		return nil
	}

	l.v.SetConfigName(ConfigFileName)
	l.v.SetConfigType(ConfigFileExt)
	for _, p := range l.searchPaths {
		l.v.AddConfigPath(p)
	}
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.log_level", d.Server.LogLevel)
	v.SetDefault("server.log_format", d.Server.LogFormat)
	v.SetDefault("server.request_timeout_seconds", d.Server.RequestTimeoutSeconds)
	v.SetDefault("server.shutdown_timeout_seconds", d.Server.ShutdownTimeoutSeconds)
	v.SetDefault("server.pid_file", d.Server.PIDFile)

	v.SetDefault("model.path", d.Model.Path)
	v.SetDefault("model.backend", d.Model.Backend)
	v.SetDefault("model.device", d.Model.Device)
	v.SetDefault("model.truncate_dim", d.Model.TruncateDim)
	v.SetDefault("model.batch_size", d.Model.BatchSize)
	v.SetDefault("model.max_concurrency", d.Model.MaxConcurrency)
	v.SetDefault("model.serialize", d.Model.Serialize)
	v.SetDefault("model.query_prompt", d.Model.QueryPrompt)
	v.SetDefault("model.load_timeout_seconds", d.Model.LoadTimeoutSeconds)

	v.SetDefault("ollama.url", d.Ollama.URL)
	v.SetDefault("ollama.keep_alive", d.Ollama.KeepAlive)
	v.SetDefault("openai.url", d.OpenAI.URL)
	v.SetDefault("openai.api_key", d.OpenAI.APIKey)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
}

// LoadDotEnv loads environment variables from .env files without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Save writes the configuration to path as YAML, creating parent
// directories as needed.
func Save(cfg *Config, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Init writes a default configuration to path. It refuses to overwrite
// an existing file.
func Init(path string) (*Config, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("config already exists at %s", path)
	}

	cfg := Default()
	if err := Save(cfg, path); err != nil {
		return nil, err
	}
	return cfg, nil
}
