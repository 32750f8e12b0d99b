package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/ryabkov82/biometric-sender/internal/ingest"
)

// AppName is used for the config directory
const AppName = "biometric-sender"

// Config holds all settings. Zero values mean "not set" until Default fills them.
type Config struct {
	APIURL        string            `yaml:"api_url"`
	AuthToken     string            `yaml:"auth_token"`
	Headers       map[string]string `yaml:"headers,omitempty"`
	Timeout       string            `yaml:"timeout"`
	Gzip          bool              `yaml:"gzip"`
	Probe         bool              `yaml:"probe"`
	CSV           CSVConfig         `yaml:"csv"`
	Files         FilesConfig       `yaml:"files"`
	Output        string            `yaml:"output"`
	HTMLOutput    string            `yaml:"html_output"`
	WarningsJSONL string            `yaml:"warnings_jsonl"`
	Serve         ServeConfig       `yaml:"serve"`
}

// CSVConfig controls CSV decoding
type CSVConfig struct {
	Encoding  string `yaml:"encoding"`
	Delimiter string `yaml:"delimiter"`
}

// FilesConfig controls biometric file resolution
type FilesConfig struct {
	BaseDir    string   `yaml:"base_dir"`
	Restrict   bool     `yaml:"restrict"`
	AcceptMIME []string `yaml:"accept_mime,omitempty"`
}

// ServeConfig holds settings for serve mode
type ServeConfig struct {
	Addr           string `yaml:"addr"`
	AllowedBaseDir string `yaml:"allowed_base_dir"`
	APIKey         string `yaml:"-"` // env only
}

// Default returns the built-in defaults
func Default() *Config {
	return &Config{
		Timeout: "30s",
		Probe:   true,
		CSV: CSVConfig{
			Encoding:  "utf-8",
			Delimiter: ",",
		},
		Output: "upload_report.json",
		Serve: ServeConfig{
			Addr: ":8080",
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/biometric-sender/config.yaml
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// Load reads the YAML file at path on top of the defaults. When path is
// empty the default location is used and a missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config as YAML, creating parent directories
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ApplyEnv overrides settings from the environment. getenv is usually os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("BIOMETRIC_API_URL"); v != "" {
		c.APIURL = v
	}
	if v := getenv("BIOMETRIC_AUTH_TOKEN"); v != "" {
		c.AuthToken = v
	}
	if v := getenv("BIOMETRIC_ALLOWED_BASE_DIR"); v != "" {
		c.Serve.AllowedBaseDir = v
	}
	if v := getenv("BIOMETRIC_SERVE_ADDR"); v != "" {
		c.Serve.Addr = v
	}
	if v := getenv("BIOMETRIC_SERVE_API_KEY"); v != "" {
		c.Serve.APIKey = v
	}
}

// TimeoutDuration parses Timeout, falling back to 30s when unset
func (c *Config) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// CSVOptions converts the csv section for the ingest package
func (c *Config) CSVOptions() ingest.CSVOptions {
	return ingest.CSVOptions{Encoding: c.CSV.Encoding, Delimiter: c.CSV.Delimiter}
}

// Validate checks values that cannot be fixed by defaults
func (c *Config) Validate() error {
	if c.Timeout != "" {
		d, err := time.ParseDuration(c.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
		}
	}
	if err := ingest.ValidateCSVOptions(c.CSVOptions()); err != nil {
		return err
	}
	if c.Files.Restrict && c.Files.BaseDir == "" {
		return errors.New("files.restrict requires files.base_dir")
	}
	return nil
}
