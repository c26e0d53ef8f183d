package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default backend endpoints. All of them are placeholders until overridden
// by the config file or environment; the stub server serves compatible
// routes on localhost for development.
const (
	DefaultContentURL = "http://localhost:8080"
	DefaultDocsURL    = "http://localhost:8080/svc/docs"
	DefaultHTMLURL    = "http://localhost:8080/svc/html"
	DefaultExcelURL   = "http://localhost:8080/svc/excel"
	DefaultSlicerURL  = "http://localhost:8080/svc/slicer"
)

// Default client settings. Generation is a single blocking request while
// the backend does the work, so its timeout is much longer than the
// ordinary request timeout.
const (
	DefaultRequestTimeout  = 30 * time.Second
	DefaultGenerateTimeout = 90 * time.Second
)

// Config holds all reportkit client configuration. Backend URLs are opaque
// injected values, never computed.
type Config struct {
	ContentURL string `yaml:"content_url"`
	DocsURL    string `yaml:"docs_url"`
	HTMLURL    string `yaml:"html_url"`
	ExcelURL   string `yaml:"excel_url"`
	SlicerURL  string `yaml:"slicer_url"`

	RequestTimeout  time.Duration `yaml:"request_timeout"`
	GenerateTimeout time.Duration `yaml:"generate_timeout"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Default returns a Config with default endpoints and settings.
func Default() Config {
	return Config{
		ContentURL:      DefaultContentURL,
		DocsURL:         DefaultDocsURL,
		HTMLURL:         DefaultHTMLURL,
		ExcelURL:        DefaultExcelURL,
		SlicerURL:       DefaultSlicerURL,
		RequestTimeout:  DefaultRequestTimeout,
		GenerateTimeout: DefaultGenerateTimeout,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// Dir returns the reportkit config directory (~/.reportkit).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("find home directory: %w", err)
	}
	return filepath.Join(home, ".reportkit"), nil
}

// DefaultPath returns the default config file path (~/.reportkit/config.yaml).
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads configuration with the following precedence, lowest first:
// built-in defaults, the YAML file at path, then REPORTKIT_* environment
// variables. A missing file is not an error. A .env file in the working
// directory is loaded first so environment overrides work in development.
func Load(path string) (Config, error) {
	_ = godotenv.Load() // best effort; absence is the normal case

	cfg := Default()

	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return cfg, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults + env only.
	case err != nil:
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

// Save writes the configuration to path, creating the directory if needed.
func (c Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString(&cfg.ContentURL, "REPORTKIT_CONTENT_URL")
	setString(&cfg.DocsURL, "REPORTKIT_DOCS_URL")
	setString(&cfg.HTMLURL, "REPORTKIT_HTML_URL")
	setString(&cfg.ExcelURL, "REPORTKIT_EXCEL_URL")
	setString(&cfg.SlicerURL, "REPORTKIT_SLICER_URL")
	setString(&cfg.LogLevel, "REPORTKIT_LOG_LEVEL")
	setString(&cfg.LogFormat, "REPORTKIT_LOG_FORMAT")

	if v := os.Getenv("REPORTKIT_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RequestTimeout = d
		}
	}
	if v := os.Getenv("REPORTKIT_GENERATE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.GenerateTimeout = d
		}
	}
}
