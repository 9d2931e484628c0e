// Package config assembles server settings from defaults, an optional YAML
// file, a .env file and the process environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultModelPro    = "gemini-1.5-pro-latest"
	DefaultModelLight  = "gemini-1.5-flash-latest"
	DefaultImageModel  = "imagen-3.0-generate-001"
	DefaultBucket      = "para-bucket"
	DefaultHTTPAddr    = ":8080"
	DefaultDBPath      = "./para.db"
	DefaultHTTPTimeout = 60 * time.Second
	DefaultRunLimit    = 60
)

type Config struct {
	DBPath   string `yaml:"db_path"`
	HTTPAddr string `yaml:"http_addr"`

	SupabaseURL        string `yaml:"supabase_url"`
	SupabaseServiceKey string `yaml:"supabase_service_role_key"`
	StorageBucket      string `yaml:"storage_bucket"`
	AssetDir           string `yaml:"asset_dir"`
	PublicURL          string `yaml:"public_url"`

	GeminiAPIKey  string `yaml:"gemini_api_key"`
	GeminiBaseURL string `yaml:"gemini_base_url"`
	ModelPro      string `yaml:"model_pro"`
	ModelLight    string `yaml:"model_light"`
	ImageModel    string `yaml:"image_model"`

	TavilyAPIKey  string `yaml:"tavily_api_key"`
	TavilyBaseURL string `yaml:"tavily_base_url"`

	APIToken     string        `yaml:"api_token"`
	RunRateLimit int           `yaml:"run_rate_limit"`
	HTTPTimeout  time.Duration `yaml:"http_timeout"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// ConfigError names the first missing setting a run needs.
type ConfigError struct {
	Key string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", e.Key)
}

func Defaults() Config {
	return Config{
		DBPath:        DefaultDBPath,
		HTTPAddr:      DefaultHTTPAddr,
		StorageBucket: DefaultBucket,
		ModelPro:      DefaultModelPro,
		ModelLight:    DefaultModelLight,
		ImageModel:    DefaultImageModel,
		RunRateLimit:  DefaultRunLimit,
		HTTPTimeout:   DefaultHTTPTimeout,
		LogLevel:      "info",
		LogFormat:     "json",
	}
}

// Load builds a Config. yamlPath may be empty. A .env file in the working
// directory is read without overriding variables already set.
func Load(yamlPath string) (Config, error) {
	cfg := Defaults()
	if yamlPath != "" {
		if err := cfg.mergeFile(yamlPath); err != nil {
			return Config{}, err
		}
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && strings.TrimSpace(v) != "" {
				*dst = strings.TrimSpace(v)
				return
			}
		}
	}
	str(&c.DBPath, "PARA_DB_PATH")
	str(&c.HTTPAddr, "PARA_HTTP_ADDR")
	str(&c.SupabaseURL, "SUPABASE_URL", "PARA_SUPABASE_URL")
	str(&c.SupabaseServiceKey, "SUPABASE_SERVICE_ROLE_KEY", "PARA_SUPABASE_SERVICE_ROLE_KEY")
	str(&c.StorageBucket, "SUPABASE_STORAGE_BUCKET")
	str(&c.AssetDir, "PARA_ASSET_DIR")
	str(&c.PublicURL, "PARA_PUBLIC_URL")
	str(&c.GeminiAPIKey, "GEMINI_API_KEY")
	str(&c.GeminiBaseURL, "GEMINI_BASE_URL")
	str(&c.ModelPro, "GEMINI_MODEL_PRO")
	str(&c.ModelLight, "GEMINI_MODEL_LIGHT")
	str(&c.ImageModel, "GEMINI_IMAGE_MODEL")
	str(&c.TavilyAPIKey, "TAVILY_API_KEY")
	str(&c.TavilyBaseURL, "TAVILY_BASE_URL")
	str(&c.APIToken, "PARA_API_TOKEN")
	str(&c.LogLevel, "PARA_LOG_LEVEL")
	str(&c.LogFormat, "PARA_LOG_FORMAT")

	if v, ok := lookup("PARA_HTTP_TIMEOUT"); ok && strings.TrimSpace(v) != "" {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("PARA_HTTP_TIMEOUT: %w", err)
		}
		c.HTTPTimeout = d
	}
	if v, ok := lookup("PARA_RUN_RATE_LIMIT"); ok && strings.TrimSpace(v) != "" {
		var n int
		if _, err := fmt.Sscanf(strings.TrimSpace(v), "%d", &n); err != nil {
			return fmt.Errorf("PARA_RUN_RATE_LIMIT: %w", err)
		}
		c.RunRateLimit = n
	}
	return nil
}

// Validate reports the first credential a run cannot proceed without.
// Storage settings are optional: image publishing degrades instead.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.GeminiAPIKey) == "":
		return &ConfigError{Key: "GEMINI_API_KEY"}
	case strings.TrimSpace(c.TavilyAPIKey) == "":
		return &ConfigError{Key: "TAVILY_API_KEY"}
	}
	return nil
}

// SupabaseEnabled reports whether images go to Supabase Storage rather than
// the local asset directory.
func (c Config) SupabaseEnabled() bool {
	return c.SupabaseURL != "" && c.SupabaseServiceKey != ""
}
