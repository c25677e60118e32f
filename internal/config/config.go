package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	defaultModel   = "openrouter/sonoma-sky-alpha"
	defaultBaseURL = "https://openrouter.ai/api/v1"
	defaultBrowser = "yandex-browser"
	defaultPort    = 8085
)

// DefaultMultimodalModels lists the models known to accept image_url content
// parts. Extendable via the config file; everything else gets the image URL
// inlined as text.
var DefaultMultimodalModels = []string{
	"anthropic/claude-3.5-sonnet",
	"anthropic/claude-3.5-haiku",
	"anthropic/claude-3-haiku",
	"anthropic/claude-3-opus",
	"openai/gpt-4o",
	"openai/gpt-4o-mini",
	"openai/chatgpt-4o-latest",
	"meta-llama/llama-3.2-90b-vision-instruct",
	"meta-llama/llama-3.2-11b-vision-instruct",
	"x-ai/grok-2-vision-1212",
	"openrouter/sonoma-sky-alpha",
}

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Browser string
	Port    int

	ScreenshotDir string
	HistoryDir    string
	RetentionDays int

	MultimodalModels []string

	Storage StorageConfig
}

// StorageConfig holds optional MinIO settings for the private upload target.
type StorageConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Overrides carries CLI flag values; non-zero fields win over file and env.
type Overrides struct {
	APIKey  string
	Model   string
	Browser string
	Port    int
}

// fileConfig is the optional YAML config file shape.
type fileConfig struct {
	Model            string   `yaml:"model"`
	Browser          string   `yaml:"browser"`
	Port             int      `yaml:"port"`
	ScreenshotDir    string   `yaml:"screenshot_dir"`
	HistoryDir       string   `yaml:"history_dir"`
	RetentionDays    *int     `yaml:"retention_days"`
	MultimodalModels []string `yaml:"multimodal_models"`
}

// Load builds the configuration from defaults, the optional config file,
// environment variables, and CLI overrides, in that order. A missing API key
// is a fatal configuration error. Both capture directories are created.
func Load(ov Overrides) (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home dir: %w", err)
	}

	cfg := &Config{
		Model:            defaultModel,
		BaseURL:          defaultBaseURL,
		Browser:          defaultBrowser,
		Port:             defaultPort,
		ScreenshotDir:    filepath.Join(home, ".screenq", "screenshots"),
		HistoryDir:       filepath.Join(home, ".screenq", "history"),
		RetentionDays:    7,
		MultimodalModels: append([]string(nil), DefaultMultimodalModels...),
	}

	if err := cfg.applyFile(home); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyOverrides(ov)
	cfg.Storage = loadStorageConfig()

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENROUTER_API_KEY not set (or pass -api-key)")
	}

	for _, dir := range []string{cfg.ScreenshotDir, cfg.HistoryDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create dir %s: %w", dir, err)
		}
	}

	return cfg, nil
}

func (c *Config) applyFile(home string) error {
	path := os.Getenv("SCREENQ_CONFIG")
	if path == "" {
		path = filepath.Join(home, ".config", "screenq", "config.yml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.Model != "" {
		c.Model = fc.Model
	}
	if fc.Browser != "" {
		c.Browser = fc.Browser
	}
	if fc.Port > 0 {
		c.Port = fc.Port
	}
	if fc.ScreenshotDir != "" {
		c.ScreenshotDir = fc.ScreenshotDir
	}
	if fc.HistoryDir != "" {
		c.HistoryDir = fc.HistoryDir
	}
	if fc.RetentionDays != nil {
		c.RetentionDays = *fc.RetentionDays
	}
	c.MultimodalModels = append(c.MultimodalModels, fc.MultimodalModels...)

	return nil
}

func (c *Config) applyEnv() {
	overrideString(&c.APIKey, "OPENROUTER_API_KEY")
	overrideString(&c.Model, "OPENROUTER_MODEL")
	overrideString(&c.BaseURL, "OPENROUTER_BASE_URL")
	overrideString(&c.Browser, "SCREENQ_BROWSER")
	overrideInt(&c.Port, "SCREENQ_PORT")
	overrideString(&c.ScreenshotDir, "SCREENQ_SCREENSHOT_DIR")
	overrideString(&c.HistoryDir, "SCREENQ_HISTORY_DIR")
	overrideInt(&c.RetentionDays, "SCREENQ_RETENTION_DAYS")
}

func (c *Config) applyOverrides(ov Overrides) {
	if ov.APIKey != "" {
		c.APIKey = ov.APIKey
	}
	if ov.Model != "" {
		c.Model = ov.Model
	}
	if ov.Browser != "" {
		c.Browser = ov.Browser
	}
	if ov.Port > 0 {
		c.Port = ov.Port
	}
}

func loadStorageConfig() StorageConfig {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		endpoint = "localhost:9000"
	}

	bucket := os.Getenv("MINIO_BUCKET")
	if bucket == "" {
		bucket = "screenq-captures"
	}

	accessKey := os.Getenv("MINIO_ACCESS_KEY")
	secretKey := os.Getenv("MINIO_SECRET_KEY")

	return StorageConfig{
		Enabled:   accessKey != "" && secretKey != "",
		Endpoint:  endpoint,
		AccessKey: accessKey,
		SecretKey: secretKey,
		Bucket:    bucket,
		UseSSL:    os.Getenv("MINIO_USE_SSL") == "true",
	}
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func overrideInt(dst *int, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}
