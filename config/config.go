// Package config loads the run configuration from an mtl.yaml file at the
// project root and applies defaults for everything the file omits.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Baconana-chan/BaconanaMTLTool-sub000/lang"
	"github.com/Baconana-chan/BaconanaMTLTool-sub000/provider"
)

// FileName is the configuration file looked up at the project root.
const FileName = "mtl.yaml"

// Provider is one configured translation provider.
type Provider struct {
	// Name identifies the provider in logs and failure bookkeeping.
	Name string `yaml:"name"`
	// BaseURL is the OpenAI-compatible API base.
	BaseURL string `yaml:"base_url"`
	// APIKey is the literal key. Prefer APIKeyEnv in committed files.
	APIKey string `yaml:"api_key"`
	// APIKeyEnv names an environment variable holding the key.
	APIKeyEnv string `yaml:"api_key_env"`
	// Model is the model identifier.
	Model string `yaml:"model"`
	// Priority orders fallback; lower numbers are tried first.
	Priority int `yaml:"priority"`
	// Proxy is an optional HTTP/HTTPS proxy URL.
	Proxy string `yaml:"proxy"`
	// Timeout bounds one call to this provider.
	Timeout time.Duration `yaml:"timeout"`
}

// Config is the full run configuration.
type Config struct {
	// TargetLanguage is the human-readable translation target.
	TargetLanguage string `yaml:"target_language"`
	// BatchSize is how many units go into one provider call.
	BatchSize int `yaml:"batch_size"`
	// FileWorkers is the file-level concurrency bound.
	FileWorkers int `yaml:"file_workers"`
	// BatchWorkers is the per-file batch-level concurrency bound.
	BatchWorkers int `yaml:"batch_workers"`
	// Timeout is the per-call timeout applied by the orchestrator.
	Timeout time.Duration `yaml:"timeout"`
	// MaxRetries bounds rate-limit retries per batch.
	MaxRetries int `yaml:"max_retries"`
	// RateLimitCooldown is the sleep before retrying a rate-limited batch.
	RateLimitCooldown time.Duration `yaml:"rate_limit_cooldown"`
	// Slack is the byte margin for binary in-place substitution.
	Slack int `yaml:"slack"`
	// EnabledCodes is the RPG Maker event-code allow-list. Empty selects
	// the recommended main-dialogue codes.
	EnabledCodes []int `yaml:"enabled_codes"`
	// SystemPrompt overrides the built-in translation prompt.
	SystemPrompt string `yaml:"system_prompt"`
	// Providers in fallback order (sorted by Priority after load).
	Providers []Provider `yaml:"providers"`
	// ProviderMaxFailures is the consecutive-failure threshold putting a
	// provider into cooldown.
	ProviderMaxFailures int `yaml:"provider_max_failures"`
	// ProviderCooldown is how long a failing provider is benched.
	ProviderCooldown time.Duration `yaml:"provider_cooldown"`
}

// Default returns the configuration used when no mtl.yaml exists.
func Default() *Config {
	return &Config{
		TargetLanguage:      "English",
		BatchSize:           10,
		FileWorkers:         1,
		BatchWorkers:        3,
		Timeout:             120 * time.Second,
		MaxRetries:          3,
		RateLimitCooldown:   60 * time.Second,
		Slack:               10,
		ProviderMaxFailures: provider.DefaultMaxFailures,
		ProviderCooldown:    provider.DefaultCooldown,
	}
}

// Load reads mtl.yaml under root. A missing file yields the defaults; a
// present but malformed file is an error.
func Load(root string) (*Config, error) {
	path := filepath.Join(root, FileName)
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.applyDefaults()
	sort.SliceStable(cfg.Providers, func(i, j int) bool {
		return cfg.Providers[i].Priority < cfg.Providers[j].Priority
	})
	return cfg, nil
}

func (c *Config) applyDefaults() {
	d := Default()
	if c.TargetLanguage == "" {
		c.TargetLanguage = d.TargetLanguage
	}
	// "ru" and "Russian" are both accepted; the prompt wants the name.
	c.TargetLanguage = lang.Resolve(c.TargetLanguage)
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.FileWorkers <= 0 {
		c.FileWorkers = d.FileWorkers
	}
	if c.BatchWorkers <= 0 {
		c.BatchWorkers = d.BatchWorkers
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.RateLimitCooldown <= 0 {
		c.RateLimitCooldown = d.RateLimitCooldown
	}
	if c.Slack <= 0 {
		c.Slack = d.Slack
	}
	if c.ProviderMaxFailures <= 0 {
		c.ProviderMaxFailures = d.ProviderMaxFailures
	}
	if c.ProviderCooldown <= 0 {
		c.ProviderCooldown = d.ProviderCooldown
	}
}

// ResolveKey returns the API key for a provider, preferring the literal
// value over the environment variable.
func (p *Provider) ResolveKey() string {
	if p.APIKey != "" {
		return p.APIKey
	}
	if p.APIKeyEnv != "" {
		return os.Getenv(p.APIKeyEnv)
	}
	return ""
}

// Clients builds the provider clients in fallback order.
func (c *Config) Clients() ([]provider.Client, error) {
	if len(c.Providers) == 0 {
		return nil, fmt.Errorf("no providers configured; add a providers section to %s", FileName)
	}
	clients := make([]provider.Client, 0, len(c.Providers))
	for i, p := range c.Providers {
		if p.Name == "" {
			return nil, fmt.Errorf("provider %d has no name", i)
		}
		if p.BaseURL == "" {
			return nil, fmt.Errorf("provider %s has no base_url", p.Name)
		}
		clients = append(clients, &provider.HTTPClient{
			Name:           p.Name,
			BaseURL:        p.BaseURL,
			APIKey:         p.ResolveKey(),
			Model:          p.Model,
			Proxy:          p.Proxy,
			Timeout:        p.Timeout,
			SystemPrompt:   c.SystemPrompt,
			TargetLanguage: c.TargetLanguage,
		})
	}
	return clients, nil
}
