package oauth

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"gopkg.in/yaml.v3"
)

const (
	DefaultStateTTL    = 10 * time.Minute
	DefaultHTTPTimeout = 15 * time.Second

	AppBaseURLEnv  = "APP_BASE_URL"
	DatabaseURLEnv = "DATABASE_URL"
	RedisURLEnv    = "REDIS_URL"
	StateTTLEnv    = "OAUTH_STATE_TTL"
	HTTPTimeoutEnv = "OAUTH_HTTP_TIMEOUT"
)

// Config holds everything the orchestrators need. Per platform credentials
// are optional here and checked when a flow for that platform starts.
type Config struct {
	AppBaseURL    string                           `yaml:"app_base_url" json:"app_base_url"`
	EncryptionKey string                           `yaml:"encryption_key" json:"-"`
	StateTTL      time.Duration                    `yaml:"state_ttl" json:"state_ttl"`
	HTTPTimeout   time.Duration                    `yaml:"http_timeout" json:"http_timeout"`
	DatabaseURL   string                           `yaml:"database_url" json:"-"`
	RedisURL      string                           `yaml:"redis_url" json:"-"`
	ListenAddr    string                           `yaml:"listen_addr" json:"listen_addr"`
	MetricsAddr   string                           `yaml:"metrics_addr" json:"metrics_addr"`
	Providers     map[Platform]ProviderCredentials `yaml:"providers" json:"providers"`
}

// DefaultConfig returns a Config with defaults applied.
func DefaultConfig() Config {
	return Config{
		StateTTL:    DefaultStateTTL,
		HTTPTimeout: DefaultHTTPTimeout,
		ListenAddr:  ":8080",
		MetricsAddr: ":9090",
		Providers:   map[Platform]ProviderCredentials{},
	}
}

// LoadConfig reads an optional YAML file then applies environment
// overrides. An empty path skips the file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	cfg.normalize()
	return cfg, nil
}

// ApplyEnv overrides fields from lookup, e.g. os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	set(AppBaseURLEnv, &c.AppBaseURL)
	set(EncryptionKeyEnv, &c.EncryptionKey)
	set(DatabaseURLEnv, &c.DatabaseURL)
	set(RedisURLEnv, &c.RedisURL)

	for _, key := range []string{StateTTLEnv, HTTPTimeoutEnv} {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		d, err := parseDuration(v)
		if err != nil {
			return InvalidConfiguration(key, err.Error())
		}
		if key == StateTTLEnv {
			c.StateTTL = d
		} else {
			c.HTTPTimeout = d
		}
	}

	if c.Providers == nil {
		c.Providers = map[Platform]ProviderCredentials{}
	}
	for _, p := range AllPlatforms() {
		creds := c.Providers[p]
		set(ClientIDEnv(p), &creds.ClientID)
		set(ClientSecretEnv(p), &creds.ClientSecret)
		if creds != (ProviderCredentials{}) {
			c.Providers[p] = creds
		}
	}
	return nil
}

// Validate checks the settings every process needs.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(
			&c.AppBaseURL,
			validation.Required.Error(AppBaseURLEnv+" not configured"),
			is.URL,
		),
		validation.Field(
			&c.EncryptionKey,
			validation.Required.Error(EncryptionKeyEnv+" not configured"),
			is.Hexadecimal,
			validation.Length(tokenKeySize*2, tokenKeySize*2),
		),
		validation.Field(
			&c.StateTTL,
			validation.Min(time.Minute),
		),
	)
}

// Credentials returns the configured credentials for platform.
func (c Config) Credentials(platform Platform) ProviderCredentials {
	if c.Providers == nil {
		return ProviderCredentials{}
	}
	return c.Providers[platform]
}

// CallbackURL is the redirect uri for platform under AppBaseURL.
func (c Config) CallbackURL(platform Platform) string {
	return CallbackURL(c.AppBaseURL, platform)
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	out := c
	out.EncryptionKey = redact(c.EncryptionKey)
	out.DatabaseURL = redact(c.DatabaseURL)
	out.RedisURL = redact(c.RedisURL)
	out.Providers = make(map[Platform]ProviderCredentials, len(c.Providers))
	for p, creds := range c.Providers {
		out.Providers[p] = ProviderCredentials{
			ClientID:     creds.ClientID,
			ClientSecret: redact(creds.ClientSecret),
		}
	}
	return out
}

// ClientIDEnv is the environment variable holding platform's client id.
func ClientIDEnv(platform Platform) string {
	return string(platform) + "_CLIENT_ID"
}

// ClientSecretEnv is the environment variable holding platform's client secret.
func ClientSecretEnv(platform Platform) string {
	return string(platform) + "_CLIENT_SECRET"
}

func (c *Config) normalize() {
	c.AppBaseURL = strings.TrimRight(c.AppBaseURL, "/")
	if c.StateTTL <= 0 {
		c.StateTTL = DefaultStateTTL
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = DefaultHTTPTimeout
	}
}

func parseDuration(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}

func redact(v string) string {
	if v == "" {
		return ""
	}
	return "********"
}
