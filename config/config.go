package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds everything the API needs at startup. Collaborators receive
// the fields they need through their constructors; nothing reads the
// environment after Load.
type Config struct {
	Port        string
	FrontendURL string
	Production  bool

	SerperAPIKey string
	GoogleAPIKey string
	SerpAPIKey   string

	LLM   LLMConfig
	CORS  CORSConfig
	Cache CacheConfig

	DatabaseURL        string
	SentryDSN          string
	RateLimitPerMinute int
	PlanRateLimit      int
	ImageLimit         int
}

type LLMConfig struct {
	Model       string  `toml:"model"`
	Temperature float32 `toml:"temperature"`
}

type CORSConfig struct {
	Origins []string `toml:"origins"`
}

type CacheConfig struct {
	TTL duration `toml:"ttl"`
}

// fileConfig is the optional TOML overrides file (PLANNER_CONFIG).
type fileConfig struct {
	LLM   LLMConfig   `toml:"llm"`
	CORS  CORSConfig  `toml:"cors"`
	Cache CacheConfig `toml:"cache"`
}

// duration lets the TOML file say ttl = "72h".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MissingConfigurationError lists every required key that was not set.
type MissingConfigurationError struct {
	Keys []string
}

func (e *MissingConfigurationError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", strings.Join(e.Keys, ", "))
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Port:        "8080",
		FrontendURL: "http://localhost:3000",
		LLM: LLMConfig{
			Model:       "gemini-2.5-flash",
			Temperature: 0.5,
		},
		Cache:              CacheConfig{TTL: duration{30 * 24 * time.Hour}},
		DatabaseURL:        "sqlite://planner.db",
		RateLimitPerMinute: 100,
		PlanRateLimit:      10,
		ImageLimit:         12,
	}
}

// Load builds the configuration: defaults, then the TOML file named by
// PLANNER_CONFIG (if any), then environment variables. It does not validate;
// call Validate before starting the server.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("PLANNER_CONFIG"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return cfg, err
		}
	}

	cfg.Production = os.Getenv("GIN_MODE") == "release" || os.Getenv("ENVIRONMENT") == "production"
	cfg.SerperAPIKey = strings.TrimSpace(os.Getenv("SERPER_API_KEY"))
	cfg.GoogleAPIKey = strings.TrimSpace(os.Getenv("GOOGLE_API_KEY"))
	cfg.SerpAPIKey = strings.TrimSpace(os.Getenv("SERP_API_KEY"))
	cfg.SentryDSN = os.Getenv("SENTRY_DSN")

	setString(&cfg.Port, "PORT")
	setString(&cfg.FrontendURL, "FRONTEND_URL")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.LLM.Model, "GEMINI_MODEL")

	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		t, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return cfg, fmt.Errorf("invalid LLM_TEMPERATURE %q: %w", v, err)
		}
		cfg.LLM.Temperature = float32(t)
	}
	if v := os.Getenv("PLAN_CACHE_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid PLAN_CACHE_TTL %q: %w", v, err)
		}
		cfg.Cache.TTL = duration{ttl}
	}
	if err := setInt(&cfg.RateLimitPerMinute, "RATE_LIMIT_PER_MINUTE"); err != nil {
		return cfg, err
	}
	if err := setInt(&cfg.PlanRateLimit, "PLAN_RATE_LIMIT_PER_MINUTE"); err != nil {
		return cfg, err
	}
	if err := setInt(&cfg.ImageLimit, "IMAGE_LIMIT"); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	if fc.LLM.Model != "" {
		c.LLM.Model = fc.LLM.Model
	}
	if fc.LLM.Temperature != 0 {
		c.LLM.Temperature = fc.LLM.Temperature
	}
	if len(fc.CORS.Origins) > 0 {
		c.CORS.Origins = fc.CORS.Origins
	}
	if fc.Cache.TTL.Duration > 0 {
		c.Cache.TTL = fc.Cache.TTL
	}
	return nil
}

// Validate fails with *MissingConfigurationError when a credential is absent.
func (c Config) Validate() error {
	var missing []string
	if c.SerperAPIKey == "" {
		missing = append(missing, "SERPER_API_KEY")
	}
	if c.GoogleAPIKey == "" {
		missing = append(missing, "GOOGLE_API_KEY")
	}
	if c.SerpAPIKey == "" {
		missing = append(missing, "SERP_API_KEY")
	}
	if len(missing) > 0 {
		return &MissingConfigurationError{Keys: missing}
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("LLM temperature %.2f out of range [0, 2]", c.LLM.Temperature)
	}
	return nil
}

// PlanCacheTTL is how long generated research and itineraries are reused.
func (c Config) PlanCacheTTL() time.Duration {
	return c.Cache.TTL.Duration
}

// AllowedOrigins is the frontend URL plus any configured extra origins.
func (c Config) AllowedOrigins() []string {
	origins := []string{c.FrontendURL}
	for _, o := range c.CORS.Origins {
		if o != "" && o != c.FrontendURL {
			origins = append(origins, o)
		}
	}
	return origins
}

// Secrets returns the credential values for log masking.
func (c Config) Secrets() []string {
	return []string{c.SerperAPIKey, c.GoogleAPIKey, c.SerpAPIKey}
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fmt.Errorf("invalid %s %q: must be a positive integer", key, v)
	}
	*dst = n
	return nil
}
