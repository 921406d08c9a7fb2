// Package config loads and validates the platform's runtime configuration
// from environment variables, the way server/configuration.go in the
// original plugin loads it from the Mattermost plugin config store.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures every external input enumerated in the system's external
// interfaces. It is loaded once at process start and never mutated; callers
// that need a defensive copy use Clone.
type Config struct {
	KVStoreHost      string
	KVStorePort      int
	KVStoreNamespace string
	KVStoreUseTLS    bool
	KVStoreTLSCAFile string
	KVStoreTLSName   string
	KVStoreUsername  string
	KVStorePassword  string

	StorefrontAPIURL string

	APIHost string
	APIPort int

	ModelPath       string
	ModelMetricsPath string

	LLMAPIKey string
	LLMModel  string

	UseWorkflowOrchestration bool
	UseValueStore            bool

	LogLevel              string
	HTTPClientTimeout     time.Duration
}

// boolFromEnv converts an environment variable string to bool the way the
// plugin's boolFromStr converts Mattermost's "true"/"false" setting strings.
func boolFromEnv(s string, def bool) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return strings.EqualFold(s, "true") || s == "1"
}

func intFromEnv(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// Load reads Config from the process environment, applying defaults for
// anything unset.
func Load() *Config {
	cfg := &Config{
		KVStoreHost:      getenv("KVSTORE_HOST", "localhost"),
		KVStorePort:      intFromEnv(os.Getenv("KVSTORE_PORT"), 3000),
		KVStoreNamespace: getenv("KVSTORE_NAMESPACE", "churnprediction"),
		KVStoreUseTLS:    boolFromEnv(os.Getenv("KVSTORE_USE_TLS"), false),
		KVStoreTLSCAFile: os.Getenv("KVSTORE_TLS_CAFILE"),
		KVStoreTLSName:   os.Getenv("KVSTORE_TLS_NAME"),
		KVStoreUsername:  os.Getenv("KVSTORE_USERNAME"),
		KVStorePassword:  os.Getenv("KVSTORE_PASSWORD"),

		StorefrontAPIURL: getenv("STOREFRONT_API_URL", "http://localhost:8000"),

		APIHost: getenv("API_HOST", "0.0.0.0"),
		APIPort: intFromEnv(os.Getenv("API_PORT"), 8080),

		ModelPath:        getenv("MODEL_PATH", "./models/churn_model.joblib"),
		ModelMetricsPath: os.Getenv("MODEL_METRICS_PATH"),

		LLMAPIKey: os.Getenv("LLM_API_KEY"),
		LLMModel:  getenv("LLM_MODEL", "gpt-4o-mini"),

		UseWorkflowOrchestration: boolFromEnv(os.Getenv("USE_WORKFLOW_ORCHESTRATION"), true),
		UseValueStore:            boolFromEnv(os.Getenv("USE_VALUE_STORE"), true),

		LogLevel: getenv("LOG_LEVEL", "info"),
	}

	timeoutSecs := intFromEnv(os.Getenv("HTTP_CLIENT_TIMEOUT_SECONDS"), 15)
	cfg.HTTPClientTimeout = time.Duration(timeoutSecs) * time.Second

	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Clone shallow-copies the configuration, mirroring (*configuration).Clone
// in the original plugin.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// Validate checks that required configuration is present and well-formed,
// mirroring (*configuration).IsValid.
func (c *Config) Validate() error {
	if c.KVStoreHost == "" {
		return fmt.Errorf("KVSTORE_HOST is required")
	}
	if c.KVStorePort <= 0 {
		return fmt.Errorf("KVSTORE_PORT must be positive, got %d", c.KVStorePort)
	}
	if c.KVStoreNamespace == "" {
		return fmt.Errorf("KVSTORE_NAMESPACE is required")
	}
	if c.ModelPath == "" {
		return fmt.Errorf("MODEL_PATH is required")
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("API_PORT out of range: %d", c.APIPort)
	}
	if c.KVStoreUseTLS && c.KVStoreTLSCAFile == "" {
		return fmt.Errorf("KVSTORE_TLS_CAFILE is required when KVSTORE_USE_TLS is set")
	}
	return nil
}

// Addr returns the listen address derived from APIHost/APIPort.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.APIHost, c.APIPort)
}
