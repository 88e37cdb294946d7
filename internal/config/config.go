// Package config provides configuration management for the conversation
// memory index server.
//
// Configuration can be loaded from multiple sources (in order of
// precedence):
//  1. Environment variables (highest priority)
//  2. Configuration file (JSON)
//  3. Default values (lowest priority)
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents the complete server configuration.
type Config struct {
	Server      ServerConfig      `json:"server"`
	Embedding   EmbeddingConfig   `json:"embedding"`
	Index       IndexConfig       `json:"index"`
	Enrichment  EnrichmentConfig  `json:"enrichment"`
	Query       QueryConfig       `json:"query"`
	Transcripts TranscriptsConfig `json:"transcripts"`
	Maintenance MaintenanceConfig `json:"maintenance"`
	Logging     LoggingConfig     `json:"logging"`
}

// ServerConfig contains server-level configuration.
type ServerConfig struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

// EmbeddingConfig controls the C1 embedding gateway.
type EmbeddingConfig struct {
	// Provider selects the encoder backend: "hash" (always-available local
	// encoder) or "http" (remote embedding API).
	Provider string `json:"provider"`
	Model    string `json:"model"`
	APIKey   string `json:"api_key,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`

	// AllowUpdateCheck permits the one-time network probe on first
	// initialization (spec.md §4.1).
	AllowUpdateCheck bool `json:"allow_update_check"`

	CacheEnabled bool          `json:"cache_enabled"`
	CacheSize    int           `json:"cache_size"`
	CacheTTL     time.Duration `json:"cache_ttl"`

	Timeout time.Duration `json:"timeout"`
}

// IndexConfig controls the C10 vector index.
type IndexConfig struct {
	PersistPath string `json:"persist_path"` // empty = in-memory only
	Collection  string `json:"collection"`
	MaxBatch    int    `json:"max_batch"` // ceiling enforced regardless of this value; see types.MaxBatch
}

// EnrichmentConfig controls C2's per-turn behaviour.
type EnrichmentConfig struct {
	PerTurnDeadline     time.Duration `json:"per_turn_deadline"`
	TroubleshootingMode bool          `json:"troubleshooting_mode"`
}

// QueryConfig controls C11's boosted query engine.
type QueryConfig struct {
	DefaultN        int           `json:"default_n"`
	CandidateFactor int           `json:"candidate_factor"` // K = n * CandidateFactor
	QueryDeadline   time.Duration `json:"query_deadline"`
	DefaultChainLen int           `json:"default_chain_length"`
}

// TranscriptsConfig controls where force_sync discovers bulk transcript
// files. Discovery itself lives in cmd/server, not the core (spec.md §1);
// this is just the path the core's collaborator is told to walk.
type TranscriptsConfig struct {
	Dir string `json:"dir"`
}

// MaintenanceConfig controls C13's rollback snapshot log.
type MaintenanceConfig struct {
	DBPath string `json:"db_path"` // empty = in-memory, lost on restart
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level            string `json:"level"`
	EnableTimestamps bool   `json:"enable_timestamps"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Name:        "turnindex",
			Version:     "1.0.0",
			Environment: "development",
		},
		Embedding: EmbeddingConfig{
			Provider:         "hash",
			Model:            "local-hash-384",
			AllowUpdateCheck: true,
			CacheEnabled:     true,
			CacheSize:        10000,
			CacheTTL:         24 * time.Hour,
			Timeout:          30 * time.Second,
		},
		Index: IndexConfig{
			PersistPath: "",
			Collection:  "turns",
			MaxBatch:    166,
		},
		Enrichment: EnrichmentConfig{
			PerTurnDeadline:     time.Second,
			TroubleshootingMode: false,
		},
		Query: QueryConfig{
			DefaultN:        10,
			CandidateFactor: 3,
			QueryDeadline:   500 * time.Millisecond,
			DefaultChainLen: 2,
		},
		Transcripts: TranscriptsConfig{
			Dir: "",
		},
		Maintenance: MaintenanceConfig{
			DBPath: "",
		},
		Logging: LoggingConfig{
			Level:            "info",
			EnableTimestamps: true,
		},
	}
}

// Load builds a Config from defaults overridden by environment variables.
func Load() (*Config, error) {
	cfg := Default()
	cfg.loadFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a JSON file, then applies
// environment variable overrides.
func LoadFromFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadFromEnv overrides cfg fields from environment variables. Variables
// follow the pattern TI_<SECTION>_<KEY>, except EMBEDDING_API_KEY and
// DEBUG (DEBUG=true forces the debug logging level).
func (c *Config) loadFromEnv() {
	if v := os.Getenv("TI_SERVER_NAME"); v != "" {
		c.Server.Name = v
	}
	if v := os.Getenv("TI_SERVER_ENVIRONMENT"); v != "" {
		c.Server.Environment = v
	}

	if v := os.Getenv("TI_EMBEDDING_PROVIDER"); v != "" {
		c.Embedding.Provider = v
	}
	if v := os.Getenv("TI_EMBEDDING_MODEL"); v != "" {
		c.Embedding.Model = v
	}
	if v := os.Getenv("EMBEDDING_API_KEY"); v != "" {
		c.Embedding.APIKey = v
	}
	if v := os.Getenv("TI_EMBEDDING_ENDPOINT"); v != "" {
		c.Embedding.Endpoint = v
	}
	if v := os.Getenv("TI_EMBEDDING_ALLOW_UPDATE_CHECK"); v != "" {
		c.Embedding.AllowUpdateCheck = parseBool(v)
	}
	if v := os.Getenv("TI_EMBEDDING_CACHE_ENABLED"); v != "" {
		c.Embedding.CacheEnabled = parseBool(v)
	}
	if v := os.Getenv("TI_EMBEDDING_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Embedding.CacheSize = n
		}
	}
	if v := os.Getenv("TI_EMBEDDING_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Embedding.CacheTTL = d
		}
	}

	if v := os.Getenv("TI_INDEX_PERSIST_PATH"); v != "" {
		c.Index.PersistPath = v
	}
	if v := os.Getenv("TI_INDEX_COLLECTION"); v != "" {
		c.Index.Collection = v
	}

	if v := os.Getenv("TI_ENRICHMENT_TROUBLESHOOTING_MODE"); v != "" {
		c.Enrichment.TroubleshootingMode = parseBool(v)
	}
	if v := os.Getenv("TI_ENRICHMENT_PER_TURN_DEADLINE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Enrichment.PerTurnDeadline = d
		}
	}

	if v := os.Getenv("TI_QUERY_DEFAULT_N"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Query.DefaultN = n
		}
	}
	if v := os.Getenv("TI_QUERY_DEADLINE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Query.QueryDeadline = d
		}
	}

	if v := os.Getenv("TI_TRANSCRIPTS_DIR"); v != "" {
		c.Transcripts.Dir = v
	}
	if v := os.Getenv("TI_MAINTENANCE_DB_PATH"); v != "" {
		c.Maintenance.DBPath = v
	}

	if v := os.Getenv("TI_LOGGING_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("DEBUG"); v == "true" {
		c.Logging.Level = "debug"
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Server.Name == "" {
		return fmt.Errorf("server.name cannot be empty")
	}

	switch c.Embedding.Provider {
	case "hash", "http":
	default:
		return fmt.Errorf("embedding.provider must be 'hash' or 'http'")
	}
	if c.Embedding.Provider == "http" && c.Embedding.Endpoint == "" {
		return fmt.Errorf("embedding.endpoint is required when embedding.provider is 'http'")
	}

	if c.Index.Collection == "" {
		return fmt.Errorf("index.collection cannot be empty")
	}

	if c.Query.DefaultN < 1 {
		return fmt.Errorf("query.default_n must be >= 1")
	}
	if c.Query.CandidateFactor < 1 {
		return fmt.Errorf("query.candidate_factor must be >= 1")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	return nil
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on" || s == "enabled"
}

// ToJSON serializes the configuration to JSON.
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}
