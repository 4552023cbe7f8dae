package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// RedisConfig describes the Redis instance shared by the task queue and the
// flow-completion tracker.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	DB       int    `yaml:"db"`
	Password string `yaml:"password"`
}

// StoreConfig describes the credential store GraphQL endpoint. APIKey and JWT
// fall back to the STORE_API_KEY / STORE_JWT environment variables when left
// empty in the file so secrets can stay out of checked-in configuration.
type StoreConfig struct {
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"apiKey"`
	JWT      string        `yaml:"jwt"`
	OrgID    string        `yaml:"orgId"`
	Timeout  time.Duration `yaml:"timeout"`
}

// DataModelConfig carries the externally assigned data-model identifiers for
// every credential the pipeline can issue. All of them are required: a missing
// identifier would silently drop that category from aggregation.
type DataModelConfig struct {
	Volume       string `yaml:"volume"`
	Transactions string `yaml:"transactions"`
	Networks     string `yaml:"networks"`
	Loyalty      string `yaml:"loyalty"`
	OG           string `yaml:"og"`
	Boostor      string `yaml:"boostor"`
	TransferTo   string `yaml:"transferto"`
	Linea        string `yaml:"linea"`
}

// QueueConfig tunes the durable task runner. Attempts and Backoff apply to both
// issuance and aggregation jobs; TaskTimeout is the safety net that frees a job
// held by a crashed worker.
type QueueConfig struct {
	Attempts             int           `yaml:"attempts"`
	Backoff              time.Duration `yaml:"backoff"`
	Concurrency          int           `yaml:"concurrency"`
	LoyaltyConcurrency   int           `yaml:"loyaltyConcurrency"`
	TaskTimeout          time.Duration `yaml:"taskTimeout"`
	CredentialsRetention time.Duration `yaml:"retention"`
}

// DispatchConfig tunes the orchestrator. Interval is the pause between
// successive wallet dispatches in a batch, a throughput throttle against the
// credential store's rate limits.
type DispatchConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// Config is the full daemon configuration.
type Config struct {
	ListenAddress  string          `yaml:"listen"`
	MetricsAddress string          `yaml:"metricsListen"`
	Environment    string          `yaml:"environment"`
	Redis          RedisConfig     `yaml:"redis"`
	Store          StoreConfig     `yaml:"store"`
	DataModels     DataModelConfig `yaml:"dataModels"`
	Queue          QueueConfig     `yaml:"queue"`
	Dispatch       DispatchConfig  `yaml:"dispatch"`
}

// Load reads the YAML configuration at path, applies defaults and environment
// fallbacks, and validates the result. An empty path yields the defaults,
// which fail validation unless the required endpoints are set via environment.
func Load(path string) (Config, error) {
	cfg := defaults()
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := yaml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("decode config: %w", err)
		}
	}
	cfg.applyDefaults()
	cfg.applyEnvFallbacks()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		ListenAddress:  ":8000",
		MetricsAddress: ":9090",
		Queue: QueueConfig{
			Attempts:             5,
			Backoff:              500 * time.Millisecond,
			Concurrency:          1,
			LoyaltyConcurrency:   4,
			TaskTimeout:          5 * time.Minute,
			CredentialsRetention: 24 * time.Hour,
		},
		Dispatch: DispatchConfig{Interval: 5 * time.Second},
		Store:    StoreConfig{Timeout: 30 * time.Second},
	}
}

func (cfg *Config) applyDefaults() {
	def := defaults()
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = def.ListenAddress
	}
	if cfg.Queue.Attempts <= 0 {
		cfg.Queue.Attempts = def.Queue.Attempts
	}
	if cfg.Queue.Backoff <= 0 {
		cfg.Queue.Backoff = def.Queue.Backoff
	}
	if cfg.Queue.Concurrency <= 0 {
		cfg.Queue.Concurrency = def.Queue.Concurrency
	}
	if cfg.Queue.LoyaltyConcurrency <= 0 {
		cfg.Queue.LoyaltyConcurrency = def.Queue.LoyaltyConcurrency
	}
	if cfg.Queue.TaskTimeout <= 0 {
		cfg.Queue.TaskTimeout = def.Queue.TaskTimeout
	}
	if cfg.Queue.CredentialsRetention <= 0 {
		cfg.Queue.CredentialsRetention = def.Queue.CredentialsRetention
	}
	if cfg.Dispatch.Interval <= 0 {
		cfg.Dispatch.Interval = def.Dispatch.Interval
	}
	if cfg.Store.Timeout <= 0 {
		cfg.Store.Timeout = def.Store.Timeout
	}
}

func (cfg *Config) applyEnvFallbacks() {
	if cfg.Store.APIKey == "" {
		cfg.Store.APIKey = os.Getenv("STORE_API_KEY")
	}
	if cfg.Store.JWT == "" {
		cfg.Store.JWT = os.Getenv("STORE_JWT")
	}
	if cfg.Redis.Password == "" {
		cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	}
}

// Validate rejects configurations that would make the pipeline silently
// misbehave at runtime.
func (cfg *Config) Validate() error {
	if strings.TrimSpace(cfg.Redis.Addr) == "" {
		return fmt.Errorf("redis.addr is required")
	}
	if strings.TrimSpace(cfg.Store.Endpoint) == "" {
		return fmt.Errorf("store.endpoint is required")
	}
	if strings.TrimSpace(cfg.Store.OrgID) == "" {
		return fmt.Errorf("store.orgId is required")
	}
	if err := cfg.DataModels.Validate(); err != nil {
		return err
	}
	return nil
}

// Validate ensures every data-model identifier is present.
func (dm *DataModelConfig) Validate() error {
	required := map[string]string{
		"dataModels.volume":       dm.Volume,
		"dataModels.transactions": dm.Transactions,
		"dataModels.networks":     dm.Networks,
		"dataModels.loyalty":      dm.Loyalty,
		"dataModels.og":           dm.OG,
		"dataModels.boostor":      dm.Boostor,
		"dataModels.transferto":   dm.TransferTo,
		"dataModels.linea":        dm.Linea,
	}
	for key, value := range required {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s is required", key)
		}
	}
	return nil
}

// All returns every point-bearing data-model identifier (standard monthly plus
// campaigns), the set the aggregation worker queries.
func (dm *DataModelConfig) All() []string {
	return []string{
		dm.Volume,
		dm.Transactions,
		dm.Networks,
		dm.Boostor,
		dm.OG,
		dm.Linea,
		dm.TransferTo,
	}
}

// Standard returns the three recurring monthly data-model identifiers, the only
// ones that contribute to loyalty-pass category totals.
func (dm *DataModelConfig) Standard() []string {
	return []string{dm.Volume, dm.Transactions, dm.Networks}
}
