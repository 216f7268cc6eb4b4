// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App            AppConfig               `mapstructure:"app"`
	Camunda        CamundaConfig           `mapstructure:"camunda"`
	Server         ServerConfig            `mapstructure:"server"`
	Database       DatabaseConfig          `mapstructure:"database"`
	Catalog        CatalogConfig           `mapstructure:"catalog"`
	Workers        map[string]WorkerConfig `mapstructure:"workers"`
	APIs           APIsConfig              `mapstructure:"apis"`
	Pipeline       PipelineConfig          `mapstructure:"pipeline"`
	PostProcessing PostProcessingConfig    `mapstructure:"post_processing"`
	Guardrail      GuardrailConfig         `mapstructure:"guardrail"`
	Logging        LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// CamundaConfig configures the Zeebe gateway. An empty BrokerAddress runs
// the service without job workers.
type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	Plaintext      bool   `mapstructure:"plaintext"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type ServerConfig struct {
	Port            int `mapstructure:"port"`
	ReadTimeout     int `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int `mapstructure:"shutdown_timeout"` // milliseconds
}

// Addr returns the listen address for the HTTP tool API.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Catalog source kinds.
const (
	CatalogSourceFile     = "file"
	CatalogSourceHTTP     = "http"
	CatalogSourceRedis    = "redis"
	CatalogSourcePostgres = "postgres"
)

// CatalogConfig selects where the template catalog is loaded from.
type CatalogConfig struct {
	Source   string `mapstructure:"source"`
	Path     string `mapstructure:"path"`
	RedisKey string `mapstructure:"redis_key"`
	Table    string `mapstructure:"table"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
}

// APIsConfig holds settings for the external collaborators.
type APIsConfig struct {
	ImageSearch struct {
		BaseURL  string `mapstructure:"base_url"`
		APIKey   string `mapstructure:"api_key"`
		EngineID string `mapstructure:"engine_id"`
		Num      int    `mapstructure:"num"`
		Timeout  int    `mapstructure:"timeout"`   // milliseconds
		CacheTTL int    `mapstructure:"cache_ttl"` // milliseconds, 0 disables
	} `mapstructure:"image_search"`

	Memegen struct {
		BaseURL string `mapstructure:"base_url"`
		Format  string `mapstructure:"format"`
		Verify  bool   `mapstructure:"verify"`
		Timeout int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"memegen"`

	Sticker struct {
		BaseURL  string `mapstructure:"base_url"`
		APIKey   string `mapstructure:"api_key"`
		Platform string `mapstructure:"platform"`
		Timeout  int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"sticker"`
}

// PipelineConfig tunes context provisioning.
type PipelineConfig struct {
	DefaultLimit     int  `mapstructure:"default_limit"`
	UnboundedContext bool `mapstructure:"unbounded_context"`
}

// PostProcessingConfig controls the local side effects of generate_meme.
type PostProcessingConfig struct {
	SaveDir         string `mapstructure:"save_dir"`
	OpenBrowser     bool   `mapstructure:"open_browser"`
	DownloadTimeout int    `mapstructure:"download_timeout"` // milliseconds
}

type GuardrailConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	BlockedTerms []string `mapstructure:"blocked_terms"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
