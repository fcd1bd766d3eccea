package config

import (
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Bulk     BulkConfig     `yaml:"bulk" mapstructure:"bulk"`
	Tables   TablesConfig   `yaml:"tables" mapstructure:"tables"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// DatabaseConfig configures the reader and writer connection pools.
// ReaderURL falls back to WriterURL when empty.
type DatabaseConfig struct {
	WriterURL string `yaml:"writer_url" mapstructure:"writer_url"`
	ReaderURL string `yaml:"reader_url" mapstructure:"reader_url"`
	MaxConns  int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns  int32  `yaml:"min_conns" mapstructure:"min_conns"`

	ConnectAttempts int `yaml:"connect_attempts" mapstructure:"connect_attempts"`
}

// ReaderOrWriterURL returns the reader URL, or the writer URL when no
// dedicated reader is configured.
func (d DatabaseConfig) ReaderOrWriterURL() string {
	if d.ReaderURL != "" {
		return d.ReaderURL
	}
	return d.WriterURL
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	BaseURL        string   `yaml:"base_url" mapstructure:"base_url"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// BulkConfig configures bulk item insertion.
type BulkConfig struct {
	ChunkSize       int     `yaml:"chunk_size" mapstructure:"chunk_size"`               // 0 = single insert
	ChunksPerSecond float64 `yaml:"chunks_per_second" mapstructure:"chunks_per_second"` // 0 = unthrottled
}

// TablesConfig names the tables backing Items and Collections.
type TablesConfig struct {
	Items       string `yaml:"items" mapstructure:"items"`
	Collections string `yaml:"collections" mapstructure:"collections"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("STAC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("database.writer_url", "")
	v.SetDefault("database.reader_url", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.connect_attempts", 5)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("bulk.chunk_size", 0)
	v.SetDefault("bulk.chunks_per_second", 0)
	v.SetDefault("tables.items", "stac.items")
	v.SetDefault("tables.collections", "stac.collections")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command needs. mode is the command name:
// "serve", "migrate" or "load".
func (c *Config) Validate(mode string) error {
	var problems []string

	if c.Database.WriterURL == "" {
		problems = append(problems, "database.writer_url is required")
	}
	if c.Bulk.ChunkSize < 0 {
		problems = append(problems, "bulk.chunk_size must be >= 0")
	}
	if c.Bulk.ChunksPerSecond < 0 {
		problems = append(problems, "bulk.chunks_per_second must be >= 0")
	}

	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be between 1 and 65535")
		}
	case "load", "migrate":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Redacted returns a copy of c with database passwords masked.
func (c Config) Redacted() Config {
	c.Database.WriterURL = redactURL(c.Database.WriterURL)
	c.Database.ReaderURL = redactURL(c.Database.ReaderURL)
	return c
}

func redactURL(raw string) string {
	if raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "xxxxx"
	}
	return u.Redacted()
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
