// Package config loads lens settings from defaults, an optional YAML or
// JSON file, LENS_* environment variables and bound command-line flags,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/spektr-org/lens/engine"
	"github.com/spektr-org/lens/source"
)

// EnvPrefix prefixes every environment override, e.g. LENS_SERVER_ADDR.
const EnvPrefix = "LENS"

// Config is the full set of settings.
type Config struct {
	Source        string       `mapstructure:"source" json:"source" validate:"required"`
	Profile       string       `mapstructure:"profile" json:"profile" validate:"omitempty,oneof=rentals orders"`
	Format        string       `mapstructure:"format" json:"format" validate:"oneof=json pretty csv text"`
	TopK          int          `mapstructure:"top_k" json:"top_k" validate:"gte=1,lte=100"`
	HistogramBins int          `mapstructure:"histogram_bins" json:"histogram_bins" validate:"gte=1,lte=500"`
	SparseMonths  bool         `mapstructure:"sparse_months" json:"sparse_months"`
	Log           LogConfig    `mapstructure:"log" json:"log"`
	Server        ServerConfig `mapstructure:"server" json:"server"`
	S3            S3Config     `mapstructure:"s3" json:"s3"`
}

// LogConfig configures the logger package.
type LogConfig struct {
	Level string `mapstructure:"level" json:"level" validate:"oneof=debug info warn error"`
	File  string `mapstructure:"file" json:"file"`
	JSON  bool   `mapstructure:"json" json:"json"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr" json:"addr" validate:"required"`
	Watch        bool          `mapstructure:"watch" json:"watch"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" json:"read_timeout" validate:"gte=0"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" json:"write_timeout" validate:"gte=0"`
}

// S3Config configures the S3 client. Credentials come from the default
// AWS chain.
type S3Config struct {
	Region    string `mapstructure:"region" json:"region"`
	Endpoint  string `mapstructure:"endpoint" json:"endpoint" validate:"omitempty,url"`
	PathStyle bool   `mapstructure:"path_style" json:"path_style"`
}

// SetDefaults registers every key so environment overrides apply to all
// of them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("source", "data/all_data.csv")
	v.SetDefault("profile", "")
	v.SetDefault("format", "json")
	v.SetDefault("top_k", engine.DefaultTopK)
	v.SetDefault("histogram_bins", engine.DefaultBins)
	v.SetDefault("sparse_months", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.json", false)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.watch", false)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("s3.region", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.path_style", false)
}

// New returns a viper instance with defaults and environment overrides.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional config file into v and returns the validated
// settings. Flags must be bound to v before calling Load.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Format = strings.ToLower(cfg.Format)
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)

	if err := Validate(cfg); err != nil {
		return nil, errors.Join(ErrInvalid, err)
	}
	return &cfg, nil
}

// ErrInvalid wraps every validation failure returned by Load.
var ErrInvalid = errors.New("invalid configuration")

// Location parses the configured source.
func (c *Config) Location() (source.Location, error) {
	return source.ParseLocation(c.Source)
}

// EngineOptions turns the run settings into engine options.
func (c *Config) EngineOptions() []engine.Option {
	opts := []engine.Option{
		engine.WithTopK(c.TopK),
		engine.WithHistogramBins(c.HistogramBins),
	}
	if c.SparseMonths {
		opts = append(opts, engine.WithSparseMonths())
	}
	return opts
}

// LoaderOptions configures source loading from the S3 settings.
func (c *Config) LoaderOptions() []source.LoaderOption {
	return []source.LoaderOption{source.WithS3Options(source.S3Options{
		Region:    c.S3.Region,
		Endpoint:  c.S3.Endpoint,
		PathStyle: c.S3.PathStyle,
	})}
}
