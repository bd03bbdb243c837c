package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/foxzi/contracte/internal/ipfilter"
	"github.com/foxzi/contracte/internal/ratelimit"
)

type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Database  DatabaseConfig   `yaml:"database"`
	Archive   ArchiveConfig    `yaml:"archive"`
	Render    RenderConfig     `yaml:"render"`
	PDF       PDFConfig        `yaml:"pdf"`
	Metrics   MetricsConfig    `yaml:"metrics"`
	RateLimit ratelimit.Config `yaml:"rate_limit"`
	Logging   LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	ListenAddr string    `yaml:"listen_addr"`
	TLS        TLSConfig `yaml:"tls"`
}

type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ArchiveConfig points at the bbolt file holding signed PDFs
type ArchiveConfig struct {
	Path string `yaml:"path"`
}

type RenderConfig struct {
	// Workers is the number of concurrent renders, 0 means one per CPU
	Workers    int           `yaml:"workers"`
	Timeout    time.Duration `yaml:"timeout"`
	DateFormat string        `yaml:"date_format"`
}

// PDFConfig overrides the embedded fonts with TrueType files
type PDFConfig struct {
	FontRegular string `yaml:"font_regular"`
	FontBold    string `yaml:"font_bold"`
}

type MetricsConfig struct {
	Enabled    bool     `yaml:"enabled"`
	ListenAddr string   `yaml:"listen_addr"`
	Path       string   `yaml:"path"`
	AllowedIPs []string `yaml:"allowed_ips"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies defaults and validates the result
func Parse(data []byte) (*Config, error) {
	cfg := &Config{
		Metrics: MetricsConfig{Enabled: true},
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	setDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8088"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "/var/lib/contracte/app.db"
	}
	if cfg.Archive.Path == "" {
		cfg.Archive.Path = "/var/lib/contracte/archive.db"
	}
	if cfg.Render.Timeout == 0 {
		cfg.Render.Timeout = 30 * time.Second
	}
	if cfg.Render.DateFormat == "" {
		cfg.Render.DateFormat = "02.01.2006"
	}
	if cfg.Metrics.ListenAddr == "" {
		cfg.Metrics.ListenAddr = ":9090"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func validate(cfg *Config) error {
	if cfg.Server.TLS.Enabled {
		if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
			return fmt.Errorf("server.tls.cert_file and server.tls.key_file are required when TLS is enabled")
		}
	}
	if cfg.Render.Workers < 0 {
		return fmt.Errorf("render.workers must not be negative")
	}
	if cfg.Render.Timeout < 0 {
		return fmt.Errorf("render.timeout must not be negative")
	}
	if cfg.Database.Path == cfg.Archive.Path {
		return fmt.Errorf("archive.path must differ from database.path")
	}
	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /")
	}
	if err := ipfilter.Validate(cfg.Metrics.AllowedIPs); err != nil {
		return fmt.Errorf("metrics.allowed_ips: %w", err)
	}
	for name, limit := range map[string]*ratelimit.LimitConfig{
		"global": cfg.RateLimit.Global,
		"per_ip": cfg.RateLimit.PerIP,
	} {
		if limit != nil && (limit.RendersPerHour < 0 || limit.RendersPerDay < 0) {
			return fmt.Errorf("rate_limit.%s limits must not be negative", name)
		}
	}
	if cfg.RateLimit.FlushInterval < 0 {
		return fmt.Errorf("rate_limit.flush_interval must not be negative")
	}
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text")
	}
	return nil
}
