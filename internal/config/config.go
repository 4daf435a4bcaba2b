package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/vadimbarashkov/shortlink/pkg/shortcode"
	"gopkg.in/yaml.v3"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

type Config struct {
	Env        string     `yaml:"env"`
	LogLevel   string     `yaml:"log_level"`
	BaseURL    string     `yaml:"base_url"`
	ShortCode  ShortCode  `yaml:"short_code"`
	Recorder   Recorder   `yaml:"recorder"`
	HTTPServer HTTPServer `yaml:"http_server"`
	Postgres   Postgres   `yaml:"postgres"`
	Redis      Redis      `yaml:"redis"`
}

type ShortCode struct {
	Strategy   string `yaml:"strategy"`
	Length     int    `yaml:"length"`
	MaxRetries int    `yaml:"max_retries"`
}

var defaultShortCode = ShortCode{
	Strategy:   shortcode.StrategyRandom,
	Length:     6,
	MaxRetries: 5,
}

type Recorder struct {
	Workers      int           `yaml:"workers"`
	QueueSize    int           `yaml:"queue_size"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

var defaultRecorder = Recorder{
	Workers:      4,
	QueueSize:    1024,
	WriteTimeout: 3 * time.Second,
}

type HTTPServer struct {
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	MaxHeaderBytes int           `yaml:"max_header_bytes"`
	CertFile       string        `yaml:"cert_file"`
	KeyFile        string        `yaml:"key_file"`
}

var defaultHTTPServer = HTTPServer{
	Port:           8080,
	ReadTimeout:    5 * time.Second,
	WriteTimeout:   10 * time.Second,
	IdleTimeout:    time.Minute,
	MaxHeaderBytes: 1 << 20,
}

func (s *HTTPServer) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type Postgres struct {
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	DB              string        `yaml:"db"`
	SSLMode         string        `yaml:"sslmode"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
}

var defaultPostgres = Postgres{
	Host:            "localhost",
	Port:            5432,
	SSLMode:         "disable",
	ConnMaxIdleTime: 5 * time.Minute,
	ConnMaxLifetime: 30 * time.Minute,
	MaxIdleConns:    5,
	MaxOpenConns:    25,
}

func (p *Postgres) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DB, p.SSLMode)
}

type Redis struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

var defaultRedis = Redis{
	Addr: "localhost:6379",
	TTL:  time.Hour,
}

func Load(path string) (*Config, error) {
	const op = "config.Load"

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open config file: %w", op, err)
	}
	defer f.Close()

	var cfg Config
	setDefaults(&cfg)

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%s: failed to decode config file: %w", op, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid config: %w", op, err)
	}

	return &cfg, nil
}

func setDefaults(cfg *Config) {
	cfg.Env = EnvDev
	cfg.LogLevel = "info"
	cfg.ShortCode = defaultShortCode
	cfg.Recorder = defaultRecorder
	cfg.HTTPServer = defaultHTTPServer
	cfg.Postgres = defaultPostgres
	cfg.Redis = defaultRedis
}

// Validate reports every value that would make the service misbehave at runtime.
func (cfg *Config) Validate() error {
	var errs []error

	switch cfg.Env {
	case EnvDev, EnvStage, EnvProd:
	default:
		errs = append(errs, fmt.Errorf("unknown env %q", cfg.Env))
	}

	if _, err := cfg.SlogLevel(); err != nil {
		errs = append(errs, err)
	}

	switch cfg.ShortCode.Strategy {
	case shortcode.StrategyRandom, shortcode.StrategySequential:
	default:
		errs = append(errs, fmt.Errorf("unknown short code strategy %q", cfg.ShortCode.Strategy))
	}

	if cfg.ShortCode.Length <= 0 {
		errs = append(errs, errors.New("short code length must be positive"))
	}
	if cfg.ShortCode.MaxRetries <= 0 {
		errs = append(errs, errors.New("short code max retries must be positive"))
	}
	if cfg.Recorder.Workers <= 0 {
		errs = append(errs, errors.New("recorder workers must be positive"))
	}
	if cfg.Recorder.QueueSize < 0 {
		errs = append(errs, errors.New("recorder queue size must not be negative"))
	}
	if cfg.Env == EnvProd && (cfg.HTTPServer.CertFile == "" || cfg.HTTPServer.KeyFile == "") {
		errs = append(errs, errors.New("cert_file and key_file are required in prod"))
	}

	return errors.Join(errs...)
}

// SlogLevel parses LogLevel.
func (cfg *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level

	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", cfg.LogLevel)
	}

	return level, nil
}
