package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	pgpkg "github.com/vadimbarashkov/shortlink/pkg/postgres"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
	StorageRedis    = "redis"
)

// maxShortCodeLength matches the width of the short_code column.
const maxShortCodeLength = 16

var (
	ErrInvalidEnv       = errors.New("invalid env")
	ErrInvalidStorage   = errors.New("invalid storage")
	ErrInvalidShortCode = errors.New("invalid short code settings")
	ErrInvalidServer    = errors.New("invalid http server settings")
	ErrMissingSetting   = errors.New("missing required setting")
)

type Config struct {
	Env        string     `yaml:"env"`
	Storage    string     `yaml:"storage"`
	ShortCode  ShortCode  `yaml:"short_code"`
	HTTPServer HTTPServer `yaml:"http_server"`
	RateLimit  RateLimit  `yaml:"rate_limit"`
	Postgres   Postgres   `yaml:"postgres"`
	SQLite     SQLite     `yaml:"sqlite"`
	Redis      Redis      `yaml:"redis"`
}

type ShortCode struct {
	Length     int `yaml:"length"`
	MaxRetries int `yaml:"max_retries"`
}

var defaultShortCode = ShortCode{
	Length:     6,
	MaxRetries: 5,
}

type HTTPServer struct {
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	MaxHeaderBytes int           `yaml:"max_header_bytes"`
	CertFile       string        `yaml:"cert_file"`
	KeyFile        string        `yaml:"key_file"`
	BaseURL        string        `yaml:"base_url"`
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

// RateLimit is applied per client IP. A non-positive RPS disables it.
type RateLimit struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

var defaultRateLimit = RateLimit{
	RPS:   10,
	Burst: 20,
}

func (l *RateLimit) Enabled() bool {
	return l.RPS > 0 && l.Burst > 0
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
	MigrationsPath  string        `yaml:"migrations_path"`
}

var defaultPostgres = Postgres{
	Host:            "localhost",
	Port:            5432,
	SSLMode:         "disable",
	ConnMaxIdleTime: 5 * time.Minute,
	ConnMaxLifetime: 30 * time.Minute,
	MaxIdleConns:    5,
	MaxOpenConns:    25,
	MigrationsPath:  pgpkg.DefaultMigrationsPath,
}

func (p *Postgres) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DB, p.SSLMode)
}

type SQLite struct {
	Path string `yaml:"path"`
}

var defaultSQLite = SQLite{
	Path: "shortlink.db",
}

type Redis struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

var defaultRedis = Redis{
	Addr:      "localhost:6379",
	KeyPrefix: "shortlink:",
}

// Load reads the YAML file at path over the defaults, applies secrets from
// the environment and validates the result.
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

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

func setDefaults(cfg *Config) {
	cfg.Env = EnvDev
	cfg.Storage = StorageMemory
	cfg.ShortCode = defaultShortCode
	cfg.HTTPServer = defaultHTTPServer
	cfg.RateLimit = defaultRateLimit
	cfg.Postgres = defaultPostgres
	cfg.SQLite = defaultSQLite
	cfg.Redis = defaultRedis
}

// applyEnv lets credentials live outside the config file, typically in .env.
func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv("POSTGRES_USER"); ok {
		cfg.Postgres.User = v
	}
	if v, ok := os.LookupEnv("POSTGRES_PASSWORD"); ok {
		cfg.Postgres.Password = v
	}
	if v, ok := os.LookupEnv("REDIS_PASSWORD"); ok {
		cfg.Redis.Password = v
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.Env {
	case EnvDev, EnvStage, EnvProd:
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidEnv, c.Env))
	}

	if c.ShortCode.Length < 1 || c.ShortCode.Length > maxShortCodeLength {
		errs = append(errs, fmt.Errorf("%w: length must be between 1 and %d", ErrInvalidShortCode, maxShortCodeLength))
	}
	if c.ShortCode.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("%w: max_retries must be positive", ErrInvalidShortCode))
	}

	if c.HTTPServer.Port < 1 || c.HTTPServer.Port > 65535 {
		errs = append(errs, fmt.Errorf("%w: port %d", ErrInvalidServer, c.HTTPServer.Port))
	}
	if c.Env == EnvProd && (c.HTTPServer.CertFile == "" || c.HTTPServer.KeyFile == "") {
		errs = append(errs, fmt.Errorf("%w: cert_file and key_file in prod", ErrMissingSetting))
	}

	switch c.Storage {
	case StorageMemory:
	case StoragePostgres:
		if c.Postgres.User == "" || c.Postgres.DB == "" {
			errs = append(errs, fmt.Errorf("%w: postgres user and db", ErrMissingSetting))
		}
	case StorageSQLite:
		if c.SQLite.Path == "" {
			errs = append(errs, fmt.Errorf("%w: sqlite path", ErrMissingSetting))
		}
	case StorageRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, fmt.Errorf("%w: redis addr", ErrMissingSetting))
		}
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidStorage, c.Storage))
	}

	return errors.Join(errs...)
}
