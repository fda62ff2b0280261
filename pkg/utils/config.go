package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"bookreviews/pkg/database"
)

type Config struct {
	Port           string        `yaml:"port" env:"PORT" env-default:"8080" env-description:"HTTP listen port"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT" env-default:"10s" env-description:"upper bound for store work per request"`

	Store StoreConfig `yaml:"store"`
	Auth  AuthConfig  `yaml:"auth"`
	Sync  SyncConfig  `yaml:"sync"`
	Log   LogConfig   `yaml:"log"`

	GRPCAddr      string `yaml:"grpc_addr" env:"GRPC_ADDR" env-description:"gRPC health listen address, empty disables"`
	AuditSchedule string `yaml:"audit_schedule" env:"AUDIT_SCHEDULE" env-description:"cron spec for the orphaned review audit, empty disables"`
}

type StoreConfig struct {
	Driver         string        `yaml:"driver" env:"STORE_DRIVER" env-default:"mongo" env-description:"mongo or sqlite"`
	MongoURL       string        `yaml:"mongodb_url" env:"MONGODB_URL" env-default:"mongodb://localhost:27017"`
	MongoDatabase  string        `yaml:"mongodb_database" env:"MONGODB_DATABASE" env-default:"bookreviews"`
	SQLitePath     string        `yaml:"sqlite_path" env:"SQLITE_PATH" env-default:"data/bookreviews.db"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"STORE_CONNECT_TIMEOUT" env-default:"10s"`
	// keeps one review per user
	BooksUniqueUserID bool `yaml:"books_unique_user_id" env:"BOOKS_UNIQUE_USER_ID" env-default:"true"`
}

type AuthConfig struct {
	Enabled     bool          `yaml:"enabled" env:"AUTH_ENABLED" env-default:"true"`
	JWTSecret   string        `yaml:"jwt_secret" env:"JWT_SECRET" env-default:"dev-secret-change-me"`
	JWTIssuer   string        `yaml:"jwt_issuer" env:"JWT_ISSUER" env-default:"bookreviews"`
	JWTDuration time.Duration `yaml:"jwt_ttl" env:"JWT_TTL" env-default:"24h"`
	LoginURL    string        `yaml:"login_url" env:"AUTH_LOGIN_URL" env-description:"redirect target for unauthenticated writes"`
}

type SyncConfig struct {
	TCPAddr string `yaml:"tcp_addr" env:"SYNC_TCP_ADDR" env-description:"TCP change feed address, empty disables"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text" env-description:"text or json"`
}

// LoadConfig reads a .env file when present, then the YAML file at path when
// path is non-empty, then the environment. Later sources win.
func LoadConfig(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Store.Driver {
	case database.DriverMongo, database.DriverSQLite:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", database.DriverMongo, database.DriverSQLite, c.Store.Driver)
	}
	if c.RequestTimeout < 0 {
		return errors.New("REQUEST_TIMEOUT must not be negative")
	}
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is required when auth is enabled")
	}
	return nil
}

// Usage describes every environment variable.
func Usage() string {
	var cfg Config
	help, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return err.Error()
	}
	return help
}

func (c Config) Addr() string {
	return ":" + c.Port
}

func (c StoreConfig) Database() database.Config {
	return database.Config{
		Driver:         c.Driver,
		MongoURI:       c.MongoURL,
		MongoDatabase:  c.MongoDatabase,
		SQLitePath:     c.SQLitePath,
		ConnectTimeout: c.ConnectTimeout,
	}
}
