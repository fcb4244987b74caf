package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration. It is loaded once at start-up and
// handed to each component; nothing reads it through globals.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Parser    ParserConfig    `mapstructure:"parser"`
	Reconcile ReconcileConfig `mapstructure:"reconcile"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig holds HTTP settings.
type ServerConfig struct {
	Port        int    `mapstructure:"port"`
	BodyLimitMB int    `mapstructure:"body_limit_mb"`
	CORSOrigins string `mapstructure:"cors_origins"`
}

// DatabaseConfig selects and addresses the store backend.
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	Path     string `mapstructure:"path"`
}

// AuthConfig holds token settings.
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// ParserConfig holds statement parser thresholds.
type ParserConfig struct {
	MinLineLength        int `mapstructure:"min_line_length"`
	MaxDescriptionLength int `mapstructure:"max_description_length"`
	MaxLines             int `mapstructure:"max_lines"`
}

// ReconcileConfig holds matching tolerances.
type ReconcileConfig struct {
	AmountTolerance    float64  `mapstructure:"amount_tolerance"`
	DateWindowDays     int      `mapstructure:"date_window_days"`
	DepositWindow      int      `mapstructure:"deposit_window"`
	BankPaymentMethods []string `mapstructure:"bank_payment_methods"`
}

// ArchiveConfig enables uploading statements to Cloud Storage.
type ArchiveConfig struct {
	GCSBucket       string `mapstructure:"gcs_bucket"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// Load reads configuration from file and env. Env var overrides use prefix BOOKKEEPER_.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")

	cfgPath := os.Getenv("BOOKKEEPER_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "bookkeeper"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("BOOKKEEPER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine; a broken one named explicitly is not.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgPath != "" {
			return Config{}, fmt.Errorf("read config %s: %w", cfgPath, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.body_limit_mb", 32)
	v.SetDefault("server.cors_origins", "*")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.username", "postgres")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.name", "bookkeeper")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "bookkeeper.db")

	v.SetDefault("auth.jwt_secret", "dev-secret-change-me")
	v.SetDefault("auth.token_ttl", "168h")

	v.SetDefault("parser.min_line_length", 10)
	v.SetDefault("parser.max_description_length", 200)
	v.SetDefault("parser.max_lines", 50000)

	v.SetDefault("reconcile.amount_tolerance", 0.01)
	v.SetDefault("reconcile.date_window_days", 7)
	v.SetDefault("reconcile.deposit_window", 20)
	v.SetDefault("reconcile.bank_payment_methods", []string{"transfer", "wire", "check", "cheque", "transferencia", "deposit"})

	v.SetDefault("archive.gcs_bucket", "")
	v.SetDefault("archive.credentials_file", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)
}

// Validate rejects settings no component can run with.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite3", "memory":
	default:
		return fmt.Errorf("config: unsupported database.driver %q", c.Database.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("config: auth.jwt_secret must not be empty")
	}
	if c.Reconcile.AmountTolerance <= 0 {
		return fmt.Errorf("config: reconcile.amount_tolerance must be positive")
	}
	if c.Reconcile.DepositWindow <= 0 {
		return fmt.Errorf("config: reconcile.deposit_window must be positive")
	}
	return nil
}

// DSN returns the driver-specific connection string for sqlx.
func (d DatabaseConfig) DSN() string {
	if d.Driver == "sqlite3" {
		return d.Path
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.Username, d.Password, d.Name, d.SSLMode)
}

// MigrationURL returns the URL form golang-migrate expects for the same database.
func (d DatabaseConfig) MigrationURL() string {
	if d.Driver == "sqlite3" {
		return "sqlite3://" + d.Path
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.Username, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	return u.String()
}
