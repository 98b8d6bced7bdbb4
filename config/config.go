package config

import (
	"bytes"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"examexport/export"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	KeyAppPassword      = "app.password"
	KeyAppPasswordHash  = "app.password_hash"
	KeyDatabaseDriver   = "database.driver"
	KeyDatabaseName     = "database.name"
	KeyDatabaseUser     = "database.user"
	KeyDatabasePassword = "database.password"
	KeyDatabaseHost     = "database.host"
	KeyDatabasePort     = "database.port"
	KeyDatabaseSSLMode  = "database.sslmode"
	KeyDatabasePath     = "database.path"
	KeyServerPort       = "server.port"
	KeyServerSessionTTL = "server.session_ttl"
	KeyExportProfile    = "export.profile"
)

// envBindings keeps the environment variable names the deployment already uses.
var envBindings = map[string]string{
	KeyAppPassword:      "APP_PASSWORD",
	KeyAppPasswordHash:  "APP_PASSWORD_HASH",
	KeyDatabaseDriver:   "EXAMEXPORT_DB_DRIVER",
	KeyDatabaseName:     "SUPABASE_DB_NAME",
	KeyDatabaseUser:     "SUPABASE_USER",
	KeyDatabasePassword: "SUPABASE_PASSWORD",
	KeyDatabaseHost:     "SUPABASE_HOST",
	KeyDatabasePort:     "SUPABASE_PORT",
	KeyDatabaseSSLMode:  "SUPABASE_SSLMODE",
	KeyDatabasePath:     "EXAMEXPORT_DB_PATH",
	KeyServerPort:       "EXAMEXPORT_PORT",
	KeyServerSessionTTL: "EXAMEXPORT_SESSION_TTL",
	KeyExportProfile:    "EXAMEXPORT_PROFILE",
}

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Export   ExportConfig   `mapstructure:"export"`
}

type AppConfig struct {
	Password     string `mapstructure:"password" validate:"required_without=PasswordHash"`
	PasswordHash string `mapstructure:"password_hash"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver" validate:"oneof=postgres sqlite"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port" validate:"min=0,max=65535"`
	SSLMode  string `mapstructure:"sslmode" validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	Path     string `mapstructure:"path"`
}

type ServerConfig struct {
	Port       int           `mapstructure:"port" validate:"min=1,max=65535"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

type ExportConfig struct {
	Profile string `mapstructure:"profile"`
}

// DSN returns the connection string for the configured driver.
func (d DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.Path
	}
	return d.postgresURL(url.UserPassword(d.User, d.Password))
}

// RedactedDSN is DSN with the password masked, for display.
func (d DatabaseConfig) RedactedDSN() string {
	if d.Driver == "sqlite" {
		return d.Path
	}
	user := url.User(d.User)
	if d.Password != "" {
		user = url.UserPassword(d.User, "xxxxx")
	}
	return d.postgresURL(user)
}

func (d DatabaseConfig) postgresURL(user *url.Userinfo) string {
	query := url.Values{}
	if d.SSLMode != "" {
		query.Set("sslmode", d.SSLMode)
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     user,
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: query.Encode(),
	}
	return u.String()
}

// SetDefaults sets default values and environment bindings on the global Viper instance.
func SetDefaults() {
	setDefaults(viper.GetViper())
}

// LoadAndValidate loads config from Viper and validates it
func LoadAndValidate() (*Config, error) {
	return loadAndValidateFromViper(viper.GetViper())
}

// ValidateYAMLContent validates configuration from raw YAML content.
func ValidateYAMLContent(content []byte) (*Config, error) {
	local := viper.New()
	setDefaults(local)
	local.SetConfigType("yaml")
	if err := local.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("read config content: %w", err)
	}
	return loadAndValidateFromViper(local)
}

// ExampleYAML returns the default configuration template for Postgres.
func ExampleYAML() string {
	content, _ := ExampleYAMLFor("postgres")
	return content
}

// ExampleYAMLFor returns a configuration template whose database section fits driver.
func ExampleYAMLFor(driver string) (string, error) {
	var database string
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "postgres":
		database = `database:
  driver: "postgres"
  name: "postgres"
  user: "postgres"
  password: ""
  host: "localhost"
  port: 5432
  sslmode: "require"
`
	case "sqlite":
		database = `database:
  driver: "sqlite"
  path: "./examexport.db"
`
	default:
		return "", fmt.Errorf("unsupported database driver: %s (supported: postgres, sqlite)", driver)
	}

	return `# examexport configuration
# Secrets may also come from the environment (APP_PASSWORD, SUPABASE_*).
app:
  password: ""
  # bcrypt hash, takes precedence over password when set
  password_hash: ""

` + database + `
server:
  port: 8501
  session_ttl: "12h"

export:
  profile: "detailed"
`, nil
}

func loadAndValidateFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	cfg.Export.Profile = strings.ToLower(strings.TrimSpace(cfg.Export.Profile))

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if err := validateDatabase(cfg.Database); err != nil {
		return nil, err
	}
	if _, err := export.ProfileByName(cfg.Export.Profile); err != nil {
		return nil, fmt.Errorf("validation failed: export.profile: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyDatabaseDriver, "postgres")
	v.SetDefault(KeyDatabasePort, 5432)
	v.SetDefault(KeyDatabaseSSLMode, "require")
	v.SetDefault(KeyDatabasePath, "./examexport.db")
	v.SetDefault(KeyServerPort, 8501)
	v.SetDefault(KeyServerSessionTTL, 12*time.Hour)
	v.SetDefault(KeyExportProfile, export.ProfileDetailed)

	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}
}

func validateDatabase(db DatabaseConfig) error {
	switch db.Driver {
	case "postgres":
		missing := make([]string, 0, 5)
		if strings.TrimSpace(db.Name) == "" {
			missing = append(missing, "database.name")
		}
		if strings.TrimSpace(db.User) == "" {
			missing = append(missing, "database.user")
		}
		if db.Password == "" {
			missing = append(missing, "database.password")
		}
		if strings.TrimSpace(db.Host) == "" {
			missing = append(missing, "database.host")
		}
		if db.Port <= 0 {
			missing = append(missing, "database.port")
		}
		if len(missing) > 0 {
			return fmt.Errorf("validation failed: postgres requires %s", strings.Join(missing, ", "))
		}
	case "sqlite":
		if strings.TrimSpace(db.Path) == "" {
			return fmt.Errorf("validation failed: sqlite requires database.path")
		}
	}
	return nil
}
