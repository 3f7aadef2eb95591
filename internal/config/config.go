package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// FileName is the config file base name searched for in ConfigPaths.
	FileName = "freshpos"
	// EnvPrefix prefixes every environment override, e.g. FRESHPOS_PORT.
	EnvPrefix = "FRESHPOS"
)

// ConfigPaths are searched in order when no explicit file is given.
var ConfigPaths = []string{".", "$HOME/.config/freshpos", "/etc/freshpos"}

type Config struct {
	Port            string        `mapstructure:"port"`
	DBDSN           string        `mapstructure:"db_dsn"`
	LogFile         string        `mapstructure:"log_file"`
	LogLevel        string        `mapstructure:"log_level"`
	CatalogCSV      string        `mapstructure:"catalog_csv"`
	DefaultLanguage string        `mapstructure:"default_language"`
	FreshnessWindow time.Duration `mapstructure:"freshness_window"`
	TimeZone        string        `mapstructure:"time_zone"`
	ManagerPIN      string        `mapstructure:"manager_pin"`
	TemplatesDir    string        `mapstructure:"templates_dir"`
	StaticDir       string        `mapstructure:"static_dir"`
	MaxUploadBytes  int           `mapstructure:"max_upload_bytes"`
	SessionIdle     time.Duration `mapstructure:"session_idle"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("db_dsn", "freshpos.db") // sqlite file in working dir
	v.SetDefault("log_file", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("catalog_csv", "")
	v.SetDefault("default_language", "")
	v.SetDefault("freshness_window", 10*time.Second)
	v.SetDefault("time_zone", "Local")
	v.SetDefault("manager_pin", "246810")
	v.SetDefault("templates_dir", "./web/templates")
	v.SetDefault("static_dir", "./web/static")
	v.SetDefault("max_upload_bytes", 1<<20)
	v.SetDefault("session_idle", 12*time.Hour)
}

// Loader reads configuration from defaults, an optional YAML file and the
// environment, in increasing priority. Flags bound on Viper() win over all.
type Loader struct {
	v *viper.Viper
}

func NewLoader() *Loader {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return &Loader{v: v}
}

// Viper exposes the underlying instance for flag binding.
func (l *Loader) Viper() *viper.Viper { return l.v }

// Load reads file when set, otherwise searches ConfigPaths. A missing
// file is not an error; a broken one is.
func (l *Loader) Load(file string) (Config, error) {
	if file != "" {
		l.v.SetConfigFile(file)
	} else {
		l.v.SetConfigName(FileName)
		l.v.SetConfigType("yaml")
		for _, p := range ConfigPaths {
			l.v.AddConfigPath(p)
		}
	}
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Load is a shortcut for NewLoader().Load("").
func Load() (Config, error) { return NewLoader().Load("") }

func (c Config) Validate() error {
	var errs []error
	if p, err := strconv.Atoi(c.Port); err != nil || p < 1 || p > 65535 {
		errs = append(errs, fmt.Errorf("port %q must be 1-65535", c.Port))
	}
	if strings.TrimSpace(c.DBDSN) == "" {
		errs = append(errs, errors.New("db_dsn is required"))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level %q must be debug, info, warn or error", c.LogLevel))
	}
	if c.FreshnessWindow <= 0 {
		errs = append(errs, fmt.Errorf("freshness_window %s must be positive", c.FreshnessWindow))
	}
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		errs = append(errs, fmt.Errorf("time_zone: %w", err))
	}
	if !validPIN(c.ManagerPIN) {
		errs = append(errs, errors.New("manager_pin must be 4-12 digits"))
	}
	if c.MaxUploadBytes < 1024 {
		errs = append(errs, fmt.Errorf("max_upload_bytes %d is too small", c.MaxUploadBytes))
	}
	if c.SessionIdle < time.Minute {
		errs = append(errs, fmt.Errorf("session_idle %s must be at least a minute", c.SessionIdle))
	}
	return errors.Join(errs...)
}

// Location resolves TimeZone; call after Validate.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Addr is the listen address.
func (c Config) Addr() string { return ":" + c.Port }

func validPIN(s string) bool {
	if len(s) < 4 || len(s) > 12 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
