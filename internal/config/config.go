package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/DoyleJ11/hidden-role-client/internal/notify"
)

const EnvPrefix = "HIDDENROLE"

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Config holds application configuration.
type Config struct {
	HTTP   HTTPConfig
	Log    LogConfig
	Ledger LedgerConfig
	Wallet WalletConfig
	Crypto CryptoConfig
	Notify NotifyConfig
	Flow   FlowConfig
	UI     UIConfig
}

type HTTPConfig struct {
	Addr string
}

type LogConfig struct {
	Level  string
	Format string
}

type LedgerConfig struct {
	Driver    string
	DSN       string
	Contract  string
	BlockTime time.Duration `mapstructure:"block_time"`
}

// WalletConfig holds the master seed every account key and every sealed
// value is derived from.
type WalletConfig struct {
	Seed string
}

type CryptoConfig struct {
	MaxPlaintext uint64 `mapstructure:"max_plaintext"`
}

// NotifyConfig holds how long each kind of notification stays up.
type NotifyConfig struct {
	Pending time.Duration
	Success time.Duration
	Error   time.Duration
}

func (n NotifyConfig) Delays() notify.Delays {
	return notify.Delays{Pending: n.Pending, Success: n.Success, Error: n.Error}
}

type FlowConfig struct {
	Timeout time.Duration
}

type UIConfig struct {
	Lang string
}

// New returns a viper instance with defaults, env overrides and the config
// file location set. Callers may bind flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("ledger.driver", DriverMemory)
	v.SetDefault("ledger.dsn", "")
	v.SetDefault("ledger.contract", "0x5e55104")
	v.SetDefault("ledger.block_time", 500*time.Millisecond)
	v.SetDefault("wallet.seed", "")
	v.SetDefault("crypto.max_plaintext", 255)
	v.SetDefault("notify.pending", notify.DefaultDelays.Pending)
	v.SetDefault("notify.success", notify.DefaultDelays.Success)
	v.SetDefault("notify.error", notify.DefaultDelays.Error)
	v.SetDefault("flow.timeout", 2*time.Minute)
	v.SetDefault("ui.lang", "en")

	v.SetConfigType("toml")

	cfgPath := os.Getenv(EnvPrefix + "_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "hidden-role"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

// LoadDotEnv loads path into the process environment if it exists. Variables
// already set are kept.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads the config file if present and decodes v.
func Load(v *viper.Viper) (Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read config: %w", err)
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

func (c Config) Validate() error {
	switch c.Ledger.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Ledger.DSN == "" {
			return errors.New("config: ledger.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("config: unknown ledger.driver %q", c.Ledger.Driver)
	}
	if strings.TrimSpace(c.Wallet.Seed) == "" {
		return errors.New("config: wallet.seed is required")
	}
	if c.Ledger.Contract == "" {
		return errors.New("config: ledger.contract is required")
	}
	if c.Crypto.MaxPlaintext == 0 {
		return errors.New("config: crypto.max_plaintext must be positive")
	}
	if c.Flow.Timeout <= 0 {
		return errors.New("config: flow.timeout must be positive")
	}
	return nil
}
