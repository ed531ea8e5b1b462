package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	ListenAddr     string
	RPCURL         string
	WrappedNative  string
	PGDSN          string
	AuditPath      string
	LoadRetries    int
	LoadBackoff    time.Duration
	RequestTimeout time.Duration
	LogLevel       string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SWAPGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen", ":8480")
	v.SetDefault("audit", "./data/audit.jsonl")
	v.SetDefault("load-retries", 5)
	v.SetDefault("load-backoff", 500*time.Millisecond)
	v.SetDefault("request-timeout", 10*time.Second)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		ListenAddr:     v.GetString("listen"),
		RPCURL:         v.GetString("rpc"),
		WrappedNative:  v.GetString("wrapped-native"),
		PGDSN:          v.GetString("pg-dsn"),
		AuditPath:      v.GetString("audit"),
		LoadRetries:    v.GetInt("load-retries"),
		LoadBackoff:    v.GetDuration("load-backoff"),
		RequestTimeout: v.GetDuration("request-timeout"),
		LogLevel:       v.GetString("log-level"),
	}

	return cfg, nil
}
