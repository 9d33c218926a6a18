// Package config resolves tokenpool settings from defaults, an optional
// ~/.tokenpool/config.toml and TOKENPOOL_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/tokenpool/internal/logger"
	"github.com/spf13/viper"
)

const (
	KeyTokens         = "accounts.tokens"
	KeyTokensFile     = "accounts.file"
	KeyToken          = "accounts.token"
	KeySecretKey      = "accounts.secret_key"
	KeySecretsDir     = "secrets.dir"
	KeyRuntimePath    = "runtime.path"
	KeyReportInterval = "report.interval"
	KeyLogLevel       = "log.level"
	KeyLogFormat      = "log.format"

	EnvPrefix = "TOKENPOOL"

	DefaultSecretKey      = "tokenpool/token"
	DefaultReportInterval = 5 * time.Minute

	configDir  = ".tokenpool"
	configName = "config"
	configType = "toml"
)

// Config is the resolved settings snapshot used to wire the application.
type Config struct {
	Tokens         string
	TokensFile     string
	Token          string
	SecretKey      string
	SecretsDir     string
	RuntimePath    string
	ReportInterval time.Duration
	Log            logger.Config
}

// NewViper returns a viper instance with defaults, env bindings and the
// config file (when present) loaded. A non-empty configPath replaces the
// default ~/.tokenpool/config.toml lookup and must exist.
func NewViper(configPath string) (*viper.Viper, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	baseDir := filepath.Join(homeDir, configDir)

	v := viper.New()
	v.SetDefault(KeySecretKey, DefaultSecretKey)
	v.SetDefault(KeySecretsDir, filepath.Join(baseDir, "secrets"))
	v.SetDefault(KeyRuntimePath, filepath.Join(baseDir, "pool_runtime.toml"))
	v.SetDefault(KeyReportInterval, DefaultReportInterval.String())
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, logger.FormatConsole)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Credential variables keep their short historical names.
	if err := bindEnv(v, KeyTokens, EnvPrefix+"_TOKENS"); err != nil {
		return nil, err
	}
	if err := bindEnv(v, KeyTokensFile, EnvPrefix+"_TOKENS_FILE"); err != nil {
		return nil, err
	}
	if err := bindEnv(v, KeyToken, EnvPrefix+"_TOKEN"); err != nil {
		return nil, err
	}

	v.SetConfigType(configType)
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(baseDir)
	}

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	return v, nil
}

func bindEnv(v *viper.Viper, key, env string) error {
	if err := v.BindEnv(key, env); err != nil {
		return fmt.Errorf("bind %s: %w", env, err)
	}
	return nil
}

// Load reads the resolved settings out of v.
func Load(v *viper.Viper) (Config, error) {
	interval, err := parseInterval(v.GetString(KeyReportInterval))
	if err != nil {
		return Config{}, err
	}

	return Config{
		Tokens:         v.GetString(KeyTokens),
		TokensFile:     v.GetString(KeyTokensFile),
		Token:          v.GetString(KeyToken),
		SecretKey:      v.GetString(KeySecretKey),
		SecretsDir:     v.GetString(KeySecretsDir),
		RuntimePath:    v.GetString(KeyRuntimePath),
		ReportInterval: interval,
		Log: logger.Config{
			Level:  v.GetString(KeyLogLevel),
			Format: v.GetString(KeyLogFormat),
		},
	}, nil
}

func parseInterval(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultReportInterval, nil
	}

	interval, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", KeyReportInterval, raw, err)
	}
	if interval <= 0 {
		return 0, fmt.Errorf("parse %s %q: interval must be positive", KeyReportInterval, raw)
	}

	return interval, nil
}
