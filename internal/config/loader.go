package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configName      = ".testfang"
	configType      = "yaml"
	envPrefix       = "TESTFANG"
	envKeySeparator = "_"
)

// LoadOption customizes LoadConfig.
type LoadOption func(*viper.Viper) error

// WithFlag lets a command line flag override key when it was set explicitly.
func WithFlag(key string, flag *pflag.Flag) LoadOption {
	return func(v *viper.Viper) error {
		if flag == nil {
			return nil
		}

		err := v.BindPFlag(key, flag)
		if err != nil {
			return fmt.Errorf("bind flag %s: %w", flag.Name, err)
		}

		return nil
	}
}

// WithOverride forces key to value, ahead of every other source.
func WithOverride(key string, value any) LoadOption {
	return func(v *viper.Viper) error {
		v.Set(key, value)

		return nil
	}
}

// LoadConfig loads configuration from defaults, the config file, TESTFANG_*
// environment variables and flags, in increasing precedence.
// An empty configPath searches .testfang.yaml in CWD and $HOME; a missing
// file is not an error.
func LoadConfig(configPath string, opts ...LoadOption) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	if readErr == nil {
		schemaErr := validateFile(viperCfg.ConfigFileUsed())
		if schemaErr != nil {
			return nil, schemaErr
		}
	}

	for _, opt := range opts {
		if err := opt(viperCfg); err != nil {
			return nil, err
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("base_dir", DefaultBaseDir)

	viperCfg.SetDefault("xunit.report_path", DefaultReportPath)
	viperCfg.SetDefault("xunit.xslt_url", DefaultXSLTURL)
	viperCfg.SetDefault("xunit.provide_details", DefaultProvideDetails)
	viperCfg.SetDefault("xunit.fetch_timeout", DefaultFetchTimeout)
	viperCfg.SetDefault("xunit.fetch_retries", DefaultFetchRetries)

	viperCfg.SetDefault("sources.test_patterns", DefaultTestPatterns())
	viperCfg.SetDefault("sources.source_dirs", DefaultSourceDirs())

	viperCfg.SetDefault("cxx.defines", []string{})
	viperCfg.SetDefault("cxx.include_directories", []string{})

	viperCfg.SetDefault("index.workers", DefaultIndexWorkers)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.json", DefaultLogJSON)

	viperCfg.SetDefault("output.format", DefaultOutputFormat)
	viperCfg.SetDefault("output.file", DefaultOutputFile)
}
