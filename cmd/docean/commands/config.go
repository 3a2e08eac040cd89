package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/docean/internal/constants"
	"github.com/fivetwenty-io/docean/internal/natsnotify"
	"github.com/fivetwenty-io/docean/pkg/docean"
	"github.com/fivetwenty-io/docean/pkg/doclient"
)

// Config represents the CLI configuration file.
type Config struct {
	API             string        `json:"api,omitempty"               yaml:"api,omitempty"`
	Token           string        `json:"token,omitempty"             yaml:"token,omitempty"`
	Output          string        `json:"output,omitempty"            yaml:"output,omitempty"`
	Debug           bool          `json:"debug,omitempty"             yaml:"debug,omitempty"`
	RateLimitPolicy string        `json:"rate_limit_policy,omitempty" yaml:"rate-limit-policy,omitempty"`
	MaxWait         time.Duration `json:"max_wait,omitempty"          yaml:"max-wait,omitempty"`
	NATSURL         string        `json:"nats_url,omitempty"          yaml:"nats-url,omitempty"`
	NATSSubject     string        `json:"nats_subject,omitempty"      yaml:"nats-subject,omitempty"`
}

func loadConfig() *Config {
	return &Config{
		API:             viper.GetString("api"),
		Token:           viper.GetString("token"),
		Output:          viper.GetString("output"),
		Debug:           viper.GetBool("debug"),
		RateLimitPolicy: viper.GetString("rate-limit-policy"),
		MaxWait:         viper.GetDuration("max-wait"),
		NATSURL:         viper.GetString("nats-url"),
		NATSSubject:     viper.GetString("nats-subject"),
	}
}

func configFilePath() (string, error) {
	configFile := viper.ConfigFileUsed()
	if configFile != "" {
		return configFile, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, ".docean", "config.yml"), nil
}

func saveConfigStruct(config *Config, configFile string) error {
	err := os.MkdirAll(filepath.Dir(configFile), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	err = os.WriteFile(configFile, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	var zapConfig zap.Config
	if verbose {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
		zapConfig.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		zapConfig.Encoding = "console"
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return logger, nil
}

func buildClientConfig(config *Config, logger *zap.Logger) (*docean.Config, error) {
	if config.Token == "" {
		return nil, constants.ErrNoTokenConfigured
	}

	clientConfig := &docean.Config{
		APIEndpoint:      doclient.NormalizeEndpoint(config.API),
		AccessToken:      config.Token,
		RateLimitPolicy:  docean.ParseRateLimitPolicy(config.RateLimitPolicy),
		RateLimitMaxWait: config.MaxWait,
		Debug:            config.Debug,
		UserAgent:        "docean-cli/" + cliVersion,
	}

	if logger != nil {
		clientConfig.Logger = docean.NewZapLogger(logger)
	}

	return clientConfig, nil
}

// CreateClient builds an API client from flags, environment and the config
// file. The returned close function releases the NATS connection, if any.
func CreateClient(ctx context.Context) (docean.Client, func(), error) {
	config := loadConfig()

	logger, err := newLogger(viper.GetBool("verbose"))
	if err != nil {
		return nil, nil, err
	}

	clientConfig, err := buildClientConfig(config, logger)
	if err != nil {
		return nil, nil, err
	}

	closeFn := func() { _ = logger.Sync() }

	if config.NATSURL != "" {
		conn, err := natsnotify.Connect(config.NATSURL, "docean-cli")
		if err != nil {
			return nil, nil, err
		}

		notifier := natsnotify.New(conn,
			natsnotify.WithSubject(config.NATSSubject),
			natsnotify.WithSource("docean-cli"),
			natsnotify.WithLogger(clientConfig.Logger),
		)
		clientConfig.RateLimitObserver = notifier.Observe

		closeFn = func() {
			_ = conn.Drain()
			_ = logger.Sync()
		}
	}

	client, err := doclient.New(ctx, clientConfig)
	if err != nil {
		closeFn()

		return nil, nil, err
	}

	return client, closeFn, nil
}
