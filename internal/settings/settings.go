// Package settings loads the service configuration shared by the server, the worker and the CLI.
package settings

import (
	stderrors "errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/rxtech-lab/argo-dsl/pkg/errors"
)

// EnvPrefix prefixes every environment override, e.g. ARGO_DSL_REDIS_ADDR.
const EnvPrefix = "ARGO_DSL"

// Settings holds all configuration for the services.
type Settings struct {
	Logger     Logger     `mapstructure:"logger"`
	Server     Server     `mapstructure:"server"`
	Redis      Redis      `mapstructure:"redis"`
	MarketData MarketData `mapstructure:"marketdata"`
	Engine     Engine     `mapstructure:"engine"`
	Metrics    Metrics    `mapstructure:"metrics"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// Server holds the configuration for the submission server.
type Server struct {
	Addr         string        `mapstructure:"addr" validate:"required"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" validate:"min=0"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"min=0"`
	// MaxBodyBytes caps the size of a submitted strategy.
	MaxBodyBytes int64 `mapstructure:"max_body_bytes" validate:"min=1"`
}

// Redis holds the configuration for the work queue.
type Redis struct {
	Addr     string `mapstructure:"addr" validate:"required"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"min=0"`
	Queue    string `mapstructure:"queue" validate:"required"`
	// BlockTimeout bounds each blocking pop so the worker notices shutdown.
	BlockTimeout time.Duration `mapstructure:"block_timeout" validate:"min=0"`
}

// MarketData holds the configuration for data blocks.
type MarketData struct {
	Provider          string  `mapstructure:"provider" validate:"oneof=polygon binance parquet"`
	PolygonApiKey     string  `mapstructure:"polygon_api_key"`
	DataPath          string  `mapstructure:"data_path"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"min=0"`
}

// Engine holds the configuration for strategy evaluation.
type Engine struct {
	RequiredBlocks []string      `mapstructure:"required_blocks" validate:"dive,oneof=parameters config indicators data entry exit"`
	Timeout        time.Duration `mapstructure:"timeout" validate:"min=0"`
}

// Metrics holds the configuration for the prometheus collector.
type Metrics struct {
	Namespace string `mapstructure:"namespace" validate:"required"`
}

// Defaults registers the default value of every setting.
func Defaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.queue", "backtest_tasks")
	v.SetDefault("redis.block_timeout", 5*time.Second)
	v.SetDefault("marketdata.provider", "polygon")
	v.SetDefault("marketdata.polygon_api_key", "")
	v.SetDefault("marketdata.data_path", "")
	v.SetDefault("marketdata.requests_per_second", 5)
	v.SetDefault("engine.required_blocks", []string{"parameters"})
	v.SetDefault("engine.timeout", 5*time.Minute)
	v.SetDefault("metrics.namespace", "argo_dsl")
}

// Load reads settings from path (a config.yml file or a directory holding one),
// then applies environment overrides. An empty path uses defaults and the environment only.
func Load(path string) (Settings, error) {
	v := viper.New()
	Defaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if strings.HasSuffix(path, ".yml") || strings.HasSuffix(path, ".yaml") {
			v.SetConfigFile(path)
		} else {
			v.AddConfigPath(path)
			v.SetConfigName("config")
			v.SetConfigType("yml")
		}

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !stderrors.As(err, &notFound) {
				return Settings{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to read settings", err)
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to decode settings", err)
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}

	return s, nil
}

// Validate checks every section against its validate tags.
func (s Settings) Validate() error {
	if err := validator.New().Struct(s); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid settings", err)
	}

	return nil
}
