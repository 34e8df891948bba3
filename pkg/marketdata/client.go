package marketdata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-dsl/internal/logger"
	"github.com/rxtech-lab/argo-dsl/internal/types"
	"github.com/rxtech-lab/argo-dsl/pkg/errors"
	"github.com/rxtech-lab/argo-dsl/pkg/marketdata/provider"
	"github.com/rxtech-lab/argo-dsl/pkg/marketdata/writer"
)

// ClientConfig holds the configuration for the market data client.
type ClientConfig struct {
	DefaultProvider ProviderType `validate:"required,oneof=polygon binance parquet"`
	// DataPath is the Parquet cache directory. Downloads are written there and the parquet provider reads it.
	DataPath      string `validate:"required_if=DefaultProvider parquet"`
	PolygonApiKey string `validate:"required_if=DefaultProvider polygon"`
	// RequestsPerSecond limits provider requests. Zero disables the limit.
	RequestsPerSecond float64 `validate:"gte=0"`
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithProvider registers p for kind, replacing the provider built from the config.
func WithProvider(kind ProviderType, p provider.Provider) ClientOption {
	return func(c *Client) {
		c.providers[kind] = p
	}
}

// WithLogger sets the client logger.
func WithLogger(l *logger.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l.Named("marketdata")
	}
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator with the market data rules registered.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("timespan", func(fl validator.FieldLevel) bool {
			return Timespan(fl.Field().String()).IsValid()
		})
	})

	return validate
}

// Client routes bar requests to the provider named by the request.
type Client struct {
	providers map[ProviderType]provider.Provider
	config    ClientConfig
	logger    *logger.Logger
}

// NewClient creates a new market data client with the given configuration.
func NewClient(config ClientConfig, opts ...ClientOption) (*Client, error) {
	if err := Validator().Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidProvider, "invalid client configuration", err)
	}

	c := &Client{
		providers: make(map[ProviderType]provider.Provider),
		config:    config,
		logger:    logger.NewNopLogger(),
	}

	binanceProvider, err := provider.NewBinanceClient(config.RequestsPerSecond)
	if err != nil {
		return nil, err
	}

	c.providers[ProviderBinance] = binanceProvider

	if config.PolygonApiKey != "" {
		polygonProvider, err := provider.NewPolygonClient(config.PolygonApiKey, config.RequestsPerSecond)
		if err != nil {
			return nil, err
		}

		c.providers[ProviderPolygon] = polygonProvider
	}

	if config.DataPath != "" {
		parquetProvider, err := provider.NewParquetClient(config.DataPath)
		if err != nil {
			return nil, err
		}

		c.providers[ProviderParquet] = parquetProvider
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *Client) provider(req Request) (provider.Provider, error) {
	kind := req.Exchange
	if kind == "" {
		kind = c.config.DefaultProvider
	}

	p, ok := c.providers[kind]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeInvalidProvider, "provider %s is not configured", kind)
	}

	return p, nil
}

func (c *Client) check(req Request) (provider.Provider, error) {
	if err := Validator().Struct(req); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidDataRequest, err, "invalid market data request for %s", req.Ticker)
	}

	return c.provider(req)
}

// FetchBars loads the bars of req into memory.
func (c *Client) FetchBars(ctx context.Context, req Request) (*types.Bars, error) {
	p, err := c.check(req)
	if err != nil {
		return nil, err
	}

	mem := writer.NewMemoryWriter(req.Ticker)

	if _, err := p.Download(ctx, req.Query(), mem, nil); err != nil {
		code := errors.GetCode(err)
		if code == errors.ErrCodeUnknown {
			code = errors.ErrCodeMarketDataFetchFailed
		}

		return nil, errors.Wrapf(code, err, "failed to fetch bars for %s", req.Ticker)
	}

	bars := mem.Bars()
	c.logger.Debug("Fetched bars",
		zap.String("ticker", req.Ticker),
		zap.String("exchange", string(req.Exchange)),
		zap.Int("count", bars.Len()),
	)

	return bars, nil
}

// Download writes the bars of req into the Parquet cache and returns the file path.
// The context can be used to cancel the download operation.
func (c *Client) Download(ctx context.Context, req Request, onProgress provider.OnDownloadProgress) (string, error) {
	if c.config.DataPath == "" {
		return "", errors.New(errors.ErrCodeInvalidProvider, "no data path configured")
	}

	p, err := c.check(req)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(c.config.DataPath, 0o755); err != nil {
		return "", errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to create data path", err)
	}

	outputPath := filepath.Join(c.config.DataPath, provider.CacheFileName(req.Query()))

	path, err := p.Download(ctx, req.Query(), writer.NewDuckDBWriter(outputPath, c.logger), onProgress)
	if err != nil {
		return "", fmt.Errorf("download failed: %w", err)
	}

	c.logger.Info("Downloaded bars", zap.String("ticker", req.Ticker), zap.String("path", path))

	return path, nil
}
