package marketdata_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/polygon-io/client-go/rest/models"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/rxtech-lab/argo-dsl/internal/types"
	"github.com/rxtech-lab/argo-dsl/mocks"
	dslerrors "github.com/rxtech-lab/argo-dsl/pkg/errors"
	"github.com/rxtech-lab/argo-dsl/pkg/marketdata"
	"github.com/rxtech-lab/argo-dsl/pkg/marketdata/provider"
	"github.com/rxtech-lab/argo-dsl/pkg/marketdata/writer"
)

// ClientTestSuite is a test suite for the Client implementation
type ClientTestSuite struct {
	suite.Suite
	ctrl         *gomock.Controller
	mockProvider *mocks.MockProvider
	tempDir      string
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

func (suite *ClientTestSuite) SetupTest() {
	tempDir, err := os.MkdirTemp("", "marketdata-client-test")
	suite.Require().NoError(err)

	suite.tempDir = tempDir
	suite.ctrl = gomock.NewController(suite.T())
	suite.mockProvider = mocks.NewMockProvider(suite.ctrl)
}

func (suite *ClientTestSuite) TearDownTest() {
	suite.ctrl.Finish()
	os.RemoveAll(suite.tempDir)
}

func (suite *ClientTestSuite) newClient(config marketdata.ClientConfig, kind marketdata.ProviderType) *marketdata.Client {
	client, err := marketdata.NewClient(config, marketdata.WithProvider(kind, suite.mockProvider))
	suite.Require().NoError(err)

	return client
}

func request(ticker string) marketdata.Request {
	return marketdata.Request{
		Ticker:     ticker,
		Multiplier: 1,
		From:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		To:         time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		Timespan:   marketdata.TimespanDay,
	}
}

// fill writes closes to the writer the way a provider does.
func fill(closes ...float64) func(context.Context, provider.Query, writer.MarketDataWriter, provider.OnDownloadProgress) (string, error) {
	return func(_ context.Context, q provider.Query, w writer.MarketDataWriter, _ provider.OnDownloadProgress) (string, error) {
		if err := w.Initialize(); err != nil {
			return "", err
		}

		for i, c := range closes {
			if err := w.Write(types.Bar{Time: q.From.AddDate(0, 0, i), Symbol: q.Ticker, Close: c}); err != nil {
				return "", err
			}
		}

		return w.Finalize()
	}
}

func (suite *ClientTestSuite) TestNewClient_InvalidConfig() {
	tests := []struct {
		name   string
		config marketdata.ClientConfig
	}{
		{name: "missing provider", config: marketdata.ClientConfig{}},
		{name: "unknown provider", config: marketdata.ClientConfig{DefaultProvider: "yahoo"}},
		{name: "polygon without key", config: marketdata.ClientConfig{DefaultProvider: marketdata.ProviderPolygon}},
		{name: "parquet without path", config: marketdata.ClientConfig{DefaultProvider: marketdata.ProviderParquet}},
		{name: "negative rate", config: marketdata.ClientConfig{DefaultProvider: marketdata.ProviderBinance, RequestsPerSecond: -1}},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			_, err := marketdata.NewClient(tt.config)
			suite.Error(err)
			suite.True(dslerrors.HasCode(err, dslerrors.ErrCodeInvalidProvider))
		})
	}
}

func (suite *ClientTestSuite) TestFetchBars_DefaultProvider() {
	client := suite.newClient(marketdata.ClientConfig{DefaultProvider: marketdata.ProviderBinance}, marketdata.ProviderBinance)

	suite.mockProvider.EXPECT().
		Download(gomock.Any(), provider.Query{
			Ticker:     "BTCUSDT",
			From:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			To:         time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
			Multiplier: 1,
			Timespan:   models.Day,
		}, gomock.Any(), gomock.Any()).
		DoAndReturn(fill(1, 2, 3)).
		Times(1)

	bars, err := client.FetchBars(context.Background(), request("BTCUSDT"))
	suite.Require().NoError(err)
	suite.Equal("BTCUSDT", bars.Ticker)
	suite.Equal([]float64{1, 2, 3}, bars.Close)
}

func (suite *ClientTestSuite) TestFetchBars_ExchangeSelectsProvider() {
	client := suite.newClient(marketdata.ClientConfig{DefaultProvider: marketdata.ProviderBinance}, marketdata.ProviderPolygon)

	suite.mockProvider.EXPECT().
		Download(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(fill(10)).
		Times(1)

	req := request("AAPL")
	req.Exchange = marketdata.ProviderPolygon

	bars, err := client.FetchBars(context.Background(), req)
	suite.Require().NoError(err)
	suite.Equal([]float64{10}, bars.Close)
}

func (suite *ClientTestSuite) TestFetchBars_ShortTimespanMultiplier() {
	client := suite.newClient(marketdata.ClientConfig{DefaultProvider: marketdata.ProviderBinance}, marketdata.ProviderBinance)

	suite.mockProvider.EXPECT().
		Download(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, q provider.Query, w writer.MarketDataWriter, p provider.OnDownloadProgress) (string, error) {
			suite.Equal(15, q.Multiplier)
			suite.Equal(models.Minute, q.Timespan)

			return fill()(context.Background(), q, w, p)
		})

	req := request("BTCUSDT")
	req.Timespan = marketdata.TimespanFifteenMinutes

	_, err := client.FetchBars(context.Background(), req)
	suite.NoError(err)
}

func (suite *ClientTestSuite) TestFetchBars_InvalidRequest() {
	client := suite.newClient(marketdata.ClientConfig{DefaultProvider: marketdata.ProviderBinance}, marketdata.ProviderBinance)

	tests := []struct {
		name   string
		mutate func(r *marketdata.Request)
	}{
		{name: "missing ticker", mutate: func(r *marketdata.Request) { r.Ticker = "" }},
		{name: "zero multiplier", mutate: func(r *marketdata.Request) { r.Multiplier = 0 }},
		{name: "to before from", mutate: func(r *marketdata.Request) { r.To = r.From.AddDate(0, 0, -1) }},
		{name: "unknown timespan", mutate: func(r *marketdata.Request) { r.Timespan = "fortnight" }},
		{name: "unknown exchange", mutate: func(r *marketdata.Request) { r.Exchange = "yahoo" }},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			req := request("AAPL")
			tt.mutate(&req)

			_, err := client.FetchBars(context.Background(), req)
			suite.Error(err)
			suite.True(dslerrors.HasCode(err, dslerrors.ErrCodeInvalidDataRequest), "got %v", err)
		})
	}
}

func (suite *ClientTestSuite) TestFetchBars_ProviderNotConfigured() {
	client := suite.newClient(marketdata.ClientConfig{DefaultProvider: marketdata.ProviderBinance}, marketdata.ProviderBinance)

	req := request("AAPL")
	req.Exchange = marketdata.ProviderParquet

	_, err := client.FetchBars(context.Background(), req)
	suite.Error(err)
	suite.True(dslerrors.HasCode(err, dslerrors.ErrCodeInvalidProvider))
	suite.Contains(err.Error(), "provider parquet is not configured")
}

func (suite *ClientTestSuite) TestFetchBars_ProviderError() {
	client := suite.newClient(marketdata.ClientConfig{DefaultProvider: marketdata.ProviderBinance}, marketdata.ProviderBinance)

	suite.mockProvider.EXPECT().
		Download(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return("", errors.New("connection reset"))

	_, err := client.FetchBars(context.Background(), request("BTCUSDT"))
	suite.Error(err)
	suite.True(dslerrors.HasCode(err, dslerrors.ErrCodeMarketDataFetchFailed))
	suite.Contains(err.Error(), "failed to fetch bars for BTCUSDT")
}

func (suite *ClientTestSuite) TestDownload_WritesCacheFile() {
	client := suite.newClient(marketdata.ClientConfig{
		DefaultProvider: marketdata.ProviderBinance,
		DataPath:        filepath.Join(suite.tempDir, "cache"),
	}, marketdata.ProviderBinance)

	suite.mockProvider.EXPECT().
		Download(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, q provider.Query, w writer.MarketDataWriter, p provider.OnDownloadProgress) (string, error) {
			path, err := fill(1, 2)(ctx, q, w, p)
			w.Close()

			return path, err
		})

	path, err := client.Download(context.Background(), request("BTCUSDT"), nil)
	suite.Require().NoError(err)
	suite.Equal(filepath.Join(suite.tempDir, "cache", "BTCUSDT_2024-01-01_2024-01-31_1_day.parquet"), path)

	_, err = os.Stat(path)
	suite.NoError(err)

	// the parquet provider reads back what was downloaded
	reader, err := marketdata.NewClient(marketdata.ClientConfig{
		DefaultProvider: marketdata.ProviderParquet,
		DataPath:        filepath.Join(suite.tempDir, "cache"),
	})
	suite.Require().NoError(err)

	bars, err := reader.FetchBars(context.Background(), request("BTCUSDT"))
	suite.Require().NoError(err)
	suite.Equal([]float64{1, 2}, bars.Close)
}

func (suite *ClientTestSuite) TestDownload_NoDataPath() {
	client := suite.newClient(marketdata.ClientConfig{DefaultProvider: marketdata.ProviderBinance}, marketdata.ProviderBinance)

	_, err := client.Download(context.Background(), request("BTCUSDT"), nil)
	suite.Error(err)
	suite.Contains(err.Error(), "no data path configured")
}
