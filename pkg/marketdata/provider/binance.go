package provider

import (
	"context"
	"fmt"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/polygon-io/client-go/rest/models"
	"golang.org/x/time/rate"

	"github.com/rxtech-lab/argo-dsl/internal/types"
	"github.com/rxtech-lab/argo-dsl/pkg/errors"
	"github.com/rxtech-lab/argo-dsl/pkg/marketdata/writer"
)

// binancePageSize is the default number of klines Binance returns per request.
const binancePageSize = 500

// BinanceKlinesService is the part of the binance klines service the provider uses.
type BinanceKlinesService interface {
	Symbol(symbol string) BinanceKlinesService
	Interval(interval string) BinanceKlinesService
	StartTime(startTime int64) BinanceKlinesService
	EndTime(endTime int64) BinanceKlinesService
	Do(ctx context.Context) ([]*binance.Kline, error)
}

// BinanceAPIClient is the part of the binance client the provider uses.
type BinanceAPIClient interface {
	NewKlinesService() BinanceKlinesService
}

type binanceAPI struct {
	client *binance.Client
}

func (a binanceAPI) NewKlinesService() BinanceKlinesService {
	return &binanceKlines{service: a.client.NewKlinesService()}
}

type binanceKlines struct {
	service *binance.KlinesService
}

func (k *binanceKlines) Symbol(symbol string) BinanceKlinesService {
	k.service.Symbol(symbol)

	return k
}

func (k *binanceKlines) Interval(interval string) BinanceKlinesService {
	k.service.Interval(interval)

	return k
}

func (k *binanceKlines) StartTime(startTime int64) BinanceKlinesService {
	k.service.StartTime(startTime)

	return k
}

func (k *binanceKlines) EndTime(endTime int64) BinanceKlinesService {
	k.service.EndTime(endTime)

	return k
}

func (k *binanceKlines) Do(ctx context.Context) ([]*binance.Kline, error) {
	return k.service.Do(ctx)
}

type BinanceClient struct {
	apiClient BinanceAPIClient
	limiter   *rate.Limiter
}

// NewBinanceClient creates a provider for Binance public klines.
// requestsPerSecond limits page requests; zero disables the limit.
func NewBinanceClient(requestsPerSecond float64) (Provider, error) {
	return &BinanceClient{
		apiClient: binanceAPI{client: binance.NewClient("", "")},
		limiter:   newLimiter(requestsPerSecond),
	}, nil
}

// NewBinanceClientWithAPI creates a Binance provider on top of api.
func NewBinanceClientWithAPI(api BinanceAPIClient) *BinanceClient {
	return &BinanceClient{
		apiClient: api,
		limiter:   newLimiter(0),
	}
}

// Download pages through the klines of q, using the close time of the last kline of a page as the start
// of the next.
func (c *BinanceClient) Download(ctx context.Context, q Query, w writer.MarketDataWriter, onProgress OnDownloadProgress) (string, error) {
	interval, err := convertTimespanToBinanceInterval(q.Timespan, q.Multiplier)
	if err != nil {
		return "", err
	}

	return runWriter(w, func() error {
		startTimeMillis := q.From.UnixMilli()
		endTimeMillis := q.To.UnixMilli()
		currentStartTime := startTimeMillis
		message := fmt.Sprintf("Downloading %s klines from Binance", q.Ticker)

		for {
			if err := c.limiter.Wait(ctx); err != nil {
				return errors.Wrap(errors.ErrCodeMarketDataFetchFailed, "rate limiter wait failed", err)
			}

			klines, err := c.apiClient.NewKlinesService().
				Symbol(q.Ticker).
				Interval(interval).
				StartTime(currentStartTime).
				EndTime(endTimeMillis).
				Do(ctx)
			if err != nil {
				return errors.Wrap(errors.ErrCodeMarketDataFetchFailed, "failed to fetch klines from Binance", err)
			}

			reportProgress(onProgress, float64(currentStartTime-startTimeMillis), float64(endTimeMillis-startTimeMillis), message)

			if err := processKlines(w, q.Ticker, klines); err != nil {
				return err
			}

			if len(klines) < binancePageSize {
				return nil
			}

			currentStartTime = klines[len(klines)-1].CloseTime + 1
			if currentStartTime >= endTimeMillis {
				return nil
			}
		}
	})
}

// processKlines converts Binance klines to bars and writes them.
func processKlines(w writer.MarketDataWriter, ticker string, klines []*binance.Kline) error {
	for _, k := range klines {
		prices := make([]float64, 0, 5)

		for _, field := range []string{k.Open, k.High, k.Low, k.Close, k.Volume} {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "invalid kline value %q", field)
			}

			prices = append(prices, v)
		}

		bar := types.Bar{
			Time:   time.UnixMilli(k.OpenTime).UTC(),
			Symbol: ticker,
			Open:   prices[0],
			High:   prices[1],
			Low:    prices[2],
			Close:  prices[3],
			Volume: prices[4],
		}

		if err := w.Write(bar); err != nil {
			return fmt.Errorf("failed to write market data: %w", err)
		}
	}

	return nil
}

// convertTimespanToBinanceInterval converts the polygon timespan and multiplier to a Binance interval string.
// Binance intervals: 1s, 1m, 3m, 5m, 15m, 30m, 1h, 2h, 4h, 6h, 8h, 12h, 1d, 3d, 1w, 1M
// Ref: https://binance-docs.github.io/apidocs/spot/en/#kline-candlestick-data
func convertTimespanToBinanceInterval(timespan models.Timespan, multiplier int) (string, error) {
	supported := map[models.Timespan][]int{
		models.Second: {1},
		models.Minute: {1, 3, 5, 15, 30},
		models.Hour:   {1, 2, 4, 6, 8, 12},
		models.Day:    {1, 3},
		models.Week:   {1},
		models.Month:  {1},
	}

	suffix := map[models.Timespan]string{
		models.Second: "s",
		models.Minute: "m",
		models.Hour:   "h",
		models.Day:    "d",
		models.Week:   "w",
		models.Month:  "M",
	}

	multipliers, ok := supported[timespan]
	if !ok {
		return "", errors.Newf(errors.ErrCodeInvalidTimespan, "unsupported timespan for Binance: %s", timespan)
	}

	for _, m := range multipliers {
		if m == multiplier {
			return fmt.Sprintf("%d%s", multiplier, suffix[timespan]), nil
		}
	}

	return "", errors.Newf(errors.ErrCodeInvalidTimespan, "unsupported %s multiplier for Binance: %d", timespan, multiplier)
}
