package provider

import (
	"context"
	"time"

	"github.com/polygon-io/client-go/rest/models"
	"golang.org/x/time/rate"

	"github.com/rxtech-lab/argo-dsl/pkg/marketdata/writer"
)

// ProviderType names a market data provider.
type ProviderType string

const (
	ProviderPolygon ProviderType = "polygon"
	ProviderBinance ProviderType = "binance"
	ProviderParquet ProviderType = "parquet"
)

type OnDownloadProgress = func(current float64, total float64, message string)

// Query selects the bars to download.
type Query struct {
	Ticker     string
	From       time.Time
	To         time.Time
	Multiplier int
	Timespan   models.Timespan
}

type Provider interface {
	// Download writes the bars matching q to w in time order and returns the writer's output path.
	// The writer is initialized, finalized and closed by the provider.
	// The context can be used to cancel the download operation.
	// example:
	// Download(ctx, Query{Ticker: "AAPL", From: from, To: to, Multiplier: 1, Timespan: models.Day}, w, onProgress)
	Download(ctx context.Context, q Query, w writer.MarketDataWriter, onProgress OnDownloadProgress) (path string, err error)
}

// newLimiter returns a limiter allowing requestsPerSecond requests. Zero or less disables limiting.
func newLimiter(requestsPerSecond float64) *rate.Limiter {
	if requestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}

	return rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
}

func reportProgress(onProgress OnDownloadProgress, current, total float64, message string) {
	if onProgress != nil {
		onProgress(current, total, message)
	}
}
