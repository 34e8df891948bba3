// Package marketdata fetches OHLCV bars for strategy data blocks and caches them as Parquet files.
package marketdata

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-dsl/internal/types"
	"github.com/rxtech-lab/argo-dsl/pkg/marketdata/provider"
)

// ProviderType defines the type of market data provider.
type ProviderType = provider.ProviderType

const (
	ProviderPolygon = provider.ProviderPolygon
	ProviderBinance = provider.ProviderBinance
	ProviderParquet = provider.ProviderParquet
)

// Request selects the bars of one ticker.
type Request struct {
	Ticker string `json:"ticker" validate:"required"`
	// Exchange picks the provider. Empty uses the client default.
	Exchange   ProviderType `json:"exchange,omitempty" validate:"omitempty,oneof=polygon binance parquet"`
	Multiplier int          `json:"multiplier" validate:"min=1"`
	From       time.Time    `json:"from" validate:"required"`
	To         time.Time    `json:"to" validate:"required,gtefield=From"`
	Timespan   Timespan     `json:"timespan" validate:"required,timespan"`
}

// Query converts the request into a provider query.
// The effective multiplier is the request multiplier times the timespan's own multiplier.
func (r Request) Query() provider.Query {
	return provider.Query{
		Ticker:     r.Ticker,
		From:       r.From,
		To:         r.To,
		Multiplier: r.Multiplier * r.Timespan.Multiplier(),
		Timespan:   r.Timespan.Timespan(),
	}
}

// Fetcher loads the bars of a request.
type Fetcher interface {
	FetchBars(ctx context.Context, req Request) (*types.Bars, error)
}
