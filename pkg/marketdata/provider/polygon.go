package provider

import (
	"context"
	"fmt"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"golang.org/x/time/rate"

	"github.com/rxtech-lab/argo-dsl/internal/types"
	"github.com/rxtech-lab/argo-dsl/pkg/errors"
	"github.com/rxtech-lab/argo-dsl/pkg/marketdata/writer"
)

// PolygonAggsIterator is the part of the polygon aggregate iterator the client uses.
type PolygonAggsIterator interface {
	Next() bool
	Item() models.Agg
	Err() error
}

// PolygonAPIClient is the part of the polygon REST client the provider uses.
type PolygonAPIClient interface {
	ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator
}

type polygonAPI struct {
	client *polygon.Client
}

func (a polygonAPI) ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator {
	return a.client.ListAggs(ctx, params, options...)
}

type PolygonClient struct {
	apiClient PolygonAPIClient
	limiter   *rate.Limiter
}

// NewPolygonClient creates a polygon provider. requestsPerSecond limits aggregate requests; zero disables the limit.
func NewPolygonClient(apiKey string, requestsPerSecond float64) (Provider, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeInvalidProvider, "apiKey is required")
	}

	return &PolygonClient{
		apiClient: polygonAPI{client: polygon.New(apiKey)},
		limiter:   newLimiter(requestsPerSecond),
	}, nil
}

// NewPolygonClientWithAPI creates a polygon provider on top of api.
func NewPolygonClientWithAPI(api PolygonAPIClient) *PolygonClient {
	return &PolygonClient{
		apiClient: api,
		limiter:   newLimiter(0),
	}
}

func (c *PolygonClient) Download(ctx context.Context, q Query, w writer.MarketDataWriter, onProgress OnDownloadProgress) (string, error) {
	return runWriter(w, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return errors.Wrap(errors.ErrCodeMarketDataFetchFailed, "rate limiter wait failed", err)
		}

		//nolint:exhaustruct // third-party struct with many optional fields
		params := models.ListAggsParams{
			Ticker:     q.Ticker,
			Multiplier: q.Multiplier,
			Timespan:   q.Timespan,
			From:       models.Millis(q.From),
			To:         models.Millis(q.To),
		}.WithLimit(50000)

		iter := c.apiClient.ListAggs(ctx, params)

		total := q.To.Sub(q.From).Hours()/24 + 1
		message := fmt.Sprintf("Downloading %s", q.Ticker)
		processed := 0

		for iter.Next() {
			agg := iter.Item()
			barTime := time.Time(agg.Timestamp)

			err := w.Write(types.Bar{
				Time:   barTime,
				Symbol: q.Ticker,
				Open:   agg.Open,
				High:   agg.High,
				Low:    agg.Low,
				Close:  agg.Close,
				Volume: agg.Volume,
			})
			if err != nil {
				return fmt.Errorf("failed to write data: %w", err)
			}

			processed++
			if processed%1000 == 0 {
				reportProgress(onProgress, barTime.Sub(q.From).Hours()/24, total, message)
			}
		}

		if iter.Err() != nil {
			return errors.Wrap(errors.ErrCodeMarketDataFetchFailed, "error iterating polygon aggregates", iter.Err())
		}

		reportProgress(onProgress, total, total, message)

		return nil
	})
}

// runWriter initializes w, runs fill and finalizes w. w is closed on every path.
func runWriter(w writer.MarketDataWriter, fill func() error) (path string, err error) {
	if w == nil {
		return "", errors.New(errors.ErrCodeMarketDataWriteFailed, "no writer configured")
	}

	if err = w.Initialize(); err != nil {
		return "", fmt.Errorf("failed to initialize writer: %w", err)
	}

	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("error closing writer: %w", cerr)
		}
	}()

	if err = fill(); err != nil {
		return "", err
	}

	path, err = w.Finalize()
	if err != nil {
		return "", fmt.Errorf("failed to finalize writer: %w", err)
	}

	return path, nil
}
