package provider

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"

	"github.com/rxtech-lab/argo-dsl/internal/types"
	"github.com/rxtech-lab/argo-dsl/pkg/errors"
	"github.com/rxtech-lab/argo-dsl/pkg/marketdata/writer"
)

// CacheFileName is the file a download for q is cached under: TICKER_START_END_MULTIPLIER_TIMESPAN.parquet.
func CacheFileName(q Query) string {
	return fmt.Sprintf("%s_%s_%s_%d_%s.parquet",
		q.Ticker,
		q.From.Format(time.DateOnly),
		q.To.Format(time.DateOnly),
		q.Multiplier,
		q.Timespan)
}

// cacheGlob matches every cached file of q's ticker and resolution.
func cacheGlob(dir string, q Query) string {
	return filepath.Join(dir, fmt.Sprintf("%s_*_*_%d_%s.parquet", q.Ticker, q.Multiplier, q.Timespan))
}

// ParquetClient serves bars from Parquet files previously downloaded into a directory.
type ParquetClient struct {
	dataPath string
	sq       squirrel.StatementBuilderType
}

// NewParquetClient creates a provider reading the cache directory dataPath.
func NewParquetClient(dataPath string) (Provider, error) {
	if dataPath == "" {
		return nil, errors.New(errors.ErrCodeInvalidProvider, "dataPath is required")
	}

	return &ParquetClient{
		dataPath: dataPath,
		sq:       squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

// Download writes the cached bars of q's ticker between q.From and q.To inclusive.
// Overlapping cache files are deduplicated by bar time.
func (c *ParquetClient) Download(ctx context.Context, q Query, w writer.MarketDataWriter, onProgress OnDownloadProgress) (string, error) {
	pattern := cacheGlob(c.dataPath, q)

	files, err := filepath.Glob(pattern)
	if err != nil {
		return "", errors.Wrapf(errors.ErrCodeDataNotFound, err, "invalid cache pattern %s", pattern)
	}

	if len(files) == 0 {
		return "", errors.Newf(errors.ErrCodeDataNotFound, "no cached data for %s in %s", q.Ticker, c.dataPath)
	}

	query, args, err := c.sq.
		Select("time", "open", "high", "low", "close", "volume").
		Options("DISTINCT ON (time)").
		From(fmt.Sprintf("read_parquet('%s')", pattern)).
		Where(squirrel.And{
			squirrel.Eq{"symbol": q.Ticker},
			squirrel.GtOrEq{"time": q.From},
			squirrel.LtOrEq{"time": q.To},
		}).
		OrderBy("time ASC").
		ToSql()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeQueryFailed, "failed to build query", err)
	}

	return runWriter(w, func() error {
		db, err := sql.Open("duckdb", ":memory:")
		if err != nil {
			return errors.Wrap(errors.ErrCodeQueryFailed, "failed to open DuckDB connection", err)
		}
		defer db.Close()

		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			return errors.Wrap(errors.ErrCodeQueryFailed, "failed to query cached bars", err)
		}
		defer rows.Close()

		count := 0

		for rows.Next() {
			bar := types.Bar{Symbol: q.Ticker}

			if err := rows.Scan(&bar.Time, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
				return errors.Wrap(errors.ErrCodeMarketDataParseFailed, "failed to scan cached bar", err)
			}

			if err := w.Write(bar); err != nil {
				return fmt.Errorf("failed to write market data: %w", err)
			}

			count++
		}

		if err := rows.Err(); err != nil {
			return errors.Wrap(errors.ErrCodeQueryFailed, "failed to read cached bars", err)
		}

		reportProgress(onProgress, float64(count), float64(count), fmt.Sprintf("Loaded %s from cache", q.Ticker))

		return nil
	})
}
