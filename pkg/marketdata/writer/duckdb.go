package writer

import (
	"database/sql"
	stderrors "errors"
	"fmt"

	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-dsl/internal/logger"
	"github.com/rxtech-lab/argo-dsl/internal/types"
	"github.com/rxtech-lab/argo-dsl/pkg/errors"
)

const (
	createBarsTable = `
		CREATE TABLE IF NOT EXISTS bars (
			seq BIGINT NOT NULL,
			time TIMESTAMP NOT NULL,
			symbol TEXT NOT NULL,
			open DOUBLE,
			high DOUBLE,
			low DOUBLE,
			close DOUBLE,
			volume DOUBLE
		)`

	insertBar = `
		INSERT INTO bars (seq, time, symbol, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	// A bar written twice for the same symbol and time keeps the last write.
	exportBars = `
		COPY (
			SELECT time, symbol, open, high, low, close, volume
			FROM bars
			QUALIFY row_number() OVER (PARTITION BY symbol, time ORDER BY seq DESC) = 1
			ORDER BY symbol, time
		) TO '%s' (FORMAT PARQUET)`
)

// DuckDBWriter stages bars in an in-memory DuckDB table and exports them to a Parquet cache file.
type DuckDBWriter struct {
	db         *sql.DB
	tx         *sql.Tx
	stmt       *sql.Stmt
	outputPath string
	written    int
	logger     *logger.Logger
}

// NewDuckDBWriter creates a writer exporting to the Parquet file at outputPath.
func NewDuckDBWriter(outputPath string, log *logger.Logger) MarketDataWriter {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &DuckDBWriter{
		db:         nil,
		tx:         nil,
		stmt:       nil,
		outputPath: outputPath,
		written:    0,
		logger:     log.Named("duckdb_writer"),
	}
}

// Initialize opens the staging database and prepares the insert inside a transaction.
func (w *DuckDBWriter) Initialize() (err error) {
	w.db, err = sql.Open("duckdb", ":memory:")
	if err != nil {
		return errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to open DuckDB connection", err)
	}

	fail := func(message string, cause error) error {
		if w.tx != nil {
			_ = w.tx.Rollback()
			w.tx = nil
		}

		_ = w.db.Close()
		w.db = nil

		return errors.Wrap(errors.ErrCodeMarketDataWriteFailed, message, cause)
	}

	if _, err = w.db.Exec(createBarsTable); err != nil {
		return fail("failed to create table", err)
	}

	if w.tx, err = w.db.Begin(); err != nil {
		return fail("failed to begin transaction", err)
	}

	if w.stmt, err = w.tx.Prepare(insertBar); err != nil {
		return fail("failed to prepare statement", err)
	}

	w.written = 0

	return nil
}

// Write stages a single bar.
func (w *DuckDBWriter) Write(bar types.Bar) error {
	if w.stmt == nil {
		return errors.New(errors.ErrCodeMarketDataWriteFailed, "writer not initialized or statement is nil")
	}

	if _, err := w.stmt.Exec(w.written, bar.Time, bar.Symbol, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume); err != nil {
		return errors.Wrapf(errors.ErrCodeMarketDataWriteFailed, err, "failed to stage %s bar at %s", bar.Symbol, bar.Time)
	}

	w.written++

	return nil
}

// Finalize commits the staged bars and exports them to Parquet ordered by symbol and time.
func (w *DuckDBWriter) Finalize() (outputPath string, err error) {
	if w.tx == nil {
		return "", errors.New(errors.ErrCodeMarketDataWriteFailed, "writer not initialized or transaction is nil")
	}

	if err = w.tx.Commit(); err != nil {
		_ = w.tx.Rollback()

		return "", errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to commit transaction", err)
	}

	w.tx = nil

	if _, err = w.db.Exec(fmt.Sprintf(exportBars, w.outputPath)); err != nil {
		return "", errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to export to Parquet", err)
	}

	w.logger.Debug("Exported bars", zap.String("path", w.outputPath), zap.Int("written", w.written))

	return w.outputPath, nil
}

// Close releases the statement and connection, rolling back an unfinished transaction.
func (w *DuckDBWriter) Close() error {
	var closeErrors []error

	if w.stmt != nil {
		if err := w.stmt.Close(); err != nil {
			closeErrors = append(closeErrors, fmt.Errorf("failed to close statement: %w", err))
		}

		w.stmt = nil
	}

	if w.tx != nil {
		if err := w.tx.Rollback(); err != nil {
			w.logger.Warn("Failed to rollback transaction during close", zap.Error(err))
		}

		w.tx = nil
	}

	if w.db != nil {
		if err := w.db.Close(); err != nil {
			closeErrors = append(closeErrors, fmt.Errorf("failed to close db connection: %w", err))
		}

		w.db = nil
	}

	return stderrors.Join(closeErrors...)
}
