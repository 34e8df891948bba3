package writer

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-dsl/internal/types"
	"github.com/rxtech-lab/argo-dsl/pkg/errors"
)

type DuckDBWriterTestSuite struct {
	suite.Suite
	tempDir string
}

func TestDuckDBWriterSuite(t *testing.T) {
	suite.Run(t, new(DuckDBWriterTestSuite))
}

func (suite *DuckDBWriterTestSuite) SetupSuite() {
	tempDir, err := os.MkdirTemp("", "duckdb-writer-test")
	suite.Require().NoError(err)
	suite.tempDir = tempDir
}

func (suite *DuckDBWriterTestSuite) TearDownSuite() {
	if suite.tempDir != "" {
		os.RemoveAll(suite.tempDir)
	}
}

func testBar(symbol string, t time.Time, price float64) types.Bar {
	return types.Bar{
		Time:   t,
		Symbol: symbol,
		Open:   price,
		High:   price + 1,
		Low:    price - 1,
		Close:  price + 0.5,
		Volume: 1000,
	}
}

func (suite *DuckDBWriterTestSuite) TestNewDuckDBWriter() {
	outputPath := filepath.Join(suite.tempDir, "test.parquet")
	writer := NewDuckDBWriter(outputPath, nil)

	duckWriter, ok := writer.(*DuckDBWriter)
	suite.Require().True(ok)
	suite.Equal(outputPath, duckWriter.outputPath)
	suite.Nil(duckWriter.db)
	suite.Nil(duckWriter.tx)
	suite.Nil(duckWriter.stmt)
	suite.Zero(duckWriter.written)
	suite.NotNil(duckWriter.logger)
}

func (suite *DuckDBWriterTestSuite) TestWriteWithoutInitialize() {
	writer := NewDuckDBWriter(filepath.Join(suite.tempDir, "no_init.parquet"), nil)

	err := writer.Write(testBar("AAPL", time.Now(), 150))
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeMarketDataWriteFailed))
	suite.Contains(err.Error(), "writer not initialized")
}

func (suite *DuckDBWriterTestSuite) TestFinalizeWithoutInitialize() {
	writer := NewDuckDBWriter(filepath.Join(suite.tempDir, "no_init_finalize.parquet"), nil)

	_, err := writer.Finalize()
	suite.Error(err)
	suite.Contains(err.Error(), "transaction is nil")
}

func (suite *DuckDBWriterTestSuite) TestCloseWithoutInitialize() {
	writer := NewDuckDBWriter(filepath.Join(suite.tempDir, "no_init_close.parquet"), nil)
	suite.NoError(writer.Close())
}

func (suite *DuckDBWriterTestSuite) TestFullWorkflow() {
	outputPath := filepath.Join(suite.tempDir, "workflow.parquet")
	writer := NewDuckDBWriter(outputPath, nil)
	suite.Require().NoError(writer.Initialize())

	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	// written out of order, exported sorted by time
	suite.Require().NoError(writer.Write(testBar("AAPL", start.Add(48*time.Hour), 102)))
	suite.Require().NoError(writer.Write(testBar("AAPL", start, 100)))
	suite.Require().NoError(writer.Write(testBar("AAPL", start.Add(24*time.Hour), 101)))

	path, err := writer.Finalize()
	suite.Require().NoError(err)
	suite.Equal(outputPath, path)
	suite.Require().NoError(writer.Close())

	_, err = os.Stat(outputPath)
	suite.Require().NoError(err)

	db, err := sql.Open("duckdb", ":memory:")
	suite.Require().NoError(err)

	defer db.Close()

	rows, err := db.Query("SELECT open FROM read_parquet('" + outputPath + "')")
	suite.Require().NoError(err)

	defer rows.Close()

	var opens []float64

	for rows.Next() {
		var open float64
		suite.Require().NoError(rows.Scan(&open))
		opens = append(opens, open)
	}

	suite.Require().NoError(rows.Err())
	suite.Equal([]float64{100, 101, 102}, opens)
}

func (suite *DuckDBWriterTestSuite) TestDuplicateTimesKeepLastWrite() {
	outputPath := filepath.Join(suite.tempDir, "dedupe.parquet")
	writer := NewDuckDBWriter(outputPath, nil)
	suite.Require().NoError(writer.Initialize())

	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	suite.Require().NoError(writer.Write(testBar("AAPL", start, 100)))
	suite.Require().NoError(writer.Write(testBar("AAPL", start, 105)))
	suite.Require().NoError(writer.Write(testBar("MSFT", start, 300)))

	_, err := writer.Finalize()
	suite.Require().NoError(err)
	suite.Require().NoError(writer.Close())

	db, err := sql.Open("duckdb", ":memory:")
	suite.Require().NoError(err)

	defer db.Close()

	var (
		count int
		open  float64
	)

	suite.Require().NoError(db.QueryRow("SELECT count(*) FROM read_parquet('" + outputPath + "')").Scan(&count))
	suite.Equal(2, count)

	suite.Require().NoError(db.QueryRow("SELECT open FROM read_parquet('" + outputPath + "') WHERE symbol = 'AAPL'").Scan(&open))
	suite.Equal(105.0, open)
}

func (suite *DuckDBWriterTestSuite) TestDoubleFinalize() {
	writer := NewDuckDBWriter(filepath.Join(suite.tempDir, "double.parquet"), nil)
	suite.Require().NoError(writer.Initialize())
	suite.Require().NoError(writer.Write(testBar("AAPL", time.Now(), 100)))

	_, err := writer.Finalize()
	suite.Require().NoError(err)

	_, err = writer.Finalize()
	suite.Error(err)

	suite.NoError(writer.Close())
}

func (suite *DuckDBWriterTestSuite) TestCloseWithActiveTransaction() {
	writer := NewDuckDBWriter(filepath.Join(suite.tempDir, "active.parquet"), nil)
	suite.Require().NoError(writer.Initialize())
	suite.Require().NoError(writer.Write(testBar("AAPL", time.Now(), 100)))

	suite.NoError(writer.Close())

	duckWriter := writer.(*DuckDBWriter)
	suite.Nil(duckWriter.tx)
	suite.Nil(duckWriter.db)
}

func (suite *DuckDBWriterTestSuite) TestFinalizeExportError() {
	writer := NewDuckDBWriter(filepath.Join(suite.tempDir, "missing", "dir", "out.parquet"), nil)
	suite.Require().NoError(writer.Initialize())
	suite.Require().NoError(writer.Write(testBar("AAPL", time.Now(), 100)))

	_, err := writer.Finalize()
	suite.Error(err)
	suite.Contains(err.Error(), "failed to export to Parquet")

	suite.NoError(writer.Close())
}
