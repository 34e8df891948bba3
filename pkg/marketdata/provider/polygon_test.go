package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/polygon-io/client-go/rest/models"
	"github.com/stretchr/testify/suite"

	dslerrors "github.com/rxtech-lab/argo-dsl/pkg/errors"
)

// mockPolygonAPIClient implements PolygonAPIClient for testing.
type mockPolygonAPIClient struct {
	iterator   PolygonAggsIterator
	lastParams *models.ListAggsParams
}

func (m *mockPolygonAPIClient) ListAggs(_ context.Context, params *models.ListAggsParams, _ ...models.RequestOption) PolygonAggsIterator {
	m.lastParams = params

	return m.iterator
}

// mockPolygonIterator implements PolygonAggsIterator for testing.
type mockPolygonIterator struct {
	aggs  []models.Agg
	index int
	err   error
}

func (m *mockPolygonIterator) Next() bool {
	if m.index < len(m.aggs) {
		m.index++

		return true
	}

	return false
}

func (m *mockPolygonIterator) Item() models.Agg {
	if m.index > 0 && m.index <= len(m.aggs) {
		return m.aggs[m.index-1]
	}

	return models.Agg{}
}

func (m *mockPolygonIterator) Err() error {
	return m.err
}

type PolygonClientTestSuite struct {
	suite.Suite
}

func TestPolygonClientSuite(t *testing.T) {
	suite.Run(t, new(PolygonClientTestSuite))
}

func dayQuery(ticker string) Query {
	return Query{
		Ticker:     ticker,
		From:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		To:         time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Multiplier: 1,
		Timespan:   models.Minute,
	}
}

func (suite *PolygonClientTestSuite) TestNewPolygonClient_ValidApiKey() {
	client, err := NewPolygonClient("test-api-key", 5)
	suite.NoError(err)

	polygonClient, ok := client.(*PolygonClient)
	suite.Require().True(ok)
	suite.NotNil(polygonClient.apiClient)
	suite.NotNil(polygonClient.limiter)
}

func (suite *PolygonClientTestSuite) TestNewPolygonClient_EmptyApiKey() {
	client, err := NewPolygonClient("", 0)
	suite.Error(err)
	suite.Nil(client)
	suite.True(dslerrors.HasCode(err, dslerrors.ErrCodeInvalidProvider))
	suite.Contains(err.Error(), "apiKey is required")
}

func (suite *PolygonClientTestSuite) TestDownload_WithoutWriter() {
	client := NewPolygonClientWithAPI(&mockPolygonAPIClient{iterator: &mockPolygonIterator{}})

	_, err := client.Download(context.Background(), dayQuery("SPY"), nil, nil)
	suite.Error(err)
	suite.Contains(err.Error(), "no writer configured")
}

func (suite *PolygonClientTestSuite) TestDownload_WriterInitializeError() {
	client := NewPolygonClientWithAPI(&mockPolygonAPIClient{iterator: &mockPolygonIterator{}})
	mockW := &mockWriter{initializeErr: errors.New("initialization failed")}

	_, err := client.Download(context.Background(), dayQuery("SPY"), mockW, nil)
	suite.Error(err)
	suite.Contains(err.Error(), "failed to initialize writer")
	suite.Equal(0, mockW.closeCallCount)
}

func (suite *PolygonClientTestSuite) TestDownloadSuccess() {
	aggs := []models.Agg{
		{
			Timestamp: models.Millis(time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)),
			Open:      100.0,
			High:      101.0,
			Low:       99.0,
			Close:     100.5,
			Volume:    1000000,
		},
		{
			Timestamp: models.Millis(time.Date(2024, 1, 1, 9, 31, 0, 0, time.UTC)),
			Open:      100.5,
			High:      102.0,
			Low:       100.0,
			Close:     101.5,
			Volume:    1500000,
		},
	}

	mockAPI := &mockPolygonAPIClient{iterator: &mockPolygonIterator{aggs: aggs}}
	mockW := &mockWriter{outputPath: "/tmp/test.parquet"}
	client := NewPolygonClientWithAPI(mockAPI)

	var lastCurrent, lastTotal float64

	path, err := client.Download(context.Background(), dayQuery("SPY"), mockW, func(current, total float64, _ string) {
		lastCurrent, lastTotal = current, total
	})
	suite.NoError(err)
	suite.Equal("/tmp/test.parquet", path)
	suite.True(mockW.initialized)
	suite.Equal(1, mockW.finalizeCallCount)
	suite.Equal(1, mockW.closeCallCount)
	suite.Equal(lastTotal, lastCurrent)

	suite.Require().Len(mockW.writtenData, 2)
	suite.Equal("SPY", mockW.writtenData[0].Symbol)
	suite.InDelta(100.0, mockW.writtenData[0].Open, 0.01)
	suite.InDelta(101.0, mockW.writtenData[0].High, 0.01)
	suite.InDelta(99.0, mockW.writtenData[0].Low, 0.01)
	suite.InDelta(100.5, mockW.writtenData[0].Close, 0.01)
	suite.InDelta(1000000, mockW.writtenData[0].Volume, 0.01)

	suite.Require().NotNil(mockAPI.lastParams)
	suite.Equal("SPY", mockAPI.lastParams.Ticker)
	suite.Equal(1, mockAPI.lastParams.Multiplier)
	suite.Equal(models.Minute, mockAPI.lastParams.Timespan)
}

func (suite *PolygonClientTestSuite) TestDownloadIteratorError() {
	mockIter := &mockPolygonIterator{err: errors.New("API rate limit exceeded")}
	mockW := &mockWriter{outputPath: "/tmp/test.parquet"}
	client := NewPolygonClientWithAPI(&mockPolygonAPIClient{iterator: mockIter})

	_, err := client.Download(context.Background(), dayQuery("SPY"), mockW, nil)
	suite.Error(err)
	suite.True(dslerrors.HasCode(err, dslerrors.ErrCodeMarketDataFetchFailed))
	suite.Contains(err.Error(), "API rate limit exceeded")
	suite.Equal(0, mockW.finalizeCallCount)
	suite.Equal(1, mockW.closeCallCount)
}

func (suite *PolygonClientTestSuite) TestDownloadWriteError() {
	aggs := []models.Agg{{Timestamp: models.Millis(time.Now()), Open: 1, High: 1, Low: 1, Close: 1, Volume: 1}}
	mockW := &mockWriter{writeErr: errors.New("disk full")}
	client := NewPolygonClientWithAPI(&mockPolygonAPIClient{iterator: &mockPolygonIterator{aggs: aggs}})

	_, err := client.Download(context.Background(), dayQuery("SPY"), mockW, nil)
	suite.Error(err)
	suite.Contains(err.Error(), "failed to write data")
	suite.Contains(err.Error(), "disk full")
}

func (suite *PolygonClientTestSuite) TestDownloadFinalizeError() {
	mockW := &mockWriter{finalizeErr: errors.New("finalize failed")}
	client := NewPolygonClientWithAPI(&mockPolygonAPIClient{iterator: &mockPolygonIterator{}})

	_, err := client.Download(context.Background(), dayQuery("SPY"), mockW, nil)
	suite.Error(err)
	suite.Contains(err.Error(), "failed to finalize writer")
}

func (suite *PolygonClientTestSuite) TestDownloadCloseError() {
	mockW := &mockWriter{closeErr: errors.New("close failed")}
	client := NewPolygonClientWithAPI(&mockPolygonAPIClient{iterator: &mockPolygonIterator{}})

	_, err := client.Download(context.Background(), dayQuery("SPY"), mockW, nil)
	suite.Error(err)
	suite.Contains(err.Error(), "error closing writer")
}

func (suite *PolygonClientTestSuite) TestDownloadCancelledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewPolygonClientWithAPI(&mockPolygonAPIClient{iterator: &mockPolygonIterator{}})
	client.limiter = newLimiter(0.001)
	// exhaust the single token so Wait has to block on the cancelled context
	client.limiter.Allow()

	_, err := client.Download(ctx, dayQuery("SPY"), &mockWriter{}, nil)
	suite.Error(err)
	suite.Contains(err.Error(), "rate limiter wait failed")
}
