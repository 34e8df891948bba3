package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type BarsTestSuite struct {
	suite.Suite
}

func TestBarsSuite(t *testing.T) {
	suite.Run(t, new(BarsTestSuite))
}

func (suite *BarsTestSuite) TestAppend() {
	bars := NewBars("AAPL")
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	bars.Append(Bar{Time: start, Symbol: "AAPL", Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 100})
	bars.Append(Bar{Time: start.Add(24 * time.Hour), Symbol: "AAPL", Open: 1.5, High: 3, Low: 1, Close: 2.5, Volume: 200})

	suite.Equal(2, bars.Len())
	suite.Equal([]float64{1, 1.5}, bars.Open)
	suite.Equal([]float64{2, 3}, bars.High)
	suite.Equal([]float64{0.5, 1}, bars.Low)
	suite.Equal([]float64{1.5, 2.5}, bars.Close)
	suite.Equal([]float64{100, 200}, bars.Volume)
	suite.Equal(float64(start.UnixMilli()), bars.Timestamp[0])
	suite.Equal(start, bars.Time(0))
}

func (suite *BarsTestSuite) TestField() {
	bars := NewBars("AAPL")
	bars.Append(Bar{Time: time.Unix(0, 0), Close: 42})

	for _, name := range FieldNames {
		series, ok := bars.Field(name)
		suite.True(ok, name)
		suite.Len(series, 1, name)
	}

	close, ok := bars.Field(FieldClose)
	suite.True(ok)
	suite.Equal([]float64{42}, close)

	_, ok = bars.Field("vwap")
	suite.False(ok)
}
