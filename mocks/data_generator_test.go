package mocks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type DataGeneratorTestSuite struct {
	suite.Suite
}

func TestDataGeneratorSuite(t *testing.T) {
	suite.Run(t, new(DataGeneratorTestSuite))
}

func (suite *DataGeneratorTestSuite) TestGenerate() {
	config := DefaultConfig()
	config.Count = 100

	bars := NewDataGenerator(42).Generate(config)
	suite.Require().Len(bars, 100)

	for i, bar := range bars {
		suite.Equal(config.Symbol, bar.Symbol)
		suite.Positive(bar.Open, "open at %d", i)
		suite.Positive(bar.Low, "low at %d", i)
		suite.GreaterOrEqual(bar.High, bar.Low, "high < low at %d", i)

		if i > 0 {
			suite.Equal(config.Interval, bar.Time.Sub(bars[i-1].Time), "interval at %d", i)
		}
	}
}

func (suite *DataGeneratorTestSuite) TestReproducibility() {
	config := DefaultConfig()
	config.Count = 10

	suite.Equal(NewDataGenerator(42).Generate(config), NewDataGenerator(42).Generate(config))
	suite.NotEqual(NewDataGenerator(42).Generate(config), NewDataGenerator(123).Generate(config))
}

func (suite *DataGeneratorTestSuite) TestGenerateBars() {
	bars := Bars("AAPL", 30)

	suite.Equal("AAPL", bars.Ticker)
	suite.Equal(30, bars.Len())
	suite.Len(bars.Timestamp, 30)
	suite.Equal(DefaultConfig().StartTime, bars.Time(0))
	suite.Equal(DefaultConfig().StartTime.Add(24*time.Hour), bars.Time(1))
}
