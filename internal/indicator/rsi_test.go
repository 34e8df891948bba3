package indicator

import (
	"math"
	"testing"

	"github.com/rxtech-lab/argo-dsl/internal/dsl/value"
	"github.com/rxtech-lab/argo-dsl/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type RSITestSuite struct {
	suite.Suite
}

func TestRSISuite(t *testing.T) {
	suite.Run(t, new(RSITestSuite))
}

func (suite *RSITestSuite) TestRSIPadding() {
	vars := Variables{"close": value.Numbers{44, 44.3, 44.1, 44.5, 44.9, 45.1, 45.4}}

	result, err := RSI([]value.Value{value.Text("close"), value.Number(3)}, vars)
	suite.NoError(err)
	suite.Len(result, 7)

	for i := 0; i < 3; i++ {
		suite.True(math.IsNaN(result[i]), "index %d", i)
	}

	for i := 3; i < 7; i++ {
		suite.False(math.IsNaN(result[i]), "index %d", i)
		suite.GreaterOrEqual(result[i], 0.0)
		suite.LessOrEqual(result[i], 100.0)
	}
}

func (suite *RSITestSuite) TestRSIWilderSmoothing() {
	vars := Variables{"close": value.Numbers{1, 2, 1, 2, 3}}

	result, err := RSI([]value.Value{value.Text("close"), value.Number(2)}, vars)
	suite.NoError(err)

	// first window: gains 1, losses 1 -> 50
	suite.InDelta(50.0, result[2], 1e-9)
	// avgGain = (0.5*1+1)/2 = 0.75, avgLoss = (0.5*1+0)/2 = 0.25 -> 75
	suite.InDelta(75.0, result[3], 1e-9)
	// avgGain = (0.75+1)/2 = 0.875, avgLoss = 0.125 -> 87.5
	suite.InDelta(87.5, result[4], 1e-9)
}

func (suite *RSITestSuite) TestRSIOnlyGains() {
	vars := Variables{"close": value.Numbers{1, 2, 3, 4, 5}}

	result, err := RSI([]value.Value{value.Text("close"), value.Number(2)}, vars)
	suite.NoError(err)

	for i := 2; i < 5; i++ {
		suite.Equal(100.0, result[i])
	}
}

func (suite *RSITestSuite) TestRSIFlatSeries() {
	vars := Variables{"close": value.Numbers{5, 5, 5, 5}}

	result, err := RSI([]value.Value{value.Text("close"), value.Number(2)}, vars)
	suite.NoError(err)
	suite.Equal(50.0, result[2])
	suite.Equal(50.0, result[3])
}

func (suite *RSITestSuite) TestRSIErrors() {
	vars := Variables{"close": value.Numbers{1, 2, 3}}

	_, err := RSI([]value.Value{value.Text("close"), value.Number(3)}, vars)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidPeriod))

	_, err = RSI([]value.Value{value.Text("close"), value.Number(0)}, vars)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidPeriod))

	_, err = RSI([]value.Value{value.Text("close"), value.Number(1e20)}, vars)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidPeriod))

	_, err = RSI([]value.Value{value.Text("volume"), value.Number(2)}, vars)
	suite.True(errors.HasCode(err, errors.ErrCodeVariableNotFound))
}
