package value

import (
	"math"
	"testing"

	"github.com/rxtech-lab/argo-dsl/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type ValueTestSuite struct {
	suite.Suite
}

func TestValueSuite(t *testing.T) {
	suite.Run(t, new(ValueTestSuite))
}

func (suite *ValueTestSuite) TestKinds() {
	suite.Equal(KindNumber, Number(1).Kind())
	suite.Equal(KindBool, Bool(true).Kind())
	suite.Equal(KindText, Text("close").Kind())
	suite.Equal(KindList, List{Number(1)}.Kind())
	suite.Equal(KindNumbers, Numbers{1, 2}.Kind())
	suite.Equal(KindBools, Bools{true}.Kind())
}

func (suite *ValueTestSuite) TestExtractionIsTotal() {
	n, err := AsNumber(Number(3.5))
	suite.NoError(err)
	suite.Equal(3.5, n)

	_, err = AsNumber(Text("3.5"))
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidType))
	suite.Contains(err.Error(), "expected number, got text")

	_, err = AsBool(Numbers{1})
	suite.Error(err)

	_, err = AsText(nil)
	suite.Error(err)
	suite.Contains(err.Error(), "got nothing")

	vec, err := AsNumbers(Numbers{1, 2})
	suite.NoError(err)
	suite.Equal([]float64{1, 2}, vec)

	_, err = AsBools(Bool(true))
	suite.Error(err)

	list, err := AsList(List{Text("a")})
	suite.NoError(err)
	suite.Len(list, 1)
}

func (suite *ValueTestSuite) TestSeriesPromotion() {
	series, err := NumericSeries(Number(2))
	suite.NoError(err)
	suite.Equal([]float64{2}, series)

	flags, err := BoolSeries(Bool(false))
	suite.NoError(err)
	suite.Equal([]bool{false}, flags)

	_, err = NumericSeries(Bools{true})
	suite.Error(err)
}

func (suite *ValueTestSuite) TestPredicatesAndLen() {
	suite.True(IsNumeric(Number(1)))
	suite.True(IsNumeric(Numbers{}))
	suite.False(IsNumeric(Text("x")))
	suite.True(IsBoolean(Bools{true}))
	suite.False(IsBoolean(Number(0)))

	suite.Equal(1, Len(Number(1)))
	suite.Equal(3, Len(Numbers{1, 2, 3}))
	suite.Equal(0, Len(nil))
}

func (suite *ValueTestSuite) TestString() {
	suite.Equal("1.5", Number(1.5).String())
	suite.Equal("[1, 2]", Numbers{1, 2}.String())
	suite.Equal("[true, false]", Bools{true, false}.String())
	suite.Equal("[a, 1]", List{Text("a"), Number(1)}.String())
}

func (suite *ValueTestSuite) TestToNative() {
	native := ToNative(Numbers{1, math.NaN(), 3})
	suite.Equal([]any{1.0, nil, 3.0}, native)
	suite.Equal([]any{"a", true}, ToNative(List{Text("a"), Bool(true)}))
	suite.Equal(2.0, ToNative(Number(2)))
}
