package indicator

import (
	"sync"
	"testing"

	"github.com/rxtech-lab/argo-dsl/internal/dsl/value"
	"github.com/rxtech-lab/argo-dsl/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type RegistryTestSuite struct {
	suite.Suite
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistryTestSuite))
}

func constant(args []value.Value, vars Variables) ([]float64, error) {
	return []float64{1}, nil
}

func (suite *RegistryTestSuite) TestDefaultRegistryHasBuiltins() {
	registry := NewDefaultIndicatorRegistry()
	suite.Equal([]string{"ATR", "EMA", "MA", "MACD", "RSI"}, registry.ListIndicators())

	fn, err := registry.GetIndicator(NameMA)
	suite.NoError(err)
	suite.NotNil(fn)
}

func (suite *RegistryTestSuite) TestRegisterAndGet() {
	registry := NewIndicatorRegistry()
	suite.Empty(registry.ListIndicators())

	suite.NoError(registry.RegisterIndicator("ONE", constant))

	fn, err := registry.GetIndicator("ONE")
	suite.NoError(err)

	out, err := fn(nil, nil)
	suite.NoError(err)
	suite.Equal([]float64{1}, out)
}

func (suite *RegistryTestSuite) TestRegisterDuplicate() {
	registry := NewIndicatorRegistry()
	suite.NoError(registry.RegisterIndicator("ONE", constant))

	err := registry.RegisterIndicator("ONE", constant)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeFunctionAlreadyExists))
	suite.Contains(err.Error(), "already registered")
}

func (suite *RegistryTestSuite) TestRegisterNilFunction() {
	registry := NewIndicatorRegistry()
	suite.Error(registry.RegisterIndicator("NIL", nil))
}

func (suite *RegistryTestSuite) TestGetMissing() {
	registry := NewIndicatorRegistry()

	_, err := registry.GetIndicator("VWAP")
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeFunctionNotFound))
	suite.Contains(err.Error(), "GetIndicator: indicator with name VWAP not found")
}

func (suite *RegistryTestSuite) TestRemove() {
	registry := NewDefaultIndicatorRegistry()
	suite.NoError(registry.RemoveIndicator(NameMACD))
	suite.NotContains(registry.ListIndicators(), NameMACD)

	err := registry.RemoveIndicator(NameMACD)
	suite.True(errors.HasCode(err, errors.ErrCodeFunctionNotFound))
}

func (suite *RegistryTestSuite) TestConcurrentAccess() {
	registry := NewDefaultIndicatorRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := registry.GetIndicator(NameRSI)
			suite.NoError(err)
			registry.ListIndicators()
		}()
	}

	wg.Wait()
}
