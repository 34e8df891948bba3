package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-dsl/pkg/errors"
)

type SettingsTestSuite struct {
	suite.Suite
}

func TestSettingsSuite(t *testing.T) {
	suite.Run(t, new(SettingsTestSuite))
}

func (suite *SettingsTestSuite) writeConfig(name, content string) string {
	dir := suite.T().TempDir()
	path := filepath.Join(dir, name)
	suite.Require().NoError(os.WriteFile(path, []byte(content), 0o600))

	return path
}

func (suite *SettingsTestSuite) TestDefaults() {
	s, err := Load("")
	suite.Require().NoError(err)

	suite.Equal(":8080", s.Server.Addr)
	suite.Equal("backtest_tasks", s.Redis.Queue)
	suite.Equal(5*time.Second, s.Redis.BlockTimeout)
	suite.Equal("polygon", s.MarketData.Provider)
	suite.Equal([]string{"parameters"}, s.Engine.RequiredBlocks)
	suite.Equal("argo_dsl", s.Metrics.Namespace)
}

func (suite *SettingsTestSuite) TestLoadFile() {
	path := suite.writeConfig("config.yml", `
server:
  addr: ":9090"
redis:
  addr: "redis:6379"
  queue: "strategies"
marketdata:
  provider: binance
  requests_per_second: 2
engine:
  required_blocks: [parameters, entry]
`)

	s, err := Load(path)
	suite.Require().NoError(err)

	suite.Equal(":9090", s.Server.Addr)
	suite.Equal("redis:6379", s.Redis.Addr)
	suite.Equal("strategies", s.Redis.Queue)
	suite.Equal("binance", s.MarketData.Provider)
	suite.Equal(2.0, s.MarketData.RequestsPerSecond)
	suite.Equal([]string{"parameters", "entry"}, s.Engine.RequiredBlocks)
}

func (suite *SettingsTestSuite) TestLoadDirectory() {
	path := suite.writeConfig("config.yml", "logger:\n  level: debug\n")

	s, err := Load(filepath.Dir(path))
	suite.Require().NoError(err)
	suite.Equal("debug", s.Logger.Level)
}

func (suite *SettingsTestSuite) TestEnvironmentOverrides() {
	suite.T().Setenv("ARGO_DSL_REDIS_QUEUE", "from_env")

	s, err := Load("")
	suite.Require().NoError(err)
	suite.Equal("from_env", s.Redis.Queue)
}

func (suite *SettingsTestSuite) TestInvalid() {
	tests := []struct {
		name    string
		content string
	}{
		{name: "unknown provider", content: "marketdata:\n  provider: yahoo\n"},
		{name: "unknown block", content: "engine:\n  required_blocks: [strategy]\n"},
		{name: "bad log level", content: "logger:\n  level: verbose\n"},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			_, err := Load(suite.writeConfig("config.yml", tt.content))
			suite.Require().Error(err)
			suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
		})
	}
}
