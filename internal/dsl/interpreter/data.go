package interpreter

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-dsl/internal/dsl/ast"
	"github.com/rxtech-lab/argo-dsl/internal/dsl/value"
	"github.com/rxtech-lab/argo-dsl/pkg/errors"
	"github.com/rxtech-lab/argo-dsl/pkg/marketdata"
)

// Keys read from a data block.
const (
	dataKeyTicker     = "ticker"
	dataKeyExchange   = "exchange"
	dataKeyTimespan   = "timespan"
	dataKeyMultiplier = "multiplier"
	dataKeyFrom       = "from"
	dataKeyTo         = "to"
)

var dateLayouts = []string{time.DateOnly, time.RFC3339}

// evalDataList loads every block of a data list and returns the tickers loaded.
func evalDataList(ctx context.Context, n *ast.List, env *Environment) (value.Value, error) {
	out := make(value.List, 0, len(n.Items))

	for _, item := range n.Items {
		v, err := loadData(ctx, item, env)
		if err != nil {
			return nil, err
		}

		out = append(out, v)
	}

	return out, nil
}

// loadData fetches the bars one data block describes and stores them in env.
func loadData(ctx context.Context, n *ast.Block, env *Environment) (value.Value, error) {
	req, err := dataRequest(n)
	if err != nil {
		return nil, err
	}

	if env.Fetcher == nil {
		return nil, errors.NewAt(errors.ErrCodeMarketDataFetchFailed, n.Pos.Line, n.Pos.Column, "No market data source configured for %s", req.Ticker)
	}

	env.Logger.Info("loading market data",
		zap.String("ticker", req.Ticker),
		zap.String("timespan", string(req.Timespan)),
		zap.Time("from", req.From),
		zap.Time("to", req.To),
	)

	bars, err := env.Fetcher.FetchBars(ctx, req)
	if err != nil {
		return nil, locate(err, n.Pos)
	}

	if bars == nil {
		return nil, errors.NewAt(errors.ErrCodeDataNotFound, n.Pos.Line, n.Pos.Column, "No bars returned for %s", req.Ticker)
	}

	// providers may echo a normalized symbol
	bars.Ticker = req.Ticker
	env.LoadBars(bars)

	return value.Text(req.Ticker), nil
}

func dataRequest(n *ast.Block) (marketdata.Request, error) {
	req := marketdata.Request{
		Ticker:     "",
		Exchange:   "",
		Multiplier: 1,
		Timespan:   marketdata.TimespanDay,
	}

	ticker, ok, err := dataText(n, dataKeyTicker)
	if err != nil {
		return req, err
	}

	if !ok || ticker == "" {
		return req, errors.NewAt(errors.ErrCodeMissingTicker, n.Pos.Line, n.Pos.Column, "No ticker found")
	}

	req.Ticker = ticker

	if exchange, ok, err := dataText(n, dataKeyExchange); err != nil {
		return req, err
	} else if ok {
		req.Exchange = marketdata.ProviderType(exchange)
	}

	if timespan, ok, err := dataText(n, dataKeyTimespan); err != nil {
		return req, err
	} else if ok {
		req.Timespan = marketdata.Timespan(timespan)
	}

	if !req.Timespan.IsValid() {
		return req, errors.NewAt(errors.ErrCodeInvalidTimespan, n.Pos.Line, n.Pos.Column, "Unsupported timespan '%s' for %s", req.Timespan, ticker)
	}

	if node, ok := n.Get(dataKeyMultiplier); ok {
		lit, isValue := node.(*ast.ValueNode)
		if !isValue || lit.Literal != ast.LiteralNumber || lit.Number < 1 || lit.Number != math.Trunc(lit.Number) {
			pos := node.Position()

			return req, errors.NewAt(errors.ErrCodeInvalidDataRequest, pos.Line, pos.Column, "multiplier must be a positive integer")
		}

		req.Multiplier = int(lit.Number)
	}

	if req.From, err = dataDate(n, dataKeyFrom); err != nil {
		return req, err
	}

	if req.To, err = dataDate(n, dataKeyTo); err != nil {
		return req, err
	}

	if req.To.Before(req.From) {
		return req, errors.NewAt(errors.ErrCodeInvalidDataRequest, n.Pos.Line, n.Pos.Column, "Data range for %s ends before it starts", ticker)
	}

	return req, nil
}

func dataText(n *ast.Block, key string) (string, bool, error) {
	node, ok := n.Get(key)
	if !ok {
		return "", false, nil
	}

	lit, isValue := node.(*ast.ValueNode)
	if !isValue || (lit.Literal != ast.LiteralText && lit.Literal != ast.LiteralDate) {
		pos := node.Position()

		return "", false, errors.NewAt(errors.ErrCodeInvalidType, pos.Line, pos.Column, "Data key '%s' must be text", key)
	}

	return lit.Text, true, nil
}

func dataDate(n *ast.Block, key string) (time.Time, error) {
	text, ok, err := dataText(n, key)
	if err != nil {
		return time.Time{}, err
	}

	if !ok {
		return time.Time{}, errors.NewAt(errors.ErrCodeInvalidDataRequest, n.Pos.Line, n.Pos.Column, "Data block is missing '%s'", key)
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t.UTC(), nil
		}
	}

	node, _ := n.Get(key)
	pos := node.Position()

	return time.Time{}, errors.NewAt(errors.ErrCodeInvalidDataRequest, pos.Line, pos.Column, "Invalid date '%s' for '%s'", text, key)
}
