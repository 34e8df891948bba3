package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/rxtech-lab/argo-dsl/internal/dsl/ast"
	"github.com/rxtech-lab/argo-dsl/internal/engine"
	"github.com/rxtech-lab/argo-dsl/internal/logger"
	"github.com/rxtech-lab/argo-dsl/internal/metrics"
	"github.com/rxtech-lab/argo-dsl/internal/queue"
	"github.com/rxtech-lab/argo-dsl/internal/server"
	"github.com/rxtech-lab/argo-dsl/internal/settings"
	"github.com/rxtech-lab/argo-dsl/internal/worker"
	"github.com/rxtech-lab/argo-dsl/pkg/errors"
	"github.com/rxtech-lab/argo-dsl/pkg/marketdata"
	"github.com/rxtech-lab/argo-dsl/pkg/schema"
)

// environment is what every command builds from the settings.
type environment struct {
	settings settings.Settings
	logger   *logger.Logger
}

func setup(cmd *cli.Command) (*environment, error) {
	s, err := settings.Load(cmd.Root().String("config"))
	if err != nil {
		return nil, err
	}

	if level := cmd.Root().String("log-level"); level != "" {
		s.Logger.Level = level
	}

	l, err := logger.NewLoggerWithConfig(s.Logger.Level, s.Logger.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return &environment{settings: s, logger: l}, nil
}

func (e *environment) clientConfig(providerOverride, dataPathOverride string) marketdata.ClientConfig {
	md := e.settings.MarketData

	config := marketdata.ClientConfig{
		DefaultProvider:   marketdata.ProviderType(md.Provider),
		DataPath:          md.DataPath,
		PolygonApiKey:     md.PolygonApiKey,
		RequestsPerSecond: md.RequestsPerSecond,
	}

	if providerOverride != "" {
		config.DefaultProvider = marketdata.ProviderType(providerOverride)
	}

	if dataPathOverride != "" {
		config.DataPath = dataPathOverride
	}

	if config.PolygonApiKey == "" {
		config.PolygonApiKey = os.Getenv("POLYGON_API_KEY")
	}

	return config
}

// fetcher returns nil when the default provider requires a key and none is configured.
// Strategies without data blocks still run; data blocks then fail with a clear error.
func (e *environment) fetcher(providerOverride string) (marketdata.Fetcher, error) {
	config := e.clientConfig(providerOverride, "")

	info, err := marketdata.GetProviderInfo(string(config.DefaultProvider))
	if err != nil {
		return nil, err
	}

	if info.RequiresAuth && config.PolygonApiKey == "" {
		e.logger.Warn("no api key configured, data blocks are disabled", zap.String("provider", info.Name))

		return nil, nil
	}

	client, err := marketdata.NewClient(config, marketdata.WithLogger(e.logger.Named("marketdata")))
	if err != nil {
		return nil, err
	}

	return client, nil
}

func (e *environment) engine(fetcher marketdata.Fetcher, collector *metrics.Collector) *engine.Engine {
	required := make([]ast.BlockKind, 0, len(e.settings.Engine.RequiredBlocks))
	for _, kind := range e.settings.Engine.RequiredBlocks {
		required = append(required, ast.BlockKind(kind))
	}

	return engine.New(
		engine.WithFetcher(fetcher),
		engine.WithRequiredBlocks(required...),
		engine.WithLogger(e.logger),
		engine.WithMetrics(collector),
		engine.WithTimeout(e.settings.Engine.Timeout),
	)
}

func readSource(cmd *cli.Command) (string, error) {
	path := cmd.Args().First()
	if path == "" {
		return "", errors.New(errors.ErrCodeInvalidArgument, "a strategy file is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	return string(data), nil
}

func checkAction(_ context.Context, cmd *cli.Command) error {
	env, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = env.logger.Sync() }()

	src, err := readSource(cmd)
	if err != nil {
		return err
	}

	root, err := env.engine(nil, nil).Check(src)
	if err != nil {
		return err
	}

	name := "(unnamed)"
	if root.Strategy != nil && root.Strategy.Name != "" {
		name = root.Strategy.Name
	}

	fmt.Fprintf(cmd.Root().Writer, "ok: strategy %s\n", name)

	return nil
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	env, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = env.logger.Sync() }()

	src, err := readSource(cmd)
	if err != nil {
		return err
	}

	fetcher, err := env.fetcher(cmd.String("provider"))
	if err != nil {
		return err
	}

	report, err := env.engine(fetcher, nil).Run(ctx, src)
	if err != nil {
		return err
	}

	return writeReport(cmd.Root().Writer, cmd.String("format"), report)
}

func writeReport(w io.Writer, format string, report *engine.Report) error {
	switch strings.ToLower(format) {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")

		return encoder.Encode(report)
	case "yaml", "yml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)

		if err := encoder.Encode(report); err != nil {
			return err
		}

		return encoder.Close()
	default:
		return errors.Newf(errors.ErrCodeInvalidArgument, "unknown output format %s", format)
	}
}

func fetchAction(ctx context.Context, cmd *cli.Command) error {
	env, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = env.logger.Sync() }()

	config := env.clientConfig(cmd.String("provider"), cmd.String("data"))
	if config.DataPath == "" {
		config.DataPath = "data"
	}

	client, err := marketdata.NewClient(config, marketdata.WithLogger(env.logger.Named("marketdata")))
	if err != nil {
		return fmt.Errorf("failed to create market data client: %w", err)
	}

	req := marketdata.Request{
		Ticker:     cmd.String("ticker"),
		Exchange:   config.DefaultProvider,
		Multiplier: int(cmd.Int("multiplier")),
		From:       cmd.Timestamp("start"),
		To:         cmd.Timestamp("end"),
		Timespan:   marketdata.Timespan(cmd.String("timespan")),
	}

	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(fmt.Sprintf("Downloading %s", req.Ticker)),
		progressbar.OptionClearOnFinish(),
	)

	path, err := client.Download(ctx, req, func(current, total float64, message string) {
		if total <= 0 {
			return
		}

		bar.Describe(message)
		_ = bar.Set(int(min(current/total, 1) * 100))
	})
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	_ = bar.Finish()
	fmt.Fprintln(cmd.Root().Writer, path)

	return nil
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	env, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = env.logger.Sync() }()

	collector := metrics.NewCollector(env.settings.Metrics.Namespace)

	q := queue.NewRedisQueue(queueOptions(env.settings), env.logger)
	defer q.Close()

	srv := server.New(server.Config{
		Addr:         env.settings.Server.Addr,
		ReadTimeout:  env.settings.Server.ReadTimeout,
		WriteTimeout: env.settings.Server.WriteTimeout,
		MaxBodyBytes: env.settings.Server.MaxBodyBytes,
	}, env.engine(nil, collector), q, q.HealthCheck, collector, env.logger)

	errCh := make(chan error, 1)

	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	env.logger.Info("shutting down")

	return srv.Shutdown(shutdownCtx)
}

func workerAction(ctx context.Context, cmd *cli.Command) error {
	env, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = env.logger.Sync() }()

	fetcher, err := env.fetcher("")
	if err != nil {
		return err
	}

	collector := metrics.NewCollector(env.settings.Metrics.Namespace)

	q := queue.NewRedisQueue(queueOptions(env.settings), env.logger)
	defer q.Close()

	if err := q.HealthCheck(ctx); err != nil {
		return errors.Wrapf(errors.ErrCodeQueueConsumeFailed, err, "redis at %s is unreachable", env.settings.Redis.Addr)
	}

	w := worker.New(q, env.engine(fetcher, collector), collector, env.logger, func(job queue.Job, report *engine.Report, err error) {
		if err != nil {
			return
		}

		env.logger.Debug("job report", zap.String("job_id", job.ID.String()), zap.Any("report", report))
	})

	return w.Run(ctx)
}

func submitAction(ctx context.Context, cmd *cli.Command) error {
	src, err := readSource(cmd)
	if err != nil {
		return err
	}

	var resp server.Response

	client := resty.New().SetBaseURL(cmd.String("server")).SetTimeout(30 * time.Second)

	req := client.R().
		SetContext(ctx).
		SetBody(server.BacktestRequest{SourceCode: src}).
		SetResult(&resp).
		SetError(&resp)

	if cmd.Bool("enqueue") {
		req.SetQueryParam("enqueue", "true")
	}

	res, err := req.Post("/backtest")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidRequest, "failed to submit strategy", err)
	}

	if res.IsError() {
		if resp.Line > 0 {
			return errors.NewAt(resp.Code, resp.Line, resp.Column, "%s", resp.Message)
		}

		return errors.Newf(resp.Code, "submission rejected with status %d: %s", res.StatusCode(), resp.Message)
	}

	if resp.JobID != "" {
		fmt.Fprintf(cmd.Root().Writer, "%s: job %s\n", resp.Status, resp.JobID)

		return nil
	}

	fmt.Fprintln(cmd.Root().Writer, resp.Status)

	return nil
}

func schemaAction(_ context.Context, cmd *cli.Command) error {
	names := schema.Names()
	if name := cmd.Args().First(); name != "" {
		names = []string{name}
	}

	for _, name := range names {
		doc, err := schema.Get(name)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.Root().Writer, doc)
	}

	return nil
}

func providersAction(_ context.Context, cmd *cli.Command) error {
	w := cmd.Root().Writer

	for _, name := range marketdata.GetSupportedProviders() {
		info, err := marketdata.GetProviderInfo(name)
		if err != nil {
			return err
		}

		auth := ""
		if info.RequiresAuth {
			auth = " (api key required)"
		}

		fmt.Fprintf(w, "%-8s %s%s: %s\n", info.Name, info.DisplayName, auth, info.Description)
	}

	return nil
}
