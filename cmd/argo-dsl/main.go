package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/rxtech-lab/argo-dsl/internal/queue"
	"github.com/rxtech-lab/argo-dsl/internal/settings"
	"github.com/rxtech-lab/argo-dsl/pkg/marketdata"
)

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "argo-dsl",
		Usage: "Check, evaluate and queue trading strategies written in the strategy language",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config.yml or the directory holding it",
				Sources: cli.EnvVars("ARGO_DSL_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override the configured log level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "check",
				Usage:     "Lex and parse a strategy file",
				ArgsUsage: "<file>",
				Action:    checkAction,
			},
			{
				Name:      "run",
				Usage:     "Evaluate a strategy file and print the report",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format (json or yaml)",
						Value:   "json",
					},
					&cli.StringFlag{
						Name:    "provider",
						Aliases: []string{"p"},
						Usage:   fmt.Sprintf("Default data provider (%s, %s or %s)", marketdata.ProviderPolygon, marketdata.ProviderBinance, marketdata.ProviderParquet),
					},
				},
				Action: runAction,
			},
			{
				Name:  "fetch",
				Usage: "Download bars into the parquet cache",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "ticker",
						Aliases:  []string{"t"},
						Usage:    "Ticker symbol",
						Required: true,
					},
					&cli.TimestampFlag{
						Name:    "start",
						Aliases: []string{"s"},
						Usage:   "Start date in `YYYY-MM-DD` format",
						Config: cli.TimestampConfig{
							Layouts: []string{time.DateOnly},
						},
						Required: true,
					},
					&cli.TimestampFlag{
						Name:    "end",
						Aliases: []string{"e"},
						Usage:   "End date in `YYYY-MM-DD` format. Defaults to today.",
						Value:   time.Now(),
						Config: cli.TimestampConfig{
							Layouts: []string{time.DateOnly},
						},
					},
					&cli.StringFlag{
						Name:  "timespan",
						Usage: "Bar timespan (minute, hour, day, 15m, 4h, ...)",
						Value: string(marketdata.TimespanDay),
					},
					&cli.IntFlag{
						Name:  "multiplier",
						Usage: "Number of timespans per bar",
						Value: 1,
					},
					&cli.StringFlag{
						Name:    "provider",
						Aliases: []string{"p"},
						Usage:   fmt.Sprintf("Data provider (%s or %s)", marketdata.ProviderPolygon, marketdata.ProviderBinance),
					},
					&cli.StringFlag{
						Name:    "data",
						Aliases: []string{"d"},
						Usage:   "Path to the parquet cache directory",
					},
				},
				Action: fetchAction,
			},
			{
				Name:   "serve",
				Usage:  "Accept strategy submissions over HTTP",
				Action: serveAction,
			},
			{
				Name:   "worker",
				Usage:  "Evaluate queued strategies",
				Action: workerAction,
			},
			{
				Name:      "submit",
				Usage:     "Submit a strategy file to a running server",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "server",
						Usage: "Server base URL",
						Value: "http://localhost:8080",
					},
					&cli.BoolFlag{
						Name:  "enqueue",
						Usage: "Queue the strategy for evaluation after it validates",
					},
				},
				Action: submitAction,
			},
			{
				Name:   "providers",
				Usage:  "List the supported market data providers",
				Action: providersAction,
			},
			{
				Name:      "schema",
				Usage:     "Print the JSON schema of a document",
				ArgsUsage: "[config|data|request|job]",
				Action:    schemaAction,
			},
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// queueOptions maps the redis settings onto a queue connection.
func queueOptions(s settings.Settings) queue.Options {
	return queue.Options{
		Addr:         s.Redis.Addr,
		Password:     s.Redis.Password,
		DB:           s.Redis.DB,
		Name:         s.Redis.Queue,
		BlockTimeout: s.Redis.BlockTimeout,
	}
}
