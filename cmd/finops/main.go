// finops - cloud cost forecasting CLI and API server.
//
// Usage:
//   finops forecast --days 90 --historical-days 180
//   finops forecast --service "Cloud Run" --format json
//   finops thresholds --days 30
//   finops serve --config config.yaml
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"finops-forecast/api"
	"finops-forecast/billing"
	awsbilling "finops-forecast/billing/aws"
	"finops-forecast/config"
	"finops-forecast/db/clickhouse"
	"finops-forecast/db/postgres"
	"finops-forecast/forecast"
	"finops-forecast/model"
	"finops-forecast/pkg/metrics"
	"finops-forecast/pkg/platform"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Exit codes for CI/CD integration
const (
	ExitSuccess     = 0
	ExitConfigError = 10
	ExitForecastErr = 11
)

func main() {
	app := &cli.App{
		Name:    "finops",
		Usage:   "Cloud cost forecasting with trend classification and budget alerts",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"FINOPS_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "source",
				Value:   "clickhouse",
				Usage:   "Billing data source (clickhouse, postgres, aws)",
				EnvVars: []string{"FINOPS_SOURCE"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-host",
				Value:   "localhost",
				Usage:   "ClickHouse host",
				EnvVars: []string{"CLICKHOUSE_HOST"},
			},
			&cli.IntFlag{
				Name:    "clickhouse-port",
				Value:   9000,
				Usage:   "ClickHouse native port",
				EnvVars: []string{"CLICKHOUSE_PORT"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-database",
				Value:   "finops",
				Usage:   "ClickHouse database",
				EnvVars: []string{"CLICKHOUSE_DATABASE"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-user",
				Value:   "default",
				Usage:   "ClickHouse user",
				EnvVars: []string{"CLICKHOUSE_USER"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-password",
				Value:   "",
				Usage:   "ClickHouse password",
				EnvVars: []string{"CLICKHOUSE_PASSWORD"},
			},
			&cli.StringFlag{
				Name:    "postgres-dsn",
				Usage:   "Postgres DSN for the billing export database",
				EnvVars: []string{"POSTGRES_DSN"},
			},
			&cli.StringFlag{
				Name:    "model",
				Value:   "forecaster",
				Usage:   "Fitting backend (forecaster, holtwinters)",
				EnvVars: []string{"FINOPS_MODEL"},
			},
		},

		Commands: []*cli.Command{
			forecastCommand(),
			thresholdsCommand(),
			serveCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitForecastErr)
	}
}

// =============================================================================
// FORECAST COMMAND
// =============================================================================

func forecastCommand() *cli.Command {
	return &cli.Command{
		Name:  "forecast",
		Usage: "Forecast future spend from historical billing data",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "days",
				Aliases: []string{"d"},
				Value:   90,
				Usage:   "Number of days to forecast",
			},
			&cli.IntFlag{
				Name:  "historical-days",
				Value: 180,
				Usage: "Days of history to fit on",
			},
			&cli.StringFlag{
				Name:    "project",
				Aliases: []string{"p"},
				Usage:   "Filter to one project",
			},
			&cli.StringFlag{
				Name:    "service",
				Aliases: []string{"s"},
				Usage:   "Forecast a single service instead of total spend",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "table",
				Usage:   "Output format (table, json)",
			},
		},
		Action: runForecast,
	}
}

func runForecast(c *cli.Context) error {
	ctx := context.Background()

	source, closer, err := buildSource(ctx, c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("billing source: %v", err), ExitConfigError)
	}
	defer closer()

	fitter, err := model.NewFitter(c.String("model"))
	if err != nil {
		return cli.Exit(err.Error(), ExitConfigError)
	}

	log := platform.InitLogger(c.String("log-level"), true)
	svc := forecast.NewService(source, fitter, forecast.WithLogger(log))

	req := forecast.Request{
		ForecastDays:   c.Int("days"),
		HistoricalDays: c.Int("historical-days"),
		ProjectID:      c.String("project"),
	}

	var result *forecast.Result
	if svcName := c.String("service"); svcName != "" {
		result, err = svc.ForecastForService(ctx, svcName, req)
	} else {
		result, err = svc.ForecastCosts(ctx, req)
	}
	if err != nil {
		return err
	}

	if c.String("format") == "json" {
		return writeJSON(os.Stdout, result)
	}
	printForecast(result, c.String("service"))
	return nil
}

// =============================================================================
// THRESHOLDS COMMAND
// =============================================================================

func thresholdsCommand() *cli.Command {
	return &cli.Command{
		Name:  "thresholds",
		Usage: "Derive escalating budget-alert thresholds from a forecast",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "days",
				Aliases: []string{"d"},
				Value:   forecast.DefaultThresholdForecastDays,
				Usage:   "Budget window in days",
			},
			&cli.IntFlag{
				Name:  "historical-days",
				Value: forecast.DefaultThresholdHistoricalDays,
				Usage: "Days of history to fit on",
			},
			&cli.StringFlag{
				Name:    "project",
				Aliases: []string{"p"},
				Usage:   "Filter to one project",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "table",
				Usage:   "Output format (table, json)",
			},
		},
		Action: runThresholds,
	}
}

func runThresholds(c *cli.Context) error {
	ctx := context.Background()

	source, closer, err := buildSource(ctx, c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("billing source: %v", err), ExitConfigError)
	}
	defer closer()

	fitter, err := model.NewFitter(c.String("model"))
	if err != nil {
		return cli.Exit(err.Error(), ExitConfigError)
	}

	log := platform.InitLogger(c.String("log-level"), true)
	svc := forecast.NewService(source, fitter, forecast.WithLogger(log))

	thresholds, err := svc.AlertThresholds(ctx, forecast.Request{
		ForecastDays:   c.Int("days"),
		HistoricalDays: c.Int("historical-days"),
		ProjectID:      c.String("project"),
	})
	if err != nil {
		return err
	}

	if c.String("format") == "json" {
		return writeJSON(os.Stdout, thresholds)
	}

	fmt.Printf("Predicted %d-day cost: $%s\n", c.Int("days"), money(thresholds.PredictedMonthlyCost))
	fmt.Printf("  Conservative (+10%%): $%s\n", money(thresholds.Conservative))
	fmt.Printf("  Warning      (+20%%): $%s\n", money(thresholds.Warning))
	fmt.Printf("  Critical     (+30%%): $%s\n", money(thresholds.Critical))
	return nil
}

// =============================================================================
// SERVE COMMAND
// =============================================================================

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the forecast API server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file",
				EnvVars: []string{"FINOPS_CONFIG"},
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Override the configured listen port",
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("config: %v", err), ExitConfigError)
	}
	if port := c.Int("port"); port > 0 {
		cfg.Server.Port = port
	}

	log := platform.InitLogger(cfg.LogLevel, false)
	ctx := context.Background()

	source, closer, err := buildSourceFromConfig(ctx, cfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("billing source: %v", err), ExitConfigError)
	}
	defer closer()

	fitter, err := model.NewFitter(cfg.Forecast.Model)
	if err != nil {
		return cli.Exit(err.Error(), ExitConfigError)
	}

	m := metrics.New(nil)
	svc := forecast.NewService(source, fitter,
		forecast.WithLogger(log),
		forecast.WithMetrics(m),
		forecast.WithCacheTTL(cfg.ForecastCacheTTL()),
		forecast.WithFitOptions(fitOptions(cfg)),
	)

	pinger, _ := source.(api.Pinger)
	server := api.NewServer(svc, pinger, &api.Config{
		Port:                  cfg.Server.Port,
		ReadTimeout:           cfg.ReadTimeoutDuration(),
		WriteTimeout:          cfg.WriteTimeoutDuration(),
		AuthUser:              cfg.Server.AuthUser,
		AuthPass:              cfg.Server.AuthPass,
		DefaultForecastDays:   cfg.Forecast.DefaultForecastDays,
		DefaultHistoricalDays: cfg.Forecast.DefaultHistoricalDays,
	}, log)

	return server.StartWithGracefulShutdown()
}

func fitOptions(cfg *config.Config) model.FitOptions {
	opts := model.DefaultFitOptions()
	if cfg.Forecast.SeasonalityMode == string(model.SeasonalityAdditive) {
		opts.SeasonalityMode = model.SeasonalityAdditive
	}
	return opts
}

// =============================================================================
// SOURCE WIRING
// =============================================================================

func buildSource(ctx context.Context, c *cli.Context) (billing.Source, func(), error) {
	switch c.String("source") {
	case "clickhouse":
		store, err := clickhouse.NewStore(&clickhouse.Config{
			Host:     c.String("clickhouse-host"),
			Port:     c.Int("clickhouse-port"),
			Database: c.String("clickhouse-database"),
			Username: c.String("clickhouse-user"),
			Password: c.String("clickhouse-password"),
		})
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	case "postgres":
		dsn := c.String("postgres-dsn")
		if dsn == "" {
			return nil, nil, fmt.Errorf("postgres source requires --postgres-dsn or POSTGRES_DSN")
		}
		store, err := postgres.NewStore(dsn)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	case "aws":
		source, err := awsbilling.NewSource(ctx)
		if err != nil {
			return nil, nil, err
		}
		return source, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown source %q (expected clickhouse, postgres, or aws)", c.String("source"))
	}
}

func buildSourceFromConfig(ctx context.Context, cfg *config.Config) (billing.Source, func(), error) {
	switch cfg.Source.Kind {
	case "clickhouse":
		store, err := clickhouse.NewStore(&clickhouse.Config{
			Host:     cfg.Source.ClickHouse.Host,
			Port:     cfg.Source.ClickHouse.Port,
			Database: cfg.Source.ClickHouse.Database,
			Username: cfg.Source.ClickHouse.Username,
			Password: cfg.Source.ClickHouse.Password,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	case "postgres":
		store, err := postgres.NewStore(cfg.Source.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	case "aws":
		source, err := awsbilling.NewSource(ctx)
		if err != nil {
			return nil, nil, err
		}
		return source, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
	}
}

// =============================================================================
// OUTPUT
// =============================================================================

func printForecast(result *forecast.Result, serviceName string) {
	scope := "all services"
	if serviceName != "" {
		scope = serviceName
	}

	if result.Insufficient() {
		fmt.Printf("Not enough historical data yet to forecast %s.\n", scope)
		fmt.Printf("At least %d days of billing data are required.\n", forecast.MinObservations)
		return
	}

	fmt.Printf("📊 Cost forecast (%s)\n", scope)
	fmt.Printf("   Horizon:         %d days\n", result.ForecastDays)
	fmt.Printf("   Total predicted: $%.2f\n", result.TotalPredicted)
	fmt.Printf("   Trend:           %s\n", result.Trend)
	fmt.Printf("   Confidence:      %.0f%%\n", result.ModelConfidence*100)

	fmt.Println("\n   Date         Predicted      Range")
	for i, p := range result.Points {
		if i >= 7 {
			fmt.Printf("   ... %d more days\n", len(result.Points)-i)
			break
		}
		fmt.Printf("   %s   $%9.2f   $%.2f - $%.2f\n",
			p.Date.Format("2006-01-02"), p.Predicted, p.Lower, p.Upper)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
