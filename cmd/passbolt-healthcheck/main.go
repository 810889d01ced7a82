// Command passbolt-healthcheck runs the passbolt healthchecks and renders
// the report. By default it builds the checks locally from configuration;
// with -remote it fetches the report from a running instance instead.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/nimdassdev/passbolt-api/internal/app"
	"github.com/nimdassdev/passbolt-api/internal/config"
	logpkg "github.com/nimdassdev/passbolt-api/internal/logger"
	"github.com/nimdassdev/passbolt-api/internal/metrics"
	"github.com/nimdassdev/passbolt-api/internal/usecase/healthcheck"
	passbolt "github.com/nimdassdev/passbolt-api/pkg/sdk"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// Exit codes: 0 healthy, 1 failing checks, 2 the run itself did not complete.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("passbolt-healthcheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		remote  = fs.String("remote", "", "base url of a running instance to check over HTTP instead of running locally")
		apiKey  = fs.String("api-key", os.Getenv("PASSBOLT_API_KEY"), "bearer API key for -remote")
		cfgDir  = fs.String("config", "", "config directory for a local run (default: auto-detect)")
		jsonOut = fs.Bool("json", false, "print the raw report as JSON")
		timeout = fs.Duration("timeout", time.Minute, "overall time budget for the run")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var (
		report passbolt.Report
		err    error
	)
	if *remote != "" {
		report, err = fetchRemote(ctx, *remote, *apiKey)
	} else {
		report, err = runLocal(ctx, *cfgDir)
	}
	if err != nil {
		fmt.Fprintln(stderr, "healthcheck:", err)
		return 2
	}

	out := stdout
	if *jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fmt.Fprintln(stderr, "healthcheck:", err)
			return 2
		}
		out = io.Discard
	}

	if render(out, report) > 0 {
		return 1
	}
	return 0
}

func fetchRemote(ctx context.Context, baseURL, apiKey string) (passbolt.Report, error) {
	var opts []passbolt.Option
	if apiKey != "" {
		opts = append(opts, passbolt.WithAPIKey(apiKey))
	}
	client, err := passbolt.New(baseURL, opts...)
	if err != nil {
		return passbolt.Report{}, err
	}
	return client.Healthcheck(ctx)
}

func runLocal(ctx context.Context, dir string) (passbolt.Report, error) {
	if dir == "" {
		dir = config.FindConfigDir()
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return passbolt.Report{}, fmt.Errorf("load config: %w", err)
	}

	// The report is the output; keep log noise down to real problems.
	level := cfg.Logging.Level
	if level == "" {
		level = "error"
	}
	logger, err := logpkg.NewLogger(config.GetEnv(), level)
	if err != nil {
		logger = zap.NewNop()
	}
	defer func() { _ = logger.Sync() }()

	application, err := app.Build(cfg, logger)
	if err != nil {
		return passbolt.Report{}, fmt.Errorf("wire healthchecks: %w", err)
	}
	defer application.Close()

	start := time.Now()
	report := application.Healthcheck.RunAll(ctx, healthcheck.Report{}, nil)
	report = application.Healthcheck.JWT(ctx, report)
	metrics.HealthcheckRunsTotal.WithLabelValues("cli").Inc()
	metrics.HealthcheckRunDuration.Observe(time.Since(start).Seconds())

	return toWire(report)
}

// toWire converts the run result into the SDK report through the shared JSON
// shape, the same path an API response takes.
func toWire(report healthcheck.Report) (passbolt.Report, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return passbolt.Report{}, fmt.Errorf("encode report: %w", err)
	}
	var wire passbolt.Report
	if err := json.Unmarshal(data, &wire); err != nil {
		return passbolt.Report{}, fmt.Errorf("decode report: %w", err)
	}
	return wire, nil
}
