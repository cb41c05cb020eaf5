// Command admin runs one-shot ETL operations against the configured database
// and prints the result as JSON. It reads the same environment as cmd/etl.
//
// Usage:
//
//	go run ./cmd/admin ingest
//	go run ./cmd/admin backfill -since 2024-01-01 -until 2024-06-30 -limit 50000 -offset 0
//	go run ./cmd/admin aggregate
//	go run ./cmd/admin refresh-daily -days 30
//	go run ./cmd/admin recategorize [-all] [-limit 10000]
//	go run ./cmd/admin rescore
//	go run ./cmd/admin analyze-other [-limit 50]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/couchcryptid/complaint-club-etl/internal/adapter/geo"
	kafkaadapter "github.com/couchcryptid/complaint-club-etl/internal/adapter/kafka"
	"github.com/couchcryptid/complaint-club-etl/internal/adapter/socrata"
	"github.com/couchcryptid/complaint-club-etl/internal/aggregate"
	"github.com/couchcryptid/complaint-club-etl/internal/config"
	"github.com/couchcryptid/complaint-club-etl/internal/domain"
	"github.com/couchcryptid/complaint-club-etl/internal/observability"
	"github.com/couchcryptid/complaint-club-etl/internal/pipeline"
	"github.com/couchcryptid/complaint-club-etl/internal/store"
)

const usage = `usage: admin <command> [flags]

commands:
  ingest          run one incremental ingest
  backfill        load a historical date range (-since, -until, -limit, -offset)
  aggregate       refresh daily rows for yesterday and today, summaries and chaos scores
  refresh-daily   rebuild daily rows for the last N days (-days)
  recategorize    re-run classification over stored complaints (-all, -limit)
  rescore         recompute chaos scores from the current month summaries
  analyze-other   list the most frequent complaint types classified as other (-limit)
`

var errUsage = errors.New("invalid usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)

	cmd, err := parseCommand(args, cfg.Location)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n\n%s", err, usage)
		return 2
	}

	st, err := store.Open(cfg.DatabaseURL, logger)
	if err != nil {
		fmt.Fprintf(stderr, "open store: %v\n", err)
		return 1
	}
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		fmt.Fprintf(stderr, "migrate store: %v\n", err)
		return 1
	}

	ops, closeOps := newOperations(cfg, st, logger)
	defer closeOps()

	out, err := cmd.exec(ctx, ops)
	if err != nil {
		logger.Error("command failed", "command", cmd.name, "error", err)
		return 1
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(stderr, "encode result: %v\n", err)
		return 1
	}
	return 0
}

// operations are the services a command can call.
type operations struct {
	pipeline *pipeline.Pipeline
	engine   *aggregate.Engine
	store    *store.Store
}

func newOperations(cfg *config.Config, st *store.Store, logger *slog.Logger) (operations, func()) {
	metrics := observability.NewMetrics()
	opts := pipeline.Options{
		Resolver:   geo.NewCachedResolver(store.NewPostGISResolver(st), cfg.ResolverCacheSize, metrics),
		Location:   cfg.Location,
		FetchLimit: cfg.FetchLimit,
		BatchSize:  cfg.BatchSize,
		Lookback:   cfg.DefaultLookback,
	}
	closeFn := func() {}
	if cfg.KafkaEnabled() {
		publisher := kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		opts.Publisher = publisher
		closeFn = func() {
			if err := publisher.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}
	}

	source := socrata.NewClient(cfg.SocrataBaseURL, cfg.SocrataAppToken, cfg.SocrataTimeout, cfg.Location, logger)
	return operations{
		pipeline: pipeline.New(source, st, logger, metrics, opts),
		engine:   aggregate.NewEngine(st, cfg.Location, cfg.ChaosMaxima, 0, logger, metrics),
		store:    st,
	}, closeFn
}

// command is a parsed subcommand ready to execute.
type command struct {
	name string
	exec func(ctx context.Context, ops operations) (any, error)
}

func parseCommand(args []string, loc *time.Location) (command, error) {
	name, rest := args[0], args[1:]
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	switch name {
	case "ingest":
		if err := fs.Parse(rest); err != nil {
			return command{}, err
		}
		return command{name: name, exec: func(ctx context.Context, ops operations) (any, error) {
			return ops.pipeline.Ingest(ctx)
		}}, nil

	case "backfill":
		since := fs.String("since", "", "earliest created date (YYYY-MM-DD or RFC 3339)")
		until := fs.String("until", "", "latest created date (YYYY-MM-DD or RFC 3339)")
		limit := fs.Int("limit", 0, "records to fetch, default 50000")
		offset := fs.Int("offset", 0, "records to skip")
		if err := fs.Parse(rest); err != nil {
			return command{}, err
		}
		req := pipeline.BackfillRequest{Limit: *limit, Offset: *offset}
		var err error
		if req.Since, err = parseInstant(*since, loc); err != nil {
			return command{}, fmt.Errorf("-since: %w", err)
		}
		if req.Until, err = parseInstant(*until, loc); err != nil {
			return command{}, fmt.Errorf("-until: %w", err)
		}
		return command{name: name, exec: func(ctx context.Context, ops operations) (any, error) {
			return ops.pipeline.Backfill(ctx, req)
		}}, nil

	case "aggregate":
		if err := fs.Parse(rest); err != nil {
			return command{}, err
		}
		return command{name: name, exec: func(ctx context.Context, ops operations) (any, error) {
			return ops.engine.FullRefresh(ctx)
		}}, nil

	case "refresh-daily":
		days := fs.Int("days", 30, "days to rebuild, ending today")
		if err := fs.Parse(rest); err != nil {
			return command{}, err
		}
		if *days < 1 || *days > 365 {
			return command{}, fmt.Errorf("%w: -days must be between 1 and 365", errUsage)
		}
		return command{name: name, exec: func(ctx context.Context, ops operations) (any, error) {
			return ops.engine.RefreshRecent(ctx, *days), nil
		}}, nil

	case "recategorize":
		all := fs.Bool("all", false, "reclassify every complaint, not only those classified as other")
		limit := fs.Int("limit", 0, "rows to examine, default 10000")
		if err := fs.Parse(rest); err != nil {
			return command{}, err
		}
		req := pipeline.RecategorizeRequest{OnlyOther: !*all, Limit: *limit}
		return command{name: name, exec: func(ctx context.Context, ops operations) (any, error) {
			return ops.pipeline.Recategorize(ctx, req)
		}}, nil

	case "rescore":
		if err := fs.Parse(rest); err != nil {
			return command{}, err
		}
		return command{name: name, exec: func(ctx context.Context, ops operations) (any, error) {
			return ops.engine.UpdateChaosScores(ctx)
		}}, nil

	case "analyze-other":
		limit := fs.Int("limit", 50, "complaint types to list")
		if err := fs.Parse(rest); err != nil {
			return command{}, err
		}
		if *limit < 1 {
			return command{}, fmt.Errorf("%w: -limit must be positive", errUsage)
		}
		return command{name: name, exec: func(ctx context.Context, ops operations) (any, error) {
			return ops.store.OtherTypeCounts(ctx, *limit)
		}}, nil
	}
	return command{}, fmt.Errorf("%w: unknown command %q", errUsage, name)
}

// parseInstant accepts RFC 3339 timestamps and YYYY-MM-DD dates, which mean
// local midnight. Empty input yields nil.
func parseInstant(v string, loc *time.Location) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, v, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is neither a date nor an RFC 3339 timestamp", domain.ErrInvalidRequest, v)
	}
	return &t, nil
}
