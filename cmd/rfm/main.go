package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/angelmondragon/clientpulse/internal/catalog"
	"github.com/angelmondragon/clientpulse/internal/export"
	exportbq "github.com/angelmondragon/clientpulse/internal/export/bigquery"
	"github.com/angelmondragon/clientpulse/internal/rfm"
	"github.com/angelmondragon/clientpulse/internal/rfm/score"
	"github.com/angelmondragon/clientpulse/internal/rfm/types"
	"github.com/angelmondragon/clientpulse/internal/sheets"
	"github.com/angelmondragon/clientpulse/pkg/bigquery"
	"github.com/angelmondragon/clientpulse/pkg/config"
	"github.com/angelmondragon/clientpulse/pkg/logger"
	"github.com/angelmondragon/clientpulse/pkg/merchant"
	"github.com/angelmondragon/clientpulse/pkg/metrics"
	"github.com/angelmondragon/clientpulse/pkg/redis"
)

const runDateLayout = "2006-01-02"

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "rfm"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "rfm",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	var (
		yearFlag     = flag.Int("year", 0, "minimum order year (required)")
		sortFlag     = flag.String("sort", cfg.RFM.SortKey, "sort key: ltv, frequency, recency, ticket")
		statusesFlag = flag.String("statuses", strings.Join(cfg.RFM.QualifyingStatuses, ","), "comma-separated qualifying order statuses")
		runDateFlag  = flag.String("run-date", "", "run date as YYYY-MM-DD (default today)")
		formatFlag   = flag.String("format", cfg.Export.Format, "file format: csv, parquet, both")
		uploadFlag   = flag.Bool("upload", false, "upload the master table to google sheets")
		outFlag      = flag.String("out", cfg.Export.Dir, "output directory")
	)
	flag.Parse()

	if *yearFlag == 0 {
		fmt.Fprintln(os.Stderr, "flag -year is required")
		flag.Usage()
		os.Exit(2)
	}

	sortKey, err := types.ParseSortKey(*sortFlag)
	requireResource(ctx, logg, "sort key", err)

	runDate := time.Now()
	if *runDateFlag != "" {
		runDate, err = time.Parse(runDateLayout, *runDateFlag)
		requireResource(ctx, logg, "run date", err)
	}

	statuses := types.NewStatusSet(strings.Split(*statusesFlag, ","))

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	runCtx = logg.WithField(runCtx, "env", cfg.App.Env)

	runMetrics := metrics.NewRunMetrics(cfg.Metrics)

	client, err := merchant.NewClient(cfg.Merchant, logg)
	requireResource(runCtx, logg, "merchant client", err)
	requireResource(runCtx, logg, "merchant auth", client.Authenticate(runCtx))

	var cache redis.CatalogCache
	if cfg.Redis.Configured() {
		redisClient, err := redis.New(runCtx, cfg.Redis)
		requireResource(runCtx, logg, "redis", err)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(runCtx, "failed to close redis client", err)
			}
		}()
		cache = redisClient
	}

	loader := catalog.NewLoader(client, cache, cfg.Catalog.CacheTTL, logg)
	lookup, products, err := loader.Load(runCtx)
	requireResource(runCtx, logg, "catalog", err)

	orders, err := client.FetchOrders(runCtx, *yearFlag, statuses.Values())
	requireResource(runCtx, logg, "orders", err)
	merchant.ApplyCatalog(orders, products)

	engine, err := rfm.NewService(logg, runMetrics, score.DefaultPolicy())
	requireResource(runCtx, logg, "engine", err)

	result, err := engine.Run(runCtx, rfm.RunInput{
		Orders:       orders,
		MinYear:      *yearFlag,
		RunDate:      runDate,
		SortKey:      sortKey,
		Statuses:     statuses,
		MaxSkipRatio: cfg.RFM.MaxSkipRatio,
		Lookup:       lookup,
	})
	requireResource(runCtx, logg, "engine run", err)
	runCtx = logg.WithRunID(runCtx, result.RunID)

	requireResource(runCtx, logg, "export",
		writeSinks(runCtx, cfg, logg, *formatFlag, *outFlag, *uploadFlag, result))

	if err := runMetrics.Push(runCtx); err != nil {
		logg.Warn(logg.WithField(runCtx, "error", err.Error()), "metrics push failed")
	}

	logg.Info(logg.WithFields(runCtx, map[string]any{
		"customers": result.Customers,
		"skipped":   result.Stats.Skipped,
	}), "rfm run finished")
}

// writeSinks fans the master table out to every configured sink. File sinks
// are attempted independently so one failing format does not mask the other.
func writeSinks(ctx context.Context, cfg *config.Config, logg *logger.Logger, format, outDir string, upload bool, result *rfm.RunResult) error {
	stamp := result.RunDate.Format("20060102")
	var errs error

	if format == "csv" || format == "both" {
		path := filepath.Join(outDir, fmt.Sprintf("customer_master_%s.csv", stamp))
		if err := export.WriteCSV(path, result.Rows); err != nil {
			errs = multierr.Append(errs, err)
		} else {
			logg.Info(logg.WithField(ctx, "path", path), "csv export written")
		}
	}
	if format == "parquet" || format == "both" {
		path := filepath.Join(outDir, fmt.Sprintf("customer_master_%s.parquet", stamp))
		if err := export.WriteParquet(path, result.Rows); err != nil {
			errs = multierr.Append(errs, err)
		} else {
			logg.Info(logg.WithField(ctx, "path", path), "parquet export written")
		}
	}

	if cfg.BigQuery.Configured(cfg.GCP) {
		bqClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
		if err != nil {
			errs = multierr.Append(errs, err)
		} else {
			defer bqClient.Close()
			writer, err := exportbq.NewWriter(bqClient, bqClient.MasterTable(), logg, 0)
			if err == nil {
				err = writer.Write(ctx, result.RunID, result.RunDate, result.Rows)
			}
			errs = multierr.Append(errs, err)
		}
	}

	if upload {
		uploader, err := sheets.NewUploader(ctx, cfg.Sheets, logg)
		if err == nil {
			err = uploader.Upload(ctx, result.Rows)
		}
		errs = multierr.Append(errs, err)
	}

	return errs
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("failed to initialize %s", resource), err)
	os.Exit(1)
}
