package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/clientpulse/internal/report"
	"github.com/angelmondragon/clientpulse/pkg/config"
	"github.com/angelmondragon/clientpulse/pkg/logger"
	"github.com/angelmondragon/clientpulse/pkg/merchant"
)

const monthLayout = "2006-01"

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "monthly-report"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "monthly-report",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	var (
		monthFlag = flag.String("month", "", "report month as YYYY-MM (default previous month)")
		outFlag   = flag.String("out", cfg.Export.Dir, "output directory")
	)
	flag.Parse()

	month := previousMonth(time.Now())
	if *monthFlag != "" {
		month, err = time.Parse(monthLayout, *monthFlag)
		requireResource(ctx, logg, "month", err)
	}
	from := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0).Add(-time.Second)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	runCtx = logg.WithField(runCtx, "month", month.Format(monthLayout))

	client, err := merchant.NewClient(cfg.Merchant, logg)
	requireResource(runCtx, logg, "merchant client", err)
	requireResource(runCtx, logg, "merchant auth", client.Authenticate(runCtx))

	brandNames, err := client.FetchBrandNames(runCtx)
	requireResource(runCtx, logg, "brand names", err)

	products, err := client.FetchProductsCreatedBetween(runCtx, from, to)
	requireResource(runCtx, logg, "products", err)

	lines := report.Build(products, brandNames)
	if len(lines) == 0 {
		logg.Info(runCtx, "no products created in month, skipping report")
		return
	}

	path := filepath.Join(*outFlag, fmt.Sprintf("new_products_%s.csv", month.Format("200601")))
	requireResource(runCtx, logg, "report file", report.WriteCSV(path, lines))

	logg.Info(logg.WithFields(runCtx, map[string]any{
		"path":     path,
		"products": len(products),
		"brands":   len(lines) - 1,
	}), "monthly report written")
}

func previousMonth(now time.Time) time.Time {
	firstOfThisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return firstOfThisMonth.AddDate(0, -1, 0)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("failed to initialize %s", resource), err)
	os.Exit(1)
}
