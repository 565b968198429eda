// Package rfm orchestrates the analytics engine: aggregate raw orders,
// score and resolve preferences over the same aggregate map, and build the
// sorted customer master table.
package rfm

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/clientpulse/internal/rfm/aggregate"
	"github.com/angelmondragon/clientpulse/internal/rfm/master"
	"github.com/angelmondragon/clientpulse/internal/rfm/preference"
	"github.com/angelmondragon/clientpulse/internal/rfm/score"
	"github.com/angelmondragon/clientpulse/internal/rfm/types"
	pkgerrors "github.com/angelmondragon/clientpulse/pkg/errors"
	"github.com/angelmondragon/clientpulse/pkg/logger"
	"github.com/angelmondragon/clientpulse/pkg/metrics"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// RunInput is the full configuration surface of one engine invocation. All
// data is materialized by the caller before the run starts; the engine does
// no I/O of its own.
type RunInput struct {
	Orders       []types.OrderRecord
	MinYear      int `validate:"required,gte=2000,lte=2100"`
	RunDate      time.Time
	SortKey      types.SortKey
	Statuses     types.StatusSet `validate:"required,min=1"`
	MaxSkipRatio float64         `validate:"gte=0,lte=1"`
	Lookup       types.NameLookup
}

// RunResult carries the master table plus run metadata for logging.
type RunResult struct {
	RunID     string
	RunDate   time.Time
	Rows      []types.CustomerMasterRow
	Stats     aggregate.Stats
	Customers int
}

// Service runs the engine end to end. Each invocation is independent and
// side-effect free beyond its return value, so callers may run invocations
// in parallel.
type Service interface {
	Run(ctx context.Context, input RunInput) (*RunResult, error)
}

type service struct {
	logg       *logger.Logger
	runMetrics *metrics.RunMetrics
	aggregator *aggregate.Aggregator
	policy     score.Policy
	validate   *validator.Validate
}

// NewService builds the engine service. The policy table is injected so the
// segment mapping stays a configuration value rather than hard-coded logic.
func NewService(logg *logger.Logger, runMetrics *metrics.RunMetrics, policy score.Policy) (Service, error) {
	if logg == nil {
		return nil, fmt.Errorf("rfm logger required")
	}
	if len(policy.Rules) == 0 && policy.Default == "" {
		return nil, fmt.Errorf("segment policy required")
	}
	aggregator, err := aggregate.New(logg)
	if err != nil {
		return nil, err
	}
	return &service{
		logg:       logg,
		runMetrics: runMetrics,
		aggregator: aggregator,
		policy:     policy,
		validate:   validator.New(),
	}, nil
}

func (s *service) Run(ctx context.Context, input RunInput) (*RunResult, error) {
	if input.SortKey == "" {
		input.SortKey = types.SortByLTV
	}
	if input.RunDate.IsZero() {
		input.RunDate = time.Now()
	}
	if err := s.validate.Struct(&input); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid run input")
	}

	runID := uuid.NewString()
	ctx = s.logg.WithRunID(ctx, runID)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"orders":   len(input.Orders),
		"min_year": input.MinYear,
		"sort_key": input.SortKey.String(),
	}), "engine run started")
	s.runMetrics.AddOrders(len(input.Orders))

	aggStart := time.Now()
	aggregates, stats, err := s.aggregator.Aggregate(ctx, input.Orders, aggregate.Options{
		MinYear:      input.MinYear,
		Statuses:     input.Statuses,
		MaxSkipRatio: input.MaxSkipRatio,
	})
	s.runMetrics.ObserveStage("aggregate", time.Since(aggStart))
	s.runMetrics.AddSkipped(stats.Skipped)
	if err != nil {
		return nil, err
	}

	scoreStart := time.Now()
	scores, err := score.Score(aggregates, input.RunDate, s.policy)
	s.runMetrics.ObserveStage("score", time.Since(scoreStart))
	if err != nil {
		return nil, err
	}

	prefStart := time.Now()
	preferences := make(map[string]types.CustomerPreference, len(aggregates))
	for id, agg := range aggregates {
		preferences[id] = preference.Resolve(agg)
	}
	s.runMetrics.ObserveStage("preference", time.Since(prefStart))

	buildStart := time.Now()
	rows, err := master.Build(aggregates, scores, preferences, input.Lookup, input.SortKey)
	s.runMetrics.ObserveStage("build", time.Since(buildStart))
	if err != nil {
		return nil, err
	}
	s.runMetrics.SetCustomers(len(rows))

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"customers": len(rows),
		"dropped":   stats.Dropped,
		"skipped":   stats.Skipped,
	}), "engine run complete")

	return &RunResult{
		RunID:     runID,
		RunDate:   input.RunDate,
		Rows:      rows,
		Stats:     stats,
		Customers: len(rows),
	}, nil
}
