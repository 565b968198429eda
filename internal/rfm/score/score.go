// Package score turns customer aggregates into comparable RFM scores.
//
// Quintile boundaries are computed per call from the current population and
// passed through as values; nothing is cached between runs, so concurrent
// invocations over different populations cannot leak boundaries into each
// other.
package score

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/angelmondragon/clientpulse/internal/rfm/types"
	pkgerrors "github.com/angelmondragon/clientpulse/pkg/errors"
	"github.com/shopspring/decimal"
)

// minPopulation is the smallest customer count that can form five
// non-trivial quintile bins. Below it every metric scores neutral.
const minPopulation = 5

const neutralScore = 3

// Boundaries are the per-run 20/40/60/80th percentile cut points for each
// metric. Recency boundaries are expressed in days.
type Boundaries struct {
	Recency   [4]float64
	Frequency [4]float64
	Monetary  [4]float64
}

type recencyDetail struct {
	CustomerID    string    `json:"customer_id"`
	LastOrderDate time.Time `json:"last_order_date"`
	RunDate       time.Time `json:"run_date"`
}

// Score computes raw recency/frequency/monetary values for every aggregate,
// bins them into 1-5 quintile scores over this population, and assigns the
// segment from the policy table.
//
// A runDate earlier than any customer's last order date is a caller error
// and fails the whole run; negative recency is not a valid domain value.
func Score(aggregates map[string]types.CustomerAggregate, runDate time.Time, policy Policy) (map[string]types.RFMScore, error) {
	scores := make(map[string]types.RFMScore, len(aggregates))

	recency := make([]float64, 0, len(aggregates))
	frequency := make([]float64, 0, len(aggregates))
	monetary := make([]float64, 0, len(aggregates))

	for id, agg := range aggregates {
		if agg.LastOrderDate.After(runDate) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("run date %s precedes last order date for customer %s",
					runDate.Format("2006-01-02"), id)).
				WithDetails(recencyDetail{
					CustomerID:    id,
					LastOrderDate: agg.LastOrderDate,
					RunDate:       runDate,
				})
		}

		days := int(runDate.Sub(agg.LastOrderDate).Hours() / 24)
		avgTicket := agg.TotalSpend.Div(decimal.NewFromInt(int64(agg.OrderCount)))

		scores[id] = types.RFMScore{
			RecencyDays: days,
			Frequency:   agg.OrderCount,
			Monetary:    agg.TotalSpend,
			AvgTicket:   avgTicket,
		}

		recency = append(recency, float64(days))
		frequency = append(frequency, float64(agg.OrderCount))
		monetary = append(monetary, monetaryValue(agg.TotalSpend))
	}

	degenerate := len(scores) < minPopulation
	var bounds Boundaries
	if !degenerate {
		bounds = ComputeBoundaries(recency, frequency, monetary)
	}

	for id, sc := range scores {
		if degenerate {
			sc.RScore, sc.FScore, sc.MScore = neutralScore, neutralScore, neutralScore
		} else {
			// Recency is scored on the negated day count so one binning
			// rule (higher raw value = higher score, boundary ties fall to
			// the worse bin) serves all three metrics.
			sc.RScore = bin(-float64(sc.RecencyDays), negated(bounds.Recency))
			sc.FScore = bin(float64(sc.Frequency), bounds.Frequency)
			sc.MScore = bin(monetaryValue(sc.Monetary), bounds.Monetary)
		}
		sc.Segment = policy.Segment(sc.RScore, sc.FScore, sc.MScore)
		scores[id] = sc
	}

	return scores, nil
}

// ComputeBoundaries returns the nearest-rank 20/40/60/80th percentiles of
// each metric over the given population. Recency cut points are derived on
// the negated-days axis (where larger is better) and mirrored back into
// days, so that binning recency through negated() reproduces them exactly.
func ComputeBoundaries(recency, frequency, monetary []float64) Boundaries {
	negRecency := make([]float64, len(recency))
	for i, v := range recency {
		negRecency[i] = -v
	}
	return Boundaries{
		Recency:   negated(quintiles(negRecency)),
		Frequency: quintiles(frequency),
		Monetary:  quintiles(monetary),
	}
}

func quintiles(values []float64) [4]float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var out [4]float64
	n := len(sorted)
	for i, p := range [4]float64{0.2, 0.4, 0.6, 0.8} {
		idx := int(math.Ceil(p*float64(n))) - 1
		if idx < 0 {
			idx = 0
		}
		out[i] = sorted[idx]
	}
	return out
}

// bin assigns a 1-5 score: one plus the number of boundaries strictly below
// the value. A value equal to a boundary stays in the lower (worse) bin.
func bin(value float64, bounds [4]float64) int {
	score := 1
	for _, b := range bounds {
		if value > b {
			score++
		}
	}
	return score
}

// negated mirrors recency boundaries onto the negated-days axis, preserving
// ascending order.
func negated(bounds [4]float64) [4]float64 {
	return [4]float64{-bounds[3], -bounds[2], -bounds[1], -bounds[0]}
}

func monetaryValue(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
