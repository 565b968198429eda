package score

import "github.com/angelmondragon/clientpulse/internal/rfm/types"

// Band groups the 1-5 quintile scores into the three levels the segment
// rules are written against: low (1-2), mid (3), high (4-5).
type Band uint8

const (
	BandLow Band = 1 << iota
	BandMid
	BandHigh

	BandAny = BandLow | BandMid | BandHigh
)

func bandOf(score int) Band {
	switch {
	case score >= 4:
		return BandHigh
	case score == 3:
		return BandMid
	default:
		return BandLow
	}
}

// Rule matches a combination of R/F/M bands. Each field is a band mask; a
// score matches when its band bit is set.
type Rule struct {
	R       Band
	F       Band
	M       Band
	Segment types.Segment
}

func (r Rule) matches(rScore, fScore, mScore int) bool {
	return r.R&bandOf(rScore) != 0 &&
		r.F&bandOf(fScore) != 0 &&
		r.M&bandOf(mScore) != 0
}

// Policy is the ordered segment decision table. Rules are evaluated top to
// bottom, first match wins; Default applies when nothing matches. Keeping
// this a value makes the mapping swappable without touching the scorer.
type Policy struct {
	Rules   []Rule
	Default types.Segment
}

// Segment resolves the segment for one customer's scores.
func (p Policy) Segment(rScore, fScore, mScore int) types.Segment {
	for _, rule := range p.Rules {
		if rule.matches(rScore, fScore, mScore) {
			return rule.Segment
		}
	}
	return p.Default
}

// DefaultPolicy reproduces the standard mapping: recently active heavy
// buyers are champions, recent frequent buyers are loyal, recent one-off
// buyers are new, formerly strong customers are at risk, inactive light
// buyers are lost, and everyone else is a potential loyal.
func DefaultPolicy() Policy {
	return Policy{
		Rules: []Rule{
			{R: BandHigh, F: BandHigh, M: BandHigh, Segment: types.SegmentChampion},
			{R: BandHigh, F: BandHigh, M: BandAny, Segment: types.SegmentLoyal},
			{R: BandHigh, F: BandLow, M: BandLow, Segment: types.SegmentNew},
			{R: BandLow, F: BandHigh, M: BandAny, Segment: types.SegmentAtRisk},
			{R: BandLow, F: BandAny, M: BandHigh, Segment: types.SegmentAtRisk},
			{R: BandLow, F: BandLow, M: BandLow, Segment: types.SegmentLost},
		},
		Default: types.SegmentPotentialLoyal,
	}
}
