// Package harmonic tests five-point X-A-B-C-D swing structures against
// Fibonacci-ratio templates.
package harmonic

import (
	"fmt"
	"math"
	"strings"

	"StockScanner/internal/model"
	"StockScanner/internal/structure"
)

// Pattern names a harmonic template.
type Pattern string

const (
	Gartley   Pattern = "gartley"
	Bat       Pattern = "bat"
	Butterfly Pattern = "butterfly"
	Crab      Pattern = "crab"
	Auto      Pattern = "auto"
)

// Priority is the order automatic mode tries templates in; the first match wins.
var Priority = []Pattern{Gartley, Bat, Butterfly, Crab}

// ParsePattern accepts a template name or "auto" (case-insensitive).
func ParsePattern(s string) (Pattern, error) {
	p := Pattern(strings.ToLower(strings.TrimSpace(s)))
	if p == "" {
		return Auto, nil
	}
	if p == Auto {
		return p, nil
	}
	if _, ok := templates[p]; ok {
		return p, nil
	}
	return "", model.Invalid("harmonic.pattern", "unknown pattern %q", s)
}

// Leg identifies one of the four ratios.
type Leg int

const (
	ABXA Leg = iota
	BCAB
	CDBC
	ADXA
)

func (l Leg) String() string {
	return [...]string{"AB/XA", "BC/AB", "CD/BC", "AD/XA"}[l]
}

// Ratios holds the four leg ratios. A ratio whose denominator leg has zero
// length is missing and never matches.
type Ratios [4]model.Metric

// rule lists the admissible targets for one leg.
type rule struct {
	leg     Leg
	targets []float64
}

var templates = map[Pattern][]rule{
	Gartley: {
		{ABXA, []float64{0.618}},
		{BCAB, []float64{0.382, 0.886}},
		{CDBC, []float64{1.272, 1.618}},
		{ADXA, []float64{0.786}},
	},
	Bat: {
		{ABXA, []float64{0.382, 0.5}},
		{ADXA, []float64{0.886}},
	},
	Butterfly: {
		{ABXA, []float64{0.786}},
		{ADXA, []float64{1.272, 1.618}},
	},
	Crab: {
		{ABXA, []float64{0.382, 0.618}},
		{ADXA, []float64{1.618}},
	},
}

// epsilon absorbs float error so exact targets match at zero tolerance.
const epsilon = 1e-9

func ratio(num, den float64) model.Metric {
	if math.Abs(den) == 0 {
		return model.None
	}
	return model.Some(math.Abs(num) / math.Abs(den))
}

// ComputeRatios derives the leg ratios from exactly five points X, A, B, C, D.
func ComputeRatios(points []model.SwingPoint) (Ratios, error) {
	if len(points) != 5 {
		return Ratios{}, fmt.Errorf("harmonic needs 5 points, got %d: %w", len(points), model.ErrInsufficientData)
	}
	x, a, b, c, d := points[0].Price, points[1].Price, points[2].Price, points[3].Price, points[4].Price
	var r Ratios
	r[ABXA] = ratio(b-a, a-x)
	r[BCAB] = ratio(c-b, b-a)
	r[CDBC] = ratio(d-c, c-b)
	r[ADXA] = ratio(d-a, a-x)
	return r, nil
}

func matches(r Ratios, rules []rule, tol float64) bool {
	for _, ru := range rules {
		v := r[ru.leg]
		if !v.Valid {
			return false
		}
		ok := false
		for _, target := range ru.targets {
			if math.Abs(v.Value-target) <= tol+epsilon {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// MatchRatios tests the ratios against one template, or against every template
// in Priority order when p is Auto. Tolerance is an absolute ratio distance
// expressed in percent (5 means ±0.05).
func MatchRatios(r Ratios, p Pattern, tolerancePct float64) (Pattern, bool) {
	tol := tolerancePct / 100
	if p == Auto {
		for _, candidate := range Priority {
			if matches(r, templates[candidate], tol) {
				return candidate, true
			}
		}
		return "", false
	}
	rules, ok := templates[p]
	if !ok || !matches(r, rules, tol) {
		return "", false
	}
	return p, true
}

// Result is the matcher verdict.
type Result struct {
	Matched bool
	Pattern Pattern
	Ratios  Ratios
	Points  []model.SwingPoint
}

// Match tests the last five swing points. Fewer than five points is no match.
func Match(points []model.SwingPoint, p Pattern, tolerancePct float64) Result {
	last := structure.LastN(points, 5)
	if last == nil {
		return Result{}
	}
	r, err := ComputeRatios(last)
	if err != nil {
		return Result{}
	}
	found, ok := MatchRatios(r, p, tolerancePct)
	return Result{Matched: ok, Pattern: found, Ratios: r, Points: last}
}

// Detect finds swing points on values with the given window and matches the
// last five of them.
func Detect(values []float64, window int, p Pattern, tolerancePct float64) Result {
	return Match(structure.FindLocalExtrema(values, window), p, tolerancePct)
}
