package structure

import (
	"StockScanner/internal/calculator"
	"StockScanner/internal/model"
)

// FindLocalExtrema returns, in index order, every point that is the strict
// maximum (swing high) or strict minimum (swing low) of the 2*window+1 values
// centred on it. The first and last window values are never candidates and
// undefined values never qualify.
func FindLocalExtrema(values []float64, window int) []model.SwingPoint {
	if window < 1 || len(values) < 2*window+1 {
		return nil
	}
	var points []model.SwingPoint
	for i := window; i < len(values)-window; i++ {
		v := values[i]
		if !calculator.Defined(v) {
			continue
		}
		isHigh, isLow := true, true
		for j := i - window; j <= i+window; j++ {
			if j == i {
				continue
			}
			if !calculator.Defined(values[j]) {
				isHigh, isLow = false, false
				break
			}
			if values[j] >= v {
				isHigh = false
			}
			if values[j] <= v {
				isLow = false
			}
			if !isHigh && !isLow {
				break
			}
		}
		switch {
		case isHigh:
			points = append(points, model.SwingPoint{Index: i, Price: v, Kind: model.SwingHigh})
		case isLow:
			points = append(points, model.SwingPoint{Index: i, Price: v, Kind: model.SwingLow})
		}
	}
	return points
}

// Filter keeps the points of one kind.
func Filter(points []model.SwingPoint, kind model.SwingKind) []model.SwingPoint {
	var out []model.SwingPoint
	for _, p := range points {
		if p.Kind == kind {
			out = append(out, p)
		}
	}
	return out
}

// LastN returns the last n points, or nil when fewer exist.
func LastN(points []model.SwingPoint, n int) []model.SwingPoint {
	if n <= 0 || len(points) < n {
		return nil
	}
	return points[len(points)-n:]
}
