package structure

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockScanner/internal/model"
)

func TestFindLocalExtrema_Strict(t *testing.T) {
	values := []float64{5, 3, 1, 3, 5, 7, 9, 7, 5, 5, 5}
	points := FindLocalExtrema(values, 2)
	require.Len(t, points, 2)
	assert.Equal(t, model.SwingPoint{Index: 2, Price: 1, Kind: model.SwingLow}, points[0])
	assert.Equal(t, model.SwingPoint{Index: 6, Price: 9, Kind: model.SwingHigh}, points[1])
}

func TestFindLocalExtrema_FlatHasNoSwings(t *testing.T) {
	values := []float64{4, 4, 4, 4, 4, 4, 4}
	assert.Empty(t, FindLocalExtrema(values, 1))
	assert.Empty(t, FindLocalExtrema(values[:2], 1))
}

func TestFilterAndLastN(t *testing.T) {
	points := FindLocalExtrema([]float64{3, 1, 3, 5, 3, 0, 3}, 1)
	lows := Filter(points, model.SwingLow)
	require.Len(t, lows, 2)
	assert.Equal(t, 5, lows[1].Index)
	assert.Len(t, LastN(points, 2), 2)
	assert.Nil(t, LastN(points, 4))
}

func TestConvergencePercent(t *testing.T) {
	assert.InDelta(t, 50.0, ConvergencePercent([]float64{12, 11, 10.5}, []float64{8, 9, 8.5}), 1e-9)
	assert.Equal(t, 0.0, ConvergencePercent([]float64{10, 11}, []float64{10, 9}))
	assert.Equal(t, 0.0, ConvergencePercent(nil, nil))
}

func TestVolumeDeclinePercent(t *testing.T) {
	pct, err := VolumeDeclinePercent([]float64{999, 200, 200, 100, 100}, 4)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, pct, 1e-9)

	_, err = VolumeDeclinePercent([]float64{1, 2}, 4)
	assert.True(t, errors.Is(err, model.ErrInsufficientData))

	pct, err = VolumeDeclinePercent([]float64{0, 0, 5, 5}, 4)
	require.NoError(t, err)
	assert.Equal(t, 0.0, pct)
}

func bar(day int, high, low, close, volume float64) model.Bar {
	return model.Bar{
		Time:   time.Date(2024, 3, 1+day, 0, 0, 0, 0, time.UTC),
		Open:   close,
		High:   high,
		Low:    low,
		Close:  close,
		Volume: volume,
	}
}

func TestBreakoutCheck(t *testing.T) {
	bars := []model.Bar{
		bar(0, 11, 9, 10, 100),
		bar(1, 11, 9, 10, 100),
		bar(2, 11, 9, 10, 100),
		bar(3, 11, 9, 10, 100),
		bar(4, 12.5, 10, 12, 200),
	}
	b, err := BreakoutCheck(bars, 5)
	require.NoError(t, err)
	assert.Equal(t, DirectionUp, b.Direction)
	assert.InDelta(t, 100.0, b.VolumeChangePct, 1e-9)
	assert.True(t, b.Confirmed(DirectionUp, 40))
	assert.True(t, b.Confirmed(DirectionEither, 40))
	assert.False(t, b.Confirmed(DirectionDown, 40))
	assert.False(t, b.Confirmed(DirectionUp, 150))

	bars[4] = bar(4, 10, 8, 8.5, 300)
	b, err = BreakoutCheck(bars, 5)
	require.NoError(t, err)
	assert.Equal(t, DirectionDown, b.Direction)

	_, err = BreakoutCheck(bars[:3], 5)
	assert.True(t, errors.Is(err, model.ErrInsufficientData))
}
