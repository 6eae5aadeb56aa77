package prices

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tossww/open-insider-trader/internal/contracts"
)

// Mon 2024-01-08 .. Fri 2024-01-12, then Mon 2024-01-15
func weekSeries() *PriceData {
	d := func(day int) time.Time { return time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC) }
	return NewPriceData("ABC", []contracts.PriceBar{
		{Date: d(10), Open: 102, Close: 103},
		{Date: d(8), Open: 100, Close: 101},
		{Date: d(9), Open: 101, Close: 102},
		{Date: d(11), Open: 103, Close: 104},
		{Date: d(12), Open: 104, Close: 110},
		{Date: d(15), Open: 110, Close: 121},
	})
}

func TestNewPriceData_SortsAndDedupes(t *testing.T) {
	p := NewPriceData("X", []contracts.PriceBar{
		{Date: time.Date(2024, 1, 3, 15, 0, 0, 0, time.UTC), Close: 2},
		{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Close: 1},
		{Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Close: 3},
	})

	require.Equal(t, 2, p.Len())
	bars := p.Bars()
	assert.True(t, bars[0].Date.Before(bars[1].Date))
	assert.Equal(t, 3.0, bars[1].Close, "last bar for a day wins")
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), p.LastDate())
}

func TestPriceOnDate(t *testing.T) {
	p := weekSeries()

	tests := []struct {
		name  string
		date  time.Time
		field contracts.PriceField
		want  float64
		ok    bool
	}{
		{"exact open", time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC), contracts.FieldOpen, 101, true},
		{"exact close ignores time of day", time.Date(2024, 1, 9, 20, 0, 0, 0, time.UTC), contracts.FieldClose, 102, true},
		{"weekend forward fills to monday", time.Date(2024, 1, 13, 0, 0, 0, 0, time.UTC), contracts.FieldOpen, 110, true},
		{"before series", time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC), contracts.FieldOpen, 100, true},
		{"after series", time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC), contracts.FieldOpen, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := p.PriceOnDate(tt.date, tt.field)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReturnOverPeriod(t *testing.T) {
	p := weekSeries()
	start := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		start   time.Time
		holding int
		want    float64
		ok      bool
	}{
		{"same day open to close", start, 0, 0.01, true},
		{"four trading days", start, 4, 0.10, true},
		{"last index", start, 5, 0.21, true},
		{"hold to last bar", start, -1, 0.21, true},
		{"not enough data", start, 6, 0, false},
		{"forward filled start", time.Date(2024, 1, 13, 0, 0, 0, 0, time.UTC), 0, 0.10, true},
		{"no entry", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), -1, 0, false},
		{"invalid holding", start, -2, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := p.ReturnOverPeriod(tt.start, tt.holding, contracts.FieldOpen, contracts.FieldClose)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestEmptySeries(t *testing.T) {
	p := NewPriceData("EMPTY", nil)
	assert.Zero(t, p.Len())
	assert.True(t, p.FirstDate().IsZero())
	assert.Equal(t, -1, p.IndexOnOrAfter(time.Now()))
	_, ok := p.PriceOnDate(time.Now(), contracts.FieldClose)
	assert.False(t, ok)
}
