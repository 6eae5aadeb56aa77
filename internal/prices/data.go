package prices

import (
	"sort"
	"time"

	"github.com/tossww/open-insider-trader/internal/contracts"
)

// PriceData is a per-ticker daily series with strictly increasing dates
type PriceData struct {
	Ticker string
	bars   []contracts.PriceBar
}

// NewPriceData normalizes bars to UTC days, sorts them and drops duplicate
// dates (the last bar for a day wins)
func NewPriceData(ticker string, bars []contracts.PriceBar) *PriceData {
	normalized := make([]contracts.PriceBar, len(bars))
	for i, b := range bars {
		b.Date = contracts.Day(b.Date)
		normalized[i] = b
	}
	sort.SliceStable(normalized, func(i, j int) bool {
		return normalized[i].Date.Before(normalized[j].Date)
	})

	unique := normalized[:0]
	for _, b := range normalized {
		if n := len(unique); n > 0 && unique[n-1].Date.Equal(b.Date) {
			unique[n-1] = b
			continue
		}
		unique = append(unique, b)
	}

	return &PriceData{Ticker: ticker, bars: unique}
}

// Len returns the number of bars
func (p *PriceData) Len() int {
	return len(p.bars)
}

// Bars returns a copy of the series
func (p *PriceData) Bars() []contracts.PriceBar {
	out := make([]contracts.PriceBar, len(p.bars))
	copy(out, p.bars)
	return out
}

// FirstDate and LastDate bound the series; zero when empty
func (p *PriceData) FirstDate() time.Time {
	if len(p.bars) == 0 {
		return time.Time{}
	}
	return p.bars[0].Date
}

func (p *PriceData) LastDate() time.Time {
	if len(p.bars) == 0 {
		return time.Time{}
	}
	return p.bars[len(p.bars)-1].Date
}

// IndexOnOrAfter returns the index of the first bar dated on or after date,
// or -1 when none exists
func (p *PriceData) IndexOnOrAfter(date time.Time) int {
	day := contracts.Day(date)
	i := sort.Search(len(p.bars), func(i int) bool {
		return !p.bars[i].Date.Before(day)
	})
	if i == len(p.bars) {
		return -1
	}
	return i
}

// Future returns the bars dated on or after date
func (p *PriceData) Future(date time.Time) []contracts.PriceBar {
	i := p.IndexOnOrAfter(date)
	if i < 0 {
		return nil
	}
	return p.bars[i:]
}

// PriceOnDate returns the field on date, or on the next available trading
// day. ok is false when no bar exists at or after date.
func (p *PriceData) PriceOnDate(date time.Time, field contracts.PriceField) (float64, bool) {
	i := p.IndexOnOrAfter(date)
	if i < 0 {
		return 0, false
	}
	return p.bars[i].Get(field), true
}

// ReturnOverPeriod is the simple return from the entry field on start (forward
// filled) to the exit field holdingDays trading days later. holdingDays -1
// exits on the last bar. ok is false when entry is missing or the series has
// no more than holdingDays bars from start.
func (p *PriceData) ReturnOverPeriod(start time.Time, holdingDays int, entryField, exitField contracts.PriceField) (float64, bool) {
	future := p.Future(start)
	if len(future) == 0 {
		return 0, false
	}

	entry := future[0].Get(entryField)
	if entry == 0 {
		return 0, false
	}

	var exitBar contracts.PriceBar
	switch {
	case holdingDays == -1:
		exitBar = future[len(future)-1]
	case holdingDays < 0 || len(future) <= holdingDays:
		return 0, false
	default:
		exitBar = future[holdingDays]
	}

	return (exitBar.Get(exitField) - entry) / entry, true
}
