package backtest

import (
	"github.com/tossww/open-insider-trader/internal/contracts"
	"github.com/tossww/open-insider-trader/internal/prices"
)

// entryDelayDays 공시 다음날 시가 진입
const entryDelayDays = 1

// BacktestSignal simulates one position: buy at the open of the first bar on
// or after filing_date + 1 day, sell at the close holdingDays trading days
// later (HoldToEnd = last bar). Returns nil when the trade cannot be placed.
func (e *Engine) BacktestSignal(sig contracts.TradeSignal, holdingDays int, data *prices.PriceData) *TradeResult {
	return simulate(sig, holdingDays, data, e.cfg.RoundTripCost())
}

func simulate(sig contracts.TradeSignal, holdingDays int, data *prices.PriceData, roundTripCost float64) *TradeResult {
	if data == nil || holdingDays < HoldToEnd {
		return nil
	}

	entryDate := contracts.Day(sig.FilingDate).AddDate(0, 0, entryDelayDays)
	future := data.Future(entryDate)
	if len(future) == 0 {
		return nil
	}

	entry := future[0]
	if entry.Open <= 0 {
		return nil
	}

	exitIdx := len(future) - 1
	if holdingDays != HoldToEnd && holdingDays < exitIdx {
		exitIdx = holdingDays
	}
	// 진입일 = 청산일이면 보유 불가
	if exitIdx == 0 {
		return nil
	}

	exit := future[exitIdx]
	gross := (exit.Close - entry.Open) / entry.Open

	return &TradeResult{
		Ticker:      sig.Ticker,
		InsiderName: sig.InsiderName,
		FilingDate:  sig.FilingDate,
		EntryDate:   entry.Date,
		ExitDate:    exit.Date,
		HoldingDays: exitIdx,
		EntryPrice:  entry.Open,
		ExitPrice:   exit.Close,
		GrossReturn: gross,
		NetReturn:   gross - roundTripCost,
		SignalScore: sig.CompositeScore,
	}
}
