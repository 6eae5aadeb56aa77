package scoring

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/tossww/open-insider-trader/internal/contracts"
	"github.com/tossww/open-insider-trader/internal/signalconfig"
	"github.com/tossww/open-insider-trader/pkg/logger"
)

// =============================================================================
// Alert scoring: conviction (0-3) + track record (0-5) → threshold category
// =============================================================================

const (
	// HighConvictionValue 이 금액을 초과하는 매수는 +1
	HighConvictionValue = 1_000_000

	// RepeatBuyWindowDays 같은 내부자의 매수가 거래일 ±30일 안에 2건 이상이면 +1
	RepeatBuyWindowDays = 30

	// TrackRecordPeriod is the stored win rate column used for track record points
	TrackRecordPeriod = "3m"
)

// cSuiteWords are matched as whole words; cSuitePhrases as substrings
var (
	cSuiteWords   = []string{"ceo", "cfo", "coo", "cto", "president", "pres", "chairman", "chair", "cob"}
	cSuitePhrases = []string{"chief executive", "chief financial", "chief operating", "chief technology"}
)

// IsCSuite reports whether a filing title names a C-suite officer.
// "Vice President" is not C-suite.
func IsCSuite(title string) bool {
	lower := strings.ToLower(strings.TrimSpace(title))
	if lower == "" {
		return false
	}

	for _, phrase := range cSuitePhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}

	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if w == "vice" {
			return false
		}
	}
	for _, w := range words {
		for _, kw := range cSuiteWords {
			if w == kw {
				return true
			}
		}
	}
	return false
}

// PurchaseHistory indexes open-market purchase trade dates per insider
type PurchaseHistory struct {
	dates map[string][]time.Time
}

// NewPurchaseHistory indexes the purchases among txns
func NewPurchaseHistory(txns []contracts.Transaction) *PurchaseHistory {
	h := &PurchaseHistory{dates: make(map[string][]time.Time)}
	for _, t := range txns {
		if !t.TransactionCode.IsPurchase() {
			continue
		}
		key := insiderKey(t)
		h.dates[key] = append(h.dates[key], t.TradeDate)
	}
	return h
}

// CountWithin counts the insider's purchases traded within ±days of t.TradeDate,
// t itself included when it is part of the history
func (h *PurchaseHistory) CountWithin(t contracts.Transaction, days int) int {
	if h == nil {
		return 0
	}
	from := t.TradeDate.AddDate(0, 0, -days)
	to := t.TradeDate.AddDate(0, 0, days)

	count := 0
	for _, d := range h.dates[insiderKey(t)] {
		if !d.Before(from) && !d.After(to) {
			count++
		}
	}
	return count
}

// insiderKey prefers the stored insider id; scraped rows fall back to name + ticker
func insiderKey(t contracts.Transaction) string {
	if t.InsiderID > 0 {
		return fmt.Sprintf("id:%d", t.InsiderID)
	}
	return strings.ToLower(strings.TrimSpace(t.InsiderName)) + "|" + strings.ToUpper(t.Ticker)
}

// ConvictionScore awards one point each for a purchase above $1M,
// a repeat purchase within 30 days, and a C-suite title
func ConvictionScore(sig contracts.Signal, history *PurchaseHistory) int {
	score := 0
	if sig.Value() > HighConvictionValue {
		score++
	}
	if history.CountWithin(sig.Transaction, RepeatBuyWindowDays) >= 2 {
		score++
	}
	if IsCSuite(sig.OfficerTitle) {
		score++
	}
	return score
}

// WinRatePoints: > 70% → 3, > 60% → 2, > 50% → 1
func WinRatePoints(winRate float64) int {
	switch {
	case winRate > 0.70:
		return 3
	case winRate > 0.60:
		return 2
	case winRate > 0.50:
		return 1
	default:
		return 0
	}
}

// AlphaPoints: > 10% → 2, > 5% → 1
func AlphaPoints(alpha float64) int {
	switch {
	case alpha > 0.10:
		return 2
	case alpha > 0.05:
		return 1
	default:
		return 0
	}
}

// TrackRecordScorer scores an insider's stored performance, falling back to
// the company average when the insider has no win rate or alpha
type TrackRecordScorer struct {
	repo   contracts.TrackRecordRepository
	period string
	logger *logger.Logger
}

// NewTrackRecordScorer creates a scorer. repo may be nil (every signal scores 0).
func NewTrackRecordScorer(repo contracts.TrackRecordRepository, log *logger.Logger) *TrackRecordScorer {
	if log == nil {
		log = logger.Nop()
	}
	return &TrackRecordScorer{
		repo:   repo,
		period: TrackRecordPeriod,
		logger: log.Module("scoring.track_record"),
	}
}

// Lookup returns the insider's win rate and alpha, or the company average.
// Nil when neither exists.
func (s *TrackRecordScorer) Lookup(ctx context.Context, insiderID, companyID int64) (*contracts.TrackRecord, error) {
	if s.repo == nil {
		return nil, nil
	}

	if insiderID > 0 {
		perf, err := s.repo.GetPerformance(ctx, insiderID)
		if err != nil {
			return nil, fmt.Errorf("get insider performance: %w", err)
		}
		if perf != nil {
			if wr := perf.WinRate(s.period); wr != nil && perf.AlphaVsSPY != nil {
				return &contracts.TrackRecord{WinRate: *wr, Alpha: *perf.AlphaVsSPY}, nil
			}
		}
	}

	if companyID <= 0 {
		return nil, nil
	}
	record, err := s.repo.CompanyTrackRecord(ctx, companyID, s.period)
	if err != nil {
		return nil, fmt.Errorf("get company track record: %w", err)
	}
	return record, nil
}

// Score returns 0-5 points. Lookup failures score 0 and are logged.
func (s *TrackRecordScorer) Score(ctx context.Context, insiderID, companyID int64) int {
	record, err := s.Lookup(ctx, insiderID, companyID)
	if err != nil {
		s.logger.WithError(err).WithFields(map[string]interface{}{
			"insider_id": insiderID,
			"company_id": companyID,
		}).Warn("Track record unavailable, scoring 0")
		return 0
	}
	if record == nil {
		return 0
	}
	return WinRatePoints(record.WinRate) + AlphaPoints(record.Alpha)
}

// AlertScorer sets conviction, track record, alert score and category
// ⭐ SSOT: 알림 카테고리 판정은 여기서만
type AlertScorer struct {
	trackRecord *TrackRecordScorer
	thresholds  contracts.CategoryCutoffs
	logger      *logger.Logger
}

// NewAlertScorer creates an alert scorer. records may be nil.
func NewAlertScorer(cfg *signalconfig.Config, records contracts.TrackRecordRepository, log *logger.Logger) *AlertScorer {
	if log == nil {
		log = logger.Nop()
	}
	return &AlertScorer{
		trackRecord: NewTrackRecordScorer(records, log),
		thresholds:  cfg.Thresholds,
		logger:      log.Module("scoring.alert"),
	}
}

// ScoreAll returns copies of signals with alert fields set, in input order.
// history should hold every loaded transaction so repeat purchases below the
// filter thresholds still count.
func (a *AlertScorer) ScoreAll(ctx context.Context, signals []contracts.Signal, history *PurchaseHistory) []contracts.Signal {
	out := make([]contracts.Signal, len(signals))

	// 같은 내부자는 한 번만 조회
	type key struct{ insider, company int64 }
	memo := make(map[key]int)

	counts := make(map[contracts.ThresholdCategory]int)
	for i, sig := range signals {
		sig.ConvictionScore = ConvictionScore(sig, history)

		k := key{sig.InsiderID, sig.CompanyID}
		points, ok := memo[k]
		if !ok {
			points = a.trackRecord.Score(ctx, sig.InsiderID, sig.CompanyID)
			memo[k] = points
		}
		sig.TrackRecordScore = points

		sig.AlertScore = sig.ConvictionScore + sig.TrackRecordScore
		sig.Category = a.thresholds.Categorize(float64(sig.AlertScore))
		counts[sig.Category]++
		out[i] = sig
	}

	a.logger.WithFields(map[string]interface{}{
		"total":      len(out),
		"strong_buy": counts[contracts.CategoryStrongBuy],
		"watch":      counts[contracts.CategoryWatch],
		"weak":       counts[contracts.CategoryWeak],
	}).Info("Scored alerts")

	return out
}
