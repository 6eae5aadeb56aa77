package contracts

import (
	"strings"
	"time"
)

// TransactionCode is the Form 4 transaction code
type TransactionCode string

const (
	CodePurchase TransactionCode = "P" // 장내 매수
	CodeSale     TransactionCode = "S"
	CodeExercise TransactionCode = "M" // 옵션 행사
	CodeAward    TransactionCode = "A"
	CodeDisposal TransactionCode = "D"
)

// ParseTransactionCode extracts the code from strings such as "P - Purchase"
func ParseTransactionCode(raw string) TransactionCode {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if idx := strings.Index(raw, " "); idx > 0 {
		raw = raw[:idx]
	}
	return TransactionCode(strings.ToUpper(raw))
}

// IsPurchase reports whether the code is an open-market purchase
func (c TransactionCode) IsPurchase() bool {
	return c == CodePurchase
}

// Source identifies where a transaction was ingested from
type Source string

const (
	SourceOpenInsider Source = "openinsider"
	SourceSEC         Source = "sec"
)

// Transaction is the normalized insider transaction record consumed by the signal pipeline
// ⭐ SSOT: 수집 어댑터 → 파이프라인 입력 레코드
type Transaction struct {
	ID              int64           `json:"id,omitempty"`
	InsiderID       int64           `json:"insider_id,omitempty"`
	CompanyID       int64           `json:"company_id,omitempty"`
	Ticker          string          `json:"ticker"`
	CompanyName     string          `json:"company_name"`
	InsiderName     string          `json:"insider_name"`
	OfficerTitle    string          `json:"officer_title"`
	TradeDate       time.Time       `json:"trade_date"`
	FilingDate      time.Time       `json:"filing_date"`
	TransactionCode TransactionCode `json:"transaction_code"`
	Shares          float64         `json:"shares"`
	PricePerShare   *float64        `json:"price_per_share,omitempty"`
	TotalValue      *float64        `json:"total_value,omitempty"`   // nil = 미상
	MarketCapUSD    *float64        `json:"market_cap_usd,omitempty"` // 공시일 기준 시가총액
	Source          Source          `json:"source"`
}

// HasMarketCap reports whether a positive market cap is known
func (t Transaction) HasMarketCap() bool {
	return t.MarketCapUSD != nil && *t.MarketCapUSD > 0
}

// Value returns TotalValue or 0 when unknown
func (t Transaction) Value() float64 {
	if t.TotalValue == nil {
		return 0
	}
	return *t.TotalValue
}

// Company is a listed issuer
type Company struct {
	ID        int64     `json:"id"`
	Ticker    string    `json:"ticker"`
	Name      string    `json:"name"`
	CIK       string    `json:"cik,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Insider is an officer, director or large holder filing Form 4
type Insider struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	CompanyID    int64     `json:"company_id"`
	OfficerTitle string    `json:"officer_title"`
	CreatedAt    time.Time `json:"created_at"`
}

// Float64Ptr returns a pointer to v
func Float64Ptr(v float64) *float64 {
	return &v
}
