package openinsider

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"github.com/tossww/open-insider-trader/internal/contracts"
)

const (
	filingLayout = "2006-01-02 15:04:05"
	tradeLayout  = "2006-01-02"

	minCells = 11
)

// Screener table 컬럼 순서
// X | Filing Date | Trade Date | Ticker | Company | Insider | Title | Type | Price | Qty | Owned | ΔOwn | Value
const (
	colFilingDate = 1
	colTradeDate  = 2
	colTicker     = 3
	colCompany    = 4
	colInsider    = 5
	colTitle      = 6
	colType       = 7
	colPrice      = 8
	colQty        = 9
	colValue      = 12
)

// Row is one parsed screener row
type Row struct {
	FilingDate  time.Time
	TradeDate   time.Time
	Ticker      string
	CompanyName string
	InsiderName string
	Title       string
	Code        contracts.TransactionCode
	Price       *decimal.Decimal
	Shares      decimal.Decimal
	Value       *decimal.Decimal // nil = 금액 미상
}

// Page is the result of parsing one screener page
type Page struct {
	Rows []Row

	// RowCount counts every data row, including ones that failed to parse.
	// Paging stops when it drops below the page size.
	RowCount int

	Skipped int
}

// ParsePage extracts the rows of the screener's tinytable.
// A page without the table yields an empty Page, not an error.
func ParsePage(html string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	page := &Page{}
	table := doc.Find("table.tinytable").First()
	if table.Length() == 0 {
		return page, nil
	}

	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() == 0 {
			return // header
		}
		page.RowCount++

		texts := make([]string, cells.Length())
		cells.Each(func(i int, td *goquery.Selection) {
			texts[i] = strings.TrimSpace(td.Text())
		})

		row, err := parseRow(texts)
		if err != nil {
			page.Skipped++
			return
		}
		page.Rows = append(page.Rows, row)
	})

	return page, nil
}

func parseRow(cells []string) (Row, error) {
	if len(cells) < minCells {
		return Row{}, fmt.Errorf("expected at least %d cells, got %d", minCells, len(cells))
	}

	filed, err := time.Parse(filingLayout, cells[colFilingDate])
	if err != nil {
		return Row{}, fmt.Errorf("filing date %q: %w", cells[colFilingDate], err)
	}
	traded, err := time.Parse(tradeLayout, cells[colTradeDate])
	if err != nil {
		return Row{}, fmt.Errorf("trade date %q: %w", cells[colTradeDate], err)
	}

	ticker := strings.ToUpper(cells[colTicker])
	if ticker == "" {
		return Row{}, fmt.Errorf("empty ticker")
	}

	row := Row{
		FilingDate:  filed,
		TradeDate:   traded,
		Ticker:      ticker,
		CompanyName: cells[colCompany],
		InsiderName: cells[colInsider],
		Title:       cells[colTitle],
		Code:        contracts.ParseTransactionCode(cells[colType]),
	}

	if price, ok := parseAmount(cells[colPrice]); ok {
		row.Price = &price
	}
	if shares, ok := parseAmount(cells[colQty]); ok {
		row.Shares = shares
	}
	if len(cells) > colValue {
		if value, ok := parseAmount(cells[colValue]); ok {
			row.Value = &value
		}
	}

	// 금액 칸이 비어 있으면 단가 × 수량
	if (row.Value == nil || row.Value.IsZero()) && row.Price != nil && row.Shares.IsPositive() {
		value := row.Price.Mul(row.Shares)
		row.Value = &value
	}

	return row, nil
}

// parseAmount reads cells such as "$1,234.56", "+10,000" or "-$50,000" as
// an absolute amount. Empty or non-numeric cells report false.
func parseAmount(s string) (decimal.Decimal, bool) {
	s = strings.NewReplacer("$", "", ",", "", "+", "", "-", "", " ", "").Replace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d.Abs(), true
}

// Transaction converts the row into the pipeline record
func (r Row) Transaction() contracts.Transaction {
	shares, _ := r.Shares.Float64()

	txn := contracts.Transaction{
		Ticker:          r.Ticker,
		CompanyName:     r.CompanyName,
		InsiderName:     r.InsiderName,
		OfficerTitle:    r.Title,
		TradeDate:       r.TradeDate,
		FilingDate:      r.FilingDate,
		TransactionCode: r.Code,
		Shares:          shares,
		Source:          contracts.SourceOpenInsider,
	}
	if r.Price != nil {
		price, _ := r.Price.Float64()
		txn.PricePerShare = &price
	}
	if r.Value != nil {
		value, _ := r.Value.Float64()
		txn.TotalValue = &value
	}
	return txn
}
