package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/tossww/open-insider-trader/internal/contracts"
	"github.com/tossww/open-insider-trader/pkg/logger"
)

const (
	defaultTransactionLimit = 100
	maxTransactionLimit     = 1000
)

// TransactionHandler serves stored insider transactions and companies
type TransactionHandler struct {
	repo   contracts.TransactionRepository
	logger *logger.Logger
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(repo contracts.TransactionRepository, log *logger.Logger) *TransactionHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &TransactionHandler{
		repo:   repo,
		logger: log.Module("api.transactions"),
	}
}

// GetTransactions returns recent transactions, newest filing first
// GET /api/transactions?ticker=AAPL&limit=100&days=90
func (h *TransactionHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultTransactionLimit)
	if limit > maxTransactionLimit {
		limit = maxTransactionLimit
	}

	q := contracts.TransactionQuery{
		Ticker: strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("ticker"))),
		Limit:  limit,
	}
	if days := queryInt(r, "days", 0); days > 0 {
		q.Since = time.Now().AddDate(0, 0, -days)
	}

	txns, err := h.repo.ListTransactions(r.Context(), q)
	if err != nil {
		h.logger.WithError(err).WithField("ticker", q.Ticker).Error("Failed to list transactions")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve transactions")
		return
	}
	if txns == nil {
		txns = []contracts.Transaction{}
	}

	respondData(w, txns)
}

// CompanyResponse is the body of GET /api/companies/{ticker}
type CompanyResponse struct {
	Company      *contracts.Company      `json:"company"`
	Transactions []contracts.Transaction `json:"transactions"`
}

// GetCompany returns a company with its recent insider transactions
// GET /api/companies/{ticker}
func (h *TransactionHandler) GetCompany(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(strings.TrimSpace(mux.Vars(r)["ticker"]))
	if ticker == "" {
		respondError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	company, err := h.repo.GetCompany(r.Context(), ticker)
	if err != nil {
		h.logger.WithError(err).WithField("ticker", ticker).Error("Failed to get company")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve company")
		return
	}
	if company == nil {
		respondError(w, http.StatusNotFound, "company not found")
		return
	}

	txns, err := h.repo.ListTransactions(r.Context(), contracts.TransactionQuery{
		Ticker: ticker,
		Limit:  queryInt(r, "limit", defaultTransactionLimit),
	})
	if err != nil {
		h.logger.WithError(err).WithField("ticker", ticker).Error("Failed to list transactions")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve transactions")
		return
	}
	if txns == nil {
		txns = []contracts.Transaction{}
	}

	respondData(w, CompanyResponse{Company: company, Transactions: txns})
}
