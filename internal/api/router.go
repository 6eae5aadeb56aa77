package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/tossww/open-insider-trader/internal/api/handlers"
	"github.com/tossww/open-insider-trader/pkg/logger"
)

// Handlers groups the endpoint handlers mounted by NewRouter.
// Nil handlers leave their routes unmounted.
type Handlers struct {
	Signals      *handlers.SignalHandler
	Transactions *handlers.TransactionHandler
	Backtest     *handlers.BacktestHandler
	Performance  *handlers.PerformanceHandler
	Stream       http.Handler
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h Handlers, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.Nop()
	}
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	if h.Signals != nil {
		api.HandleFunc("/signals", h.Signals.GetSignals).Methods("GET")
		api.HandleFunc("/signals/stats", h.Signals.GetStats).Methods("GET")
	}

	if h.Transactions != nil {
		api.HandleFunc("/transactions", h.Transactions.GetTransactions).Methods("GET")
		api.HandleFunc("/companies/{ticker}", h.Transactions.GetCompany).Methods("GET")
	}

	if h.Backtest != nil {
		api.HandleFunc("/backtest", h.Backtest.RunBacktest).Methods("POST")
		api.HandleFunc("/backtest/runs", h.Backtest.ListRuns).Methods("GET")
		api.HandleFunc("/backtest/runs/{id}", h.Backtest.GetRun).Methods("GET")
	}

	if h.Performance != nil {
		api.HandleFunc("/insiders/{id:[0-9]+}/performance", h.Performance.GetPerformance).Methods("GET")
	}

	// Live report push
	if h.Stream != nil {
		r.Handle("/ws/signals", h.Stream).Methods("GET")
	}

	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "open-insider-trader-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// loggingMiddleware logs HTTP requests.
// The ResponseWriter is passed through untouched so websocket upgrades can hijack it.
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
