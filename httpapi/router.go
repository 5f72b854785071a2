package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

// NewRouter registers every engine operation. Account-scoped routes take
// the account id from the bearer token, never from the path.
func NewRouter(engine Engine, jwtSecret []byte) http.Handler {
	h := NewHandler(engine)
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/vip/levels", h.GetVipLevels)
	r.Get("/charity/stats", h.GetCharityStats)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(jwtSecret))

		r.Post("/account", h.OpenAccount)

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/", h.GetWallet)
			r.Post("/deposit", h.Deposit)
			r.Post("/withdraw", h.Withdraw)
			r.Post("/transfer", h.Transfer)
			r.Post("/transfer-to-account", h.TransferToAccount)
			r.Post("/convert-stars", h.ConvertStars)
			r.Get("/transactions", h.GetTransactions)
			r.Get("/reconcile", h.Reconcile)
		})

		r.Route("/vip", func(r chi.Router) {
			r.Get("/status", h.GetVipStatus)
			r.Post("/subscribe", h.Subscribe)
			r.Post("/auto-renew/toggle", h.ToggleAutoRenew)
			r.Post("/cancel", h.CancelVip)
		})

		r.Route("/activity", func(r chi.Router) {
			r.Post("/track", h.TrackActivity)
			r.Post("/claim", h.ClaimReward)
			r.Get("/status", h.GetActivityStatus)
			r.Get("/summary", h.GetDailySummary)
		})
	})

	return r
}

// NewServer creates a configured *http.Server for the engine API
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		entry := log.WithFields(log.Fields{
			"method":    r.Method,
			"path":      r.URL.Path,
			"status":    ww.Status(),
			"bytes":     ww.BytesWritten(),
			"duration":  time.Since(start).String(),
			"requestID": middleware.GetReqID(r.Context()),
		})
		if ww.Status() >= http.StatusInternalServerError {
			entry.Warn("Request served with server error")
			return
		}
		entry.Debug("Request served")
	})
}
