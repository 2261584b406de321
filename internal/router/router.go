package router

import (
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ubudget/service-ledger-go/internal/account"
	accountrepo "github.com/ubudget/service-ledger-go/internal/account/repo"
	"github.com/ubudget/service-ledger-go/internal/ledger"
	ledgerrepo "github.com/ubudget/service-ledger-go/internal/ledger/repo"
	"github.com/ubudget/service-ledger-go/internal/middleware"
	"github.com/ubudget/service-ledger-go/internal/obligation"
	obligationrepo "github.com/ubudget/service-ledger-go/internal/obligation/repo"
	"github.com/ubudget/service-ledger-go/internal/reminder"
	reminderrepo "github.com/ubudget/service-ledger-go/internal/reminder/repo"
	"github.com/ubudget/service-ledger-go/internal/user"
	userrepo "github.com/ubudget/service-ledger-go/internal/user/repo"
)

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// LoggingMiddleware returns a middleware that logs requests at debug level using the provided sugared logger.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debugw("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeadersMiddleware returns a middleware that sets common HTTP security headers.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			if w.Header().Get("Content-Security-Policy") == "" {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; object-src 'none'; base-uri 'self';")
			}
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RegisterRoutes wires repositories, services and handlers and mounts them
// on the standard library's http.ServeMux.
func RegisterRoutes(logger *zap.SugaredLogger, db *sqlx.DB) http.Handler {
	mux := http.NewServeMux()

	// auth
	tokens := user.NewTokenIssuer(user.TokenConfigFromEnv())
	userSvc := user.NewService(userrepo.NewUserRepo(db), userrepo.NewSessionRepo(db), tokens, nil)
	userHandler := user.NewHandler(userSvc, logger)
	auth := middleware.Auth(userSvc.ParseAccess, logger)

	// accounts
	accountSvc := account.NewService(accountrepo.NewAccountRepo(db))
	accountHandler := account.NewHandler(accountSvc, logger)

	// ledger
	store := ledgerrepo.NewSQLStore(db)
	ledgerSvc := ledger.NewService(store)
	ledgerHandler := ledger.NewHandler(ledgerSvc, store, logger)

	// obligations + reminders
	obligationRepo := obligationrepo.NewObligationRepo(db)
	obligationSvc := obligation.NewService(obligationRepo)
	obligationHandler := obligation.NewHandler(obligationSvc, logger)
	reminderSvc := reminder.NewService(reminderrepo.NewReminderRepo(db), obligationRepo)
	reminderHandler := reminder.NewHandler(reminderSvc, logger)

	// health
	mux.HandleFunc("GET /ubudget-api/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// public user routes
	mux.HandleFunc("POST /ubudget-api/users/register", userHandler.Register)
	mux.HandleFunc("POST /ubudget-api/users/login", userHandler.Login)
	mux.HandleFunc("POST /ubudget-api/users/refresh", userHandler.Refresh)
	mux.HandleFunc("POST /ubudget-api/users/logout", userHandler.Logout)

	// protected routes
	protect := func(h http.HandlerFunc) http.Handler { return auth(h) }
	mux.Handle("GET /ubudget-api/users/me", protect(userHandler.Me))
	mux.Handle("POST /ubudget-api/users/password", protect(userHandler.ChangePassword))

	mux.Handle("POST /ubudget-api/accounts", protect(accountHandler.Create))
	mux.Handle("GET /ubudget-api/accounts", protect(accountHandler.List))
	mux.Handle("POST /ubudget-api/accounts/{number}/deactivate", protect(accountHandler.Deactivate))

	mux.Handle("POST /ubudget-api/transactions", protect(ledgerHandler.Submit))
	mux.Handle("GET /ubudget-api/accounts/{number}/transactions", protect(ledgerHandler.History))

	mux.Handle("POST /ubudget-api/obligations", protect(obligationHandler.Create))
	mux.Handle("GET /ubudget-api/obligations", protect(obligationHandler.List))
	mux.Handle("POST /ubudget-api/obligations/{id}/cancel", protect(obligationHandler.Cancel))

	mux.Handle("POST /ubudget-api/reminders", protect(reminderHandler.Create))
	mux.Handle("GET /ubudget-api/reminders", protect(reminderHandler.List))

	return LoggingMiddleware(logger)(SecurityHeadersMiddleware()(mux))
}
