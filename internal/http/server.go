package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"spendtrack/internal/core"
	"spendtrack/internal/log"
	"spendtrack/internal/middleware/ratelimit"
	"spendtrack/internal/middleware/security"
	"spendtrack/internal/middleware/trace"
	"spendtrack/internal/services"
)

// Store is the persistence the API reads and writes. *storage.Repository
// implements it.
type Store interface {
	ListUsers(ctx context.Context) ([]core.User, error)
	CreateCreditCard(ctx context.Context, c core.CreditCard) (core.CreditCard, error)
	ListCreditCards(ctx context.Context, userID string) ([]core.CreditCard, error)
	CreateBankAccount(ctx context.Context, a core.BankAccount) (core.BankAccount, error)
	ListBankAccounts(ctx context.Context, userID string) ([]core.BankAccount, error)
	CardholderTotals(ctx context.Context, userID string, r core.DateRange) ([]core.CardholderTotal, error)
	Transactions(ctx context.Context, userID string, r core.DateRange) ([]core.Transaction, error)
	Ping(ctx context.Context) error
}

// Importer ingests an uploaded statement. *services.ImportService implements it.
type Importer interface {
	Import(ctx context.Context, req services.ImportRequest, up services.Upload) (services.ImportResult, error)
}

type Options struct {
	Addr               string
	FrontendURL        string
	UploadDir          string
	MaxUploadBytes     int64
	RateLimitPerMinute int
	TrustedProxies     []string
}

type Server struct {
	http.Server
	store          Store
	importer       Importer
	logger         *log.Logger
	uploadDir      string
	maxUploadBytes int64

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

const maxJSONBodyBytes = 1 << 20

func NewServer(opts Options, store Store, importer Importer, logger *log.Logger) (*Server, error) {
	logger = logger.WithComponent(log.ComponentHTTP)

	detector, err := security.NewDetector(opts.TrustedProxies...)
	if err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}

	s := &Server{
		store:          store,
		importer:       importer,
		logger:         logger,
		uploadDir:      opts.UploadDir,
		maxUploadBytes: opts.MaxUploadBytes,
		detector:       detector,
		limiter:        ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		tracer:         trace.NewMiddleware(logger, detector.ExtractClientIP),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /expenses/upload-csv", s.handleUploadCSV)
	mux.HandleFunc("POST /creditcard/create", s.handleCreateCreditCard)
	mux.HandleFunc("POST /bank-account/create", s.handleCreateBankAccount)
	mux.HandleFunc("GET /users", s.handleUsers)
	mux.HandleFunc("GET /credit_cards", s.handleCreditCards)
	mux.HandleFunc("GET /banks", s.handleBankAccounts)
	mux.HandleFunc("GET /cardholder-amounts/{userId}", s.handleCardholderAmounts)
	mux.HandleFunc("GET /transactions/{userId}", s.handleTransactions)
	mux.HandleFunc("GET /dashboard/{userId}", s.handleDashboard)
	mux.HandleFunc("GET /supported-banks", handleSupportedBanks)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.chain(mux, opts.FrontendURL),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// chain wraps the router, outermost first: tracing, request logger,
// scan detection, security headers, CORS and rate limiting.
func (s *Server) chain(h http.Handler, frontendURL string) http.Handler {
	rejected := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ExtractClientIP(r))
		ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
	})

	h = s.limiter.Middleware(s.detector.ExtractClientIP, rejected)(h)
	h = security.CORS(frontendURL)(h)
	h = security.Headers(security.DefaultHeadersConfig())(h)
	h = s.flagSuspicious(h)
	h = log.RequestIDMiddleware(s.logger, func(r *http.Request) string {
		return trace.GetRequestID(r.Context())
	})(h)
	return s.tracer.Middleware(h)
}

func (s *Server) flagSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request",
				log.FieldPath, r.URL.Path,
				log.FieldUserAgent, r.Header.Get("User-Agent"))
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown stops background work and drains open connections.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type metricsResponse struct {
	Requests  trace.Metrics             `json:"requests"`
	RateLimit ratelimit.Metrics         `json:"rate_limit"`
	Security  security.DetectionMetrics `json:"security"`
}

// handleMetrics reports the middleware counters since process start.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(metricsResponse{
		Requests:  s.tracer.GetMetrics(),
		RateLimit: s.limiter.GetMetrics(),
		Security:  s.detector.GetMetrics(),
	}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", log.FieldError, err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("database unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
