package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/isuryanarayanan/observable-services/internal/account/service"
	"github.com/isuryanarayanan/observable-services/internal/account/store"
	"github.com/isuryanarayanan/observable-services/pkg/httpx"
	"github.com/isuryanarayanan/observable-services/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	jwtSecret    []byte
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store          store.Store
	GatewayService *service.GatewayService
	UserService    *service.UserService
}

func NewRouter(jwtSecret []byte, buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		jwtSecret:    jwtSecret,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerOTPFlows()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerOTPFlows() {
	verifyEmail := &VerifyEmailHandler{
		Gateway:     r.GatewayService,
		UserService: r.UserService,
	}

	// POST /v1/verify-email - authenticated; strict rate limit by user to
	// stop code brute forcing.
	r.Mux.Handle("POST /v1/verify-email",
		httpx.Chain(verifyEmail,
			httpx.AuthnMiddleware(r.jwtSecret),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)

	forgotPassword := &ForgotPasswordHandler{
		Gateway:     r.GatewayService,
		UserService: r.UserService,
	}

	// POST /v1/forgot-password - public endpoint; strict rate limit by IP.
	r.Mux.Handle("POST /v1/forgot-password",
		httpx.Chain(forgotPassword,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient limits (monitoring may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
