package http

//go:generate swag init -g router.go -d .,../../../pkg/authsdk -o ../../../api/provider --packageName provider

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/grantd/internal/provider/metrics"
	"github.com/aussiebroadwan/grantd/internal/provider/service"
	"github.com/aussiebroadwan/grantd/pkg/authsdk"
	"github.com/aussiebroadwan/grantd/pkg/httpx"
	"github.com/aussiebroadwan/grantd/pkg/jwtx"
	"github.com/aussiebroadwan/grantd/pkg/slogx"

	_ "github.com/aussiebroadwan/grantd/api/provider" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	// verifier checks session tokens. Nil disables client administration
	// and leaves the authorize endpoint without a logged in user.
	verifier     jwtx.Verifier
	trustProxy   bool
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	metrics      *metrics.Metrics
	readiness    map[string]Pinger
	limiter      *httpx.RateLimiter

	// RateLimits are the endpoint profiles. Set before ApplyRoutes.
	RateLimits httpx.RateLimits

	TokenService     *service.TokenService
	AuthorizeService *service.AuthorizeService
	ClientService    *service.ClientService
	BootstrapService *service.BootstrapService
}

func NewRouter(
	verifier jwtx.Verifier,
	trustProxy bool,
	buildVersion string,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		trustProxy:   trustProxy,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		metrics:      m,
		readiness:    make(map[string]Pinger),
		RateLimits:   httpx.DefaultRateLimits(),
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

// AddReadinessCheck makes /readyz depend on p. Call before ApplyRoutes.
func (r *Router) AddReadinessCheck(name string, p Pinger) {
	r.readiness[name] = p
}

func (r *Router) ApplyRoutes() {
	r.limiter = httpx.NewRateLimiter(r.RateLimits, r.trustProxy)

	r.registerOAuth2()
	r.registerClients()
	r.registerBootstrap()
	r.registerSystem()

	r.Mux.Handle("/swagger/",
		httpx.Chain(httpSwagger.Handler(),
			r.limiter.ByIP(r.RateLimits.Public),
		),
	)
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			grantd OAuth2 Authorization Server API
//	@version		0.1.0
//	@description	OAuth2 authorization server issuing opaque bearer tokens through the password, refresh_token and authorization_code grants, plus the implicit grant on the authorize endpoint.
//	@description
//	@description				Token, revocation and introspection requests authenticate the client with HTTP Basic.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/grantd
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Session JWT (HS256). Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerOAuth2() {
	authorizeHandler := &AuthorizeHandler{
		AuthorizeService: r.AuthorizeService,
		TrustProxy:       r.trustProxy,
		Metrics:          r.metrics,
	}
	r.Mux.Handle("GET /v1/oauth2/authorize",
		httpx.Chain(authorizeHandler,
			r.limiter.ByIP(r.RateLimits.Lenient),
			httpx.SessionMiddleware(r.verifier),
		),
	)
	r.Mux.Handle("POST /v1/oauth2/authorize",
		httpx.Chain(authorizeHandler,
			r.limiter.ByIPAndFormField(r.RateLimits.Moderate, "client_id"),
			httpx.SessionMiddleware(r.verifier),
		),
	)

	// Token, revoke and introspect are mounted for every method, the
	// service answers 405 itself. Limits are keyed on IP and client id.
	tokenHandler := &TokenHandler{TokenService: r.TokenService, TrustProxy: r.trustProxy, Metrics: r.metrics}
	r.Mux.Handle("/v1/oauth2/token",
		httpx.Chain(tokenHandler,
			r.limiter.ByIPAndClient(r.RateLimits.Strict),
		),
	)

	revokeHandler := &RevokeHandler{TokenService: r.TokenService, TrustProxy: r.trustProxy, Metrics: r.metrics}
	r.Mux.Handle("/v1/oauth2/revoke",
		httpx.Chain(revokeHandler,
			r.limiter.ByIPAndClient(r.RateLimits.Moderate),
		),
	)

	introspectHandler := &IntrospectHandler{TokenService: r.TokenService, TrustProxy: r.trustProxy, Metrics: r.metrics}
	r.Mux.Handle("/v1/oauth2/introspect",
		httpx.Chain(introspectHandler,
			r.limiter.ByIPAndClient(r.RateLimits.Moderate),
		),
	)
}

func (r *Router) registerClients() {
	if r.verifier == nil {
		r.logger.Warn("no session secret configured, client administration endpoints are disabled")
		return
	}

	h := &ClientsHandler{ClientService: r.ClientService}

	read := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireAnyScope(authsdk.ScopeClientsRead, authsdk.ScopeClientsWrite),
			r.limiter.ByUser(r.RateLimits.Moderate),
		)
	}
	write := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireAnyScope(authsdk.ScopeClientsWrite),
			r.limiter.ByUser(r.RateLimits.Moderate),
		)
	}

	r.Mux.Handle("POST /v1/clients", write(h.HandleCreate))
	r.Mux.Handle("GET /v1/clients", read(h.HandleList))
	r.Mux.Handle("GET /v1/clients/{id}", read(h.HandleGet))
	r.Mux.Handle("POST /v1/clients/{id}/secret", write(h.HandleRotateSecret))
	r.Mux.Handle("POST /v1/clients/{id}/revoke", write(h.HandleRevoke))
	r.Mux.Handle("POST /v1/clients/{id}/redirect-uris", write(h.HandleAddRedirectURI))
	r.Mux.Handle("DELETE /v1/clients/{id}/redirect-uris", write(h.HandleRemoveRedirectURI))
}

func (r *Router) registerBootstrap() {
	// POST /bootstrap - very strict rate limit by IP (one-time setup endpoint)
	bootstrapHandler := &BootstrapHandler{BootstrapService: r.BootstrapService}
	r.Mux.Handle("POST /v1/bootstrap",
		httpx.Chain(bootstrapHandler,
			r.limiter.ByIP(r.RateLimits.Strict),
		),
	)
}

func (r *Router) registerSystem() {
	// Probes are polled by orchestrators, so they get the lenient profile
	health := &healthHandler{started: r.startTime, version: r.buildVersion, deps: r.readiness}
	r.Mux.Handle("GET /livez",
		httpx.Chain(http.HandlerFunc(health.Live), r.limiter.ByIP(r.RateLimits.Lenient)),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(http.HandlerFunc(health.Ready), r.limiter.ByIP(r.RateLimits.Lenient)),
	)

	if r.metrics != nil {
		r.Mux.Handle("GET /metrics",
			httpx.Chain(r.metrics.Handler(),
				r.limiter.ByIP(r.RateLimits.Public),
			),
		)
	}
}
