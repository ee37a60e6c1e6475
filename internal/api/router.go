package api

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Goodness5/Vortexis-Backend/internal/handlers"
	"github.com/Goodness5/Vortexis-Backend/internal/middleware"
)

const defaultMetricsEndpoint = "/metrics"

// NewRouter builds the Gin engine, wires middleware and registers every route
// under /api on top of svc.
func NewRouter(deps Dependencies, svc *Services) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if svc == nil {
		var err error
		if svc, err = NewServices(deps); err != nil {
			return nil, err
		}
	}
	cfg := deps.Config

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(allowedOrigins(cfg.Server.FrontendURL)...))

	r.GET("/health", handlers.Health(deps.DB))

	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := strings.TrimSpace(cfg.Monitoring.Prometheus.Endpoint)
		if endpoint == "" {
			endpoint = defaultMetricsEndpoint
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	// Credential endpoints are throttled per client and route.
	limited := []gin.HandlerFunc{}
	if cfg.RateLimit.Enabled {
		limited = append(limited, middleware.RateLimit(deps.Cache, cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	public := r.Group("/api")
	protected := r.Group("/api")
	protected.Use(middleware.Auth(deps.JWT))

	registerAuthRoutes(public.Group("/auth", limited...), handlers.NewAuthHandler(svc.Accounts, svc.Social))
	registerUserRoutes(protected, handlers.NewUserHandler(svc.Accounts))
	registerOrganizationRoutes(protected, handlers.NewOrganizationHandler(svc.Organizations))
	registerHackathonRoutes(protected, handlers.NewHackathonHandler(svc.Hackathons, svc.Teams, svc.Conversations))
	registerTeamRoutes(protected, handlers.NewTeamHandler(handlers.TeamServices{
		Teams:         svc.Teams,
		Invitations:   svc.Invitations,
		Membership:    svc.Membership,
		JoinRequests:  svc.JoinRequests,
		Conversations: svc.Conversations,
	}))
	registerInvitationRoutes(protected, handlers.NewInvitationHandler(svc.Invitations))
	registerConversationRoutes(protected, handlers.NewConversationHandler(svc.Conversations))
	registerNotificationRoutes(protected, handlers.NewNotificationHandler(svc.Notifications))

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}

func allowedOrigins(frontendURL string) []string {
	origin := strings.TrimRight(strings.TrimSpace(frontendURL), "/")
	if origin == "" {
		return nil
	}
	return []string{origin}
}
