package http

import (
	"log/slog"
	"time"

	"github.com/geocoder89/storejobs/internal/auth"
	"github.com/geocoder89/storejobs/internal/cache"
	"github.com/geocoder89/storejobs/internal/config"
	"github.com/geocoder89/storejobs/internal/domain/user"
	"github.com/geocoder89/storejobs/internal/http/handlers"
	"github.com/geocoder89/storejobs/internal/http/middlewares"
	"github.com/geocoder89/storejobs/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Deps is everything the API needs. Postgres and in-memory stores both satisfy
// the store interfaces.
type Deps struct {
	Log  *slog.Logger
	Cfg  config.Config
	JWT  *auth.Manager
	Prom *observability.Prom
	// Gatherer backs /metrics; nil leaves the endpoint out.
	Gatherer prometheus.Gatherer

	Users         handlers.UserStore
	RefreshTokens handlers.RefreshTokenStore
	Categories    handlers.CategoryReader
	Jobs          handlers.JobsStore
	Applications  handlers.ApplicationsStore
	Tasks         handlers.AdminTasksRepo

	ListCache cache.Cache
	Guard     cache.Guard

	ReadyChecks map[string]handlers.Pinger
}

func NewRouter(d Deps) *gin.Engine {
	if d.Cfg.Env != "dev" && d.Cfg.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	if d.Cfg.OTELEndpoint != "" {
		r.Use(otelgin.Middleware("storejobs-api"))
	}
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(d.Log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.Cfg.CORSAllowedOrigins))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}

	maxBody := d.Cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	r.Use(middlewares.MaxBodyBytes(maxBody))
	r.Use(middlewares.RequireJSON())

	// health
	h := handlers.NewHealthHandler(d.ReadyChecks)
	r.GET("/healthz", h.Healthz)
	r.GET("/health-check", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	// docs
	r.GET("/swagger", handlers.SwaggerUI)
	r.GET("/swagger/openapi.yaml", handlers.OpenAPISpec)

	authMW := middlewares.NewAuthMiddleware(d.JWT)

	authLimiter := middlewares.NewRateLimiter(10, time.Minute)
	writeLimiter := middlewares.NewRateLimiter(30, time.Minute)

	// auth
	authHandler := handlers.NewAuthHandler(d.Users, d.JWT, d.RefreshTokens, d.Cfg)
	authGroup := r.Group("/auth")
	authGroup.POST("/signup", authLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.SignUp)
	authGroup.POST("/login", authLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.Login)
	authGroup.POST("/refresh", authLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.Refresh)
	authGroup.POST("/logout", authHandler.Logout)
	authGroup.GET("/me", authMW.RequireAuth(), authHandler.Me)

	categoriesHandler := handlers.NewCategoriesHandler(d.Categories)
	r.GET("/categories", categoriesHandler.List)

	// jobs
	jobsHandler := handlers.NewJobsHandler(handlers.JobsHandlerDeps{
		Jobs:       d.Jobs,
		Categories: d.Categories,
		Applied:    d.Applications,
		Cache:      d.ListCache,
		CacheTTL:   d.Cfg.ListCacheTTL,
		Prom:       d.Prom,
	})

	public := r.Group("/", authMW.OptionalAuth())
	public.GET("/jobs", jobsHandler.List)
	public.GET("/jobs/:id", jobsHandler.GetByID)

	employers := r.Group("/",
		authMW.RequireAuth(),
		authMW.RequireRole(user.RoleEmployer, user.RoleAdmin),
	)
	employers.GET("/my-jobs", jobsHandler.ListMine)
	employers.POST("/jobs", writeLimiter.RateLimiterMiddleware(middlewares.KeyByUserOrIP), jobsHandler.Create)
	employers.PUT("/jobs/:id", jobsHandler.Update)
	employers.DELETE("/jobs/:id", jobsHandler.Delete)

	// applications
	applicationsHandler := handlers.NewApplicationsHandler(handlers.ApplicationsHandlerDeps{
		Applications: d.Applications,
		Jobs:         d.Jobs,
		Users:        d.Users,
		Guard:        d.Guard,
		GuardTTL:     d.Cfg.SubmitGuardTTL,
		Prom:         d.Prom,
	})

	signedIn := r.Group("/", authMW.RequireAuth())
	signedIn.GET("/apply", authMW.RequireRole(user.RoleJobSeeker), applicationsHandler.Form)
	signedIn.POST("/job-applications",
		writeLimiter.RateLimiterMiddleware(middlewares.KeyByUserOrIP),
		applicationsHandler.Submit,
	)
	signedIn.GET("/job-applications", applicationsHandler.List)
	signedIn.GET("/job-applications/:id", applicationsHandler.GetByID)
	signedIn.PUT("/job-applications/:id", applicationsHandler.Update)
	signedIn.DELETE("/job-applications/:id", applicationsHandler.Delete)

	// admin
	if d.Tasks != nil {
		adminTasks := handlers.NewAdminTasksHandler(d.Tasks)
		admin := r.Group("/admin", authMW.RequireAuth(), authMW.RequireRole(user.RoleAdmin))
		admin.GET("/tasks", adminTasks.List)
		admin.GET("/tasks/:id", adminTasks.GetByID)
		admin.POST("/tasks/:id/retry", adminTasks.Retry)
	}

	return r
}
