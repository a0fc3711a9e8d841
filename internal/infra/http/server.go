// Package http serves the REST API over the shared state.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mlte-team/mlte-sub000/internal/config"
	"github.com/mlte-team/mlte-sub000/internal/domain"
	"github.com/mlte-team/mlte-sub000/internal/infra/ratelimit"
	"github.com/mlte-team/mlte-sub000/internal/infra/telemetry"
	"github.com/mlte-team/mlte-sub000/internal/state"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const requestIDHeader = "X-Request-ID"

type Server struct {
	cfg     config.Config
	state   *state.State
	r       *gin.Engine
	logger  *slog.Logger
	metrics *telemetry.Metrics

	gatherer prometheus.Gatherer

	rateLimiter         ratelimit.Limiter
	rateLimitRequests   int
	rateLimitWindow     time.Duration
	rateLimitFailClosed bool
}

type ServerDeps struct {
	// Gatherer backs /metrics; nil disables the route.
	Gatherer    prometheus.Gatherer
	RateLimiter ratelimit.Limiter
}

func NewServer(st *state.State, deps ServerDeps) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:      st.Config,
		state:    st,
		r:        r,
		logger:   st.Logger,
		metrics:  st.Metrics,
		gatherer: deps.Gatherer,
	}
	s.initRateLimit(deps.RateLimiter)
	s.middleware()
	s.routes()
	return s
}

func (s *Server) initRateLimit(override ratelimit.Limiter) {
	s.rateLimiter = override
	if s.rateLimiter == nil && s.cfg.RateLimitRequests > 0 {
		if s.cfg.RedisAddr != "" {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			limiter, err := ratelimit.NewRedisLimiter(ctx, ratelimit.RedisConfig{
				Addr:     s.cfg.RedisAddr,
				Password: s.cfg.RedisPassword,
				DB:       s.cfg.RedisDB,
			})
			cancel()
			if err == nil {
				s.rateLimiter = limiter
			} else {
				s.logger.Warn("redis rate limiter unavailable, using memory", "error", err)
			}
		}
		if s.rateLimiter == nil {
			s.rateLimiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{
				MaxKeys: s.cfg.RateLimitMaxKeys,
			})
		}
	}
	s.rateLimitRequests = s.cfg.RateLimitRequests
	s.rateLimitWindow = s.cfg.RateLimitWindow()
	s.rateLimitFailClosed = s.cfg.RateLimitFailClosed
}

func (s *Server) middleware() {
	s.r.Use(s.requestID())
	if s.cfg.OTelServiceName != "" {
		s.r.Use(otelgin.Middleware(s.cfg.OTelServiceName))
	}
	if s.metrics != nil {
		s.r.Use(s.observeRequests())
	}
	s.r.Use(s.cors())
}

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		start := time.Now()
		c.Next()
		s.logger.DebugContext(c.Request.Context(), "request",
			"request_id", id,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (s *Server) observeRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		s.metrics.HTTPRequestLatency.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// cors admits the configured origins, frontend included. A malformed
// origin list falls back to the frontend alone.
func (s *Server) cors() gin.HandlerFunc {
	conf := cors.Config{
		AllowOrigins:     s.cfg.Origins(),
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Authorization", "Content-Type", requestIDHeader},
		ExposeHeaders:    []string{requestIDHeader, "RateLimit-Limit", "RateLimit-Remaining", "RateLimit-Reset", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if err := conf.Validate(); err != nil {
		s.logger.Warn("ignoring ALLOWED_ORIGINS", "error", err)
		conf.AllowOrigins = conf.AllowOrigins[:1]
	}
	return cors.New(conf)
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "stores": s.state.BackendKinds()})
	})
	if s.gatherer != nil {
		s.r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	api := s.r.Group(apiPrefix(s.cfg.APIPrefix))
	api.POST("/token", s.handleToken)

	models := api.Group("/model")
	{
		models.GET("", s.guard(domain.ResourceModel, "", ""), s.handleListModels)
		models.POST("", s.guard(domain.ResourceModel, "", ""), s.handleCreateModel)
		models.GET("/:model_id", s.guard(domain.ResourceModel, "model_id", ""), s.handleReadModel)
		models.DELETE("/:model_id", s.guard(domain.ResourceModel, "model_id", ""), s.handleDeleteModel)

		model := models.Group("/:model_id", s.guard(domain.ResourceModel, "model_id", ""))
		model.GET("/version", s.handleListVersions)
		model.POST("/version", s.handleCreateVersion)
		model.GET("/version/:version_id", s.handleReadVersion)
		model.DELETE("/version/:version_id", s.handleDeleteVersion)
	}
	s.artifactRoutes(api.Group("/model/:model_id/artifact"))
	s.artifactRoutes(api.Group("/model/:model_id/version/:version_id/artifact"))
	api.POST("/model/:model_id/version/:version_id/artifact/:artifact_id/result/:test_case_id",
		s.guard(domain.ResourceModel, "model_id", domain.MethodPut), s.handleManualValidation)
	api.POST("/model/:model_id/version/:version_id/artifact/:artifact_id/run",
		s.guard(domain.ResourceModel, "model_id", domain.MethodPost), s.handleRunSuite)

	api.GET("/user/me", s.guardSelf(domain.MethodGet), s.handleReadSelf)
	api.GET("/user/me/models", s.guardSelf(domain.MethodGet), s.handleSelfModels)
	users := api.Group("/user")
	{
		users.GET("", s.guard(domain.ResourceUser, "", ""), s.handleListUsers)
		users.POST("", s.guard(domain.ResourceUser, "", ""), s.handleCreateUser)
		users.PUT("", s.authenticated(), s.handleEditUser)
		users.GET("/:username", s.guard(domain.ResourceUser, "username", ""), s.handleReadUser)
		users.DELETE("/:username", s.guard(domain.ResourceUser, "username", ""), s.handleDeleteUser)
	}
	api.GET("/users/details", s.guard(domain.ResourceUser, "", domain.MethodGet), s.handleListUserDetails)

	groups := api.Group("/group")
	{
		groups.GET("", s.guard(domain.ResourceGroup, "", ""), s.handleListGroups)
		groups.POST("", s.guard(domain.ResourceGroup, "", ""), s.handleCreateGroup)
		groups.PUT("", s.authenticated(), s.handleEditGroup)
		groups.GET("/:group_id", s.guard(domain.ResourceGroup, "group_id", ""), s.handleReadGroup)
		groups.DELETE("/:group_id", s.guard(domain.ResourceGroup, "group_id", ""), s.handleDeleteGroup)
	}
	api.GET("/groups/details", s.guard(domain.ResourceGroup, "", domain.MethodGet), s.handleListGroupDetails)
	api.GET("/groups/permissions", s.guard(domain.ResourceGroup, "", domain.MethodGet), s.handleListPermissions)

	catalog := api.Group("/catalog/:catalog_id/entry", s.guard(domain.ResourceCatalog, "catalog_id", ""))
	{
		catalog.GET("", s.handleListCatalogEntries)
		catalog.POST("", s.handleCreateCatalogEntry)
		catalog.PUT("", s.handleEditCatalogEntry)
		catalog.GET("/:entry_id", s.handleReadCatalogEntry)
		catalog.DELETE("/:entry_id", s.handleDeleteCatalogEntry)
	}
	api.GET("/catalogs", s.guard(domain.ResourceCatalog, "", domain.MethodGet), s.handleListCatalogs)
	api.GET("/catalogs/entry", s.guard(domain.ResourceCatalog, "", domain.MethodGet), s.handleListAllCatalogEntries)
	api.POST("/catalogs/entry/search", s.guard(domain.ResourceCatalog, "", domain.MethodGet), s.handleSearchCatalogEntries)

	lists := api.Group("/custom_list/:list_id/entry", s.guard(domain.ResourceCustomList, "list_id", ""))
	{
		lists.GET("", s.handleListCustomListEntries)
		lists.POST("", s.handleCreateCustomListEntry)
		lists.PUT("", s.handleEditCustomListEntry)
		lists.GET("/:entry_name", s.handleReadCustomListEntry)
		lists.DELETE("/:entry_name", s.handleDeleteCustomListEntry)
	}
	api.GET("/custom_list", s.guard(domain.ResourceCustomList, "", domain.MethodGet), s.handleListCustomLists)

	s.r.NoRoute(func(c *gin.Context) {
		writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
}

// artifactRoutes registers the artifact collection under g. Search carries
// its query in a POST body but only reads.
func (s *Server) artifactRoutes(g *gin.RouterGroup) {
	g.GET("", s.guard(domain.ResourceModel, "model_id", ""), s.handleListArtifacts)
	g.POST("", s.guard(domain.ResourceModel, "model_id", ""), s.handleWriteArtifact(false))
	g.PUT("", s.guard(domain.ResourceModel, "model_id", ""), s.handleWriteArtifact(true))
	g.POST("/search", s.guard(domain.ResourceModel, "model_id", domain.MethodGet), s.handleSearchArtifacts)
	g.GET("/:artifact_id", s.guard(domain.ResourceModel, "model_id", ""), s.handleReadArtifact)
	g.DELETE("/:artifact_id", s.guard(domain.ResourceModel, "model_id", ""), s.handleDeleteArtifact)
}

func apiPrefix(prefix string) string {
	prefix = "/" + strings.Trim(prefix, "/")
	if prefix == "/" {
		return ""
	}
	return prefix
}

func (s *Server) Handler() http.Handler { return s.r }

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr(),
		Handler:           s.r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("serving", "addr", srv.Addr, "prefix", apiPrefix(s.cfg.APIPrefix))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
