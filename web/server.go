package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/justinas/alice"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"matchday-service/config"
	"matchday-service/pkg/business"
	"matchday-service/pkg/common"
)

// Pinger 健康检查依赖
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server HTTP 服务
type Server struct {
	config     *config.Config
	logger     common.Logger
	matches    business.MatchService
	catalog    business.CatalogService
	health     Pinger
	hub        *Hub
	auth       Authorizer
	registry   *prometheus.Registry
	httpServer *http.Server
}

// Dependencies 构建 Server 需要的服务
type Dependencies struct {
	Matches  business.MatchService
	Catalog  business.CatalogService
	Health   Pinger
	Hub      *Hub
	Auth     Authorizer
	Registry *prometheus.Registry
}

// NewServer 创建 HTTP 服务
func NewServer(cfg *config.Config, logger common.Logger, deps Dependencies) *Server {
	registry := deps.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	auth := deps.Auth
	if auth == nil {
		auth = NewTokenAuthorizer(cfg.AdminToken)
	}

	s := &Server{
		config:   cfg,
		logger:   logger,
		matches:  deps.Matches,
		catalog:  deps.Catalog,
		health:   deps.Health,
		hub:      deps.Hub,
		auth:     auth,
		registry: registry,
	}

	s.httpServer = &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      s.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Routes 构建路由, 只能调用一次 (指标在这里注册)
func (s *Server) Routes() http.Handler {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, common.ErrNotFound)
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.respondJSON(w, http.StatusMethodNotAllowed, map[string]interface{}{
			"success": false,
			"error":   "method not allowed",
		})
	})

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	// 公开接口
	api.HandleFunc("/matches", s.handleListMatches).Methods(http.MethodGet)
	api.HandleFunc("/matches/{id}", s.handleGetMatch).Methods(http.MethodGet)
	api.HandleFunc("/matches/{id}/clock", s.handleGetClock).Methods(http.MethodGet)
	api.HandleFunc("/leagues", s.handleListLeagues).Methods(http.MethodGet)
	api.HandleFunc("/leagues/{id}", s.handleGetLeague).Methods(http.MethodGet)
	api.HandleFunc("/teams", s.handleListTeams).Methods(http.MethodGet)
	api.HandleFunc("/teams/{id}", s.handleGetTeam).Methods(http.MethodGet)

	// 管理接口
	protected := alice.New(s.requireAdmin)
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Handle("/matches", protected.ThenFunc(s.handleCreateMatch)).Methods(http.MethodPost)
	admin.Handle("/matches/{id}", protected.ThenFunc(s.handleUpdateMatch)).Methods(http.MethodPut)
	admin.Handle("/matches/{id}", protected.ThenFunc(s.handleDeleteMatch)).Methods(http.MethodDelete)
	admin.Handle("/matches/{id}/actions/{action}", protected.ThenFunc(s.handleMatchAction)).Methods(http.MethodPost)
	admin.Handle("/leagues", protected.ThenFunc(s.handleCreateLeague)).Methods(http.MethodPost)
	admin.Handle("/leagues/{id}", protected.ThenFunc(s.handleUpdateLeague)).Methods(http.MethodPut)
	admin.Handle("/leagues/{id}", protected.ThenFunc(s.handleDeleteLeague)).Methods(http.MethodDelete)
	admin.Handle("/teams", protected.ThenFunc(s.handleCreateTeam)).Methods(http.MethodPost)
	admin.Handle("/teams/{id}", protected.ThenFunc(s.handleUpdateTeam)).Methods(http.MethodPut)
	admin.Handle("/teams/{id}", protected.ThenFunc(s.handleDeleteTeam)).Methods(http.MethodDelete)

	if s.hub != nil {
		router.HandleFunc("/ws", s.hub.ServeWS)
	}
	router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: s.config.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})

	router.Use(s.metrics())

	standard := alice.New(s.recoverPanic, c.Handler, s.logRequest)
	return standard.Then(router)
}

// Start 启动服务, 正常关闭时返回 nil
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 优雅关闭
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// handleHealth 健康检查
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	resp := map[string]interface{}{"time": time.Now().Unix()}

	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health.Ping(ctx); err != nil {
			s.logger.Error("Health check failed: %v", err)
			status, code = "degraded", http.StatusServiceUnavailable
			resp["storage"] = "unreachable"
		}
	}
	if s.hub != nil {
		resp["ws_clients"] = s.hub.ClientCount()
	}

	resp["status"] = status
	s.respondJSON(w, code, resp)
}
