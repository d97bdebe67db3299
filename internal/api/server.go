package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"minischeduler/internal/cache"
	"minischeduler/internal/config"
	"minischeduler/internal/database"
	"minischeduler/internal/handlers"
	"minischeduler/internal/logger"
	"minischeduler/internal/messaging"
	"minischeduler/internal/metrics"
	"minischeduler/internal/middleware"
	"minischeduler/internal/repository"
	"minischeduler/internal/repository/memory"
	"minischeduler/internal/search"
	"minischeduler/internal/service"
)

// Server wires storage, optional collaborators and the HTTP router
type Server struct {
	router   *gin.Engine
	config   *config.Config
	db       *database.DB
	nats     *messaging.NATSClient
	valkey   *cache.ValkeyClient
	metrics  *metrics.Metrics
	services *service.Services
}

// NewServer connects the configured backends and builds the router
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	gin.SetMode(cfg.GinMode)
	log := logger.Get()

	s := &Server{config: cfg}

	backend, err := s.openBackend(ctx)
	if err != nil {
		return nil, err
	}

	deps := service.Dependencies{}
	if cfg.MetricsEnabled {
		s.metrics = metrics.New()
		deps.Metrics = s.metrics
		if s.db != nil {
			s.metrics.WatchDB(s.db.DB)
		}
	}

	if cfg.NATS.Enabled {
		nc, err := messaging.NewNATSClient(cfg.NATS)
		if err != nil {
			s.Cleanup()
			return nil, fmt.Errorf("connect to NATS: %w", err)
		}
		s.nats = nc
		deps.Publisher = nc
	}

	if cfg.Valkey.Enabled {
		vc, err := cache.NewValkeyClient(cfg.Valkey)
		if err != nil {
			log.Warn("Valkey unavailable, running without cache", "error", err, "addr", cfg.Valkey.Addr)
		} else {
			s.valkey = vc
			deps.Auth = vc
			deps.Summaries = vc
		}
	}

	if cfg.Elasticsearch.Enabled {
		es, err := search.NewElasticsearchClient(cfg.Elasticsearch)
		if err != nil {
			log.Warn("Elasticsearch unavailable, keyword search falls back to the store match", "error", err, "url", cfg.Elasticsearch.URL)
		} else {
			deps.Index = es
		}
	}

	s.services = service.NewServices(backend, deps, service.Settings{
		Location:     cfg.Location(),
		CountRefused: cfg.CountRefused(),
	})

	s.router = gin.New()
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.CORS())
	s.router.Use(middleware.Logger())
	s.router.Use(middleware.Timeout(cfg.RequestTimeout))
	if s.metrics != nil {
		s.router.Use(middleware.Metrics(s.metrics))
	}
	s.setupRoutes()

	log.Info("Server initialized",
		"storage", cfg.StorageDriver,
		"monthly_rule", cfg.MonthlyRule,
		"timezone", cfg.ScheduleTimeZone,
		"nats", s.nats != nil,
		"valkey", s.valkey != nil,
		"search", deps.Index != nil)
	return s, nil
}

func (s *Server) openBackend(ctx context.Context) (service.Backend, error) {
	switch s.config.StorageDriver {
	case config.StorageDriverMemory:
		store := memory.NewStore()
		return service.Backend{
			Users:        store,
			Ledger:       store,
			Reservations: store,
			Events:       store.Events(),
			Transactor:   store,
		}, nil

	case config.StorageDriverPostgres:
		db, err := database.Connect(ctx, s.config.Database)
		if err != nil {
			return service.Backend{}, fmt.Errorf("connect to database: %w", err)
		}
		if err := db.RunMigrations(ctx); err != nil {
			_ = db.Close()
			return service.Backend{}, fmt.Errorf("run migrations: %w", err)
		}
		s.db = db

		repos := repository.NewRepositories(db)
		return service.Backend{
			Users:        repos.Users,
			Ledger:       repos.Users,
			Reservations: repos.Reservations,
			Events:       repos.Events,
			Transactor:   repos.Transactor,
		}, nil
	}
	return service.Backend{}, fmt.Errorf("unknown storage driver %q", s.config.StorageDriver)
}

func (s *Server) setupRoutes() {
	handlers.NewHandlers(s.services).Routes(s.router)

	s.router.GET("/health", s.healthCheck)
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	body := gin.H{
		"status":  "ok",
		"service": "minischeduler-api",
		"storage": s.config.StorageDriver,
	}
	if s.db == nil {
		c.JSON(http.StatusOK, body)
		return
	}

	check := s.db.Health(c.Request.Context())
	body["database"] = check
	if !check.Healthy() {
		body["status"] = "degraded"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, body)
}

// GetRouter returns the router for tests and custom listeners
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Services exposes the workflow services to in-process tools
func (s *Server) Services() *service.Services {
	return s.services
}

// Cleanup closes backend connections
func (s *Server) Cleanup() {
	log := logger.Get()
	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			log.Error("Error closing NATS connection", "error", err)
		}
	}
	if s.valkey != nil {
		if err := s.valkey.Close(); err != nil {
			log.Error("Error closing Valkey connection", "error", err)
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			log.Error("Error closing database connection", "error", err)
		}
	}
}
