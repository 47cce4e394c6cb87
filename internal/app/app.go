package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"productivityTracker/internal/auth"
	"productivityTracker/internal/config"
	"productivityTracker/internal/handlers"
	"productivityTracker/internal/logger"
	"productivityTracker/internal/middleware"
	"productivityTracker/internal/migrations"
	"productivityTracker/internal/ratelimit"
	"productivityTracker/internal/repository/task/inmemory"
	"productivityTracker/internal/repository/task/postgres"
	"productivityTracker/internal/repository/task/sqlite"
	"productivityTracker/internal/service"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type App struct {
	config     *config.Config
	server     *http.Server
	router     *chi.Mux
	repository service.TaskRepository
	service    handlers.Service
	limiter    ratelimit.Limiter
	jwt        *auth.JWTManager
	shutdowns  []func() error // run in reverse order on shutdown
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func() error, 0),
	}
}

// Init builds every dependency. On error the already opened resources are released.
func (a *App) Init(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			a.closeAll()
		}
	}()

	if err := logger.Init(a.config.Logging.Development, a.config.Logging.Level); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	a.shutdowns = append(a.shutdowns, func() error {
		logger.Info("App: flushing logs")
		logger.Sync()
		return nil
	})

	if err := a.initRepository(ctx); err != nil {
		return err
	}
	if err := a.initLimiter(ctx); err != nil {
		return err
	}

	a.jwt, err = auth.NewJWTManager(auth.Config{
		Secret: a.config.Auth.Secret,
		Issuer: a.config.Auth.Issuer,
		TTL:    a.config.Auth.TTL,
	})
	if err != nil {
		return fmt.Errorf("initializing auth: %w", err)
	}

	a.service = service.NewTaskService(a.repository)
	a.router = a.routes(handlers.NewTaskHandler(a.service))

	var handler http.Handler = a.router
	if a.config.Telemetry.Enabled {
		handler = otelhttp.NewHandler(a.router, a.config.Telemetry.ServiceName)
	}

	a.server = &http.Server{
		Addr:         a.config.GetServerAddr(),
		Handler:      handler,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
	}

	logger.Info("App: initialized",
		zap.String("repository", a.config.Repository.Type),
		zap.String("rate_limit", a.limiterName()),
		zap.Bool("telemetry", a.config.Telemetry.Enabled))
	return nil
}

func (a *App) initRepository(ctx context.Context) error {
	repo, closeRepo, err := OpenRepository(ctx, a.config)
	if err != nil {
		return err
	}
	a.repository = repo
	a.shutdowns = append(a.shutdowns, closeRepo)
	return nil
}

// OpenRepository opens the task store selected by cfg.Repository.Type. SQL
// stores are migrated to the latest schema first.
func OpenRepository(ctx context.Context, cfg *config.Config) (service.TaskRepository, func() error, error) {
	switch cfg.Repository.Type {
	case "postgres":
		if err := migrations.Up(migrations.Postgres, cfg.Database.URL); err != nil {
			return nil, nil, fmt.Errorf("migrating postgres: %w", err)
		}
		store, err := postgres.New(ctx, cfg.Database.URL, postgres.PoolConfig{
			MaxConns:        int32(cfg.Database.MaxConnections),
			MinConns:        int32(cfg.Database.MinConnections),
			MaxConnIdleTime: cfg.Database.IdleTimeout,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		return store, func() error {
			logger.Info("App: closing postgres pool")
			store.Close()
			return nil
		}, nil

	case "sqlite":
		store, err := sqlite.New(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite: %w", err)
		}
		return store, func() error {
			logger.Info("App: closing sqlite database")
			return store.Close()
		}, nil

	default:
		return inmemory.NewTaskStorage(), func() error { return nil }, nil
	}
}

func (a *App) initLimiter(ctx context.Context) error {
	rl := a.config.RateLimit
	if !rl.Enabled {
		return nil
	}

	if rl.Backend != "redis" {
		a.limiter = ratelimit.NewMemory(rl.RPM, time.Minute)
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     rl.RedisAddr,
		Password: rl.RedisPassword,
		DB:       rl.RedisDB,
	})
	limiter := ratelimit.NewRedis(client, rl.KeyPrefix, rl.RPM, time.Minute)
	if err := limiter.Ping(ctx); err != nil {
		_ = client.Close()
		return fmt.Errorf("connecting to redis: %w", err)
	}
	a.limiter = limiter
	a.shutdowns = append(a.shutdowns, func() error {
		logger.Info("App: closing redis client")
		return client.Close()
	})
	return nil
}

func (a *App) routes(h *handlers.TaskHandler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: a.config.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:         300,
	}))
	r.Use(middleware.Timeout(a.config.Server.RequestTimeout))
	if a.limiter != nil {
		r.Use(middleware.RateLimit(a.limiter))
	}

	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Authenticate(a.jwt))

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", h.ListTasks)   // GET /api/tasks
			r.Post("/", h.CreateTask) // POST /api/tasks

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetTask)             // GET /api/tasks/{id}
				r.Put("/", h.UpdateTask)          // PUT /api/tasks/{id}
				r.Post("/notes", h.AppendNote)    // POST /api/tasks/{id}/notes
				r.Post("/status", h.UpdateStatus) // POST /api/tasks/{id}/status
			})
		})

		r.Get("/reports/tasks", h.GenerateReport) // GET /api/reports/tasks
	})

	return r
}

// Handler exposes the fully wired HTTP handler, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run serves until ctx is cancelled, then shuts the server down and releases
// every resource opened by Init.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("App: server started", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
		defer cancel()
		return a.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	logger.Info("App: shutting down")
	var errs []error
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http server shutdown: %w", err))
		}
	}
	if err := a.closeAll(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *App) closeAll() error {
	var errs []error
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		if err := a.shutdowns[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.shutdowns = nil
	return errors.Join(errs...)
}

func (a *App) limiterName() string {
	if a.limiter == nil {
		return "disabled"
	}
	return a.config.RateLimit.Backend
}
