package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "stockflow/docs"
	"stockflow/internal/caching"
	"stockflow/internal/config"
	"stockflow/internal/handlers"
	"stockflow/internal/jobs"
	"stockflow/internal/metrics"
	"stockflow/internal/middleware"
	"stockflow/internal/models"
	"stockflow/internal/repositories"
	"stockflow/internal/services"
	"stockflow/internal/session"
	"stockflow/internal/tenancy"
	"stockflow/pkg/database"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and background jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	plans, err := config.LoadPlans(cfg.Tenancy.PlansFile)
	if err != nil {
		return err
	}

	pool, err := database.NewPool(ctx, cfg.Database.URL, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	rdb := caching.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	defer rdb.Close()

	m := metrics.New()

	tenantRepo := repositories.NewTenantRepo(pool)
	userRepo := repositories.NewUserRepo(pool)
	productRepo := repositories.NewProductRepo(pool)

	tenantCache, err := caching.NewTenantCache(tenantRepo, 0, cfg.Tenancy.CacheTTL)
	if err != nil {
		return err
	}
	defer tenantCache.Close()

	tokens, err := services.NewTokenProvider(services.TokenProviderConfig{
		Secret:           cfg.JWT.Secret,
		Issuer:           cfg.JWT.Issuer,
		Audience:         cfg.JWT.Audience,
		TTL:              cfg.JWT.TTL,
		AllowShortSecret: cfg.JWT.AllowShortSecret,
	}, logger, services.WithTokenMetrics(m))
	if err != nil {
		return err
	}

	guard := services.NewSubscriptionGuard(tenantCache, userRepo, productRepo, plans, m, logger)
	authSvc := services.NewAuthService(userRepo, tokens, caching.NewRateLimiter(rdb, appName), logger)
	userSvc := services.NewUserService(userRepo, tenantCache, guard)
	productSvc := services.NewProductService(productRepo, tenantCache, guard)

	sessions := session.NewManager(session.NewRedisStore(rdb), session.Config{
		CookieName: cfg.Session.CookieName,
		TTL:        cfg.Session.TTL,
		Secure:     cfg.Session.Secure,
	}, logger)

	resolver := tenancy.NewResolver(
		tenancy.WithHeaderName(cfg.Tenancy.HeaderName),
		tenancy.WithQueryParam(cfg.Tenancy.QueryParam),
		tenancy.WithSessionSource(session.TenantFromRequest),
		tenancy.WithObserver(func(s tenancy.Source) { m.ObserveResolution(string(s)) }),
	)
	chain := middleware.NewFilterChain(tokens, resolver, guard, m, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(logger))
	e.Use(sessions.Middleware())
	e.Use(chain.Middleware())

	authHandlers := handlers.NewAuthHandlers(authSvc, sessions, logger)
	userHandlers := handlers.NewUserHandlers(userSvc)
	productHandlers := handlers.NewProductHandlers(productSvc)
	subscriptionHandlers := handlers.NewSubscriptionHandlers(guard)
	healthHandlers := handlers.NewHealthHandlers(pool, rdb)

	// Public
	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(m.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)
	e.GET(middleware.LoginPath, handlers.LoginPage)
	e.POST(middleware.LoginPath, authHandlers.FormLogin)
	e.POST("/logout", authHandlers.Logout)
	e.GET(middleware.TrialExpiredPath, handlers.TrialExpiredPage)
	e.GET(middleware.AccessDeniedPath, handlers.AccessDeniedPage)
	e.GET(middleware.ErrorPath, handlers.ErrorPage)

	// Browser
	e.GET("/", handlers.Dashboard)

	// API
	api := e.Group("/api", middleware.Audit(logger))
	api.POST("/auth/login", authHandlers.Login)
	api.POST("/auth/refresh", authHandlers.Refresh)
	api.POST("/users", userHandlers.CreateUser, middleware.RequireRole(models.RoleAdmin))
	api.POST("/products", productHandlers.CreateProduct, middleware.RequireRole(models.RoleAdmin, models.RoleUser))
	api.GET("/subscription/usage", subscriptionHandlers.GetUsage)

	scheduler, err := jobs.NewJobScheduler(tenantRepo, tenantCache, guard, cfg.Tenancy.CacheRefresh, logger)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Stop(); err != nil {
			logger.Error("failed to stop scheduler", "error", err)
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.Port)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("stockflow server starting", "version", version, "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down server")
		return e.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
