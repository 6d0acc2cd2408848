package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"localbiz/docs"
	"localbiz/internal/auth"
	"localbiz/internal/cache"
	"localbiz/internal/config"
	"localbiz/internal/db"
	"localbiz/internal/handler"
	"localbiz/internal/logger"
	"localbiz/internal/repository"
	"localbiz/internal/router"
	"localbiz/internal/service"
)

const shutdownTimeout = 10 * time.Second

// @title LocalBizConnect API
// @version 1.0
// @description Local service marketplace: providers, bookable services, shop products, bookings and orders.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	app := &cli.App{
		Name:  "localbiz",
		Usage: "LocalBizConnect marketplace API",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Action: serve,
			},
			{
				Name:  "migrate",
				Usage: "create or update the database schema",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "reset", Usage: "drop every table first"},
				},
				Action: migrate,
			},
			{
				Name:  "create-admin",
				Usage: "create an administrator account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Value: "Administrator"},
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"ADMIN_PASSWORD"}},
				},
				Action: createAdmin,
			},
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type deps struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
	cache  *cache.Client
}

func bootstrap() (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, err
	}
	gormDB, err := db.NewMySQL(cfg)
	if err != nil {
		return nil, err
	}
	return &deps{
		cfg:    cfg,
		logger: log,
		db:     gormDB,
		cache:  cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB),
	}, nil
}

func (a *deps) close() {
	if err := a.cache.Close(); err != nil {
		a.logger.Warn("close redis", zap.Error(err))
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.logger.Sync()
}

func (a *deps) authService() service.AuthService {
	return service.NewAuthService(
		repository.NewUserRepository(a.db),
		auth.NewJWTService(a.cfg.JWTSecret),
		auth.NewTokenStore(a.cache),
		a.cfg.AccessTokenTTL,
		a.cfg.RefreshTokenTTL,
		a.logger,
	)
}

func serve(c *cli.Context) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	if err := db.AutoMigrate(a.db); err != nil {
		return err
	}
	if err := a.cache.Ping(c.Context); err != nil {
		a.logger.Warn("redis unavailable, caching and token revocation degraded", zap.Error(err))
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(a.db)
	categoryRepo := repository.NewCategoryRepository(a.db)
	providerRepo := repository.NewProviderRepository(a.db)
	serviceRepo := repository.NewServiceRepository(a.db)
	productRepo := repository.NewProductRepository(a.db)
	bookingRepo := repository.NewBookingRepository(a.db)
	orderRepo := repository.NewOrderRepository(a.db)

	// Initialize auth components
	jwtService := auth.NewJWTService(a.cfg.JWTSecret)
	tokenStore := auth.NewTokenStore(a.cache)

	// Initialize services
	authService := service.NewAuthService(userRepo, jwtService, tokenStore, a.cfg.AccessTokenTTL, a.cfg.RefreshTokenTTL, a.logger)
	userService := service.NewUserService(userRepo, a.logger)
	catalogService := service.NewCatalogService(categoryRepo, providerRepo, serviceRepo, productRepo, a.cache, a.logger)
	bookingService := service.NewBookingService(bookingRepo, providerRepo, a.cfg.AllowPastBookings, a.logger)
	orderService := service.NewOrderService(orderRepo, a.logger)

	if a.cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = a.cfg.SwaggerHost
	}

	e := echo.New()
	router.Register(e, a.cfg, a.logger, jwtService, tokenStore, router.Handlers{
		Auth:     handler.NewAuthHandler(authService),
		User:     handler.NewUserHandler(userService),
		Category: handler.NewCategoryHandler(catalogService),
		Provider: handler.NewProviderHandler(catalogService),
		Service:  handler.NewServiceHandler(catalogService),
		Product:  handler.NewProductHandler(catalogService),
		Booking:  handler.NewBookingHandler(bookingService),
		Order:    handler.NewOrderHandler(orderService),
	})

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := ":" + a.cfg.ServerPort
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server starting", zap.String("addr", addr), zap.String("env", a.cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server start: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	a.logger.Info("server exited cleanly")
	return nil
}

func migrate(c *cli.Context) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	if c.Bool("reset") {
		a.logger.Warn("dropping all tables")
		if err := db.DropAll(a.db); err != nil {
			return err
		}
	}
	if err := db.AutoMigrate(a.db); err != nil {
		return err
	}
	a.logger.Info("schema migrated")
	return nil
}

func createAdmin(c *cli.Context) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	user, err := a.authService().CreateAdmin(c.Context, c.String("name"), c.String("email"), c.String("password"))
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	a.logger.Info("admin created", zap.String("user_id", user.ID.String()), zap.String("email", user.Email))
	return nil
}
