package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"qtro-isp/config"
	"qtro-isp/database"
	routes "qtro-isp/internal/app/http"
	"qtro-isp/internal/infra/mpesa"
	"qtro-isp/internal/logging"
	"qtro-isp/internal/usecase/adminauth"
	"qtro-isp/internal/usecase/payments"
	"qtro-isp/internal/usecase/payouts"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Bool("migrate", false, "Run migrations before serving")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadEnv()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.IsProduction())
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	if !cfg.DotEnvLoaded {
		logger.Info("no .env file found, using process environment")
	}
	for _, w := range cfg.Warnings {
		logger.Warn("config", zap.String("detail", w))
	}

	db, err := database.Open(cfg.DBURL, debugSQL)
	if err != nil {
		return err
	}
	if migrate, _ := cmd.Flags().GetBool("migrate"); migrate {
		if err := database.Migrate(db); err != nil {
			return err
		}
		logger.Info("database migrated")
	}

	mpesaOpts := []mpesa.Option{mpesa.WithLogger(logger)}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			// the in-memory cache still works; each replica just fetches its own token
			logger.Warn("redis unavailable, caching gateway token in memory", zap.Error(err))
		} else {
			mpesaOpts = append(mpesaOpts, mpesa.WithTokenCache(mpesa.NewRedisTokenCache(rdb, logger)))
			logger.Info("gateway token cache", zap.String("backend", "redis"), zap.String("addr", cfg.RedisAddr))
		}
	}
	gateway := mpesa.NewClient(mpesa.Config{
		Environment:    cfg.Mpesa.Environment,
		ConsumerKey:    cfg.Mpesa.ConsumerKey,
		ConsumerSecret: cfg.Mpesa.ConsumerSecret,
		ShortCode:      cfg.Mpesa.ShortCode,
		Passkey:        cfg.Mpesa.Passkey,
		CallbackURL:    cfg.Mpesa.CallbackURL,
	}, mpesaOpts...)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), logging.RequestLogger(logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(cfg.CORSOrigin, ","),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: cfg.CORSOrigin != "*",
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, routes.Deps{
		DB:        db,
		Config:    cfg,
		Logger:    logger,
		Payments:  payments.NewService(db, gateway, logger),
		Payouts:   payouts.NewService(db, logger),
		AdminAuth: adminauth.NewService(db, cfg.AdminSessionTTL, logger),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("port", cfg.Port),
			zap.String("environment", cfg.Env),
			zap.String("mpesa_environment", cfg.Mpesa.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	logger.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
		return err
	}
	logger.Info("server stopped")
	return nil
}
