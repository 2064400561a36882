package main

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

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"storybook-server/internal/catalog"
	"storybook-server/internal/config"
	"storybook-server/internal/generator"
	"storybook-server/internal/handler"
	"storybook-server/internal/logger"
	"storybook-server/internal/messaging"
	"storybook-server/internal/middleware"
	"storybook-server/internal/realtime"
	"storybook-server/internal/repository"
	"storybook-server/internal/scene"
	"storybook-server/internal/store"
)

func main() {
	// 1. Конфигурация
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Логгер
	log, err := logger.New(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)
	log.Info("Starting storybook server",
		zap.String("env", cfg.AppEnv),
		zap.String("generation_mode", cfg.Generation.Mode),
		zap.Bool("ai_enabled", cfg.UseAI()),
		zap.String("storage_driver", cfg.Storage.Driver))

	if err := run(cfg, log); err != nil {
		log.Error("Server stopped with error", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
	log.Info("Server exited")
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Каталог персонажей
	cat := catalog.NewBuiltin()
	if cfg.Catalog.File != "" {
		if err := cat.ReloadFile(cfg.Catalog.File); err != nil {
			return fmt.Errorf("failed to load catalog file: %w", err)
		}
		log.Info("Catalog loaded from file", zap.String("path", cfg.Catalog.File), zap.Int("characters", len(cat.List())))
	}

	// 4. Хранилище библиотеки
	setupCtx, setupCancel := context.WithTimeout(ctx, time.Minute)
	defer setupCancel()
	repo, err := repository.Open(setupCtx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open library storage: %w", err)
	}
	defer repo.Close()

	// 5. Состояние сессии и библиотеки
	st := store.New(setupCtx, repo, log, store.Options{SeedDemo: cfg.Storage.SeedDemo})
	defer st.Close()

	// 6. Генератор историй
	gen, err := generator.FromConfig(setupCtx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create story generator: %w", err)
	}

	// 7. Рассылка снимков по WebSocket
	hub := realtime.NewHub(log)
	unsubscribeHub := st.Subscribe(hub.Publish)
	defer unsubscribeHub()

	// 8. События в RabbitMQ (необязательно)
	var notifier *messaging.Notifier
	if cfg.RabbitMQ.URL != "" {
		pub, err := messaging.DialRabbitMQ(setupCtx, cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, log)
		if err != nil {
			return err
		}
		defer pub.Close()
		notifier = messaging.NewNotifier(pub, st.Snapshot(), log)
		unsubscribeNotifier := st.Subscribe(notifier.Observe)
		defer unsubscribeNotifier()
	} else {
		log.Info("RABBITMQ_URL is empty, event publishing disabled")
	}

	// 9. HTTP
	router := newRouter(cfg, log)
	ws := realtime.NewHandler(hub, cfg.HTTP.AllowedOrigins, log)
	h := handler.NewStoryHandler(st, cat, gen, scene.Default, http.HandlerFunc(ws.ServeWS), log)
	h.RegisterRoutes(router, handler.NewGenerateRateLimiter(cfg.HTTP.GenerateRateLimit, log))
	if cfg.UseAI() && cfg.ImageGen.Provider == "sana" && strings.HasPrefix(cfg.ImageGen.PublicBaseURL, "/") {
		router.Static(cfg.ImageGen.PublicBaseURL, cfg.ImageGen.SavePath)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// 10. Запуск и плавное завершение
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	if notifier != nil {
		g.Go(func() error {
			notifier.Run(gctx)
			return nil
		})
	}
	if cfg.Catalog.File != "" && cfg.Catalog.Watch {
		g.Go(func() error {
			if err := cat.Watch(gctx, cfg.Catalog.File, log); err != nil {
				// Без наблюдения каталог продолжает работать
				log.Warn("Catalog watcher stopped", zap.Error(err))
			}
			return nil
		})
	}
	g.Go(func() error {
		log.Info("Starting HTTP server", zap.String("port", cfg.HTTP.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server listen error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server forced to shutdown", zap.Error(err))
		}
		return nil
	})

	return g.Wait()
}

func newRouter(cfg *config.Config, log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if cfg.AppEnv == "development" {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.RedirectTrailingSlash = true
	router.Use(middleware.RequestID())
	router.Use(middleware.ZapLogger(log))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.HTTP.AllowedOrigins) == 0 || cfg.HTTP.AllowedOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.HTTP.AllowedOrigins
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Регистрирует /metrics на том же роутере
	p := ginprometheus.NewPrometheus("gin")
	p.Use(router)
	return router
}
