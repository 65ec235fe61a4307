package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/linemk/orders-admin/internal/app"
	"github.com/linemk/orders-admin/internal/config"
	"github.com/linemk/orders-admin/internal/events"
	"github.com/linemk/orders-admin/internal/lib/logger"
	"github.com/linemk/orders-admin/internal/service"
	"github.com/linemk/orders-admin/internal/storage"
	"github.com/pkg/errors"
)

const setupTimeout = 30 * time.Second

func main() {
	// загрузка конфигурации
	cfg := config.MustLoad()

	// инициализация логгера, зависит от настройки окружения
	log := logger.SetupLogger(cfg.Env)
	log.Info("starting orders-admin", slog.String("env", cfg.Env))

	// подключение к БД и (если задан) Redis
	application, err := app.NewApp(log, cfg)
	if err != nil {
		log.Error("failed to initialize app", slog.Any("error", err))
		panic(errors.Wrap(err, "failed to initialize app"))
	}
	defer func() {
		if err := application.Close(); err != nil {
			log.Error("failed to close resources", slog.Any("error", err))
		}
	}()

	orderRepo := storage.NewOrderRepository(application.DB)

	var directory storage.UserDirectory = storage.NewUserDirectory(application.DB, cfg.Directory.UsersTable)
	if application.Redis != nil {
		directory = storage.NewCachedDirectory(log, directory, application.Redis, cfg.Cache.TTL)
		log.Info("user cache enabled", slog.Duration("ttl", cfg.Cache.TTL))
	}

	hub := events.NewHub(log)

	orderService := service.NewOrderService(log, orderRepo, hub, cfg.Orders.LenientStatus)
	userService := service.NewUserService(log, directory, cfg.Directory.PageSize)
	setupService := service.NewSetupService(log, storage.NewSchemaBootstrapper(log, cfg.Database.DSN()), setupTimeout)

	// ошибка создания таблицы не роняет сервер: её можно повторить через API
	if !cfg.Bootstrap.SkipOnStartup {
		if err := setupService.EnsureOrdersTable(context.Background()); err != nil {
			log.Warn("orders table bootstrap failed on startup", slog.Any("error", err))
		}
	}

	router := app.NewRouter(log, app.AuthSettings{
		Secret:     cfg.Auth.JWTSecret,
		AdminRole:  cfg.Auth.AdminRole,
		CookieName: cfg.Auth.CookieName,
	}, app.Services{
		Orders: orderService,
		Users:  userService,
		Setup:  setupService,
		Stream: hub,
		Health: application.DB,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("starting server", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", slog.Any("error", err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	stopSign := <-stop
	log.Info("received shutdown signal", slog.String("signal", stopSign.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// websocket-соединения не закрываются Shutdown, закрываем их сами
	hub.Close()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown failed", slog.Any("error", err))
	}
	log.Info("server gracefully stopped")
}
