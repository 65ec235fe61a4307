package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/linemk/orders-admin/internal/lib/api/respond"
	"github.com/linemk/orders-admin/internal/service"
)

type SetupResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// SetupOrdersTableHandler обрабатывает POST /api/admin/setup/orders-table
func SetupOrdersTableHandler(log *slog.Logger, setup service.SetupService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.SetupOrdersTableHandler"
		logger := log.With(slog.String("op", op))

		if err := setup.EnsureOrdersTable(r.Context()); err != nil {
			logger.Error("failed to create orders table", slog.Any("error", err))
			respond.Error(w, http.StatusInternalServerError, causeMessage(err))
			return
		}
		respond.JSON(w, http.StatusOK, SetupResponse{Success: true, Message: "Orders table created successfully"})
	}
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler обрабатывает GET /health
func HealthHandler(log *slog.Logger, db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			log.Warn("health check failed", slog.String("op", "handlers.HealthHandler"), slog.Any("error", err))
			respond.Error(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
