package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/linemk/orders-admin/internal/domain/models"
	"github.com/linemk/orders-admin/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/orders-admin/internal/lib/api/respond"
	"github.com/linemk/orders-admin/internal/service"
	"github.com/linemk/orders-admin/internal/storage"
	"github.com/pkg/errors"
)

type UsersResponse struct {
	Users      []*models.User `json:"users"`
	NextCursor string         `json:"next_cursor,omitempty"`
	HasMore    *bool          `json:"has_more,omitempty"`
}

type UserResponse struct {
	User *models.User `json:"user"`
}

type MeResponse struct {
	User models.Principal `json:"user"`
}

// ListUsersHandler обрабатывает GET /api/admin/users.
// Без параметров отдаёт весь каталог, с ?limit или ?cursor - одну страницу.
func ListUsersHandler(log *slog.Logger, users service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListUsersHandler"
		logger := log.With(slog.String("op", op))

		q := r.URL.Query()
		if !q.Has("limit") && !q.Has("cursor") {
			all, err := users.ListAll(r.Context())
			if err != nil {
				logger.Error("failed to list users", slog.Any("error", err))
				respond.Error(w, http.StatusInternalServerError, "Failed to fetch users")
				return
			}
			respond.JSON(w, http.StatusOK, UsersResponse{Users: all})
			return
		}

		limit := 0
		if raw := q.Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				respond.Error(w, http.StatusBadRequest, "Invalid limit")
				return
			}
			limit = n
		}

		page, err := users.ListPage(r.Context(), q.Get("cursor"), limit)
		if err != nil {
			if errors.Is(err, storage.ErrInvalidCursor) {
				respond.Error(w, http.StatusBadRequest, "Invalid cursor")
				return
			}
			logger.Error("failed to list users page", slog.Any("error", err))
			respond.Error(w, http.StatusInternalServerError, "Failed to fetch users")
			return
		}
		hasMore := page.HasMore
		respond.JSON(w, http.StatusOK, UsersResponse{Users: page.Users, NextCursor: page.NextCursor, HasMore: &hasMore})
	}
}

// GetUserHandler обрабатывает GET /api/admin/users/{userId}
func GetUserHandler(log *slog.Logger, users service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetUserHandler"
		logger := log.With(slog.String("op", op))

		userID := chi.URLParam(r, "userId")
		if _, err := uuid.Parse(userID); err != nil {
			respond.Error(w, http.StatusNotFound, "User not found")
			return
		}

		user, err := users.Get(r.Context(), userID)
		if err != nil {
			if errors.Is(err, storage.ErrUserNotFound) {
				respond.Error(w, http.StatusNotFound, "User not found")
				return
			}
			logger.Error("failed to get user", slog.Any("error", err))
			respond.Error(w, http.StatusInternalServerError, causeMessage(err))
			return
		}
		respond.JSON(w, http.StatusOK, UserResponse{User: user})
	}
}

// MeHandler обрабатывает GET /api/admin/me: клиент проверяет, что сессия жива
func MeHandler(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			log.Error("principal not found in context", slog.String("op", "handlers.MeHandler"))
			respond.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		respond.JSON(w, http.StatusOK, MeResponse{User: principal})
	}
}
