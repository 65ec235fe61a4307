package service

import (
	"context"
	"log/slog"

	"github.com/linemk/orders-admin/internal/domain/models"
	"github.com/linemk/orders-admin/internal/storage"
	"github.com/pkg/errors"
)

type UserService interface {
	// ListAll проходит все страницы каталога.
	ListAll(ctx context.Context) ([]*models.User, error)
	ListPage(ctx context.Context, cursor string, limit int) (*storage.UserPage, error)
	Get(ctx context.Context, id string) (*models.User, error)
}

type userService struct {
	log      *slog.Logger
	dir      storage.UserDirectory
	pageSize int
}

func NewUserService(log *slog.Logger, dir storage.UserDirectory, pageSize int) UserService {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &userService{log: log, dir: dir, pageSize: pageSize}
}

func (s *userService) ListAll(ctx context.Context) ([]*models.User, error) {
	const op = "service.UserService.ListAll"
	log := s.log.With(slog.String("op", op))

	users := make([]*models.User, 0)
	cursor := ""
	for {
		page, err := s.dir.ListUsersPage(ctx, cursor, s.pageSize)
		if err != nil {
			log.Error("failed to list users", slog.Any("error", err))
			return nil, errors.Wrap(err, op)
		}
		users = append(users, page.Users...)
		if !page.HasMore || page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	log.Debug("users listed", slog.Int("count", len(users)))
	return users, nil
}

func (s *userService) ListPage(ctx context.Context, cursor string, limit int) (*storage.UserPage, error) {
	const op = "service.UserService.ListPage"

	if limit <= 0 || limit > s.pageSize {
		limit = s.pageSize
	}
	page, err := s.dir.ListUsersPage(ctx, cursor, limit)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidCursor) {
			return nil, err
		}
		s.log.Error("failed to list users page", slog.String("op", op), slog.Any("error", err))
		return nil, errors.Wrap(err, op)
	}
	return page, nil
}

func (s *userService) Get(ctx context.Context, id string) (*models.User, error) {
	const op = "service.UserService.Get"
	log := s.log.With(slog.String("op", op), slog.String("user_id", id))

	user, err := s.dir.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Info("user not found")
			return nil, err
		}
		log.Error("failed to get user", slog.Any("error", err))
		return nil, errors.Wrap(err, op)
	}
	return user, nil
}
