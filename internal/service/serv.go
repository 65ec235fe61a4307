package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/linemk/orders-admin/internal/storage"
	"github.com/pkg/errors"
)

type SetupService interface {
	EnsureOrdersTable(ctx context.Context) error
}

type setupService struct {
	log     *slog.Logger
	schema  storage.SchemaBootstrapper
	timeout time.Duration
}

func NewSetupService(log *slog.Logger, schema storage.SchemaBootstrapper, timeout time.Duration) SetupService {
	return &setupService{log: log, schema: schema, timeout: timeout}
}

// EnsureOrdersTable создаёт таблицу orders, если её нет. Повторный вызов безопасен.
func (s *setupService) EnsureOrdersTable(ctx context.Context) error {
	const op = "service.SetupService.EnsureOrdersTable"
	log := s.log.With(slog.String("op", op))

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	if err := s.schema.EnsureOrdersTable(ctx); err != nil {
		log.Error("schema bootstrap failed", slog.Any("error", err))
		return errors.Wrap(err, op)
	}
	log.Info("schema bootstrap finished", slog.Duration("took", time.Since(start)))
	return nil
}
