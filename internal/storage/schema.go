package storage

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/linemk/orders-admin/internal/storage/migrations"
	"github.com/pkg/errors"
)

const migrationsTable = "orders_admin_migrations"

// SchemaBootstrapper создаёт таблицу orders, если её ещё нет.
type SchemaBootstrapper interface {
	EnsureOrdersTable(ctx context.Context) error
}

type migrateBootstrapper struct {
	dsn string
	log *slog.Logger
}

// NewSchemaBootstrapper работает через отдельное соединение: драйвер migrate
// закрывает свой *sql.DB, общий пул приложения трогать нельзя.
func NewSchemaBootstrapper(log *slog.Logger, dsn string) SchemaBootstrapper {
	return &migrateBootstrapper{dsn: dsn, log: log}
}

func (b *migrateBootstrapper) EnsureOrdersTable(ctx context.Context) error {
	const op = "storage.EnsureOrdersTable"
	log := b.log.With(slog.String("op", op))

	dsn, err := withMigrationsTable(b.dsn)
	if err != nil {
		return err
	}

	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return errors.Wrap(err, "failed to open embedded migrations")
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return errors.Wrap(err, "failed to create migrate instance")
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			log.Warn("failed to close migrator", slog.Any("source_error", srcErr), slog.Any("db_error", dbErr))
		}
	}()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			m.GracefulStop <- true
		case <-done:
		}
	}()

	err = m.Up()
	var dirty migrate.ErrDirty
	if errors.As(err, &dirty) {
		// прошлый запуск упал посреди миграции; она идемпотентна, откатываем отметку и повторяем
		prev := database.NilVersion
		if v, perr := src.Prev(uint(dirty.Version)); perr == nil {
			prev = int(v)
		}
		log.Warn("schema left dirty by a failed run, retrying",
			slog.Int("version", dirty.Version), slog.Int("force_to", prev))
		if ferr := m.Force(prev); ferr != nil {
			return errors.Wrap(ferr, "failed to reset dirty schema version")
		}
		err = m.Up()
	}
	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Debug("orders table already up to date")
			return nil
		}
		return errors.Wrap(err, "failed to create orders table")
	}

	log.Info("orders table ready")
	return nil
}

func withMigrationsTable(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", errors.Wrap(err, "invalid database dsn")
	}
	q := u.Query()
	q.Set("x-migrations-table", migrationsTable)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
