// migrator создаёт таблицу orders тем же путём, что и сервер при старте,
// и печатает список таблиц схемы public.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/linemk/orders-admin/internal/config"
	"github.com/linemk/orders-admin/internal/lib/logger"
	"github.com/linemk/orders-admin/internal/storage"
	"github.com/pkg/errors"
)

func main() {
	cfg := config.MustLoad()
	log := logger.SetupLogger(cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := storage.NewSchemaBootstrapper(log, cfg.Database.DSN()).EnsureOrdersTable(ctx); err != nil {
		log.Error("migration failed", slog.Any("error", err))
		os.Exit(1)
	}

	tables, err := listTables(ctx, cfg.Database.DSN())
	if err != nil {
		log.Error("failed to list tables", slog.Any("error", err))
		os.Exit(1)
	}

	fmt.Println("Current tables in the database:")
	for _, t := range tables {
		fmt.Println(" -", t)
	}
}

func listTables(ctx context.Context, dsn string) ([]string, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public'
		ORDER BY table_name
	`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query tables")
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}
