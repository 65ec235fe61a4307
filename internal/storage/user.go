package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/linemk/orders-admin/internal/domain/models"
	"github.com/pkg/errors"
)

var ErrUserNotFound = errors.New("user not found")

// UserDirectory - каталог пользователей провайдера авторизации, только чтение.
type UserDirectory interface {
	ListUsersPage(ctx context.Context, cursor string, limit int) (*UserPage, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

type userDirectory struct {
	db    *sql.DB
	table string
}

// NewUserDirectory читает пользователей из таблицы провайдера, например auth.users.
// Имя таблицы приходит из конфига и экранируется по частям.
func NewUserDirectory(db *sql.DB, table string) UserDirectory {
	return &userDirectory{db: db, table: quoteTable(table)}
}

func quoteTable(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}

func (d *userDirectory) ListUsersPage(ctx context.Context, cursor string, limit int) (*UserPage, error) {
	if limit <= 0 {
		return nil, errors.Errorf("limit must be positive, got %d", limit)
	}
	c, err := DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	// берём на одну строку больше, чтобы узнать, есть ли следующая страница
	query := fmt.Sprintf(`
		SELECT id, email, raw_user_meta_data, created_at
		FROM %s
		WHERE (created_at, id) > ($1, $2)
		ORDER BY created_at, id
		LIMIT $3`, d.table)
	rows, err := d.db.QueryContext(ctx, query, c.CreatedAt, c.ID, limit+1)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query users")
	}
	defer rows.Close()

	users := make([]*models.User, 0, limit)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan user")
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read users")
	}

	page := &UserPage{Users: users}
	if len(users) > limit {
		page.Users = users[:limit]
		page.HasMore = true
		last := page.Users[limit-1]
		page.NextCursor = EncodeCursor(UserCursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return page, nil
}

func (d *userDirectory) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT id, email, raw_user_meta_data, created_at FROM %s WHERE id = $1`, d.table)
	user, err := scanUser(d.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, errors.Wrap(err, "failed to get user")
	}
	return user, nil
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		user  models.User
		email sql.NullString
		meta  []byte
	)
	if err := row.Scan(&user.ID, &email, &meta, &user.CreatedAt); err != nil {
		return nil, err
	}
	user.Email = email.String
	user.UserMetadata = map[string]any{}
	if len(meta) > 0 && string(meta) != "null" {
		if err := json.Unmarshal(meta, &user.UserMetadata); err != nil {
			return nil, errors.Wrapf(err, "failed to decode metadata of user %s", user.ID)
		}
	}
	return &user, nil
}
