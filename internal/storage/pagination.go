package storage

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/linemk/orders-admin/internal/domain/models"
	"github.com/pkg/errors"
)

var ErrInvalidCursor = errors.New("invalid cursor")

// UserPage - одна страница каталога пользователей
type UserPage struct {
	Users      []*models.User `json:"users"`
	NextCursor string         `json:"next_cursor,omitempty"`
	HasMore    bool           `json:"has_more"`
}

// UserCursor - позиция keyset-пагинации по (created_at, id)
type UserCursor struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
}

// начало каталога: меньше любого реального (created_at, id)
var firstCursor = UserCursor{
	CreatedAt: time.Unix(0, 0).UTC(),
	ID:        "00000000-0000-0000-0000-000000000000",
}

func EncodeCursor(cursor UserCursor) string {
	data, err := json.Marshal(cursor)
	if err != nil {
		return ""
	}
	return base64.URLEncoding.EncodeToString(data)
}

// DecodeCursor разбирает курсор; пустая строка - начало каталога
func DecodeCursor(encoded string) (UserCursor, error) {
	if encoded == "" {
		return firstCursor, nil
	}

	data, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return UserCursor{}, errors.Wrap(ErrInvalidCursor, err.Error())
	}

	var cursor UserCursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return UserCursor{}, errors.Wrap(ErrInvalidCursor, err.Error())
	}
	if cursor.ID == "" {
		return UserCursor{}, ErrInvalidCursor
	}
	return cursor, nil
}
