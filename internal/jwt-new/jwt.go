package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/linemk/orders-admin/internal/domain/models"
)

// NewToken подписывает HS256-токен в формате провайдера авторизации:
// роль администратора лежит в app_metadata.role.
// Боевые токены выдаёт провайдер, этот нужен для тестов и локальной работы.
func NewToken(principal models.Principal, secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is empty")
	}
	if principal.UserID == "" {
		return "", errors.New("principal has no user id")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   principal.UserID,
		"email": principal.Email,
		"role":  "authenticated",
		"app_metadata": map[string]any{
			"role": principal.Role,
		},
		"exp": now.Add(ttl).Unix(),
		"iat": now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
