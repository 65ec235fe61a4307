package models

import "time"

// User - пользователь из каталога провайдера авторизации (только чтение)
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email,omitempty"`
	UserMetadata map[string]any `json:"user_metadata"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Profile - снимок данных покупателя, прикреплённый к заказу
type Profile struct {
	FullName string `json:"full_name,omitempty"`
	Email    string `json:"email,omitempty"`
}

// ProfileFromMetadata собирает профиль из метаданных пользователя.
// Если в метаданных нет email, берётся fallbackEmail.
func ProfileFromMetadata(meta map[string]any, fallbackEmail string) *Profile {
	p := &Profile{}
	if v, ok := meta["full_name"].(string); ok {
		p.FullName = v
	}
	if v, ok := meta["email"].(string); ok {
		p.Email = v
	}
	if p.Email == "" {
		p.Email = fallbackEmail
	}
	return p
}

// Principal - вызывающий, определённый по токену
type Principal struct {
	UserID string `json:"id"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
}
