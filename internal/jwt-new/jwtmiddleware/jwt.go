package jwtmiddleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/linemk/orders-admin/internal/domain/models"
	"github.com/linemk/orders-admin/internal/lib/api/respond"
)

type contextKey string

const PrincipalKey contextKey = "principal"

var (
	errMissingToken = errors.New("missing token")
	errTokenFormat  = errors.New("invalid token format")
	errInvalidToken = errors.New("invalid token")
)

type Options struct {
	// CookieName - cookie с токеном, если заголовка Authorization нет
	CookieName string
}

// New создаёт middleware, которое требует валидный токен и кладёт Principal в контекст.
func New(secret string, opts Options) func(http.Handler) http.Handler {
	if secret == "" {
		panic("jwt secret is not set")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := authenticate(r, secret, opts)
			if err != nil {
				respond.Error(w, http.StatusUnauthorized, err.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// Optional добавляет Principal, если токен есть и валиден, и никогда не отклоняет запрос.
func Optional(secret string, opts Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if principal, err := authenticate(r, secret, opts); err == nil {
				r = r.WithContext(WithPrincipal(r.Context(), principal))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole пропускает только вызывающих с указанной ролью. Ставится после New.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := FromContext(r.Context())
			if !ok {
				respond.Error(w, http.StatusUnauthorized, errMissingToken.Error())
				return
			}
			if principal.Role != role {
				respond.Error(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func authenticate(r *http.Request, secret string, opts Options) (models.Principal, error) {
	tokenStr, err := extractToken(r, opts)
	if err != nil {
		return models.Principal{}, err
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return models.Principal{}, errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.Principal{}, errInvalidToken
	}

	// id пользователя у провайдера - UUID, поэтому sub остаётся строкой
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return models.Principal{}, errors.New("invalid token claims: sub not found")
	}

	principal := models.Principal{UserID: sub}
	principal.Email, _ = claims["email"].(string)
	principal.Role, _ = claims["role"].(string)
	if meta, ok := claims["app_metadata"].(map[string]any); ok {
		if role, ok := meta["role"].(string); ok && role != "" {
			principal.Role = role
		}
	}
	return principal, nil
}

func extractToken(r *http.Request, opts Options) (string, error) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", errTokenFormat
		}
		return parts[1], nil
	}
	if opts.CookieName != "" {
		if c, err := r.Cookie(opts.CookieName); err == nil && c.Value != "" {
			return c.Value, nil
		}
	}
	return "", errMissingToken
}

func WithPrincipal(ctx context.Context, p models.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

// FromContext извлекает Principal из контекста.
func FromContext(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(models.Principal)
	return p, ok
}
