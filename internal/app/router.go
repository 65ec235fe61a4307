package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/linemk/orders-admin/internal/app/handlers"
	"github.com/linemk/orders-admin/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/orders-admin/internal/lib/logger/handlers/urllog"
	"github.com/linemk/orders-admin/internal/service"
)

// Services - всё, что нужно роутеру
type Services struct {
	Orders service.OrderService
	Users  service.UserService
	Setup  service.SetupService
	Stream http.Handler
	Health handlers.Pinger
}

type AuthSettings struct {
	Secret     string
	AdminRole  string
	CookieName string
}

// NewRouter собирает маршруты API
func NewRouter(log *slog.Logger, auth AuthSettings, svc Services) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(urllog.CustomLoggerMiddleware(log))
	router.Use(handlers.Recoverer(log))
	router.Use(middleware.URLFormat)

	jwtOpts := jwtmiddleware.Options{CookieName: auth.CookieName}

	if svc.Health != nil {
		router.Get("/health", handlers.HealthHandler(log, svc.Health))
	}

	// создание заказа доступно витрине, токен необязателен
	router.With(jwtmiddleware.Optional(auth.Secret, jwtOpts)).
		Post("/api/orders", handlers.CreateOrderHandler(log, svc.Orders))

	router.Group(func(r chi.Router) {
		r.Use(jwtmiddleware.New(auth.Secret, jwtOpts))
		r.Use(jwtmiddleware.RequireRole(auth.AdminRole))

		r.Get("/api/orders", handlers.ListOrdersHandler(log, svc.Orders))
		r.Patch("/api/orders/{orderId}", handlers.UpdateOrderStatusHandler(log, svc.Orders))

		r.Get("/api/admin/me", handlers.MeHandler(log))
		r.Get("/api/admin/users", handlers.ListUsersHandler(log, svc.Users))
		r.Get("/api/admin/users/{userId}", handlers.GetUserHandler(log, svc.Users))
		r.Post("/api/admin/setup/orders-table", handlers.SetupOrdersTableHandler(log, svc.Setup))
		if svc.Stream != nil {
			r.Get("/api/admin/orders/stream", svc.Stream.ServeHTTP)
		}
	})

	return router
}
