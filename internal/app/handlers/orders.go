package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/linemk/orders-admin/internal/domain/models"
	"github.com/linemk/orders-admin/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/orders-admin/internal/lib/api/respond"
	"github.com/linemk/orders-admin/internal/service"
	"github.com/linemk/orders-admin/internal/storage"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

// total_amount хранится как NUMERIC(12, 2)
var maxTotalAmount = decimal.New(1, 10)

// validTotal - сумма влезает в колонку без округления
func validTotal(amount *decimal.Decimal) bool {
	if amount == nil || amount.IsNegative() || amount.GreaterThanOrEqual(maxTotalAmount) {
		return false
	}
	return amount.Equal(amount.Round(2))
}

// CreateOrderRequest - тело POST /api/orders
type CreateOrderRequest struct {
	Items       []models.LineItem `json:"items" validate:"required,min=1,dive"`
	TotalAmount *decimal.Decimal  `json:"totalAmount"`
}

// UpdateStatusRequest - тело PATCH /api/orders/{orderId}
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type OrdersResponse struct {
	Orders []*models.Order `json:"orders"`
}

type OrderResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Order   *models.Order `json:"order"`
}

// ListOrdersHandler обрабатывает GET /api/orders
func ListOrdersHandler(log *slog.Logger, orders service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListOrdersHandler"
		logger := log.With(slog.String("op", op))

		list, err := orders.List(r.Context())
		if err != nil {
			logger.Error("failed to list orders", slog.Any("error", err))
			respond.Error(w, http.StatusInternalServerError, causeMessage(err))
			return
		}
		respond.JSON(w, http.StatusOK, OrdersResponse{Orders: list})
	}
}

// CreateOrderHandler обрабатывает POST /api/orders.
// Если запрос пришёл с валидным токеном, заказ привязывается к пользователю.
func CreateOrderHandler(log *slog.Logger, orders service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateOrderHandler"
		logger := log.With(slog.String("op", op))

		var req CreateOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Warn("invalid request: decoding error", slog.Any("error", err))
			respond.Error(w, http.StatusBadRequest, "Invalid order data")
			return
		}
		if err := validate.Struct(req); err != nil {
			logger.Warn("invalid request: validation error", slog.Any("error", err))
			respond.Error(w, http.StatusBadRequest, "Invalid order data")
			return
		}
		if !validTotal(req.TotalAmount) {
			logger.Warn("invalid request: bad total amount")
			respond.Error(w, http.StatusBadRequest, "Invalid order data")
			return
		}

		in := service.CreateOrderInput{Items: req.Items, TotalAmount: *req.TotalAmount}
		if p, ok := jwtmiddleware.FromContext(r.Context()); ok {
			in.CustomerID = &p.UserID
		}

		order, err := orders.Create(r.Context(), in)
		if err != nil {
			if errors.Is(err, service.ErrInvalidOrder) {
				respond.Error(w, http.StatusBadRequest, "Invalid order data")
				return
			}
			logger.Error("failed to create order", slog.Any("error", err))
			respond.Error(w, http.StatusInternalServerError, causeMessage(err))
			return
		}

		respond.JSON(w, http.StatusOK, OrderResponse{
			Success: true,
			Message: "Order created successfully",
			Order:   order,
		})
	}
}

// UpdateOrderStatusHandler обрабатывает PATCH /api/orders/{orderId}
func UpdateOrderStatusHandler(log *slog.Logger, orders service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateOrderStatusHandler"
		logger := log.With(slog.String("op", op))

		orderID := chi.URLParam(r, "orderId")
		// невалидный id не может совпасть ни с одной строкой
		if _, err := uuid.Parse(orderID); err != nil {
			logger.Warn("malformed order id", slog.String("order_id", orderID))
			respond.Error(w, http.StatusNotFound, "Order not found")
			return
		}

		var req UpdateStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Warn("invalid request: decoding error", slog.Any("error", err))
			respond.Error(w, http.StatusBadRequest, "Status is required")
			return
		}

		order, err := orders.UpdateStatus(r.Context(), orderID, req.Status)
		switch {
		case err == nil:
		case errors.Is(err, service.ErrStatusRequired):
			respond.Error(w, http.StatusBadRequest, "Status is required")
			return
		case errors.Is(err, service.ErrInvalidStatus):
			respond.Error(w, http.StatusBadRequest, "Invalid status")
			return
		case errors.Is(err, storage.ErrOrderNotFound):
			respond.Error(w, http.StatusNotFound, "Order not found")
			return
		default:
			logger.Error("failed to update order status", slog.Any("error", err))
			respond.Error(w, http.StatusInternalServerError, causeMessage(err))
			return
		}

		respond.JSON(w, http.StatusOK, OrderResponse{
			Success: true,
			Message: "Order status updated successfully",
			Order:   order,
		})
	}
}

// causeMessage - исходное сообщение БД без обёрток слоёв
func causeMessage(err error) string {
	return errors.Cause(err).Error()
}
