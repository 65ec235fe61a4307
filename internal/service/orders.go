package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/linemk/orders-admin/internal/domain/models"
	"github.com/linemk/orders-admin/internal/events"
	"github.com/linemk/orders-admin/internal/storage"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidOrder   = errors.New("invalid order data")
	ErrStatusRequired = errors.New("status is required")
	ErrInvalidStatus  = errors.New("invalid status")
)

type OrderService interface {
	List(ctx context.Context) ([]*models.Order, error)
	Create(ctx context.Context, in CreateOrderInput) (*models.Order, error)
	UpdateStatus(ctx context.Context, id, status string) (*models.Order, error)
}

// CreateOrderInput - то, что клиент может задать при создании заказа.
// Статус всегда pending, время и id проставляет БД.
type CreateOrderInput struct {
	Items       []models.LineItem
	TotalAmount decimal.Decimal
	CustomerID  *string
}

type orderService struct {
	log       *slog.Logger
	repo      storage.OrderStorage
	publisher events.Publisher
	lenient   bool
}

// NewOrderService; при lenient статус не сверяется с перечислением,
// его проверяет только CHECK в схеме. publisher может быть nil.
func NewOrderService(log *slog.Logger, repo storage.OrderStorage, publisher events.Publisher, lenient bool) OrderService {
	return &orderService{log: log, repo: repo, publisher: publisher, lenient: lenient}
}

func (s *orderService) List(ctx context.Context) ([]*models.Order, error) {
	const op = "service.OrderService.List"
	log := s.log.With(slog.String("op", op))

	orders, err := s.repo.ListOrders(ctx)
	if err != nil {
		log.Error("failed to list orders", slog.Any("error", err))
		return nil, errors.Wrap(err, op)
	}
	log.Debug("orders listed", slog.Int("count", len(orders)))
	return orders, nil
}

func (s *orderService) Create(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	const op = "service.OrderService.Create"
	log := s.log.With(slog.String("op", op))

	if len(in.Items) == 0 || in.TotalAmount.IsNegative() {
		return nil, ErrInvalidOrder
	}
	for _, item := range in.Items {
		if strings.TrimSpace(item.Name) == "" || item.Quantity < 1 {
			return nil, ErrInvalidOrder
		}
	}

	created, err := s.repo.CreateOrder(ctx, &models.Order{
		Items:       in.Items,
		TotalAmount: in.TotalAmount,
		Status:      models.OrderStatusPending,
		CustomerID:  in.CustomerID,
	})
	if err != nil {
		log.Error("failed to create order", slog.Any("error", err))
		return nil, errors.Wrap(err, op)
	}

	log.Info("order created", slog.String("order_id", created.ID), slog.String("total", created.TotalAmount.StringFixed(2)))
	s.publish(events.OrderCreated, created)
	return created, nil
}

func (s *orderService) UpdateStatus(ctx context.Context, id, raw string) (*models.Order, error) {
	const op = "service.OrderService.UpdateStatus"
	log := s.log.With(slog.String("op", op), slog.String("order_id", id))

	if strings.TrimSpace(raw) == "" {
		return nil, ErrStatusRequired
	}

	status := models.OrderStatus(raw)
	if !s.lenient {
		parsed, err := models.ParseOrderStatus(raw)
		if err != nil {
			log.Warn("rejected status", slog.String("status", raw))
			return nil, ErrInvalidStatus
		}
		status = parsed
	}

	updated, err := s.repo.UpdateOrderStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			log.Warn("order not found")
			return nil, err
		}
		log.Error("failed to update order status", slog.Any("error", err))
		return nil, errors.Wrap(err, op)
	}

	log.Info("order status updated", slog.String("status", string(updated.Status)))
	s.publish(events.OrderStatusUpdated, updated)
	return updated, nil
}

func (s *orderService) publish(kind string, order *models.Order) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(events.Event{Type: kind, Order: order, At: time.Now().UTC()})
}
