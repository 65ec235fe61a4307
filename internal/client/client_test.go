package client_test

import (
	"context"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/linemk/orders-admin/internal/app"
	"github.com/linemk/orders-admin/internal/client"
	"github.com/linemk/orders-admin/internal/domain/models"
	"github.com/linemk/orders-admin/internal/events"
	security "github.com/linemk/orders-admin/internal/jwt-new"
	"github.com/linemk/orders-admin/internal/lib/logger"
	"github.com/linemk/orders-admin/internal/service"
	"github.com/linemk/orders-admin/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "client-secret"

// memoryOrders - хранилище заказов в памяти для сквозных тестов клиента
type memoryOrders struct {
	mu     sync.Mutex
	orders []*models.Order
}

func (m *memoryOrders) ListOrders(context.Context) ([]*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Order, len(m.orders))
	copy(out, m.orders)
	return out, nil
}

func (m *memoryOrders) CreateOrder(_ context.Context, o *models.Order) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *o
	c.ID = fmt.Sprintf("00000000-0000-4000-8000-%012d", len(m.orders)+1)
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt
	m.orders = append([]*models.Order{&c}, m.orders...)
	return &c, nil
}

func (m *memoryOrders) UpdateOrderStatus(_ context.Context, id string, s models.OrderStatus) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ID == id {
			o.Status = s
			o.UpdatedAt = o.UpdatedAt.Add(time.Second)
			c := *o
			return &c, nil
		}
	}
	return nil, storage.ErrOrderNotFound
}

type memoryUsers struct{ users []*models.User }

func (m memoryUsers) ListUsersPage(_ context.Context, _ string, _ int) (*storage.UserPage, error) {
	return &storage.UserPage{Users: m.users}, nil
}

func (m memoryUsers) GetUserByID(_ context.Context, id string) (*models.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

type noopSchema struct{}

func (noopSchema) EnsureOrdersTable(context.Context) error { return nil }

const userID = "11111111-1111-4111-8111-111111111111"

func newServer(t *testing.T) (*httptest.Server, *memoryOrders, *events.Hub) {
	t.Helper()
	log := logger.Discard()
	orders := &memoryOrders{}
	hub := events.NewHub(log)
	users := memoryUsers{users: []*models.User{{ID: userID, Email: "ann@example.com", UserMetadata: map[string]any{"full_name": "Ann"}}}}

	router := app.NewRouter(log, app.AuthSettings{Secret: secret, AdminRole: "admin"}, app.Services{
		Orders: service.NewOrderService(log, orders, hub, false),
		Users:  service.NewUserService(log, users, 10),
		Setup:  service.NewSetupService(log, noopSchema{}, time.Second),
		Stream: hub,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, orders, hub
}

func adminToken(t *testing.T) string {
	t.Helper()
	tok, err := security.NewToken(models.Principal{UserID: userID, Email: "admin@example.com", Role: "admin"}, secret, time.Hour)
	require.NoError(t, err)
	return tok
}

func TestClient_OrdersRoundTrip(t *testing.T) {
	srv, orders, _ := newServer(t)
	_, err := orders.CreateOrder(context.Background(), &models.Order{
		Items:       []models.LineItem{{Name: "Tea", Quantity: 1}},
		TotalAmount: decimal.RequireFromString("3.25"),
		Status:      models.OrderStatusPending,
	})
	require.NoError(t, err)

	c := client.New(srv.URL+"/", adminToken(t))
	ctx := context.Background()

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "admin", me.Role)

	list, err := c.ListOrders(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, decimal.RequireFromString("3.25").Equal(list[0].TotalAmount))

	updated, err := c.UpdateOrderStatus(ctx, list[0].ID, models.OrderStatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusProcessing, updated.Status)
	assert.True(t, updated.UpdatedAt.After(list[0].UpdatedAt))

	_, err = c.UpdateOrderStatus(ctx, "00000000-0000-4000-8000-999999999999", models.OrderStatusCompleted)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.StatusCode)
	assert.Equal(t, "Order not found", apiErr.Message)

	_, err = c.UpdateOrderStatus(ctx, list[0].ID, models.OrderStatus("shipped"))
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Invalid status", apiErr.Message)
}

func TestClient_Users(t *testing.T) {
	srv, _, _ := newServer(t)
	c := client.New(srv.URL, adminToken(t))

	users, err := c.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 1)

	user, err := c.GetUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", user.UserMetadata["full_name"])
}

func TestClient_Unauthorized(t *testing.T) {
	srv, _, _ := newServer(t)

	_, err := client.New(srv.URL, "").Me(context.Background())
	assert.ErrorIs(t, err, client.ErrUnauthorized)

	_, err = client.New(srv.URL, "garbage").ListOrders(context.Background())
	assert.ErrorIs(t, err, client.ErrUnauthorized)

	tok, err := security.NewToken(models.Principal{UserID: userID, Role: "customer"}, secret, time.Hour)
	require.NoError(t, err)
	_, err = client.New(srv.URL, tok).Me(context.Background())
	assert.ErrorIs(t, err, client.ErrUnauthorized)

	_, err = client.New(srv.URL, "garbage").Subscribe(context.Background())
	assert.ErrorIs(t, err, client.ErrUnauthorized)
}

func TestClient_Subscribe(t *testing.T) {
	srv, orders, hub := newServer(t)
	c := client.New(srv.URL, adminToken(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := c.Subscribe(ctx)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	created, err := orders.CreateOrder(ctx, &models.Order{Items: []models.LineItem{{Name: "Tea", Quantity: 1}}})
	require.NoError(t, err)
	_, err = c.UpdateOrderStatus(ctx, created.ID, models.OrderStatusCompleted)
	require.NoError(t, err)

	select {
	case e := <-stream:
		assert.Equal(t, events.OrderStatusUpdated, e.Type)
		assert.Equal(t, created.ID, e.Order.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}

	cancel()
	for range stream {
	}
}
