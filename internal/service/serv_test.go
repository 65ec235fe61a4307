package service_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/linemk/orders-admin/internal/domain/models"
	"github.com/linemk/orders-admin/internal/events"
	"github.com/linemk/orders-admin/internal/service"
	"github.com/linemk/orders-admin/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrderRepo struct {
	orders    map[string]*models.Order
	failWith  error
	lastInput *models.Order
}

var _ storage.OrderStorage = (*fakeOrderRepo)(nil)

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[string]*models.Order)}
}

func (f *fakeOrderRepo) ListOrders(ctx context.Context) ([]*models.Order, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := make([]*models.Order, 0, len(f.orders))
	for _, o := range f.orders {
		out = append(out, o)
	}
	return out, nil
}

func (f *fakeOrderRepo) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.lastInput = order
	created := *order
	created.ID = fmt.Sprintf("order-%d", len(f.orders)+1)
	created.CreatedAt = time.Now()
	created.UpdatedAt = created.CreatedAt
	f.orders[created.ID] = &created
	return &created, nil
}

func (f *fakeOrderRepo) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	o, ok := f.orders[id]
	if !ok {
		return nil, storage.ErrOrderNotFound
	}
	o.Status = status
	o.UpdatedAt = o.UpdatedAt.Add(time.Microsecond)
	return o, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(e events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func TestOrderService_Create_ForcesPending(t *testing.T) {
	repo := newFakeOrderRepo()
	pub := &recordingPublisher{}
	svc := service.NewOrderService(newLogger(), repo, pub, false)

	order, err := svc.Create(context.Background(), service.CreateOrderInput{
		Items:       []models.LineItem{{Name: "Latte", Quantity: 2}},
		TotalAmount: decimal.RequireFromString("9.50"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.OrderStatusPending, repo.lastInput.Status)
	assert.Nil(t, order.CustomerID)

	require.Len(t, pub.events, 1)
	assert.Equal(t, events.OrderCreated, pub.events[0].Type)
	assert.Equal(t, order.ID, pub.events[0].Order.ID)
}

func TestOrderService_Create_Invalid(t *testing.T) {
	svc := service.NewOrderService(newLogger(), newFakeOrderRepo(), nil, false)

	cases := map[string]service.CreateOrderInput{
		"no items":       {TotalAmount: decimal.NewFromInt(1)},
		"negative total": {Items: []models.LineItem{{Name: "Tea", Quantity: 1}}, TotalAmount: decimal.NewFromInt(-1)},
		"empty name":     {Items: []models.LineItem{{Name: " ", Quantity: 1}}},
		"zero quantity":  {Items: []models.LineItem{{Name: "Tea"}}},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), in)
			assert.ErrorIs(t, err, service.ErrInvalidOrder)
		})
	}
}

func TestOrderService_Create_RepoError(t *testing.T) {
	repo := newFakeOrderRepo()
	repo.failWith = errors.New("connection refused")
	pub := &recordingPublisher{}
	svc := service.NewOrderService(newLogger(), repo, pub, false)

	_, err := svc.Create(context.Background(), service.CreateOrderInput{
		Items: []models.LineItem{{Name: "Tea", Quantity: 1}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Empty(t, pub.events)
}

func TestOrderService_UpdateStatus(t *testing.T) {
	repo := newFakeOrderRepo()
	pub := &recordingPublisher{}
	svc := service.NewOrderService(newLogger(), repo, pub, false)

	created, err := svc.Create(context.Background(), service.CreateOrderInput{
		Items: []models.LineItem{{Name: "Tea", Quantity: 1}},
	})
	require.NoError(t, err)
	before := created.UpdatedAt

	updated, err := svc.UpdateStatus(context.Background(), created.ID, "Completed")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, updated.Status)
	assert.True(t, updated.UpdatedAt.After(before))
	require.Len(t, pub.events, 2)
	assert.Equal(t, events.OrderStatusUpdated, pub.events[1].Type)

	_, err = svc.UpdateStatus(context.Background(), created.ID, "")
	assert.ErrorIs(t, err, service.ErrStatusRequired)

	_, err = svc.UpdateStatus(context.Background(), created.ID, "shipped")
	assert.ErrorIs(t, err, service.ErrInvalidStatus)

	_, err = svc.UpdateStatus(context.Background(), "missing", "completed")
	assert.ErrorIs(t, err, storage.ErrOrderNotFound)
}

func TestOrderService_UpdateStatus_Lenient(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := service.NewOrderService(newLogger(), repo, nil, true)

	created, err := svc.Create(context.Background(), service.CreateOrderInput{
		Items: []models.LineItem{{Name: "Tea", Quantity: 1}},
	})
	require.NoError(t, err)

	// значение уходит в хранилище как есть
	updated, err := svc.UpdateStatus(context.Background(), created.ID, "shipped")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatus("shipped"), updated.Status)

	_, err = svc.UpdateStatus(context.Background(), created.ID, "  ")
	assert.ErrorIs(t, err, service.ErrStatusRequired)
}

type fakeDirectory struct {
	users    []*models.User
	failWith error
	calls    int
}

var _ storage.UserDirectory = (*fakeDirectory)(nil)

// курсор в фейке - просто индекс следующего пользователя
func (f *fakeDirectory) ListUsersPage(ctx context.Context, cursor string, limit int) (*storage.UserPage, error) {
	f.calls++
	if f.failWith != nil {
		return nil, f.failWith
	}
	start := 0
	if cursor != "" {
		if _, err := fmt.Sscanf(cursor, "%d", &start); err != nil {
			return nil, storage.ErrInvalidCursor
		}
	}
	end := start + limit
	if end > len(f.users) {
		end = len(f.users)
	}
	page := &storage.UserPage{Users: f.users[start:end]}
	if end < len(f.users) {
		page.HasMore = true
		page.NextCursor = fmt.Sprintf("%d", end)
	}
	return page, nil
}

func (f *fakeDirectory) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func makeUsers(n int) []*models.User {
	users := make([]*models.User, n)
	for i := range users {
		users[i] = &models.User{ID: fmt.Sprintf("u%d", i), Email: fmt.Sprintf("u%d@example.com", i)}
	}
	return users
}

func TestUserService_ListAll_WalksEveryPage(t *testing.T) {
	dir := &fakeDirectory{users: makeUsers(7)}
	svc := service.NewUserService(newLogger(), dir, 3)

	users, err := svc.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 7)
	assert.Equal(t, 3, dir.calls)
	assert.Equal(t, "u6", users[6].ID)
}

func TestUserService_ListAll_Error(t *testing.T) {
	dir := &fakeDirectory{failWith: errors.New("permission denied for schema auth")}
	svc := service.NewUserService(newLogger(), dir, 3)

	users, err := svc.ListAll(context.Background())
	assert.Error(t, err)
	assert.Nil(t, users)
}

func TestUserService_ListPage_ClampsLimit(t *testing.T) {
	dir := &fakeDirectory{users: makeUsers(10)}
	svc := service.NewUserService(newLogger(), dir, 4)

	page, err := svc.ListPage(context.Background(), "", 100)
	require.NoError(t, err)
	assert.Len(t, page.Users, 4)
	assert.True(t, page.HasMore)

	page, err = svc.ListPage(context.Background(), page.NextCursor, 2)
	require.NoError(t, err)
	assert.Equal(t, "u4", page.Users[0].ID)

	_, err = svc.ListPage(context.Background(), "bogus", 2)
	assert.ErrorIs(t, err, storage.ErrInvalidCursor)
}

func TestUserService_Get(t *testing.T) {
	svc := service.NewUserService(newLogger(), &fakeDirectory{users: makeUsers(2)}, 10)

	user, err := svc.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1@example.com", user.Email)

	_, err = svc.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}

type fakeSchema struct {
	err      error
	deadline bool
}

func (f *fakeSchema) EnsureOrdersTable(ctx context.Context) error {
	_, f.deadline = ctx.Deadline()
	return f.err
}

func TestSetupService(t *testing.T) {
	schema := &fakeSchema{}
	svc := service.NewSetupService(newLogger(), schema, time.Minute)

	require.NoError(t, svc.EnsureOrdersTable(context.Background()))
	assert.True(t, schema.deadline)

	schema.err = errors.New(`permission denied for schema public`)
	err := svc.EnsureOrdersTable(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}
