// Package adminview - состояние экрана заказов администратора, независимое от способа отрисовки.
//
// Жизненный цикл: loading-auth, затем unauthenticated (вызывающий уходит на логин)
// или loading-orders и ready. В ready список обновляется опросом и по событиям.
package adminview

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/linemk/orders-admin/internal/client"
	"github.com/linemk/orders-admin/internal/domain/models"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

type State string

const (
	StateLoadingAuth     State = "loading-auth"
	StateUnauthenticated State = "unauthenticated"
	StateLoadingOrders   State = "loading-orders"
	StateReady           State = "ready"
)

const (
	DefaultInterval          = 30 * time.Second
	DefaultEnrichConcurrency = 8
)

var ErrUnauthenticated = errors.New("not signed in as admin")

type OrderSource interface {
	ListOrders(ctx context.Context) ([]*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error)
}

type ProfileLookup interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

type Authenticator interface {
	Me(ctx context.Context) (models.Principal, error)
}

type Options struct {
	// Interval - период опроса в Run
	Interval time.Duration
	// EnrichConcurrency - сколько профилей запрашивать одновременно
	EnrichConcurrency int
}

// LookupResult - итог поиска профиля для одного заказа
type LookupResult struct {
	OrderID string
	Profile *models.Profile
	Err     error
}

func (r LookupResult) Ok() bool { return r.Err == nil && r.Profile != nil }

// Snapshot - согласованный срез состояния для отрисовки
type Snapshot struct {
	State       State
	Principal   models.Principal
	Orders      []*models.Order
	Err         error
	LastRefresh time.Time
}

type View struct {
	log      *slog.Logger
	orders   OrderSource
	profiles ProfileLookup
	auth     Authenticator
	opts     Options

	mu          sync.RWMutex
	state       State
	principal   models.Principal
	rows        []*models.Order
	bannerErr   error
	lastRefresh time.Time
	onChange    func()

	refreshing atomic.Bool
}

func New(log *slog.Logger, orders OrderSource, profiles ProfileLookup, auth Authenticator, opts Options) *View {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.EnrichConcurrency <= 0 {
		opts.EnrichConcurrency = DefaultEnrichConcurrency
	}
	return &View{
		log:      log,
		orders:   orders,
		profiles: profiles,
		auth:     auth,
		opts:     opts,
		state:    StateLoadingAuth,
		rows:     []*models.Order{},
	}
}

// OnChange регистрирует колбэк, вызываемый после каждого изменения состояния.
func (v *View) OnChange(fn func()) {
	v.mu.Lock()
	v.onChange = fn
	v.mu.Unlock()
}

// Mount проверяет сессию и загружает заказы первый раз.
func (v *View) Mount(ctx context.Context) error {
	const op = "adminview.Mount"
	log := v.log.With(slog.String("op", op))

	v.setState(StateLoadingAuth)
	principal, err := v.auth.Me(ctx)
	if err != nil {
		v.setState(StateUnauthenticated)
		if errors.Is(err, client.ErrUnauthorized) {
			log.Info("no admin session")
			return ErrUnauthenticated
		}
		log.Warn("session check failed", slog.Any("error", err))
		return errors.WithMessage(ErrUnauthenticated, err.Error())
	}

	v.mu.Lock()
	v.principal = principal
	v.state = StateLoadingOrders
	v.mu.Unlock()
	v.notify()

	v.Refresh(ctx)
	v.setState(StateReady)
	return nil
}

// Run опрашивает список каждые Interval и по сигналам из trigger, пока ctx жив.
func (v *View) Run(ctx context.Context, trigger <-chan struct{}) {
	ticker := time.NewTicker(v.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			v.Refresh(ctx)
		case _, ok := <-trigger:
			if !ok {
				trigger = nil
				continue
			}
			v.Refresh(ctx)
		}
	}
}

// Refresh загружает список и дополняет профили. Если обновление уже идёт,
// ничего не делает и возвращает false.
func (v *View) Refresh(ctx context.Context) bool {
	const op = "adminview.Refresh"
	if !v.refreshing.CompareAndSwap(false, true) {
		v.log.Debug("refresh already in flight", slog.String("op", op))
		return false
	}
	defer v.refreshing.Store(false)

	list, err := v.orders.ListOrders(ctx)
	if err != nil {
		v.log.Error("failed to fetch orders", slog.String("op", op), slog.Any("error", err))
		v.mu.Lock()
		v.bannerErr = errors.Wrap(err, "failed to fetch orders")
		v.mu.Unlock()
		v.notify()
		return true
	}

	enriched, _ := v.enrich(ctx, list)

	v.mu.Lock()
	v.rows = enriched
	v.bannerErr = nil
	v.lastRefresh = time.Now()
	v.mu.Unlock()
	v.notify()
	return true
}

// enrich запрашивает профиль для каждого заказа, где он нужен, по одному запросу на заказ.
// Все поиски завершаются до того, как список заменяется.
func (v *View) enrich(ctx context.Context, list []*models.Order) ([]*models.Order, []LookupResult) {
	const op = "adminview.enrich"

	out := make([]*models.Order, len(list))
	copy(out, list)

	idx := make([]int, 0)
	for i, o := range list {
		if o.NeedsProfile() {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 || v.profiles == nil {
		return out, nil
	}

	results := make([]LookupResult, len(idx))
	var g errgroup.Group
	g.SetLimit(v.opts.EnrichConcurrency)
	for k, i := range idx {
		k := k
		order := list[i]
		g.Go(func() error {
			res := LookupResult{OrderID: order.ID}
			user, err := v.profiles.GetUser(ctx, *order.CustomerID)
			if err != nil {
				res.Err = err
			} else {
				res.Profile = models.ProfileFromMetadata(user.UserMetadata, user.Email)
			}
			results[k] = res
			return nil
		})
	}
	_ = g.Wait()

	for k, i := range idx {
		res := results[k]
		if !res.Ok() {
			v.log.Warn("profile lookup failed", slog.String("op", op),
				slog.String("order_id", res.OrderID), slog.Any("error", res.Err))
			continue
		}
		patched := *list[i]
		patched.Profile = res.Profile
		out[i] = &patched
	}
	return out, results
}

// ChangeStatus меняет статус на сервере и при успехе правит строку на месте,
// без повторной загрузки. При ошибке состояние не меняется.
func (v *View) ChangeStatus(ctx context.Context, id string, status models.OrderStatus) error {
	const op = "adminview.ChangeStatus"

	updated, err := v.orders.UpdateOrderStatus(ctx, id, status)
	if err != nil {
		v.log.Warn("status change failed", slog.String("op", op), slog.String("order_id", id), slog.Any("error", err))
		return err
	}

	v.mu.Lock()
	rows := make([]*models.Order, len(v.rows))
	copy(rows, v.rows)
	for i, o := range rows {
		if o.ID != id {
			continue
		}
		patched := *o
		patched.Status = updated.Status
		patched.UpdatedAt = updated.UpdatedAt
		rows[i] = &patched
	}
	v.rows = rows
	v.mu.Unlock()
	v.notify()
	return nil
}

// FindByPrefix ищет заказ по началу id; ошибка, если совпадений нет или их несколько.
func (v *View) FindByPrefix(prefix string) (*models.Order, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var found *models.Order
	for _, o := range v.rows {
		if strings.HasPrefix(o.ID, prefix) {
			if found != nil {
				return nil, errors.Errorf("id prefix %q is ambiguous", prefix)
			}
			found = o
		}
	}
	if found == nil {
		return nil, errors.Errorf("no order with id prefix %q", prefix)
	}
	return found, nil
}

// Visible возвращает заказы, прошедшие фильтр, в порядке списка
func (v *View) Visible(f Filter) []*models.Order {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return f.Apply(v.rows)
}

func (v *View) DismissError() {
	v.mu.Lock()
	v.bannerErr = nil
	v.mu.Unlock()
	v.notify()
}

func (v *View) Snapshot() Snapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return Snapshot{
		State:       v.state,
		Principal:   v.principal,
		Orders:      v.rows,
		Err:         v.bannerErr,
		LastRefresh: v.lastRefresh,
	}
}

func (v *View) State() State {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}

func (v *View) setState(s State) {
	v.mu.Lock()
	v.state = s
	v.mu.Unlock()
	v.notify()
}

func (v *View) notify() {
	v.mu.RLock()
	fn := v.onChange
	v.mu.RUnlock()
	if fn != nil {
		fn()
	}
}
