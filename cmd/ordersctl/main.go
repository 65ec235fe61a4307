// ordersctl - консоль администратора: список заказов, фильтр, смена статуса.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/linemk/orders-admin/internal/adminview"
	"github.com/linemk/orders-admin/internal/client"
	"github.com/linemk/orders-admin/internal/domain/models"
	security "github.com/linemk/orders-admin/internal/jwt-new"
	"github.com/linemk/orders-admin/internal/lib/logger"
	"github.com/pkg/errors"
)

const usage = `usage: ordersctl [watch|users|token] [flags]

  watch   live order table (default)
  users   list the user directory
  token   mint a development admin token`

func main() {
	_ = godotenv.Load()

	cmd := "watch"
	args := os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "watch":
		err = runWatch(args)
	case "users":
		err = runUsers(args)
	case "token":
		err = runToken(args)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if errors.Is(err, adminview.ErrUnauthenticated) || errors.Is(err, client.ErrUnauthorized) {
			fmt.Fprintln(os.Stderr, "sign in as an admin and pass the token with -token or ORDERS_ADMIN_TOKEN")
		}
		os.Exit(1)
	}
}

type commonFlags struct {
	url   string
	token string
	env   string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.url, "url", envOr("ORDERS_ADMIN_URL", "http://localhost:8080"), "API base url")
	fs.StringVar(&c.token, "token", os.Getenv("ORDERS_ADMIN_TOKEN"), "admin bearer token")
	fs.StringVar(&c.env, "env", envOr("APP_ENV", logger.EnvProd), "log environment")
}

func runWatch(args []string) error {
	var common commonFlags
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	common.register(fs)
	interval := fs.Duration("interval", adminview.DefaultInterval, "poll interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	log := logger.SetupLoggerTo(common.env, os.Stderr)
	api := client.New(common.url, common.token)
	view := adminview.New(log, api, api, api, adminview.Options{Interval: *interval})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := &console{out: os.Stdout, view: view, filter: adminview.FilterAll}
	view.OnChange(c.redraw)

	if err := view.Mount(ctx); err != nil {
		return err
	}

	trigger := make(chan struct{}, 1)
	go subscribe(ctx, log, api, trigger)
	go view.Run(ctx, trigger)

	lines := make(chan string)
	go readLines(os.Stdin, lines)

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := c.handle(ctx, line); quit {
				return nil
			}
		}
	}
}

// subscribe переподключается к потоку событий; любое событие запускает обновление
func subscribe(ctx context.Context, log *slog.Logger, api *client.Client, trigger chan<- struct{}) {
	for ctx.Err() == nil {
		stream, err := api.Subscribe(ctx)
		if err != nil {
			log.Debug("event stream unavailable", slog.Any("error", err))
		} else {
			for range stream {
				select {
				case trigger <- struct{}{}:
				default:
				}
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
}

func readLines(r io.Reader, out chan<- string) {
	defer close(out)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		out <- sc.Text()
	}
}

type console struct {
	mu     sync.Mutex
	out    io.Writer
	view   *adminview.View
	filter adminview.Filter
	alert  string
	detail string
}

func (c *console) redraw() {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := c.view.Snapshot()
	if snap.State != adminview.StateReady {
		fmt.Fprintf(c.out, "%s...\n", snap.State)
		return
	}
	fmt.Fprint(c.out, "\033[H\033[2J")
	renderTable(c.out, snap, c.filter)
	if c.detail != "" {
		fmt.Fprintln(c.out, c.detail)
	}
	if c.alert != "" {
		fmt.Fprintln(c.out, c.alert)
	}
	fmt.Fprintln(c.out, "\nr refresh | f <status|all> filter | v <id> details | s <id> <status> set status | d dismiss | q quit")
}

// handle выполняет одну команду; true - выход
func (c *console) handle(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		c.redraw()
		return false
	}

	c.setAlert("")
	c.setDetail("")
	switch fields[0] {
	case "q", "quit":
		return true
	case "r":
		if !c.view.Refresh(ctx) {
			c.setAlert("refresh already in progress")
		}
	case "d":
		c.view.DismissError()
	case "f":
		if len(fields) != 2 {
			c.setAlert("usage: f <pending|processing|completed|cancelled|all>")
			break
		}
		f, err := adminview.ParseFilter(fields[1])
		if err != nil {
			c.setAlert(err.Error())
			break
		}
		c.mu.Lock()
		c.filter = f
		c.mu.Unlock()
		c.redraw()
	case "v":
		if len(fields) != 2 {
			c.setAlert("usage: v <id-prefix>")
			break
		}
		order, err := c.view.FindByPrefix(fields[1])
		if err != nil {
			c.setAlert(err.Error())
			break
		}
		details, err := formatDetails(order)
		if err != nil {
			c.setAlert(err.Error())
			break
		}
		c.setDetail(details)
	case "s":
		if len(fields) != 3 {
			c.setAlert("usage: s <id-prefix> <status>")
			break
		}
		order, err := c.view.FindByPrefix(fields[1])
		if err != nil {
			c.setAlert(err.Error())
			break
		}
		if err := c.view.ChangeStatus(ctx, order.ID, models.OrderStatus(strings.ToLower(fields[2]))); err != nil {
			c.setAlert(alertColor.Sprint("Failed to update order status: " + err.Error()))
		}
	default:
		c.setAlert("unknown command " + fields[0])
	}
	if c.hasOverlay() {
		c.redraw()
	}
	return false
}

func (c *console) setAlert(s string) {
	c.mu.Lock()
	c.alert = s
	c.mu.Unlock()
}

func (c *console) setDetail(s string) {
	c.mu.Lock()
	c.detail = s
	c.mu.Unlock()
}

// hasOverlay - есть сообщение или карточка заказа поверх таблицы
func (c *console) hasOverlay() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alert != "" || c.detail != ""
}

func runUsers(args []string) error {
	var common commonFlags
	fs := flag.NewFlagSet("users", flag.ExitOnError)
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	users, err := client.New(common.url, common.token).ListUsers(ctx)
	if err != nil {
		return err
	}
	renderUsers(os.Stdout, users)
	return nil
}

func runToken(args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	secret := fs.String("secret", os.Getenv("JWT_SECRET"), "shared JWT secret")
	userID := fs.String("user", "00000000-0000-4000-8000-000000000001", "subject user id")
	email := fs.String("email", "admin@example.com", "email claim")
	role := fs.String("role", "admin", "app_metadata.role claim")
	ttl := fs.Duration("ttl", 12*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}

	token, err := security.NewToken(models.Principal{UserID: *userID, Email: *email, Role: *role}, *secret, *ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
