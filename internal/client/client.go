// Package client - HTTP-клиент админского API заказов.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/linemk/orders-admin/internal/domain/models"
	"github.com/linemk/orders-admin/internal/events"
	"github.com/pkg/errors"
)

// ErrUnauthorized - сессии нет или у пользователя нет прав администратора
var ErrUnauthorized = errors.New("unauthorized")

// APIError - ответ API с кодом ошибки и сообщением из {"error": ...}
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type ordersResponse struct {
	Orders []*models.Order `json:"orders"`
}

type orderResponse struct {
	Order *models.Order `json:"order"`
}

type userResponse struct {
	User *models.User `json:"user"`
}

type usersResponse struct {
	Users []*models.User `json:"users"`
}

type meResponse struct {
	User models.Principal `json:"user"`
}

func (c *Client) ListOrders(ctx context.Context) ([]*models.Order, error) {
	var resp ordersResponse
	if err := c.do(ctx, http.MethodGet, "/api/orders", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	var resp orderResponse
	body := map[string]string{"status": string(status)}
	if err := c.do(ctx, http.MethodPatch, "/api/orders/"+url.PathEscape(id), body, &resp); err != nil {
		return nil, err
	}
	return resp.Order, nil
}

func (c *Client) GetUser(ctx context.Context, id string) (*models.User, error) {
	var resp userResponse
	if err := c.do(ctx, http.MethodGet, "/api/admin/users/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

func (c *Client) ListUsers(ctx context.Context) ([]*models.User, error) {
	var resp usersResponse
	if err := c.do(ctx, http.MethodGet, "/api/admin/users", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// Me проверяет сессию; ErrUnauthorized, если токена нет или он не админский
func (c *Client) Me(ctx context.Context) (models.Principal, error) {
	var resp meResponse
	if c.token == "" {
		return models.Principal{}, ErrUnauthorized
	}
	if err := c.do(ctx, http.MethodGet, "/api/admin/me", nil, &resp); err != nil {
		return models.Principal{}, err
	}
	return resp.User, nil
}

// Subscribe читает поток событий, пока ctx жив или соединение не порвётся.
// Канал закрывается при выходе.
func (c *Client) Subscribe(ctx context.Context) (<-chan events.Event, error) {
	u, err := url.Parse(c.baseURL + "/api/admin/orders/stream")
	if err != nil {
		return nil, errors.Wrap(err, "invalid base url")
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, ErrUnauthorized
		}
		return nil, errors.Wrap(err, "failed to open event stream")
	}

	out := make(chan events.Event)
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()
	go func() {
		defer close(out)
		defer conn.Close()
		for {
			var e events.Event
			if err := conn.ReadJSON(&e); err != nil {
				return
			}
			select {
			case out <- e:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "failed to encode request")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}
	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "failed to decode response")
	}
	return nil
}
