// Package remote implements the task repository over the taskboard REST API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/evanschultz/taskboard/internal/app"
	"github.com/evanschultz/taskboard/internal/domain"
)

// DefaultTimeout bounds one API round trip when no client is supplied.
const DefaultTimeout = 10 * time.Second

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithTimeout sets the default HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.http.Timeout = timeout
		}
	}
}

// WithEventsURL overrides the websocket change-feed URL.
func WithEventsURL(raw string) Option {
	return func(c *Client) {
		c.eventsURL = strings.TrimSpace(raw)
	}
}

// Client talks to one taskboard API base URL such as http://127.0.0.1:8080/api/v1.
type Client struct {
	baseURL   string
	eventsURL string
	http      *http.Client
	dialer    *websocket.Dialer
}

var _ app.TaskRepository = (*Client)(nil)

// New constructs a client for baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("remote base url is required")
	}
	parsed, err := neturl.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid remote base url %q", baseURL)
	}
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: DefaultTimeout},
		dialer:  websocket.DefaultDialer,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.eventsURL == "" {
		c.eventsURL = deriveEventsURL(parsed)
	}
	return c, nil
}

// EventsURL returns the websocket change-feed URL.
func (c *Client) EventsURL() string {
	return c.eventsURL
}

// ListBoards returns every board.
func (c *Client) ListBoards(ctx context.Context) ([]domain.Board, error) {
	var out listEnvelope[domain.Board]
	if err := c.read(ctx, "/boards", &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// GetBoard returns one board.
func (c *Client) GetBoard(ctx context.Context, id int) (domain.Board, error) {
	var out domain.Board
	if err := c.read(ctx, "/boards/"+strconv.Itoa(id), &out); err != nil {
		return domain.Board{}, err
	}
	return out, nil
}

// ListTasks returns every task.
func (c *Client) ListTasks(ctx context.Context) ([]domain.Task, error) {
	var out listEnvelope[domain.Task]
	if err := c.read(ctx, "/tasks", &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// ListTasksForBoard returns the tasks of one board.
func (c *Client) ListTasksForBoard(ctx context.Context, boardID int) ([]domain.Task, error) {
	var out listEnvelope[domain.Task]
	if err := c.read(ctx, "/boards/"+strconv.Itoa(boardID)+"/tasks", &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// GetTask returns one task.
func (c *Client) GetTask(ctx context.Context, id int) (domain.Task, error) {
	var out domain.Task
	if err := c.read(ctx, "/tasks/"+strconv.Itoa(id), &out); err != nil {
		return domain.Task{}, err
	}
	return out, nil
}

// CreateTask posts a new task.
func (c *Client) CreateTask(ctx context.Context, in domain.TaskInput) (domain.Task, error) {
	var out domain.Task
	if err := c.write(ctx, http.MethodPost, "/tasks", in, &out); err != nil {
		return domain.Task{}, err
	}
	return out, nil
}

// UpdateTask patches one task.
func (c *Client) UpdateTask(ctx context.Context, id int, patch domain.TaskPatch) (domain.Task, error) {
	var out domain.Task
	if err := c.write(ctx, http.MethodPatch, "/tasks/"+strconv.Itoa(id), patch, &out); err != nil {
		return domain.Task{}, err
	}
	return out, nil
}

// ListUsers returns every user.
func (c *Client) ListUsers(ctx context.Context) ([]domain.User, error) {
	var out listEnvelope[domain.User]
	if err := c.read(ctx, "/users", &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// Subscribe dials the change feed and streams events until ctx ends or the
// connection drops. The returned channel is closed on exit.
func (c *Client) Subscribe(ctx context.Context) (<-chan domain.ChangeEvent, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.eventsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial change feed %s: %w", c.eventsURL, err)
	}
	out := make(chan domain.ChangeEvent)
	stop := closeOnCancel(ctx, conn)
	go func() {
		defer close(out)
		defer conn.Close()
		defer stop()
		for {
			var event domain.ChangeEvent
			if err := conn.ReadJSON(&event); err != nil {
				return
			}
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// closeOnCancel closes c once ctx ends. stop ends the watch and waits for
// it to exit; it must be called exactly once.
func closeOnCancel(ctx context.Context, c io.Closer) (stop func()) {
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		select {
		case <-ctx.Done():
			_ = c.Close()
		case <-done:
		}
	}()
	return func() {
		close(done)
		<-exited
	}
}

type listEnvelope[T any] struct {
	Items []T `json:"items"`
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// read performs one GET; transport failures surface as transient load errors.
func (c *Client) read(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out, app.ErrTransientLoad)
}

// write performs one mutation; transport failures surface as persistence errors.
func (c *Client) write(ctx context.Context, method, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", method, path, err)
	}
	return c.do(ctx, method, path, body, out, app.ErrPersistence)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any, failure error) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return errors.Join(failure, fmt.Errorf("%s %s: %w", method, path, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(method, path, resp, failure)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Join(failure, fmt.Errorf("decode %s %s: %w", method, path, err))
	}
	return nil
}

// statusError maps one non-2xx response onto app errors.
func statusError(method, path string, resp *http.Response, failure error) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	message := strings.TrimSpace(string(raw))
	var envelope errorEnvelope
	if json.Unmarshal(raw, &envelope) == nil && envelope.Error.Message != "" {
		message = envelope.Error.Message
	}
	detail := fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, message)
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errors.Join(app.ErrNotFound, detail)
	case resp.StatusCode == http.StatusBadRequest:
		if envelope.Error.Code == "board_immutable" {
			return errors.Join(domain.ErrBoardImmutable, detail)
		}
		return errors.Join(app.ErrValidation, detail)
	default:
		return errors.Join(failure, detail)
	}
}

// deriveEventsURL maps http(s)://host/api/v1 to ws(s)://host/events.
func deriveEventsURL(base *neturl.URL) string {
	scheme := "ws"
	if base.Scheme == "https" {
		scheme = "wss"
	}
	events := neturl.URL{Scheme: scheme, Host: base.Host, Path: "/events"}
	return events.String()
}
