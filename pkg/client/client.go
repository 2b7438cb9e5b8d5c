package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

var ErrNoSession = errors.New("sweetshop: not logged in")

type Client struct {
	baseURL    string
	apiPrefix  string
	httpClient *http.Client

	mu      sync.RWMutex
	session *Session
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

func WithAPIPrefix(prefix string) Option {
	return func(c *Client) { c.apiPrefix = "/" + strings.Trim(prefix, "/") }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiPrefix: "/api",
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Session() (Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return Session{}, false
	}
	return *c.session, true
}

func (c *Client) IsAdmin() bool {
	s, ok := c.Session()
	return ok && s.User.IsAdmin()
}

func (c *Client) Logout() {
	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()
}

func (c *Client) setSession(s *Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

func (c *Client) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return ""
	}
	return c.session.Token
}

func (c *Client) Register(ctx context.Context, p RegisterParams) (*Session, error) {
	var s Session
	if err := c.do(ctx, http.MethodPost, "/auth/register", p, &s, false); err != nil {
		return nil, err
	}
	c.setSession(&s)
	return &s, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var s Session
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &s, false); err != nil {
		return nil, err
	}
	c.setSession(&s)
	return &s, nil
}

func (c *Client) Me(ctx context.Context) (*User, error) {
	var out struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &out, true); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *Client) Health(ctx context.Context) (*Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	var h Health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &h, nil
}

func (c *Client) ListSweets(ctx context.Context) ([]Sweet, error) {
	var out struct {
		Sweets []Sweet `json:"sweets"`
	}
	if err := c.do(ctx, http.MethodGet, "/sweets", nil, &out, true); err != nil {
		return nil, err
	}
	return out.Sweets, nil
}

func (c *Client) SearchSweets(ctx context.Context, p SearchParams) (*SearchResult, error) {
	q := url.Values{}
	if p.Query != "" {
		q.Set("q", p.Query)
	}
	if p.Category != "" {
		q.Set("category", p.Category)
	}
	if p.MinPrice != nil {
		q.Set("minPrice", strconv.FormatFloat(*p.MinPrice, 'f', -1, 64))
	}
	if p.MaxPrice != nil {
		q.Set("maxPrice", strconv.FormatFloat(*p.MaxPrice, 'f', -1, 64))
	}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}

	path := "/sweets/search"
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}

	var out SearchResult
	if err := c.do(ctx, http.MethodGet, path, nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetSweet(ctx context.Context, id string) (*Sweet, error) {
	return c.sweetCall(ctx, http.MethodGet, "/sweets/"+url.PathEscape(id), nil)
}

func (c *Client) CreateSweet(ctx context.Context, s NewSweet) (*Sweet, error) {
	return c.sweetCall(ctx, http.MethodPost, "/sweets", s)
}

func (c *Client) UpdateSweet(ctx context.Context, id string, u SweetUpdate) (*Sweet, error) {
	return c.sweetCall(ctx, http.MethodPut, "/sweets/"+url.PathEscape(id), u)
}

func (c *Client) DeleteSweet(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/sweets/"+url.PathEscape(id), nil, nil, true)
}

func (c *Client) Purchase(ctx context.Context, id string, quantity int) (*Sweet, error) {
	return c.sweetCall(ctx, http.MethodPost, "/sweets/"+url.PathEscape(id)+"/purchase", map[string]int{"quantity": quantity})
}

func (c *Client) Restock(ctx context.Context, id string, quantity int) (*Sweet, error) {
	return c.sweetCall(ctx, http.MethodPost, "/sweets/"+url.PathEscape(id)+"/restock", map[string]int{"quantity": quantity})
}

func (c *Client) sweetCall(ctx context.Context, method, path string, body any) (*Sweet, error) {
	var out struct {
		Sweet Sweet `json:"sweet"`
	}
	if err := c.do(ctx, method, path, body, &out, true); err != nil {
		return nil, err
	}
	return &out.Sweet, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, auth bool) error {
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+c.apiPrefix+path, rdr)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		tok := c.token()
		if tok == "" {
			return ErrNoSession
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && !errors.Is(err, io.EOF) {
		if resp.StatusCode >= 300 {
			return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Success {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}
