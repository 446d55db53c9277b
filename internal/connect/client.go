package connect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/joshua-takyi/bashbay-client/internal/models"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTimeout = 12 * time.Second
	maxBodyBytes   = 4 << 20
	maxListPages   = 20
)

// StatusError is a non-2xx backend response. Kind is the sentinel from
// models that the status maps to, if any.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Detail string
	Kind   error
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s returned %d", e.Method, e.Path, e.Code)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *StatusError) Unwrap() error { return e.Kind }

// Client talks to the booking and messaging backend. Credentials are read
// from the request context; a 401 triggers a single refresh and one retry.
type Client struct {
	base      *url.URL
	http      *http.Client
	timeout   time.Duration
	refresher Refresher
	refreshes singleflight.Group
	logger    *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, refresher Refresher, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q", baseURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		base:      base,
		http:      &http.Client{},
		timeout:   timeout,
		refresher: refresher,
		logger:    logger,
	}, nil
}

func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	raw, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	return decodeInto(path, raw, out)
}

func (c *Client) PostJSON(ctx context.Context, path string, body, out any) error {
	raw, err := c.do(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return err
	}
	return decodeInto(path, raw, out)
}

// GetPage fetches one page of a list endpoint. path may also be the
// absolute next link of a previous page.
func GetPage[T any](ctx context.Context, c *Client, path string, query url.Values) (Page[T], error) {
	raw, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return Page[T]{}, err
	}
	return DecodeList[T](raw)
}

// GetAll follows next links until the list is exhausted. A list longer than
// maxListPages is an error rather than a silently shortened result.
func GetAll[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	page, err := GetPage[T](ctx, c, path, query)
	if err != nil {
		return nil, err
	}
	items := page.Items
	for i := 1; page.Next != ""; i++ {
		if i >= maxListPages {
			return nil, &models.DataError{Field: "next", Value: page.Next,
				Err: fmt.Errorf("list exceeds %d pages", maxListPages)}
		}
		if page, err = GetPage[T](ctx, c, page.Next, nil); err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
	}
	return items, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	creds, ok := CredentialsFrom(ctx)
	if !ok {
		return nil, fmt.Errorf("%w: request carries no credentials", models.ErrAuthExpired)
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("encode %s body: %w", path, err)
		}
	}

	token := creds.AccessToken()
	status, raw, err := c.send(ctx, method, path, query, payload, token)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized {
		if err := c.refresh(ctx, creds, token); err != nil {
			return nil, err
		}
		status, raw, err = c.send(ctx, method, path, query, payload, creds.AccessToken())
		if err != nil {
			return nil, err
		}
		if status == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: token rejected after refresh", models.ErrAuthExpired)
		}
	}

	if status < 200 || status > 299 {
		return nil, statusError(method, path, status, raw)
	}
	return raw, nil
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, payload []byte, token string) (int, []byte, error) {
	target, err := c.resolve(path, query)
	if err != nil {
		return 0, nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return 0, nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %s %s: %v", models.ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read %s %s: %v", models.ErrNetwork, method, path, err)
	}

	c.logger.Debug("backend call",
		"method", method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"latency", time.Since(start),
	)
	return resp.StatusCode, raw, nil
}

// RefreshCredentials rotates creds unless they changed since staleToken was
// read. Sockets use it after a rejected handshake.
func (c *Client) RefreshCredentials(ctx context.Context, creds *Credentials, staleToken string) error {
	return c.refresh(ctx, creds, staleToken)
}

func (c *Client) refresh(ctx context.Context, creds *Credentials, staleToken string) error {
	if creds.AccessToken() != staleToken {
		// another request already rotated these credentials
		return nil
	}
	refreshToken := creds.RefreshToken()
	if c.refresher == nil || refreshToken == "" {
		return fmt.Errorf("%w: no refresh token available", models.ErrAuthExpired)
	}

	v, err, shared := c.refreshes.Do(refreshToken, func() (any, error) {
		return c.refresher.Refresh(ctx, refreshToken)
	})
	if err != nil {
		if errors.Is(err, models.ErrNetwork) {
			return err
		}
		if !errors.Is(err, models.ErrAuthExpired) {
			err = fmt.Errorf("%w: %v", models.ErrAuthExpired, err)
		}
		return err
	}

	tokens := v.(Tokens)
	creds.update(tokens.AccessToken, tokens.RefreshToken)
	c.logger.Info("access token refreshed", "shared", shared)
	return nil
}

func (c *Client) resolve(path string, query url.Values) (string, error) {
	var target *url.URL
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		u, err := url.Parse(path)
		if err != nil {
			return "", &models.DataError{Field: "next", Value: path, Err: err}
		}
		if u.Host != c.base.Host {
			return "", &models.DataError{Field: "next", Value: path, Err: errors.New("link points outside the backend")}
		}
		target = u
	} else {
		u := *c.base
		u.Path = c.base.Path + "/" + strings.TrimLeft(path, "/")
		if i := strings.IndexByte(u.Path, '?'); i >= 0 {
			u.RawQuery = u.Path[i+1:]
			u.Path = u.Path[:i]
		}
		target = &u
	}

	if len(query) > 0 {
		q := target.Query()
		for key, values := range query {
			for _, v := range values {
				q.Add(key, v)
			}
		}
		target.RawQuery = q.Encode()
	}
	return target.String(), nil
}

func statusError(method, path string, status int, raw []byte) error {
	err := &StatusError{Method: method, Path: path, Code: status, Detail: errorDetail(raw)}
	switch {
	case status == http.StatusNotFound:
		err.Kind = models.ErrNotFound
	case status == http.StatusConflict:
		err.Kind = models.ErrBookingConflict
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		err.Kind = models.ErrValidation
	case status == http.StatusForbidden:
		err.Kind = models.ErrForbidden
	case status == http.StatusTooManyRequests || status >= 500:
		err.Kind = models.ErrNetwork
	}
	return err
}

// errorDetail pulls a readable message out of the common error body shapes.
func errorDetail(raw []byte) string {
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err == nil {
		for _, key := range []string{"detail", "error", "message", "non_field_errors"} {
			switch v := body[key].(type) {
			case string:
				return v
			case []any:
				if len(v) > 0 {
					return fmt.Sprint(v[0])
				}
			}
		}
	}
	return preview(bytes.TrimSpace(raw))
}

func decodeInto(path string, raw []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &models.DataError{Field: path, Value: preview(raw), Err: err}
	}
	return nil
}
