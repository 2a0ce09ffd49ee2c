// Package backend is the REST client for the career analysis backend. Every
// call takes the caller's session explicitly and attaches its access token.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"career-gap-web/internal/domain"
	"career-gap-web/pkg/apperror"
	"career-gap-web/pkg/logger"
)

const (
	pathLogin    = "/users/auth/login/"
	pathRegister = "/users/auth/register/"
	pathRefresh  = "/users/auth/token/refresh/"
	pathMe       = "/users/profile/"

	maxErrorBody = 64 << 10
)

// unauthenticated paths never carry a bearer token even when one is present
var publicPaths = map[string]bool{
	pathRegister: true,
	pathLogin:    true,
	pathRefresh:  true,
}

type Config struct {
	BaseURL       string
	Timeout       time.Duration // regular calls
	UploadTimeout time.Duration // resume onboarding and blocking analysis
}

type Client struct {
	baseURL    string
	http       *http.Client
	longHTTP   *http.Client
	streamHTTP *http.Client
	log        *slog.Logger
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = 5 * time.Minute
	}

	// streams stay open for minutes; only the wait for headers is bounded
	streamTransport := http.DefaultTransport.(*http.Transport).Clone()
	streamTransport.ResponseHeaderTimeout = cfg.UploadTimeout

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		http:       &http.Client{Timeout: cfg.Timeout},
		longHTTP:   &http.Client{Timeout: cfg.UploadTimeout},
		streamHTTP: &http.Client{Transport: streamTransport},
		log:        logger.Log,
	}
}

// do sends a JSON request and decodes a JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, hc *http.Client, sess *domain.Session, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return apperror.Internal(fmt.Errorf("encoding %s %s: %w", method, path, err))
		}
		body = bytes.NewReader(payload)
	}

	req, err := c.newRequest(ctx, sess, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.send(hc, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return apperror.New(http.StatusBadGateway, "Unexpected response from the analysis service", err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, sess *domain.Session, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("building request %s %s: %w", method, path, err))
	}
	if sess.Authenticated() && !publicPaths[path] {
		req.Header.Set("Authorization", "Bearer "+sess.AccessToken)
	}
	if rid, ok := ctx.Value(domain.KeyRequestID).(string); ok && rid != "" {
		req.Header.Set("X-Request-ID", rid)
	}
	return req, nil
}

// send performs the request and turns transport failures and non-2xx
// answers into AppErrors. The caller owns the body of a 2xx response.
func (c *Client) send(hc *http.Client, req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		c.log.Warn("Backend request failed",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.String("error", err.Error()))
		return nil, apperror.Transport(err)
	}

	c.log.Debug("Backend request",
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return nil, apperror.Backend(resp.StatusCode, errorMessage(resp.StatusCode, raw))
}

// errorMessage extracts a readable message from a backend error body:
// {"detail": ...}, {"error": ...}, {"message": ...} or per-field lists.
func errorMessage(status int, raw []byte) string {
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		if status >= http.StatusInternalServerError {
			return "The analysis service is unavailable. Please try again later."
		}
		return http.StatusText(status)
	}

	for _, key := range []string{"detail", "error", "message"} {
		if s := flatten(body[key]); s != "" {
			return s
		}
	}

	keys := make([]string, 0, len(body))
	for k := range body {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		msg := flatten(body[k])
		if msg == "" {
			continue
		}
		if k == "non_field_errors" {
			parts = append(parts, msg)
		} else {
			parts = append(parts, k+": "+msg)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, "; ")
	}
	return http.StatusText(status)
}

func flatten(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		var out []string
		for _, item := range t {
			if s := flatten(item); s != "" {
				out = append(out, s)
			}
		}
		return strings.Join(out, " ")
	default:
		return ""
	}
}

// decodeList accepts a bare array, a paginated {"results": [...]} or a
// wrapped {"data": [...]} body.
func decodeList[T any](raw json.RawMessage) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []T{}, nil
	}

	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		return items, nil
	}

	var wrapped struct {
		Results *[]T `json:"results"`
		Data    *[]T `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, err
	}
	switch {
	case wrapped.Results != nil:
		return *wrapped.Results, nil
	case wrapped.Data != nil:
		return *wrapped.Data, nil
	}
	return nil, fmt.Errorf("unrecognized list shape")
}

func getList[T any](ctx context.Context, c *Client, sess *domain.Session, path string) ([]T, error) {
	var raw json.RawMessage
	if err := c.do(ctx, c.http, sess, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	items, err := decodeList[T](raw)
	if err != nil {
		return nil, apperror.New(http.StatusBadGateway, "Unexpected response from the analysis service", err)
	}
	return items, nil
}

// Ping reports whether the backend answers at all. Any response below 500
// counts as reachable; the API root may require auth.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("backend: status %d", resp.StatusCode)
	}
	return nil
}
