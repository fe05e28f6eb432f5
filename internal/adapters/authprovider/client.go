// Package authprovider talks to the hosted identity service (a GoTrue-style
// /auth/v1 API) and verifies the access tokens it issues.
package authprovider

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"travel_booking/internal/adapters/observability"
	"travel_booking/internal/domain"
)

const service = "authprovider"

type Client struct {
	base string
	hc   *http.Client
	key  string
	rl   *rate.Limiter
}

func New(base, key string, rps int) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("auth API key is required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 10 * time.Second},
		key:  key,
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

type apiUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (u apiUser) identity() domain.Identity { return domain.Identity{ID: u.ID, Email: u.Email} }

type tokenResponse struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	ExpiresIn    int     `json:"expires_in"`
	ExpiresAt    int64   `json:"expires_at"`
	User         apiUser `json:"user"`
}

// signup answers with the user object, or with a session wrapping it when
// email confirmation is disabled.
type signupResponse struct {
	apiUser
	User *apiUser `json:"user"`
}

// ---- domain.IdentityProvider ----

func (c *Client) SignUp(ctx context.Context, email, password string, meta map[string]any) (domain.Identity, error) {
	body := map[string]any{"email": email, "password": password, "data": meta}
	var out signupResponse
	if err := c.do(ctx, http.MethodPost, "/auth/v1/signup", "", body, &out); err != nil {
		return domain.Identity{}, err
	}
	if out.User != nil && out.User.ID != "" {
		return out.User.identity(), nil
	}
	if out.ID == "" {
		return domain.Identity{}, fmt.Errorf("%s: signup response without user id", service)
	}
	return out.apiUser.identity(), nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (domain.Identity, domain.AuthTokens, error) {
	body := map[string]any{"email": email, "password": password}
	var out tokenResponse
	err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "", body, &out)
	if err != nil {
		// Wrong credentials come back as 400 invalid_grant.
		if errors.Is(err, domain.ErrInvalid) {
			return domain.Identity{}, domain.AuthTokens{}, fmt.Errorf("%w: invalid email or password", domain.ErrUnauthorized)
		}
		return domain.Identity{}, domain.AuthTokens{}, err
	}
	exp := time.Unix(out.ExpiresAt, 0).UTC()
	if out.ExpiresAt == 0 {
		exp = time.Now().UTC().Add(time.Duration(out.ExpiresIn) * time.Second)
	}
	return out.User.identity(), domain.AuthTokens{
		AccessToken:  out.AccessToken,
		RefreshToken: out.RefreshToken,
		ExpiresAt:    exp,
	}, nil
}

func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/auth/v1/logout", accessToken, nil, nil)
}

func (c *Client) CurrentUser(ctx context.Context, accessToken string) (domain.Identity, error) {
	var out apiUser
	if err := c.do(ctx, http.MethodGet, "/auth/v1/user", accessToken, nil, &out); err != nil {
		return domain.Identity{}, err
	}
	return out.identity(), nil
}

func (c *Client) ResetPassword(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/auth/v1/recover", "", map[string]any{"email": email}, nil)
}

// ---- Internals ----

type apiError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (e apiError) text() string {
	for _, s := range []string{e.ErrorDescription, e.Msg, e.Message, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// statusErr maps a provider answer onto the domain sentinels.
func statusErr(status int, msg string) error {
	var base error
	switch {
	case status == http.StatusUnauthorized:
		base = domain.ErrUnauthorized
	case status == http.StatusForbidden:
		base = domain.ErrForbidden
	case status == http.StatusNotFound:
		base = domain.ErrNotFound
	case status == http.StatusConflict,
		status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "already"):
		base = domain.ErrConflict
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		base = domain.ErrInvalid
	default:
		return fmt.Errorf("%s: bad status %d: %s", service, status, msg)
	}
	if msg == "" {
		return base
	}
	return fmt.Errorf("%w: %s", base, msg)
}

// do performs one API call with client-side rate limiting and retries.
// 429 is retried for every method, transient 5xx only for GET, honoring
// Retry-After when provided.
func (c *Client) do(ctx context.Context, method, path, bearer string, in, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}
	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		payload = b
	}
	endpoint := path
	if i := strings.IndexByte(endpoint, '?'); i >= 0 {
		endpoint = endpoint[:i]
	}

	var lastErr error
	for i := 0; i < 4; i++ {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
		if err != nil {
			return err
		}
		req.Header.Set("apikey", c.key)
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		} else {
			req.Header.Set("Authorization", "Bearer "+c.key)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "travel-booking/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal(service, endpoint, 0, time.Since(start))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if method == http.MethodGet && i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal(service, endpoint, resp.StatusCode, time.Since(start))

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			defer resp.Body.Close()
			if out == nil || resp.StatusCode == http.StatusNoContent {
				_, _ = io.Copy(io.Discard, resp.Body)
				return nil
			}
			return json.NewDecoder(resp.Body).Decode(out)

		case resp.StatusCode == http.StatusTooManyRequests ||
			(method == http.MethodGet && resp.StatusCode >= 500):
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("%s: remote %d", service, resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			var ae apiError
			msg := strings.TrimSpace(string(b))
			if json.Unmarshal(b, &ae) == nil && ae.text() != "" {
				msg = ae.text()
			}
			return statusErr(resp.StatusCode, msg)
		}
	}
	return lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date); 0 if absent.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles from 200ms with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
