package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is the admin side of the NanoFab booking portal.
	DefaultBaseURL = "https://admin.nanofab.ualberta.ca"

	userAgent = "Mozilla/5.0 (compatible; NanofabCLI/1.0)"

	// loginTokenField is a hidden field the login form submits alongside
	// the credentials. The portal rejects logins without it.
	loginTokenField = "eaaa42a1464aa2b40a3ecfd68e2105d7"

	// bookingRetries bounds the nonce-then-fetch dance for the bookings
	// endpoint, which fails sporadically on the portal side.
	bookingRetries = 10
)

// Login holds portal credentials.
type Login struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Tool is one piece of bookable equipment, as the portal's tool search
// endpoint returns it.
type Tool struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Text  string `json:"text"`
	ID    string `json:"id"`
}

// postResponse is the JSON envelope every ajax POST comes back in. The
// payload lands in msg, except for redirects which use location.
type postResponse struct {
	Error    bool   `json:"error"`
	Msg      string `json:"msg"`
	Location string `json:"location"`
}

func (r postResponse) message() string {
	if r.Msg != "" {
		return r.Msg
	}
	return r.Location
}

// Client talks to the booking portal. The cookie jar carries the
// session; Authenticate must succeed before the booking endpoints work.
type Client struct {
	http        *http.Client
	baseURL     string
	log         zerolog.Logger
	lastRequest time.Time
}

// New builds a portal client with a fresh cookie jar.
func New(baseURL string, log zerolog.Logger) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http:    &http.Client{Jar: jar, Timeout: 15 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
	}, nil
}

// Authenticate logs the session in. The portal answers errors through
// the usual envelope, so a bad password surfaces as a readable error.
func (c *Client) Authenticate(ctx context.Context, login Login) error {
	_, err := c.postForm(ctx, "/ajax.login.php", url.Values{
		"uname":         {login.Username},
		"password":      {login.Password},
		loginTokenField: {"1"},
	})
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	return nil
}

// Tools fetches the full list of active tools.
func (c *Client) Tools(ctx context.Context) ([]Tool, error) {
	var tools []Tool
	if err := c.getJSON(ctx, "/ajax.get-tools.php?term=&hide_inactive=1", &tools); err != nil {
		return nil, fmt.Errorf("get tools: %w", err)
	}
	return tools, nil
}

// ToolByLabel resolves a tool by its exact label.
func (c *Client) ToolByLabel(ctx context.Context, label string) (Tool, error) {
	var tools []Tool
	path := "/ajax.get-tools.php?term=" + url.QueryEscape(label) + "&hide_inactive=1"
	if err := c.getJSON(ctx, path, &tools); err != nil {
		return Tool{}, fmt.Errorf("get tool: %w", err)
	}
	for _, tool := range tools {
		if tool.Label == label {
			return tool, nil
		}
	}
	return Tool{}, fmt.Errorf("no tool matches label %q", label)
}

// KeepAlive pings the portal every 10 minutes so the session cookies
// stay fresh. Blocks until the context is cancelled.
func (c *Client) KeepAlive(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Ping(ctx); err != nil {
				c.log.Warn().Err(err).Msg("session keepalive failed")
				continue
			}
			c.log.Debug().Msg("session keepalive ok")
		}
	}
}

// Ping issues a bare GET against the portal root.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// nonce loads the named modal and pulls the nonce pair out of its
// hidden form fields. The bookings endpoint requires a fresh pair per
// request.
func (c *Client) nonce(ctx context.Context, modal string) (nonce, nonceKey string, err error) {
	fragment, err := c.postForm(ctx, "/ajax.load-modal.php", url.Values{
		"class":  {"ajax-panel"},
		"source": {"ajax.load-modal.php"},
		"load":   {modal},
	})
	if err != nil {
		return "", "", err
	}
	return extractNonce(fragment)
}

// postForm sends an url-encoded POST and unwraps the response envelope.
func (c *Client) postForm(ctx context.Context, path string, form url.Values) (string, error) {
	c.rateLimit()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	var envelope postResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", fmt.Errorf("response was not the expected envelope: %w", err)
	}
	if envelope.Error {
		return "", fmt.Errorf("portal: %s", envelope.message())
	}
	return envelope.message(), nil
}

// getJSON fetches a JSON endpoint into v.
func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	c.rateLimit()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

// rateLimit spaces requests out with a little jitter so bursts of
// scraping do not hammer the portal.
func (c *Client) rateLimit() {
	delay := time.Duration(200+rand.Intn(301)) * time.Millisecond
	if elapsed := time.Since(c.lastRequest); elapsed < delay {
		time.Sleep(delay - elapsed)
	}
	c.lastRequest = time.Now()
}

// retry reruns fn until it succeeds or the attempts are used up.
func retry[T any](ctx context.Context, attempts int, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		v, err := fn()
		if err == nil {
			return v, nil
		}
		lastErr = err
	}
	return zero, fmt.Errorf("failed %d times: %w", attempts, lastErr)
}
