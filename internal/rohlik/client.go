package rohlik

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/greenbasket/rohlikd/internal/metrics"
)

// The upstream is a consumer web app, not a documented API. Session expiry
// is detected reactively via 401/403 because no expiry contract is
// published; cookies are round-tripped wholesale from Set-Cookie.

const (
	loginPath  = "/services/frontend-service/login"
	logoutPath = "/services/frontend-service/logout"

	// Bound on a hung dial/read; the upstream publishes no latency contract.
	requestTimeout = 30 * time.Second

	userAgent = "rohlikd/1.0 (+https://github.com/greenbasket/rohlikd)"
)

// Mirror domains per country code. The sites share one frontend-service API.
var regionBaseURLs = map[string]string{
	"cz": "https://www.rohlik.cz",
	"at": "https://www.gurkerl.at",
	"de": "https://www.knuspr.de",
	"hu": "https://www.kifli.hu",
	"ro": "https://www.sezamo.ro",
	"it": "https://www.sezamo.it",
}

// Credentials are immutable for the lifetime of a client; changing account
// or region means constructing a new client.
type Credentials struct {
	Username    string
	Password    string
	CountryCode string
}

type Client struct {
	creds   Credentials
	baseURL string

	httpClient *http.Client
	pacer      *RequestPacer
	session    *Session

	// Serializes logins so concurrent 401s produce one authoritative
	// re-login instead of a stampede.
	loginMutex sync.Mutex
}

func MakeClient(creds Credentials, pacer *RequestPacer) (*Client, error) {
	baseURL, ok := regionBaseURLs[strings.ToLower(creds.CountryCode)]
	if !ok {
		return nil, fmt.Errorf("unknown country code %q", creds.CountryCode)
	}
	if pacer == nil {
		pacer = MakeRequestPacer(DefaultRequestSpacing)
	}
	return &Client{
		creds:      creds,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		pacer:      pacer,
		session:    &Session{},
	}, nil
}

func (c *Client) Session() *Session {
	return c.session
}

// roundTrip performs exactly one rate-limited HTTP call. It never retries;
// auth handling lives in execute.
func (c *Client) roundTrip(ctx context.Context, method, path string, payload interface{}) (status int, statusText string, body []byte, err error) {
	if err := c.pacer.Throttle(ctx); err != nil {
		return 0, "", nil, err
	}

	var reqBody *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, "", nil, errors.Wrap(err, "encoding request payload")
		}
		reqBody = bytes.NewReader(raw)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, "", nil, errors.Wrap(err, "building request")
	}
	req = req.WithContext(ctx)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie := c.session.CookieHeader(); cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.Incr("client.requests", []string{"outcome:transport_error"})
		return 0, "", nil, errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()
	metrics.Distribution("client.request_ms", float64(time.Since(start).Milliseconds()), nil)

	// Refresh the whole cookie blob whenever the upstream rotates it.
	if setCookies := resp.Header["Set-Cookie"]; len(setCookies) > 0 {
		c.session.SetCookieHeader(joinSetCookies(setCookies))
	}

	raw, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, resp.Status, nil, errors.Wrap(err, "reading response body")
	}
	log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Msg("upstream call")
	return resp.StatusCode, http.StatusText(resp.StatusCode), raw, nil
}

// execute issues an authenticated call with one transparent re-login retry
// on 401/403. The retry never recurses: a second auth failure is final.
func (c *Client) execute(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	generation := c.session.Generation()
	status, statusText, body, err := c.roundTrip(ctx, method, path, payload)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		if err := c.reloginIfStale(ctx, generation); err != nil {
			return nil, err
		}
		status, statusText, body, err = c.roundTrip(ctx, method, path, payload)
		if err != nil {
			return nil, err
		}
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			metrics.Incr("client.requests", []string{"outcome:auth_failed"})
			return nil, &AuthError{Status: status}
		}
	}

	if status < 200 || status >= 300 {
		metrics.Incr("client.requests", []string{"outcome:http_error"})
		return nil, &HttpError{Status: status, StatusText: statusText}
	}
	metrics.Incr("client.requests", []string{"outcome:ok"})
	return body, nil
}

// reloginIfStale performs a login unless another caller already refreshed
// the session since staleGeneration was snapshotted.
func (c *Client) reloginIfStale(ctx context.Context, staleGeneration uint64) error {
	c.loginMutex.Lock()
	defer c.loginMutex.Unlock()
	if c.session.Generation() != staleGeneration {
		return nil
	}
	log.Info().Msg("session rejected upstream => re-logging in")
	return c.login(ctx)
}

func (c *Client) Login(ctx context.Context) error {
	c.loginMutex.Lock()
	defer c.loginMutex.Unlock()
	return c.login(ctx)
}

// login must be called with loginMutex held.
func (c *Client) login(ctx context.Context) error {
	payload := map[string]string{
		"email":    c.creds.Username,
		"password": c.creds.Password,
	}
	status, _, body, err := c.roundTrip(ctx, http.MethodPost, loginPath, payload)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		metrics.Incr("client.logins", []string{"outcome:rejected"})
		return &LoginError{Status: status, Message: firstUpstreamMessage(body)}
	}

	var decoded struct {
		Data struct {
			User struct {
				ID looseString `json:"id"`
			} `json:"user"`
			Address struct {
				ID looseString `json:"id"`
			} `json:"address"`
		} `json:"data"`
	}
	_ = json.Unmarshal(body, &decoded)

	userID := string(decoded.Data.User.ID)
	if userID == "" {
		// Accepted status without a user id is a protocol violation, not a
		// silent success.
		metrics.Incr("client.logins", []string{"outcome:no_user_id"})
		return &LoginError{Status: status, Message: "accepted login carried no user id"}
	}

	c.session.Populate("", userID, string(decoded.Data.Address.ID))
	metrics.Incr("client.logins", []string{"outcome:ok"})
	log.Info().Str("user_id", userID).Msg("logged in")
	return nil
}

// Logout clears the session regardless of whether the upstream call lands.
func (c *Client) Logout(ctx context.Context) error {
	_, _, _, err := c.roundTrip(ctx, http.MethodPost, logoutPath, nil)
	c.session.Clear()
	if err != nil {
		log.Info().Err(err).Msg("logout call failed; session cleared locally")
	}
	return err
}

func firstUpstreamMessage(body []byte) string {
	var decoded struct {
		Messages []struct {
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil || len(decoded.Messages) == 0 {
		return ""
	}
	return decoded.Messages[0].Content
}

// joinSetCookies collapses Set-Cookie headers into one Cookie blob. Only the
// name=value pairs are kept; attributes are server-side concerns.
func joinSetCookies(setCookies []string) string {
	pairs := make([]string, 0, len(setCookies))
	for _, sc := range setCookies {
		if i := strings.Index(sc, ";"); i >= 0 {
			sc = sc[:i]
		}
		sc = strings.TrimSpace(sc)
		if sc != "" {
			pairs = append(pairs, sc)
		}
	}
	return strings.Join(pairs, "; ")
}
