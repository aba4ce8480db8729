package wattbox

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/icholy/digest"
	"github.com/rs/zerolog/log"
)

// Fixed paths served by every WB-800 firmware revision seen so far.
const (
	statusPath = "/main"
	loginPath  = "/login"
	onPath     = "/outlet/on"
	offPath    = "/outlet/off"
	resetPath  = "/outlet/reset"
)

const (
	defaultTimeout = 10 * time.Second
	userAgent      = "wattboxctl"
)

// AuthScheme identifies which credential-presentation strategy the device
// firmware accepted during negotiation.
type AuthScheme int

const (
	AuthUnknown AuthScheme = iota
	AuthBasic
	AuthDigest
	AuthSession
	AuthFailed
)

func (s AuthScheme) String() string {
	switch s {
	case AuthBasic:
		return "basic"
	case AuthDigest:
		return "digest"
	case AuthSession:
		return "session"
	case AuthFailed:
		return "failed"
	}
	return "unknown"
}

// Config holds everything needed to reach one PDU.
type Config struct {
	// Host is a hostname, host:port, or full base URL. A missing scheme
	// defaults to http://.
	Host     string
	Username string
	Password string
	// Insecure skips TLS certificate verification for https hosts.
	Insecure bool
	// Timeout bounds each request; defaults to 10s.
	Timeout time.Duration
	// Transport overrides the HTTP transport. A supplied transport is
	// not released by Close().
	Transport http.RoundTripper
}

// Client is a WB-800 device client. It negotiates the authentication
// scheme once, on the first operation, and reuses it for every request
// after that. Negotiation is serialized behind a mutex so concurrent
// callers cannot interleave login probes; ordinary fetches and commands
// may run concurrently once a scheme is confirmed.
type Client struct {
	baseURL  string
	username string
	password string
	timeout  time.Duration

	transport     http.RoundTripper
	ownsTransport bool
	jar           http.CookieJar

	mu      sync.Mutex
	scheme  AuthScheme
	redir   *http.Client // follows redirects; page fetches and form login
	noredir *http.Client // redirects disabled; probes and command GETs
}

// NewClient builds a client for the PDU described by config. No network
// I/O happens until the first operation.
func NewClient(config Config) (*Client, error) {
	baseURL, err := normalizeBaseURL(config.Host)
	if err != nil {
		return nil, err
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	transport := config.Transport
	owns := false
	if transport == nil {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: config.Insecure},
		}
		owns = true
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %v", err)
	}

	c := &Client{
		baseURL:       baseURL,
		username:      config.Username,
		password:      config.Password,
		timeout:       timeout,
		transport:     transport,
		ownsTransport: owns,
		jar:           jar,
	}
	c.buildClients(transport)
	return c, nil
}

// normalizeBaseURL accepts a bare host, host:port, or full URL and returns
// a cleaned base URL with an http:// scheme when none was given.
func normalizeBaseURL(host string) (string, error) {
	if host == "" {
		return "", fmt.Errorf("no PDU host provided")
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	uri, err := url.ParseRequestURI(host)
	if err != nil {
		return "", fmt.Errorf("failed to parse PDU host %q: %v", host, err)
	}
	uri.Path = strings.TrimSuffix(uri.Path, "/")
	return uri.String(), nil
}

func (c *Client) buildClients(rt http.RoundTripper) {
	c.redir = &http.Client{Transport: rt, Jar: c.jar, Timeout: c.timeout}
	c.noredir = &http.Client{
		Transport: rt,
		Jar:       c.jar,
		Timeout:   c.timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// FetchStatus loads the status page once and derives both the outlet list
// and the aggregate metrics from it. When the page omits total watt/amp
// readings they are derived as the sum of the per-outlet readings that
// are present; outlets with no reading are excluded, not counted as zero.
func (c *Client) FetchStatus(ctx context.Context) (*DeviceStatus, error) {
	page, err := c.fetchStatusPage(ctx)
	if err != nil {
		return nil, err
	}
	status := &DeviceStatus{
		Outlets: ParseOutlets(page),
		Metrics: ParseMetrics(page),
	}
	deriveTotals(&status.Metrics, status.Outlets)
	return status, nil
}

// FetchOutlets returns the current outlet list, sorted ascending by
// outlet number.
func (c *Client) FetchOutlets(ctx context.Context) ([]OutletInfo, error) {
	page, err := c.fetchStatusPage(ctx)
	if err != nil {
		return nil, err
	}
	return ParseOutlets(page), nil
}

// FetchMetrics returns the aggregate device metrics, deriving missing
// totals from the per-outlet readings of the same page load.
func (c *Client) FetchMetrics(ctx context.Context) (DeviceMetrics, error) {
	status, err := c.FetchStatus(ctx)
	if err != nil {
		return DeviceMetrics{}, err
	}
	return status.Metrics, nil
}

// TurnOn powers on an outlet. The outlet state is not re-fetched; callers
// decide whether to confirm with a follow-up fetch.
func (c *Client) TurnOn(ctx context.Context, outlet int) error {
	return c.command(ctx, onPath, outlet)
}

// TurnOff powers off an outlet.
func (c *Client) TurnOff(ctx context.Context, outlet int) error {
	return c.command(ctx, offPath, outlet)
}

// Reset power-cycles an outlet. This also works on reset-only outlets,
// whose firmware refuses direct on/off toggling.
func (c *Client) Reset(ctx context.Context, outlet int) error {
	return c.command(ctx, resetPath, outlet)
}

// AuthScheme reports the currently negotiated scheme. Before the first
// operation this is AuthUnknown.
func (c *Client) AuthScheme() AuthScheme {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scheme
}

// InvalidateAuth discards the negotiated scheme and any session cookies,
// forcing a fresh negotiation on the next operation.
func (c *Client) InvalidateAuth() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scheme = AuthUnknown
	if jar, err := cookiejar.New(nil); err == nil {
		c.jar = jar
	}
	c.buildClients(c.transport)
}

// Close releases the transport if the client created it. An externally
// supplied transport is left alone.
func (c *Client) Close() {
	if !c.ownsTransport {
		return
	}
	if t, ok := c.transport.(*http.Transport); ok {
		t.CloseIdleConnections()
	}
}

func (c *Client) command(ctx context.Context, path string, outlet int) error {
	if err := c.ensureAuth(ctx); err != nil {
		return err
	}
	hc, basic := c.commandClient()
	query := url.Values{"o": {strconv.Itoa(outlet)}}
	resp, err := c.send(ctx, hc, path, query, basic)
	if err != nil {
		return err
	}
	drain(resp)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusFound {
		return &StatusError{URL: c.baseURL + path, StatusCode: resp.StatusCode}
	}
	return nil
}

func (c *Client) fetchStatusPage(ctx context.Context) (string, error) {
	if err := c.ensureAuth(ctx); err != nil {
		return "", err
	}
	hc, basic := c.pageClient()
	resp, err := c.send(ctx, hc, statusPath, nil, basic)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{URL: c.baseURL + statusPath, StatusCode: resp.StatusCode}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{URL: c.baseURL + statusPath, Err: err}
	}
	return string(body), nil
}

// pageClient and commandClient pick the negotiated client under the lock,
// along with whether a Basic Authorization header still has to be added
// per request (session cookies and the digest transport carry themselves).
func (c *Client) pageClient() (*http.Client, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.redir, c.scheme == AuthBasic
}

func (c *Client) commandClient() (*http.Client, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.noredir, c.scheme == AuthBasic
}

// ensureAuth runs the negotiation state machine at most once. A confirmed
// scheme short-circuits; a failed negotiation keeps failing without
// re-probing until InvalidateAuth() is called. Transport errors during the
// probe leave the scheme undecided so an unreachable device is retried on
// the next call.
func (c *Client) ensureAuth(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.scheme {
	case AuthBasic, AuthDigest, AuthSession:
		return nil
	case AuthFailed:
		return &AuthError{Reason: "no authentication strategy accepted by device"}
	}
	return c.negotiate(ctx)
}

// negotiate probes the status path with Basic credentials and commits to
// whichever of the three known schemes the firmware answers with. Caller
// holds c.mu.
func (c *Client) negotiate(ctx context.Context) error {
	resp, err := c.send(ctx, c.noredir, statusPath, nil, true)
	if err != nil {
		return err
	}
	drain(resp)

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNotModified:
		c.scheme = AuthBasic

	case isRedirect(resp) && strings.Contains(resp.Header.Get("Location"), loginPath):
		if err := c.formLogin(ctx); err != nil {
			return c.failNegotiation(err)
		}
		c.scheme = AuthSession

	case resp.StatusCode == http.StatusUnauthorized && strings.Contains(resp.Header.Get("WWW-Authenticate"), "Digest"):
		if err := c.negotiateDigest(ctx); err != nil {
			return c.failNegotiation(err)
		}

	default:
		// Unknown firmware variant. Present Basic credentials
		// optimistically and let the first real operation surface the
		// failure if that guess is wrong.
		c.scheme = AuthBasic
	}

	log.Debug().Str("scheme", c.scheme.String()).Str("host", c.baseURL).Msg("negotiated PDU auth scheme")
	return nil
}

// failNegotiation marks the client failed for auth errors but leaves the
// scheme undecided on transport errors, which only mean the device went
// away mid-handshake.
func (c *Client) failNegotiation(err error) error {
	if _, ok := err.(*TransportError); !ok {
		c.scheme = AuthFailed
	}
	return err
}

// negotiateDigest switches to a digest-capable transport and re-probes.
// Some firmwares still bounce the digest probe to the login form, in
// which case the form flow runs over the digest transport.
func (c *Client) negotiateDigest(ctx context.Context) error {
	rt := &digest.Transport{
		Username:  c.username,
		Password:  c.password,
		Transport: c.transport,
	}
	c.buildClients(rt)

	resp, err := c.send(ctx, c.noredir, statusPath, nil, false)
	if err != nil {
		return err
	}
	drain(resp)

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNotModified:
		c.scheme = AuthDigest
		return nil
	case isRedirect(resp) && strings.Contains(resp.Header.Get("Location"), loginPath):
		if err := c.formLogin(ctx); err != nil {
			return err
		}
		c.scheme = AuthSession
		return nil
	}
	return &AuthError{Reason: fmt.Sprintf("digest probe rejected with HTTP %d", resp.StatusCode)}
}

// formLogin performs the cookie/form handshake: GET the login page to
// seed any session cookie, POST the credentials, then re-verify that the
// status page is actually reachable.
func (c *Client) formLogin(ctx context.Context) error {
	resp, err := c.send(ctx, c.redir, loginPath, nil, false)
	if err != nil {
		return err
	}
	drain(resp)

	form := url.Values{
		"username": {c.username},
		"password": {c.password},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginPath, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create login request: %v", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err = c.redir.Do(req)
	if err != nil {
		return &TransportError{URL: c.baseURL + loginPath, Err: err}
	}
	drain(resp)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusFound {
		return &AuthError{Reason: fmt.Sprintf("login rejected with HTTP %d", resp.StatusCode)}
	}

	resp, err = c.send(ctx, c.redir, statusPath, nil, false)
	if err != nil {
		return err
	}
	drain(resp)
	if resp.StatusCode != http.StatusOK {
		return &AuthError{Reason: fmt.Sprintf("login did not grant access: HTTP %d", resp.StatusCode)}
	}
	return nil
}

func (c *Client) send(ctx context.Context, hc *http.Client, path string, query url.Values, withBasic bool) (*http.Response, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if withBasic {
		req.SetBasicAuth(c.username, c.password)
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, &TransportError{URL: target, Err: err}
	}
	return resp, nil
}

// deriveTotals fills missing aggregate totals from the per-outlet
// readings of the same page. Outlets without a reading are excluded from
// the sum; if no outlet has one, the total stays nil so "no data yet"
// remains distinguishable from a real zero.
func deriveTotals(metrics *DeviceMetrics, outlets []OutletInfo) {
	if metrics.TotalWatts == nil {
		metrics.TotalWatts = sumPresent(outlets, func(o OutletInfo) *float64 { return o.Watts })
	}
	if metrics.TotalAmps == nil {
		metrics.TotalAmps = sumPresent(outlets, func(o OutletInfo) *float64 { return o.Amps })
	}
}

func sumPresent(outlets []OutletInfo, field func(OutletInfo) *float64) *float64 {
	var sum float64
	found := false
	for _, o := range outlets {
		if v := field(o); v != nil {
			sum += *v
			found = true
		}
	}
	if !found {
		return nil
	}
	sum = round2(sum)
	return &sum
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func isRedirect(resp *http.Response) bool {
	return resp.StatusCode >= 300 && resp.StatusCode < 400
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
