package verifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"time"
)

// ErrNoIP is returned when every endpoint and retry has been exhausted
// without obtaining a valid address. Callers treat it as a degraded
// observation, never as a fatal condition.
var ErrNoIP = errors.New("could not determine exit IP from any endpoint")

// maxBodySize caps how much of an echo response is read. Real echo
// bodies are a dotted quad or a small JSON object; anything bigger is
// not the service we think it is.
const maxBodySize = 4 * 1024

// Verifier determines the current Tor exit IP by querying an ordered
// list of public IP-echo endpoints through the SOCKS proxy.
//
// The HTTP client is injected: production passes a Tor-routed client,
// tests pass one that reaches httptest servers directly.
type Verifier struct {
	client    *http.Client
	logger    *slog.Logger
	endpoints []string

	// retries is the number of attempts per endpoint.
	retries int

	// backoff is the pause between failed attempts on the same endpoint.
	backoff time.Duration

	// sleep is swapped out in tests.
	sleep func(time.Duration)
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithLogger sets the logger; defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Verifier) {
		v.logger = logger
	}
}

// WithRetries sets the per-endpoint attempt count. Values below one are
// coerced to one.
func WithRetries(n int) Option {
	return func(v *Verifier) {
		if n < 1 {
			n = 1
		}
		v.retries = n
	}
}

// WithBackoff sets the pause between attempts on the same endpoint.
func WithBackoff(d time.Duration) Option {
	return func(v *Verifier) {
		v.backoff = d
	}
}

// withSleep replaces the sleep function. Tests only.
func withSleep(fn func(time.Duration)) Option {
	return func(v *Verifier) {
		v.sleep = fn
	}
}

// New creates a Verifier querying the given endpoints in order.
func New(client *http.Client, endpoints []string, opts ...Option) *Verifier {
	v := &Verifier{
		client:    client,
		endpoints: append([]string(nil), endpoints...),
		retries:   3,
		backoff:   2 * time.Second,
		sleep:     time.Sleep,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.logger == nil {
		v.logger = slog.Default()
	}
	return v
}

// Probe returns the current exit IP. Endpoints are tried in order with up
// to the configured retries each; the first response that yields a valid
// IPv4 address wins and no further endpoint is contacted. Exhausting
// everything returns ErrNoIP.
func (v *Verifier) Probe(ctx context.Context) (string, error) {
	for _, endpoint := range v.endpoints {
		ip, err := v.probeEndpoint(ctx, endpoint)
		if err == nil {
			return ip, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		v.logger.Debug("endpoint exhausted", "endpoint", endpoint, "error", err)
	}
	return "", ErrNoIP
}

// probeEndpoint issues up to v.retries requests against one endpoint.
func (v *Verifier) probeEndpoint(ctx context.Context, endpoint string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= v.retries; attempt++ {
		if attempt > 1 {
			v.sleep(v.backoff)
		}

		ip, err := v.fetch(ctx, endpoint)
		if err == nil {
			return ip, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		v.logger.Debug("probe attempt failed",
			"endpoint", endpoint,
			"attempt", attempt,
			"error", err,
		)
	}
	return "", lastErr
}

// fetch performs a single GET and extracts the address from the body.
func (v *Verifier) fetch(ctx context.Context, endpoint string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d from %s", resp.StatusCode, endpoint)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", err
	}

	ip, ok := ExtractIP(string(body))
	if !ok {
		return "", fmt.Errorf("no valid IPv4 address in response from %s", endpoint)
	}
	return ip, nil
}

// ExtractIP pulls an IPv4 address out of an echo response body using two
// parse strategies: the body as a bare dotted quad, or as a JSON object
// with an "origin" key holding a comma-separated address list (httpbin's
// format), of which the first entry is taken.
func ExtractIP(body string) (string, bool) {
	s := strings.TrimSpace(body)

	if strings.HasPrefix(s, "{") {
		var payload struct {
			Origin string `json:"origin"`
		}
		if err := json.Unmarshal([]byte(s), &payload); err != nil {
			return "", false
		}
		first, _, _ := strings.Cut(payload.Origin, ",")
		s = strings.TrimSpace(first)
	}

	if !IsValidIPv4(s) {
		return "", false
	}
	return s, true
}

// IsValidIPv4 reports whether s is a syntactically valid dotted-quad
// IPv4 address: four dot-separated segments, each an integer in 0-255.
func IsValidIPv4(s string) bool {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return false
	}
	return addr.Is4()
}
