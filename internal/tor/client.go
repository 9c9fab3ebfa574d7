package tor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// checkProxyTimeout bounds the SOCKS5 handshake used to verify the proxy.
// This is a local loopback connection, so a short timeout is enough.
const checkProxyTimeout = 2 * time.Second

// Client provides connectivity through the local Tor SOCKS5 proxy.
// It wraps a SOCKS5 dialer and builds HTTP clients whose traffic exits
// through Tor, which is what the IP verifier needs to observe the
// daemon's current exit address.
type Client struct {
	// proxyAddress is the SOCKS5 proxy in "host:port" form.
	proxyAddress string

	// dialer is the cached SOCKS5 dialer.
	dialer proxy.Dialer

	// timeout is the default timeout for HTTP clients created here.
	timeout time.Duration
}

// NewClient creates a client for the SOCKS5 proxy at proxyAddress
// ("host:port"). The address format is validated but no connection is
// made; call CheckConnection to verify the proxy is actually up.
//
// Separating construction from the connectivity check lets the supervisor
// create the client before the daemon has finished starting.
func NewClient(proxyAddress string, timeout time.Duration) (*Client, error) {
	if !isValidProxyAddress(proxyAddress) {
		return nil, ErrInvalidProxyAddress
	}

	// Tor's SOCKS port does not require authentication by default.
	dialer, err := proxy.SOCKS5("tcp", proxyAddress, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	return &Client{
		proxyAddress: proxyAddress,
		dialer:       dialer,
		timeout:      timeout,
	}, nil
}

// isValidProxyAddress checks for "host:port" with a port in 1-65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}

// SOCKS5 protocol constants for the handshake check.
const (
	socks5Version      = 0x05
	socks5AuthNone     = 0x00
	socks5AuthNoAccept = 0xFF
	socks5CmdConnect   = 0x01
	socks5AddrDomain   = 0x03

	// socks5TestHost is a reserved name (RFC 2606) used only to verify the
	// proxy processes CONNECT requests. The connection itself is expected
	// to fail; any well-formed SOCKS5 reply proves the proxy works.
	socks5TestHost = "connectivity-check.invalid"
)

// CheckConnection verifies that a SOCKS5 proxy answers at the configured
// address. It performs a real protocol handshake rather than an HTTP
// probe, so a non-proxy listener on the port is detected reliably.
func (c *Client) CheckConnection(ctx context.Context) ProxyStatus {
	ctx, cancel := context.WithTimeout(ctx, checkProxyTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.proxyAddress)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return ProxyStatusTimeout
		}
		return ProxyStatusCannotConnect
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(checkProxyTimeout)); err != nil {
		return ProxyStatusCannotConnect
	}

	// Version negotiation: offer "no authentication" only.
	if _, err := conn.Write([]byte{socks5Version, 0x01, socks5AuthNone}); err != nil {
		return ProxyStatusCannotConnect
	}

	authResp := make([]byte, 2)
	if _, err := io.ReadFull(conn, authResp); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ProxyStatusTimeout
		}
		return ProxyStatusWrongType
	}
	if authResp[0] != socks5Version {
		return ProxyStatusWrongType
	}
	if authResp[1] == socks5AuthNoAccept || authResp[1] != socks5AuthNone {
		return ProxyStatusWrongType
	}

	// CONNECT to a guaranteed-nonexistent host. Tor replies with a failure
	// code, which is fine: a well-formed reply is all the proof needed.
	req := []byte{
		socks5Version,
		socks5CmdConnect,
		0x00, // reserved
		socks5AddrDomain,
		byte(len(socks5TestHost)),
	}
	req = append(req, []byte(socks5TestHost)...)
	req = append(req, 0x00, 0x50) // port 80

	if _, err := conn.Write(req); err != nil {
		return ProxyStatusCannotConnect
	}

	resp := make([]byte, 4)
	if _, err := io.ReadFull(conn, resp); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ProxyStatusTimeout
		}
		return ProxyStatusWrongType
	}
	if resp[0] != socks5Version {
		return ProxyStatusWrongType
	}

	return ProxyStatusOK
}

// NewHTTPClient returns an HTTP client whose connections are dialed
// through the SOCKS5 proxy. It is tuned for the IP-echo workload: tiny
// plaintext responses from clearnet services, one request at a time.
//
// Redirects are refused because echo services answer directly; a redirect
// indicates a captive portal or tampering, and following it could leak
// the request outside Tor.
func (c *Client) NewHTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext: func(_ context.Context, network, addr string) (net.Conn, error) {
			return c.dialer.Dial(network, addr)
		},
		// One endpoint is queried at a time; keep the pool minimal so idle
		// sockets don't pin Tor circuits.
		MaxIdleConns:        2,
		MaxIdleConnsPerHost: 1,
		IdleConnTimeout:     30 * time.Second,
		DisableCompression:  true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   c.timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// ProxyAddress returns the configured proxy address.
func (c *Client) ProxyAddress() string {
	return c.proxyAddress
}

// ProxyURL returns the proxy address as a socks5:// URL, for display.
func (c *Client) ProxyURL() string {
	return "socks5://" + c.proxyAddress
}

// Dialer returns the underlying SOCKS5 dialer.
func (c *Client) Dialer() proxy.Dialer {
	return c.dialer
}

// Host returns the proxy host without the port.
func (c *Client) Host() string {
	host := c.proxyAddress
	if i := strings.LastIndex(host, ":"); i >= 0 {
		host = host[:i]
	}
	return host
}
