package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/dnscache"
)

type hostResolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

var r hostResolver = &dnscache.Resolver{}

// maxBody bounds downloads; the published ranges document is a few MB.
const maxBody = 64 << 20

type HTTPError struct {
	URL    string
	Status int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Status)
}

func lookupWithRetry(ctx context.Context, host string, retries int) (addrs []string, err error) {
	for i := 0; i < retries; i++ {
		addrs, err = r.LookupHost(ctx, host)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
		}
		return
	}
	return nil, err
}

func httpDialContext(ctx context.Context, network string, addr string) (conn net.Conn, err error) {
	// addr has form host:port and the port is always present
	colonPos := strings.LastIndexByte(addr, ':')
	host := addr[:colonPos]

	ips, err := lookupWithRetry(ctx, host, 5)
	if err != nil {
		return nil, err
	}

	port := addr[colonPos+1:]
	for _, ip := range ips {
		var dialer net.Dialer
		conn, err = dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
		if err == nil {
			break
		}
	}
	return
}

var cli = http.Client{
	Timeout: 30 * time.Second,
	Transport: &http.Transport{
		DialContext:         httpDialContext,
		TLSHandshakeTimeout: 10 * time.Second,
	},
}

// Get downloads url and returns its body. Anything but 200 is an *HTTPError.
func Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := cli.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{URL: url, Status: resp.StatusCode}
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBody))
}

// JSON downloads url and decodes it into v.
func JSON(ctx context.Context, url string, v interface{}) error {
	body, err := Get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}
