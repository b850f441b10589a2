package dig

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
)

const maxRetry = 3

type ResolveError struct {
	Domain string
	Type   string
	Rcode  int
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("failed to resolve %s record for %s: %s", e.Type, e.Domain, dns.RcodeToString[e.Rcode])
}

// Resolver looks up the IPv4 addresses a name points to.
type Resolver interface {
	LookupA(ctx context.Context, domain string) ([]string, error)
}

// CurrentResolver is used by LookupA. Tests may replace it.
var CurrentResolver Resolver = realResolver{}

func LookupA(ctx context.Context, domain string) ([]string, error) {
	return CurrentResolver.LookupA(ctx, domain)
}

var loadClientConfig = func() (*dns.ClientConfig, error) {
	return dns.ClientConfigFromFile("/etc/resolv.conf")
}

var exchangeFunc = func(ctx context.Context, c *dns.Client, m *dns.Msg, addr string) (*dns.Msg, time.Duration, error) {
	return c.ExchangeContext(ctx, m, addr)
}

type realResolver struct{}

// LookupA asks the system resolver for the A records of domain. CNAME chains
// are followed by the recursive resolver; only the final addresses are kept.
func (realResolver) LookupA(ctx context.Context, domain string) ([]string, error) {
	config, err := loadClientConfig()
	if err != nil {
		return nil, fmt.Errorf("load resolver config: %w", err)
	}
	if len(config.Servers) == 0 {
		return nil, fmt.Errorf("no nameservers configured")
	}

	c := &dns.Client{
		Timeout: 15 * time.Second,
	}

	m := &dns.Msg{}
	m.SetQuestion(dns.Fqdn(domain), dns.TypeA)
	m.RecursionDesired = true

	var r *dns.Msg
	retries := 0
	for {
		retries++

		if retries > maxRetry {
			return nil, fmt.Errorf("failed to resolve %s: timed out after %d attempts", domain, maxRetry)
		}

		r, _, err = exchangeFunc(ctx, c, m, net.JoinHostPort(config.Servers[0], config.Port))
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return nil, err
		}
		break
	}

	if r.Rcode != dns.RcodeSuccess {
		return nil, &ResolveError{Domain: domain, Type: "A", Rcode: r.Rcode}
	}

	ips := []string{}
	for _, rr := range r.Answer {
		if a, ok := rr.(*dns.A); ok {
			ips = append(ips, a.A.String())
		}
	}
	return ips, nil
}
