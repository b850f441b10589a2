package prefix

import (
	"fmt"
	"strings"

	"inet.af/netaddr"
)

// reserved holds special-purpose ranges that are never handed out as
// public cloud addresses. Documentation ranges are left out on purpose.
var reserved = mustSet(
	"0.0.0.0/8",     // this network
	"100.64.0.0/10", // shared address space
	"192.0.0.0/24",  // IETF protocol assignments
	"198.18.0.0/15", // benchmarking
	"240.0.0.0/4",   // reserved, includes limited broadcast
	"100::/64",      // discard-only
)

func mustSet(cidrs ...string) *netaddr.IPSet {
	var b netaddr.IPSetBuilder
	for _, c := range cidrs {
		b.AddPrefix(netaddr.MustParseIPPrefix(c))
	}
	set, err := b.IPSet()
	if err != nil {
		panic(err)
	}
	return set
}

// IsPrivate reports whether ip can never be a provider-issued public
// address: RFC 1918 and ULA space, loopback, link-local, multicast,
// unspecified and the reserved special-purpose ranges.
func IsPrivate(ip netaddr.IP) bool {
	ip = ip.Unmap()
	return ip.IsPrivate() ||
		ip.IsLoopback() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsMulticast() ||
		ip.IsUnspecified() ||
		reserved.Contains(ip)
}

// List is an immutable set of provider address ranges.
type List struct {
	prefixes []netaddr.IPPrefix
	set      *netaddr.IPSet
}

type InvalidPrefixError struct {
	Prefix string
	Err    error
}

func (e *InvalidPrefixError) Error() string {
	return fmt.Sprintf("invalid prefix %q: %s", e.Prefix, e.Err)
}

func (e *InvalidPrefixError) Unwrap() error {
	return e.Err
}

// Parse builds a List from CIDR strings. Host bits are masked off, so
// "198.51.100.7/24" is read as 198.51.100.0/24.
func Parse(cidrs []string) (*List, error) {
	prefixes := make([]netaddr.IPPrefix, 0, len(cidrs))
	for _, c := range cidrs {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		p, err := netaddr.ParseIPPrefix(c)
		if err != nil {
			return nil, &InvalidPrefixError{Prefix: c, Err: err}
		}
		prefixes = append(prefixes, p.Masked())
	}
	return New(prefixes)
}

func New(prefixes []netaddr.IPPrefix) (*List, error) {
	var b netaddr.IPSetBuilder
	for _, p := range prefixes {
		b.AddPrefix(p)
	}
	set, err := b.IPSet()
	if err != nil {
		return nil, fmt.Errorf("build prefix set: %w", err)
	}

	l := &List{
		prefixes: make([]netaddr.IPPrefix, len(prefixes)),
		set:      set,
	}
	copy(l.prefixes, prefixes)
	return l, nil
}

// Contains reports whether ip falls inside at least one range of the list.
func (l *List) Contains(ip netaddr.IP) bool {
	if l == nil {
		return false
	}
	return l.set.Contains(ip.Unmap())
}

func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.prefixes)
}
