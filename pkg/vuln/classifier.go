package vuln

import (
	"context"

	"inet.af/netaddr"

	"github.com/pedrokiefer/dangleip/pkg/prefix"
)

type Reason string

const (
	ReasonPrivate         Reason = "private"
	ReasonRecentlySeen    Reason = "recently-seen"
	ReasonProviderRange   Reason = "provider-range"
	ReasonOutsideProvider Reason = "outside-provider-range"
)

// Verdict is the outcome of classifying one address.
type Verdict struct {
	IP         netaddr.IP `json:"ip"`
	Vulnerable bool       `json:"vulnerable"`
	Reason     Reason     `json:"reason"`
}

// SeenGate reports whether an address was recently allocated to a monitored
// resource.
type SeenGate interface {
	RecentlySeen(ctx context.Context, ip string) (bool, error)
}

// Classifier decides whether a DNS A-record address is a takeover risk.
type Classifier struct {
	gate SeenGate
}

func NewClassifier(gate SeenGate) *Classifier {
	return &Classifier{gate: gate}
}

// Classify checks, in order: private space, recent observation, provider
// ranges. Addresses outside the provider ranges are not vulnerable. A gate
// error is returned as is, with no verdict.
func (c *Classifier) Classify(ctx context.Context, ip netaddr.IP, prefixes *prefix.List) (Verdict, error) {
	ip = ip.Unmap()
	v := Verdict{IP: ip}

	if prefix.IsPrivate(ip) {
		v.Reason = ReasonPrivate
		return v, nil
	}

	seen, err := c.gate.RecentlySeen(ctx, ip.String())
	if err != nil {
		return Verdict{}, err
	}
	if seen {
		v.Reason = ReasonRecentlySeen
		return v, nil
	}

	if prefixes.Contains(ip) {
		v.Vulnerable = true
		v.Reason = ReasonProviderRange
		return v, nil
	}

	v.Reason = ReasonOutsideProvider
	return v, nil
}

func (c *Classifier) IsVulnerable(ctx context.Context, ip netaddr.IP, prefixes *prefix.List) (bool, error) {
	v, err := c.Classify(ctx, ip, prefixes)
	if err != nil {
		return false, err
	}
	return v.Vulnerable, nil
}
