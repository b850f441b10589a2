package ping

import (
	"context"
	"time"

	probing "github.com/prometheus-community/pro-bing"
)

// Pinger is the subset of probing.Pinger used by Check.
type Pinger interface {
	SetTimeout(d time.Duration)
	SetCount(n int)
	Run(ctx context.Context) error
	Statistics() *probing.Statistics
}

type realPinger struct {
	*probing.Pinger
}

func (p *realPinger) SetTimeout(d time.Duration)    { p.Timeout = d }
func (p *realPinger) SetCount(n int)                { p.Count = n }
func (p *realPinger) Run(ctx context.Context) error { return p.RunWithContext(ctx) }

var newPinger = func(host string) (Pinger, error) {
	p, err := probing.NewPinger(host)
	if err != nil {
		return nil, err
	}
	return &realPinger{Pinger: p}, nil
}

// Check sends a few ICMP echoes to host and reports whether any came back.
func Check(ctx context.Context, host string) (bool, error) {
	pinger, err := newPinger(host)
	if err != nil {
		return false, err
	}
	pinger.SetTimeout(5 * time.Second)
	pinger.SetCount(3)
	err = pinger.Run(ctx) // Blocks until finished.
	if err != nil {
		return false, err
	}
	stats := pinger.Statistics()
	return stats.PacketsRecv > 0, nil
}
