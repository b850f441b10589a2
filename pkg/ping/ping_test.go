package ping

import (
	"context"
	"errors"
	"testing"
	"time"

	probing "github.com/prometheus-community/pro-bing"
	"github.com/stretchr/testify/require"
)

type fakePinger struct {
	timeout time.Duration
	count   int
	runErr  error
	stats   *probing.Statistics
}

func (f *fakePinger) SetTimeout(d time.Duration)    { f.timeout = d }
func (f *fakePinger) SetCount(n int)                { f.count = n }
func (f *fakePinger) Run(ctx context.Context) error { return f.runErr }
func (f *fakePinger) Statistics() *probing.Statistics {
	return f.stats
}

func stubPinger(t *testing.T, p *fakePinger) {
	old := newPinger
	t.Cleanup(func() { newPinger = old })
	newPinger = func(host string) (Pinger, error) { return p, nil }
}

func TestCheck_ReachableWithPacketLoss(t *testing.T) {
	stats := &probing.Statistics{}
	stats.PacketsSent = 3
	stats.PacketsRecv = 2
	p := &fakePinger{stats: stats}
	stubPinger(t, p)

	ok, err := Check(context.Background(), "198.51.100.7")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 3, p.count)
	require.Equal(t, 5*time.Second, p.timeout)
}

func TestCheck_Unreachable(t *testing.T) {
	stats := &probing.Statistics{}
	stats.PacketsSent = 3
	stubPinger(t, &fakePinger{stats: stats})

	ok, err := Check(context.Background(), "198.51.100.7")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCheck_ErrorOnRun(t *testing.T) {
	stubPinger(t, &fakePinger{runErr: errors.New("boom"), stats: &probing.Statistics{}})

	ok, err := Check(context.Background(), "198.51.100.7")
	require.Error(t, err)
	require.False(t, ok)
}

func TestCheck_ErrorOnCreate(t *testing.T) {
	old := newPinger
	t.Cleanup(func() { newPinger = old })
	newPinger = func(host string) (Pinger, error) { return nil, errors.New("bad host") }

	ok, err := Check(context.Background(), "nope")
	require.Error(t, err)
	require.False(t, ok)
}
