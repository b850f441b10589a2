package vuln

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"
	"inet.af/netaddr"
)

func TestScan(t *testing.T) {
	g := &fakeGate{seen: map[string]bool{"198.51.100.7": true}}
	c := NewClassifier(g)

	f, err := Scan(context.Background(), c, testPrefixes(t), []Candidate{
		{Name: "app.example.com", IP: netaddr.MustParseIP("198.51.100.7")},
		{Name: "old.example.com", IP: netaddr.MustParseIP("198.51.100.8")},
		{Name: "intranet.example.com", IP: netaddr.MustParseIP("10.0.0.5")},
		{Name: "203.0.113.9", IP: netaddr.MustParseIP("203.0.113.9")},
	})
	require.NoError(t, err)
	require.Equal(t, 4, f.Checked)
	require.True(t, f.HasVulnerable())
	require.Len(t, f.Vulnerable, 1)
	require.Equal(t, "old.example.com", f.Vulnerable[0].Name)
	require.Equal(t, ReasonProviderRange, f.Vulnerable[0].Verdict.Reason)
	require.Len(t, f.Safe, 3)
}

func TestScan_StopsOnGateError(t *testing.T) {
	c := NewClassifier(&fakeGate{err: errors.New("store down")})

	f, err := Scan(context.Background(), c, testPrefixes(t), []Candidate{
		{Name: "a.example.com", IP: netaddr.MustParseIP("10.0.0.5")},
		{Name: "b.example.com", IP: netaddr.MustParseIP("198.51.100.8")},
	})
	require.Error(t, err)
	require.Equal(t, 1, f.Checked)
	require.False(t, f.HasVulnerable())
}

func TestScan_LogsPlainLabel(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	_, err := Scan(context.Background(), NewClassifier(&fakeGate{}), testPrefixes(t), []Candidate{
		{Name: "old.example.com", IP: netaddr.MustParseIP("198.51.100.8")},
	})
	require.NoError(t, err)
	out := buf.String()
	require.Contains(t, out, "A record points to an unowned provider address")
	require.Contains(t, out, "label=VULN")
	require.Contains(t, out, "name=old.example.com")
	require.NotContains(t, out, "\x1b[")
}
