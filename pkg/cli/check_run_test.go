package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"github.com/pedrokiefer/dangleip/pkg/observe"
	"github.com/pedrokiefer/dangleip/pkg/vuln"
)

var testRanges = []string{"198.51.100.0/24", "15.197.0.0/16"}

func TestCheck_Run_Table(t *testing.T) {
	store := observe.NewMemoryStore()
	stubSeams(t, &fakeAuditor{}, store, testRanges)
	require.NoError(t, store.Record(context.Background(), "198.51.100.7", time.Now().Add(-10*time.Second)))

	lookupA = func(ctx context.Context, domain string) ([]string, error) {
		switch domain {
		case "app.example.com":
			return []string{"198.51.100.7"}, nil
		case "old.example.com":
			return []string{"198.51.100.8"}, nil
		}
		return nil, errors.New("NXDOMAIN")
	}

	var out bytes.Buffer
	a := &checkApp{
		Targets: []string{"app.example.com", "old.example.com.", "gone.example.com", "10.0.0.5", "203.0.113.9"},
		out:     &out,
	}
	require.NoError(t, a.Run(context.Background(), testConfig()))

	s := out.String()
	require.Contains(t, s, "old.example.com")
	require.Contains(t, s, "gone.example.com did not resolve")
	require.Contains(t, s, "4 checked, 1 vulnerable")
}

func TestCheck_Run_JSONAndFailOnVuln(t *testing.T) {
	stubSeams(t, &fakeAuditor{}, observe.NewMemoryStore(), testRanges)
	probed := []string{}
	probeHost = func(ctx context.Context, host string) (bool, error) {
		probed = append(probed, host)
		return true, nil
	}

	var out bytes.Buffer
	a := &checkApp{
		Targets:    []string{"198.51.100.8"},
		JSON:       true,
		Probe:      true,
		FailOnVuln: true,
		out:        &out,
	}
	err := a.Run(context.Background(), testConfig())
	require.ErrorIs(t, err, ErrVulnerable)
	require.Equal(t, []string{"198.51.100.8"}, probed)

	var f vuln.Findings
	require.NoError(t, json.Unmarshal(out.Bytes(), &f))
	require.Len(t, f.Vulnerable, 1)
	require.Equal(t, vuln.ReasonProviderRange, f.Vulnerable[0].Verdict.Reason)
	require.NotNil(t, f.Vulnerable[0].Reachable)
	require.True(t, *f.Vulnerable[0].Reachable)
}

func TestCheck_Run_File(t *testing.T) {
	stubSeams(t, &fakeAuditor{}, observe.NewMemoryStore(), testRanges)

	path := filepath.Join(t.TempDir(), "records.txt")
	require.NoError(t, os.WriteFile(path, []byte("# exported records\n203.0.113.9\n\n10.0.0.5\n"), 0o644))

	var out bytes.Buffer
	a := &checkApp{File: path, FailOnVuln: true, out: &out}
	require.NoError(t, a.Run(context.Background(), testConfig()))
	require.Contains(t, out.String(), "2 checked, 0 vulnerable")
}

func TestCheck_Run_NoTargets(t *testing.T) {
	stubSeams(t, &fakeAuditor{}, observe.NewMemoryStore(), testRanges)

	a := &checkApp{out: &bytes.Buffer{}}
	require.Error(t, a.Run(context.Background(), testConfig()))
}

type brokenStore struct{}

func (brokenStore) Record(ctx context.Context, ip string, seenAt time.Time) error {
	return errors.New("store down")
}

func (brokenStore) RecentlySeen(ctx context.Context, ip string, window time.Duration) (bool, error) {
	return false, errors.New("store down")
}

func TestCheck_Run_StoreErrorAborts(t *testing.T) {
	stubSeams(t, &fakeAuditor{}, brokenStore{}, testRanges)

	var out bytes.Buffer
	a := &checkApp{Targets: []string{"198.51.100.8"}, out: &out}
	err := a.Run(context.Background(), testConfig())
	require.Error(t, err)
	require.Contains(t, err.Error(), "store down")
	require.Empty(t, out.String())
}

func TestCheck_Run_LogsGateWindow(t *testing.T) {
	var logs bytes.Buffer
	level := log.GetLevel()
	log.SetOutput(&logs)
	log.SetLevel(log.InfoLevel)
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetLevel(level)
	})
	stubSeams(t, &fakeAuditor{}, observe.NewMemoryStore(), testRanges)

	var out bytes.Buffer
	a := &checkApp{Targets: []string{"198.51.100.8"}, out: &out}
	require.NoError(t, a.Run(context.Background(), testConfig()))

	l := logs.String()
	require.Contains(t, l, "classifying candidates")
	require.Contains(t, l, "window=48h0m0s")
	require.Contains(t, l, "prefixes=2")
	require.Contains(t, l, "label=VULN")
}
