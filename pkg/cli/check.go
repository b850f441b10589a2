package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"inet.af/netaddr"

	"github.com/pedrokiefer/dangleip/pkg/config"
	"github.com/pedrokiefer/dangleip/pkg/observe"
	"github.com/pedrokiefer/dangleip/pkg/prefix"
	"github.com/pedrokiefer/dangleip/pkg/report"
	"github.com/pedrokiefer/dangleip/pkg/vuln"
)

// ErrVulnerable is returned by check and audit with --fail-on-vuln when at
// least one record is vulnerable.
var ErrVulnerable = errors.New("vulnerable A records found")

type checkApp struct {
	Targets    []string
	File       string
	Probe      bool
	JSON       bool
	FailOnVuln bool

	out io.Writer
}

func (a *checkApp) Run(ctx context.Context, cfg *config.Config) error {
	if err := requirePersistentStore(cfg, "check"); err != nil {
		return err
	}
	store, closeStore, err := openStore(cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	return a.runWithStore(ctx, cfg, store)
}

func (a *checkApp) runWithStore(ctx context.Context, cfg *config.Config, store observe.Store) error {
	targets, err := a.targets()
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return fmt.Errorf("nothing to check: pass host names or addresses, or --file")
	}

	prefixes, err := loadPrefixes(ctx, prefix.Source{
		URL:      cfg.Prefix.URL,
		File:     cfg.Prefix.File,
		Services: cfg.Prefix.Services,
		Regions:  cfg.Prefix.Regions,
	})
	if err != nil {
		return err
	}

	candidates, invalid := resolveTargets(ctx, targets, cfg.Concurrency)

	gate := observe.NewGate(store, cfg.FreshnessWindow)
	log.Info("classifying candidates", "candidates", len(candidates), "window", gate.Window(), "prefixes", prefixes.Len())
	findings, err := vuln.Scan(ctx, vuln.NewClassifier(gate), prefixes, candidates)
	if err != nil {
		return err
	}
	findings.Invalid = invalid

	if a.Probe {
		probeFindings(ctx, findings, cfg.Concurrency)
	}

	if a.JSON {
		err = report.WriteJSON(a.out, findings)
	} else {
		err = report.PrintFindings(a.out, findings)
	}
	if err != nil {
		return err
	}

	if a.FailOnVuln && findings.HasVulnerable() {
		return ErrVulnerable
	}
	return nil
}

// targets merges the positional arguments with the lines of File. Blank
// lines and lines starting with # are skipped.
func (a *checkApp) targets() ([]string, error) {
	targets := []string{}
	for _, t := range a.Targets {
		if t = strings.TrimSpace(t); t != "" {
			targets = append(targets, t)
		}
	}
	if a.File == "" {
		return targets, nil
	}

	f, err := os.Open(a.File)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		targets = append(targets, line)
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", a.File, err)
	}
	return targets, nil
}

// resolveTargets turns host names into their A records. Literal addresses
// are used as given. Names that do not resolve are returned as invalid, in
// input order.
func resolveTargets(ctx context.Context, targets []string, concurrency int) ([]vuln.Candidate, []string) {
	resolved := make([][]vuln.Candidate, len(targets))
	failed := make([]bool, len(targets))

	g := errgroup.Group{}
	g.SetLimit(concurrency)
	for i, t := range targets {
		i, t := i, t
		if ip, err := netaddr.ParseIP(t); err == nil {
			resolved[i] = []vuln.Candidate{{Name: t, IP: ip}}
			continue
		}
		g.Go(func() error {
			addrs, err := lookupA(ctx, strings.TrimSuffix(t, "."))
			if err != nil {
				log.Error("unable to resolve", "name", t, "error", err)
				failed[i] = true
				return nil
			}
			for _, addr := range addrs {
				ip, err := netaddr.ParseIP(addr)
				if err != nil {
					continue
				}
				resolved[i] = append(resolved[i], vuln.Candidate{Name: t, IP: ip})
			}
			if len(resolved[i]) == 0 {
				log.Warn("name has no A records", "name", t)
				failed[i] = true
			}
			return nil
		})
	}
	_ = g.Wait()

	candidates := []vuln.Candidate{}
	invalid := []string{}
	for i := range targets {
		if failed[i] {
			invalid = append(invalid, targets[i])
			continue
		}
		candidates = append(candidates, resolved[i]...)
	}
	return candidates, invalid
}

// probeFindings pings every vulnerable address and records whether it
// answered. Probe errors leave Reachable unset.
func probeFindings(ctx context.Context, f *vuln.Findings, concurrency int) {
	g := errgroup.Group{}
	g.SetLimit(concurrency)
	for i := range f.Vulnerable {
		fi := &f.Vulnerable[i]
		g.Go(func() error {
			ok, err := probeHost(ctx, fi.Verdict.IP.String())
			if err != nil {
				log.Warn("probe failed", "ip", fi.Verdict.IP, "error", err)
				return nil
			}
			fi.Reachable = &ok
			return nil
		})
	}
	_ = g.Wait()
}

func (a *checkApp) bindFlags(c *cobra.Command) {
	f := c.Flags()
	f.StringVarP(&a.File, "file", "f", "", "Read host names or addresses from file, one per line")
	f.BoolVar(&a.Probe, "probe", false, "Ping vulnerable addresses")
	f.BoolVar(&a.JSON, "json", false, "Print JSON instead of tables")
	f.BoolVar(&a.FailOnVuln, "fail-on-vuln", false, "Exit with an error when a vulnerable record is found")
}

func newCheckCmd(g *globalOptions) *cobra.Command {
	a := checkApp{}

	c := &cobra.Command{
		Use:   "check <host-or-ip>...",
		Short: "Classify A records against the provider ranges and the observation store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load(cmd)
			if err != nil {
				return err
			}
			a.Targets = args
			a.out = cmd.OutOrStdout()
			return a.Run(cmd.Context(), cfg)
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	a.bindFlags(c)
	return c
}
