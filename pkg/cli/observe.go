package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/pedrokiefer/dangleip/pkg/collect"
	"github.com/pedrokiefer/dangleip/pkg/config"
	"github.com/pedrokiefer/dangleip/pkg/observe"
	"github.com/pedrokiefer/dangleip/pkg/report"
)

// ErrEphemeralStore is returned by observe and check when the configured
// store does not outlive the process.
var ErrEphemeralStore = errors.New("the memory store does not outlive the process")

func requirePersistentStore(cfg *config.Config, command string) error {
	if cfg.Store.Type == config.StoreTypeMemory {
		return fmt.Errorf("%s: %w, set store.type to sqlite or redis, or use audit", command, ErrEphemeralStore)
	}
	return nil
}

type pruner interface {
	Prune(ctx context.Context, before time.Time) (int64, error)
}

type observeApp struct {
	Profile string

	out io.Writer
}

func (a *observeApp) Run(ctx context.Context, cfg *config.Config) error {
	if err := requirePersistentStore(cfg, "observe"); err != nil {
		return err
	}
	store, closeStore, err := openStore(cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	rep, err := observeOwned(ctx, cfg, a.Profile, store)
	if err != nil {
		return err
	}
	return report.PrintHealth(a.out, rep)
}

// observeOwned collects the owned set and records every address as seen
// now. Incomplete accounts are still recorded: what was collected is owned.
func observeOwned(ctx context.Context, cfg *config.Config, profile string, store observe.Store) (*collect.Report, error) {
	env, err := newAuditEnv(ctx, cfg, profile)
	if err != nil {
		return nil, err
	}
	owned, rep, err := env.collectOwned(ctx)
	if err != nil {
		return nil, err
	}

	seenAt := now()
	ips := make([]string, 0, owned.Len())
	for _, ip := range owned.Sorted() {
		ips = append(ips, ip.String())
	}
	if err := observe.RecordAll(ctx, store, ips, seenAt); err != nil {
		return nil, fmt.Errorf("record owned addresses: %w", err)
	}
	log.Info("recorded owned addresses", "count", len(ips), "store", cfg.Store.Type)

	if p, ok := store.(pruner); ok {
		if _, err := p.Prune(ctx, seenAt.Add(-cfg.Store.Retention)); err != nil {
			log.Warn("unable to prune old observations", "error", err)
		}
	}

	for _, h := range rep.Accounts() {
		if !h.Complete() {
			log.Warn("owned set is incomplete, released addresses may be misreported", "account", h.Account.ID, "name", h.Account.Name, "failures", len(h.Failures))
		}
	}
	return rep, nil
}

func newObserveCmd(g *globalOptions) *cobra.Command {
	a := observeApp{}

	c := &cobra.Command{
		Use:   "observe",
		Short: "Record the currently owned public IPs in the observation store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load(cmd)
			if err != nil {
				return err
			}
			a.Profile = g.Profile
			a.out = cmd.OutOrStdout()
			return a.Run(cmd.Context(), cfg)
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	return c
}
