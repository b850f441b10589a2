package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/pedrokiefer/dangleip/pkg/config"
	"github.com/pedrokiefer/dangleip/pkg/report"
)

// auditApp records the owned set and then checks the targets against it in
// one run, so it works with the in-memory store.
type auditApp struct {
	checkApp
	Profile string
}

func (a *auditApp) Run(ctx context.Context, cfg *config.Config) error {
	store, closeStore, err := openStore(cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	rep, err := observeOwned(ctx, cfg, a.Profile, store)
	if err != nil {
		return err
	}
	if !a.JSON {
		if err := report.PrintHealth(a.out, rep); err != nil {
			return err
		}
	}
	return a.runWithStore(ctx, cfg, store)
}

func newAuditCmd(g *globalOptions) *cobra.Command {
	a := auditApp{}

	c := &cobra.Command{
		Use:   "audit <host-or-ip>...",
		Short: "Record the owned set, then check the given records",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load(cmd)
			if err != nil {
				return err
			}
			a.Profile = g.Profile
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
