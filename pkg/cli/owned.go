package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"inet.af/netaddr"

	"github.com/pedrokiefer/dangleip/pkg/config"
	"github.com/pedrokiefer/dangleip/pkg/report"
)

type ownedApp struct {
	Profile string
	JSON    bool

	out io.Writer
}

type ownedOutput struct {
	Owned  []netaddr.IP  `json:"owned"`
	Health report.Health `json:"health"`
}

func (a *ownedApp) Run(ctx context.Context, cfg *config.Config) error {
	env, err := newAuditEnv(ctx, cfg, a.Profile)
	if err != nil {
		return err
	}
	owned, rep, err := env.collectOwned(ctx)
	if err != nil {
		return err
	}

	if a.JSON {
		return report.WriteJSON(a.out, ownedOutput{Owned: owned.Sorted(), Health: report.NewHealth(rep)})
	}
	report.PrintIPs(a.out, owned.Sorted())
	return report.PrintHealth(a.out, rep)
}

func newOwnedCmd(g *globalOptions) *cobra.Command {
	a := ownedApp{}

	c := &cobra.Command{
		Use:   "owned",
		Short: "List every public IP currently owned by the monitored accounts",
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
	c.Flags().BoolVar(&a.JSON, "json", false, "Print JSON instead of tables")
	return c
}
