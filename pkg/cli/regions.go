package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/pedrokiefer/dangleip/pkg/config"
	"github.com/pedrokiefer/dangleip/pkg/report"
	"github.com/pedrokiefer/dangleip/pkg/session"
)

type regionsApp struct {
	Profile    string
	AccountIDs []string

	out io.Writer
}

func (a *regionsApp) Run(ctx context.Context, cfg *config.Config) error {
	env, err := newAuditEnv(ctx, cfg, a.Profile)
	if err != nil {
		return err
	}

	var accounts []session.Account
	if len(a.AccountIDs) > 0 {
		for _, id := range a.AccountIDs {
			accounts = append(accounts, session.Account{ID: id})
		}
	} else {
		accounts, err = env.accounts(ctx)
		if err != nil {
			return err
		}
	}

	resolved := map[string][]string{}
	order := make([]string, 0, len(accounts))
	for _, acct := range accounts {
		// Failures are logged by the resolver and shown as an empty row.
		regions, _ := env.resolver.Resolve(ctx, acct)
		resolved[acct.String()] = regions
		order = append(order, acct.String())
	}
	return report.PrintRegions(a.out, resolved, order)
}

func newRegionsCmd(g *globalOptions) *cobra.Command {
	a := regionsApp{}

	c := &cobra.Command{
		Use:   "regions [account-id...]",
		Short: "Print the regions that would be scanned for each account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load(cmd)
			if err != nil {
				return err
			}
			a.Profile = g.Profile
			a.AccountIDs = args
			a.out = cmd.OutOrStdout()
			return a.Run(cmd.Context(), cfg)
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	return c
}
