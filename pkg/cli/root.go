package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pedrokiefer/dangleip/pkg/collect"
	"github.com/pedrokiefer/dangleip/pkg/config"
	"github.com/pedrokiefer/dangleip/pkg/regions"
	"github.com/pedrokiefer/dangleip/pkg/session"
)

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	ConfigFile  string
	Profile     string
	LogLevel    string
	Regions     []string
	Concurrency int
}

func newRootCmd(g *globalOptions) *cobra.Command {
	c := &cobra.Command{
		Use:           "dangleip",
		Short:         "dangleip finds DNS A records pointing at released AWS addresses",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	f := c.PersistentFlags()
	f.StringVarP(&g.ConfigFile, "config", "c", "", "Config file (default searches ./dangleip.yaml, $HOME/.dangleip, /etc/dangleip)")
	f.StringVar(&g.Profile, "profile", "", "AWS shared config profile of the auditing principal")
	f.StringVar(&g.LogLevel, "log-level", config.DefaultLogLevel, "Log level (debug, info, warn, error)")
	f.StringSliceVar(&g.Regions, "regions", nil, `Regions to scan, or "all" to discover them per account`)
	f.IntVar(&g.Concurrency, "concurrency", config.DefaultConcurrency, "Maximum parallel AWS calls")
	return c
}

// NewRunner builds the command tree.
func NewRunner(version string) *cobra.Command {
	g := &globalOptions{}
	c := newRootCmd(g)
	c.AddCommand(
		newVersionCmd(version),
		newRegionsCmd(g),
		newOwnedCmd(g),
		newObserveCmd(g),
		newCheckCmd(g),
		newAuditCmd(g),
	)
	return c
}

// load resolves the configuration for cmd: flags win over environment,
// which wins over the config file.
func (g *globalOptions) load(cmd *cobra.Command) (*config.Config, error) {
	v := config.NewViper()
	if err := bindFlags(v, cmd); err != nil {
		return nil, err
	}
	if err := config.ReadFile(v, g.ConfigFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log_level: %w", err)
	}
	log.SetLevel(level)
	return cfg, nil
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	f := cmd.Root().PersistentFlags()
	for key, name := range map[string]string{
		"log_level":   "log-level",
		"regions":     "regions",
		"concurrency": "concurrency",
	} {
		if err := v.BindPFlag(key, f.Lookup(name)); err != nil {
			return err
		}
	}
	return nil
}

// auditEnv is what every AWS-facing command needs.
type auditEnv struct {
	cfg      *config.Config
	auditor  AuditorAPI
	resolver *regions.Resolver
}

func newAuditEnv(ctx context.Context, cfg *config.Config, profile string) (*auditEnv, error) {
	a, err := newAuditor(ctx, session.Options{
		Profile:    profile,
		HomeRegion: cfg.HomeRegion,
		RoleName:   cfg.RoleName,
		ExternalID: cfg.ExternalID,
	})
	if err != nil {
		return nil, err
	}
	return &auditEnv{
		cfg:      cfg,
		auditor:  a,
		resolver: regions.NewResolver(cfg.Regions, cfg.DiscoverRegions(), a),
	}, nil
}

// accounts returns the configured accounts, or every active account of the
// organization when none are configured.
func (e *auditEnv) accounts(ctx context.Context) ([]session.Account, error) {
	if len(e.cfg.Accounts) > 0 {
		out := make([]session.Account, 0, len(e.cfg.Accounts))
		for _, a := range e.cfg.Accounts {
			out = append(out, session.Account{ID: a.ID, Name: a.Name})
		}
		return out, nil
	}

	accounts, err := e.auditor.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("no accounts configured and organization listing failed: %w", err)
	}
	log.Info("discovered organization accounts", "count", len(accounts))
	return accounts, nil
}

func (e *auditEnv) collector() *collect.Collector {
	return collect.New(e.auditor, e.resolver, e.cfg.Concurrency)
}

func (e *auditEnv) collectOwned(ctx context.Context) (*collect.OwnedSet, *collect.Report, error) {
	accounts, err := e.accounts(ctx)
	if err != nil {
		return nil, nil, err
	}
	owned, report := e.collector().Owned(ctx, accounts)
	return owned, report, nil
}
