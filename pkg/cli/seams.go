package cli

import (
	"context"
	"time"

	"github.com/pedrokiefer/dangleip/pkg/config"
	"github.com/pedrokiefer/dangleip/pkg/dig"
	"github.com/pedrokiefer/dangleip/pkg/observe"
	"github.com/pedrokiefer/dangleip/pkg/ping"
	"github.com/pedrokiefer/dangleip/pkg/prefix"
	"github.com/pedrokiefer/dangleip/pkg/session"
)

// AuditorAPI declares the subset of session.RoleAssumer used by the CLI.
// Tests can implement this interface to stub AWS interactions.
type AuditorAPI interface {
	session.Assumer
	ListAccounts(ctx context.Context) ([]session.Account, error)
}

// newAuditor is a seam to allow injecting a fake assumer in tests.
var newAuditor = func(ctx context.Context, o session.Options) (AuditorAPI, error) {
	a, err := session.NewRoleAssumer(ctx, o)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// openStore is a seam over observe.Open.
var openStore = func(c config.StoreConfig) (observe.Store, func() error, error) {
	return observe.Open(c)
}

// loadPrefixes is a seam over prefix.Load.
var loadPrefixes = func(ctx context.Context, src prefix.Source) (*prefix.List, error) {
	return prefix.Load(ctx, src)
}

// lookupA is a seam over dig.LookupA used by check.
var lookupA = func(ctx context.Context, domain string) ([]string, error) { return dig.LookupA(ctx, domain) }

// probeHost is a seam over ping.Check used by check --probe.
var probeHost = func(ctx context.Context, host string) (bool, error) { return ping.Check(ctx, host) }

var now = time.Now
