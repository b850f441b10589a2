package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

type Options struct {
	// Profile selects a shared config profile for the auditing principal.
	// Empty uses the default credential chain.
	Profile    string
	HomeRegion string
	RoleName   string
	ExternalID string
}

// RoleAssumer assumes RoleName in every monitored account. Credentials are
// cached per account and shared by all regions of that account.
type RoleAssumer struct {
	base    aws.Config
	o       Options
	sts     stscreds.AssumeRoleAPIClient
	orgs    OrganizationsAPI
	factory ClientFactory

	mu    sync.Mutex
	creds map[string]*aws.CredentialsCache
}

// NewRoleAssumer loads the auditing principal's configuration and returns an
// assumer backed by the real SDK clients.
func NewRoleAssumer(ctx context.Context, o Options) (*RoleAssumer, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRetryer(func() aws.Retryer {
			return retry.NewAdaptiveMode(func(amo *retry.AdaptiveModeOptions) {
				amo.StandardOptions = []func(*retry.StandardOptions){
					func(so *retry.StandardOptions) {
						so.MaxAttempts = 5
						so.MaxBackoff = 30 * time.Second
						so.Backoff = retry.NewExponentialJitterBackoff(so.MaxBackoff)
					},
				}
			})
		}),
	}
	if o.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(o.Profile))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	if o.HomeRegion != "" {
		cfg.Region = o.HomeRegion
	}

	return NewRoleAssumerWithClients(cfg, o, sts.NewFromConfig(cfg), organizations.NewFromConfig(cfg), NewClients), nil
}

// NewRoleAssumerWithClients wires an assumer from explicit clients. Tests
// pass fakes here.
func NewRoleAssumerWithClients(base aws.Config, o Options, stsClient stscreds.AssumeRoleAPIClient, orgs OrganizationsAPI, f ClientFactory) *RoleAssumer {
	if o.HomeRegion == "" {
		o.HomeRegion = base.Region
	}
	return &RoleAssumer{
		base:    base,
		o:       o,
		sts:     stsClient,
		orgs:    orgs,
		factory: f,
		creds:   map[string]*aws.CredentialsCache{},
	}
}

func RoleARN(accountID, roleName string) string {
	return fmt.Sprintf("arn:aws:iam::%s:role/%s", accountID, roleName)
}

// AssumeSession returns clients for account scoped to region. An empty
// region means the home region. Credentials are retrieved eagerly so trust
// policy problems surface here as *AssumeRoleError instead of on the first
// API call.
func (r *RoleAssumer) AssumeSession(ctx context.Context, account Account, region string) (*Session, error) {
	if region == "" {
		region = r.o.HomeRegion
	}

	arn := RoleARN(account.ID, r.o.RoleName)
	creds := r.credentialsFor(account, arn)
	if _, err := creds.Retrieve(ctx); err != nil {
		return nil, &AssumeRoleError{
			AccountID: account.ID,
			Region:    region,
			RoleARN:   arn,
			Err:       err,
		}
	}

	cfg := r.base.Copy()
	cfg.Region = region
	cfg.Credentials = creds

	return &Session{
		Account: account,
		Region:  region,
		Clients: r.factory(cfg),
	}, nil
}

func (r *RoleAssumer) credentialsFor(account Account, arn string) *aws.CredentialsCache {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.creds[account.ID]; ok {
		return c
	}
	provider := stscreds.NewAssumeRoleProvider(r.sts, arn, func(o *stscreds.AssumeRoleOptions) {
		o.RoleSessionName = "dangleip-" + account.ID
		if r.o.ExternalID != "" {
			o.ExternalID = aws.String(r.o.ExternalID)
		}
	})
	c := aws.NewCredentialsCache(provider)
	r.creds[account.ID] = c
	return c
}

// ListAccounts lists the active accounts of the auditing principal's
// organization.
func (r *RoleAssumer) ListAccounts(ctx context.Context) ([]Account, error) {
	return ListAccounts(ctx, r.orgs)
}
