package cli

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/globalaccelerator"
	gatypes "github.com/aws/aws-sdk-go-v2/service/globalaccelerator/types"

	"github.com/pedrokiefer/dangleip/pkg/config"
	"github.com/pedrokiefer/dangleip/pkg/observe"
	"github.com/pedrokiefer/dangleip/pkg/prefix"
	"github.com/pedrokiefer/dangleip/pkg/session"
)

type fakeEC2 struct {
	regions   []string
	addresses []string
	instances []string
}

func (f *fakeEC2) DescribeRegions(ctx context.Context, params *ec2.DescribeRegionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error) {
	out := &ec2.DescribeRegionsOutput{}
	for _, r := range f.regions {
		out.Regions = append(out.Regions, ec2types.Region{RegionName: aws.String(r)})
	}
	return out, nil
}

func (f *fakeEC2) DescribeAddresses(ctx context.Context, params *ec2.DescribeAddressesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeAddressesOutput, error) {
	out := &ec2.DescribeAddressesOutput{}
	for _, a := range f.addresses {
		out.Addresses = append(out.Addresses, ec2types.Address{PublicIp: aws.String(a)})
	}
	return out, nil
}

func (f *fakeEC2) DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	out := &ec2.DescribeInstancesOutput{}
	r := ec2types.Reservation{}
	for _, a := range f.instances {
		r.Instances = append(r.Instances, ec2types.Instance{PublicIpAddress: aws.String(a)})
	}
	out.Reservations = []ec2types.Reservation{r}
	return out, nil
}

type fakeAccelerator struct {
	addresses []string
}

func (f *fakeAccelerator) ListAccelerators(ctx context.Context, params *globalaccelerator.ListAcceleratorsInput, optFns ...func(*globalaccelerator.Options)) (*globalaccelerator.ListAcceleratorsOutput, error) {
	return &globalaccelerator.ListAcceleratorsOutput{
		Accelerators: []gatypes.Accelerator{{IpSets: []gatypes.IpSet{{IpAddresses: f.addresses}}}},
	}, nil
}

type fakeAuditor struct {
	ec2      *fakeEC2
	ga       *fakeAccelerator
	accounts []session.Account
	options  session.Options
}

func (f *fakeAuditor) AssumeSession(ctx context.Context, account session.Account, region string) (*session.Session, error) {
	return &session.Session{Account: account, Region: region, Clients: &session.Clients{EC2: f.ec2, Accelerator: f.ga}}, nil
}

func (f *fakeAuditor) ListAccounts(ctx context.Context) ([]session.Account, error) {
	return f.accounts, nil
}

// stubSeams replaces every AWS and network seam and restores them when the
// test ends.
func stubSeams(t *testing.T, a *fakeAuditor, store observe.Store, cidrs []string) {
	t.Helper()
	oldAuditor, oldStore, oldPrefixes, oldLookup, oldProbe, oldNow := newAuditor, openStore, loadPrefixes, lookupA, probeHost, now
	t.Cleanup(func() {
		newAuditor, openStore, loadPrefixes, lookupA, probeHost, now = oldAuditor, oldStore, oldPrefixes, oldLookup, oldProbe, oldNow
	})

	newAuditor = func(ctx context.Context, o session.Options) (AuditorAPI, error) {
		a.options = o
		return a, nil
	}
	openStore = func(c config.StoreConfig) (observe.Store, func() error, error) {
		return store, func() error { return nil }, nil
	}
	loadPrefixes = func(ctx context.Context, src prefix.Source) (*prefix.List, error) {
		return prefix.Parse(cidrs)
	}
	lookupA = func(ctx context.Context, domain string) ([]string, error) {
		return nil, nil
	}
	probeHost = func(ctx context.Context, host string) (bool, error) {
		return false, nil
	}
	now = time.Now
}

func testConfig() *config.Config {
	return &config.Config{
		Regions:         []string{"us-east-1"},
		FreshnessWindow: 48 * time.Hour,
		RoleName:        "dangleip-audit",
		HomeRegion:      "us-east-1",
		Accounts:        []config.Account{{ID: "111111111111", Name: "prod"}},
		Store:           config.StoreConfig{Type: "sqlite", Retention: 7 * 24 * time.Hour},
		Prefix:          config.PrefixConfig{Services: config.DefaultPrefixServices},
		Concurrency:     2,
		LogLevel:        "info",
	}
}
