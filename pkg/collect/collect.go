package collect

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/globalaccelerator"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"inet.af/netaddr"

	"github.com/pedrokiefer/dangleip/pkg/prefix"
	"github.com/pedrokiefer/dangleip/pkg/session"
)

// AcceleratorRegion is where the Global Accelerator control plane lives.
// Accelerators are global, so they are listed once per account from here.
const AcceleratorRegion = "us-west-2"

// RegionResolver returns the regions to scan for an account.
type RegionResolver interface {
	Resolve(ctx context.Context, account session.Account) ([]string, error)
}

// Collector builds the owned set of monitored accounts.
type Collector struct {
	assumer     session.Assumer
	resolver    RegionResolver
	concurrency int
}

func New(assumer session.Assumer, resolver RegionResolver, concurrency int) *Collector {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Collector{
		assumer:     assumer,
		resolver:    resolver,
		concurrency: concurrency,
	}
}

// publicIP parses an address reported by AWS, dropping anything that is not
// a valid public address.
func publicIP(s string) (netaddr.IP, bool) {
	ip, err := netaddr.ParseIP(s)
	if err != nil {
		log.Debug("ignoring unparsable address", "address", s)
		return netaddr.IP{}, false
	}
	ip = ip.Unmap()
	if prefix.IsPrivate(ip) {
		return netaddr.IP{}, false
	}
	return ip, true
}

// failed attaches a typed failure to res without logging it.
func failed(res Result, err error, partial bool) Result {
	res.Err = &CallError{
		Kind:    classify(err, partial),
		Source:  res.Source,
		Account: res.Account,
		Region:  res.Region,
		Err:     err,
	}
	return res
}

func (c *Collector) fail(res Result, err error, partial bool) Result {
	res = failed(res, err, partial)
	ce := res.CallError()
	log.Error("collector call failed",
		"source", res.Source,
		"kind", ce.Kind,
		"account", res.Account.ID,
		"name", res.Account.Name,
		"region", res.Region,
		"collected", len(res.IPs),
		"error", err,
	)
	return res
}

// ElasticIPs lists the public addresses of every Elastic IP allocated in
// region.
func (c *Collector) ElasticIPs(ctx context.Context, account session.Account, region string) Result {
	res := Result{Source: SourceElasticIP, Account: account, Region: region, IPs: []netaddr.IP{}}

	s, err := c.assumer.AssumeSession(ctx, account, region)
	if err != nil {
		return c.fail(res, err, false)
	}

	out, err := s.EC2.DescribeAddresses(ctx, &ec2.DescribeAddressesInput{})
	if err != nil {
		return c.fail(res, err, false)
	}
	for _, a := range out.Addresses {
		if a.PublicIp == nil {
			continue
		}
		if ip, ok := publicIP(aws.ToString(a.PublicIp)); ok {
			res.IPs = append(res.IPs, ip)
		}
	}
	log.Debug("collected elastic ips", "account", account.ID, "region", region, "count", len(res.IPs))
	return res
}

// InstanceIPs lists the public addresses of every instance in region. All
// pages are read; when a later page fails the addresses of earlier pages are
// kept and the failure is marked partial.
func (c *Collector) InstanceIPs(ctx context.Context, account session.Account, region string) Result {
	res := Result{Source: SourceInstance, Account: account, Region: region, IPs: []netaddr.IP{}}

	s, err := c.assumer.AssumeSession(ctx, account, region)
	if err != nil {
		return c.fail(res, err, false)
	}

	p := ec2.NewDescribeInstancesPaginator(s.EC2, &ec2.DescribeInstancesInput{})
	pages := 0
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return c.fail(res, err, pages > 0)
		}
		pages++
		for _, r := range out.Reservations {
			for _, i := range r.Instances {
				if i.PublicIpAddress == nil {
					continue
				}
				if ip, ok := publicIP(aws.ToString(i.PublicIpAddress)); ok {
					res.IPs = append(res.IPs, ip)
				}
			}
		}
	}
	log.Debug("collected instance ips", "account", account.ID, "region", region, "pages", pages, "count", len(res.IPs))
	return res
}

// AcceleratorIPs lists the static addresses of every accelerator in the
// account.
func (c *Collector) AcceleratorIPs(ctx context.Context, account session.Account) Result {
	res := Result{Source: SourceAccelerator, Account: account, Region: AcceleratorRegion, IPs: []netaddr.IP{}}

	s, err := c.assumer.AssumeSession(ctx, account, AcceleratorRegion)
	if err != nil {
		return c.fail(res, err, false)
	}

	p := globalaccelerator.NewListAcceleratorsPaginator(s.Accelerator, &globalaccelerator.ListAcceleratorsInput{})
	pages := 0
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return c.fail(res, err, pages > 0)
		}
		pages++
		for _, a := range out.Accelerators {
			for _, set := range a.IpSets {
				for _, addr := range set.IpAddresses {
					if ip, ok := publicIP(addr); ok {
						res.IPs = append(res.IPs, ip)
					}
				}
			}
		}
	}
	log.Debug("collected accelerator ips", "account", account.ID, "count", len(res.IPs))
	return res
}

type job struct {
	account session.Account
	region  string
}

// Owned collects every public address owned by accounts. Failed calls never
// abort the run: they are recorded in the report and the rest of the set is
// still returned.
func (c *Collector) Owned(ctx context.Context, accounts []session.Account) (*OwnedSet, *Report) {
	var (
		mu     sync.Mutex
		report = &Report{}
		owned  = NewOwnedSet()
		jobs   []job
	)
	record := func(r Result) {
		mu.Lock()
		defer mu.Unlock()
		report.Results = append(report.Results, r)
		owned.Add(r.IPs...)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, account := range accounts {
		account := account
		g.Go(func() error {
			regions, err := c.resolver.Resolve(gctx, account)
			if err != nil {
				// The resolver already logged the failure.
				record(failed(Result{Source: SourceRegions, Account: account, IPs: []netaddr.IP{}}, err, false))
				return nil
			}
			mu.Lock()
			for _, region := range regions {
				jobs = append(jobs, job{account: account, region: region})
			}
			jobs = append(jobs, job{account: account})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, j := range jobs {
		j := j
		if j.region == "" {
			g.Go(func() error {
				record(c.AcceleratorIPs(gctx, j.account))
				return nil
			})
			continue
		}
		g.Go(func() error {
			record(c.ElasticIPs(gctx, j.account, j.region))
			return nil
		})
		g.Go(func() error {
			record(c.InstanceIPs(gctx, j.account, j.region))
			return nil
		})
	}
	_ = g.Wait()

	report.sort()
	log.Info("owned set collected", "accounts", len(accounts), "calls", len(report.Results), "owned", owned.Len(), "failures", len(report.Failures()))
	return owned, report
}
