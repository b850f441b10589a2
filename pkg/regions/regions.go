package regions

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/charmbracelet/log"

	"github.com/pedrokiefer/dangleip/pkg/session"
)

type DescribeRegionsError struct {
	Account session.Account
	Err     error
}

func (e *DescribeRegionsError) Error() string {
	return fmt.Sprintf("describe regions in account %s: %s", e.Account, e.Err)
}

func (e *DescribeRegionsError) Unwrap() error {
	return e.Err
}

// Resolver decides which regions of an account get scanned.
type Resolver struct {
	allowed  []string
	discover bool
	assumer  session.Assumer
}

// NewResolver returns a resolver for the configured allow-list. When
// discover is set the allow-list is ignored and every region enabled in the
// account is returned instead.
func NewResolver(allowed []string, discover bool, assumer session.Assumer) *Resolver {
	return &Resolver{
		allowed:  allowed,
		discover: discover,
		assumer:  assumer,
	}
}

// Resolve returns the regions to scan for account. On failure the returned
// set is empty and the error says why; callers skip the account.
func (r *Resolver) Resolve(ctx context.Context, account session.Account) ([]string, error) {
	if !r.discover {
		return r.allowed, nil
	}

	s, err := r.assumer.AssumeSession(ctx, account, "")
	if err != nil {
		log.Error("unable to assume role", "account", account.ID, "name", account.Name, "error", err)
		return []string{}, err
	}

	out, err := s.EC2.DescribeRegions(ctx, &ec2.DescribeRegionsInput{
		AllRegions: aws.Bool(false),
	})
	if err != nil {
		log.Error("execution role requires ec2:DescribeRegions", "account", account.ID, "name", account.Name, "error", err)
		return []string{}, &DescribeRegionsError{Account: account, Err: err}
	}

	regions := make([]string, 0, len(out.Regions))
	for _, region := range out.Regions {
		if region.RegionName == nil {
			continue
		}
		regions = append(regions, aws.ToString(region.RegionName))
	}
	return regions, nil
}
