package session

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/globalaccelerator"
)

// Account identifies a monitored AWS account. Name is only used as a label
// in logs and reports.
type Account struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

func (a Account) String() string {
	if a.Name == "" {
		return a.ID
	}
	return fmt.Sprintf("%s (%s)", a.Name, a.ID)
}

// EC2API is the subset of EC2 used by region discovery and the address
// collectors. *ec2.Client satisfies it, and so does
// ec2.DescribeInstancesAPIClient, which lets the SDK paginator drive fakes.
type EC2API interface {
	DescribeRegions(ctx context.Context, params *ec2.DescribeRegionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error)
	DescribeAddresses(ctx context.Context, params *ec2.DescribeAddressesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeAddressesOutput, error)
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
}

// AcceleratorAPI is the subset of Global Accelerator used by the accelerator
// collector.
type AcceleratorAPI interface {
	ListAccelerators(ctx context.Context, params *globalaccelerator.ListAcceleratorsInput, optFns ...func(*globalaccelerator.Options)) (*globalaccelerator.ListAcceleratorsOutput, error)
}

// Clients holds the service clients of one assumed session.
type Clients struct {
	EC2         EC2API
	Accelerator AcceleratorAPI
}

// ClientFactory builds Clients from a region-scoped, role-assumed config.
// Tests swap it to return fakes.
type ClientFactory func(cfg aws.Config) *Clients

// NewClients is the production ClientFactory.
func NewClients(cfg aws.Config) *Clients {
	return &Clients{
		EC2:         ec2.NewFromConfig(cfg),
		Accelerator: globalaccelerator.NewFromConfig(cfg),
	}
}

// Session is a role-assumed view of one account in one region.
type Session struct {
	Account Account
	Region  string
	*Clients
}

// Assumer hands out sessions. Implementations must be safe for concurrent
// use with different (account, region) pairs.
type Assumer interface {
	AssumeSession(ctx context.Context, account Account, region string) (*Session, error)
}

type AssumeRoleError struct {
	AccountID string
	Region    string
	RoleARN   string
	Err       error
}

func (e *AssumeRoleError) Error() string {
	return fmt.Sprintf("unable to assume %s in %s for account %s: %s", e.RoleARN, e.Region, e.AccountID, e.Err)
}

func (e *AssumeRoleError) Unwrap() error {
	return e.Err
}
