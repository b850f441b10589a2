package session

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	otypes "github.com/aws/aws-sdk-go-v2/service/organizations/types"
)

// OrganizationsAPI satisfies organizations.ListAccountsAPIClient.
type OrganizationsAPI interface {
	ListAccounts(ctx context.Context, params *organizations.ListAccountsInput, optFns ...func(*organizations.Options)) (*organizations.ListAccountsOutput, error)
}

// ListAccounts pages through the organization and returns the active
// accounts. Suspended and closing accounts cannot be assumed into.
func ListAccounts(ctx context.Context, client OrganizationsAPI) ([]Account, error) {
	if client == nil {
		return nil, fmt.Errorf("no organizations client configured")
	}
	paginator := organizations.NewListAccountsPaginator(client, &organizations.ListAccountsInput{})

	accounts := []Account{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list organization accounts: %w", err)
		}
		for _, a := range page.Accounts {
			if a.Status != otypes.AccountStatusActive {
				continue
			}
			accounts = append(accounts, Account{
				ID:   aws.ToString(a.Id),
				Name: aws.ToString(a.Name),
			})
		}
	}
	return accounts, nil
}
