package billingApi

import (
	"context"
	"strings"

	billing "cloud.google.com/go/billing/apiv1"
	billingModel "cloud.google.com/go/billing/apiv1/billingpb"

	"gblaquiere.dev/billing-disabler/internal/retry"
	"gblaquiere.dev/billing-disabler/model"
)

const (
	projectPrefix        = "projects/"
	billingAccountPrefix = "billingAccounts/"
)

type Client struct {
	billing *billing.CloudBillingClient
	retry   retry.Policy
}

func New(billingClient *billing.CloudBillingClient, policy retry.Policy) *Client {
	return &Client{
		billing: billingClient,
		retry:   policy,
	}
}

// ProjectBillingInfo reads the current billing linkage of one project.
// Read-only, no side effect.
func (c *Client) ProjectBillingInfo(ctx context.Context, projectID string) (*model.TargetProject, error) {
	var info *billingModel.ProjectBillingInfo

	err := c.retry.Do(ctx, func(ctx context.Context) error {
		req := &billingModel.GetProjectBillingInfoRequest{
			Name: projectPrefix + projectID,
		}
		i, err := c.billing.GetProjectBillingInfo(ctx, req)
		if err != nil {
			return err
		}
		info = i
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &model.TargetProject{
		ProjectID:        projectID,
		BillingEnabled:   info.GetBillingEnabled(),
		BillingAccountID: strings.TrimPrefix(info.GetBillingAccountName(), billingAccountPrefix),
	}, nil
}

// DetachProjectBilling unlinks the project from its billing account. An empty
// billing account name is the provider's disable operation.
func (c *Client) DetachProjectBilling(ctx context.Context, projectID string) error {
	return c.retry.Do(ctx, func(ctx context.Context) error {
		req := &billingModel.UpdateProjectBillingInfoRequest{
			Name: projectPrefix + projectID,
			ProjectBillingInfo: &billingModel.ProjectBillingInfo{
				BillingAccountName: "",
			},
		}
		_, err := c.billing.UpdateProjectBillingInfo(ctx, req)
		return err
	})
}
