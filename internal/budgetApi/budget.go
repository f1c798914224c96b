package budgetApi

import (
	"context"
	"errors"
	"fmt"
	"strings"

	billing "cloud.google.com/go/billing/apiv1"
	billingModel "cloud.google.com/go/billing/apiv1/billingpb"
	budgets "cloud.google.com/go/billing/budgets/apiv1"
	budgetModel "cloud.google.com/go/billing/budgets/apiv1/budgetspb"
	"google.golang.org/api/iterator"

	"gblaquiere.dev/billing-disabler/internal/retry"
	"gblaquiere.dev/billing-disabler/model"
)

const (
	projectPrefix        = "projects/"
	billingAccountPrefix = "billingAccounts/"
)

// ErrUnscopedBudget is returned when the budget carries no project filter and
// the unscoped opt-in is off. Expanding silently to every project of the
// billing account could detach far more than the operator intended.
var ErrUnscopedBudget = errors.New("budget has no project filter; set ALLOW_UNSCOPED_BUDGET=true to target every project of the billing account")

type Client struct {
	budgets       *budgets.BudgetClient
	billing       *billing.CloudBillingClient
	retry         retry.Policy
	allowUnscoped bool
}

func New(budgetClient *budgets.BudgetClient, billingClient *billing.CloudBillingClient, policy retry.Policy, allowUnscoped bool) *Client {
	return &Client{
		budgets:       budgetClient,
		billing:       billingClient,
		retry:         policy,
		allowUnscoped: allowUnscoped,
	}
}

// Targets resolves the alerted budget to the ordered, deduplicated list of
// project IDs the disable action applies to. The budget is fetched fresh on
// every invocation, a cached filter could misdirect the action.
func (c *Client) Targets(ctx context.Context, message *model.BudgetAlertMessage) ([]string, error) {
	var budget *budgetModel.Budget

	err := c.retry.Do(ctx, func(ctx context.Context) error {
		req := &budgetModel.GetBudgetRequest{
			Name: budgetName(message.BillingAccountID, message.BudgetID),
		}
		b, err := c.budgets.GetBudget(ctx, req)
		if err != nil {
			return err
		}
		budget = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	if projects := FilterProjects(budget); len(projects) > 0 {
		return projects, nil
	}

	if !c.allowUnscoped {
		return nil, ErrUnscopedBudget
	}
	return c.accountProjects(ctx, message.BillingAccountID)
}

// FilterProjects returns the budget's explicit project filter with the
// resource prefix stripped, deduplicated, first occurrence order preserved.
func FilterProjects(budget *budgetModel.Budget) (projects []string) {
	seen := map[string]bool{}
	for _, p := range budget.GetBudgetFilter().GetProjects() {
		projectID := strings.TrimPrefix(p, projectPrefix)
		if projectID == "" || seen[projectID] {
			continue
		}
		seen[projectID] = true
		projects = append(projects, projectID)
	}
	return
}

// accountProjects lists every project currently linked to the billing
// account. Only reachable with the unscoped opt-in.
func (c *Client) accountProjects(ctx context.Context, billingAccountID string) ([]string, error) {
	var projects []string

	err := c.retry.Do(ctx, func(ctx context.Context) error {
		projects = projects[:0]
		req := &billingModel.ListProjectBillingInfoRequest{
			Name: billingAccountPrefix + billingAccountID,
		}
		infos := c.billing.ListProjectBillingInfo(ctx, req)
		for {
			info, err := infos.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				return err
			}
			if info.GetBillingEnabled() {
				projects = append(projects, info.GetProjectId())
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(projects) == 0 {
		// configuration anomaly, not a silent no-op
		return nil, fmt.Errorf("billing account %s has no linked project to disable", billingAccountID)
	}
	return projects, nil
}

func budgetName(billingAccountID string, budgetID string) string {
	return fmt.Sprintf("%s%s/budgets/%s", billingAccountPrefix, billingAccountID, budgetID)
}
