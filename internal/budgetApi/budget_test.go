package budgetApi_test

import (
	"testing"

	budgetModel "cloud.google.com/go/billing/budgets/apiv1/budgetspb"
	"github.com/stretchr/testify/assert"

	"gblaquiere.dev/billing-disabler/internal/budgetApi"
	"gblaquiere.dev/billing-disabler/internal/retry"
)

func budgetWithProjects(projects ...string) *budgetModel.Budget {
	return &budgetModel.Budget{
		BudgetFilter: &budgetModel.Filter{Projects: projects},
	}
}

func TestFilterProjectsStripsResourcePrefix(t *testing.T) {
	budget := budgetWithProjects("projects/proj-a", "projects/proj-b")

	assert.Equal(t, []string{"proj-a", "proj-b"}, budgetApi.FilterProjects(budget))
}

func TestFilterProjectsDeduplicatesKeepingFirstOccurrence(t *testing.T) {
	budget := budgetWithProjects(
		"projects/proj-b",
		"projects/proj-a",
		"projects/proj-b",
		"proj-a",
		"projects/proj-c",
	)

	assert.Equal(t, []string{"proj-b", "proj-a", "proj-c"}, budgetApi.FilterProjects(budget))
}

func TestFilterProjectsIgnoresEmptyEntries(t *testing.T) {
	budget := budgetWithProjects("projects/", "", "projects/proj-a")

	assert.Equal(t, []string{"proj-a"}, budgetApi.FilterProjects(budget))
}

func TestFilterProjectsUnscopedBudget(t *testing.T) {
	assert.Empty(t, budgetApi.FilterProjects(&budgetModel.Budget{}))
	assert.Empty(t, budgetApi.FilterProjects(budgetWithProjects()))
}

func TestUnscopedRefusalIsPermanent(t *testing.T) {
	// the safety refusal must never look retryable to the caller
	assert.False(t, retry.IsTransient(budgetApi.ErrUnscopedBudget))
}
