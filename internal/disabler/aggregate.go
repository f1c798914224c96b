package disabler

import (
	"gblaquiere.dev/billing-disabler/model"
	outcome_state "gblaquiere.dev/billing-disabler/model/outcome-state"
)

// BuildReport assembles the per-project outcomes into the invocation report.
// Permanent failures are handled: redelivering cannot change them and would
// re-run already completed detaches on the sibling projects. Any transient
// failure asks the transport to redeliver the whole invocation.
func BuildReport(message *model.BudgetAlertMessage, outcomes []model.DisableOutcome) *model.DisableReport {
	disposition := outcome_state.AllHandled
	for _, outcome := range outcomes {
		if outcome.Status == outcome_state.FailedTransient {
			disposition = outcome_state.RetryInvocation
			break
		}
	}

	return &model.DisableReport{
		BudgetID:         message.BudgetID,
		BillingAccountID: message.BillingAccountID,
		Outcomes:         outcomes,
		Disposition:      disposition,
	}
}
