package model

import outcome_state "gblaquiere.dev/billing-disabler/model/outcome-state"

// BudgetAlertMessage is the decoded budget notification. The payload carries
// the cost metrics published by the budget; it is kept opaque, only its
// presence is validated.
type BudgetAlertMessage struct {
	BudgetID         string `json:"budget_id"`
	BillingAccountID string `json:"billing_account_id"`
	Payload          []byte `json:"-"`
}

// TargetProject is the billing linkage of one project as observed during the
// current invocation. Never persisted, re-read on every delivery.
type TargetProject struct {
	ProjectID        string `json:"project_id"`
	BillingEnabled   bool   `json:"billing_enabled"`
	BillingAccountID string `json:"billing_account_id,omitempty"`
}

type DisableOutcome struct {
	ProjectID string               `json:"project_id"`
	Status    outcome_state.Status `json:"status"`
	Detail    string               `json:"detail,omitempty"`
}

type DisableReport struct {
	BudgetID         string                    `json:"budget_id"`
	BillingAccountID string                    `json:"billing_account_id"`
	Outcomes         []DisableOutcome          `json:"outcomes"`
	Disposition      outcome_state.Disposition `json:"disposition"`
}

type Error struct {
	Error string `json:"error,omitempty"`
	Help  string `json:"help,omitempty"`
}
