package disabler

import (
	"encoding/json"

	"gblaquiere.dev/billing-disabler/model"
)

const (
	attrBudgetID         = "budgetId"
	attrBillingAccountID = "billingAccountId"
)

// PushEnvelope is the Pub/Sub push delivery wrapper around the budget
// notification.
type PushEnvelope struct {
	Message      PushMessage `json:"message"`
	Subscription string      `json:"subscription,omitempty"`
}

type PushMessage struct {
	// Data arrives base64 encoded, encoding/json decodes it into the byte
	// slice directly.
	Data       []byte            `json:"data,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	MessageID  string            `json:"messageId,omitempty"`
}

// DecodeError marks a malformed inbound event. Always permanent, redelivering
// the same message cannot fix it.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return "decode budget alert: " + e.Reason
}

// Decode validates the raw push body into a BudgetAlertMessage. No side
// effect.
func Decode(body []byte) (*model.BudgetAlertMessage, error) {
	var envelope PushEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &DecodeError{Reason: err.Error()}
	}
	return DecodeMessage(envelope.Message.Data, envelope.Message.Attributes)
}

// DecodeMessage extracts the budget identifiers from the message attributes.
// The data payload carries the cost metrics; it is validated for presence and
// kept opaque.
func DecodeMessage(data []byte, attributes map[string]string) (*model.BudgetAlertMessage, error) {
	budgetID := attributes[attrBudgetID]
	if budgetID == "" {
		return nil, &DecodeError{Reason: "no budgetId found in message attributes"}
	}

	billingAccountID := attributes[attrBillingAccountID]
	if billingAccountID == "" {
		return nil, &DecodeError{Reason: "no billingAccountId found in message attributes"}
	}

	if len(data) == 0 {
		return nil, &DecodeError{Reason: "empty message payload"}
	}

	return &model.BudgetAlertMessage{
		BudgetID:         budgetID,
		BillingAccountID: billingAccountID,
		Payload:          data,
	}, nil
}
