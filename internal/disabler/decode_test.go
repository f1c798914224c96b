package disabler_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gblaquiere.dev/billing-disabler/internal/disabler"
)

func pushBody(t *testing.T, data []byte, attributes map[string]string) []byte {
	t.Helper()
	body, err := json.Marshal(disabler.PushEnvelope{
		Message: disabler.PushMessage{
			Data:       data,
			Attributes: attributes,
			MessageID:  "42",
		},
		Subscription: "projects/p/subscriptions/budget-alerts",
	})
	require.NoError(t, err)
	return body
}

func TestDecodeValidEnvelope(t *testing.T) {
	payload := []byte(`{"costAmount": 120.5, "budgetAmount": 100.0}`)
	body := pushBody(t, payload, map[string]string{
		"budgetId":         "b1",
		"billingAccountId": "acct1",
	})

	message, err := disabler.Decode(body)

	require.NoError(t, err)
	assert.Equal(t, "b1", message.BudgetID)
	assert.Equal(t, "acct1", message.BillingAccountID)
	assert.Equal(t, payload, message.Payload)
}

func TestDecodeMissingBudgetID(t *testing.T) {
	body := pushBody(t, []byte(`{}`), map[string]string{"billingAccountId": "acct1"})

	_, err := disabler.Decode(body)

	var decodeErr *disabler.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Contains(t, decodeErr.Error(), "budgetId")
}

func TestDecodeMissingBillingAccountID(t *testing.T) {
	body := pushBody(t, []byte(`{}`), map[string]string{"budgetId": "b1"})

	_, err := disabler.Decode(body)

	var decodeErr *disabler.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Contains(t, decodeErr.Error(), "billingAccountId")
}

func TestDecodeEmptyPayload(t *testing.T) {
	body := pushBody(t, nil, map[string]string{
		"budgetId":         "b1",
		"billingAccountId": "acct1",
	})

	_, err := disabler.Decode(body)

	var decodeErr *disabler.DecodeError
	require.ErrorAs(t, err, &decodeErr)
}

func TestDecodeMalformedBody(t *testing.T) {
	_, err := disabler.Decode([]byte("not json at all"))

	var decodeErr *disabler.DecodeError
	require.ErrorAs(t, err, &decodeErr)
}

func TestDecodeFailureIsNotRetryable(t *testing.T) {
	_, err := disabler.Decode([]byte("{"))

	require.Error(t, err)
	assert.False(t, disabler.IsRetryable(err))
}
