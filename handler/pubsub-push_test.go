package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"gblaquiere.dev/billing-disabler/handler"
	"gblaquiere.dev/billing-disabler/internal/cloudlog"
	"gblaquiere.dev/billing-disabler/internal/disabler"
	"gblaquiere.dev/billing-disabler/internal/retry"
	"gblaquiere.dev/billing-disabler/model"
	outcome_state "gblaquiere.dev/billing-disabler/model/outcome-state"
)

type fakeProcessor struct {
	report *model.DisableReport
	err    error
	body   []byte
}

func (f *fakeProcessor) Process(ctx context.Context, body []byte) (*model.DisableReport, error) {
	f.body = body
	return f.report, f.err
}

func push(t *testing.T, h *handler.BudgetAlert, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/pubsub/budget-alert", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Router(h).ServeHTTP(rec, req)
	return rec
}

func newHandler(processor *fakeProcessor) *handler.BudgetAlert {
	return &handler.BudgetAlert{
		Engine: processor,
		Log:    cloudlog.Nop(),
	}
}

func TestDisableBillingAcknowledgesHandledInvocation(t *testing.T) {
	processor := &fakeProcessor{report: &model.DisableReport{
		BudgetID:         "b1",
		BillingAccountID: "acct1",
		Outcomes: []model.DisableOutcome{
			{ProjectID: "proj-a", Status: outcome_state.AlreadyDisabled},
			{ProjectID: "proj-b", Status: outcome_state.Disabled},
		},
		Disposition: outcome_state.AllHandled,
	}}

	rec := push(t, newHandler(processor), `{"message":{}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []byte(`{"message":{}}`), processor.body)

	var report model.DisableReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, outcome_state.AllHandled, report.Disposition)
	assert.Len(t, report.Outcomes, 2)
}

func TestDisableBillingRequestsRedeliveryOnTransientOutcomes(t *testing.T) {
	processor := &fakeProcessor{report: &model.DisableReport{
		BudgetID: "b1",
		Outcomes: []model.DisableOutcome{
			{ProjectID: "proj-a", Status: outcome_state.FailedTransient},
		},
		Disposition: outcome_state.RetryInvocation,
	}}

	rec := push(t, newHandler(processor), `{"message":{}}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestDisableBillingAcknowledgesPermanentFailures(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"malformed message", &disabler.DecodeError{Reason: "no budgetId found in message attributes"}},
		{"budget not found", &disabler.ResolutionError{Err: &retry.Error{
			Err:      status.Error(codes.NotFound, "no such budget"),
			Class:    retry.Permanent,
			Attempts: 1,
		}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := push(t, newHandler(&fakeProcessor{err: tc.err}), `{"message":{}}`)

			assert.Equal(t, http.StatusOK, rec.Code)

			var response model.Error
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
			assert.NotEmpty(t, response.Error)
		})
	}
}

func TestDisableBillingRequestsRedeliveryOnTransientResolution(t *testing.T) {
	processor := &fakeProcessor{err: &disabler.ResolutionError{Err: &retry.Error{
		Err:      status.Error(codes.ResourceExhausted, "rate limited"),
		Class:    retry.Transient,
		Attempts: 3,
	}}}

	rec := push(t, newHandler(processor), `{"message":{}}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRouterRejectsWrongMethod(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/pubsub/budget-alert", nil)
	rec := httptest.NewRecorder()

	handler.Router(newHandler(&fakeProcessor{})).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthz(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	handler.Router(newHandler(&fakeProcessor{})).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
