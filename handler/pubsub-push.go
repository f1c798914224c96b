package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"gblaquiere.dev/billing-disabler/internal/cloudlog"
	"gblaquiere.dev/billing-disabler/internal/disabler"
	"gblaquiere.dev/billing-disabler/internal/metrics"
	"gblaquiere.dev/billing-disabler/model"
	outcome_state "gblaquiere.dev/billing-disabler/model/outcome-state"
)

/*
	Receives the budget alert notification as a Pub/Sub push request. The HTTP
	status drives redelivery: any non-2xx makes the subscription deliver the
	message again.
*/

// Processor runs one invocation end to end from the raw push body.
type Processor interface {
	Process(ctx context.Context, body []byte) (*model.DisableReport, error)
}

type BudgetAlert struct {
	Engine  Processor
	Metrics *metrics.Recorder
	Log     *cloudlog.Logger
}

func (h *BudgetAlert) DisableBilling(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.Log.Errorf("io.ReadAll: %v", err)
		http.Error(w, fmt.Sprintf("Bad Request %q", err), http.StatusBadRequest)
		return
	}

	report, err := h.Engine.Process(r.Context(), body)
	if err != nil {
		if disabler.IsRetryable(err) {
			h.Log.Errorf("invocation failed, requesting redelivery: %v", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		// Permanent failure: acknowledge, redelivering the same message would
		// loop forever without changing the result.
		h.Log.Errorf("invocation failed permanently, acknowledging: %v", err)
		formatResponse(w, http.StatusOK, &model.Error{
			Error: err.Error(),
			Help:  "redelivery cannot fix this message, fix the budget or the subscription configuration",
		})
		return
	}

	if err := h.Metrics.Record(r.Context(), report); err != nil {
		h.Log.Warningf("metrics.Record: %v", err)
	}

	if report.Disposition == outcome_state.RetryInvocation {
		h.Log.Warningf("budget %s: transient failures remain, requesting redelivery", report.BudgetID)
		formatResponse(w, http.StatusInternalServerError, report)
		return
	}

	formatResponse(w, http.StatusOK, report)
}

func (h *BudgetAlert) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "ok")
}

// Router wires the push and health endpoints.
func Router(h *BudgetAlert) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/pubsub/budget-alert", h.DisableBilling).Methods(http.MethodPost)
	r.HandleFunc("/healthz", h.Healthz).Methods(http.MethodGet)
	return r
}

func formatResponse(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Add("Content-type", "application/json")
	w.WriteHeader(code)
	out, _ := json.Marshal(payload)
	fmt.Fprint(w, string(out))
}
