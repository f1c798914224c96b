package disabler

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"gblaquiere.dev/billing-disabler/internal/cloudlog"
	"gblaquiere.dev/billing-disabler/internal/retry"
	"gblaquiere.dev/billing-disabler/model"
	outcome_state "gblaquiere.dev/billing-disabler/model/outcome-state"
)

const defaultMaxParallel = 4

// BudgetResolver turns the alert into the ordered set of target project IDs.
type BudgetResolver interface {
	Targets(ctx context.Context, message *model.BudgetAlertMessage) ([]string, error)
}

// BillingService reads and severs the billing linkage of a single project.
type BillingService interface {
	ProjectBillingInfo(ctx context.Context, projectID string) (*model.TargetProject, error)
	DetachProjectBilling(ctx context.Context, projectID string) error
}

// ResolutionError marks a failure to turn the alert into target projects.
// It applies to the whole invocation, no per-project work has started yet.
type ResolutionError struct {
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve budget targets: %v", e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether redelivering the invocation can change the
// result of an invocation-level failure.
func IsRetryable(err error) bool {
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return false
	}
	return retry.IsTransient(err)
}

// Engine runs one budget alert invocation end to end: resolve the targets,
// disable each one, aggregate the outcomes.
type Engine struct {
	budgets     BudgetResolver
	billing     BillingService
	log         *cloudlog.Logger
	simulate    bool
	maxParallel int
}

func New(budgets BudgetResolver, billing BillingService, log *cloudlog.Logger, simulate bool, maxParallel int) *Engine {
	if maxParallel < 1 {
		maxParallel = defaultMaxParallel
	}
	return &Engine{
		budgets:     budgets,
		billing:     billing,
		log:         log,
		simulate:    simulate,
		maxParallel: maxParallel,
	}
}

// Process decodes the raw push body and handles the resulting alert.
func (e *Engine) Process(ctx context.Context, body []byte) (*model.DisableReport, error) {
	message, err := Decode(body)
	if err != nil {
		return nil, err
	}
	return e.Handle(ctx, message)
}

// Handle fans out over the resolved target projects and aggregates their
// outcomes. Per-project failures never escape as errors, they become outcome
// data; only resolution failures abort the invocation.
func (e *Engine) Handle(ctx context.Context, message *model.BudgetAlertMessage) (*model.DisableReport, error) {
	targets, err := e.budgets.Targets(ctx, message)
	if err != nil {
		return nil, &ResolutionError{Err: err}
	}
	if len(targets) == 0 {
		return nil, &ResolutionError{Err: errors.New("budget resolved to zero target projects")}
	}

	e.log.Infof("budget %s on billing account %s resolved to %d project(s)", message.BudgetID, message.BillingAccountID, len(targets))

	// One outcome slot per target, written by index. No shared accumulation.
	outcomes := make([]model.DisableOutcome, len(targets))

	group := new(errgroup.Group)
	group.SetLimit(e.maxParallel)
	for i, projectID := range targets {
		i, projectID := i, projectID
		group.Go(func() error {
			outcomes[i] = e.disableOne(ctx, message, projectID)
			return nil
		})
	}
	_ = group.Wait()

	return BuildReport(message, outcomes), nil
}

// disableOne runs the check-then-act sequence for a single project. The
// status read right before acting is what keeps redeliveries idempotent: a
// previous, possibly unacknowledged invocation may already have detached the
// project.
func (e *Engine) disableOne(ctx context.Context, message *model.BudgetAlertMessage, projectID string) model.DisableOutcome {
	target, err := e.billing.ProjectBillingInfo(ctx, projectID)
	if err != nil {
		return e.failedOutcome(projectID, err)
	}

	if !target.BillingEnabled || target.BillingAccountID != message.BillingAccountID {
		e.log.Infof("project %s is not linked to billing account %s, nothing to do", projectID, message.BillingAccountID)
		return model.DisableOutcome{ProjectID: projectID, Status: outcome_state.AlreadyDisabled}
	}

	if e.simulate {
		e.log.Infof("simulation: would detach project %s from billing account %s", projectID, message.BillingAccountID)
		return model.DisableOutcome{
			ProjectID: projectID,
			Status:    outcome_state.Simulated,
			Detail:    "would detach from billing account " + message.BillingAccountID,
		}
	}

	if err := e.billing.DetachProjectBilling(ctx, projectID); err != nil {
		if isAlreadyDetached(err) {
			// lost the race against a concurrent delivery, same end state
			e.log.Infof("project %s was already detached by a concurrent actor", projectID)
			return model.DisableOutcome{ProjectID: projectID, Status: outcome_state.AlreadyDisabled}
		}
		return e.failedOutcome(projectID, err)
	}

	e.log.Infof("billing disabled for project %s", projectID)
	return model.DisableOutcome{ProjectID: projectID, Status: outcome_state.Disabled}
}

func (e *Engine) failedOutcome(projectID string, err error) model.DisableOutcome {
	st := outcome_state.FailedPermanent
	if retry.IsTransient(err) {
		st = outcome_state.FailedTransient
	}
	e.log.Warningf("project %s: %v", projectID, err)
	return model.DisableOutcome{
		ProjectID: projectID,
		Status:    st,
		Detail:    err.Error(),
	}
}

// isAlreadyDetached recognizes the provider refusing the update because the
// project is no longer linked to the billing account.
func isAlreadyDetached(err error) bool {
	s, ok := status.FromError(err)
	return ok && s.Code() == codes.FailedPrecondition
}
