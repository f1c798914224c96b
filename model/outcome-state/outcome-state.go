package outcome_state

// Status is the terminal state of the disable action for one project.
type Status string

const (
	AlreadyDisabled Status = "already_disabled"
	Disabled        Status = "disabled"
	Simulated       Status = "simulated"
	FailedTransient Status = "failed_transient"
	FailedPermanent Status = "failed_permanent"
)

// Disposition tells the delivery transport whether the invocation is done.
type Disposition string

const (
	AllHandled      Disposition = "all_handled"
	RetryInvocation Disposition = "retry_invocation"
)

// Failed reports whether the status describes a failure of any kind.
func (s Status) Failed() bool {
	return s == FailedTransient || s == FailedPermanent
}
