package invoicing

import "time"

// DefaultGracePeriod is how long after its due date an unpaid document keeps
// being shown as merely validated
const DefaultGracePeriod = 10 * 24 * time.Hour

// StatusView is the derived display status of a document. It is computed on
// read and never stored.
type StatusView struct {
	Stored    Status `json:"stored"`
	Displayed Status `json:"displayed"`
	StatusInfo
}

// Present derives the display status: a NOT_PAID document whose due date is
// later than now minus the grace period is shown as VALIDATED.
func Present(status Status, dueDate, now time.Time, grace time.Duration) StatusView {
	displayed := status
	if status == StatusNotPaid && dueDate.After(now.Add(-grace)) {
		displayed = StatusValidated
	}
	return StatusView{
		Stored:     status,
		Displayed:  displayed,
		StatusInfo: StatusMetadata(displayed),
	}
}
