package status

import "github.com/Veraticus/go-test-notify/pkg/interfaces"

// Reporter adapts the Indicator to implement interfaces.StatusReporter
type Reporter struct {
	indicator *Indicator
}

// NewReporter creates a new status reporter
func NewReporter(indicator *Indicator) *Reporter {
	return &Reporter{
		indicator: indicator,
	}
}

// Ensure Reporter implements StatusReporter
var _ interfaces.StatusReporter = (*Reporter)(nil)

// ReportSending reports that a report is being delivered
func (r *Reporter) ReportSending(listener string) {
	if r.indicator != nil {
		r.indicator.SetStatus(listener, StatusSending)
	}
}

// ReportSuccess reports that a report was delivered
func (r *Reporter) ReportSuccess(listener string) {
	if r.indicator != nil {
		r.indicator.SetStatus(listener, StatusSuccess)
	}
}

// ReportFailure reports that part of a report could not be delivered
func (r *Reporter) ReportFailure(listener string) {
	if r.indicator != nil {
		r.indicator.SetStatus(listener, StatusFailed)
	}
}
