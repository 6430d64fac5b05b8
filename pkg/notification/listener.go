package notification

import (
	"context"
	"sync"
	"time"

	"github.com/Veraticus/go-test-notify/pkg/report"
)

// update is one Update call as received from the aggregator.
type update struct {
	name    report.TestName
	records []report.OutcomeRecord
}

// ChannelListener collects a run's results and delivers them to one chat
// channel when the run finishes.
type ChannelListener struct {
	name      string
	formatter Formatter
	deliverer *Deliverer
	title     TitleFunc
	now       func() time.Time

	mu      sync.Mutex
	updates []update
}

// Ensure ChannelListener implements report.Listener
var _ report.Listener = (*ChannelListener)(nil)

// NewChannelListener creates a listener delivering through d.
func NewChannelListener(name string, d *Deliverer, f Formatter, title TitleFunc) *ChannelListener {
	if title == nil {
		title = NewTitleFunc("", "")
	}
	return &ChannelListener{
		name:      name,
		formatter: f,
		deliverer: d,
		title:     title,
		now:       time.Now,
	}
}

// Name returns the configured listener name.
func (l *ChannelListener) Name() string {
	return l.name
}

// Update implements report.Listener.
func (l *ChannelListener) Update(name report.TestName, records []report.OutcomeRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.updates = append(l.updates, update{name: name, records: records})
}

// Finish implements report.Listener. Delivery failures are handled by the
// Deliverer, so Finish always returns nil.
func (l *ChannelListener) Finish(ctx context.Context) error {
	l.mu.Lock()
	updates := l.updates
	l.updates = nil
	l.mu.Unlock()

	reports := buildReports(l.formatter, updates)
	if len(reports) == 0 {
		return nil
	}

	l.deliverer.Deliver(ctx, l.title(l.now()), reports)
	return nil
}

func buildReports(f Formatter, updates []update) []TestReport {
	reports := make([]TestReport, 0, len(updates))
	for _, u := range updates {
		header, failures := f.TestBlocks(u.name, u.records)
		if len(header) == 0 {
			continue
		}
		reports = append(reports, TestReport{Name: u.name, Header: header, Failures: failures})
	}
	return reports
}
