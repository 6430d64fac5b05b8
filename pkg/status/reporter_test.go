package status

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReporter(t *testing.T) {
	buf := &bytes.Buffer{}
	indicator := NewIndicator(buf, true)
	reporter := NewReporter(indicator)

	reporter.ReportSending("slack")
	assert.Equal(t, StatusSending, indicator.GetStatus("slack"))

	reporter.ReportSuccess("slack")
	assert.Equal(t, StatusSuccess, indicator.GetStatus("slack"))

	reporter.ReportFailure("ntfy")
	assert.Equal(t, StatusFailed, indicator.GetStatus("ntfy"))
	assert.Equal(t, StatusSuccess, indicator.GetStatus("slack"))
}

func TestReporterWithNilIndicator(t *testing.T) {
	reporter := NewReporter(nil)

	assert.NotPanics(t, func() {
		reporter.ReportSending("slack")
		reporter.ReportSuccess("slack")
		reporter.ReportFailure("slack")
	})
}
