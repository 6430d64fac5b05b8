package report_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/go-test-notify/pkg/report"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name         string
		records      []report.OutcomeRecord
		wantStatus   report.Status
		wantMessages []string
	}{
		{
			name:       "no records",
			wantStatus: report.Status{},
		},
		{
			name:       "single pass",
			records:    []report.OutcomeRecord{report.Passed("TestA")},
			wantStatus: report.Status{Total: 1, Passed: 1},
		},
		{
			name: "mixed keeps failure order",
			records: []report.OutcomeRecord{
				report.Failed("TestA/1", "first"),
				report.Passed("TestA/2"),
				report.Skipped("TestA/3"),
				report.Failed("TestA/4", "second"),
			},
			wantStatus:   report.Status{Total: 4, Passed: 1, Failed: 2, Skipped: 1},
			wantMessages: []string{"first", "second"},
		},
		{
			name:       "unknown kinds are not counted",
			records:    []report.OutcomeRecord{{Kind: "errored"}, report.Passed("TestA")},
			wantStatus: report.Status{Total: 1, Passed: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, messages := report.Classify(tt.records)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantMessages, messages)
			assert.Equal(t, status.Total, status.Passed+status.Failed+status.Skipped)
		})
	}
}

func TestFailed_Placeholder(t *testing.T) {
	assert.Equal(t, "TestA/case failed", report.Failed("TestA/case", "").Message)
	assert.Equal(t, "test failed", report.Failed("", "").Message)
	assert.Equal(t, "boom", report.Failed("TestA", "boom").Message)
	assert.Empty(t, report.Passed("TestA").Message)
}
