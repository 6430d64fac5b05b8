package report

// Status is the aggregate of a test's records.
// Total always equals Passed+Failed+Skipped.
type Status struct {
	Total   int
	Passed  int
	Failed  int
	Skipped int
}

// Classify counts records by outcome and collects the failure messages in
// record order.
func Classify(records []OutcomeRecord) (Status, []string) {
	var (
		status   Status
		messages []string
	)

	for _, r := range records {
		switch r.Kind {
		case OutcomePassed:
			status.Passed++
		case OutcomeFailed:
			status.Failed++
			messages = append(messages, r.Message)
		case OutcomeSkipped:
			status.Skipped++
		default:
			// Unknown kinds are not counted so the totals stay consistent.
			continue
		}
		status.Total++
	}

	return status, messages
}
