// Package interfaces defines the core interfaces used throughout the application.
package interfaces

import "context"

// OutputHandler processes output lines.
type OutputHandler interface {
	HandleLine(line string)
}

// DataHandler processes raw output data.
type DataHandler interface {
	OutputHandler
	HandleData(data []byte)
}

// RateLimiter limits how often a channel is called.
type RateLimiter interface {
	// Wait blocks until a call is allowed or ctx is done.
	Wait(ctx context.Context) error
}

// StatusReporter is told about report delivery progress.
type StatusReporter interface {
	ReportSending(listener string)
	ReportSuccess(listener string)
	ReportFailure(listener string)
}
