// Package notification turns aggregated test outcomes into display blocks
// and delivers them to chat channels.
package notification

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Veraticus/go-test-notify/pkg/channel"
	"github.com/Veraticus/go-test-notify/pkg/report"
)

const (
	// MaxMessageLength is the number of runes of a failure message kept
	// before truncation.
	MaxMessageLength = 1000
	// TruncationMarker is appended to truncated failure messages.
	TruncationMarker = " ..."
)

// DefaultTitle is the heading used when none is configured.
const DefaultTitle = "Test report result"

// Status shortcodes.
const (
	MarkerPassed  = ":large_green_circle:"
	MarkerFailed  = ":red_circle:"
	MarkerSkipped = ":white_circle:"
)

// Divider separates tests in single mode.
var Divider = channel.Block{Kind: channel.KindDivider}

// Heading returns the plain-text heading block.
func Heading(title string) channel.Block {
	return channel.Block{Kind: channel.KindHeading, Text: title}
}

// Formatter renders one test's records as display blocks.
type Formatter struct {
	// Annotation is added to the header of tests that failed or skipped.
	Annotation string
}

// TestBlocks returns the header blocks (name, status and optional
// annotation) and one preformatted block per failure message. A test without
// records yields no blocks.
func (f Formatter) TestBlocks(name report.TestName, records []report.OutcomeRecord) (header, failures []channel.Block) {
	if len(records) == 0 {
		return nil, nil
	}

	status, messages := report.Classify(records)

	header = append(header, channel.Block{
		Kind:   channel.KindSection,
		Fields: []string{"*" + string(name) + "*", StatusLine(status)},
	})
	if f.Annotation != "" && (status.Failed > 0 || status.Skipped > 0) {
		header = append(header, channel.Block{Kind: channel.KindSection, Text: f.Annotation})
	}

	return header, FailureBlocks(messages)
}

// StatusLine describes s with status shortcodes. A single execution is named
// by its outcome; several executions are counted per outcome.
func StatusLine(s report.Status) string {
	if s.Total == 1 {
		switch {
		case s.Failed == 1:
			return MarkerFailed + " *Failed*"
		case s.Passed == 1:
			return MarkerPassed + " *Passed*"
		default:
			return MarkerSkipped + " *Skipped*"
		}
	}

	var lines []string
	if s.Passed > 0 {
		lines = append(lines, fmt.Sprintf("%s *Passed*: %d", MarkerPassed, s.Passed))
	}
	if s.Failed > 0 {
		lines = append(lines, fmt.Sprintf("%s *Failed*: %d", MarkerFailed, s.Failed))
	}
	if s.Skipped > 0 {
		lines = append(lines, fmt.Sprintf("%s *Skipped*: %d", MarkerSkipped, s.Skipped))
	}
	return strings.Join(lines, "\n")
}

// FailureBlocks returns one preformatted block per message.
func FailureBlocks(messages []string) []channel.Block {
	if len(messages) == 0 {
		return nil
	}
	blocks := make([]channel.Block, 0, len(messages))
	for _, msg := range messages {
		blocks = append(blocks, channel.Block{
			Kind: channel.KindSection,
			Text: Truncate(msg),
			Code: true,
		})
	}
	return blocks
}

// Truncate cuts msg to MaxMessageLength runes followed by TruncationMarker.
func Truncate(msg string) string {
	if utf8.RuneCountInString(msg) <= MaxMessageLength {
		return msg
	}
	return string([]rune(msg)[:MaxMessageLength]) + TruncationMarker
}

// TitleFunc builds the report heading at delivery time.
type TitleFunc func(now time.Time) string

// NewTitleFunc returns a TitleFunc producing "<base> - <ctime>", prefixed
// with "<project>: " when project is set.
func NewTitleFunc(base, project string) TitleFunc {
	if base == "" {
		base = DefaultTitle
	}
	return func(now time.Time) string {
		title := base + " - " + now.Format(time.ANSIC)
		if project != "" {
			title = project + ": " + title
		}
		return title
	}
}

// ProjectName returns the basename of the working directory, or "" when it
// cannot be determined.
func ProjectName() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	base := filepath.Base(cwd)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return base
}
