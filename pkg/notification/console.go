package notification

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/go-test-notify/pkg/channel"
	"github.com/Veraticus/go-test-notify/pkg/report"
)

// ConsoleListener prints the report to a terminal instead of a chat service.
type ConsoleListener struct {
	out       io.Writer
	formatter Formatter
	title     TitleFunc
	now       func() time.Time

	heading lipgloss.Style
	name    lipgloss.Style
	failure lipgloss.Style
	faint   lipgloss.Style

	mu      sync.Mutex
	updates []update
}

// Ensure ConsoleListener implements report.Listener
var _ report.Listener = (*ConsoleListener)(nil)

// NewConsoleListener creates a console listener writing to out. Colors are
// only used when out is a terminal.
func NewConsoleListener(out io.Writer, f Formatter, title TitleFunc) *ConsoleListener {
	if title == nil {
		title = NewTitleFunc("", "")
	}
	r := lipgloss.NewRenderer(out)
	return &ConsoleListener{
		out:       out,
		formatter: f,
		title:     title,
		now:       time.Now,
		heading:   r.NewStyle().Bold(true).Underline(true),
		name:      r.NewStyle().Bold(true),
		failure:   r.NewStyle().Foreground(lipgloss.Color("9")).PaddingLeft(4),
		faint:     r.NewStyle().Faint(true),
	}
}

// Update implements report.Listener.
func (c *ConsoleListener) Update(name report.TestName, records []report.OutcomeRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updates = append(c.updates, update{name: name, records: records})
}

// Finish implements report.Listener.
func (c *ConsoleListener) Finish(ctx context.Context) error {
	c.mu.Lock()
	updates := c.updates
	c.updates = nil
	c.mu.Unlock()

	reports := buildReports(c.formatter, updates)
	if len(reports) == 0 {
		return nil
	}

	if _, err := io.WriteString(c.out, c.render(reports)); err != nil {
		return fmt.Errorf("failed to write console report: %w", err)
	}
	return nil
}

func (c *ConsoleListener) render(reports []TestReport) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(c.heading.Render(c.title(c.now())))
	b.WriteString("\n")

	for _, r := range reports {
		b.WriteString("\n")
		for _, blk := range r.Header {
			c.renderHeader(&b, blk)
		}
		for _, blk := range r.Failures {
			b.WriteString(c.failure.Render(blk.Text))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (c *ConsoleListener) renderHeader(b *strings.Builder, blk channel.Block) {
	if len(blk.Fields) == 0 {
		b.WriteString(c.faint.Render(blk.Text))
		b.WriteString("\n")
		return
	}

	b.WriteString(c.name.Render(strings.Trim(blk.Fields[0], "*")))
	b.WriteString("\n")
	for _, f := range blk.Fields[1:] {
		for _, line := range strings.Split(f, "\n") {
			b.WriteString("  ")
			b.WriteString(strings.ReplaceAll(channel.ReplaceMarkers(line), "*", ""))
			b.WriteString("\n")
		}
	}
}
