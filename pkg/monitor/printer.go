package monitor

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Printer echoes the test stream to the terminal, either verbatim or as the
// plain `go test` text carried in output events.
type Printer struct {
	out io.Writer
	raw bool

	pass lipgloss.Style
	fail lipgloss.Style
	skip lipgloss.Style
}

// NewPrinter creates a printer. With raw set every line is echoed as
// received.
func NewPrinter(out io.Writer, raw bool) *Printer {
	r := lipgloss.NewRenderer(out)
	return &Printer{
		out:  out,
		raw:  raw,
		pass: r.NewStyle().Foreground(lipgloss.Color("10")),
		fail: r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		skip: r.NewStyle().Foreground(lipgloss.Color("11")),
	}
}

// PrintLine prints line, or the text of ev when it is an output event. Lines
// that are not events are always echoed.
func (p *Printer) PrintLine(line string, ev *Event) {
	if p.raw || ev == nil {
		_, _ = io.WriteString(p.out, line+"\n")
		return
	}
	if ev.Action != ActionOutput {
		return
	}
	_, _ = io.WriteString(p.out, p.style(ev.Output))
}

func (p *Printer) style(text string) string {
	body := strings.TrimRight(text, "\n")
	trimmed := strings.TrimSpace(body)

	var s *lipgloss.Style
	switch {
	case strings.HasPrefix(trimmed, "--- PASS"), strings.HasPrefix(trimmed, "ok "), trimmed == "PASS":
		s = &p.pass
	case strings.HasPrefix(trimmed, "--- FAIL"), strings.HasPrefix(trimmed, "FAIL"):
		s = &p.fail
	case strings.HasPrefix(trimmed, "--- SKIP"):
		s = &p.skip
	default:
		return text
	}
	return s.Render(body) + text[len(body):]
}
