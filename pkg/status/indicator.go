package status

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Status represents the delivery status of one listener
type Status int

const (
	StatusIdle Status = iota
	StatusSending
	StatusSuccess
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSending:
		return "sending"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Indicator shows report delivery progress on a single terminal line
type Indicator struct {
	mu      sync.Mutex
	order   []string
	status  map[string]Status
	enabled bool
	drawn   bool
	writer  io.Writer

	sending lipgloss.Style
	success lipgloss.Style
	failed  lipgloss.Style
}

// NewIndicator creates a new status indicator. Nothing is drawn unless
// enabled is set; callers enable it for terminals only.
func NewIndicator(writer io.Writer, enabled bool) *Indicator {
	r := lipgloss.NewRenderer(writer)
	return &Indicator{
		status:  make(map[string]Status),
		writer:  writer,
		enabled: enabled,
		sending: r.NewStyle().Foreground(lipgloss.Color("11")),
		success: r.NewStyle().Foreground(lipgloss.Color("10")),
		failed:  r.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

// SetStatus updates the status of a listener
func (i *Indicator) SetStatus(listener string, status Status) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if _, ok := i.status[listener]; !ok {
		i.order = append(i.order, listener)
	}
	i.status[listener] = status

	// Best effort - don't fail if we can't update the display
	_ = i.draw()
}

// GetStatus returns the status of a listener
func (i *Indicator) GetStatus(listener string) Status {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.status[listener]
}

// draw rewrites the status line
func (i *Indicator) draw() error {
	if !i.enabled || i.writer == nil {
		return nil
	}

	text := i.statusText()
	if text == "" {
		return nil
	}

	// \r returns to column 1, \033[2K clears the line
	if _, err := fmt.Fprintf(i.writer, "\r\033[2K%s", text); err != nil {
		return err
	}
	i.drawn = true
	return nil
}

// statusText returns the status line with color
func (i *Indicator) statusText() string {
	parts := make([]string, 0, len(i.order))
	for _, name := range i.order {
		switch i.status[name] {
		case StatusSending:
			parts = append(parts, i.sending.Render("⟳ "+name))
		case StatusSuccess:
			parts = append(parts, i.success.Render("✓ "+name))
		case StatusFailed:
			parts = append(parts, i.failed.Render("✗ "+name))
		}
	}

	if len(parts) == 0 {
		return ""
	}
	return "notify: " + strings.Join(parts, " ")
}

// Done ends the status line
func (i *Indicator) Done() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.drawn {
		return nil
	}
	i.drawn = false
	_, err := fmt.Fprintln(i.writer)
	return err
}
