// Package channel defines the chat-service capability used to deliver test
// reports and provides clients for Slack, Telegram and ntfy.
package channel

import (
	"context"
	"fmt"
	"strings"
)

// BlockKind is the kind of a display block.
type BlockKind int

const (
	// KindHeading is a plain-text title.
	KindHeading BlockKind = iota
	// KindSection is a markdown section, optionally split in fields.
	KindSection
	// KindDivider is a horizontal separator.
	KindDivider
)

// Block is a formatted unit of output. Section text uses a small markdown
// subset: *bold* and the status shortcodes listed in Markers.
type Block struct {
	Kind   BlockKind
	Text   string
	Fields []string
	// Code marks Text as preformatted.
	Code bool
}

// Message is one post to a channel.
type Message struct {
	// Title is the plain-text fallback shown in notifications.
	Title  string
	Blocks []Block
	// ThreadID, when set, posts the message as a reply in that thread.
	ThreadID string
}

// Client posts messages to a chat service. Implementations must be safe for
// concurrent use.
type Client interface {
	// Post sends msg to channel and returns the identifier of the new
	// message, usable as a ThreadID for replies.
	Post(ctx context.Context, channel string, msg Message) (string, error)
}

// DeliveryError is returned by clients for every failed post.
type DeliveryError struct {
	Service string
	Channel string
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s: deliver to %q: %v", e.Service, e.Channel, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Markers maps the status shortcodes used in block text to emoji, for
// services that do not understand shortcodes.
var Markers = map[string]string{
	":large_green_circle:": "🟢",
	":red_circle:":         "🔴",
	":white_circle:":       "⚪",
}

var markerReplacer = func() *strings.Replacer {
	pairs := make([]string, 0, len(Markers)*2)
	for code, emoji := range Markers {
		pairs = append(pairs, code, emoji)
	}
	return strings.NewReplacer(pairs...)
}()

// ReplaceMarkers substitutes status shortcodes with emoji.
func ReplaceMarkers(s string) string {
	return markerReplacer.Replace(s)
}

// PlainText renders blocks as markdown-flavoured plain text, one block per
// paragraph.
func PlainText(blocks []Block) string {
	var b strings.Builder
	for i, blk := range blocks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch blk.Kind {
		case KindHeading:
			b.WriteString(blk.Text)
		case KindDivider:
			b.WriteString("---")
		case KindSection:
			if blk.Code {
				b.WriteString("```\n")
				b.WriteString(blk.Text)
				b.WriteString("\n```")
				continue
			}
			parts := append([]string(nil), blk.Fields...)
			if blk.Text != "" {
				parts = append([]string{blk.Text}, parts...)
			}
			b.WriteString(ReplaceMarkers(strings.Join(parts, "\n")))
		}
	}
	return b.String()
}
