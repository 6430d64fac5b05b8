package channel

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"
)

const telegramTextLimit = 4000

var telegramBold = regexp.MustCompile(`\*([^*\n]+)\*`)

// Telegram posts HTML messages through the Telegram Bot API. Threads are
// reply chains: the thread identifier is the id of the anchor message.
type Telegram struct {
	bot *tele.Bot
}

// Ensure Telegram implements Client
var _ Client = (*Telegram)(nil)

// chatRecipient accepts both numeric chat ids and @channel usernames.
type chatRecipient string

func (c chatRecipient) Recipient() string { return string(c) }

// NewTelegram creates a Telegram client. apiURL overrides the Bot API
// endpoint and is only useful for tests; pass "" for the default.
func NewTelegram(token, apiURL string) (*Telegram, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	b, err := tele.NewBot(tele.Settings{
		URL:     apiURL,
		Token:   token,
		Offline: true,
		Client:  &http.Client{Timeout: 30 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &Telegram{bot: b}, nil
}

// Post implements Client. Long messages are split; the id of the first part
// is returned.
func (t *Telegram) Post(ctx context.Context, channel string, msg Message) (string, error) {
	opts := &tele.SendOptions{
		ParseMode:             tele.ModeHTML,
		DisableWebPagePreview: true,
	}
	if msg.ThreadID != "" {
		id, err := strconv.Atoi(msg.ThreadID)
		if err != nil {
			return "", &DeliveryError{Service: "telegram", Channel: channel, Err: fmt.Errorf("invalid thread id %q: %w", msg.ThreadID, err)}
		}
		opts.ReplyTo = &tele.Message{ID: id}
	}

	var first string
	for _, part := range splitTelegramHTML(TelegramHTML(msg.Blocks), telegramTextLimit) {
		if err := ctx.Err(); err != nil {
			return first, &DeliveryError{Service: "telegram", Channel: channel, Err: err}
		}
		sent, err := t.bot.Send(chatRecipient(channel), part, opts)
		if err != nil {
			return first, &DeliveryError{Service: "telegram", Channel: channel, Err: err}
		}
		if first == "" && sent != nil {
			first = strconv.Itoa(sent.ID)
		}
	}
	return first, nil
}

// TelegramHTML renders blocks as Telegram HTML, one block per paragraph.
func TelegramHTML(blocks []Block) []string {
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		switch b.Kind {
		case KindHeading:
			out = append(out, "<b>"+html.EscapeString(b.Text)+"</b>")
		case KindDivider:
			out = append(out, "──────────")
		case KindSection:
			if b.Code {
				out = append(out, "<pre>"+html.EscapeString(b.Text)+"</pre>")
				continue
			}
			parts := append([]string(nil), b.Fields...)
			if b.Text != "" {
				parts = append([]string{b.Text}, parts...)
			}
			text := html.EscapeString(ReplaceMarkers(strings.Join(parts, "\n")))
			out = append(out, telegramBold.ReplaceAllString(text, "<b>$1</b>"))
		}
	}
	return out
}

// splitTelegramHTML packs rendered blocks into messages no longer than limit
// runes. A block that alone exceeds the limit is cut; preformatted blocks are
// re-wrapped so every part stays valid HTML.
func splitTelegramHTML(blocks []string, limit int) []string {
	var (
		out []string
		cur strings.Builder
		n   int
	)
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
			n = 0
		}
	}

	for _, blk := range blocks {
		for _, piece := range cutBlock(blk, limit) {
			size := len([]rune(piece))
			if n > 0 && n+2+size > limit {
				flush()
			}
			if n > 0 {
				cur.WriteString("\n\n")
				n += 2
			}
			cur.WriteString(piece)
			n += size
		}
	}
	flush()

	if len(out) == 0 {
		return []string{""}
	}
	return out
}

func cutBlock(blk string, limit int) []string {
	rs := []rune(blk)
	if len(rs) <= limit {
		return []string{blk}
	}

	open, closeTag := "", ""
	if strings.HasPrefix(blk, "<pre>") && strings.HasSuffix(blk, "</pre>") {
		open, closeTag = "<pre>", "</pre>"
		rs = []rune(strings.TrimSuffix(strings.TrimPrefix(blk, open), closeTag))
	}
	size := limit - len(open) - len(closeTag)

	var out []string
	for start := 0; start < len(rs); {
		end := start + size
		if end > len(rs) {
			end = len(rs)
		}
		// Back up so an escaped entity such as &amp; is never split.
		if end < len(rs) {
			for i := end - 1; i > start && i >= end-6; i-- {
				if rs[i] == ';' {
					break
				}
				if rs[i] == '&' {
					end = i
					break
				}
			}
		}
		out = append(out, open+string(rs[start:end])+closeTag)
		start = end
	}
	return out
}
