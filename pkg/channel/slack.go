package channel

import (
	"context"
	"errors"

	"github.com/slack-go/slack"
)

// Slack posts Block Kit messages through the Slack Web API.
type Slack struct {
	api *slack.Client
}

// Ensure Slack implements Client
var _ Client = (*Slack)(nil)

// NewSlack creates a Slack client for the given bot token. apiURL overrides
// the Web API endpoint and is only useful for tests; pass "" for the default.
func NewSlack(token, apiURL string) (*Slack, error) {
	if token == "" {
		return nil, errors.New("slack token is empty")
	}
	var opts []slack.Option
	if apiURL != "" {
		opts = append(opts, slack.OptionAPIURL(apiURL))
	}
	return &Slack{api: slack.New(token, opts...)}, nil
}

// Post implements Client. The returned identifier is the message timestamp.
func (s *Slack) Post(ctx context.Context, channel string, msg Message) (string, error) {
	opts := []slack.MsgOption{
		slack.MsgOptionText(msg.Title, false),
		slack.MsgOptionBlocks(SlackBlocks(msg.Blocks)...),
	}
	if msg.ThreadID != "" {
		opts = append(opts, slack.MsgOptionTS(msg.ThreadID))
	}

	_, ts, err := s.api.PostMessageContext(ctx, channel, opts...)
	if err != nil {
		return "", &DeliveryError{Service: "slack", Channel: channel, Err: err}
	}
	return ts, nil
}

// SlackBlocks converts display blocks to Block Kit blocks.
func SlackBlocks(blocks []Block) []slack.Block {
	out := make([]slack.Block, 0, len(blocks))
	for _, b := range blocks {
		switch b.Kind {
		case KindHeading:
			out = append(out, slack.NewHeaderBlock(
				slack.NewTextBlockObject(slack.PlainTextType, b.Text, false, false),
			))
		case KindDivider:
			out = append(out, slack.NewDividerBlock())
		case KindSection:
			var text *slack.TextBlockObject
			switch {
			case b.Code:
				text = slack.NewTextBlockObject(slack.MarkdownType, "```"+b.Text+"```", false, false)
			case b.Text != "":
				text = slack.NewTextBlockObject(slack.MarkdownType, b.Text, false, false)
			}
			// Slack rejects empty text objects.
			var fields []*slack.TextBlockObject
			for _, f := range b.Fields {
				if f == "" {
					continue
				}
				fields = append(fields, slack.NewTextBlockObject(slack.MarkdownType, f, false, false))
			}
			if text == nil && len(fields) == 0 {
				continue
			}
			out = append(out, slack.NewSectionBlock(text, fields, nil))
		}
	}
	return out
}
