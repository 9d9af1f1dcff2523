package communication

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
)

type Slack struct {
	client  *slack.Client
	options SlackOption
}

type SlackOption struct {
	InfoChannelID  string
	ErrorChannelID string
	// APIURL overrides the Slack Web API base url. Empty means the public endpoint.
	APIURL string
}

// Notice is a titled message for the info channel. Context is the small print under the body.
type Notice struct {
	Title   string
	Body    string
	Context string
}

// Text is the plain fallback shown by clients that do not render blocks.
func (n Notice) Text() string {
	text := fmt.Sprintf("*%s*", n.Title)
	if n.Body != "" {
		text += "\n" + n.Body
	}
	if n.Context != "" {
		text = fmt.Sprintf("[%s] %s", n.Context, text)
	}
	return text
}

func (n Notice) blocks() []slack.Block {
	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, n.Title, false, false)),
	}
	if n.Body != "" {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, n.Body, false, false), nil, nil))
	}
	if n.Context != "" {
		blocks = append(blocks, slack.NewContextBlock("",
			slack.NewTextBlockObject(slack.MarkdownType, n.Context, false, false)))
	}
	return blocks
}

func NewSlack(token string, options SlackOption) *Slack {
	var opts []slack.Option
	if options.APIURL != "" {
		opts = append(opts, slack.OptionAPIURL(options.APIURL))
	}
	return &Slack{client: slack.New(token, opts...), options: options}
}

// Post sends n to the info channel. Without an info channel it does nothing.
func (s *Slack) Post(ctx context.Context, n Notice) error {
	return s.post(ctx, s.options.InfoChannelID, n.Text(), slack.MsgOptionBlocks(n.blocks()...))
}

// Error sends an operational alert to the error channel.
func (s *Slack) Error(message string) error {
	return s.post(context.Background(), s.options.ErrorChannelID, message)
}

func (s *Slack) post(ctx context.Context, channelID, text string, extra ...slack.MsgOption) error {
	if channelID == "" {
		return nil
	}
	opts := append([]slack.MsgOption{
		slack.MsgOptionText(text, false),
		slack.MsgOptionAsUser(true),
	}, extra...)
	if _, _, err := s.client.PostMessageContext(ctx, channelID, opts...); err != nil {
		return fmt.Errorf("failed to post message to Slack channel %s: %w", channelID, err)
	}
	return nil
}
