package notify

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
)

// SlackConfig holds the settings for posting alerts to a Slack channel
type SlackConfig struct {
	BotToken string `yaml:"bot_token"`
	Channel  string `yaml:"channel"`
}

// slackPoster is the slice of the Slack API the notifier uses
type slackPoster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// SlackNotifier posts alerts to a Slack channel
type SlackNotifier struct {
	client  slackPoster
	channel string
}

// NewSlackNotifier creates a Slack notifier from a bot token and channel
func NewSlackNotifier(cfg SlackConfig) (*SlackNotifier, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("slack bot token is required")
	}
	if cfg.Channel == "" {
		return nil, fmt.Errorf("slack channel is required")
	}
	return &SlackNotifier{
		client:  slack.New(cfg.BotToken),
		channel: cfg.Channel,
	}, nil
}

// Send posts one alert message to the configured channel
func (n *SlackNotifier) Send(ctx context.Context, alert Alert) error {
	_, _, err := n.client.PostMessageContext(
		ctx,
		n.channel,
		slack.MsgOptionText(fmt.Sprintf(":rotating_light: %s", alert.Message), false),
	)
	if err != nil {
		return fmt.Errorf("failed to post to Slack channel %s: %w", n.channel, err)
	}
	return nil
}
