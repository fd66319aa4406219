// Package slackbot connects threadbot to Slack: the Web API reply sink, events parsing and
// the socket-mode listener.
package slackbot

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
)

// APIConfig holds the tokens used against the Slack Web API.
type APIConfig struct {
	BotToken string
	AppToken string
	// APIURL overrides https://slack.com/api/ and is used by tests.
	APIURL string
}

// NewAPI creates a Slack Web API client.
func NewAPI(cfg APIConfig) *slack.Client {
	opts := []slack.Option{}
	if cfg.AppToken != "" {
		opts = append(opts, slack.OptionAppLevelToken(cfg.AppToken))
	}
	if cfg.APIURL != "" {
		opts = append(opts, slack.OptionAPIURL(cfg.APIURL))
	}
	return slack.New(cfg.BotToken, opts...)
}

// BotUserID returns the user id the bot token authenticates as.
func BotUserID(ctx context.Context, api *slack.Client) (string, error) {
	resp, err := api.AuthTestContext(ctx)
	if err != nil {
		return "", fmt.Errorf("auth.test failed: %w", err)
	}
	return resp.UserID, nil
}
