package slackbot

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/slack-go/slack/slackevents"

	"github.com/capitalize-ai/threadbot/internal/model"
)

// ParseEventsAPI decodes an Events API body. Request authenticity is checked by signature
// verification, so the deprecated verification token is not.
func ParseEventsAPI(body []byte) (slackevents.EventsAPIEvent, error) {
	ev, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		return slackevents.EventsAPIEvent{}, fmt.Errorf("failed to parse event: %w", err)
	}
	return ev, nil
}

// MentionFromEvent extracts an app_mention from an event callback. It reports false for
// other events and for mentions posted by bots.
func MentionFromEvent(ev slackevents.EventsAPIEvent) (model.MentionEvent, bool) {
	if ev.Type != slackevents.CallbackEvent {
		return model.MentionEvent{}, false
	}

	mention, ok := ev.InnerEvent.Data.(*slackevents.AppMentionEvent)
	if !ok || mention.BotID != "" {
		return model.MentionEvent{}, false
	}
	if strings.TrimSpace(mention.Channel) == "" || strings.TrimSpace(mention.TimeStamp) == "" {
		return model.MentionEvent{}, false
	}

	var eventID string
	if cb, ok := ev.Data.(*slackevents.EventsAPICallbackEvent); ok {
		eventID = cb.EventID
	}

	return model.MentionEvent{
		EventID:   eventID,
		ChannelID: mention.Channel,
		TS:        mention.TimeStamp,
		ThreadTS:  mention.ThreadTimeStamp,
		UserID:    mention.User,
		Text:      mention.Text,
	}, true
}
