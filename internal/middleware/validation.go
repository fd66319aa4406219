package middleware

import (
	"errors"
	"regexp"
)

// slackTS matches a Slack message timestamp such as 1700000000.123456.
var slackTS = regexp.MustCompile(`^\d{1,12}\.\d{1,8}$`)

// ValidateThreadKey validates a thread key taken from a URL.
func ValidateThreadKey(key string) error {
	if key == "" {
		return errors.New("thread key cannot be empty")
	}
	if !slackTS.MatchString(key) {
		return errors.New("invalid thread key format")
	}
	return nil
}
