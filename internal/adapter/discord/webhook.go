package discord

import (
	"fmt"
	"net/url"
	"strings"
)

// Webhook identifies a channel webhook by its ID and token.
type Webhook struct {
	ID    string
	Token string
}

// ParseWebhookURL extracts the ID and token from
// https://discord.com/api/webhooks/<id>/<token> (an optional /v<N> API segment is allowed).
func ParseWebhookURL(raw string) (Webhook, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Webhook{}, fmt.Errorf("failed to parse webhook URL: %w", err)
	}
	if u.Scheme != "https" {
		return Webhook{}, fmt.Errorf("webhook URL must use https, got %q", u.Scheme)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, s := range segments {
		if s != "webhooks" {
			continue
		}
		if len(segments) != i+3 || segments[i+1] == "" || segments[i+2] == "" {
			break
		}
		return Webhook{ID: segments[i+1], Token: segments[i+2]}, nil
	}
	return Webhook{}, fmt.Errorf("webhook URL %q has no /webhooks/<id>/<token> path", u.Redacted())
}
