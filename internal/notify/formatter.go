// Package notify delivers system notifications for due reminders.
package notify

import (
	"github.com/manav03panchal/chime/internal/model"
)

// Webhook payload formats.
const (
	TypeGeneric = "generic"
	TypeDiscord = "discord"
	TypeSlack   = "slack"
)

// Formatter formats notifications for a specific webhook type.
type Formatter interface {
	// Format converts a notification into the webhook-specific payload.
	Format(n model.Notification) ([]byte, error)

	// ContentType returns the HTTP Content-Type for the payload.
	ContentType() string
}

// GetFormatter returns the appropriate formatter for a webhook type.
func GetFormatter(webhookType string) Formatter {
	switch webhookType {
	case TypeDiscord:
		return &DiscordFormatter{}
	case TypeSlack:
		return &SlackFormatter{}
	default:
		return &GenericFormatter{}
	}
}

// accentColor is the embed/attachment color used by chat formatters.
const accentColor = 0x5865F2
