package notify

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/manav03panchal/chime/internal/model"
)

// SlackFormatter formats notifications for Slack webhooks.
type SlackFormatter struct{}

type slackPayload struct {
	Text        string        `json:"text,omitempty"`
	Blocks      []slackBlock  `json:"blocks,omitempty"`
	Attachments []slackAttach `json:"attachments,omitempty"`
}

type slackBlock struct {
	Type string          `json:"type"`
	Text *slackBlockText `json:"text,omitempty"`
}

type slackBlockText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackAttach struct {
	Color    string `json:"color,omitempty"`
	Fallback string `json:"fallback,omitempty"`
}

// Format converts a notification to Slack webhook format.
func (f *SlackFormatter) Format(n model.Notification) ([]byte, error) {
	blocks := []slackBlock{{
		Type: "header",
		Text: &slackBlockText{Type: "plain_text", Text: n.Title},
	}}
	if n.Body != "" {
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackBlockText{Type: "mrkdwn", Text: slackEscape(n.Body)},
		})
	}
	if isWebURL(n.DeepLinkURL) {
		blocks = append(blocks, slackBlock{
			Type: "context",
			Text: &slackBlockText{Type: "mrkdwn", Text: fmt.Sprintf("<%s|Open in chime>", n.DeepLinkURL)},
		})
	}

	payload := slackPayload{
		Text:        n.Title,
		Blocks:      blocks,
		Attachments: []slackAttach{{Color: colorToHex(accentColor), Fallback: n.Title}},
	}
	return json.Marshal(payload)
}

// ContentType returns the content type for Slack webhooks.
func (f *SlackFormatter) ContentType() string {
	return "application/json"
}

// colorToHex converts an integer color to hex string.
func colorToHex(color int) string {
	return fmt.Sprintf("#%06X", color)
}

// slackEscape escapes special characters for Slack mrkdwn.
func slackEscape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

func isWebURL(s string) bool {
	return strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://")
}
