// Package validate checks reminder input and configured endpoints before
// they are stored or dialed.
package validate

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/manav03panchal/chime/internal/errors"
)

const (
	// MaxTitleLength is the maximum length of a reminder title.
	MaxTitleLength = 200
	// MaxNoteLength is the maximum length of reminder notes.
	MaxNoteLength = 4096
	// MaxURLLength is the maximum length for a URL.
	MaxURLLength = 2048
	// MaxOffsetMinutes bounds a prayer offset to one day.
	MaxOffsetMinutes = 24 * 60
)

// Title validates a reminder title.
func Title(title string) error {
	if strings.TrimSpace(title) == "" {
		return errors.NewUserError("Reminder title cannot be empty", "Give the reminder a name, e.g. chime remind add Stretch at 10am")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return errors.NewUserErrorWithField("title", TruncateString(title, 20),
			"Title too long",
			fmt.Sprintf("Titles must be %d characters or fewer", MaxTitleLength))
	}
	return nil
}

// Note validates reminder notes.
func Note(note string) error {
	if utf8.RuneCountInString(note) > MaxNoteLength {
		return errors.NewUserError(
			"Notes too long",
			fmt.Sprintf("Notes must be %d characters or fewer", MaxNoteLength))
	}
	return nil
}

// Timezone validates an IANA zone name. Empty is allowed and means the
// configured default.
func Timezone(tz string) error {
	if tz == "" {
		return nil
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return errors.Wrapf(errors.ErrInvalidTimezone, "%q", tz)
	}
	return nil
}

// Volume validates a sound volume in [0, 1].
func Volume(v float64) error {
	if v < 0 || v > 1 {
		return errors.NewUserErrorWithField("volume", fmt.Sprintf("%g", v),
			"Volume out of range",
			"Use a value between 0 and 1, e.g. 0.6")
	}
	return nil
}

// Offset validates a prayer offset in minutes.
func Offset(minutes int) error {
	return InRange("offset", minutes, 0, MaxOffsetMinutes)
}

// WebhookURL validates a URL for use as a notification webhook.
func WebhookURL(rawURL string) error {
	parsed, err := parseURL(rawURL)
	if err != nil {
		return err
	}

	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return errors.NewUserErrorWithField("url", rawURL,
			"Invalid URL scheme",
			"URLs must use https:// (or http:// for localhost)")
	}

	hostname := parsed.Hostname()
	if parsed.Scheme == "http" && !isLocalhost(hostname) {
		return errors.NewUserErrorWithField("url", rawURL,
			"HTTP not allowed for external URLs",
			"Use https:// for security. HTTP is only allowed for localhost.")
	}

	if !isLocalhost(hostname) {
		return checkInternalIP(hostname)
	}
	return nil
}

// ServerURL validates the hub endpoint a listener dials.
func ServerURL(rawURL string) error {
	parsed, err := parseURL(rawURL)
	if err != nil {
		return err
	}
	if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		return errors.NewUserErrorWithField("server_url", rawURL,
			"Invalid server URL scheme",
			"Use ws://host:port/v1/events, or wss:// behind TLS")
	}
	return nil
}

func parseURL(rawURL string) (*url.URL, error) {
	if rawURL == "" {
		return nil, errors.NewUserError("URL cannot be empty", "Provide a valid URL")
	}
	if len(rawURL) > MaxURLLength {
		return nil, errors.NewUserError("URL too long", fmt.Sprintf("URLs must be %d characters or fewer", MaxURLLength))
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.NewUserErrorWithField("url", rawURL,
			"Invalid URL format",
			"Provide a valid URL like https://example.com/webhook")
	}
	if parsed.Hostname() == "" {
		return nil, errors.NewUserErrorWithField("url", rawURL,
			"Invalid URL: missing hostname",
			"Provide a valid URL like https://example.com/webhook")
	}
	return parsed, nil
}

func isLocalhost(hostname string) bool {
	return hostname == "localhost" || hostname == "127.0.0.1" || hostname == "::1"
}

// checkInternalIP rejects hostnames that are or resolve to internal IPs.
func checkInternalIP(hostname string) error {
	if ip := net.ParseIP(hostname); ip != nil {
		if isInternalIP(ip) {
			return errors.NewUserErrorWithField("url", hostname,
				"Internal IP addresses not allowed",
				"Webhook URLs must point to external services")
		}
		return nil
	}

	ips, err := net.LookupIP(hostname)
	if err != nil {
		// Unresolvable now; delivery will fail and be logged later.
		return nil
	}
	for _, ip := range ips {
		if isInternalIP(ip) {
			return errors.NewUserErrorWithField("url", hostname,
				"Hostname resolves to internal IP",
				"Webhook URLs must point to external services")
		}
	}
	return nil
}

var privateRanges = func() []*net.IPNet {
	var nets []*net.IPNet
	for _, cidr := range []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"127.0.0.0/8",
		"169.254.0.0/16",
		"fc00::/7",
		"fe80::/10",
		"::1/128",
	} {
		_, network, err := net.ParseCIDR(cidr)
		if err == nil {
			nets = append(nets, network)
		}
	}
	return nets
}()

// isInternalIP checks if an IP is in a private/internal range.
func isInternalIP(ip net.IP) bool {
	for _, network := range privateRanges {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// InRange validates that an integer is within [min, max].
func InRange(field string, value, min, max int) error {
	if value < min || value > max {
		return errors.NewUserErrorWithField(field, fmt.Sprint(value),
			"Value out of range",
			fmt.Sprintf("Must be between %d and %d", min, max))
	}
	return nil
}
