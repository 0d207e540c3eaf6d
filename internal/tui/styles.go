// Package tui provides the terminal alert surface for chime listen.
package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Color palette for the listen view.
var (
	ColorPrimary   = lipgloss.Color("#7C3AED") // Purple
	ColorSecondary = lipgloss.Color("#10B981") // Green
	ColorMuted     = lipgloss.Color("#6B7280") // Gray
	ColorWarning   = lipgloss.Color("#F59E0B") // Yellow
	ColorError     = lipgloss.Color("#EF4444") // Red
	ColorAlert     = lipgloss.Color("#3B82F6") // Blue
	ColorBorder    = lipgloss.Color("#4B5563") // Dark gray
)

// Base styles.
var (
	StyleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	StyleSubtitle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// StyleReminder is used for the title of the ringing reminder.
	StyleReminder = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAlert)

	StyleNote = lipgloss.NewStyle().
			Italic(true).
			Foreground(ColorMuted)

	StyleConnected = lipgloss.NewStyle().
			Foreground(ColorSecondary)

	// StyleReconnecting is never the error style.
	StyleReconnecting = lipgloss.NewStyle().
				Foreground(ColorWarning)

	StyleError = lipgloss.NewStyle().
			Foreground(ColorError)

	StyleSuccess = lipgloss.NewStyle().
			Foreground(ColorSecondary)

	StyleHelp = lipgloss.NewStyle().
			Foreground(ColorMuted).
			MarginTop(1)

	StyleHelpKey = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorSecondary)

	StyleHelpDesc = lipgloss.NewStyle().
			Foreground(ColorMuted)
)

// Box styles.
var (
	StyleIdleBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(1, 2).
			MarginBottom(1)

	StyleAlertBox = lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(ColorAlert).
			Padding(1, 2).
			MarginBottom(1)
)
