// Package tui is a terminal browser for the changelog timeline.
package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	primaryColor   = lipgloss.Color("#7C3AED") // Violet
	secondaryColor = lipgloss.Color("#10B981") // Emerald
	accentColor    = lipgloss.Color("#F59E0B") // Amber
	errorColor     = lipgloss.Color("#EF4444") // Red

	fgColor     = lipgloss.Color("#CDD6F4")
	mutedColor  = lipgloss.Color("#6C7086")
	borderColor = lipgloss.Color("#45475A")
)

var subtitleStyle = lipgloss.NewStyle().
	Foreground(mutedColor).
	Italic(true)

var helpStyle = lipgloss.NewStyle().
	Foreground(mutedColor).
	MarginTop(1)

var boxStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(borderColor).
	Padding(1, 2)

var errorStyle = lipgloss.NewStyle().
	Foreground(errorColor).
	Bold(true)

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(fgColor).
	Background(primaryColor).
	Padding(0, 2).
	MarginBottom(1)

var mediaStyle = lipgloss.NewStyle().
	Foreground(secondaryColor)

var progressStyle = lipgloss.NewStyle().
	Foreground(accentColor)
