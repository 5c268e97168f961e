// Package ui renders rankings for the terminal.
package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	ColorUp = lipgloss.AdaptiveColor{
		Light: "#86b300",
		Dark:  "#c2d94c",
	}
	ColorDown = lipgloss.AdaptiveColor{
		Light: "#f07171",
		Dark:  "#f07178",
	}
	ColorWarn = lipgloss.AdaptiveColor{
		Light: "#f2ae49",
		Dark:  "#ffb454",
	}
	ColorMuted = lipgloss.AdaptiveColor{
		Light: "#828c99",
		Dark:  "#6c7680",
	}
	ColorAccent = lipgloss.AdaptiveColor{
		Light: "#399ee6",
		Dark:  "#59c2ff",
	}
)

var (
	UpStyle     = lipgloss.NewStyle().Foreground(ColorUp)
	DownStyle   = lipgloss.NewStyle().Foreground(ColorDown)
	WarnStyle   = lipgloss.NewStyle().Foreground(ColorWarn)
	MutedStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
	AccentStyle = lipgloss.NewStyle().Foreground(ColorAccent)

	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent).Padding(0, 1)
	CellStyle   = lipgloss.NewStyle().Padding(0, 1)
	TitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
)

const (
	IconUp   = "▲"
	IconDown = "▼"
	IconWarn = "⚠"
)
