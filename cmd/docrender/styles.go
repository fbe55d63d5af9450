package main

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")). // Cyan
			Bold(true)

	keyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")) // Gray

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")) // White

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42")). // Green
		Bold(true)

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")). // Red
			Bold(true)

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")). // Purple border
			Padding(0, 2)
)

func statusStyle(status string) lipgloss.Style {
	switch status {
	case "completed":
		return okStyle
	case "failed":
		return errStyle
	}
	return valueStyle
}
