package main

import "github.com/charmbracelet/lipgloss"

var (
	accentColor = lipgloss.Color("86")
	mutedColor  = lipgloss.Color("242")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99"))

	itemStyle = lipgloss.NewStyle().
			PaddingLeft(2)

	selectedItemStyle = lipgloss.NewStyle().
				PaddingLeft(2).
				Foreground(accentColor).
				Bold(true)

	currentValueStyle = lipgloss.NewStyle().
				Foreground(mutedColor)

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212"))

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)
)
