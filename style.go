package main

import "github.com/charmbracelet/lipgloss"

var (
	keyword   = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Render
	paragraph = lipgloss.NewStyle().Width(78).Padding(0, 0, 0, 2).Render

	speechStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	silenceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87")).Bold(true)
	faintStyle   = lipgloss.NewStyle().Faint(true)
)
