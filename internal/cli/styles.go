// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Shared lipgloss styles for CLI output.

package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// labelWidth is the column width of field labels in text output.
const labelWidth = 14

var (
	// TitleStyle is used for resource headers
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")) // Cyan

	// LabelStyle is used for field labels
	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")). // Light gray
			Width(labelWidth)

	// SuccessStyle is used for success messages
	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")). // Green
			Bold(true)

	// ErrorStyle is used for error messages
	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")). // Red
			Bold(true)

	// WarningStyle is used for warnings
	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	// DimStyle is used for secondary information and hints
	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242"))

	// RoleOwnerStyle and RoleAssistantStyle color message authors
	RoleOwnerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("75")).Bold(true)
	RoleAssistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
)

// applyColorProfile switches lipgloss between colored and plain rendering.
func applyColorProfile(enabled bool) {
	lipgloss.SetColorProfile(GetColorProfile(enabled))
}

// RenderLabel renders a label padded to the label column.
func RenderLabel(label string) string {
	return LabelStyle.Render(label)
}

// RenderStatus renders a message status with an appropriate color.
func RenderStatus(status string) string {
	switch strings.ToLower(status) {
	case "completed", "ok":
		return SuccessStyle.Render(status)
	case "incomplete", "in_progress":
		return WarningStyle.Render(status)
	case "":
		return DimStyle.Render("-")
	default:
		return DimStyle.Render(status)
	}
}

// RenderRole renders a message role.
func RenderRole(role string) string {
	if role == "assistant" {
		return RoleAssistantStyle.Render(role)
	}
	return RoleOwnerStyle.Render(role)
}
