// Package ui renders styled terminal output for the printprep CLI.
package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/chazu/printprep/pkg/validate"
)

var (
	// Color palette
	secondaryColor = lipgloss.Color("#00D9FF") // Cyan
	successColor   = lipgloss.Color("#04B575") // Green
	errorColor     = lipgloss.Color("#FF5F87") // Pink/Red
	warningColor   = lipgloss.Color("#FFAF00") // Orange
	mutedColor     = lipgloss.Color("#626262") // Gray

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(secondaryColor).
			MarginTop(1).
			PaddingLeft(1)

	// Status styles
	successStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	infoStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	keyStyle = lipgloss.NewStyle().
			Foreground(secondaryColor).
			Bold(true)

	// Icon styles
	checkmark = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true).
			SetString("✓")

	cross = lipgloss.NewStyle().
		Foreground(errorColor).
		Bold(true).
		SetString("✗")

	arrow = lipgloss.NewStyle().
		Foreground(secondaryColor).
		SetString("→")

	dot = lipgloss.NewStyle().
		Foreground(mutedColor).
		SetString("•")

	// Item styles
	stepStyle = lipgloss.NewStyle().
			PaddingLeft(2)

	itemStyle = lipgloss.NewStyle().
			PaddingLeft(4)
)

// PrintHeader prints a section header
func PrintHeader(title string) {
	fmt.Println(headerStyle.Render("▸ " + title))
}

// PrintStep prints a step with indentation
func PrintStep(step string) {
	fmt.Println(stepStyle.Render(arrow.String() + " " + step))
}

// PrintItem prints an item in a list
func PrintItem(item string) {
	fmt.Println(itemStyle.Render(dot.String() + " " + item))
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Println(stepStyle.Render(checkmark.String() + " " + successStyle.Render(message)))
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Println(stepStyle.Render(cross.String() + " " + errorStyle.Render(message)))
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Println(stepStyle.Render("⚠ " + warningStyle.Render(message)))
}

// PrintInfo prints an info message
func PrintInfo(message string) {
	fmt.Println(stepStyle.Render(infoStyle.Render(message)))
}

// PrintKeyValue prints a key-value pair with nice formatting
func PrintKeyValue(key, value string) {
	fmt.Println(stepStyle.Render(keyStyle.Render(key+":") + " " + value))
}

// PrintStats prints the measured properties of a mesh as key-value
// pairs.
func PrintStats(s validate.Stats) {
	watertight := "no"
	if s.Watertight {
		watertight = "yes"
	}
	PrintKeyValue("Volume", fmt.Sprintf("%.2f mm³", s.VolumeMm3))
	PrintKeyValue("Surface area", fmt.Sprintf("%.2f mm²", s.AreaMm2))
	PrintKeyValue("Vertices", fmt.Sprintf("%d", s.VertexCount))
	PrintKeyValue("Faces", fmt.Sprintf("%d", s.FaceCount))
	PrintKeyValue("Bodies", fmt.Sprintf("%d", s.BodyCount))
	PrintKeyValue("Watertight", watertight)
}

// PrintValidation prints a full validation report: verdict, stats, and
// any errors or warnings.
func PrintValidation(r validate.Result) {
	PrintStats(r.Stats)

	for _, w := range r.Warnings {
		PrintWarning(w)
	}
	if r.Valid {
		PrintSuccess("mesh is printable")
		return
	}
	PrintError("mesh is not printable")
	for _, e := range r.Errors {
		PrintItem(e)
	}
}
