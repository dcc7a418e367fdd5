package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// WaitForButton shows the pairing instructions and blocks until the user
// presses Enter. It returns false if input ends first.
func WaitForButton(in io.Reader, out io.Writer, sensor string) bool {
	width := GetTerminalWidth()

	lines := []string{
		"",
		PromptStyle.Render(fmt.Sprintf("   %s  PAIRING  ─  %s", WarningMarker, sensor)),
		"",
		lipgloss.NewStyle().Foreground(TextColor).Render("   1. Press and release the button on the sensor"),
		lipgloss.NewStyle().Foreground(TextColor).Render("   2. Return here within 30 seconds"),
		"",
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(WarningColor).
		Width(width-2).
		Padding(0, 2).
		Render(strings.Join(lines, "\n"))

	fmt.Fprintln(out, box)
	fmt.Fprintln(out)
	fmt.Fprint(out, PromptStyle.Render("Press Enter once the button has been released: "))

	_, err := bufio.NewReader(in).ReadString('\n')
	fmt.Fprintln(out)
	return err == nil
}

// Confirm asks a yes/no question. Anything but "y" or "yes" is no.
func Confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprint(out, PromptStyle.Render(question+" [y/N]: "))
	input, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && input == "" {
		fmt.Fprintln(out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		return true
	default:
		fmt.Fprintln(out, lipgloss.NewStyle().Foreground(MutedColor).Render("  Cancelled."))
		return false
	}
}
