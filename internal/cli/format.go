// Package cli contains the cobra command tree for the atelier binary.
// Commands are thin: they parse flags, call a wire service, and print.
package cli

import (
	"time"

	"github.com/fatih/color"
)

// colorStatus renders a lifecycle status with a consistent color scheme
// across tasks, messages, schedules, and forks.
func colorStatus(status string) string {
	switch status {
	case "pending":
		return color.New(color.FgYellow).Sprint(status)
	case "running", "in_progress":
		return color.New(color.FgCyan).Sprint(status)
	case "finished", "completed":
		return color.New(color.FgHiGreen).Sprint(status)
	case "error", "failed":
		return color.New(color.FgRed).Sprint(status)
	default:
		return status
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
