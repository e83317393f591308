package output

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

var (
	branchStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	currentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	trunkStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func init() {
	// No styling when output is piped.
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// ColorBranchName styles a branch name, highlighting the current branch.
func ColorBranchName(name string, isCurrent bool) string {
	if isCurrent {
		return currentStyle.Render(name)
	}
	return branchStyle.Render(name)
}

// ColorTrunkName styles the trunk branch name.
func ColorTrunkName(name string) string {
	return trunkStyle.Render(name)
}

// Dim styles secondary annotations like PR state or sha suffixes.
func Dim(text string) string {
	return dimStyle.Render(text)
}
