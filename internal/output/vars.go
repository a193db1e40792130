package output

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

type palette struct {
	success  string
	success2 string
	err      string
	warning  string
	pending  string
	info     string
	debug    string
	detail   string
	stream   string
	header   string
}

var palettes = map[string]palette{
	"dark": {
		success:  "37",  // dark green
		success2: "2",   // green
		err:      "9",   // red
		warning:  "11",  // yellow
		pending:  "12",  // blue
		info:     "14",  // cyan
		debug:    "250", // light grey
		detail:   "13",  // purple
		stream:   "240", // grey
		header:   "69",  // purple
	},
	"light": {
		success:  "28",
		success2: "22",
		err:      "160",
		warning:  "130",
		pending:  "25",
		info:     "30",
		debug:    "242",
		detail:   "90",
		stream:   "245",
		header:   "57",
	},
}

var (
	successStyle  lipgloss.Style
	success2Style lipgloss.Style
	errorStyle    lipgloss.Style
	warningStyle  lipgloss.Style
	pendingStyle  lipgloss.Style
	infoStyle     lipgloss.Style
	debugStyle    lipgloss.Style
	detailStyle   lipgloss.Style
	streamStyle   lipgloss.Style
	headerStyle   lipgloss.Style
)

func init() {
	SetTheme("dark")
}

// SetTheme switches the palette. Unknown names fall back to dark. It must be
// called before any display starts.
func SetTheme(name string) {
	p, ok := palettes[name]
	if !ok {
		p = palettes["dark"]
	}
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(p.success))
	success2Style = lipgloss.NewStyle().Foreground(lipgloss.Color(p.success2))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(p.err))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(p.warning))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(p.pending))
	infoStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(p.info))
	debugStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(p.debug))
	detailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(p.detail))
	streamStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(p.stream))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(p.header))
}

var StyleSymbols = map[string]string{
	"pass":    "✓",
	"fail":    "✗",
	"warning": "!",
	"pending": "◉",
	"merge":   "⇄",
	"info":    "ℹ",
	"arrow":   "→",
	"bullet":  "•",
	"dot":     "·",
	"hline":   "━",
}

func PrintSuccess(text string) {
	fmt.Println(successStyle.Render(text))
}
func PrintError(text string) {
	fmt.Println(errorStyle.Render(text))
}
func PrintWarning(text string) {
	fmt.Println(warningStyle.Render(text))
}
func PrintInfo(text string) {
	fmt.Println(infoStyle.Render(text))
}
func PrintHeader(text string) {
	fmt.Println(headerStyle.Render(text))
}
func FSuccess(text string) string {
	return successStyle.Render(text)
}
func FError(text string) string {
	return errorStyle.Render(text)
}
func FWarning(text string) string {
	return warningStyle.Render(text)
}
func FInfo(text string) string {
	return infoStyle.Render(text)
}
func FDebug(text string) string {
	return debugStyle.Render(text)
}
func FDetail(text string) string {
	return detailStyle.Render(text)
}
func FHeader(text string) string {
	return headerStyle.Render(text)
}
