package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tanq16/tubeq/internal/utils"
	"golang.org/x/term"
)

// ProgressBar renders a bar for current/total. With an unknown total
// (total <= 0) it shows the byte count only.
func ProgressBar(current, total int64, width int) string {
	if width <= 0 {
		width = 30
	}
	if current < 0 {
		current = 0
	}
	if total <= 0 {
		return debugStyle.Render(fmt.Sprintf("%s %s %s ", StyleSymbols["bullet"], utils.FormatBytes(current), StyleSymbols["bullet"]))
	}
	if current > total {
		current = total
	}
	percent := float64(current) / float64(total)
	filled := max(0, min(int(percent*float64(width)), width))
	bar := StyleSymbols["bullet"]
	bar += strings.Repeat(StyleSymbols["hline"], filled)
	if filled < width {
		bar += strings.Repeat(" ", width-filled)
	}
	bar += StyleSymbols["bullet"]
	return debugStyle.Render(fmt.Sprintf("%s %.1f%% %s ", bar, percent*100, StyleSymbols["bullet"]))
}

// progressLine is the stream line under an active task: bar, bytes, speed
// and, when the total is known, the remaining time.
func progressLine(row *TaskRow, now time.Time) string {
	elapsed := now.Sub(row.StartTime).Seconds()
	parts := []string{
		fmt.Sprintf("%s / %s", utils.FormatBytes(row.Downloaded), utils.FormatBytes(row.Total)),
		utils.FormatSpeed(row.Downloaded, elapsed),
	}
	if row.Total > 0 && row.Downloaded > 0 && elapsed > 0 {
		rate := float64(row.Downloaded) / elapsed
		remaining := time.Duration(float64(row.Total-row.Downloaded) / rate * float64(time.Second))
		parts = append(parts, "ETA "+utils.FormatDuration(remaining))
	}
	if row.Phase != "" {
		parts = append([]string{row.Phase}, parts...)
	}
	sep := " " + StyleSymbols["bullet"] + " "
	return ProgressBar(row.Downloaded, row.Total, 30) + debugStyle.Render(strings.Join(parts, sep))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

func getTerminalHeight() int {
	_, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || height <= 0 {
		return 24
	}
	return height
}

// truncate keeps a row on one terminal line.
func truncate(text string, maxWidth int) string {
	if maxWidth <= 10 || utf8.RuneCountInString(text) <= maxWidth {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxWidth-3]) + "..."
}
