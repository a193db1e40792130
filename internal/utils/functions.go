package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
)

// SanitizeFilename makes a video title safe to use as a file name on any
// common filesystem. The result is never empty.
func SanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		if strings.ContainsRune(reservedChars, r) || unicode.IsControl(r) || r == utf8.RuneError {
			continue
		}
		b.WriteRune(r)
	}
	clean := strings.Join(strings.Fields(b.String()), " ")
	clean = strings.Trim(clean, " .")
	if len(clean) > MaxFilenameLength {
		cut := MaxFilenameLength
		for cut > 0 && !utf8.RuneStart(clean[cut]) {
			cut--
		}
		clean = strings.TrimRight(clean[:cut], " .")
	}
	if clean == "" {
		return "untitled"
	}
	stem := clean
	if i := strings.IndexByte(stem, '.'); i > 0 {
		stem = stem[:i]
	}
	if reservedNames[strings.ToUpper(stem)] {
		clean = "_" + clean
	}
	return clean
}

// ClaimPath atomically creates an empty file at outputPath, or at the first
// free name-(N).ext when it is taken, and returns the claimed path. Callers
// rename their finished file over the placeholder.
func ClaimPath(outputPath string) (string, error) {
	dir := filepath.Dir(outputPath)
	base := filepath.Base(outputPath)
	ext := filepath.Ext(base)
	name := base[:len(base)-len(ext)]
	candidate := outputPath
	for index := 1; ; index++ {
		f, err := os.OpenFile(candidate, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			return candidate, f.Close()
		}
		if !os.IsExist(err) {
			return "", err
		}
		candidate = filepath.Join(dir, fmt.Sprintf("%s-(%d)%s", name, index, ext))
	}
}

// UniquePath returns outputPath, or the first name-(N).ext that neither exists
// nor is in taken.
func UniquePath(outputPath string, taken map[string]bool) string {
	if !exists(outputPath) && !taken[outputPath] {
		return outputPath
	}
	dir := filepath.Dir(outputPath)
	base := filepath.Base(outputPath)
	ext := filepath.Ext(base)
	name := base[:len(base)-len(ext)]
	for index := 1; ; index++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s-(%d)%s", name, index, ext))
		if !exists(candidate) && !taken[candidate] {
			return candidate
		}
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func FormatBytes(bytes int64) string {
	if bytes < 0 {
		return "unknown"
	}
	return humanize.IBytes(uint64(bytes))
}

func FormatSpeed(bytes int64, elapsed float64) string {
	if elapsed <= 0 || bytes <= 0 {
		return "0 B/s"
	}
	return humanize.IBytes(uint64(float64(bytes)/elapsed)) + "/s"
}

func FormatDuration(d time.Duration) string {
	total := int(d.Round(time.Second).Seconds())
	if total < 0 {
		total = 0
	}
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func TempDir(outputDir string) string {
	return filepath.Join(outputDir, TempDirName)
}

// CleanLocal removes the whole temporary directory under outputDir.
func CleanLocal(outputDir string) error {
	tempDir := TempDir(outputDir)
	_, err := os.Stat(tempDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return os.RemoveAll(tempDir)
}

// CleanFunction removes the part files of one task and drops the temporary
// directory once it is empty.
func CleanFunction(outputDir, taskID string) error {
	tempDir := TempDir(outputDir)
	files, err := os.ReadDir(tempDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, file := range files {
		if strings.HasPrefix(file.Name(), taskID+".") {
			if err := os.RemoveAll(filepath.Join(tempDir, file.Name())); err != nil {
				return err
			}
		}
	}
	remaining, err := os.ReadDir(tempDir)
	if err != nil {
		return err
	}
	if len(remaining) == 0 {
		return os.Remove(tempDir)
	}
	return nil
}
