package extractor

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"
)

// timedtext covers the two XML layouts served by the caption endpoint:
// srv1 (<transcript><text start dur>) and srv3 (<timedtext><body><p t d>).
type timedtext struct {
	Texts []struct {
		Start string `xml:"start,attr"`
		Dur   string `xml:"dur,attr"`
		Body  string `xml:",chardata"`
	} `xml:"text"`
	Paragraphs []struct {
		T     string `xml:"t,attr"`
		D     string `xml:"d,attr"`
		Body  string `xml:",chardata"`
		Words []struct {
			Body string `xml:",chardata"`
		} `xml:"s"`
	} `xml:"body>p"`
}

type cue struct {
	start time.Duration
	end   time.Duration
	text  string
}

// TimedTextToSRT converts a caption track document to SubRip text.
func TimedTextToSRT(raw []byte) ([]byte, error) {
	var doc timedtext
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing caption track: %w", err)
	}
	var cues []cue
	for _, t := range doc.Texts {
		start, err := parseSeconds(t.Start)
		if err != nil {
			continue
		}
		dur, _ := parseSeconds(t.Dur)
		cues = append(cues, cue{start: start, end: start + dur, text: t.Body})
	}
	for _, p := range doc.Paragraphs {
		start, err := parseMillis(p.T)
		if err != nil {
			continue
		}
		dur, _ := parseMillis(p.D)
		body := p.Body
		if len(p.Words) > 0 {
			var words []string
			for _, w := range p.Words {
				words = append(words, w.Body)
			}
			body = strings.Join(words, "")
		}
		cues = append(cues, cue{start: start, end: start + dur, text: body})
	}

	var buf bytes.Buffer
	n := 0
	for _, c := range cues {
		text := strings.TrimSpace(html.UnescapeString(c.text))
		if text == "" {
			continue
		}
		n++
		fmt.Fprintf(&buf, "%d\n%s --> %s\n%s\n\n", n, srtTimestamp(c.start), srtTimestamp(c.end), text)
	}
	return buf.Bytes(), nil
}

func parseSeconds(s string) (time.Duration, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(f * float64(time.Second)).Round(time.Millisecond), nil
}

func parseMillis(s string) (time.Duration, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Millisecond, nil
}

func srtTimestamp(d time.Duration) string {
	ms := d.Milliseconds()
	h := ms / 3_600_000
	m := (ms / 60_000) % 60
	s := (ms / 1000) % 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms%1000)
}
