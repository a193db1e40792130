package utils

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/tanq16/tubeq/internal/types"
)

type URLKind int

const (
	URLInvalid URLKind = iota
	URLVideo
	URLPlaylist
)

func (k URLKind) String() string {
	switch k {
	case URLVideo:
		return "video"
	case URLPlaylist:
		return "playlist"
	default:
		return "invalid"
	}
}

var youtubeHosts = map[string]bool{
	"youtube.com":       true,
	"www.youtube.com":   true,
	"m.youtube.com":     true,
	"music.youtube.com": true,
}

func parseYouTubeURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty url", types.ErrInvalidURL)
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", types.ErrInvalidURL, u.Scheme)
	}
	return u, nil
}

// ClassifyURL accepts watch, youtu.be, shorts, embed and playlist URLs. A watch
// URL carrying a list parameter is treated as a playlist.
func ClassifyURL(raw string) (URLKind, error) {
	u, err := parseYouTubeURL(raw)
	if err != nil {
		return URLInvalid, err
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case host == "youtu.be":
		if validVideoID(strings.Trim(u.Path, "/")) {
			return URLVideo, nil
		}
	case youtubeHosts[host]:
		q := u.Query()
		path := strings.TrimSuffix(u.Path, "/")
		switch {
		case path == "/playlist":
			if playlistIDRegex.MatchString(q.Get("list")) {
				return URLPlaylist, nil
			}
		case path == "/watch":
			if playlistIDRegex.MatchString(q.Get("list")) {
				return URLPlaylist, nil
			}
			if validVideoID(q.Get("v")) {
				return URLVideo, nil
			}
		case strings.HasPrefix(path, "/shorts/"), strings.HasPrefix(path, "/embed/"), strings.HasPrefix(path, "/live/"):
			parts := strings.Split(path, "/")
			if validVideoID(parts[len(parts)-1]) {
				return URLVideo, nil
			}
		}
	}
	return URLInvalid, fmt.Errorf("%w: %s", types.ErrInvalidURL, raw)
}

func ValidateURL(raw string) error {
	_, err := ClassifyURL(raw)
	return err
}

func IsPlaylistURL(raw string) bool {
	kind, err := ClassifyURL(raw)
	return err == nil && kind == URLPlaylist
}

func ExtractVideoID(raw string) (string, error) {
	u, err := parseYouTubeURL(raw)
	if err != nil {
		return "", err
	}
	var id string
	path := strings.TrimSuffix(u.Path, "/")
	switch {
	case strings.EqualFold(u.Hostname(), "youtu.be"):
		id = strings.Trim(path, "/")
	case strings.HasPrefix(path, "/shorts/"), strings.HasPrefix(path, "/embed/"), strings.HasPrefix(path, "/live/"):
		parts := strings.Split(path, "/")
		id = parts[len(parts)-1]
	default:
		id = u.Query().Get("v")
	}
	if !validVideoID(id) {
		return "", fmt.Errorf("%w: no video id in %s", types.ErrInvalidURL, raw)
	}
	return id, nil
}

func ExtractPlaylistID(raw string) (string, error) {
	u, err := parseYouTubeURL(raw)
	if err != nil {
		return "", err
	}
	id := u.Query().Get("list")
	if !playlistIDRegex.MatchString(id) {
		return "", fmt.Errorf("%w: no playlist id in %s", types.ErrInvalidURL, raw)
	}
	return id, nil
}

// ParseURLs extracts every YouTube URL from free text (one per line,
// space or comma separated), normalizes the scheme and drops duplicates.
func ParseURLs(text string) []string {
	seen := make(map[string]bool)
	var urls []string
	for _, match := range urlInTextRegex.FindAllString(text, -1) {
		match = strings.TrimRight(match, ".,;)")
		if !strings.Contains(match, "://") {
			match = "https://" + match
		}
		if seen[match] {
			continue
		}
		seen[match] = true
		urls = append(urls, match)
	}
	return urls
}

func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

func validVideoID(id string) bool {
	return videoIDRegex.MatchString(id)
}
