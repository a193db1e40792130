package types

import "time"

type TaskStatus string

const (
	StatusPending     TaskStatus = "pending"
	StatusDownloading TaskStatus = "downloading"
	StatusMerging     TaskStatus = "merging"
	StatusCompleted   TaskStatus = "completed"
	StatusFailed      TaskStatus = "failed"
	StatusCancelled   TaskStatus = "cancelled"
)

func (s TaskStatus) String() string { return string(s) }

// IsActive reports whether the task currently holds a worker slot.
func (s TaskStatus) IsActive() bool {
	return s == StatusDownloading || s == StatusMerging
}

func (s TaskStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// TaskSpec is what a caller hands to the manager to create a task.
type TaskSpec struct {
	Video        *VideoInfo
	StreamID     string
	OutputDir    string
	AudioOnly    bool
	Subtitles    bool
	SubtitleLang string
}

type DownloadTask struct {
	ID           string
	Video        *VideoInfo
	Stream       StreamInfo
	Audio        *StreamInfo
	OutputDir    string
	AudioOnly    bool
	Subtitles    bool
	SubtitleLang string
	Status       TaskStatus
	Downloaded   int64
	Total        int64
	OutputPath   string
	SubtitlePath string
	Err          error
	CreatedAt    time.Time
	StartedAt    time.Time
	FinishedAt   time.Time
}

// NeedsMerge is true only for a video-only stream paired with an audio stream.
func (t *DownloadTask) NeedsMerge() bool {
	return t.Audio != nil
}

func (t *DownloadTask) Title() string {
	if t.Video == nil {
		return t.ID
	}
	return t.Video.Title
}

// ExpectedSize sums the advertised sizes of every stream the task fetches,
// or returns -1 if any of them is unknown.
func (t *DownloadTask) ExpectedSize() int64 {
	if !t.Stream.SizeKnown() {
		return -1
	}
	total := t.Stream.Size
	if t.Audio != nil {
		if !t.Audio.SizeKnown() {
			return -1
		}
		total += t.Audio.Size
	}
	return total
}

type EventType int

const (
	EventAdded EventType = iota
	EventStatus
	EventProgress
	EventRemoved
)

func (e EventType) String() string {
	switch e {
	case EventAdded:
		return "added"
	case EventStatus:
		return "status"
	case EventProgress:
		return "progress"
	case EventRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Event is a one-way notification from the download manager to observers.
type Event struct {
	Type       EventType
	TaskID     string
	Title      string
	Status     TaskStatus
	Phase      string
	Downloaded int64
	Total      int64
	OutputPath string
	Err        error
	Time       time.Time
}
