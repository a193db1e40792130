package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/tubeq/internal/types"
	"github.com/tanq16/tubeq/internal/utils"
	"golang.org/x/time/rate"
)

type msgKind int

const (
	msgProgress msgKind = iota
	msgMerging
	msgDone
)

type workerMsg struct {
	id           string
	kind         msgKind
	phase        string
	downloaded   int64
	total        int64
	outputPath   string
	subtitlePath string
	err          error
}

var errStalled = errors.New("stream stalled")

// mergeError marks a failure whose temporary inputs are kept for inspection.
type mergeError struct{ err error }

func (e *mergeError) Error() string { return "merge failed: " + e.err.Error() }
func (e *mergeError) Unwrap() error { return e.err }

func (m *Manager) send(msg workerMsg) {
	select {
	case m.updates <- msg:
	case <-m.ctx.Done():
	}
}

func (m *Manager) work(ctx context.Context, task types.DownloadTask) {
	defer m.workers.Done()
	outputPath, subtitlePath, err := m.download(ctx, &task)
	if err != nil {
		var me *mergeError
		if ctx.Err() != nil || !errors.As(err, &me) {
			if cerr := utils.CleanFunction(task.OutputDir, task.ID); cerr != nil {
				log.Warn().Str("op", "downloader/worker").Err(cerr).Msgf("could not remove partial files of %s", task.ID)
			}
		}
		if ctx.Err() != nil {
			err = context.Canceled
		}
	}
	m.send(workerMsg{
		id:           task.ID,
		kind:         msgDone,
		outputPath:   outputPath,
		subtitlePath: subtitlePath,
		err:          err,
	})
}

func (m *Manager) download(ctx context.Context, task *types.DownloadTask) (string, string, error) {
	tempDir := utils.TempDir(task.OutputDir)
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return "", "", fmt.Errorf("%w: creating temp directory: %v", types.ErrFilesystem, err)
	}
	progress := newTracker(m, task)

	videoPart := filepath.Join(tempDir, task.ID+".video.part")
	if err := m.fetchStream(ctx, task, task.Stream, videoPart, progress, "video"); err != nil {
		return "", "", err
	}
	result := videoPart
	if task.NeedsMerge() {
		audioPart := filepath.Join(tempDir, task.ID+".audio.part")
		if err := m.fetchStream(ctx, task, *task.Audio, audioPart, progress, "audio"); err != nil {
			return "", "", err
		}
		m.send(workerMsg{id: task.ID, kind: msgMerging})
		merged := filepath.Join(tempDir, task.ID+".merged."+outputExtension(task))
		if err := m.merger.Merge(ctx, videoPart, audioPart, merged); err != nil {
			if ctx.Err() != nil {
				return "", "", ctx.Err()
			}
			return "", "", &mergeError{err: err}
		}
		result = merged
	}

	final, err := utils.ClaimPath(task.OutputPath)
	if err != nil {
		return "", "", fmt.Errorf("%w: reserving output file: %v", types.ErrFilesystem, err)
	}
	if err := os.Rename(result, final); err != nil {
		os.Remove(final)
		return "", "", fmt.Errorf("%w: finalizing output file: %v", types.ErrFilesystem, err)
	}
	if err := utils.CleanFunction(task.OutputDir, task.ID); err != nil {
		log.Debug().Str("op", "downloader/worker").Err(err).Msg("temp cleanup")
	}

	var subtitlePath string
	if task.Subtitles {
		path, err := m.writeSubtitles(ctx, task)
		if err != nil {
			log.Warn().Str("op", "downloader/worker").Err(err).Msgf("subtitles skipped for %s", task.Title())
		}
		subtitlePath = path
	}
	return final, subtitlePath, nil
}

func (m *Manager) fetchStream(parent context.Context, task *types.DownloadTask, stream types.StreamInfo, path string, progress *tracker, phase string) error {
	ctx, cancel := context.WithCancelCause(parent)
	defer cancel(nil)

	rc, size, err := m.src.OpenStream(ctx, task.Video.ID, stream.ID)
	if err != nil {
		if parent.Err() != nil {
			return parent.Err()
		}
		if errors.Is(err, types.ErrNoStreams) {
			return err
		}
		return fmt.Errorf("%w: opening %s stream: %w", types.ErrDownloadInterrupted, phase, err)
	}
	defer rc.Close()
	progress.begin(phase, size)

	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("%w: creating part file: %v", types.ErrFilesystem, err)
	}
	defer out.Close()

	stall := time.AfterFunc(m.cfg.StallTimeout, func() { cancel(errStalled) })
	defer stall.Stop()

	buffer := make([]byte, m.cfg.ChunkSize)
	for {
		if ctx.Err() != nil {
			return m.interruption(ctx)
		}
		n, readErr := rc.Read(buffer)
		if n > 0 {
			stall.Reset(m.cfg.StallTimeout)
			if _, writeErr := out.Write(buffer[:n]); writeErr != nil {
				return fmt.Errorf("%w: writing part file: %v", types.ErrFilesystem, writeErr)
			}
			progress.add(int64(n))
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			if ctx.Err() != nil {
				return m.interruption(ctx)
			}
			return fmt.Errorf("%w: reading %s stream: %w", types.ErrDownloadInterrupted, phase, readErr)
		}
	}
	progress.flush()
	if err := out.Sync(); err != nil {
		return fmt.Errorf("%w: syncing part file: %v", types.ErrFilesystem, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("%w: closing part file: %v", types.ErrFilesystem, err)
	}
	return nil
}

func (m *Manager) interruption(ctx context.Context) error {
	cause := context.Cause(ctx)
	if errors.Is(cause, errStalled) {
		return fmt.Errorf("%w: no data received for %s", types.ErrDownloadInterrupted, m.cfg.StallTimeout)
	}
	return cause
}

func (m *Manager) writeSubtitles(ctx context.Context, task *types.DownloadTask) (string, error) {
	caption, ok := task.Video.CaptionFor(task.SubtitleLang)
	if !ok {
		return "", fmt.Errorf("no captions available")
	}
	rc, err := m.src.OpenCaption(ctx, task.Video.ID, caption.ID)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	name := fmt.Sprintf("%s.%s.srt", utils.SanitizeFilename(task.Title()), caption.LanguageCode)
	path := utils.UniquePath(filepath.Join(task.OutputDir, name), nil)
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("%w: creating subtitle file: %v", types.ErrFilesystem, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		os.Remove(path)
		return "", fmt.Errorf("writing subtitle file: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("%w: closing subtitle file: %v", types.ErrFilesystem, err)
	}
	return path, nil
}

// tracker accumulates bytes across the video and audio phases of one task
// and reports them to the coordinator at most once per interval.
type tracker struct {
	m          *Manager
	id         string
	phase      string
	downloaded int64
	sizes      map[string]int64
	limiter    *rate.Sometimes
}

func newTracker(m *Manager, task *types.DownloadTask) *tracker {
	sizes := map[string]int64{"video": task.Stream.Size}
	if task.Audio != nil {
		sizes["audio"] = task.Audio.Size
	}
	return &tracker{
		m:       m,
		id:      task.ID,
		sizes:   sizes,
		limiter: &rate.Sometimes{Interval: m.cfg.ProgressInterval},
	}
}

func (p *tracker) begin(phase string, size int64) {
	p.phase = phase
	if size > 0 {
		p.sizes[phase] = size
	}
	p.emit()
}

func (p *tracker) total() int64 {
	var total int64
	for _, size := range p.sizes {
		if size <= 0 {
			return -1
		}
		total += size
	}
	return total
}

func (p *tracker) add(n int64) {
	p.downloaded += n
	p.limiter.Do(p.emit)
}

func (p *tracker) flush() {
	p.emit()
}

func (p *tracker) emit() {
	p.m.send(workerMsg{
		id:         p.id,
		kind:       msgProgress,
		phase:      p.phase,
		downloaded: p.downloaded,
		total:      p.total(),
	})
}
