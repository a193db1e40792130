package downloader

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tanq16/tubeq/internal/extractor"
	"github.com/tanq16/tubeq/internal/types"
	"github.com/tanq16/tubeq/internal/utils"
)

const (
	defaultMaxConcurrent    = 2
	maxConcurrentLimit      = 5
	defaultProgressInterval = 250 * time.Millisecond
	defaultStallTimeout     = 60 * time.Second
	defaultEventBuffer      = 64
)

// Merger joins a video-only and an audio-only file into outputFile.
type Merger interface {
	Available(ctx context.Context) error
	Merge(ctx context.Context, videoFile, audioFile, outputFile string) error
}

type Config struct {
	OutputDir        string
	MaxConcurrent    int
	ChunkSize        int
	ProgressInterval time.Duration
	StallTimeout     time.Duration
	EventBuffer      int
}

func (c *Config) applyDefaults() {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = defaultMaxConcurrent
	}
	c.MaxConcurrent = min(c.MaxConcurrent, maxConcurrentLimit)
	if c.ChunkSize <= 0 {
		c.ChunkSize = utils.DefaultChunkSize
	}
	if c.ProgressInterval <= 0 {
		c.ProgressInterval = defaultProgressInterval
	}
	if c.StallTimeout <= 0 {
		c.StallTimeout = defaultStallTimeout
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = defaultEventBuffer
	}
}

type QueueStats struct {
	Pending     int
	Queued      int
	Downloading int
	Merging     int
	Completed   int
	Failed      int
	Cancelled   int
}

type runningTask struct {
	cancel    context.CancelFunc
	cancelled bool
}

// Manager owns the task list. All task state lives in a single coordinating
// goroutine; public methods submit closures to it and workers report back
// over a channel, so no task field is shared between goroutines.
type Manager struct {
	cfg    Config
	src    extractor.Extractor
	merger Merger

	ctx     context.Context
	cancel  context.CancelFunc
	cmds    chan func()
	updates chan workerMsg
	done    chan struct{}
	events  *eventQueue
	workers sync.WaitGroup

	tasks     map[string]*types.DownloadTask
	order     []string
	scheduled []string
	running   map[string]*runningTask
	reserved  map[string]bool
}

func NewManager(ctx context.Context, cfg Config, src extractor.Extractor, merger Merger) *Manager {
	cfg.applyDefaults()
	ctx, cancel := context.WithCancel(ctx)
	m := &Manager{
		cfg:      cfg,
		src:      src,
		merger:   merger,
		ctx:      ctx,
		cancel:   cancel,
		cmds:     make(chan func()),
		updates:  make(chan workerMsg, cfg.MaxConcurrent*4),
		done:     make(chan struct{}),
		events:   newEventQueue(cfg.EventBuffer),
		tasks:    make(map[string]*types.DownloadTask),
		running:  make(map[string]*runningTask),
		reserved: make(map[string]bool),
	}
	go m.loop()
	return m
}

func (m *Manager) Events() <-chan types.Event {
	return m.events.out
}

// Close cancels in-flight downloads, waits for workers and stops the event
// stream.
func (m *Manager) Close() {
	m.cancel()
	<-m.done
}

func (m *Manager) loop() {
	defer close(m.done)
	for {
		select {
		case fn := <-m.cmds:
			fn()
		case msg := <-m.updates:
			m.apply(msg)
		case <-m.ctx.Done():
			for _, rt := range m.running {
				rt.cancel()
			}
			m.workers.Wait()
			m.events.close()
			log.Debug().Str("op", "downloader/manager").Msg("manager stopped")
			return
		}
	}
}

func (m *Manager) do(fn func()) error {
	finished := make(chan struct{})
	select {
	case m.cmds <- func() { fn(); close(finished) }:
	case <-m.done:
		return types.ErrManagerClosed
	}
	<-finished
	return nil
}

func (m *Manager) emit(t *types.DownloadTask, typ types.EventType) {
	m.events.push(types.Event{
		Type:       typ,
		TaskID:     t.ID,
		Title:      t.Title(),
		Status:     t.Status,
		Downloaded: t.Downloaded,
		Total:      t.Total,
		OutputPath: t.OutputPath,
		Err:        t.Err,
		Time:       time.Now(),
	})
}

// AddTask validates spec and appends a Pending task.
func (m *Manager) AddTask(spec types.TaskSpec) (string, error) {
	task, err := m.buildTask(spec)
	if err != nil {
		return "", err
	}
	err = m.do(func() {
		m.tasks[task.ID] = task
		m.order = append(m.order, task.ID)
		m.emit(task, types.EventAdded)
	})
	if err != nil {
		return "", err
	}
	log.Debug().Str("op", "downloader/manager").Msgf("added task %s for %q (%s)", task.ID, task.Title(), task.Stream.DisplayName())
	return task.ID, nil
}

func (m *Manager) buildTask(spec types.TaskSpec) (*types.DownloadTask, error) {
	if spec.Video == nil {
		return nil, fmt.Errorf("%w: no video", types.ErrInvalidTask)
	}
	outputDir := spec.OutputDir
	if outputDir == "" {
		outputDir = m.cfg.OutputDir
	}
	if outputDir == "" {
		return nil, fmt.Errorf("%w: output folder is required", types.ErrInvalidTask)
	}
	task := &types.DownloadTask{
		ID:           uuid.NewString(),
		Video:        spec.Video,
		OutputDir:    outputDir,
		AudioOnly:    spec.AudioOnly,
		Subtitles:    spec.Subtitles,
		SubtitleLang: spec.SubtitleLang,
		Status:       types.StatusPending,
		CreatedAt:    time.Now(),
	}
	if spec.AudioOnly {
		stream, ok := spec.Video.StreamByID(spec.StreamID)
		if !ok || !stream.IsAudioOnly() {
			stream, ok = spec.Video.BestAudio("m4a")
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s has no audio stream", types.ErrNoStreams, spec.Video.ID)
		}
		task.Stream = stream
	} else {
		if spec.StreamID == "" {
			return nil, fmt.Errorf("%w: no stream selected", types.ErrInvalidTask)
		}
		stream, ok := spec.Video.StreamByID(spec.StreamID)
		if !ok {
			return nil, fmt.Errorf("%w: stream %s not offered for %s", types.ErrInvalidTask, spec.StreamID, spec.Video.ID)
		}
		task.Stream = stream
		if stream.Kind == types.VideoOnly {
			audio, ok := spec.Video.BestAudio(audioContainerFor(stream.Container))
			if !ok {
				return nil, fmt.Errorf("%w: %s has no audio stream to merge", types.ErrNoStreams, spec.Video.ID)
			}
			task.Audio = &audio
		}
	}
	task.Total = task.ExpectedSize()
	return task, nil
}

// StartTask schedules a Pending task. It begins downloading as soon as a
// worker slot is free, after every task scheduled before it.
func (m *Manager) StartTask(id string) error {
	var err error
	doErr := m.do(func() {
		t, ok := m.tasks[id]
		if !ok {
			err = fmt.Errorf("%w: %s", types.ErrTaskNotFound, id)
			return
		}
		if t.Status != types.StatusPending {
			err = fmt.Errorf("%w: task %s is %s", types.ErrInvalidState, id, t.Status)
			return
		}
		m.schedule(id)
		m.admit()
	})
	if doErr != nil {
		return doErr
	}
	return err
}

// StartAll schedules every Pending task in insertion order.
func (m *Manager) StartAll() error {
	return m.do(func() {
		for _, id := range m.order {
			if m.tasks[id].Status == types.StatusPending {
				m.schedule(id)
			}
		}
		m.admit()
	})
}

func (m *Manager) schedule(id string) {
	for _, s := range m.scheduled {
		if s == id {
			return
		}
	}
	m.scheduled = append(m.scheduled, id)
}

func (m *Manager) unschedule(id string) {
	for i, s := range m.scheduled {
		if s == id {
			m.scheduled = append(m.scheduled[:i], m.scheduled[i+1:]...)
			return
		}
	}
}

func (m *Manager) admit() {
	for len(m.running) < m.cfg.MaxConcurrent && len(m.scheduled) > 0 {
		id := m.scheduled[0]
		m.scheduled = m.scheduled[1:]
		t, ok := m.tasks[id]
		if !ok || t.Status != types.StatusPending {
			continue
		}
		if t.NeedsMerge() {
			if err := m.mergeAvailable(); err != nil {
				m.finish(t, types.StatusFailed, err)
				log.Error().Str("op", "downloader/manager").Err(err).Msgf("task %s needs a merge", t.ID)
				continue
			}
		}
		t.OutputPath = utils.UniquePath(filepath.Join(t.OutputDir, outputName(t)), m.reserved)
		m.reserved[t.OutputPath] = true
		ctx, cancel := context.WithCancel(m.ctx)
		m.running[id] = &runningTask{cancel: cancel}
		t.Status = types.StatusDownloading
		t.StartedAt = time.Now()
		t.Downloaded = 0
		m.emit(t, types.EventStatus)
		snapshot := *t
		m.workers.Add(1)
		go m.work(ctx, snapshot)
	}
}

func (m *Manager) mergeAvailable() error {
	if m.merger == nil {
		return types.ErrMergeToolUnavailable
	}
	return m.merger.Available(m.ctx)
}

func (m *Manager) finish(t *types.DownloadTask, status types.TaskStatus, err error) {
	t.Status = status
	t.Err = err
	t.FinishedAt = time.Now()
	m.emit(t, types.EventStatus)
}

func (m *Manager) apply(msg workerMsg) {
	t, ok := m.tasks[msg.id]
	if !ok {
		return
	}
	switch msg.kind {
	case msgProgress:
		t.Downloaded = msg.downloaded
		t.Total = msg.total
		ev := types.Event{
			Type:       types.EventProgress,
			TaskID:     t.ID,
			Title:      t.Title(),
			Status:     t.Status,
			Phase:      msg.phase,
			Downloaded: msg.downloaded,
			Total:      msg.total,
			Time:       time.Now(),
		}
		m.events.push(ev)
	case msgMerging:
		t.Status = types.StatusMerging
		m.emit(t, types.EventStatus)
	case msgDone:
		rt := m.running[msg.id]
		delete(m.running, msg.id)
		delete(m.reserved, t.OutputPath)
		switch {
		case msg.err == nil:
			t.OutputPath = msg.outputPath
			t.SubtitlePath = msg.subtitlePath
			if t.Total < 0 {
				t.Total = t.Downloaded
			}
			m.finish(t, types.StatusCompleted, nil)
			log.Info().Str("op", "downloader/manager").Msgf("completed %s", t.OutputPath)
		case rt != nil && rt.cancelled:
			t.OutputPath = ""
			m.finish(t, types.StatusCancelled, nil)
			log.Info().Str("op", "downloader/manager").Msgf("cancelled %s", t.ID)
		default:
			t.OutputPath = ""
			m.finish(t, types.StatusFailed, msg.err)
			log.Error().Str("op", "downloader/manager").Err(msg.err).Msgf("task %s failed", t.ID)
		}
		m.admit()
	}
}

// CancelTask removes a Pending task outright, or stops an active one; the
// active task ends Cancelled once its worker has removed partial files.
func (m *Manager) CancelTask(id string) error {
	var err error
	doErr := m.do(func() {
		t, ok := m.tasks[id]
		if !ok {
			err = fmt.Errorf("%w: %s", types.ErrTaskNotFound, id)
			return
		}
		switch {
		case t.Status == types.StatusPending:
			m.unschedule(id)
			m.remove(id)
			t.Status = types.StatusCancelled
			m.emit(t, types.EventRemoved)
		case t.Status.IsActive():
			if rt, ok := m.running[id]; ok {
				rt.cancelled = true
				rt.cancel()
			}
		default:
			err = fmt.Errorf("%w: task %s is %s", types.ErrInvalidState, id, t.Status)
		}
	})
	if doErr != nil {
		return doErr
	}
	return err
}

// RestartTask puts a Failed or Cancelled task back to Pending. It still has to
// be started.
func (m *Manager) RestartTask(id string) error {
	var err error
	doErr := m.do(func() {
		t, ok := m.tasks[id]
		if !ok {
			err = fmt.Errorf("%w: %s", types.ErrTaskNotFound, id)
			return
		}
		if t.Status != types.StatusFailed && t.Status != types.StatusCancelled {
			err = fmt.Errorf("%w: task %s is %s", types.ErrInvalidState, id, t.Status)
			return
		}
		t.Status = types.StatusPending
		t.Err = nil
		t.Downloaded = 0
		t.Total = t.ExpectedSize()
		t.OutputPath = ""
		t.SubtitlePath = ""
		t.StartedAt = time.Time{}
		t.FinishedAt = time.Time{}
		m.emit(t, types.EventStatus)
	})
	if doErr != nil {
		return doErr
	}
	return err
}

// RemoveTask drops a finished task from the list.
func (m *Manager) RemoveTask(id string) error {
	var err error
	doErr := m.do(func() {
		t, ok := m.tasks[id]
		if !ok {
			err = fmt.Errorf("%w: %s", types.ErrTaskNotFound, id)
			return
		}
		if !t.Status.IsTerminal() {
			err = fmt.Errorf("%w: task %s is %s", types.ErrInvalidState, id, t.Status)
			return
		}
		m.remove(id)
		m.emit(t, types.EventRemoved)
	})
	if doErr != nil {
		return doErr
	}
	return err
}

// ClearCompleted removes every Completed task and returns how many were removed.
func (m *Manager) ClearCompleted() (int, error) {
	var n int
	err := m.do(func() {
		for _, id := range append([]string(nil), m.order...) {
			t := m.tasks[id]
			if t.Status == types.StatusCompleted {
				m.remove(id)
				m.emit(t, types.EventRemoved)
				n++
			}
		}
	})
	return n, err
}

func (m *Manager) remove(id string) {
	delete(m.tasks, id)
	for i, o := range m.order {
		if o == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

func (m *Manager) Task(id string) (types.DownloadTask, bool) {
	var snapshot types.DownloadTask
	var ok bool
	m.do(func() {
		var t *types.DownloadTask
		if t, ok = m.tasks[id]; ok {
			snapshot = *t
		}
	})
	return snapshot, ok
}

// Tasks returns snapshots of all tasks in insertion order.
func (m *Manager) Tasks() []types.DownloadTask {
	var out []types.DownloadTask
	m.do(func() {
		out = make([]types.DownloadTask, 0, len(m.order))
		for _, id := range m.order {
			out = append(out, *m.tasks[id])
		}
	})
	return out
}

func (m *Manager) Stats() QueueStats {
	var s QueueStats
	m.do(func() {
		s.Queued = len(m.scheduled)
		for _, t := range m.tasks {
			switch t.Status {
			case types.StatusPending:
				s.Pending++
			case types.StatusDownloading:
				s.Downloading++
			case types.StatusMerging:
				s.Merging++
			case types.StatusCompleted:
				s.Completed++
			case types.StatusFailed:
				s.Failed++
			case types.StatusCancelled:
				s.Cancelled++
			}
		}
	})
	return s
}

// Counts returns the number of tasks holding a worker slot and the number
// waiting for one.
func (m *Manager) Counts() (downloading, queued int) {
	s := m.Stats()
	return s.Downloading + s.Merging, s.Queued
}
