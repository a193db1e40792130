package scheduler

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/tubeq/internal/config"
	"github.com/tanq16/tubeq/internal/downloader"
	"github.com/tanq16/tubeq/internal/extractor"
	"github.com/tanq16/tubeq/internal/fetcher"
	"github.com/tanq16/tubeq/internal/history"
	"github.com/tanq16/tubeq/internal/output"
	"github.com/tanq16/tubeq/internal/types"
)

// cancelGrace bounds how long Run waits for cancelled workers to clean up.
const cancelGrace = 10 * time.Second

type Archiver interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

// Options describe one download session. History and Archiver are optional.
type Options struct {
	URLs         []string
	Quality      string
	AudioOnly    bool
	Subtitles    bool
	SubtitleLang string
	OutputDir    string
	Workers      int
	StallTimeout time.Duration

	Extractor extractor.Extractor
	Fetcher   *fetcher.Fetcher
	Merger    downloader.Merger
	Display   *output.Manager
	History   *history.Store
	Archiver  Archiver
}

// Run fetches every URL, queues one task per video and returns once every
// task has reached a terminal state. Cancelling ctx cancels in-flight tasks.
func Run(ctx context.Context, opts Options) (output.Summary, error) {
	if len(opts.URLs) == 0 {
		return output.Summary{}, errors.New("no URLs to download")
	}
	if opts.Display == nil {
		opts.Display = output.NewManager(os.Stdout)
	}
	if opts.Fetcher == nil {
		opts.Fetcher = fetcher.New(opts.Extractor, nil, fetcher.Config{})
	}
	if opts.AudioOnly {
		opts.Quality = config.QualityAudio
	}

	// the manager outlives ctx so that cancelled tasks can still report back
	mgrCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	defer stop()
	mgr := downloader.NewManager(mgrCtx, downloader.Config{
		OutputDir:     opts.OutputDir,
		MaxConcurrent: opts.Workers,
		StallTimeout:  opts.StallTimeout,
	}, opts.Extractor, opts.Merger)

	state := newRunState()
	opts.Display.StartDisplay()
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		for ev := range mgr.Events() {
			opts.Display.Apply(ev)
			if ev.Type == types.EventRemoved || (ev.Type == types.EventStatus && ev.Status.IsTerminal()) {
				if ev.Type == types.EventStatus {
					settle(mgrCtx, mgr, ev.TaskID, opts)
				}
				state.done(ev.TaskID)
			}
		}
	}()

	queue(ctx, mgr, state, opts)
	state.fetchFinished()

	select {
	case <-state.settled:
	case <-ctx.Done():
		log.Warn().Str("op", "scheduler/scheduler").Msg("interrupted, cancelling downloads")
		for _, task := range mgr.Tasks() {
			if !task.Status.IsTerminal() {
				mgr.CancelTask(task.ID)
			}
		}
		select {
		case <-state.settled:
		case <-time.After(cancelGrace):
		}
	}
	mgr.Close()
	<-relayDone
	opts.Display.StopDisplay()
	return opts.Display.Summary(), nil
}

func queue(ctx context.Context, mgr *downloader.Manager, state *runState, opts Options) {
	for _, url := range opts.URLs {
		if ctx.Err() != nil {
			return
		}
		for _, res := range opts.Fetcher.FetchAll(ctx, url) {
			if res.Err != nil {
				opts.Display.ReportFetchError(res.URL, res.Err)
				continue
			}
			stream, err := SelectStream(res.Video, opts.Quality)
			if err != nil {
				opts.Display.ReportFetchError(res.URL, err)
				continue
			}
			id, err := mgr.AddTask(types.TaskSpec{
				Video:        res.Video,
				StreamID:     stream.ID,
				OutputDir:    opts.OutputDir,
				AudioOnly:    stream.IsAudioOnly(),
				Subtitles:    opts.Subtitles,
				SubtitleLang: opts.SubtitleLang,
			})
			if err != nil {
				opts.Display.ReportFetchError(res.URL, err)
				continue
			}
			state.track(id)
			if err := mgr.StartTask(id); err != nil {
				log.Error().Str("op", "scheduler/scheduler").Err(err).Msgf("could not start %s", id)
				state.done(id)
			}
		}
	}
}

// settle records a terminal task in history and archives completed outputs.
func settle(ctx context.Context, mgr *downloader.Manager, id string, opts Options) {
	if opts.History == nil && opts.Archiver == nil {
		return
	}
	task, ok := mgr.Task(id)
	if !ok {
		return
	}
	if opts.History != nil {
		if err := opts.History.Record(ctx, task); err != nil {
			log.Warn().Str("op", "scheduler/scheduler").Err(err).Msg("history not recorded")
		}
	}
	if opts.Archiver == nil || task.Status != types.StatusCompleted {
		return
	}
	for _, path := range []string{task.OutputPath, task.SubtitlePath} {
		if path == "" {
			continue
		}
		location, err := opts.Archiver.Upload(ctx, path)
		if err != nil {
			log.Error().Str("op", "scheduler/scheduler").Err(err).Msgf("archive failed for %s", path)
			continue
		}
		log.Info().Str("op", "scheduler/scheduler").Msgf("archived %s", location)
		if opts.History != nil && path == task.OutputPath {
			if err := opts.History.MarkArchived(ctx, task.ID, location); err != nil {
				log.Warn().Str("op", "scheduler/scheduler").Err(err).Msg("archive location not recorded")
			}
		}
	}
}

// runState counts tasks that have not reached a terminal state yet. settled
// closes once fetching is over and nothing is outstanding.
type runState struct {
	mu       sync.Mutex
	open     map[string]bool
	fetching bool
	settled  chan struct{}
	once     sync.Once
}

func newRunState() *runState {
	return &runState{open: make(map[string]bool), fetching: true, settled: make(chan struct{})}
}

func (s *runState) track(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open[id] = true
}

func (s *runState) done(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.open, id)
	s.check()
}

func (s *runState) fetchFinished() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetching = false
	s.check()
}

func (s *runState) check() {
	if !s.fetching && len(s.open) == 0 {
		s.once.Do(func() { close(s.settled) })
	}
}
