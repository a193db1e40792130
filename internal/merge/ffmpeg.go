package merge

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/tubeq/internal/types"
)

const probeTimeout = 10 * time.Second

// FFmpeg muxes a video-only and an audio-only file into one container by
// stream copy. The executable is located and probed once, on first need.
type FFmpeg struct {
	configured string

	once sync.Once
	path string
	err  error
}

// NewFFmpeg uses path if given, otherwise searches PATH and the directory
// of the running executable.
func NewFFmpeg(path string) *FFmpeg {
	return &FFmpeg{configured: path}
}

func (f *FFmpeg) Available(ctx context.Context) error {
	f.once.Do(func() {
		f.path, f.err = f.probe(ctx)
	})
	return f.err
}

func (f *FFmpeg) Path() string {
	return f.path
}

func (f *FFmpeg) probe(ctx context.Context) (string, error) {
	path, err := locate(f.configured)
	if err != nil {
		log.Warn().Str("op", "merge/ffmpeg").Err(err).Msg("ffmpeg not found")
		return "", fmt.Errorf("%w: %v", types.ErrMergeToolUnavailable, err)
	}
	// the result is cached, so a cancelled caller must not decide it
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), probeTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, path, "-version").CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%w: %s -version failed: %v", types.ErrMergeToolUnavailable, path, err)
	}
	firstLine, _, _ := strings.Cut(string(out), "\n")
	log.Debug().Str("op", "merge/ffmpeg").Msgf("using %s (%s)", path, strings.TrimSpace(firstLine))
	return path, nil
}

func locate(configured string) (string, error) {
	if configured != "" {
		return exec.LookPath(configured)
	}
	if path, err := exec.LookPath("ffmpeg"); err == nil {
		return path, nil
	}
	name := "ffmpeg"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	if execPath, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(execPath), name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("ffmpeg not found in PATH, please install it")
}

// Merge writes outputFile from the first video track of videoFile and the
// first audio track of audioFile. Inputs are deleted on success and kept on
// failure.
func (f *FFmpeg) Merge(ctx context.Context, videoFile, audioFile, outputFile string) error {
	if err := f.Available(ctx); err != nil {
		return err
	}
	args := []string{
		"-y",
		"-loglevel", "error",
		"-i", videoFile,
		"-i", audioFile,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c", "copy",
		outputFile,
	}
	cmd := exec.CommandContext(ctx, f.path, args...)
	var stderr bytes.Buffer
	cmd.Stdout = &stderr
	cmd.Stderr = &stderr
	log.Debug().Str("op", "merge/ffmpeg").Msgf("executing %s", cmd.String())
	if err := cmd.Run(); err != nil {
		os.Remove(outputFile)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg error: %v\nOutput: %s", err, strings.TrimSpace(stderr.String()))
	}
	if _, err := os.Stat(outputFile); err != nil {
		return fmt.Errorf("ffmpeg produced no output: %w", err)
	}
	os.Remove(videoFile)
	os.Remove(audioFile)
	return nil
}
