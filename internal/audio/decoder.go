package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"audio-transcriber/internal/domain"
)

// SampleRate and related constants describe the PCM format every extracted
// window is decoded to before being handed to the speech engine.
const (
	SampleRate     = 16000
	BytesPerSample = 2 // s16le
)

// commandResult is an internal process execution response. Stdout is raw
// bytes because PCM extraction pipes binary data through it.
type commandResult struct {
	Stdout   []byte
	Stderr   string
	ExitCode int
}

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
}

// execRunner executes commands via os/exec.
type execRunner struct{}

// Run executes one command and captures stdout/stderr and exit code.
func (r *execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := commandResult{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.String(),
		ExitCode: 0,
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}

	return result, nil
}

// Decoder provides duration probing and PCM window extraction backed by the
// ffprobe and ffmpeg command-line tools.
type Decoder struct {
	ffmpegPath  string
	ffprobePath string
	runner      commandRunner
}

// NewDecoder constructs the production decoder using tools from PATH.
func NewDecoder() *Decoder {
	return &Decoder{
		ffmpegPath:  "ffmpeg",
		ffprobePath: "ffprobe",
		runner:      &execRunner{},
	}
}

// NewDecoderForTests constructs a decoder with an injectable runner.
func NewDecoderForTests(ffmpegPath, ffprobePath string, runner commandRunner) *Decoder {
	return &Decoder{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		runner:      runner,
	}
}

// ProbeDuration returns the total duration of the audio file in seconds.
// Any probe failure surfaces as ErrAudioUnreadable.
func (d *Decoder) ProbeDuration(ctx context.Context, path string) (float64, error) {
	if strings.TrimSpace(path) == "" {
		return 0, fmt.Errorf("%w: empty path", domain.ErrAudioUnreadable)
	}

	args := buildProbeArgs(path)
	result, err := d.runner.Run(ctx, d.ffprobePath, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: probe %s: %v", domain.ErrAudioUnreadable, path, err)
	}

	raw := strings.TrimSpace(string(result.Stdout))
	duration, err := strconv.ParseFloat(raw, 64)
	if err != nil || duration <= 0 {
		return 0, fmt.Errorf("%w: no duration reported for %s", domain.ErrAudioUnreadable, path)
	}

	return duration, nil
}

// ExtractPCM decodes one time window to mono 16 kHz 16-bit PCM. A decode
// failure or empty output surfaces as a typed error, never a silent empty
// buffer.
func (d *Decoder) ExtractPCM(ctx context.Context, path string, startSeconds, durationSeconds float64) ([]byte, error) {
	args := buildExtractArgs(path, startSeconds, durationSeconds)
	result, err := d.runner.Run(ctx, d.ffmpegPath, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: extract window %.1fs+%.1fs of %s: %v",
			domain.ErrAudioUnreadable, startSeconds, durationSeconds, path, err)
	}
	if len(result.Stdout) == 0 {
		return nil, fmt.Errorf("%w: decoder produced no samples for %s", domain.ErrAudioUnreadable, path)
	}

	return result.Stdout, nil
}

// buildProbeArgs builds ffprobe args printing just the container duration.
func buildProbeArgs(path string) []string {
	return []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
}

// buildExtractArgs builds ffmpeg args piping one window as raw s16le PCM.
func buildExtractArgs(path string, startSeconds, durationSeconds float64) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-ss", formatSeconds(startSeconds),
		"-t", formatSeconds(durationSeconds),
		"-i", path,
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(SampleRate),
		"-f", "s16le",
		"-c:a", "pcm_s16le",
		"pipe:1",
	}
}

// formatSeconds renders a seconds value the way ffmpeg expects it.
func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
