package speech

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"audio-transcriber/internal/audio"
)

// detectedLanguagePattern matches the language line whisper.cpp prints
// during automatic detection, e.g. "auto-detected language: en (p = 0.98)".
var detectedLanguagePattern = regexp.MustCompile(`auto-detected language:\s*([a-zA-Z]{2,8})`)

// commandResult is an internal process execution response.
type commandResult struct {
	Stdout   string
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
		Stdout:   stdout.String(),
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

// WhisperCPP runs a local whisper.cpp binary against one model file.
type WhisperCPP struct {
	binPath   string
	modelPath string
	runner    commandRunner
	mkdirTemp func(dir, pattern string) (string, error)
	removeAll func(path string) error
	readFile  func(name string) ([]byte, error)
	writeFile func(name string, data []byte, perm os.FileMode) error
}

// NewWhisperCPP creates an engine backed by the whisper.cpp CLI on PATH.
func NewWhisperCPP(modelPath string) *WhisperCPP {
	return &WhisperCPP{
		binPath:   "whisper.cpp",
		modelPath: modelPath,
		runner:    &execRunner{},
		mkdirTemp: os.MkdirTemp,
		removeAll: os.RemoveAll,
		readFile:  os.ReadFile,
		writeFile: os.WriteFile,
	}
}

// NewWhisperCPPForTests creates an engine with injectable dependencies.
func NewWhisperCPPForTests(
	binPath string,
	modelPath string,
	runner commandRunner,
	mkdirTemp func(dir, pattern string) (string, error),
	removeAll func(path string) error,
	readFile func(name string) ([]byte, error),
	writeFile func(name string, data []byte, perm os.FileMode) error,
) *WhisperCPP {
	return &WhisperCPP{
		binPath:   binPath,
		modelPath: modelPath,
		runner:    runner,
		mkdirTemp: mkdirTemp,
		removeAll: removeAll,
		readFile:  readFile,
		writeFile: writeFile,
	}
}

// DetectLanguage runs whisper.cpp in detection mode on the sample.
func (w *WhisperCPP) DetectLanguage(ctx context.Context, samples []byte) (string, error) {
	tempDir, wavPath, err := w.stageSamples(samples)
	if err != nil {
		return "", err
	}
	defer w.removeAll(tempDir)

	args := buildDetectArgs(w.modelPath, wavPath)
	result, runErr := w.runner.Run(ctx, w.binPath, args...)

	// Detection output lands on stderr; check it even when the process
	// reports a nonzero exit after printing the language.
	if lang := parseDetectedLanguage(result.Stderr + "\n" + result.Stdout); lang != "" {
		return lang, nil
	}
	if runErr != nil {
		return "", fmt.Errorf("whisper.cpp language detection: %w", runErr)
	}
	return "", fmt.Errorf("whisper.cpp did not report a language")
}

// Transcribe runs whisper.cpp over the samples and returns the text.
func (w *WhisperCPP) Transcribe(ctx context.Context, samples []byte, language string) (string, error) {
	tempDir, wavPath, err := w.stageSamples(samples)
	if err != nil {
		return "", err
	}
	defer w.removeAll(tempDir)

	outBase := filepath.Join(tempDir, "chunk")
	args := buildTranscribeArgs(w.modelPath, wavPath, outBase, language)
	if _, runErr := w.runner.Run(ctx, w.binPath, args...); runErr != nil {
		return "", fmt.Errorf("whisper.cpp transcription: %w", runErr)
	}

	content, err := w.readFile(outBase + ".txt")
	if err != nil {
		return "", fmt.Errorf("whisper.cpp produced no transcript: %w", err)
	}

	return strings.TrimSpace(string(content)), nil
}

// stageSamples writes PCM samples as a WAV file in a fresh temp dir.
func (w *WhisperCPP) stageSamples(samples []byte) (tempDir, wavPath string, err error) {
	if len(samples) == 0 {
		return "", "", fmt.Errorf("no audio samples to process")
	}

	tempDir, err = w.mkdirTemp("", "audio-transcriber-*")
	if err != nil {
		return "", "", fmt.Errorf("create temporary workspace: %w", err)
	}

	wavPath = filepath.Join(tempDir, "window.wav")
	if err := w.writeFile(wavPath, wrapPCMAsWAV(samples), 0o644); err != nil {
		w.removeAll(tempDir)
		return "", "", fmt.Errorf("stage audio samples: %w", err)
	}

	return tempDir, wavPath, nil
}

// buildDetectArgs builds whisper.cpp args for language detection only.
func buildDetectArgs(modelPath, audioPath string) []string {
	return []string{
		"-m", modelPath,
		"-f", audioPath,
		"-dl",
	}
}

// buildTranscribeArgs builds whisper.cpp args for txt transcript export.
func buildTranscribeArgs(modelPath, audioPath, textBase, language string) []string {
	args := []string{
		"-m", modelPath,
		"-f", audioPath,
		"-of", textBase,
		"-otxt",
	}

	if lang := strings.TrimSpace(language); lang != "" {
		args = append(args, "-l", lang)
	}

	return args
}

// parseDetectedLanguage extracts the language code from detection output.
func parseDetectedLanguage(output string) string {
	matches := detectedLanguagePattern.FindStringSubmatch(output)
	if len(matches) != 2 {
		return ""
	}
	return strings.ToLower(matches[1])
}

// wrapPCMAsWAV prepends a canonical 44-byte RIFF header so whisper.cpp can
// consume the raw mono s16le stream as a regular WAV file.
func wrapPCMAsWAV(samples []byte) []byte {
	const headerSize = 44
	dataSize := uint32(len(samples))
	byteRate := uint32(audio.SampleRate * audio.BytesPerSample)

	buf := make([]byte, 0, headerSize+len(samples))
	buf = append(buf, "RIFF"...)
	buf = binary.LittleEndian.AppendUint32(buf, 36+dataSize)
	buf = append(buf, "WAVE"...)
	buf = append(buf, "fmt "...)
	buf = binary.LittleEndian.AppendUint32(buf, 16)                        // PCM fmt chunk size
	buf = binary.LittleEndian.AppendUint16(buf, 1)                         // PCM format
	buf = binary.LittleEndian.AppendUint16(buf, 1)                         // mono
	buf = binary.LittleEndian.AppendUint32(buf, uint32(audio.SampleRate))  // sample rate
	buf = binary.LittleEndian.AppendUint32(buf, byteRate)                  // byte rate
	buf = binary.LittleEndian.AppendUint16(buf, audio.BytesPerSample)      // block align
	buf = binary.LittleEndian.AppendUint16(buf, 8*audio.BytesPerSample)    // bits per sample
	buf = append(buf, "data"...)
	buf = binary.LittleEndian.AppendUint32(buf, dataSize)
	buf = append(buf, samples...)
	return buf
}
