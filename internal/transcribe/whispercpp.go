package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (string, string, error)
}

type execRunner struct{}

func (r *execRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// WhisperCppBackend transcribes by invoking a whisper.cpp CLI binary.
type WhisperCppBackend struct {
	binPath   string
	modelPath string
	opts      Options

	runner    commandRunner
	mkdirTemp func(dir, pattern string) (string, error)
	removeAll func(path string) error
}

// NewWhisperCppBackend validates and resolves the model up front, so a
// misconfigured worker fails on first use instead of mid-job. A directory
// model path resolves to its first .bin/.gguf file.
func NewWhisperCppBackend(binPath, modelPath string, opts Options) (*WhisperCppBackend, error) {
	resolved, err := resolveModelPath(modelPath)
	if err != nil {
		return nil, err
	}
	return &WhisperCppBackend{
		binPath:   binPath,
		modelPath: resolved,
		opts:      opts,
		runner:    &execRunner{},
		mkdirTemp: os.MkdirTemp,
		removeAll: os.RemoveAll,
	}, nil
}

func (b *WhisperCppBackend) Transcribe(ctx context.Context, audioPath string) (Result, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return Result{}, &EngineError{Backend: "whispercpp", Err: fmt.Errorf("cannot access audio: %w", err)}
	}

	tempDir, err := b.mkdirTemp("", "whisper-flow-*")
	if err != nil {
		return Result{}, &EngineError{Backend: "whispercpp", Err: fmt.Errorf("create workspace: %w", err)}
	}
	defer func() { _ = b.removeAll(tempDir) }()

	outBase := filepath.Join(tempDir, "transcript")
	args := b.buildArgs(audioPath, outBase)

	_, stderr, runErr := b.runner.Run(ctx, b.binPath, args...)
	if runErr != nil {
		return Result{}, &EngineError{Backend: "whispercpp", Err: fmt.Errorf("%w: %s", runErr, tailOf(stderr))}
	}

	content, err := os.ReadFile(outBase + ".txt")
	if err != nil {
		return Result{}, &EngineError{Backend: "whispercpp", Err: fmt.Errorf("transcript file missing: %w", err)}
	}

	return Result{
		Text:     strings.TrimSpace(string(content)),
		Language: detectedLanguage(stderr),
	}, nil
}

func (b *WhisperCppBackend) buildArgs(audioPath, outBase string) []string {
	args := []string{
		"-m", b.modelPath,
		"-f", audioPath,
		"-of", outBase,
		"-otxt",
		"-l", "auto",
		"--beam-size", strconv.Itoa(b.opts.BeamWidth),
		"--no-speech-thold", strconv.FormatFloat(b.opts.SpeechThreshold, 'f', -1, 64),
	}
	if b.opts.SuppressConditioning {
		args = append(args, "--no-context")
	}
	if b.opts.VADEnabled {
		args = append(args, "--vad")
	}
	return args
}

func resolveModelPath(rawPath string) (string, error) {
	modelPath := strings.TrimSpace(rawPath)
	if modelPath == "" {
		return "", errors.New("model path is required")
	}

	info, err := os.Stat(modelPath)
	if err != nil {
		return "", fmt.Errorf("cannot access model path: %s", modelPath)
	}
	if !info.IsDir() {
		return modelPath, nil
	}

	entries, err := os.ReadDir(modelPath)
	if err != nil {
		return "", fmt.Errorf("cannot read model directory: %s", modelPath)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".bin" || ext == ".gguf" {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no .bin or .gguf model files found in: %s", modelPath)
	}

	sort.Strings(names)
	return filepath.Join(modelPath, names[0]), nil
}

// detectedLanguage pulls the language code out of whisper.cpp's
// "auto-detected language: xx (p = ...)" stderr line.
func detectedLanguage(stderr string) string {
	const marker = "auto-detected language:"
	idx := strings.Index(stderr, marker)
	if idx < 0 {
		return ""
	}
	rest := strings.TrimSpace(stderr[idx+len(marker):])
	if cut := strings.IndexAny(rest, " (\n"); cut > 0 {
		rest = rest[:cut]
	}
	return rest
}

func tailOf(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 512 {
		s = s[len(s)-512:]
	}
	return s
}
