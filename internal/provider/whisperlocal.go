package provider

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// WhisperModel describes one downloadable ggml model.
type WhisperModel struct {
	Name        string
	Size        string
	SizeBytes   int64
	Description string
	URL         string
}

// WhisperModels lists the ggml models the local backend can fetch.
var WhisperModels = map[string]WhisperModel{
	"tiny": {
		Name:        "tiny",
		Size:        "75 MB",
		SizeBytes:   75_000_000,
		Description: "Fastest, least accurate",
		URL:         "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-tiny.bin",
	},
	"base": {
		Name:        "base",
		Size:        "142 MB",
		SizeBytes:   142_000_000,
		Description: "Good balance of speed and accuracy",
		URL:         "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-base.bin",
	},
	"small": {
		Name:        "small",
		Size:        "466 MB",
		SizeBytes:   466_000_000,
		Description: "Better accuracy, slower",
		URL:         "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-small.bin",
	},
	"medium": {
		Name:        "medium",
		Size:        "1.5 GB",
		SizeBytes:   1_500_000_000,
		Description: "High accuracy, requires more resources",
		URL:         "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-medium.bin",
	},
	"large-v3-turbo": {
		Name:        "large-v3-turbo",
		Size:        "1.6 GB",
		SizeBytes:   1_600_000_000,
		Description: "Near large-v3 accuracy, much faster",
		URL:         "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-large-v3-turbo.bin",
	},
}

const whisperReleaseBase = "https://github.com/ggerganov/whisper.cpp/releases/download/v1.7.2/"

// commandRunner executes the whisper binary and returns its stdout. Swapped
// for a fake in tests.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, err
	}
	return out, nil
}

// WhisperLocal transcribes audio by running the whisper.cpp CLI against a
// ggml model on disk. The binary and models live under dir; both are fetched
// on demand. It needs no API key.
type WhisperLocal struct {
	dir    string
	client *http.Client
	run    commandRunner
}

// NewWhisperLocal constructs the local backend rooted at dir, typically
// <user data dir>/whisper.
func NewWhisperLocal(dir string, client *http.Client) *WhisperLocal {
	return &WhisperLocal{dir: dir, client: client, run: execRunner}
}

func (w *WhisperLocal) UpdateKey(string) {}

func (w *WhisperLocal) Configured() bool { return true }

func (w *WhisperLocal) binaryPath() string {
	name := "main"
	if runtime.GOOS == "windows" {
		name = "main.exe"
	}
	return filepath.Join(w.dir, "bin", name)
}

func (w *WhisperLocal) modelPath(model string) string {
	return filepath.Join(w.dir, "models", "ggml-"+model+".bin")
}

// ModelAvailable reports whether the ggml file for model is already on disk.
func (w *WhisperLocal) ModelAvailable(model string) bool {
	_, err := os.Stat(w.modelPath(model))
	return err == nil
}

// BinaryAvailable reports whether the whisper.cpp binary is already on disk.
func (w *WhisperLocal) BinaryAvailable() bool {
	_, err := os.Stat(w.binaryPath())
	return err == nil
}

// DownloadModel fetches the ggml file for model, reporting fractional
// progress in [0,1] when onProgress is non-nil.
func (w *WhisperLocal) DownloadModel(ctx context.Context, model string, onProgress func(float64)) error {
	info, ok := WhisperModels[model]
	if !ok {
		return NewError("whisper-local", KindSetupFailed, "unknown model %q", model)
	}
	if err := os.MkdirAll(filepath.Join(w.dir, "models"), 0o755); err != nil {
		return WrapError("whisper-local", KindSetupFailed, fmt.Errorf("create models dir: %w", err))
	}
	if err := w.downloadFile(ctx, info.URL, w.modelPath(model), info.SizeBytes, onProgress); err != nil {
		return WrapError("whisper-local", KindSetupFailed, fmt.Errorf("download model %s: %w", model, err))
	}
	return nil
}

func whisperBinaryURL() string {
	switch runtime.GOOS {
	case "windows":
		return whisperReleaseBase + "whisper-bin-Win32.zip"
	case "darwin":
		if runtime.GOARCH == "arm64" {
			return whisperReleaseBase + "whisper-bin-macos-arm64.zip"
		}
		return whisperReleaseBase + "whisper-bin-macos-x64.zip"
	default:
		return whisperReleaseBase + "whisper-bin-linux-x64.zip"
	}
}

func (w *WhisperLocal) ensureBinary(ctx context.Context) error {
	if w.BinaryAvailable() {
		return nil
	}
	binDir := filepath.Join(w.dir, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return WrapError("whisper-local", KindSetupFailed, fmt.Errorf("create bin dir: %w", err))
	}

	zipPath := filepath.Join(w.dir, "whisper-bin.zip")
	if err := w.downloadFile(ctx, whisperBinaryURL(), zipPath, 0, nil); err != nil {
		return WrapError("whisper-local", KindSetupFailed, fmt.Errorf("download whisper binary: %w", err))
	}
	defer os.Remove(zipPath)

	if err := extractZip(zipPath, binDir); err != nil {
		return WrapError("whisper-local", KindSetupFailed, fmt.Errorf("extract whisper binary: %w", err))
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(w.binaryPath(), 0o755); err != nil {
			return WrapError("whisper-local", KindSetupFailed, fmt.Errorf("chmod whisper binary: %w", err))
		}
	}
	return nil
}

// downloadFile streams url into destPath. The partial file is removed on any
// failure so a retry never sees a truncated download.
func (w *WhisperLocal) downloadFile(ctx context.Context, url, destPath string, expectedSize int64, onProgress func(float64)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	total := resp.ContentLength
	if total <= 0 {
		total = expectedSize
	}

	file, err := os.Create(destPath)
	if err != nil {
		return err
	}

	var body io.Reader = resp.Body
	if onProgress != nil && total > 0 {
		body = &progressReader{r: resp.Body, total: total, report: onProgress}
	}
	if _, err := io.Copy(file, body); err != nil {
		file.Close()
		os.Remove(destPath)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(destPath)
		return err
	}
	return nil
}

type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	report func(float64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	p.report(float64(p.read) / float64(p.total))
	return n, err
}

func extractZip(zipPath, destDir string) error {
	archive, err := zip.OpenReader(zipPath)
	if err != nil {
		return err
	}
	defer archive.Close()

	for _, entry := range archive.File {
		target := filepath.Join(destDir, filepath.Base(entry.Name))
		if entry.FileInfo().IsDir() {
			continue
		}
		src, err := entry.Open()
		if err != nil {
			return err
		}
		dst, err := os.Create(target)
		if err != nil {
			src.Close()
			return err
		}
		_, err = io.Copy(dst, src)
		src.Close()
		dst.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// Transcribe runs the whisper.cpp CLI over audio. The buffer is written to a
// temp WAV that is always removed before returning.
func (w *WhisperLocal) Transcribe(ctx context.Context, audio []byte, model, language string) (TranscriptionResult, error) {
	if err := w.ensureBinary(ctx); err != nil {
		return TranscriptionResult{}, err
	}
	modelPath := w.modelPath(model)
	if !w.ModelAvailable(model) {
		return TranscriptionResult{}, NewError("whisper-local", KindSetupFailed,
			"model %s not downloaded", model)
	}

	tmp, err := os.CreateTemp(w.dir, "temp-*.wav")
	if err != nil {
		return TranscriptionResult{}, WrapError("whisper-local", KindSetupFailed, fmt.Errorf("create temp audio file: %w", err))
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if _, err := tmp.Write(audio); err != nil {
		tmp.Close()
		return TranscriptionResult{}, WrapError("whisper-local", KindSetupFailed, fmt.Errorf("write temp audio file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return TranscriptionResult{}, WrapError("whisper-local", KindSetupFailed, fmt.Errorf("close temp audio file: %w", err))
	}

	args := []string{
		"-m", modelPath,
		"-f", tmpPath,
		"-nt",
		"-np",
		"--no-fallback",
	}
	if language != "" && language != "auto" {
		args = append(args, "-l", language)
	}

	start := time.Now()
	out, err := w.run(ctx, w.binaryPath(), args...)
	if err != nil {
		return TranscriptionResult{}, WrapError("whisper-local", KindSetupFailed, fmt.Errorf("run whisper: %w", err))
	}

	return TranscriptionResult{
		Text:            strings.TrimSpace(string(out)),
		DurationSeconds: time.Since(start).Seconds(),
		Language:        language,
	}, nil
}
