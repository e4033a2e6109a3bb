// Package doctor runs readiness diagnostics for settings, provider keys,
// local speech tooling, and audio capture.
package doctor

import (
	"context"
	"fmt"
	"strings"

	"murmur/internal/capture"
	"murmur/internal/config"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// WhisperInstall reports the local whisper install state.
type WhisperInstall interface {
	BinaryAvailable() bool
	ModelAvailable(model string) bool
}

// ModelLister probes a local model server.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// Probes bundles the live collaborators the diagnostics exercise. Nil fields
// skip their checks with a failure message.
type Probes struct {
	Whisper     WhisperInstall
	Ollama      ModelLister
	ListDevices func(ctx context.Context) ([]capture.Device, error)
}

// Run executes settings/provider/capture checks against one snapshot.
func Run(ctx context.Context, settings config.Settings, probes Probes) Report {
	checks := []Check{checkSettings(settings)}

	checks = append(checks, checkKey(settings, "transcription", settings.Transcription.Provider))
	if settings.Generation.Mode != config.ModeRaw {
		checks = append(checks, checkKey(settings, "generation", settings.Generation.Provider))
	}

	if settings.Transcription.Provider == "whisper-local" {
		checks = append(checks, checkWhisper(probes.Whisper, settings.Transcription.Model)...)
	}
	if settings.Generation.Provider == "ollama" && settings.Generation.Mode != config.ModeRaw {
		checks = append(checks, checkOllama(ctx, probes.Ollama, settings.Generation.Model))
	}

	checks = append(checks, checkCapture(ctx, settings.Capture, probes.ListDevices))

	return Report{Checks: checks}
}

// checkSettings validates the snapshot and folds warnings into the message.
func checkSettings(settings config.Settings) Check {
	warnings, err := config.Validate(settings)
	if err != nil {
		return Check{Name: "settings", Pass: false, Message: err.Error()}
	}
	if len(warnings) > 0 {
		messages := make([]string, 0, len(warnings))
		for _, w := range warnings {
			messages = append(messages, w.Message)
		}
		return Check{Name: "settings", Pass: true, Message: "valid (" + strings.Join(messages, "; ") + ")"}
	}
	return Check{Name: "settings", Pass: true, Message: "valid"}
}

// checkKey verifies key presence for a provider that needs one.
func checkKey(settings config.Settings, role, providerID string) Check {
	name := role + ".key"
	if !config.RequiresKey(providerID) {
		return Check{Name: name, Pass: true, Message: fmt.Sprintf("%s runs locally, no key needed", providerID)}
	}
	if settings.HasUsableKey(providerID) {
		return Check{Name: name, Pass: true, Message: fmt.Sprintf("key present for %s", providerID)}
	}
	return Check{Name: name, Pass: false, Message: fmt.Sprintf("no API key configured for %s", providerID)}
}

// checkWhisper verifies the local whisper binary and model files.
func checkWhisper(install WhisperInstall, model string) []Check {
	if install == nil {
		return []Check{{Name: "whisper.install", Pass: false, Message: "whisper probe unavailable"}}
	}

	checks := make([]Check, 0, 2)
	if install.BinaryAvailable() {
		checks = append(checks, Check{Name: "whisper.binary", Pass: true, Message: "whisper binary installed"})
	} else {
		checks = append(checks, Check{Name: "whisper.binary", Pass: false, Message: "whisper binary missing (downloaded on first use)"})
	}
	if install.ModelAvailable(model) {
		checks = append(checks, Check{Name: "whisper.model", Pass: true, Message: fmt.Sprintf("model %q downloaded", model)})
	} else {
		checks = append(checks, Check{Name: "whisper.model", Pass: false, Message: fmt.Sprintf("model %q not downloaded", model)})
	}
	return checks
}

// checkOllama probes the local server and confirms the configured model.
func checkOllama(ctx context.Context, lister ModelLister, model string) Check {
	if lister == nil {
		return Check{Name: "ollama", Pass: false, Message: "ollama probe unavailable"}
	}

	models, err := lister.ListModels(ctx)
	if err != nil {
		return Check{Name: "ollama", Pass: false, Message: fmt.Sprintf("server unreachable: %v", err)}
	}
	for _, m := range models {
		if m == model || strings.SplitN(m, ":", 2)[0] == model {
			return Check{Name: "ollama", Pass: true, Message: fmt.Sprintf("model %q available", model)}
		}
	}
	return Check{Name: "ollama", Pass: false, Message: fmt.Sprintf("model %q not pulled (%d models available)", model, len(models))}
}

// checkCapture verifies the configured capture backend can see a device.
func checkCapture(ctx context.Context, cfg config.CaptureConfig, listDevices func(ctx context.Context) ([]capture.Device, error)) Check {
	switch cfg.Backend {
	case "pulse":
		if listDevices == nil {
			listDevices = capture.ListDevices
		}
		devices, err := listDevices(ctx)
		if err != nil {
			return Check{Name: "capture", Pass: false, Message: fmt.Sprintf("pulse device list failed: %v", err)}
		}
		if len(devices) == 0 {
			return Check{Name: "capture", Pass: false, Message: "no pulse input devices found"}
		}
		return Check{Name: "capture", Pass: true, Message: fmt.Sprintf("%d pulse input devices", len(devices))}
	case "portaudio":
		return Check{Name: "capture", Pass: true, Message: "portaudio backend selected (probed at record time)"}
	default:
		return Check{Name: "capture", Pass: false, Message: fmt.Sprintf("unknown capture backend %q", cfg.Backend)}
	}
}
