package doctor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"murmur/internal/capture"
	"murmur/internal/config"
)

type fakeWhisper struct {
	binary bool
	models map[string]bool
}

func (f fakeWhisper) BinaryAvailable() bool            { return f.binary }
func (f fakeWhisper) ModelAvailable(model string) bool { return f.models[model] }

type fakeLister struct {
	models []string
	err    error
}

func (f fakeLister) ListModels(context.Context) ([]string, error) { return f.models, f.err }

func fakeDevices(devices []capture.Device, err error) func(context.Context) ([]capture.Device, error) {
	return func(context.Context) ([]capture.Device, error) { return devices, err }
}

func baseSettings() config.Settings {
	settings := config.Default()
	settings.Transcription.Provider = "groq"
	settings.Generation.Provider = "groq"
	settings.Generation.Mode = config.ModeClean
	settings.APIKeys = map[string]string{"groq": "gsk_test"}
	settings.Capture.Backend = "pulse"
	return settings
}

func checkByName(t *testing.T, report Report, name string) Check {
	t.Helper()
	for _, check := range report.Checks {
		if check.Name == name {
			return check
		}
	}
	t.Fatalf("no check named %q in %+v", name, report.Checks)
	return Check{}
}

func TestRunAllGreen(t *testing.T) {
	report := Run(context.Background(), baseSettings(), Probes{
		ListDevices: fakeDevices([]capture.Device{{ID: "mic"}}, nil),
	})

	require.True(t, report.OK())
	require.True(t, checkByName(t, report, "settings").Pass)
	require.True(t, checkByName(t, report, "transcription.key").Pass)
	require.True(t, checkByName(t, report, "generation.key").Pass)
	require.True(t, checkByName(t, report, "capture").Pass)
}

func TestRunInvalidSettings(t *testing.T) {
	settings := baseSettings()
	settings.Transcription.Provider = "nonsense"

	report := Run(context.Background(), settings, Probes{
		ListDevices: fakeDevices([]capture.Device{{ID: "mic"}}, nil),
	})

	require.False(t, report.OK())
	check := checkByName(t, report, "settings")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "transcription.provider")
}

func TestRunMissingKey(t *testing.T) {
	settings := baseSettings()
	settings.APIKeys = map[string]string{}

	report := Run(context.Background(), settings, Probes{
		ListDevices: fakeDevices([]capture.Device{{ID: "mic"}}, nil),
	})

	require.False(t, report.OK())
	check := checkByName(t, report, "transcription.key")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "groq")
}

func TestRunRawModeSkipsGenerationKey(t *testing.T) {
	settings := baseSettings()
	settings.Generation.Mode = config.ModeRaw
	settings.APIKeys = map[string]string{"groq": "gsk_test"}

	report := Run(context.Background(), settings, Probes{
		ListDevices: fakeDevices([]capture.Device{{ID: "mic"}}, nil),
	})

	for _, check := range report.Checks {
		require.NotEqual(t, "generation.key", check.Name)
	}
}

func TestRunWhisperLocalChecks(t *testing.T) {
	settings := baseSettings()
	settings.Transcription.Provider = "whisper-local"
	settings.Transcription.Model = "base"

	report := Run(context.Background(), settings, Probes{
		Whisper:     fakeWhisper{binary: true, models: map[string]bool{"base": false}},
		ListDevices: fakeDevices([]capture.Device{{ID: "mic"}}, nil),
	})

	require.True(t, checkByName(t, report, "transcription.key").Pass)
	require.True(t, checkByName(t, report, "whisper.binary").Pass)
	model := checkByName(t, report, "whisper.model")
	require.False(t, model.Pass)
	require.Contains(t, model.Message, `"base"`)
}

func TestRunOllamaChecks(t *testing.T) {
	settings := baseSettings()
	settings.Generation.Provider = "ollama"
	settings.Generation.Model = "llama3.2"

	report := Run(context.Background(), settings, Probes{
		Ollama:      fakeLister{models: []string{"llama3.2:latest", "qwen2.5:7b"}},
		ListDevices: fakeDevices([]capture.Device{{ID: "mic"}}, nil),
	})

	check := checkByName(t, report, "ollama")
	require.True(t, check.Pass)

	report = Run(context.Background(), settings, Probes{
		Ollama:      fakeLister{err: errors.New("connection refused")},
		ListDevices: fakeDevices([]capture.Device{{ID: "mic"}}, nil),
	})
	check = checkByName(t, report, "ollama")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "unreachable")

	report = Run(context.Background(), settings, Probes{
		Ollama:      fakeLister{models: []string{"qwen2.5:7b"}},
		ListDevices: fakeDevices([]capture.Device{{ID: "mic"}}, nil),
	})
	check = checkByName(t, report, "ollama")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "not pulled")
}

func TestRunCaptureChecks(t *testing.T) {
	settings := baseSettings()

	report := Run(context.Background(), settings, Probes{
		ListDevices: fakeDevices(nil, errors.New("pulse server unavailable")),
	})
	check := checkByName(t, report, "capture")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "device list failed")

	report = Run(context.Background(), settings, Probes{
		ListDevices: fakeDevices(nil, nil),
	})
	require.False(t, checkByName(t, report, "capture").Pass)

	settings.Capture.Backend = "portaudio"
	report = Run(context.Background(), settings, Probes{})
	require.True(t, checkByName(t, report, "capture").Pass)

	settings.Capture.Backend = "alsa"
	report = Run(context.Background(), settings, Probes{})
	check = checkByName(t, report, "capture")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "unknown capture backend")
}

func TestReportString(t *testing.T) {
	report := Report{Checks: []Check{
		{Name: "settings", Pass: true, Message: "valid"},
		{Name: "capture", Pass: false, Message: "no devices"},
	}}
	text := report.String()
	require.Contains(t, text, "[OK] settings: valid")
	require.Contains(t, text, "[FAIL] capture: no devices")
}
