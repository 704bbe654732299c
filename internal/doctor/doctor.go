// Package doctor runs runtime readiness diagnostics for config, tools, devices, and the backend.
package doctor

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/secondeye/secondeye/internal/audio"
	"github.com/secondeye/secondeye/internal/backend"
	"github.com/secondeye/secondeye/internal/button"
	"github.com/secondeye/secondeye/internal/config"
	"github.com/secondeye/secondeye/internal/ipc"
	"github.com/secondeye/secondeye/internal/version"
)

const checkTimeout = 2 * time.Second

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

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded) Report {
	checks := []Check{checkConfig(cfg)}

	checks = append(checks, checkControlSocket(ctx))
	checks = append(checks, checkCommand(cfg.Config.Camera.CaptureCmd.Argv, "camera.capture_cmd"))
	if cfg.Config.Indicator.Enable {
		checks = append(checks, checkBinary("busctl", "desktop notifications require busctl"))
	}

	checks = append(checks, checkAudioSelection(ctx, cfg.Config))
	if cfg.Config.Button.Enable {
		checks = append(checks, checkButtonSink(ctx, cfg.Config))
	}
	checks = append(checks, checkBackendHealth(ctx, cfg.Config))

	return Report{Checks: checks}
}

func checkConfig(cfg config.Loaded) Check {
	if !cfg.Exists {
		return Check{Name: "config", Pass: true, Message: fmt.Sprintf("%q not found; using defaults", cfg.Path)}
	}

	notes := make([]string, 0, 2)
	if len(cfg.Defaulted) > 0 {
		notes = append(notes, "defaults for "+strings.Join(cfg.Defaulted, ", "))
	}
	if n := len(cfg.Warnings); n > 0 {
		notes = append(notes, fmt.Sprintf("%d warning(s)", n))
	}
	message := fmt.Sprintf("loaded %q", cfg.Path)
	if len(notes) > 0 {
		message += " (" + strings.Join(notes, "; ") + ")"
	}
	return Check{Name: "config", Pass: true, Message: message}
}

// checkControlSocket resolves the socket path and reports whether a daemon
// already owns it. A wedged owner fails; a free path passes.
func checkControlSocket(ctx context.Context) Check {
	path, err := ipc.RuntimeSocketPath()
	if err != nil {
		return Check{Name: "control.socket", Pass: false, Message: err.Error()}
	}

	alive, err := ipc.Alive(ctx, path, checkTimeout)
	switch {
	case err != nil:
		return Check{Name: "control.socket", Pass: false, Message: fmt.Sprintf("%s does not answer: %v", path, err)}
	case alive:
		return Check{Name: "control.socket", Pass: true, Message: fmt.Sprintf("daemon answering at %s", path)}
	default:
		return Check{Name: "control.socket", Pass: true, Message: fmt.Sprintf("%s is free; no daemon running", path)}
	}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkButtonSink reads the sink volume the button watcher will follow.
func checkButtonSink(ctx context.Context, cfg config.Config) Check {
	source, err := button.NewPulseSource(cfg.Button.Sink)
	if err != nil {
		return Check{Name: "button.sink", Pass: false, Message: err.Error()}
	}
	defer source.Close()

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	level, err := source.Level(ctx)
	if err != nil {
		return Check{Name: "button.sink", Pass: false, Message: err.Error()}
	}
	return Check{Name: "button.sink", Pass: true, Message: fmt.Sprintf("volume %.0f%% on %q", level*100, cfg.Button.Sink)}
}

// checkBackendHealth calls the backend health endpoint.
func checkBackendHealth(ctx context.Context, cfg config.Config) Check {
	base := strings.TrimSpace(cfg.Backend.BaseURL)
	if base == "" {
		return Check{Name: "backend.health", Pass: false, Message: "backend.base_url is empty"}
	}

	client := backend.New(base,
		backend.WithTimeout(checkTimeout),
		backend.WithUserAgent(version.UserAgent()),
	)
	health, err := client.Health(ctx)
	if err != nil {
		return Check{Name: "backend.health", Pass: false, Message: err.Error()}
	}
	if !health.OK() {
		return Check{Name: "backend.health", Pass: false, Message: fmt.Sprintf("status %q from %s", health.Status, client.BaseURL())}
	}

	message := fmt.Sprintf("ready at %s", client.BaseURL())
	if health.Version != "" {
		message += " (version " + health.Version + ")"
	}
	return Check{Name: "backend.health", Pass: true, Message: message}
}
