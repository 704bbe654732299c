// Package app dispatches CLI commands to the daemon, its control socket, and diagnostics.
package app

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/secondeye/secondeye/internal/audio"
	"github.com/secondeye/secondeye/internal/backend"
	"github.com/secondeye/secondeye/internal/cli"
	"github.com/secondeye/secondeye/internal/config"
	"github.com/secondeye/secondeye/internal/doctor"
	"github.com/secondeye/secondeye/internal/ipc"
	"github.com/secondeye/secondeye/internal/logging"
	"github.com/secondeye/secondeye/internal/version"
)

const (
	binaryName = "secondeye"
	// triggerTimeout covers microphone start, which opens a Pulse stream.
	triggerTimeout = 3 * time.Second
	statusTimeout  = 500 * time.Millisecond
	healthTimeout  = 5 * time.Second
)

// Runner executes one CLI invocation.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

// Execute runs args and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

// Execute parses args, loads config, and dispatches the command.
func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText(binaryName))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText(binaryName))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	r.reportWarnings(logger, cfgLoaded)

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandRun:
		return r.commandRun(ctx, cfgLoaded.Config, logger)
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandHealth:
		return r.commandHealth(ctx, cfgLoaded.Config)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandTrigger:
		return r.forward(ctx, ipc.CommandTrigger, triggerTimeout)
	case cli.CommandCancel:
		return r.forward(ctx, ipc.CommandCancel, statusTimeout)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

// reportWarnings prints config warnings to stderr and the log.
func (r Runner) reportWarnings(logger *slog.Logger, loaded config.Loaded) {
	for _, w := range loaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "path", loaded.Path, "line", w.Line, "message", w.Message)
	}
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}
	if err := writeDevices(r.Stdout, devices); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// writeDevices prints one row per source; the default source is starred.
func writeDevices(w io.Writer, devices []audio.Device) error {
	yesNo := func(v bool) string {
		if v {
			return "yes"
		}
		return "no"
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tSTATE\tAVAILABLE\tMUTED\tDESCRIPTION")
	for _, d := range devices {
		mark := ""
		if d.Default {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", mark, d.ID, d.State, yesNo(d.Available), yesNo(d.Muted), d.Description)
	}
	return tw.Flush()
}

func (r Runner) commandHealth(ctx context.Context, cfg config.Config) int {
	client := backend.New(cfg.Backend.BaseURL,
		backend.WithTimeout(healthTimeout),
		backend.WithUserAgent(version.UserAgent()),
	)
	health, err := client.Health(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	line := fmt.Sprintf("%s %s", client.BaseURL(), health.Status)
	if health.Version != "" {
		line += " (version " + health.Version + ")"
	}
	fmt.Fprintln(r.Stdout, line)
	if !health.OK() {
		return 1
	}
	return 0
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, ok := r.socketPath()
	if !ok {
		return 1
	}

	resp, err := ipc.Call(ctx, socketPath, ipc.CommandStatus, statusTimeout)
	if errors.Is(err, ipc.ErrNotRunning) {
		fmt.Fprintln(r.Stdout, "not running")
		return 3
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprintln(r.Stdout, statusLine(resp))
	return 0
}

// statusLine renders a status reply as "<state> [<interaction id>] (<note>)".
func statusLine(resp ipc.Response) string {
	line := cmp.Or(resp.State, "idle")
	if resp.InteractionID != "" {
		line += " [" + resp.InteractionID + "]"
	}
	if resp.Message != "" && resp.Message != ipc.CommandStatus {
		line += " (" + resp.Message + ")"
	}
	return line
}

func (r Runner) forward(ctx context.Context, command string, timeout time.Duration) int {
	socketPath, ok := r.socketPath()
	if !ok {
		return 1
	}

	resp, err := ipc.Call(ctx, socketPath, command, timeout)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

func (r Runner) socketPath() (string, bool) {
	path, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return "", false
	}
	return path, true
}
