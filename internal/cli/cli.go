// Package cli parses the secondeye command line.
package cli

import (
	"fmt"
	"strings"
)

// Command names one top-level subcommand.
type Command string

const (
	CommandRun     Command = "run"
	CommandTrigger Command = "trigger"
	CommandCancel  Command = "cancel"
	CommandStatus  Command = "status"
	CommandDevices Command = "devices"
	CommandDoctor  Command = "doctor"
	CommandHealth  Command = "health"
	CommandVersion Command = "version"
	CommandHelp    Command = "help"
)

// commands lists every subcommand in help order.
var commands = []struct {
	name    Command
	summary string
}{
	{CommandRun, "Start the assistant daemon (button, camera, microphone, playback)"},
	{CommandTrigger, "Start recording, or stop and ask when already recording"},
	{CommandCancel, "Discard an active recording or stop answer playback"},
	{CommandStatus, "Print the daemon state"},
	{CommandDevices, "List available input devices"},
	{CommandDoctor, "Run configuration, device, and backend checks"},
	{CommandHealth, "Check the backend health endpoint"},
	{CommandVersion, "Print version information"},
	{CommandHelp, "Show this help"},
}

func lookup(name string) (Command, bool) {
	for _, c := range commands {
		if string(c.name) == name {
			return c.name, true
		}
	}
	return "", false
}

// Parsed is the result of one argv parse.
type Parsed struct {
	Command    Command
	ConfigPath string
	ShowHelp   bool
}

// Parse reads `[flags] <command> [flags]`. Flags may appear on either side of
// the command; -h or --help anywhere wins. No command means help.
func Parse(args []string) (Parsed, error) {
	var (
		command  Command
		help     bool
		explicit bool
		parsed   Parsed
	)

	for i := 0; i < len(args); i++ {
		arg := args[i]
		flag, value, hasValue := strings.Cut(arg, "=")

		switch {
		case arg == "-h" || arg == "--help":
			help = true
		case arg == "--version":
			if err := setCommand(&command, &explicit, CommandVersion, arg); err != nil {
				return Parsed{}, err
			}
		case flag == "--config" || flag == "-c":
			if !hasValue {
				i++
				if i < len(args) {
					value = args[i]
				}
			}
			if strings.TrimSpace(value) == "" {
				return Parsed{}, fmt.Errorf("%s requires a path", flag)
			}
			parsed.ConfigPath = value
		case strings.HasPrefix(arg, "-") && arg != "-":
			return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
		default:
			cmd, ok := lookup(arg)
			if !ok {
				if explicit {
					return Parsed{}, fmt.Errorf("unexpected argument %q after command %q", arg, command)
				}
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}
			if err := setCommand(&command, &explicit, cmd, arg); err != nil {
				return Parsed{}, err
			}
		}
	}

	switch {
	case help || command == "" || command == CommandHelp:
		parsed.Command, parsed.ShowHelp = CommandHelp, true
	default:
		parsed.Command = command
	}
	return parsed, nil
}

func setCommand(current *Command, explicit *bool, next Command, arg string) error {
	if *explicit {
		return fmt.Errorf("unexpected argument %q after command %q", arg, *current)
	}
	*current, *explicit = next, true
	return nil
}

// HelpText renders usage for binaryName.
func HelpText(binaryName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Usage:\n  %s [--config PATH] <command>\n\nCommands:\n", binaryName)
	for _, c := range commands {
		fmt.Fprintf(&b, "  %-9s %s\n", c.name, c.summary)
	}
	b.WriteString(`
Flags:
  -c, --config PATH   Config file path (default: $SECONDEYE_CONFIG, then $XDG_CONFIG_HOME/secondeye/config.jsonc)
  -h, --help          Show help
  --version           Show version

Environment:
  SECONDEYE_CONFIG      Config file path when --config is not given
  SECONDEYE_SOCKET      Control socket path (default: $XDG_RUNTIME_DIR/secondeye.sock)
  SECONDEYE_LOG_LEVEL   debug, info, warn, or error (default: info)
`)
	return b.String()
}
