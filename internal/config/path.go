package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// PathEnv points at a config file when no --config flag is given.
const PathEnv = "SECONDEYE_CONFIG"

// ResolvePath picks the config file: the explicit flag, then $SECONDEYE_CONFIG,
// then $XDG_CONFIG_HOME/secondeye/config.jsonc, then ~/.config/secondeye/config.jsonc.
// A leading "~/" in an explicit or env path is expanded.
func ResolvePath(explicit string) (string, error) {
	for _, candidate := range []string{explicit, os.Getenv(PathEnv)} {
		if candidate = strings.TrimSpace(candidate); candidate != "" {
			return expandHome(candidate)
		}
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "secondeye", "config.jsonc"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for config fallback")
	}
	return filepath.Join(home, ".config", "secondeye", "config.jsonc"), nil
}

func expandHome(path string) (string, error) {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for ~ in config path")
	}
	return filepath.Join(home, rest), nil
}
