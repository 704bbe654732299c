package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
)

// Loaded is the runtime configuration plus where each part came from.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
	// Defaulted names the sections taken wholly from Default.
	Defaulted []string
}

// Load resolves the config path, then reads, parses, and validates the file.
// A missing file is not an error: every section falls back to its default.
func Load(explicitPath string) (Loaded, error) {
	path, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	loaded := Loaded{Path: path, Config: Default(), Defaulted: Sections()}
	content, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		loaded.Warnings = []Warning{{Message: fmt.Sprintf(
			"config file %q not found; using defaults (backend %s)", path, loaded.Config.Backend.BaseURL,
		)}}
		return loaded, nil
	case err != nil:
		return Loaded{}, fmt.Errorf("read config %q: %w", path, err)
	}

	doc, err := parseDocument(string(content), loaded.Config)
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", path, err)
	}
	loaded.Config = doc.cfg
	loaded.Warnings = doc.warnings
	loaded.Defaulted = doc.defaulted
	loaded.Exists = true

	if slices.Contains(loaded.Defaulted, "backend") {
		loaded.Warnings = append(loaded.Warnings, Warning{Message: fmt.Sprintf(
			"no backend section; questions go to %s", loaded.Config.Backend.BaseURL,
		)})
	}
	return loaded, nil
}
