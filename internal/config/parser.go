package config

import (
	"errors"
	"strings"
)

// Sections lists the top-level config sections in file order.
func Sections() []string {
	return []string{"backend", "audio", "camera", "image", "button", "indicator", "metrics", "debug"}
}

// document is one parsed config file.
type document struct {
	cfg      Config
	warnings []Warning
	// defaulted names the sections the file left out entirely.
	defaulted []string
}

// Parse reads JSONC configuration content on top of base. Content holding
// nothing but whitespace and comments validates and returns base unchanged.
func Parse(content string, base Config) (Config, []Warning, error) {
	doc, err := parseDocument(content, base)
	if err != nil {
		return Config{}, nil, err
	}
	return doc.cfg, doc.warnings, nil
}

func parseDocument(content string, base Config) (document, error) {
	normalized, err := stripJSONC(content)
	if err != nil {
		return document{}, err
	}

	var payload jsoncConfig
	switch trimmed := strings.TrimSpace(normalized); {
	case trimmed == "":
	case !strings.HasPrefix(trimmed, "{"):
		return document{}, errors.New("config must be a JSONC object")
	default:
		if err := decodeStrict(normalized, &payload); err != nil {
			return document{}, err
		}
	}

	cfg := base
	warnings, err := payload.applyTo(&cfg)
	if err != nil {
		return document{}, err
	}
	validated, err := Validate(cfg)
	if err != nil {
		return document{}, err
	}
	return document{
		cfg:       cfg,
		warnings:  append(warnings, validated...),
		defaulted: payload.missing(),
	}, nil
}
