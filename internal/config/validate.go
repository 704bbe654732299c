package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	base := strings.TrimSpace(cfg.Backend.BaseURL)
	if base == "" {
		return nil, fmt.Errorf("backend.base_url must not be empty")
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("backend.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("backend.base_url must use http or https")
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("backend.base_url must include a host")
	}
	if parsed.Scheme == "http" && !isLoopback(parsed.Hostname()) {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("backend.base_url %q sends audio and images over plain http", base)})
	}
	if cfg.Backend.TimeoutMS <= 0 {
		return nil, fmt.Errorf("backend.timeout_ms must be > 0")
	}
	if cfg.Backend.MaxSearchDuration < 0 {
		return nil, fmt.Errorf("backend.max_search_duration must be >= 0")
	}

	if len(cfg.Camera.CaptureCmd.Argv) == 0 {
		return nil, fmt.Errorf("camera.capture_cmd must not be empty")
	}
	if cfg.Camera.TimeoutMS <= 0 {
		return nil, fmt.Errorf("camera.timeout_ms must be > 0")
	}

	if cfg.Image.MaxEdge <= 0 {
		return nil, fmt.Errorf("image.max_edge must be > 0")
	}
	if cfg.Image.Quality < 1 || cfg.Image.Quality > 100 {
		return nil, fmt.Errorf("image.quality must be between 1 and 100")
	}
	if base := Default().Image; cfg.Image != base {
		warnings = append(warnings, Warning{Message: fmt.Sprintf(
			"image.max_edge=%d image.quality=%d differ from the %d px / quality %d frames the backend is tuned for",
			cfg.Image.MaxEdge, cfg.Image.Quality, base.MaxEdge, base.Quality,
		)})
	}

	if cfg.Button.Threshold <= 0 || cfg.Button.Threshold > 1 {
		return nil, fmt.Errorf("button.threshold must be in (0, 1]")
	}
	if cfg.Button.WindowMS < 0 {
		return nil, fmt.Errorf("button.window_ms must be >= 0")
	}
	if cfg.Button.PollMS <= 0 {
		return nil, fmt.Errorf("button.poll_ms must be > 0")
	}
	if cfg.Button.Enable && cfg.Button.WindowMS < cfg.Button.PollMS {
		warnings = append(warnings, Warning{Message: "button.window_ms is shorter than button.poll_ms; every level change counts as a press"})
	}

	if cfg.Indicator.Enable && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.enable=true")
	}
	if cfg.Indicator.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.error_timeout_ms must be >= 0")
	}

	if addr := strings.TrimSpace(cfg.Metrics.Addr); addr != "" {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return nil, fmt.Errorf("metrics.addr: %w", err)
		}
	}

	return warnings, nil
}

func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
