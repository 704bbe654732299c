package config

import (
	"fmt"
	"strings"
)

// jsoncConfig mirrors the file layout. Nil fields keep their base value.
type jsoncConfig struct {
	Backend   *jsoncBackend   `json:"backend"`
	Audio     *jsoncAudio     `json:"audio"`
	Camera    *jsoncCamera    `json:"camera"`
	Image     *jsoncImage     `json:"image"`
	Button    *jsoncButton    `json:"button"`
	Indicator *jsoncIndicator `json:"indicator"`
	Metrics   *jsoncMetrics   `json:"metrics"`
	Debug     *jsoncDebug     `json:"debug"`
}

type jsoncBackend struct {
	BaseURL           *string `json:"base_url"`
	TimeoutMS         *int    `json:"timeout_ms"`
	MaxSearchDuration *int    `json:"max_search_duration"`
}

type jsoncAudio struct {
	Input    *string `json:"input"`
	Fallback *string `json:"fallback"`
}

type jsoncCamera struct {
	CaptureCmd *jsoncCommand `json:"capture_cmd"`
	TimeoutMS  *int          `json:"timeout_ms"`
}

type jsoncImage struct {
	MaxEdge *int `json:"max_edge"`
	Quality *int `json:"quality"`
}

type jsoncButton struct {
	Enable    *bool    `json:"enable"`
	Sink      *string  `json:"sink"`
	Threshold *float64 `json:"threshold"`
	WindowMS  *int     `json:"window_ms"`
	PollMS    *int     `json:"poll_ms"`
}

type jsoncIndicator struct {
	Enable         *bool   `json:"enable"`
	SoundEnable    *bool   `json:"sound_enable"`
	DesktopAppName *string `json:"desktop_app_name"`
	ErrorTimeoutMS *int    `json:"error_timeout_ms"`
}

type jsoncMetrics struct {
	Addr *string `json:"addr"`
}

type jsoncDebug struct {
	AudioDump  *bool `json:"audio_dump"`
	KeepFrames *bool `json:"keep_frames"`
}

// missing names the sections absent from the file.
func (payload jsoncConfig) missing() []string {
	present := map[string]bool{
		"backend":   payload.Backend != nil,
		"audio":     payload.Audio != nil,
		"camera":    payload.Camera != nil,
		"image":     payload.Image != nil,
		"button":    payload.Button != nil,
		"indicator": payload.Indicator != nil,
		"metrics":   payload.Metrics != nil,
		"debug":     payload.Debug != nil,
	}
	var names []string
	for _, name := range Sections() {
		if !present[name] {
			names = append(names, name)
		}
	}
	return names
}

func (payload jsoncConfig) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if payload.Backend != nil {
		if payload.Backend.BaseURL != nil {
			cfg.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(*payload.Backend.BaseURL), "/")
		}
		if payload.Backend.TimeoutMS != nil {
			cfg.Backend.TimeoutMS = *payload.Backend.TimeoutMS
		}
		if payload.Backend.MaxSearchDuration != nil {
			cfg.Backend.MaxSearchDuration = *payload.Backend.MaxSearchDuration
		}
	}

	if payload.Audio != nil {
		if payload.Audio.Input != nil {
			cfg.Audio.Input = *payload.Audio.Input
		}
		if payload.Audio.Fallback != nil {
			cfg.Audio.Fallback = *payload.Audio.Fallback
		}
	}

	if payload.Camera != nil {
		if payload.Camera.CaptureCmd != nil {
			command, err := payload.Camera.CaptureCmd.config()
			if err != nil {
				return nil, fmt.Errorf("invalid camera.capture_cmd: %w", err)
			}
			cfg.Camera.CaptureCmd = command
		}
		if payload.Camera.TimeoutMS != nil {
			cfg.Camera.TimeoutMS = *payload.Camera.TimeoutMS
		}
	}

	if payload.Image != nil {
		if payload.Image.MaxEdge != nil {
			cfg.Image.MaxEdge = *payload.Image.MaxEdge
		}
		if payload.Image.Quality != nil {
			cfg.Image.Quality = *payload.Image.Quality
		}
	}

	if payload.Button != nil {
		if payload.Button.Enable != nil {
			cfg.Button.Enable = *payload.Button.Enable
		}
		if payload.Button.Sink != nil {
			cfg.Button.Sink = strings.TrimSpace(*payload.Button.Sink)
		}
		if payload.Button.Threshold != nil {
			cfg.Button.Threshold = *payload.Button.Threshold
		}
		if payload.Button.WindowMS != nil {
			cfg.Button.WindowMS = *payload.Button.WindowMS
		}
		if payload.Button.PollMS != nil {
			cfg.Button.PollMS = *payload.Button.PollMS
		}
	}

	if payload.Indicator != nil {
		if payload.Indicator.Enable != nil {
			cfg.Indicator.Enable = *payload.Indicator.Enable
		}
		if payload.Indicator.SoundEnable != nil {
			cfg.Indicator.SoundEnable = *payload.Indicator.SoundEnable
		}
		if payload.Indicator.DesktopAppName != nil {
			cfg.Indicator.DesktopAppName = strings.TrimSpace(*payload.Indicator.DesktopAppName)
		}
		if payload.Indicator.ErrorTimeoutMS != nil {
			cfg.Indicator.ErrorTimeoutMS = *payload.Indicator.ErrorTimeoutMS
		}
	}

	if payload.Metrics != nil && payload.Metrics.Addr != nil {
		cfg.Metrics.Addr = strings.TrimSpace(*payload.Metrics.Addr)
	}

	if payload.Debug != nil {
		if payload.Debug.AudioDump != nil {
			cfg.Debug.AudioDump = *payload.Debug.AudioDump
			if cfg.Debug.AudioDump {
				warnings = append(warnings, Warning{Message: "debug.audio_dump keeps every recorded question on disk"})
			}
		}
		if payload.Debug.KeepFrames != nil {
			cfg.Debug.KeepFrames = *payload.Debug.KeepFrames
		}
	}

	return warnings, nil
}
