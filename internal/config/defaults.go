package config

import "strings"

// DefaultCaptureArgv writes one JPEG frame from the first V4L2 camera to stdout.
var DefaultCaptureArgv = []string{"fswebcam", "--quiet", "--no-banner", "--jpeg", "90", "-"}

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Backend: BackendConfig{
			BaseURL:   "http://127.0.0.1:8000",
			TimeoutMS: 30000,
		},
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
		Camera: CameraConfig{
			CaptureCmd: CommandConfig{
				Raw:  strings.Join(DefaultCaptureArgv, " "),
				Argv: append([]string(nil), DefaultCaptureArgv...),
			},
			TimeoutMS:  5000,
		},
		Image: ImageConfig{
			MaxEdge: 1024,
			Quality: 60,
		},
		Button: ButtonConfig{
			Enable:    true,
			Sink:      "default",
			Threshold: 0.02,
			WindowMS:  800,
			PollMS:    50,
		},
		Indicator: IndicatorConfig{
			Enable:         true,
			SoundEnable:    true,
			DesktopAppName: "secondeye",
			ErrorTimeoutMS: 4000,
		},
		Metrics: MetricsConfig{},
		Debug:   DebugConfig{},
	}
}
