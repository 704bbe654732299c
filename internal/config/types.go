// Package config resolves, parses, validates, and defaults secondeye configuration.
package config

// Config is the fully materialized runtime configuration used by secondeye.
type Config struct {
	Backend   BackendConfig
	Audio     AudioConfig
	Camera    CameraConfig
	Image     ImageConfig
	Button    ButtonConfig
	Indicator IndicatorConfig
	Metrics   MetricsConfig
	Debug     DebugConfig
}

// BackendConfig locates the question-answering service.
type BackendConfig struct {
	BaseURL   string
	TimeoutMS int
	// MaxSearchDuration is forwarded with every request when > 0.
	MaxSearchDuration int
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string
	Fallback string
}

// CameraConfig controls the external still-capture command.
type CameraConfig struct {
	CaptureCmd CommandConfig
	TimeoutMS  int
}

// ImageConfig controls the upload resize and re-encode policy.
type ImageConfig struct {
	MaxEdge int
	Quality int
}

// ButtonConfig controls the volume-key trigger.
type ButtonConfig struct {
	Enable    bool
	Sink      string
	Threshold float64
	WindowMS  int
	PollMS    int
}

// IndicatorConfig controls desktop notification and audio cue behavior.
type IndicatorConfig struct {
	Enable         bool
	SoundEnable    bool
	DesktopAppName string
	ErrorTimeoutMS int
}

// MetricsConfig controls the optional Prometheus listener.
type MetricsConfig struct {
	// Addr is a host:port; empty disables the exporter.
	Addr string
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	AudioDump  bool
	KeepFrames bool
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
