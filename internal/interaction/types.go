// Package interaction defines the data carried through one question/answer cycle.
package interaction

import "time"

// AudioFormat describes the PCM layout of a recording.
type AudioFormat struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// CaptureFormat is the only recording format the backend accepts.
var CaptureFormat = AudioFormat{SampleRate: 16000, Channels: 1, BitDepth: 16}

// RecordingHandle identifies one completed microphone capture staged on disk.
type RecordingHandle struct {
	Path      string
	Format    AudioFormat
	Device    string
	Bytes     int64
	StartedAt time.Time
	StoppedAt time.Time
}

// Duration reports how long the microphone was open.
func (h RecordingHandle) Duration() time.Duration {
	if h.StoppedAt.Before(h.StartedAt) {
		return 0
	}
	return h.StoppedAt.Sub(h.StartedAt)
}

// CapturedFrame is one still image plus its upload encoding.
// Width and Height describe Raw; Encoded is empty until the frame is prepared.
type CapturedFrame struct {
	Raw        []byte
	RawFormat  string
	Encoded    []byte
	Width      int
	Height     int
	CapturedAt time.Time
}

// Request is the outbound unit sent to the backend.
type Request struct {
	ID                string
	Audio             []byte
	AudioFilename     string
	Image             []byte
	ImageFilename     string
	MaxSearchDuration *int
}

// Intent is the backend's classification of the spoken question.
type Intent string

const (
	IntentDescribe Intent = "describe"
	IntentFind     Intent = "find"
	IntentGeneral  Intent = "general"
)

// Action is what the backend did with the request.
type Action string

const (
	ActionSceneDescription      Action = "scene_description"
	ActionObjectSearch          Action = "object_search"
	ActionObjectFoundNavigation Action = "object_found_navigation"
	ActionObjectNotFound        Action = "object_not_found"
	ActionGeneralQuery          Action = "general_query"
)

// Response is the typed decoded result of POST /process.
type Response struct {
	Intent         Intent          `json:"intent"`
	Transcript     string          `json:"transcript"`
	TargetObject   *string         `json:"target_object"`
	ActionTaken    Action          `json:"action_taken"`
	ResponseText   string          `json:"response_text"`
	AudioOutput    string          `json:"audio_output"`
	AudioBase64    string          `json:"audio_base64,omitempty"`
	AudioFormat    string          `json:"audio_format,omitempty"`
	AdditionalData *AdditionalData `json:"additional_data,omitempty"`
}

// Target returns the resolved object name, or "" when the backend sent none.
func (r Response) Target() string {
	if r.TargetObject == nil {
		return ""
	}
	return *r.TargetObject
}

// HasInlineAudio reports whether the inline payload takes precedence.
func (r Response) HasInlineAudio() bool {
	return r.AudioBase64 != ""
}

// AdditionalData carries the optional structured payload of find requests.
type AdditionalData struct {
	ObjectFound       *bool              `json:"object_found,omitempty"`
	NavigationMetrics *NavigationMetrics `json:"navigation_metrics,omitempty"`
	Positions         *Positions         `json:"positions,omitempty"`
}

// NavigationMetrics describes how to reach a found object.
type NavigationMetrics struct {
	Distance           float64 `json:"distance"`
	Direction          string  `json:"direction"`
	RelativeAngle      float64 `json:"relative_angle"`
	HorizontalDistance float64 `json:"horizontal_distance,omitempty"`
	VerticalDistance   float64 `json:"vertical_distance,omitempty"`
	HeightDiff         float64 `json:"height_diff,omitempty"`
}

// Vec3 is a point in the backend's reconstruction frame.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Orientation is camera yaw/pitch in degrees.
type Orientation struct {
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
}

// Positions is the 3D pose data behind navigation metrics.
type Positions struct {
	TargetPosition    Vec3        `json:"target_position"`
	CameraPosition    Vec3        `json:"camera_position"`
	CameraOrientation Orientation `json:"camera_orientation"`
}
