package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStripJSONCBlanksCommentsAndTrailingCommas(t *testing.T) {
	input := "{\n  // bench unit\n  \"camera\": {\"capture_cmd\": [\"fswebcam\", /* stdout */ \"-\",],},\n}\n"

	stripped, err := stripJSONC(input)
	require.NoError(t, err)
	require.Len(t, stripped, len(input))
	require.NotContains(t, stripped, "//")
	require.NotContains(t, stripped, "/*")
	require.Equal(t, "{\n"+
		strings.Repeat(" ", 15)+"\n"+
		"  \"camera\": {\"capture_cmd\": [\"fswebcam\","+strings.Repeat(" ", 14)+"\"-\" ] } \n"+
		"}\n", stripped)
}

func TestStripJSONCLeavesStringsAlone(t *testing.T) {
	input := `{"base_url":"http://cam.local/a//b", "note":"/* not, a comment */",}`
	stripped, err := stripJSONC(input)
	require.NoError(t, err)
	require.Contains(t, stripped, `"http://cam.local/a//b"`)
	require.Contains(t, stripped, `"/* not, a comment */" }`)
}

func TestStripJSONCUnterminatedBlockCommentFails(t *testing.T) {
	_, err := stripJSONC("{ /* the camera section")
	require.ErrorContains(t, err, "unterminated block comment")
}

func TestPosition(t *testing.T) {
	content := "{\n  \"backend\": x\n}"
	tests := []struct {
		offset    int64
		line, col int
	}{
		{offset: 0, line: 1, col: 1},
		{offset: 1, line: 1, col: 1},
		{offset: 15, line: 2, col: 13},
		{offset: 999, line: 3, col: 1},
	}
	for _, tc := range tests {
		line, col := position(content, tc.offset)
		require.Equal(t, tc.line, line, "offset %d", tc.offset)
		require.Equal(t, tc.col, col, "offset %d", tc.offset)
	}
}

func TestParseErrorLocationSurvivesComments(t *testing.T) {
	_, _, err := Parse(`{
  /* a long block comment
     spanning lines */
  "backend": {"timeout_ms": "soon"}, // trailing
}`, Default())
	require.ErrorContains(t, err, "line 4 column")
}

func TestParseCommentOnlyFileUsesBase(t *testing.T) {
	doc, err := parseDocument("// nothing configured yet\n", Default())
	require.NoError(t, err)
	require.Equal(t, Default(), doc.cfg)
	require.Equal(t, Sections(), doc.defaulted)
}

func TestParseRejectsInvalidCommandArgv(t *testing.T) {
	_, _, err := Parse(`{"camera":{"capture_cmd":"unterminated ' quote"}}`, Default())
	require.ErrorContains(t, err, "invalid camera.capture_cmd")
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, _, err := Parse(`{"backend":{"url":"http://x"}}`, Default())
	require.ErrorContains(t, err, "unknown field")
}

func TestParseTrimsStringFields(t *testing.T) {
	cfg, _, err := Parse(`{
  "backend": {"base_url": "  http://127.0.0.1:8000/  "},
  "button": {"sink": "  alsa_output.usb  "},
  "indicator": {"desktop_app_name": "  secondeye-dev  "},
  "metrics": {"addr": " 127.0.0.1:9464 "}
}`, Default())
	require.NoError(t, err)
	require.Equal(t, "http://127.0.0.1:8000", cfg.Backend.BaseURL)
	require.Equal(t, "alsa_output.usb", cfg.Button.Sink)
	require.Equal(t, "secondeye-dev", cfg.Indicator.DesktopAppName)
	require.Equal(t, "127.0.0.1:9464", cfg.Metrics.Addr)
}

func TestParseAppliesEverySection(t *testing.T) {
	doc, err := parseDocument(`{
  // device on the bench
  "backend": {"base_url": "https://assist.example.org", "timeout_ms": 12000, "max_search_duration": 20},
  "audio": {"input": "usb", "fallback": "default"},
  "camera": {"capture_cmd": ["rpicam-still", "-o", "-"], "timeout_ms": 3000},
  "image": {"max_edge": 800, "quality": 70},
  "button": {"enable": false, "threshold": 0.05, "window_ms": 1000, "poll_ms": 25},
  "indicator": {"enable": true, "sound_enable": false, "error_timeout_ms": 0},
  "debug": {"audio_dump": true, "keep_frames": true},
}`, Default())
	require.NoError(t, err)

	cfg := doc.cfg
	require.Equal(t, "https://assist.example.org", cfg.Backend.BaseURL)
	require.Equal(t, 12000, cfg.Backend.TimeoutMS)
	require.Equal(t, 20, cfg.Backend.MaxSearchDuration)
	require.Equal(t, "usb", cfg.Audio.Input)
	require.Equal(t, []string{"rpicam-still", "-o", "-"}, cfg.Camera.CaptureCmd.Argv)
	require.Equal(t, 3000, cfg.Camera.TimeoutMS)
	require.Equal(t, ImageConfig{MaxEdge: 800, Quality: 70}, cfg.Image)
	require.False(t, cfg.Button.Enable)
	require.InDelta(t, 0.05, cfg.Button.Threshold, 1e-9)
	require.Equal(t, 1000, cfg.Button.WindowMS)
	require.Equal(t, 25, cfg.Button.PollMS)
	require.False(t, cfg.Indicator.SoundEnable)
	require.Zero(t, cfg.Indicator.ErrorTimeoutMS)
	require.True(t, cfg.Debug.AudioDump)
	require.True(t, cfg.Debug.KeepFrames)

	require.Equal(t, []string{"metrics"}, doc.defaulted)
	require.Len(t, doc.warnings, 2)
	require.Contains(t, doc.warnings[0].Message, "audio_dump")
	require.Contains(t, doc.warnings[1].Message, "image.max_edge=800")
}

func TestParseRejectsMultipleTopLevelValues(t *testing.T) {
	_, _, err := Parse(`{"button":{"enable":false}}{"button":{"enable":true}}`, Default())
	require.ErrorContains(t, err, "multiple JSON values")
}

func TestParseTypeErrorIncludesLocation(t *testing.T) {
	_, _, err := Parse(`{
  "backend": {"timeout_ms": "soon"}
}`, Default())
	require.ErrorContains(t, err, "line 2 column")
}

func TestParseRejectsNonObjectContent(t *testing.T) {
	_, _, err := Parse("backend.base_url = http://x", Default())
	require.ErrorContains(t, err, "JSONC object")

	_, _, err = Parse(`["backend"]`, Default())
	require.ErrorContains(t, err, "JSONC object")
}

func TestParseEmptyContentReturnsBase(t *testing.T) {
	cfg, warnings, err := Parse("  \n", Default())
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Equal(t, Default(), cfg)
}
