package indicator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/secondeye/secondeye/internal/config"
	"github.com/secondeye/secondeye/internal/session"
)

var _ session.Indicator = (*Notifier)(nil)

func TestNotifierDispatchesReplaceableNotifications(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "busctl-args.log")
	t.Setenv("BUSCTL_ARGS_FILE", argsFile)
	installBusctlStub(t, `
printf '%s\n' "$*" >> "${BUSCTL_ARGS_FILE}"
if [[ "$*" == *" Notify "* ]]; then
  echo 'u 42'
fi
`)

	cfg := config.Default().Indicator
	cfg.SoundEnable = false
	cfg.ErrorTimeoutMS = 2500

	notify := NewNotifier(cfg, nil)
	notify.ShowRecording(context.Background())
	notify.ShowProcessing(context.Background())
	notify.ShowAnswer(context.Background(), "  The door is on your left.  ")
	notify.ShowError(context.Background(), "Server error (HTTP 500): oops")
	notify.Hide(context.Background())

	lines := readLines(t, argsFile)
	require.Len(t, lines, 5)

	prefix := "--user call org.freedesktop.Notifications /org/freedesktop/Notifications org.freedesktop.Notifications "
	require.Equal(t, prefix+"Notify susssasa{sv}i secondeye 0  Listening…  0 2 urgency y 0 category s x-secondeye.status 300000", lines[0])
	require.Equal(t, prefix+"Notify susssasa{sv}i secondeye 42  Thinking…  0 2 urgency y 0 category s x-secondeye.status 300000", lines[1])
	require.Equal(t, prefix+"Notify susssasa{sv}i secondeye 42  SecondEye The door is on your left. 0 2 urgency y 1 category s x-secondeye.answer 15000", lines[2])
	require.Equal(t, prefix+"Notify susssasa{sv}i secondeye 42  Server error (HTTP 500): oops  0 2 urgency y 2 category s x-secondeye.error 2500", lines[3])
	require.Equal(t, prefix+"CloseNotification u 42", lines[4])
}

func TestNotifierShowErrorDefaultsTextAndTimeout(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "busctl-args.log")
	t.Setenv("BUSCTL_ARGS_FILE", argsFile)
	installBusctlStub(t, `
printf '%s\n' "$*" >> "${BUSCTL_ARGS_FILE}"
echo 'u 7'
`)

	cfg := config.Default().Indicator
	cfg.SoundEnable = false
	cfg.ErrorTimeoutMS = 0

	notify := NewNotifier(cfg, nil)
	notify.ShowError(context.Background(), " ")

	lines := readLines(t, argsFile)
	require.Len(t, lines, 1)
	require.True(t, strings.HasSuffix(lines[0], "Something went wrong  0 2 urgency y 2 category s x-secondeye.error 4000"), lines[0])
}

func TestNotifierHideWithoutNotificationSkipsBusctl(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "busctl-args.log")
	t.Setenv("BUSCTL_ARGS_FILE", argsFile)
	installBusctlStub(t, `
printf '%s\n' "$*" >> "${BUSCTL_ARGS_FILE}"
`)

	cfg := config.Default().Indicator
	cfg.SoundEnable = false

	notify := NewNotifier(cfg, nil)
	notify.Hide(context.Background())

	_, err := os.Stat(argsFile)
	require.True(t, os.IsNotExist(err))
}

func TestNotifierDisabledSkipsBusctl(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "busctl-args.log")
	t.Setenv("BUSCTL_ARGS_FILE", argsFile)
	installBusctlStub(t, `
printf '%s\n' "$*" >> "${BUSCTL_ARGS_FILE}"
echo 'u 1'
`)

	cfg := config.Default().Indicator
	cfg.Enable = false
	cfg.SoundEnable = false

	notify := NewNotifier(cfg, nil)
	notify.ShowRecording(context.Background())
	notify.ShowProcessing(context.Background())
	notify.ShowAnswer(context.Background(), "ignored")
	notify.ShowError(context.Background(), "ignored")
	notify.Hide(context.Background())

	_, err := os.Stat(argsFile)
	require.True(t, os.IsNotExist(err))
}

func TestNotifierSurvivesBusctlFailure(t *testing.T) {
	installBusctlStub(t, `
echo 'Failed to connect to bus' >&2
exit 1
`)

	cfg := config.Default().Indicator
	cfg.SoundEnable = false

	notify := NewNotifier(cfg, nil)
	notify.ShowRecording(context.Background())
	notify.Hide(context.Background())
	require.Zero(t, notify.notificationID)
}

func TestDesktopNotifyRejectsMalformedReply(t *testing.T) {
	installBusctlStub(t, `
echo 'garbage'
`)

	_, err := desktopNotify(context.Background(), "secondeye", notification{Summary: "x", TimeoutMS: 100})
	require.ErrorContains(t, err, "invalid response")
}

func TestDesktopNotifyKeepsBusErrorText(t *testing.T) {
	installBusctlStub(t, `
echo 'Failed to connect to bus: No medium found' >&2
exit 1
`)

	_, err := desktopNotify(context.Background(), "secondeye", notification{Summary: "x"})
	require.ErrorContains(t, err, "No medium found")

	err = desktopDismiss(context.Background(), 9)
	require.ErrorContains(t, err, "dismiss 9")
	require.ErrorContains(t, err, "No medium found")
}

func TestNotificationArgsOmitEmptyCategory(t *testing.T) {
	args := notification{ReplaceID: 3, Summary: "Listening…", Urgency: urgencyLow, TimeoutMS: 500}.args("kiosk")
	require.Equal(t, []string{
		"Notify", "susssasa{sv}i", "kiosk", "3", "", "Listening…", "", "0",
		"1", "urgency", "y", "0",
		"500",
	}, args)
}

func TestNotifierPlaysCuesInOrder(t *testing.T) {
	installBusctlStub(t, `
echo 'u 3'
`)

	cfg := config.Default().Indicator
	cfg.SoundEnable = true

	sink := &recordingSink{}
	notify := NewNotifier(cfg, nil)
	notify.sink = sink

	notify.ShowRecording(context.Background())
	notify.Close()
	notify.CueStop(context.Background())
	notify.Close()
	notify.CueComplete(context.Background())
	notify.Close()
	notify.CueCancel(context.Background())
	notify.Close()
	notify.ShowError(context.Background(), "boom")
	notify.Close()

	require.Equal(t, 5, sink.count())
	require.Equal(t, cueSamples(cueStart), sink.plays[0].Samples)
	require.Equal(t, cueSamples(cueStop), sink.plays[1].Samples)
	require.Equal(t, cueSamples(cueComplete), sink.plays[2].Samples)
	require.Equal(t, cueSamples(cueCancel), sink.plays[3].Samples)
	require.Equal(t, cueSamples(cueError), sink.plays[4].Samples)
}

func TestNotifierSoundDisabledSkipsCues(t *testing.T) {
	cfg := config.Default().Indicator
	cfg.Enable = false
	cfg.SoundEnable = false

	sink := &recordingSink{}
	notify := NewNotifier(cfg, nil)
	notify.sink = sink

	notify.ShowRecording(context.Background())
	notify.CueStop(context.Background())
	notify.CueComplete(context.Background())
	notify.Close()

	require.Zero(t, sink.count())
}

func TestTruncateRunes(t *testing.T) {
	require.Equal(t, "short", truncateRunes("short", 10))
	require.Equal(t, "abcd…", truncateRunes("abcdefgh", 5))
	require.Equal(t, "日本…", truncateRunes("日本語テキスト", 3))
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func installBusctlStub(t *testing.T, body string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "busctl")
	script := "#!/usr/bin/env bash\nset -euo pipefail\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))
	// Notification text depends on the locale.
	t.Setenv("LC_ALL", "C.UTF-8")
}
