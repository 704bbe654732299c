package indicator

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

const (
	notifyDest  = "org.freedesktop.Notifications"
	notifyPath  = "/org/freedesktop/Notifications"
	notifyIface = "org.freedesktop.Notifications"
)

// Urgency levels defined by org.freedesktop.Notifications.
const (
	urgencyLow      byte = 0
	urgencyNormal   byte = 1
	urgencyCritical byte = 2
)

// notification is one Notify call. Category uses the x-vendor form so
// notification daemons can group secondeye popups.
type notification struct {
	ReplaceID uint32
	Summary   string
	Body      string
	Urgency   byte
	Category  string
	TimeoutMS int
}

// args renders the Notify parameters in busctl's text form, hints included.
func (n notification) args(appName string) []string {
	args := []string{
		"Notify", "susssasa{sv}i",
		appName,
		strconv.FormatUint(uint64(n.ReplaceID), 10),
		"", // icon
		n.Summary,
		n.Body,
		"0", // no actions
	}

	hints := [][]string{{"urgency", "y", strconv.Itoa(int(n.Urgency))}}
	if n.Category != "" {
		hints = append(hints, []string{"category", "s", n.Category})
	}
	args = append(args, strconv.Itoa(len(hints)))
	for _, hint := range hints {
		args = append(args, hint...)
	}
	return append(args, strconv.Itoa(n.TimeoutMS))
}

// desktopNotify shows or replaces a notification and returns the ID the
// notification daemon assigned.
func desktopNotify(ctx context.Context, appName string, n notification) (uint32, error) {
	reply, err := busctl(ctx, n.args(appName)...)
	if err != nil {
		return 0, fmt.Errorf("notify: %w", err)
	}

	raw, ok := strings.CutPrefix(reply, "u ")
	if !ok {
		return 0, fmt.Errorf("notify: invalid response %q", reply)
	}
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("notify: invalid response %q: %w", reply, err)
	}
	return uint32(id), nil
}

// desktopDismiss closes notification id.
func desktopDismiss(ctx context.Context, id uint32) error {
	if _, err := busctl(ctx, "CloseNotification", "u", strconv.FormatUint(uint64(id), 10)); err != nil {
		return fmt.Errorf("dismiss %d: %w", id, err)
	}
	return nil
}

// busctl calls a method on the session bus notification service and returns
// the trimmed reply.
func busctl(ctx context.Context, method ...string) (string, error) {
	args := append([]string{"--user", "call", notifyDest, notifyPath, notifyIface}, method...)
	out, err := exec.CommandContext(ctx, "busctl", args...).CombinedOutput()
	reply := strings.TrimSpace(string(out))
	if err != nil {
		if reply == "" {
			return "", err
		}
		return "", errors.Join(err, errors.New(reply))
	}
	return reply, nil
}
