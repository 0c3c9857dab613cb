// Package role models which physical device a localbridge session represents.
// The role decides which clipboard endpoint is read (the peer's) and which is
// written (our own), and which labels the UI shows.
package role

import (
	"fmt"
	"regexp"
	"strings"
)

// DeviceRole is either PC or Mobile.
type DeviceRole string

const (
	PC     DeviceRole = "pc"
	Mobile DeviceRole = "mobile"
)

// MobileWidth is the viewport width below which a session counts as mobile.
const MobileWidth = 768

var mobileAgent = regexp.MustCompile(`(?i)Android|webOS|iPhone|iPad|iPod|BlackBerry|IEMobile|Opera Mini`)

// Hints are the signals used to guess a role when none is persisted.
type Hints struct {
	UserAgent string
	// ViewportWidth in pixels; 0 means unknown and is ignored.
	ViewportWidth int
}

// Detect guesses the role from hints.
func Detect(h Hints) DeviceRole {
	if mobileAgent.MatchString(h.UserAgent) || (h.ViewportWidth > 0 && h.ViewportWidth < MobileWidth) {
		return Mobile
	}
	return PC
}

// Parse converts a string to a DeviceRole.
func Parse(s string) (DeviceRole, error) {
	switch DeviceRole(strings.ToLower(strings.TrimSpace(s))) {
	case PC:
		return PC, nil
	case Mobile:
		return Mobile, nil
	default:
		return "", fmt.Errorf("unknown device role %q (want pc or mobile)", s)
	}
}

// Peer returns the opposite role.
func (r DeviceRole) Peer() DeviceRole {
	if r == Mobile {
		return PC
	}
	return Mobile
}

// ReadPath is the clipboard endpoint displayed for r: the peer's clipboard.
func (r DeviceRole) ReadPath() string { return "/api/clipboard/" + string(r.Peer()) }

// WritePath is the clipboard endpoint r writes: its own clipboard.
func (r DeviceRole) WritePath() string {
	if r == Mobile {
		return "/api/clipboard/mobile"
	}
	return "/api/clipboard/pc"
}

// DeviceName is the name used in status messages.
func (r DeviceRole) DeviceName() string {
	if r == Mobile {
		return "mobile"
	}
	return "PC"
}

// Title is DeviceName with a leading capital, for the start of a sentence.
func (r DeviceRole) Title() string {
	if r == Mobile {
		return "Mobile"
	}
	return "PC"
}

// Labels is the role-dependent UI text.
type Labels struct {
	Display     string
	Input       string
	Placeholder string
	SetButton   string
	CopyButton  string
}

// Labels returns the UI text for r. A PC shows the mobile clipboard and
// writes the PC clipboard; mobile is the mirror.
func (r DeviceRole) Labels() Labels {
	return Labels{
		Display:     r.Peer().Title() + " Clipboard Content:",
		Input:       "Set " + r.Title() + " Clipboard:",
		Placeholder: "Enter text to copy to " + r.DeviceName() + " clipboard",
		SetButton:   "Copy to " + r.Title(),
		CopyButton:  "Copy to " + r.DeviceName() + " clipboard",
	}
}
