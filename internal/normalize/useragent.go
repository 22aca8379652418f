package normalize

import "strings"

const unknownDevice = "other"

// classifyDevice derives coarse platform/os/browser labels from the raw user
// agent. Match order matters: tablet markers before mobile, Edge and Opera
// before Chrome, Chrome before Safari.
func classifyDevice(userAgent string) Device {
	ua := strings.ToLower(userAgent)

	return Device{
		Platform: platformOf(ua),
		OS:       osOf(ua),
		Browser:  browserOf(ua),
	}
}

func platformOf(ua string) string {
	switch {
	case strings.Contains(ua, "ipad"),
		strings.Contains(ua, "tablet"),
		strings.Contains(ua, "android") && !strings.Contains(ua, "mobile"):
		return "tablet"
	case strings.Contains(ua, "mobile"),
		strings.Contains(ua, "iphone"),
		strings.Contains(ua, "android"):
		return "mobile"
	case ua == "":
		return unknownDevice
	default:
		return "desktop"
	}
}

func osOf(ua string) string {
	switch {
	case strings.Contains(ua, "iphone"), strings.Contains(ua, "ipad"), strings.Contains(ua, "ios"):
		return "ios"
	case strings.Contains(ua, "android"):
		return "android"
	case strings.Contains(ua, "windows"):
		return "windows"
	case strings.Contains(ua, "mac os"), strings.Contains(ua, "macintosh"):
		return "macos"
	case strings.Contains(ua, "cros"):
		return "chromeos"
	case strings.Contains(ua, "linux"):
		return "linux"
	default:
		return unknownDevice
	}
}

func browserOf(ua string) string {
	switch {
	case strings.Contains(ua, "edg/"), strings.Contains(ua, "edge"):
		return "edge"
	case strings.Contains(ua, "opr/"), strings.Contains(ua, "opera"):
		return "opera"
	case strings.Contains(ua, "samsungbrowser"):
		return "samsung-internet"
	case strings.Contains(ua, "firefox"), strings.Contains(ua, "fxios"):
		return "firefox"
	case strings.Contains(ua, "chrome"), strings.Contains(ua, "crios"):
		return "chrome"
	case strings.Contains(ua, "safari"):
		return "safari"
	default:
		return unknownDevice
	}
}
