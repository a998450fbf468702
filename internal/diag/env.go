package diag

import (
	"os"
	"runtime"
	"strings"

	"golang.org/x/text/language"
)

// DetectBrowserAndOS identifies the browser family and operating
// system from a user-agent string. Unknown strings report "Unknown";
// detection is coarse on purpose since the value is informational
// context for a report, not a capability check.
func DetectBrowserAndOS(userAgent string) (browser, os string) {
	browser = "Unknown"
	os = "Unknown"

	switch {
	case strings.Contains(userAgent, "Edg/"):
		browser = "Edge"
	case strings.Contains(userAgent, "Chrome/"):
		browser = "Chrome"
	case strings.Contains(userAgent, "Firefox/"):
		browser = "Firefox"
	case strings.Contains(userAgent, "Safari/"):
		browser = "Safari"
	}

	switch {
	case strings.Contains(userAgent, "Windows NT"):
		os = "Windows"
	case strings.Contains(userAgent, "Mac OS X"):
		os = "macOS"
	case strings.Contains(userAgent, "Android"):
		os = "Android"
	case strings.Contains(userAgent, "iPhone"),
		strings.Contains(userAgent, "iPad"),
		strings.Contains(userAgent, "iPod"):
		os = "iOS"
	case strings.Contains(userAgent, "Linux"):
		os = "Linux"
	}

	return browser, os
}

// hostOS maps the running process's platform to the same naming used
// for user-agent detection. Used when no user agent is available.
func hostOS() string {
	switch runtime.GOOS {
	case "linux":
		return "Linux"
	case "darwin":
		return "macOS"
	case "windows":
		return "Windows"
	default:
		return runtime.GOOS
	}
}

// localeLanguage resolves the report language from the process locale
// environment, normalized to a BCP 47 tag (e.g. "en-US"). Returns an
// empty string when no locale is set or it cannot be parsed.
func localeLanguage() string {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG", "LANGUAGE"} {
		raw := os.Getenv(key)
		if raw == "" || raw == "C" || raw == "POSIX" {
			continue
		}

		// Locale values look like "en_US.UTF-8"; the codeset suffix is
		// not part of the language tag.
		if i := strings.IndexByte(raw, '.'); i >= 0 {
			raw = raw[:i]
		}
		raw = strings.ReplaceAll(raw, "_", "-")

		tag, err := language.Parse(raw)
		if err != nil {
			continue
		}
		return tag.String()
	}
	return ""
}
