// Package device summarizes the client a custody action was recorded from.
// The summary ends up on custody entries and audit events - evidence
// technicians record transfers from shared workstations and mobile scanners,
// and "which terminal" is a recurring question in custody disputes.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

// Summarize renders a User-Agent header into a short human-readable device
// description, e.g. "Chrome on Linux".
func Summarize(rawUserAgent string) string {
	if rawUserAgent == "" {
		return "Unknown Device"
	}

	ua := useragent.New(rawUserAgent)
	browser, _ := ua.Browser()
	os := ua.OS()

	switch {
	case browser != "" && os != "":
		return browser + " on " + os
	case browser != "":
		return browser
	case os != "":
		return "Unknown Browser on " + os
	default:
		// Keep a trimmed slice of the raw value rather than nothing.
		raw := strings.TrimSpace(rawUserAgent)
		if len(raw) > 64 {
			raw = raw[:64]
		}
		return raw + " on Unknown"
	}
}
