package activity

import (
	"strings"

	"github.com/mssola/useragent"
)

// DescribeDevice renders a user-agent string as a short display name like
// "Chrome on Mac OS X" for log metadata.
func DescribeDevice(rawUA string) string {
	if rawUA == "" {
		return "Unknown Device"
	}

	ua := useragent.New(rawUA)
	browser, _ := ua.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}
	os := ua.OSInfo().Name
	if os == "" {
		os = ua.Platform()
	}
	if os == "" {
		os = "Unknown OS"
	}
	return strings.TrimSpace(browser + " on " + os)
}
