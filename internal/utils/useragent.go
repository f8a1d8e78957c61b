package utils

import (
	"strings"

	ua "github.com/mssola/user_agent"
)

// DeviceInfo holds parsed information from a User-Agent string
type DeviceInfo struct {
	DeviceType string `json:"device_type"` // reader, mobile, tablet, desktop, unknown
	OS         string `json:"os"`
	Browser    string `json:"browser"`
	BrowserVer string `json:"browser_ver"`
	IsBot      bool   `json:"is_bot"`
	Platform   string `json:"platform"` // android, ios, windows, mac, linux, embedded
	Raw        string `json:"raw"`
}

// readerAgents are User-Agent fragments sent by door readers and
// microcontroller HTTP stacks
var readerAgents = []string{
	"esp32",
	"esp8266",
	"arduino",
	"micropython",
	"python-requests",
}

// ParseUserAgent parses a User-Agent string and extracts device information
func ParseUserAgent(userAgent string) DeviceInfo {
	if userAgent == "" || userAgent == "Unknown" {
		return DeviceInfo{
			DeviceType: "unknown",
			OS:         "Unknown",
			Browser:    "Unknown",
			Platform:   "unknown",
			Raw:        userAgent,
		}
	}

	if IsReaderAgent(userAgent) {
		return DeviceInfo{
			DeviceType: "reader",
			OS:         "Unknown",
			Browser:    "Unknown",
			Platform:   "embedded",
			Raw:        userAgent,
		}
	}

	parser := ua.New(userAgent)
	name, version := parser.Browser()
	if name == "" {
		name = "Unknown"
	}

	return DeviceInfo{
		DeviceType: getDeviceType(parser),
		OS:         getOS(parser),
		Browser:    name,
		BrowserVer: version,
		IsBot:      parser.Bot(),
		Platform:   getPlatform(parser),
		Raw:        userAgent,
	}
}

// IsReaderAgent reports whether userAgent looks like a badge reader rather than a browser
func IsReaderAgent(userAgent string) bool {
	lower := strings.ToLower(userAgent)
	for _, fragment := range readerAgents {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}

func getDeviceType(parser *ua.UserAgent) string {
	if !parser.Mobile() {
		return "desktop"
	}
	lower := strings.ToLower(parser.UA())
	for _, indicator := range []string{"ipad", "tablet", "kindle", "nexus 7", "nexus 9", "sm-t"} {
		if strings.Contains(lower, indicator) {
			return "tablet"
		}
	}
	return "mobile"
}

func getOS(parser *ua.UserAgent) string {
	osInfo := parser.OSInfo()
	if osInfo.Name == "" {
		return "Unknown"
	}
	if osInfo.Version != "" {
		return osInfo.Name + " " + osInfo.Version
	}
	return osInfo.Name
}

func getPlatform(parser *ua.UserAgent) string {
	osName := strings.ToLower(parser.OSInfo().Name)

	// order matters: "iphone os" before the generic names
	platforms := []struct{ key, platform string }{
		{"android", "android"},
		{"iphone os", "ios"},
		{"ios", "ios"},
		{"windows", "windows"},
		{"mac os x", "mac"},
		{"macos", "mac"},
		{"chrome os", "chromeos"},
		{"linux", "linux"},
		{"ubuntu", "linux"},
	}
	for _, p := range platforms {
		if strings.Contains(osName, p.key) {
			return p.platform
		}
	}
	return "unknown"
}
