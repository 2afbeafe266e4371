package utils

import (
	"strings"

	"github.com/angewarren12/billeterie-maritime-sub000/internal/models"
	"github.com/gin-gonic/gin"
	ua "github.com/mssola/user_agent"
)

// DeviceInfo is what we keep about the client that submitted a booking
type DeviceInfo struct {
	DeviceType string `json:"device_type"` // mobile, tablet, desktop
	OS         string `json:"os"`
	Browser    string `json:"browser"`
	BrowserVer string `json:"browser_ver"`
	IsBot      bool   `json:"is_bot"`
	Platform   string `json:"platform"` // android, ios, windows, mac, linux
}

var tabletMarkers = []string{"ipad", "tablet", "kindle", "nexus 7", "nexus 9", "nexus 10", "sm-t"}

var platforms = []struct{ marker, platform string }{
	{"android", "android"},
	{"iphone os", "ios"},
	{"ios", "ios"},
	{"windows", "windows"},
	{"mac os x", "mac"},
	{"macos", "mac"},
	{"chrome os", "chromeos"},
	{"ubuntu", "linux"},
	{"linux", "linux"},
}

// ParseUserAgent extracts device information from a User-Agent header
func ParseUserAgent(userAgent string) DeviceInfo {
	if userAgent == "" || userAgent == "Unknown" {
		return DeviceInfo{DeviceType: "unknown", OS: "Unknown", Browser: "Unknown", Platform: "unknown"}
	}

	parser := ua.New(userAgent)
	browser, version := parser.Browser()
	if browser == "" {
		browser = "Unknown"
	}

	info := DeviceInfo{
		DeviceType: "desktop",
		OS:         osName(parser),
		Browser:    browser,
		BrowserVer: version,
		IsBot:      parser.Bot(),
		Platform:   "unknown",
	}

	if parser.Mobile() {
		info.DeviceType = "mobile"
		lower := strings.ToLower(userAgent)
		for _, m := range tabletMarkers {
			if strings.Contains(lower, m) {
				info.DeviceType = "tablet"
				break
			}
		}
	}

	name := strings.ToLower(parser.OSInfo().Name)
	for _, p := range platforms {
		if strings.Contains(name, p.marker) {
			info.Platform = p.platform
			break
		}
	}
	return info
}

func osName(parser *ua.UserAgent) string {
	osInfo := parser.OSInfo()
	if osInfo.Name == "" {
		return "Unknown"
	}
	if osInfo.Version != "" {
		return osInfo.Name + " " + osInfo.Version
	}
	return osInfo.Name
}

// ClientDevice snapshots the requesting device for the booking attempt record
func ClientDevice(c *gin.Context) models.JSONB {
	info := ParseUserAgent(GetUserAgent(c))
	return models.JSONB{
		"device_type": info.DeviceType,
		"os":          info.OS,
		"browser":     info.Browser,
		"browser_ver": info.BrowserVer,
		"is_bot":      info.IsBot,
		"platform":    info.Platform,
		"ip":          GetRealIP(c),
	}
}
