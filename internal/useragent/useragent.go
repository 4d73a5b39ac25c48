package useragent

import (
	"strings"

	"github.com/mssola/useragent"
)

// Device classes reported in Info.Device.
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceBot     = "bot"
	DeviceUnknown = "unknown"
)

// Info is the coarse client description attached to a visit.
type Info struct {
	Browser string
	OS      string
	Device  string
	Bot     bool
	BotName string
}

// knownBots is checked in order so specific crawlers win over the generic
// "crawler", "spider" and "bot" signatures at the end.
var knownBots = []struct{ signature, name string }{
	{"googlebot", "Googlebot"},
	{"bingbot", "Bingbot"},
	{"yeti", "Naver Yeti"},
	{"daum", "Daum"},
	{"yandexbot", "YandexBot"},
	{"duckduckbot", "DuckDuckBot"},
	{"baiduspider", "Baiduspider"},
	{"facebookexternalhit", "Facebook"},
	{"facebot", "Facebook"},
	{"kakaotalk-scrap", "KakaoTalk"},
	{"twitterbot", "Twitterbot"},
	{"linkedinbot", "LinkedInBot"},
	{"slackbot", "Slackbot"},
	{"discordbot", "Discordbot"},
	{"telegrambot", "TelegramBot"},
	{"applebot", "Applebot"},
	{"gptbot", "GPTBot"},
	{"claudebot", "ClaudeBot"},
	{"bytespider", "ByteSpider"},
	{"ahrefsbot", "AhrefsBot"},
	{"semrushbot", "SemrushBot"},
	{"uptimerobot", "UptimeRobot"},
	{"pingdom", "Pingdom"},
	{"crawler", "Unknown Crawler"},
	{"spider", "Unknown Spider"},
	{"bot", "Unknown Bot"},
}

// Parse classifies a User-Agent header. It never fails; unrecognized parts
// come back as "Unknown".
func Parse(uaString string) Info {
	if strings.TrimSpace(uaString) == "" || uaString == "unknown" {
		return Info{Browser: "Unknown", OS: "Unknown", Device: DeviceUnknown}
	}

	ua := useragent.New(uaString)
	lowerUA := strings.ToLower(uaString)

	if ua.Bot() || containsAny(lowerUA, "bot", "crawler", "spider", "crawl", "scrap", "yeti", "externalhit") {
		name := identifyBot(lowerUA)
		return Info{Browser: name, OS: "Bot", Device: DeviceBot, Bot: true, BotName: name}
	}

	browser, _ := ua.Browser()
	info := Info{
		Browser: normalizeBrowserName(browser, lowerUA),
		OS:      osName(ua.OS(), lowerUA),
		Device:  DeviceDesktop,
	}
	switch {
	case isTablet(lowerUA):
		info.Device = DeviceTablet
	case ua.Mobile():
		info.Device = DeviceMobile
	}
	return info
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func identifyBot(lowerUA string) string {
	for _, b := range knownBots {
		if strings.Contains(lowerUA, b.signature) {
			return b.name
		}
	}
	return "Unknown Bot"
}

func normalizeBrowserName(name, lowerUA string) string {
	// In-app browsers report the engine they wrap.
	switch {
	case strings.Contains(lowerUA, "kakaotalk"):
		return "KakaoTalk"
	case strings.Contains(lowerUA, "naver("):
		return "Naver"
	case strings.Contains(lowerUA, "instagram"):
		return "Instagram"
	case strings.Contains(lowerUA, "samsungbrowser"):
		return "Samsung Browser"
	case strings.Contains(lowerUA, "whale/"):
		return "Whale"
	}

	switch strings.ToLower(name) {
	case "chrome", "google chrome":
		return "Chrome"
	case "firefox", "mozilla firefox":
		return "Firefox"
	case "safari", "mobile safari":
		return "Safari"
	case "edge", "microsoft edge":
		return "Edge"
	case "opera", "opera mini":
		return "Opera"
	case "ie", "internet explorer", "msie":
		return "Internet Explorer"
	case "":
		return "Unknown"
	default:
		return name
	}
}

var osRules = []struct {
	match func(osLower, lowerUA string) bool
	name  string
}{
	{func(o, u string) bool { return containsAny(u, "iphone", "ipad", "ipod") || strings.Contains(o, "ios") }, "iOS"},
	{func(o, u string) bool { return strings.Contains(o, "android") }, "Android"},
	{func(o, u string) bool { return strings.Contains(o, "windows") }, "Windows"},
	{func(o, u string) bool { return strings.Contains(o, "cros") || strings.Contains(u, "cros ") }, "Chrome OS"},
	{func(o, u string) bool { return containsAny(o, "mac os", "macos") || strings.Contains(u, "macintosh") }, "macOS"},
	{func(o, u string) bool { return strings.Contains(o, "linux") }, "Linux"},
}

func osName(osInfo, lowerUA string) string {
	osLower := strings.ToLower(osInfo)
	for _, r := range osRules {
		if r.match(osLower, lowerUA) {
			return r.name
		}
	}
	if osInfo == "" {
		return "Unknown"
	}
	return osInfo
}

func isTablet(lowerUA string) bool {
	return containsAny(lowerUA, "ipad", "tablet", "kindle", "silk", "sm-t")
}
