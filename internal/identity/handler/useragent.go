package handler

import "strings"

const unknownAgent = "Unknown"

// Browser names the browser family in a User-Agent header. Edge and Opera embed "Chrome" and
// Chrome embeds "Safari", so the more specific tokens are checked first.
func Browser(ua string) string {
	switch {
	case ua == "":
		return unknownAgent
	case strings.Contains(ua, "Edg/"), strings.Contains(ua, "Edge"):
		return "Edge"
	case strings.Contains(ua, "OPR/"), strings.Contains(ua, "Opera"):
		return "Opera"
	case strings.Contains(ua, "Firefox"), strings.Contains(ua, "FxiOS"):
		return "Firefox"
	case strings.Contains(ua, "Chrome"), strings.Contains(ua, "CriOS"):
		return "Chrome"
	case strings.Contains(ua, "Safari"):
		return "Safari"
	}
	return unknownAgent
}

// OperatingSystem names the OS family in a User-Agent header. iOS agents say "like Mac OS X" and
// Android agents say "Linux", so those are checked before the desktop families.
func OperatingSystem(ua string) string {
	switch {
	case ua == "":
		return unknownAgent
	case strings.Contains(ua, "iPhone"), strings.Contains(ua, "iPad"):
		return "iOS"
	case strings.Contains(ua, "Android"):
		return "Android"
	case strings.Contains(ua, "Windows"):
		return "Windows"
	case strings.Contains(ua, "Mac"):
		return "MacOS"
	case strings.Contains(ua, "Linux"):
		return "Linux"
	}
	return unknownAgent
}
