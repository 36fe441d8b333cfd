package domain

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Device is a browser/OS combination seen for at least one user.
// Name is always Normalize(Browser) + "_" + Normalize(OS).
type Device struct {
	ID          string
	Name        string
	Browser     string
	OS          string
	UserAgent   string
	CreatedByIP string
	CreatedAt   time.Time
	LastSeenAt  time.Time
	IsActive    bool
}

var lower = cases.Lower(language.Und)

// Normalize trims surrounding whitespace and lower-cases s.
func Normalize(s string) string {
	return lower.String(strings.TrimSpace(s))
}

// Name builds the device name from already normalized browser and os.
func Name(browser, os string) string {
	return browser + "_" + os
}
