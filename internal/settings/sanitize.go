package settings

import (
	"net/url"
	"strings"
	"unicode"
)

// SanitizeURL cleans a user-entered webhook URL for storage. Whitespace and
// control characters are dropped and a missing scheme defaults to http.
// Anything that is not an absolute http(s) URL with a host becomes "".
func SanitizeURL(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return -1
		}
		return r
	}, raw)
	if cleaned == "" {
		return ""
	}

	if !strings.Contains(cleaned, "://") {
		// "host:port" or a bare host; relative paths are never valid targets.
		if strings.HasPrefix(cleaned, "/") || strings.Contains(strings.SplitN(cleaned, "/", 2)[0], "@") {
			return ""
		}
		cleaned = "http://" + cleaned
	}

	u, err := url.Parse(cleaned)
	if err != nil {
		return ""
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return ""
	}
	if u.Host == "" || u.Hostname() == "" {
		return ""
	}
	u.Scheme = scheme
	return u.String()
}
