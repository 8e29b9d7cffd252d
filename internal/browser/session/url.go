// File: internal/browser/session/url.go
package session

import (
	"net/url"
	"regexp"
	"strings"
)

var schemeRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`)

// isolatingSchemes are link schemes that never belong in the working tab.
var isolatingSchemes = map[string]struct{}{
	"mailto":     {},
	"tel":        {},
	"javascript": {},
}

// NormalizeURL prepares a user- or agent-supplied URL for navigation,
// prefixing https:// when no scheme is present.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	if schemeRe.MatchString(raw) {
		return raw
	}
	return "https://" + raw
}

func parseURL(raw string) (*url.URL, error) {
	return url.Parse(strings.TrimSpace(raw))
}

func isolatingScheme(scheme string) bool {
	_, ok := isolatingSchemes[strings.ToLower(scheme)]
	return ok
}

func equalHost(a, b string) bool {
	return strings.EqualFold(a, b)
}

// hostMatchesDomain reports whether host is the domain itself or a subdomain
// of it.
func hostMatchesDomain(host, domain string) bool {
	host = strings.ToLower(host)
	domain = strings.ToLower(domain)
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// sameTarget compares two normalized URLs by origin and path, ignoring
// query and fragment, for navigation idempotence checks.
func sameTarget(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	ua, errA := url.Parse(a)
	ub, errB := url.Parse(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return strings.EqualFold(ua.Scheme, ub.Scheme) &&
		strings.EqualFold(ua.Host, ub.Host) &&
		normalizePath(ua.Path) == normalizePath(ub.Path)
}

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	return p
}
