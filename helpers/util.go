package helpers

import (
	"net/url"
	"strings"
)

// ResolveURL resolves href against base. Absolute hrefs are returned
// unchanged and an empty href yields an empty string.
func ResolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if ref.IsAbs() {
		return ref.String()
	}

	baseURL, err := url.Parse(base)
	if err != nil || baseURL.Host == "" {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}

// HostOf returns the lower-cased host of rawURL without a "www." prefix
func HostOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}
