// ABOUTME: Canonicalizes feed URLs so the same feed entered two ways dedupes to one row
// ABOUTME: Lowercases scheme and host, strips fragments, tracking params and trailing slashes

package utils

import (
	"fmt"
	"net/url"
	"strings"
)

// trackingParams contains query parameters to remove during normalization.
var trackingParams = map[string]bool{
	"utm_source":   true,
	"utm_medium":   true,
	"utm_campaign": true,
	"utm_term":     true,
	"utm_content":  true,
	"utm_id":       true,
	"fbclid":       true, // Facebook click ID
	"gclid":        true, // Google click ID
	"mc_eid":       true, // MailChimp email ID
	"msclkid":      true, // Microsoft click ID
}

// NormalizeFeedURL canonicalizes a feed URL:
// - lowercases the scheme and host
// - defaults a missing scheme to https
// - removes tracking parameters (UTM, fbclid, etc.)
// - removes URL fragments
// - removes trailing slashes (except for the root path)
func NormalizeFeedURL(rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", fmt.Errorf("empty URL")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("URL %q has no host", rawURL)
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""

	query := parsed.Query()
	for param := range trackingParams {
		query.Del(param)
	}
	parsed.RawQuery = query.Encode()

	if parsed.Path != "/" && strings.HasSuffix(parsed.Path, "/") {
		parsed.Path = strings.TrimRight(parsed.Path, "/")
	}

	return parsed.String(), nil
}
