// ABOUTME: Validation for admin API inputs: feed URLs, folder and feed names, record IDs
// ABOUTME: Rejects control characters, script injection and over-length values before they reach the services

package security

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	maxURLLength  = 2048
	maxNameLength = 256
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
}

// InputValidator validates admin API inputs.
type InputValidator struct {
	externalIDPattern *regexp.Regexp
	scriptPatterns    []*regexp.Regexp
}

// NewInputValidator creates an input validator.
func NewInputValidator() *InputValidator {
	return &InputValidator{
		// Remote record IDs: printable, no whitespace, bounded length.
		externalIDPattern: regexp.MustCompile(`^[a-zA-Z0-9_\-\.:]{1,128}$`),

		scriptPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)<script[^>]*>`),
			regexp.MustCompile(`(?i)javascript:`),
			regexp.MustCompile(`(?i)vbscript:`),
			regexp.MustCompile(`(?i)data:text/html`),
			regexp.MustCompile(`(?i)on\w+\s*=`),
		},
	}
}

// ValidateFeedURL checks a URL supplied for subscription or discovery.
func (v *InputValidator) ValidateFeedURL(rawURL string) error {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return &ValidationError{Field: "url", Message: "URL is required"}
	}
	if len(trimmed) > maxURLLength {
		return &ValidationError{Field: "url", Message: fmt.Sprintf("URL must not exceed %d characters", maxURLLength)}
	}
	if containsControlCharacters(trimmed) {
		return &ValidationError{Field: "url", Message: "URL contains control characters"}
	}
	if err := v.checkScriptInjection("url", trimmed); err != nil {
		return err
	}

	// Tolerate a missing scheme; the normalizer defaults it to https.
	candidate := trimmed
	if !strings.Contains(candidate, "://") {
		candidate = "https://" + candidate
	}

	parsed, err := url.Parse(candidate)
	if err != nil {
		return &ValidationError{Field: "url", Message: "URL is not parseable"}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return &ValidationError{Field: "url", Message: "URL scheme must be http or https"}
	}
	if parsed.Host == "" {
		return &ValidationError{Field: "url", Message: "URL has no host"}
	}

	return nil
}

// ValidateName checks a feed or folder name.
func (v *InputValidator) ValidateName(field, name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return &ValidationError{Field: field, Message: "name is required"}
	}
	if !utf8.ValidString(trimmed) {
		return &ValidationError{Field: field, Message: "name is not valid UTF-8"}
	}
	if utf8.RuneCountInString(trimmed) > maxNameLength {
		return &ValidationError{Field: field, Message: fmt.Sprintf("name must not exceed %d characters", maxNameLength)}
	}
	if containsControlCharacters(trimmed) {
		return &ValidationError{Field: field, Message: "name contains control characters"}
	}
	return v.checkScriptInjection(field, trimmed)
}

// ValidateExternalID checks a remote record identifier, as carried in
// notification payloads and restore requests.
func (v *InputValidator) ValidateExternalID(field, id string) error {
	if id == "" {
		return &ValidationError{Field: field, Message: "identifier is required"}
	}
	if !v.externalIDPattern.MatchString(id) {
		return &ValidationError{Field: field, Message: "identifier contains invalid characters"}
	}
	return nil
}

func (v *InputValidator) checkScriptInjection(field, value string) error {
	for _, pattern := range v.scriptPatterns {
		if pattern.MatchString(value) {
			return &ValidationError{Field: field, Message: "potentially dangerous content detected"}
		}
	}
	return nil
}

// containsControlCharacters reports non-printable characters. Tabs and
// newlines count as control characters here; none of the validated
// fields legitimately contain them.
func containsControlCharacters(s string) bool {
	for _, r := range s {
		if unicode.IsControl(r) {
			return true
		}
	}
	return false
}
