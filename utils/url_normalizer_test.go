package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFeedURL(t *testing.T) {
	tests := map[string]struct {
		input    string
		expected string
	}{
		"trailing slash removed": {
			input:    "https://example.com/feed/",
			expected: "https://example.com/feed",
		},
		"root path keeps trailing slash": {
			input:    "https://example.com/",
			expected: "https://example.com/",
		},
		"scheme and host lowercased": {
			input:    "HTTPS://Example.COM/Feed.xml",
			expected: "https://example.com/Feed.xml",
		},
		"missing scheme defaults to https": {
			input:    "example.com/feed.xml",
			expected: "https://example.com/feed.xml",
		},
		"tracking parameters removed": {
			input:    "https://example.com/feed?utm_source=rss&utm_medium=feed&fbclid=abc",
			expected: "https://example.com/feed",
		},
		"fragment removed": {
			input:    "https://example.com/feed#latest",
			expected: "https://example.com/feed",
		},
		"non-tracking params preserved and sorted": {
			input:    "https://example.com/search?q=go&page=1",
			expected: "https://example.com/search?page=1&q=go",
		},
		"surrounding whitespace trimmed": {
			input:    "  https://example.com/feed  ",
			expected: "https://example.com/feed",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			result, err := NormalizeFeedURL(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestNormalizeFeedURL_Invalid(t *testing.T) {
	for name, input := range map[string]string{
		"empty":      "",
		"whitespace": "   ",
		"no host":    "https:///feed",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NormalizeFeedURL(input)
			assert.Error(t, err)
		})
	}
}
